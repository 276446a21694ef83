package relay

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/api_functions"
	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/onion"
	"github.com/HannahMarsh/simple-onion-routing/internal/transport"
	"github.com/pkg/errors"
)

// StatusCode maps an error returned by Receive to the HTTP status the relay answers with.
// Forwarding failures are checked first: a DeliveryError unwraps to whatever the next hop
// returned, which may itself be a decryption error.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, transport.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, onion.ErrDecryption):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// HandleReceiveOnion handles incoming onion requests sent to the relay.
func (n *Relay) HandleReceiveOnion(w http.ResponseWriter, r *http.Request) {
	var body structs.MessageBody
	if !api_functions.DecodeBody(w, r, &body) {
		return
	}
	blob, err := base64.StdEncoding.DecodeString(body.Message)
	if err != nil {
		slog.Error("Error decoding onion", "relay", n.ID, "error", err)
		http.Error(w, "message is not base64", http.StatusBadRequest)
		return
	}
	if err := n.Receive(r.Context(), blob); err != nil {
		slog.Error("Error receiving onion", "relay", n.ID, "error", err)
		http.Error(w, err.Error(), StatusCode(err))
		return
	}
	api_functions.WriteJSON(w, http.StatusOK, structs.Success{Success: true})
}

func (n *Relay) HandleGetLive(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteText(w, "live")
}

// HandleGetStatus returns the relay's counters and last seen values as JSON.
func (n *Relay) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(n.GetStatus())); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

func encodeOrNil(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return base64.StdEncoding.EncodeToString(b)
}

func (n *Relay) HandleGetLastReceivedEncryptedMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteJSON(w, http.StatusOK, structs.Result{Result: encodeOrNil(n.LastReceivedEncrypted())})
}

func (n *Relay) HandleGetLastReceivedDecryptedMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteJSON(w, http.StatusOK, structs.Result{Result: encodeOrNil(n.LastReceivedDecrypted())})
}

func (n *Relay) HandleGetLastMessageDestination(w http.ResponseWriter, r *http.Request) {
	if destination, ok := n.LastDestination(); ok {
		api_functions.WriteJSON(w, http.StatusOK, structs.Result{Result: destination})
	} else {
		api_functions.WriteJSON(w, http.StatusOK, structs.Result{})
	}
}

func (n *Relay) HandleGetPrivateKey(w http.ResponseWriter, r *http.Request) {
	if key, err := n.ExportPrivateKey(); err != nil {
		slog.Error("Error exporting private key", "relay", n.ID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	} else {
		api_functions.WriteJSON(w, http.StatusOK, structs.Result{Result: key})
	}
}

func (n *Relay) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", n.HandleGetLive)
	mux.HandleFunc("GET /getStatus", n.HandleGetStatus)
	mux.HandleFunc("GET /getLastReceivedEncryptedMessage", n.HandleGetLastReceivedEncryptedMessage)
	mux.HandleFunc("GET /getLastReceivedDecryptedMessage", n.HandleGetLastReceivedDecryptedMessage)
	mux.HandleFunc("GET /getLastMessageDestination", n.HandleGetLastMessageDestination)
	mux.HandleFunc("GET /getPrivateKey", n.HandleGetPrivateKey)
	mux.HandleFunc("POST /message", n.HandleReceiveOnion)
	return mux
}
