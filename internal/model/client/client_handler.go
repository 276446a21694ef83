package client

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/api_functions"
	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/HannahMarsh/simple-onion-routing/internal/circuit"
	"github.com/HannahMarsh/simple-onion-routing/internal/transport"
	"github.com/pkg/errors"
)

// StatusCode maps an error returned by Send to the HTTP status the user answers with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, circuit.ErrInsufficientRelays):
		return http.StatusBadRequest
	case errors.Is(err, transport.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleReceive handles messages delivered to this user by the last relay.
func (c *Client) HandleReceive(w http.ResponseWriter, r *http.Request) {
	var body structs.MessageBody
	if !api_functions.DecodeBody(w, r, &body) {
		return
	}
	message, err := base64.StdEncoding.DecodeString(body.Message)
	if err != nil {
		slog.Error("Error decoding message", "user", c.ID, "error", err)
		http.Error(w, "message is not base64", http.StatusBadRequest)
		return
	}
	if err := c.ReceiveMessage(r.Context(), message); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	api_functions.WriteText(w, "success")
}

func (c *Client) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body structs.SendMessageBody
	if !api_functions.DecodeBody(w, r, &body) {
		return
	}
	if err := c.SendToUser(r.Context(), body.DestinationUserID, body.Message); err != nil {
		slog.Error("Error sending message", "user", c.ID, "error", err)
		http.Error(w, err.Error(), StatusCode(err))
		return
	}
	api_functions.WriteText(w, "success")
}

func (c *Client) HandleGetLive(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteText(w, "live")
}

func (c *Client) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(c.GetStatus())); err != nil {
		slog.Error("Error writing response", "error", err)
	}
}

func optional(s string, ok bool) interface{} {
	if !ok {
		return nil
	}
	return s
}

func (c *Client) HandleGetLastReceivedMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteJSON(w, http.StatusOK, structs.Result{Result: optional(c.LastReceivedMessage())})
}

func (c *Client) HandleGetLastSentMessage(w http.ResponseWriter, r *http.Request) {
	api_functions.WriteJSON(w, http.StatusOK, structs.Result{Result: optional(c.LastSentMessage())})
}

func (c *Client) HandleGetLastCircuit(w http.ResponseWriter, r *http.Request) {
	ids := c.LastCircuit()
	if ids == nil {
		ids = []int{}
	}
	api_functions.WriteJSON(w, http.StatusOK, structs.Result{Result: ids})
}

func (c *Client) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", c.HandleGetLive)
	mux.HandleFunc("GET /getStatus", c.HandleGetStatus)
	mux.HandleFunc("GET /getLastReceivedMessage", c.HandleGetLastReceivedMessage)
	mux.HandleFunc("GET /getLastSentMessage", c.HandleGetLastSentMessage)
	mux.HandleFunc("GET /getLastCircuit", c.HandleGetLastCircuit)
	mux.HandleFunc("POST /message", c.HandleReceive)
	mux.HandleFunc("POST /sendMessage", c.HandleSendMessage)
	return mux
}
