package registry

import (
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/simple-onion-routing/internal/api/api_functions"
	"github.com/HannahMarsh/simple-onion-routing/internal/api/structs"
	"github.com/pkg/errors"
)

func (r *Registry) HandleGetStatus(w http.ResponseWriter, req *http.Request) {
	api_functions.WriteText(w, "live")
}

// HandleRegisterNode processes HTTP requests for registering a relay node.
func (r *Registry) HandleRegisterNode(w http.ResponseWriter, req *http.Request) {
	var relay structs.RegisterNodeBody
	if !api_functions.DecodeBody(w, req, &relay) {
		return
	}

	slog.Info("Registering relay with", "id", relay.ID)
	if err := r.Register(req.Context(), relay); err != nil {
		slog.Error("Error registering relay", "id", relay.ID, "error", err)
		if errors.Is(err, ErrAlreadyRegistered) {
			http.Error(w, err.Error(), http.StatusConflict)
		} else {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	api_functions.WriteJSON(w, http.StatusOK, structs.Result{Result: "success"})
}

func (r *Registry) HandleGetNodeRegistry(w http.ResponseWriter, req *http.Request) {
	if relays, err := r.GetAllRelays(req.Context()); err != nil {
		slog.Error("Error listing relays", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	} else {
		api_functions.WriteJSON(w, http.StatusOK, structs.GetNodeRegistryBody{Nodes: relays})
	}
}

func (r *Registry) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", r.HandleGetStatus)
	mux.HandleFunc("POST /registerNode", r.HandleRegisterNode)
	mux.HandleFunc("GET /getNodeRegistry", r.HandleGetNodeRegistry)
	return mux
}
