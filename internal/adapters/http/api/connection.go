package api

import "net/http"

// ConnectionHandler reports upstream liveness.
type ConnectionHandler struct {
	deps Dependencies
}

// NewConnectionHandler creates a new connection handler.
func NewConnectionHandler(deps Dependencies) *ConnectionHandler {
	return &ConnectionHandler{deps: deps}
}

// HandleConnection handles GET /connection.
func (h *ConnectionHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.ConnectionStatus(r.Context()))
}
