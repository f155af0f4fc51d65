// Package api serves the read and focus HTTP surface over the retention store.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/okian/killwatch/internal/adapters/http/swagger"
	"github.com/okian/killwatch/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider
	KillmailReader
	FocusController

	// ConnectionStatus reports upstream liveness.
	ConnectionStatus(ctx context.Context) types.Connection
}

// Server wires HTTP routes for the business API.
type Server struct {
	router chi.Router

	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	killmailsHandler  *KillmailsHandler
	focusHandler      *FocusHandler
	connectionHandler *ConnectionHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(deps),
		statsHandler:      NewStatsHandler(deps),
		killmailsHandler:  NewKillmailsHandler(deps),
		focusHandler:      NewFocusHandler(deps),
		connectionHandler: NewConnectionHandler(deps),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Get("/connection", s.connectionHandler.HandleConnection)

	r.Get("/killmails", s.killmailsHandler.HandleList)
	r.Get("/killmails/{id}", s.killmailsHandler.HandleGet)

	r.Get("/focus", s.focusHandler.HandleGet)
	r.Put("/focus/{id}", s.focusHandler.HandleFocus)
	r.Delete("/focus/{id}", s.focusHandler.HandleUnfocus)

	swagger.Register(r)

	s.router = r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// killmailID reads the {id} path parameter.
func killmailID(r *http.Request, op string) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, WrapKind(op, ErrBadRequest, err)
	}
	if id <= 0 {
		return 0, NewKind(op, ErrBadRequest)
	}
	return id, nil
}
