package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/killwatch/internal/adapters/repository"
	"github.com/okian/killwatch/internal/domain/types"
)

// KillmailReader exposes the retained killmails.
type KillmailReader interface {
	Killmails(ctx context.Context) []types.Killmail
	Killmail(ctx context.Context, id int64) (types.Killmail, error)
}

// KillmailsHandler handles killmail read requests.
type KillmailsHandler struct {
	deps KillmailReader
}

// NewKillmailsHandler creates a new killmails handler.
func NewKillmailsHandler(deps KillmailReader) *KillmailsHandler {
	return &KillmailsHandler{deps: deps}
}

type killmailsResponse struct {
	Count     int              `json:"count"`
	Killmails []types.Killmail `json:"killmails"`
}

// HandleList handles GET /killmails.
func (h *KillmailsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	all := h.deps.Killmails(r.Context())
	writeJSON(w, http.StatusOK, killmailsResponse{Count: len(all), Killmails: all})
}

// HandleGet handles GET /killmails/{id}.
func (h *KillmailsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.killmails.get"
	id, err := killmailID(r, op)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	k, err := h.deps.Killmail(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, k)
}
