package api

import (
	"context"
	"net/http"

	"github.com/okian/killwatch/internal/domain/types"
)

// FocusController selects and reads the focused killmail.
type FocusController interface {
	Focus(ctx context.Context, id int64)
	Unfocus(ctx context.Context, id int64)
	Focused(ctx context.Context) types.Focus
}

// FocusHandler handles focus requests.
type FocusHandler struct {
	deps FocusController
}

// NewFocusHandler creates a new focus handler.
func NewFocusHandler(deps FocusController) *FocusHandler {
	return &FocusHandler{deps: deps}
}

// HandleGet handles GET /focus.
func (h *FocusHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Focused(r.Context()))
}

// HandleFocus handles PUT /focus/{id}. An unknown id clears the focus.
func (h *FocusHandler) HandleFocus(w http.ResponseWriter, r *http.Request) {
	id, err := killmailID(r, "api.focus.put")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.deps.Focus(r.Context(), id)
	writeJSON(w, http.StatusOK, h.deps.Focused(r.Context()))
}

// HandleUnfocus handles DELETE /focus/{id}. Only the focused id is cleared.
func (h *FocusHandler) HandleUnfocus(w http.ResponseWriter, r *http.Request) {
	id, err := killmailID(r, "api.focus.delete")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.deps.Unfocus(r.Context(), id)
	writeJSON(w, http.StatusOK, h.deps.Focused(r.Context()))
}
