package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/edupredict/internal/adapters/repository"
	"github.com/okian/edupredict/internal/domain/errs"
)

// defaultHistoryLimit applies when ?limit is absent.
const defaultHistoryLimit = 20

// HistoryHandler lists stored predictions.
type HistoryHandler struct {
	deps HistoryDependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// HandleHistory handles GET /history?student_id=X&limit=N requests. Without
// student_id the most recent predictions are returned.
func (h *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.history"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", errs.NewKind(op, ErrMethodNotAllowed))
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, ErrBadRequest, err))
			return
		}
		limit = n
	}

	entries, err := h.deps.History(r.Context(), r.URL.Query().Get("student_id"), limit)
	switch {
	case errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "limit_exceeded", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case err != nil:
		writeKindError(w, err)
	default:
		if entries == nil {
			entries = []repository.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
