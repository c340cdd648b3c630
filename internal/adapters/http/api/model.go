package api

import (
	"net/http"
	"time"

	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/errs"
)

// ModelHandler describes the served model.
type ModelHandler struct {
	deps ModelDependencies
}

// NewModelHandler creates a new model handler.
func NewModelHandler(deps ModelDependencies) *ModelHandler {
	return &ModelHandler{deps: deps}
}

type modelResponse struct {
	ID          string                `json:"id"`
	CreatedAt   time.Time             `json:"created_at"`
	Algorithm   string                `json:"algorithm"`
	Features    []string              `json:"features"`
	Fingerprint string                `json:"fingerprint"`
	Evaluation  classifier.Evaluation `json:"evaluation"`
}

// HandleModel handles GET /model requests.
func (h *ModelHandler) HandleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", errs.NewKind("api.model", ErrMethodNotAllowed))
		return
	}
	m, err := h.deps.CurrentModel(r.Context())
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelResponse{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		Algorithm:   m.Pipeline.Model.Algorithm(),
		Features:    m.Features,
		Fingerprint: m.Fingerprint,
		Evaluation:  m.Evaluation,
	})
}
