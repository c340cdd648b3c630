package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/predict"
	"github.com/okian/edupredict/internal/domain/schema"
)

// maxBodyBytes caps POST /predict bodies.
const maxBodyBytes = 1 << 16

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles POST /predict requests. The body is a JSON object
// keyed by feature keys, with optional student_id and request_id. The
// Idempotency-Key header is used when request_id is absent.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", errs.NewKind(op, ErrMethodNotAllowed))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, ErrBadRequest, err))
		return
	}

	v, err := schema.FromJSON(body)
	if err != nil {
		writeKindError(w, err)
		return
	}
	var meta struct {
		StudentID json.RawMessage `json:"student_id"`
		RequestID json.RawMessage `json:"request_id"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, ErrBadRequest, err))
		return
	}
	req := predict.Request{Features: v}
	if req.StudentID, err = metaString("student_id", meta.StudentID); err != nil {
		writeKindError(w, err)
		return
	}
	if req.RequestID, err = metaString("request_id", meta.RequestID); err != nil {
		writeKindError(w, err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	served, err := h.deps.Predict(r.Context(), req)
	if err != nil {
		writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, served)
}

// metaString reads an optional string member. Absent and null are empty.
func metaString(field string, raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errs.Invalid(field, string(raw), ErrNotString)
	}
	return strings.TrimSpace(s), nil
}
