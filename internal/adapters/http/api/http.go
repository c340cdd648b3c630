// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/edupredict/internal/adapters/repository"
	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/predict"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PredictDependencies
	ModelDependencies
	HistoryDependencies
}

// PredictDependencies classifies one student.
type PredictDependencies interface {
	Predict(ctx context.Context, req predict.Request) (predict.Served, error)
}

// ModelDependencies exposes the currently served artifact.
type ModelDependencies interface {
	CurrentModel(ctx context.Context) (*classifier.Trained, error)
}

// HistoryDependencies reads stored predictions.
type HistoryDependencies interface {
	History(ctx context.Context, studentID string, limit int) ([]repository.Entry, error)
}

// Server wires HTTP routes for the prediction API.
type Server struct {
	healthHandler  *HealthHandler
	predictHandler *PredictHandler
	modelHandler   *ModelHandler
	historyHandler *HistoryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		predictHandler: NewPredictHandler(deps),
		modelHandler:   NewModelHandler(deps),
		historyHandler: NewHistoryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/model", MetricsMiddleware(s.modelHandler.HandleModel, "model"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleHistory, "history"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
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
	field, _ := errs.FieldOf(err)
	writeJSON(w, status, errorResponse{Code: code, Field: field, Message: msg})
}

// writeKindError maps a domain error kind to its HTTP status.
func writeKindError(w http.ResponseWriter, err error) {
	code := errs.KindName(err)
	switch code {
	case "validation", "missing_field":
		writeError(w, http.StatusBadRequest, code, err)
	case "not_found":
		writeError(w, http.StatusNotFound, code, err)
	case "corrupt_artifact":
		writeError(w, http.StatusServiceUnavailable, code, err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
