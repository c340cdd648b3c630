package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/edupredict/internal/adapters/http/api"
	"github.com/okian/edupredict/internal/adapters/repository"
	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/predict"
	"github.com/okian/edupredict/internal/domain/schema"
)

// Mock implementations for testing
type mockDependencies struct {
	predictErr error
	lastReq    predict.Request
	model      *classifier.Trained
	modelErr   error
	history    []repository.Entry
	historyErr error
	lastLimit  int
}

func (m *mockDependencies) Predict(_ context.Context, req predict.Request) (predict.Served, error) {
	m.lastReq = req
	if m.predictErr != nil {
		return predict.Served{}, m.predictErr
	}
	return predict.Served{
		Prediction: predict.Prediction{Result: model.Pass, Probability: 0.75},
		ModelID:    "model-1",
		StudentID:  req.StudentID,
		RequestID:  req.RequestID,
	}, nil
}

func (m *mockDependencies) CurrentModel(context.Context) (*classifier.Trained, error) {
	return m.model, m.modelErr
}

func (m *mockDependencies) History(_ context.Context, _ string, limit int) ([]repository.Entry, error) {
	m.lastLimit = limit
	return m.history, m.historyErr
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestHealth(t *testing.T) {
	Convey("Given a registered server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("When /healthz is requested", func() {
			w := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then it serves the metrics registry", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestPredictEndpoint(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a valid request is posted", func() {
			w := do(mux, http.MethodPost, "/predict",
				`{"student_id":" STU0001 ","attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`)

			Convey("Then the prediction is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out["result"], ShouldEqual, "Pass")
				So(out["probability"], ShouldEqual, 0.75)
				So(out["model_id"], ShouldEqual, "model-1")
				So(out["student_id"], ShouldEqual, "STU0001")
			})

			Convey("Then features reach the service in schema order", func() {
				So(deps.lastReq.Features, ShouldResemble, schema.Vector{85, 3.5, 70, 65})
				So(deps.lastReq.StudentID, ShouldEqual, "STU0001")
				So(deps.lastReq.RequestID, ShouldBeEmpty)
			})
		})

		Convey("When a request ID is supplied", func() {
			body := `{"request_id":"r-1","attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`
			w := do(mux, http.MethodPost, "/predict", body)

			Convey("Then it is passed through and echoed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq.RequestID, ShouldEqual, "r-1")
				So(w.Body.String(), ShouldContainSubstring, `"request_id":"r-1"`)
			})
		})

		Convey("When only the Idempotency-Key header is set", func() {
			req := httptest.NewRequest(http.MethodPost, "/predict",
				strings.NewReader(`{"attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`))
			req.Header.Set("Idempotency-Key", "hdr-7")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then the header becomes the request ID", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq.RequestID, ShouldEqual, "hdr-7")
			})
		})

		Convey("When a field is missing", func() {
			w := do(mux, http.MethodPost, "/predict", `{"attendance":85,"previous_marks":70,"assignment_score":65}`)

			Convey("Then the response names it", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "missing_field")
				So(body["field"], ShouldEqual, "study_hours")
			})
		})

		Convey("When a field is not numeric", func() {
			w := do(mux, http.MethodPost, "/predict",
				`{"attendance":"abc","study_hours":3.5,"previous_marks":70,"assignment_score":65}`)

			Convey("Then it is a validation error", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "validation")
				So(body["field"], ShouldEqual, "attendance")
			})
		})

		Convey("When the student ID is a number", func() {
			w := do(mux, http.MethodPost, "/predict",
				`{"student_id":42,"attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`)

			Convey("Then it is rejected instead of dropped", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "validation")
				So(body["field"], ShouldEqual, "student_id")
				So(body["message"], ShouldContainSubstring, "must be a string")
				So(deps.lastReq.Features, ShouldBeNil)
			})
		})

		Convey("When the request ID is an object", func() {
			w := do(mux, http.MethodPost, "/predict",
				`{"request_id":{"id":1},"attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`)

			Convey("Then the response names it", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["field"], ShouldEqual, "request_id")
			})
		})

		Convey("When the student ID is null", func() {
			w := do(mux, http.MethodPost, "/predict",
				`{"student_id":null,"attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`)

			Convey("Then it is treated as absent", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq.StudentID, ShouldBeEmpty)
			})
		})

		Convey("When text follows the JSON object", func() {
			w := do(mux, http.MethodPost, "/predict",
				`{"attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65} not json`)

			Convey("Then it is rejected as malformed", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "malformed JSON")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/predict", `attendance=85`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "malformed JSON")
			})
		})

		Convey("When no model is available", func() {
			deps.predictErr = errs.WrapKind("predict", errs.ErrNotFound, errors.New("models/m.gz"))
			w := do(mux, http.MethodPost, "/predict",
				`{"attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`)

			Convey("Then the status is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the model is corrupt", func() {
			deps.predictErr = errs.NewKind("predict", errs.ErrCorruptArtifact)
			w := do(mux, http.MethodPost, "/predict",
				`{"attendance":85,"study_hours":3.5,"previous_marks":70,"assignment_score":65}`)

			Convey("Then the service is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the method is wrong", func() {
			w := do(mux, http.MethodGet, "/predict", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestModelEndpoint(t *testing.T) {
	Convey("Given a server with a loaded model", t, func() {
		deps := &mockDependencies{model: &classifier.Trained{
			ID:          "model-1",
			CreatedAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Features:    schema.Names(),
			Fingerprint: schema.Fingerprint(),
			Pipeline:    classifier.Pipeline{Model: classifier.NewRandomForest()},
			Evaluation:  classifier.Evaluation{Accuracy: 0.9, TrainSize: 750, TestSize: 250},
		}}
		mux := newMux(deps)

		Convey("When /model is requested", func() {
			w := do(mux, http.MethodGet, "/model", "")

			Convey("Then the model is described", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out["id"], ShouldEqual, "model-1")
				So(out["algorithm"], ShouldEqual, classifier.AlgorithmRandomForest)
				So(out["features"], ShouldHaveLength, schema.Len())
			})
		})

		Convey("When no model exists", func() {
			deps.model, deps.modelErr = nil, errs.NewKind("model", errs.ErrNotFound)
			w := do(mux, http.MethodGet, "/model", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHistoryEndpoint(t *testing.T) {
	Convey("Given a server with stored predictions", t, func() {
		deps := &mockDependencies{history: []repository.Entry{
			{ID: 2, StudentID: "STU0001", Result: "Pass", Probability: 0.6},
			{ID: 1, StudentID: "STU0001", Result: "Fail", Probability: 0.2},
		}}
		mux := newMux(deps)

		Convey("When history is requested with a limit", func() {
			w := do(mux, http.MethodGet, "/history?student_id=STU0001&limit=5", "")

			Convey("Then entries are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []repository.Entry
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out, ShouldHaveLength, 2)
				So(deps.lastLimit, ShouldEqual, 5)
			})
		})

		Convey("When no limit is given", func() {
			do(mux, http.MethodGet, "/history", "")
			So(deps.lastLimit, ShouldEqual, 20)
		})

		Convey("When the history is empty", func() {
			deps.history = nil
			w := do(mux, http.MethodGet, "/history", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When the limit is not a number", func() {
			w := do(mux, http.MethodGet, "/history?limit=ten", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the store rejects the limit", func() {
			deps.historyErr = fmt.Errorf("%w: 5000", repository.ErrInvalidLimit)
			w := do(mux, http.MethodGet, "/history?limit=5000", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When the student is unknown", func() {
			deps.historyErr = repository.ErrNotFound
			w := do(mux, http.MethodGet, "/history?student_id=STU9999", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the method is wrong", func() {
			w := do(mux, http.MethodDelete, "/history", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}
