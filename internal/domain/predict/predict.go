// Package predict classifies single feature vectors with a trained model.
package predict

import (
	"fmt"

	"github.com/okian/edupredict/internal/domain/classifier"
	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/schema"
)

// Prediction is the outcome of one inference. Probability is the model's
// estimate that the student passes.
type Prediction struct {
	Result      model.Result `json:"result"`
	Probability float64      `json:"probability"`
}

// Request asks for one prediction. StudentID and RequestID are optional;
// a repeated RequestID is served again but recorded once.
type Request struct {
	StudentID string
	RequestID string
	Features  schema.Vector
}

// Served is a prediction tied to the model and student it was made for.
type Served struct {
	Prediction
	ModelID   string `json:"model_id"`
	StudentID string `json:"student_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Predict classifies v. The pipeline's scaler, if any, is applied first.
// A probability of exactly one half maps to Fail.
func Predict(m *classifier.Trained, v schema.Vector) (Prediction, error) {
	const op = "predict.predict"
	if !m.Ready() {
		return Prediction{}, errs.NewKind(op, errs.ErrNotFound)
	}
	if len(v) != schema.Len() {
		return Prediction{}, errs.WrapKind(op, errs.ErrValidation,
			fmt.Errorf("expected %d features, got %d", schema.Len(), len(v)))
	}
	class, proba, err := m.Pipeline.Predict(v)
	if err != nil {
		return Prediction{}, errs.WrapKind(op, errs.ErrCorruptArtifact, err)
	}
	return Prediction{Result: model.ResultFromClass(class), Probability: proba}, nil
}

// ParsePositional reads the four command-line values in schema order.
func ParsePositional(args []string) (schema.Vector, error) {
	return schema.FromPositional(args)
}

// ParseJSON reads a JSON object keyed by feature keys.
func ParseJSON(text string) (schema.Vector, error) {
	return schema.FromJSON([]byte(text))
}

// ParseArgs accepts either a single JSON object argument or positional values.
func ParseArgs(args []string) (schema.Vector, error) {
	if len(args) == 1 && schema.LooksLikeJSON(args[0]) {
		return ParseJSON(args[0])
	}
	return ParsePositional(args)
}
