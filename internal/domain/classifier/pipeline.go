package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Pipeline bundles the optional scaler with the fitted classifier so that
// inference never reconstructs preprocessing state separately.
type Pipeline struct {
	Scaler *Scaler
	Model  Classifier
}

// Transform applies the scaler, if any, to a raw row.
func (p *Pipeline) Transform(row []float64) ([]float64, error) {
	if p.Scaler == nil {
		return row, nil
	}
	return p.Scaler.Transform(row)
}

// PredictProba returns the probability of class 1 for a raw row.
func (p *Pipeline) PredictProba(row []float64) (float64, error) {
	if p.Model == nil {
		return 0, ErrNotTrained
	}
	x, err := p.Transform(row)
	if err != nil {
		return 0, err
	}
	return p.Model.PredictProba(x)
}

// Predict returns the class and probability of class 1 for a raw row.
func (p *Pipeline) Predict(row []float64) (int, float64, error) {
	proba, err := p.PredictProba(row)
	if err != nil {
		return 0, 0, err
	}
	return classOf(proba), proba, nil
}

// FeatureImportances returns the model's importances, or nil when the
// classifier cannot rank features.
func (p *Pipeline) FeatureImportances() []float64 {
	if fi, ok := p.Model.(FeatureImporter); ok {
		return fi.FeatureImportances()
	}
	return nil
}

type pipelineJSON struct {
	Scaler    *Scaler         `json:"scaler,omitempty"`
	Algorithm string          `json:"algorithm"`
	Model     json.RawMessage `json:"model"`
}

// MarshalJSON records the algorithm name next to the model state.
func (p Pipeline) MarshalJSON() ([]byte, error) {
	if p.Model == nil {
		return nil, ErrNotTrained
	}
	raw, err := json.Marshal(p.Model)
	if err != nil {
		return nil, err
	}
	return json.Marshal(pipelineJSON{Scaler: p.Scaler, Algorithm: p.Model.Algorithm(), Model: raw})
}

// UnmarshalJSON restores the concrete classifier named in the payload.
func (p *Pipeline) UnmarshalJSON(data []byte) error {
	var payload pipelineJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	model, err := New(payload.Algorithm)
	if err != nil {
		return err
	}
	if len(payload.Model) == 0 {
		return errors.New("model payload missing")
	}
	if err := json.Unmarshal(payload.Model, model); err != nil {
		return fmt.Errorf("decode %s: %w", payload.Algorithm, err)
	}
	p.Scaler = payload.Scaler
	p.Model = model
	return nil
}
