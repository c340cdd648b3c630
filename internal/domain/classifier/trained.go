package classifier

import "time"

// Evaluation is the held-out summary stored alongside a trained pipeline.
type Evaluation struct {
	Accuracy    float64            `json:"accuracy"`
	TrainSize   int                `json:"train_size"`
	TestSize    int                `json:"test_size"`
	Importances map[string]float64 `json:"importances,omitempty"`
}

// Trained is a fitted pipeline with its identity and the feature schema it
// was fitted against. It is immutable once built and safe for concurrent
// reads.
type Trained struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	Features    []string   `json:"features"`
	Fingerprint string     `json:"fingerprint"`
	Pipeline    Pipeline   `json:"pipeline"`
	Evaluation  Evaluation `json:"evaluation"`
}

// Ready reports whether t carries a fitted model.
func (t *Trained) Ready() bool {
	return t != nil && t.Pipeline.Model != nil
}
