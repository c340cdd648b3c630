// Package outcome implements the noisy generative rule that assigns a
// Pass/Fail label to a synthetic student.
package outcome

import (
	"math"
	"math/rand"

	"github.com/okian/edupredict/internal/domain/model"
)

// Weights of the performance score. Study hours are scaled by 10 before
// their 0.30 weight so they land on the same magnitude as percentages.
const (
	AttendanceWeight      = 0.20
	StudyHoursWeight      = 10 * 0.30
	PreviousMarksWeight   = 0.30
	AssignmentScoreWeight = 0.20

	scoreOffset = 50.0
	scoreScale  = 100.0
)

// Default noise and clamp configuration.
const (
	defaultJitter         = 0.1
	defaultMinProbability = 0.1
	defaultMaxProbability = 0.9
)

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithJitter sets the half-width of the uniform noise added to the probability.
func WithJitter(jitter float64) Option {
	return func(m *Model) {
		if jitter >= 0 {
			m.jitter = jitter
		}
	}
}

// WithProbabilityBounds sets the clamp range of the final probability.
func WithProbabilityBounds(lo, hi float64) Option {
	return func(m *Model) {
		if lo >= 0 && hi <= 1 && lo <= hi {
			m.minP = lo
			m.maxP = hi
		}
	}
}

// Model labels students. It is not safe for concurrent use because it
// consumes the supplied random source.
type Model struct {
	rng    *rand.Rand
	jitter float64
	minP   float64
	maxP   float64
}

// New creates a Model drawing from rng.
func New(rng *rand.Rand, opts ...Option) *Model {
	m := &Model{
		rng:    rng,
		jitter: defaultJitter,
		minP:   defaultMinProbability,
		maxP:   defaultMaxProbability,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Score returns the weighted performance score. Any real input is accepted.
func Score(attendance, studyHours, previousMarks, assignmentScore float64) float64 {
	return attendance*AttendanceWeight +
		studyHours*StudyHoursWeight +
		previousMarks*PreviousMarksWeight +
		assignmentScore*AssignmentScoreWeight
}

// BaseProbability maps a score to an unclamped, noise-free probability.
func BaseProbability(score float64) float64 {
	return (score - scoreOffset) / scoreScale
}

// Probability returns the jittered probability of Pass, clamped to the
// model bounds.
func (m *Model) Probability(attendance, studyHours, previousMarks, assignmentScore float64) float64 {
	p := BaseProbability(Score(attendance, studyHours, previousMarks, assignmentScore))
	p += (m.rng.Float64()*2 - 1) * m.jitter
	return math.Max(m.minP, math.Min(m.maxP, p))
}

// Label draws a Pass/Fail outcome. Identical inputs may yield different
// labels across calls.
func (m *Model) Label(attendance, studyHours, previousMarks, assignmentScore float64) model.Result {
	p := m.Probability(attendance, studyHours, previousMarks, assignmentScore)
	if m.rng.Float64() < p {
		return model.Pass
	}
	return model.Fail
}
