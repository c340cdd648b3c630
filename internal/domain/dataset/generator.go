// Package dataset generates synthetic student performance records.
package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/okian/edupredict/internal/domain/errs"
	"github.com/okian/edupredict/internal/domain/model"
	"github.com/okian/edupredict/internal/domain/outcome"
)

// Generation ranges (inclusive).
const (
	AttendanceMin      = 40
	AttendanceMax      = 100
	StudyHoursMin      = 0.5
	StudyHoursMax      = 8.0
	PreviousMarksMin   = 30
	PreviousMarksMax   = 100
	AssignmentScoreMin = 30
	AssignmentScoreMax = 100

	// IDPrefix and IDWidth shape identifiers like STU0001.
	IDPrefix = "STU"
	IDWidth  = 4
)

// Generator produces records using an explicit random source.
type Generator struct {
	rng     *rand.Rand
	outcome *outcome.Model
}

// NewGenerator returns a Generator. The same rng feeds both feature draws
// and outcome labelling.
func NewGenerator(rng *rand.Rand, opts ...outcome.Option) *Generator {
	return &Generator{
		rng:     rng,
		outcome: outcome.New(rng, opts...),
	}
}

// Generate returns count records in identifier order. A count of zero
// yields an empty slice.
func (g *Generator) Generate(count int) ([]model.Record, error) {
	const op = "dataset.generate"
	if count < 0 {
		return nil, errs.WrapKind(op, errs.ErrValidation, fmt.Errorf("count must be >= 0, got %d", count))
	}

	records := make([]model.Record, 0, count)
	for i := 1; i <= count; i++ {
		records = append(records, g.next(i))
	}
	return records, nil
}

func (g *Generator) next(ordinal int) model.Record {
	attendance := intBetween(g.rng, AttendanceMin, AttendanceMax)
	studyHours := roundTenth(StudyHoursMin + g.rng.Float64()*(StudyHoursMax-StudyHoursMin))
	previousMarks := intBetween(g.rng, PreviousMarksMin, PreviousMarksMax)
	assignmentScore := intBetween(g.rng, AssignmentScoreMin, AssignmentScoreMax)

	result := g.outcome.Label(float64(attendance), studyHours, float64(previousMarks), float64(assignmentScore))

	return model.Record{
		ID:              FormatID(ordinal),
		Attendance:      attendance,
		StudyHours:      studyHours,
		PreviousMarks:   previousMarks,
		AssignmentScore: assignmentScore,
		Result:          result,
	}
}

// FormatID renders an ordinal as a fixed-width identifier.
func FormatID(ordinal int) string {
	return fmt.Sprintf("%s%0*d", IDPrefix, IDWidth, ordinal)
}

func intBetween(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
