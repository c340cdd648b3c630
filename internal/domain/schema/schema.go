// Package schema is the single ordered feature contract shared by training
// and inference. Nothing else in the module decides column order.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/okian/edupredict/internal/domain/model"
)

// Kind is the semantic type of a feature.
type Kind string

// Feature kinds.
const (
	Number Kind = "number"
)

// Feature describes one position of a Vector.
type Feature struct {
	Name   string // canonical name, e.g. Attendance
	Column string // dataset CSV header
	Key    string // request field name
	Kind   Kind
}

// Vector is a fixed-order numeric tuple in schema order.
type Vector []float64

var features = []Feature{
	{Name: "Attendance", Column: "Attendance (%)", Key: "attendance", Kind: Number},
	{Name: "StudyHours", Column: "Study Hours per Day", Key: "study_hours", Kind: Number},
	{Name: "PreviousMarks", Column: "Previous Marks (%)", Key: "previous_marks", Kind: Number},
	{Name: "AssignmentScore", Column: "Assignment Score", Key: "assignment_score", Kind: Number},
}

// Dataset columns that are not features.
const (
	IDColumn     = "StudentID"
	ResultColumn = "Result"
)

// Features returns a copy of the ordered feature list.
func Features() []Feature {
	out := make([]Feature, len(features))
	copy(out, features)
	return out
}

// Len is the number of features in a Vector.
func Len() int { return len(features) }

// Names returns canonical feature names in order.
func Names() []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = f.Name
	}
	return out
}

// Keys returns request field names in order.
func Keys() []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = f.Key
	}
	return out
}

// Header returns the full dataset CSV header.
func Header() []string {
	out := make([]string, 0, len(features)+2)
	out = append(out, IDColumn)
	for _, f := range features {
		out = append(out, f.Column)
	}
	return append(out, ResultColumn)
}

// Fingerprint identifies the schema layout. Artifacts carry it so a model
// trained against a different ordering is refused at load time.
func Fingerprint() string {
	var b strings.Builder
	for _, f := range features {
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(string(f.Kind))
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// FromRecord builds the feature vector of a stored record.
func FromRecord(r model.Record) Vector {
	return Vector{
		float64(r.Attendance),
		r.StudyHours,
		float64(r.PreviousMarks),
		float64(r.AssignmentScore),
	}
}

// FromRecords builds vectors and class targets for a record set.
func FromRecords(records []model.Record) ([]Vector, []int) {
	x := make([]Vector, len(records))
	y := make([]int, len(records))
	for i, r := range records {
		x[i] = FromRecord(r)
		y[i] = r.Result.Class()
	}
	return x, y
}
