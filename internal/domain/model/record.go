// Package model contains domain models passed between layers.
package model

import "fmt"

// Result is the categorical outcome of a student record.
type Result string

// Supported results. The contract is binary.
const (
	Pass Result = "Pass"
	Fail Result = "Fail"
)

// Class values used by classifiers.
const (
	ClassFail = 0
	ClassPass = 1
)

// ParseResult converts text to a Result.
func ParseResult(s string) (Result, error) {
	switch Result(s) {
	case Pass:
		return Pass, nil
	case Fail:
		return Fail, nil
	default:
		return "", fmt.Errorf("unknown result %q", s)
	}
}

// Class maps Pass to 1 and everything else to 0.
func (r Result) Class() int {
	if r == Pass {
		return ClassPass
	}
	return ClassFail
}

// ResultFromClass maps 1 to Pass and any other class to Fail.
func ResultFromClass(class int) Result {
	if class == ClassPass {
		return Pass
	}
	return Fail
}

// Record is one synthetic student row. Records are immutable once written.
type Record struct {
	ID              string  // STU0001-style ordinal identifier
	Attendance      int     // percent, 0-100
	StudyHours      float64 // hours per day
	PreviousMarks   int     // percent, 0-100
	AssignmentScore int     // 0-100
	Result          Result
}
