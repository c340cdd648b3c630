// Package repository persists served predictions so they can be listed per
// student.
package repository

import (
	"context"
	"time"
)

// Entry is one stored prediction.
type Entry struct {
	ID              int64     `json:"id"`
	StudentID       string    `json:"student_id,omitempty"`
	ModelID         string    `json:"model_id"`
	Attendance      float64   `json:"attendance"`
	StudyHours      float64   `json:"study_hours"`
	PreviousMarks   float64   `json:"previous_marks"`
	AssignmentScore float64   `json:"assignment_score"`
	Result          string    `json:"result"`
	Probability     float64   `json:"probability"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store provides read/write access to the prediction history.
type Store interface {
	// Save appends e and returns its assigned ID. CreatedAt is stamped when zero.
	Save(ctx context.Context, e Entry) (int64, error)

	// History returns a student's predictions, newest first.
	// Returns ErrNotFound if the student has none.
	History(ctx context.Context, studentID string, limit int) ([]Entry, error)

	// Recent returns the latest predictions across all students, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Count returns the number of stored predictions.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying database.
	Close() error
}
