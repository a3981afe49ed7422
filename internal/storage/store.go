package storage

import (
	"context"

	"github.com/ecala/gradesync/internal/domain"
)

// BulkFilter is a conjunction of predicates over the durable store. Zero-value
// parts are skipped; CourseIDs uses IN semantics.
type BulkFilter struct {
	CourseIDs  []int
	Instructor string
	CourseName string
}

// Store is the durable record store for grade/feedback records, keyed by
// (course_id, assignment_id, student_id). Upsert replaces the stored record on
// conflict.
type Store interface {
	Exists(ctx context.Context, courseID, assignmentID int) (bool, error)
	Query(ctx context.Context, courseID, assignmentID int) ([]domain.GradeFeedbackRecord, error)
	QueryBulk(ctx context.Context, filter BulkFilter) ([]domain.GradeFeedbackRecord, error)
	Upsert(ctx context.Context, records []domain.GradeFeedbackRecord) (int, error)
	Healthy(ctx context.Context) bool
}

type Type string

const (
	ES    Type = "es"
	PG    Type = "pg"
	InMem Type = "in_mem"
)

type StoreError string

const (
	ErrUnsupportedStore StoreError = "unsupported store type: %s"
)

func (e StoreError) Error() string {
	return string(e)
}
