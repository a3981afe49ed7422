package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecala/gradesync/internal/domain"
	"github.com/ecala/gradesync/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `course_id, assignment_id, course_name, assignment_name, instructor, student_id, student_name, grade, feedback, has_feedback`

type Store struct {
	db     *pgxpool.Pool
	health *HealthChecker
}

func NewStore(pool *ConnectionPool) (*Store, error) {
	return &Store{
		db:     pool.GetConn(),
		health: NewHealthChecker(pool),
	}, nil
}

func (s *Store) Exists(ctx context.Context, courseID, assignmentID int) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM grade_feedback WHERE course_id = $1 AND assignment_id = $2)`,
		courseID, assignmentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return exists, nil
}

func (s *Store) Query(ctx context.Context, courseID, assignmentID int) ([]domain.GradeFeedbackRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM grade_feedback WHERE course_id = $1 AND assignment_id = $2 ORDER BY student_id`,
		recordColumns,
	)

	rows, err := s.db.Query(ctx, query, courseID, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) QueryBulk(ctx context.Context, filter storage.BulkFilter) ([]domain.GradeFeedbackRecord, error) {
	var conditions []string
	var args []interface{}

	if len(filter.CourseIDs) > 0 {
		args = append(args, filter.CourseIDs)
		conditions = append(conditions, fmt.Sprintf("course_id = ANY($%d)", len(args)))
	}
	if filter.Instructor != "" {
		args = append(args, filter.Instructor)
		conditions = append(conditions, fmt.Sprintf("instructor = $%d", len(args)))
	}
	if filter.CourseName != "" {
		args = append(args, filter.CourseName)
		conditions = append(conditions, fmt.Sprintf("course_name = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM grade_feedback`, recordColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY course_id, assignment_id, student_id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records in bulk: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) Upsert(ctx context.Context, records []domain.GradeFeedbackRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	cmd := fmt.Sprintf(`
		INSERT INTO grade_feedback (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (course_id, assignment_id, student_id) DO UPDATE SET
			course_name = EXCLUDED.course_name,
			assignment_name = EXCLUDED.assignment_name,
			instructor = EXCLUDED.instructor,
			student_name = EXCLUDED.student_name,
			grade = EXCLUDED.grade,
			feedback = EXCLUDED.feedback,
			has_feedback = EXCLUDED.has_feedback
	`, recordColumns)

	for _, r := range records {
		batch.Queue(cmd,
			r.CourseID,
			r.AssignmentID,
			r.CourseName,
			r.AssignmentName,
			r.Instructor,
			r.StudentID,
			r.StudentName,
			r.Grade,
			r.Feedback,
			r.HasFeedback,
		)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range records {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("failed to upsert record: %w", err)
		}
		written++
	}
	return written, nil
}

func (s *Store) Healthy(ctx context.Context) bool {
	return s.health.Healthy(ctx)
}

func scanRecords(rows pgx.Rows) ([]domain.GradeFeedbackRecord, error) {
	var records []domain.GradeFeedbackRecord
	for rows.Next() {
		var r domain.GradeFeedbackRecord
		if err := rows.Scan(
			&r.CourseID,
			&r.AssignmentID,
			&r.CourseName,
			&r.AssignmentName,
			&r.Instructor,
			&r.StudentID,
			&r.StudentName,
			&r.Grade,
			&r.Feedback,
			&r.HasFeedback,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}
