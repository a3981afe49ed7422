// Package cache is a content-addressed, CSV-backed fallback for materialized
// result sets. Every write is a full-table read-modify-write: rows under the
// written key are replaced, rows under other keys stay untouched, and the
// whole table is persisted back. A single logical writer at a time is assumed.
package cache

import (
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/ecala/gradesync/internal/domain"
)

// bulkKeyPrefix namespaces bulk-scope identifiers so an individual scope and a
// bulk scope can never hash to the same key.
const bulkKeyPrefix = "bulk_"

var header = []string{
	"cache_key",
	"timestamp",
	"course_id",
	"assignment_id",
	"course_name",
	"assignment_name",
	"instructor",
	"student_id",
	"student_name",
	"grade",
	"feedback",
	"has_feedback",
}

type Cache struct {
	path      string
	keyPrefix string
}

// NewIndividual opens the table holding single-scope entries.
func NewIndividual(path string) *Cache {
	return &Cache{path: path}
}

// NewBulk opens the table holding bulk-scope entries.
func NewBulk(path string) *Cache {
	return &Cache{path: path, keyPrefix: bulkKeyPrefix}
}

// Key derives the stable cache key for a scope identifier. The hash covers the
// identifier string, not its contents, so the key survives process restarts.
func (c *Cache) Key(identifier string) string {
	sum := md5.Sum([]byte(c.keyPrefix + identifier))
	return hex.EncodeToString(sum[:])
}

// PairIdentifier is the canonical identifier of a single (course, assignment) scope.
func PairIdentifier(courseID, assignmentID int) string {
	return fmt.Sprintf("%d_%d", courseID, assignmentID)
}

func (c *Cache) Exists(key string) bool {
	rows, err := c.readAll()
	if err != nil {
		return false
	}
	for _, row := range rows {
		if row.key == key {
			return true
		}
	}
	return false
}

func (c *Cache) Read(key string) ([]domain.GradeFeedbackRecord, error) {
	rows, err := c.readAll()
	if err != nil {
		return nil, err
	}

	var records []domain.GradeFeedbackRecord
	for _, row := range rows {
		if row.key == key {
			records = append(records, row.record)
		}
	}
	return records, nil
}

// Write replaces all rows stored under key with records, then persists the
// whole table. Cost is O(total cache size) per write.
func (c *Cache) Write(key string, records []domain.GradeFeedbackRecord) error {
	rows, err := c.readAll()
	if err != nil {
		return err
	}

	kept := rows[:0]
	for _, row := range rows {
		if row.key != key {
			kept = append(kept, row)
		}
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		kept = append(kept, cacheRow{key: key, timestamp: timestamp, record: r})
	}

	return c.writeAll(kept)
}

// Clear removes the backing table entirely. Operator action only; entries are
// never expired automatically.
func (c *Cache) Clear() error {
	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

type cacheRow struct {
	key       string
	timestamp string
	record    domain.GradeFeedbackRecord
}

func (c *Cache) readAll() ([]cacheRow, error) {
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open cache table: %w", err)
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	lines, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read cache table: %w", err)
	}
	if len(lines) <= 1 {
		return nil, nil
	}

	rows := make([]cacheRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		row, err := parseRow(line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Cache) writeAll(rows []cacheRow) error {
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("failed to create cache table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write cache header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(formatRow(row)); err != nil {
			return fmt.Errorf("failed to write cache row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush cache table: %w", err)
	}
	return f.Sync()
}

func parseRow(line []string) (cacheRow, error) {
	if len(line) != len(header) {
		return cacheRow{}, fmt.Errorf("malformed cache row: expected %d fields, got %d", len(header), len(line))
	}

	courseID, err := strconv.Atoi(line[2])
	if err != nil {
		return cacheRow{}, fmt.Errorf("malformed course_id %q: %w", line[2], err)
	}
	assignmentID, err := strconv.Atoi(line[3])
	if err != nil {
		return cacheRow{}, fmt.Errorf("malformed assignment_id %q: %w", line[3], err)
	}
	studentID, err := strconv.Atoi(line[7])
	if err != nil {
		return cacheRow{}, fmt.Errorf("malformed student_id %q: %w", line[7], err)
	}
	hasFeedback, err := strconv.ParseBool(line[11])
	if err != nil {
		return cacheRow{}, fmt.Errorf("malformed has_feedback %q: %w", line[11], err)
	}

	return cacheRow{
		key:       line[0],
		timestamp: line[1],
		record: domain.GradeFeedbackRecord{
			CourseID:       courseID,
			AssignmentID:   assignmentID,
			CourseName:     line[4],
			AssignmentName: line[5],
			Instructor:     line[6],
			StudentID:      studentID,
			StudentName:    line[8],
			Grade:          line[9],
			Feedback:       line[10],
			HasFeedback:    hasFeedback,
		},
	}, nil
}

func formatRow(row cacheRow) []string {
	r := row.record
	return []string{
		row.key,
		row.timestamp,
		strconv.Itoa(r.CourseID),
		strconv.Itoa(r.AssignmentID),
		r.CourseName,
		r.AssignmentName,
		r.Instructor,
		strconv.Itoa(r.StudentID),
		r.StudentName,
		r.Grade,
		r.Feedback,
		strconv.FormatBool(r.HasFeedback),
	}
}
