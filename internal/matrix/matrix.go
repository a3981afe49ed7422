// Package matrix projects flat grade records into a student-by-assignment
// grid, one row per (student, course, instructor) and one column per
// assignment name.
package matrix

import (
	"sort"
	"strings"

	"github.com/ecala/gradesync/internal/domain"
)

type Row struct {
	StudentName string   `json:"student_name"`
	CourseName  string   `json:"course_name"`
	Instructor  string   `json:"instructor"`
	Grades      []string `json:"grades"`
}

// Matrix is the pivoted view. Grades in each row are positional against
// Columns; a cell with no record is the empty string.
type Matrix struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

type rowKey struct {
	student    string
	course     string
	instructor string
}

// Project pivots records into a matrix. Columns are ordered lexicographically
// except that integral-evaluation columns always close the grid, and when the
// same cell appears more than once the first record wins.
func Project(records []domain.GradeFeedbackRecord) *Matrix {
	columnSeen := make(map[string]struct{})
	var columns []string
	cells := make(map[rowKey]map[string]string)
	var keys []rowKey

	for _, r := range records {
		if _, ok := columnSeen[r.AssignmentName]; !ok {
			columnSeen[r.AssignmentName] = struct{}{}
			columns = append(columns, r.AssignmentName)
		}

		key := rowKey{student: r.StudentName, course: r.CourseName, instructor: r.Instructor}
		row, ok := cells[key]
		if !ok {
			row = make(map[string]string)
			cells[key] = row
			keys = append(keys, key)
		}
		if _, ok := row[r.AssignmentName]; !ok {
			row[r.AssignmentName] = r.Grade
		}
	}

	columns = orderColumns(columns)
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.student != b.student {
			return a.student < b.student
		}
		if a.course != b.course {
			return a.course < b.course
		}
		return a.instructor < b.instructor
	})

	m := &Matrix{Columns: columns, Rows: make([]Row, 0, len(keys))}
	for _, key := range keys {
		grades := make([]string, len(columns))
		for i, col := range columns {
			grades[i] = cells[key][col]
		}
		m.Rows = append(m.Rows, Row{
			StudentName: key.student,
			CourseName:  key.course,
			Instructor:  key.instructor,
			Grades:      grades,
		})
	}
	return m
}

// orderColumns sorts assignment names lexicographically, then moves
// integral-evaluation columns to the end keeping their relative order.
func orderColumns(columns []string) []string {
	sort.Strings(columns)

	ordered := make([]string, 0, len(columns))
	var integral []string
	for _, col := range columns {
		if isIntegralEvaluation(col) {
			integral = append(integral, col)
		} else {
			ordered = append(ordered, col)
		}
	}
	return append(ordered, integral...)
}

func isIntegralEvaluation(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "evaluaci") && strings.Contains(lower, "integral")
}
