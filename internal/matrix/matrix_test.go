package matrix

import (
	"testing"

	"github.com/ecala/gradesync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(student, assignment, grade string) domain.GradeFeedbackRecord {
	return domain.GradeFeedbackRecord{
		CourseID:       100,
		AssignmentID:   1,
		CourseName:     "Matemática I",
		AssignmentName: assignment,
		Instructor:     "R. Flores",
		StudentName:    student,
		Grade:          grade,
	}
}

func TestProject_IntegralEvaluationColumnsGoLast(t *testing.T) {
	m := Project([]domain.GradeFeedbackRecord{
		record("Ana", "Evaluación Integral", "18"),
		record("Ana", "Quiz 1", "14"),
		record("Ana", "Práctica 2", "12"),
	})

	assert.Equal(t, []string{"Práctica 2", "Quiz 1", "Evaluación Integral"}, m.Columns)
	require.Len(t, m.Rows, 1)
	assert.Equal(t, []string{"12", "14", "18"}, m.Rows[0].Grades)
}

func TestProject_MissingCellsAreEmpty(t *testing.T) {
	m := Project([]domain.GradeFeedbackRecord{
		record("Ana", "Quiz 1", "14"),
		record("Ana", "Quiz 2", "16"),
		record("Luis", "Quiz 2", "11"),
	})

	assert.Equal(t, []string{"Quiz 1", "Quiz 2"}, m.Columns)
	require.Len(t, m.Rows, 2)
	assert.Equal(t, "Ana", m.Rows[0].StudentName)
	assert.Equal(t, []string{"14", "16"}, m.Rows[0].Grades)
	assert.Equal(t, "Luis", m.Rows[1].StudentName)
	assert.Equal(t, []string{"", "11"}, m.Rows[1].Grades)
}

func TestProject_FirstRecordWinsPerCell(t *testing.T) {
	m := Project([]domain.GradeFeedbackRecord{
		record("Ana", "Quiz 1", "14"),
		record("Ana", "Quiz 1", "19"),
	})

	require.Len(t, m.Rows, 1)
	assert.Equal(t, []string{"14"}, m.Rows[0].Grades)
}

func TestProject_RowsKeyedByStudentCourseInstructor(t *testing.T) {
	a := record("Ana", "Quiz 1", "14")
	b := record("Ana", "Quiz 1", "17")
	b.CourseName = "Física I"

	m := Project([]domain.GradeFeedbackRecord{a, b})

	require.Len(t, m.Rows, 2, "same student in two courses stays two rows")
	assert.Equal(t, "Física I", m.Rows[0].CourseName)
	assert.Equal(t, "Matemática I", m.Rows[1].CourseName)
}

func TestProject_Empty(t *testing.T) {
	m := Project(nil)
	assert.Empty(t, m.Columns)
	assert.Empty(t, m.Rows)
}
