package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeHasFeedback(t *testing.T) {
	assert.False(t, ComputeHasFeedback(""))
	assert.False(t, ComputeHasFeedback("   "))
	assert.False(t, ComputeHasFeedback("\n\t"))
	assert.True(t, ComputeHasFeedback("ok"))
	assert.True(t, ComputeHasFeedback("  buen trabajo  "))
}

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	store := GradeFeedbackRecord{CourseID: 1, AssignmentID: 2, StudentID: 3, Grade: "15"}
	cached := GradeFeedbackRecord{CourseID: 1, AssignmentID: 2, StudentID: 3, Grade: "11"}
	other := GradeFeedbackRecord{CourseID: 1, AssignmentID: 2, StudentID: 4, Grade: "18"}

	out := Dedupe([]GradeFeedbackRecord{store, cached, other})

	assert.Equal(t, []GradeFeedbackRecord{store, other}, out)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}

func TestCourseIDs_DistinctInOrder(t *testing.T) {
	scopes := []ScopeRequest{
		{CourseID: 7, AssignmentID: 1},
		{CourseID: 3, AssignmentID: 2},
		{CourseID: 7, AssignmentID: 9},
	}
	assert.Equal(t, []int{7, 3}, CourseIDs(scopes))
}
