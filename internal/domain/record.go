package domain

import "strings"

// GradeFeedbackRecord is one student's result for one assignment.
// The tuple (CourseID, AssignmentID, StudentID) uniquely identifies a record.
type GradeFeedbackRecord struct {
	CourseID       int    `json:"course_id"`
	AssignmentID   int    `json:"assignment_id"`
	CourseName     string `json:"course_name"`
	AssignmentName string `json:"assignment_name"`
	Instructor     string `json:"instructor"`
	StudentID      int    `json:"student_id"`
	StudentName    string `json:"student_name"`
	// Grade is numeric-like text; upstream may return placeholders such as "-",
	// so it is not parsed at this layer.
	Grade       string `json:"grade"`
	Feedback    string `json:"feedback"`
	HasFeedback bool   `json:"has_feedback"`
}

// RecordKey is the natural key of a GradeFeedbackRecord.
type RecordKey struct {
	CourseID     int
	AssignmentID int
	StudentID    int
}

func (r GradeFeedbackRecord) Key() RecordKey {
	return RecordKey{CourseID: r.CourseID, AssignmentID: r.AssignmentID, StudentID: r.StudentID}
}

// ComputeHasFeedback reports whether the feedback text is non-empty once trimmed.
func ComputeHasFeedback(feedback string) bool {
	return len(strings.TrimSpace(feedback)) > 0
}

// Dedupe removes duplicate records by natural key, keeping the first occurrence.
// Callers control precedence by ordering the input (e.g. store rows before
// cached rows).
func Dedupe(records []GradeFeedbackRecord) []GradeFeedbackRecord {
	if len(records) == 0 {
		return records
	}

	seen := make(map[RecordKey]struct{}, len(records))
	out := make([]GradeFeedbackRecord, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.Key()]; ok {
			continue
		}
		seen[r.Key()] = struct{}{}
		out = append(out, r)
	}
	return out
}
