package domain

// ScopePair identifies one assignment within one course.
type ScopePair struct {
	CourseID     int `json:"course_id"`
	AssignmentID int `json:"assignment_id"`
}

// ScopeRequest is one assignment the reconciliation engine must resolve,
// carrying the display fields that live fetches stamp onto new records.
type ScopeRequest struct {
	CourseID       int    `json:"course_id"`
	AssignmentID   int    `json:"assignment_id"`
	AssignmentName string `json:"assignment_name"`
	CourseName     string `json:"course_name"`
	Instructor     string `json:"instructor"`
}

func (s ScopeRequest) Pair() ScopePair {
	return ScopePair{CourseID: s.CourseID, AssignmentID: s.AssignmentID}
}

// CourseIDs returns the distinct course ids across the requested scopes,
// in first-seen order.
func CourseIDs(scopes []ScopeRequest) []int {
	seen := make(map[int]struct{}, len(scopes))
	var ids []int
	for _, s := range scopes {
		if _, ok := seen[s.CourseID]; ok {
			continue
		}
		seen[s.CourseID] = struct{}{}
		ids = append(ids, s.CourseID)
	}
	return ids
}
