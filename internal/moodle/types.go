package moodle

import (
	"context"
	"fmt"
	"time"
)

// Participant is one enrolled student of an assignment.
type Participant struct {
	ID       int    `json:"id"`
	FullName string `json:"fullname"`
}

// Assignment is one activity of a course as listed by the upstream service.
type Assignment struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Due    int64  `json:"duedate"`
	CMID   int    `json:"cmid"`
	Course int    `json:"course"`
}

// SubmissionStatus is the submission/grading metadata of one student on one
// assignment, used by the dates extension.
type SubmissionStatus struct {
	Status        string
	GradingStatus string
	SubmittedAt   time.Time
	GradedAt      time.Time
}

// UpstreamError is a structured error object returned by the webservice in
// place of a payload. It is distinguishable from a genuinely empty result.
type UpstreamError struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error %s (%s): %s", e.Exception, e.ErrorCode, e.Message)
}

// Client is the set of webservice calls the reconciliation engine drives.
// Each call is a single blocking round trip with no retry; the caller decides
// how to recover.
type Client interface {
	ListParticipants(ctx context.Context, assignmentID int) ([]Participant, error)
	FetchGrades(ctx context.Context, assignmentID int) (map[int]string, error)
	FetchFeedback(ctx context.Context, assignmentID, userID int) (string, error)
	FetchSubmissionStatus(ctx context.Context, assignmentID, userID int) (*SubmissionStatus, error)
	FetchAssignments(ctx context.Context, courseID int) ([]Assignment, error)
}
