package moodle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

const (
	fnListParticipants = "mod_assign_list_participants"
	fnGetGrades        = "mod_assign_get_grades"
	fnSubmissionStatus = "mod_assign_get_submission_status"
	fnGetAssignments   = "mod_assign_get_assignments"

	// List-participants defaults: all groups, no filter, enrolled users only.
	defaultGroupID      = "0"
	defaultFilter       = ""
	includeEnrolments   = "1"
	feedbackCommentType = "comments"
)

type WSClientOption func(*WSClient)

// WSClient issues form-encoded POST calls against the webservice REST endpoint.
type WSClient struct {
	endpoint string
	token    string
	http     *http.Client
}

func NewWSClient(cfg Config, opts ...WSClientOption) (*WSClient, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	client := &WSClient{
		endpoint: cfg.BaseURL,
		token:    cfg.Token,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func WithHttpClient(httpClient *http.Client) WSClientOption {
	return func(client *WSClient) {
		client.http = httpClient
	}
}

func (c *WSClient) ListParticipants(ctx context.Context, assignmentID int) ([]Participant, error) {
	params := url.Values{}
	params.Set("assignid", strconv.Itoa(assignmentID))
	params.Set("groupid", defaultGroupID)
	params.Set("filter", defaultFilter)
	params.Set("includeenrolments", includeEnrolments)

	body, err := c.call(ctx, fnListParticipants, params)
	if err != nil {
		return nil, err
	}

	// The service answers with either a bare user array or an object wrapping
	// a "users" array, depending on version.
	var users []Participant
	if err := json.Unmarshal(body, &users); err == nil {
		return users, nil
	}

	var wrapped struct {
		Users []Participant `json:"users"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return wrapped.Users, nil
}

func (c *WSClient) FetchGrades(ctx context.Context, assignmentID int) (map[int]string, error) {
	params := url.Values{}
	params.Set("assignmentids[0]", strconv.Itoa(assignmentID))

	body, err := c.call(ctx, fnGetGrades, params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Assignments []struct {
			Grades []struct {
				UserID int `json:"userid"`
				Grade  any `json:"grade"`
			} `json:"grades"`
		} `json:"assignments"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode grades: %w", err)
	}

	grades := make(map[int]string)
	if len(resp.Assignments) > 0 {
		for _, g := range resp.Assignments[0].Grades {
			grades[g.UserID] = renderGrade(g.Grade)
		}
	}
	return grades, nil
}

func (c *WSClient) FetchFeedback(ctx context.Context, assignmentID, userID int) (string, error) {
	resp, err := c.submissionStatus(ctx, assignmentID, userID)
	if err != nil {
		return "", err
	}

	for _, plugin := range resp.Feedback.Plugins {
		if plugin.Type != feedbackCommentType {
			continue
		}
		if len(plugin.EditorFields) > 0 {
			return plugin.EditorFields[0].Text, nil
		}
	}
	return "", nil
}

func (c *WSClient) FetchSubmissionStatus(ctx context.Context, assignmentID, userID int) (*SubmissionStatus, error) {
	resp, err := c.submissionStatus(ctx, assignmentID, userID)
	if err != nil {
		return nil, err
	}

	status := &SubmissionStatus{
		Status:        resp.LastAttempt.Submission.Status,
		GradingStatus: resp.LastAttempt.GradingStatus,
	}
	if resp.LastAttempt.Submission.TimeModified > 0 {
		status.SubmittedAt = time.Unix(resp.LastAttempt.Submission.TimeModified, 0).UTC()
	}
	if resp.Feedback.Grade.GradedDate > 0 {
		status.GradedAt = time.Unix(resp.Feedback.Grade.GradedDate, 0).UTC()
	}
	return status, nil
}

func (c *WSClient) FetchAssignments(ctx context.Context, courseID int) ([]Assignment, error) {
	params := url.Values{}
	params.Set("courseids[0]", strconv.Itoa(courseID))

	body, err := c.call(ctx, fnGetAssignments, params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Courses []struct {
			Assignments []Assignment `json:"assignments"`
		} `json:"courses"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode assignments: %w", err)
	}

	var assignments []Assignment
	for _, course := range resp.Courses {
		assignments = append(assignments, course.Assignments...)
	}
	return assignments, nil
}

// AssignmentName resolves a single assignment name via FetchAssignments.
// Unknown ids resolve to "".
func (c *WSClient) AssignmentName(ctx context.Context, courseID, assignmentID int) (string, error) {
	assignments, err := c.FetchAssignments(ctx, courseID)
	if err != nil {
		return "", err
	}
	for _, a := range assignments {
		if a.ID == assignmentID {
			return a.Name, nil
		}
	}
	return "", nil
}

type wsSubmissionStatus struct {
	LastAttempt struct {
		GradingStatus string `json:"gradingstatus"`
		Submission    struct {
			Status       string `json:"status"`
			TimeModified int64  `json:"timemodified"`
		} `json:"submission"`
	} `json:"lastattempt"`
	Feedback struct {
		Grade struct {
			Grade      any   `json:"grade"`
			GradedDate int64 `json:"gradeddate"`
		} `json:"grade"`
		Plugins []struct {
			Type         string `json:"type"`
			EditorFields []struct {
				Text string `json:"text"`
			} `json:"editorfields"`
		} `json:"plugins"`
	} `json:"feedback"`
}

func (c *WSClient) submissionStatus(ctx context.Context, assignmentID, userID int) (*wsSubmissionStatus, error) {
	params := url.Values{}
	params.Set("assignid", strconv.Itoa(assignmentID))
	params.Set("userid", strconv.Itoa(userID))
	params.Set("groupid", defaultGroupID)

	body, err := c.call(ctx, fnSubmissionStatus, params)
	if err != nil {
		return nil, err
	}

	var resp wsSubmissionStatus
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode submission status: %w", err)
	}
	return &resp, nil
}

func (c *WSClient) call(ctx context.Context, wsfunction string, params url.Values) ([]byte, error) {
	form := url.Values{}
	form.Set("wstoken", c.token)
	form.Set("wsfunction", wsfunction)
	form.Set("moodlewsrestformat", "json")
	for key, values := range params {
		for _, v := range values {
			form.Add(key, v)
		}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	// Errors come back as a 200 with a structured error object.
	var wsErr UpstreamError
	if err := json.Unmarshal(body, &wsErr); err == nil && wsErr.Exception != "" {
		return nil, &wsErr
	}

	return body, nil
}

// renderGrade normalizes the loosely typed grade field. Numbers keep their
// shortest decimal form so "14.5" round-trips; strings and sentinels pass
// through untouched; absent grades become "".
func renderGrade(v any) string {
	switch g := v.(type) {
	case nil:
		return ""
	case string:
		return g
	case float64:
		return strconv.FormatFloat(g, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", g)
	}
}
