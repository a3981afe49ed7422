package extract

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ecala/gradesync/internal/cache"
	"github.com/ecala/gradesync/internal/domain"
	"github.com/ecala/gradesync/internal/moodle"
	"github.com/ecala/gradesync/internal/storage"
	"github.com/ecala/gradesync/internal/storage/in_mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	participants map[int][]moodle.Participant
	grades       map[int]map[int]string
	feedback     map[int]map[int]string
	fail         map[int]error

	participantCalls int
	gradeCalls       int
	feedbackCalls    int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		participants: make(map[int][]moodle.Participant),
		grades:       make(map[int]map[int]string),
		feedback:     make(map[int]map[int]string),
		fail:         make(map[int]error),
	}
}

func (c *fakeClient) totalCalls() int {
	return c.participantCalls + c.gradeCalls + c.feedbackCalls
}

func (c *fakeClient) ListParticipants(ctx context.Context, assignmentID int) ([]moodle.Participant, error) {
	c.participantCalls++
	if err := c.fail[assignmentID]; err != nil {
		return nil, err
	}
	return c.participants[assignmentID], nil
}

func (c *fakeClient) FetchGrades(ctx context.Context, assignmentID int) (map[int]string, error) {
	c.gradeCalls++
	if err := c.fail[assignmentID]; err != nil {
		return nil, err
	}
	return c.grades[assignmentID], nil
}

func (c *fakeClient) FetchFeedback(ctx context.Context, assignmentID, userID int) (string, error) {
	c.feedbackCalls++
	return c.feedback[assignmentID][userID], nil
}

func (c *fakeClient) FetchSubmissionStatus(ctx context.Context, assignmentID, userID int) (*moodle.SubmissionStatus, error) {
	return &moodle.SubmissionStatus{}, nil
}

func (c *fakeClient) FetchAssignments(ctx context.Context, courseID int) ([]moodle.Assignment, error) {
	return nil, nil
}

// failingStore simulates an unavailable durable store.
type failingStore struct{}

func (failingStore) Exists(ctx context.Context, courseID, assignmentID int) (bool, error) {
	return false, errors.New("store unavailable")
}
func (failingStore) Query(ctx context.Context, courseID, assignmentID int) ([]domain.GradeFeedbackRecord, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) QueryBulk(ctx context.Context, filter storage.BulkFilter) ([]domain.GradeFeedbackRecord, error) {
	return nil, errors.New("store unavailable")
}
func (failingStore) Upsert(ctx context.Context, records []domain.GradeFeedbackRecord) (int, error) {
	return 0, errors.New("store unavailable")
}
func (failingStore) Healthy(ctx context.Context) bool { return false }

func newTestEngine(t *testing.T, store storage.Store, client moodle.Client) *Engine {
	t.Helper()
	dir := t.TempDir()
	return NewEngine(
		store,
		client,
		cache.NewIndividual(filepath.Join(dir, "cache.csv")),
		cache.NewBulk(filepath.Join(dir, "cache_bulk.csv")),
		WithScopeDelay(0),
	)
}

func scopeA() domain.ScopeRequest {
	return domain.ScopeRequest{
		CourseID: 100, AssignmentID: 1,
		AssignmentName: "Quiz 1", CourseName: "Matemática I", Instructor: "R. Flores",
	}
}

func scopeB() domain.ScopeRequest {
	return domain.ScopeRequest{
		CourseID: 100, AssignmentID: 2,
		AssignmentName: "Evaluación Integral", CourseName: "Matemática I", Instructor: "R. Flores",
	}
}

func storedRecord(s domain.ScopeRequest, studentID int, grade, feedback string) domain.GradeFeedbackRecord {
	return domain.GradeFeedbackRecord{
		CourseID:       s.CourseID,
		AssignmentID:   s.AssignmentID,
		CourseName:     s.CourseName,
		AssignmentName: s.AssignmentName,
		Instructor:     s.Instructor,
		StudentID:      studentID,
		StudentName:    "Student",
		Grade:          grade,
		Feedback:       feedback,
		HasFeedback:    domain.ComputeHasFeedback(feedback),
	}
}

func TestResolveSingle_SatisfiedByStore_NoClientCalls(t *testing.T) {
	store := in_mem.NewInMemStore()
	seeded := storedRecord(scopeA(), 7, "17", "bien")
	_, err := store.Upsert(context.Background(), []domain.GradeFeedbackRecord{seeded})
	require.NoError(t, err)

	client := newFakeClient()
	engine := newTestEngine(t, store, client)

	res, err := engine.ResolveSingle(context.Background(), scopeA())
	require.NoError(t, err)

	assert.Equal(t, StateSatisfiedByStore, res.State)
	assert.Equal(t, []domain.GradeFeedbackRecord{seeded}, res.Records)
	assert.Zero(t, client.totalCalls())
}

func TestResolveSingle_FetchedLive_ThenStoreAndCacheWritten(t *testing.T) {
	store := in_mem.NewInMemStore()
	client := newFakeClient()
	client.participants[1] = []moodle.Participant{
		{ID: 10, FullName: "Ana Lopez"},
		{ID: 11, FullName: "Luis Diaz"},
	}
	client.grades[1] = map[int]string{10: "14.5"}
	client.feedback[1] = map[int]string{10: "   ", 11: "ok"}

	engine := newTestEngine(t, store, client)

	res, err := engine.ResolveSingle(context.Background(), scopeA())
	require.NoError(t, err)

	assert.Equal(t, StateFetchedLive, res.State)
	require.Len(t, res.Records, 2)

	ana, luis := res.Records[0], res.Records[1]
	assert.Equal(t, "14.5", ana.Grade)
	assert.False(t, ana.HasFeedback, "whitespace-only feedback must not count")
	assert.Equal(t, "", luis.Grade, "absent grade becomes empty string")
	assert.True(t, luis.HasFeedback)
	assert.Equal(t, "Quiz 1", ana.AssignmentName)

	// Fetched records landed in the durable store.
	stored, err := store.Query(context.Background(), 100, 1)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// A second run is satisfied by the store without touching the client.
	calls := client.totalCalls()
	res2, err := engine.ResolveSingle(context.Background(), scopeA())
	require.NoError(t, err)
	assert.Equal(t, StateSatisfiedByStore, res2.State)
	assert.Equal(t, calls, client.totalCalls())
}

func TestResolveSingle_StoreUnavailable_FallsBackToCache(t *testing.T) {
	client := newFakeClient()
	client.participants[1] = []moodle.Participant{{ID: 10, FullName: "Ana Lopez"}}
	client.grades[1] = map[int]string{10: "12"}

	engine := newTestEngine(t, failingStore{}, client)

	// First run fetches live; the store upsert fails but the cache write holds.
	res, err := engine.ResolveSingle(context.Background(), scopeA())
	require.NoError(t, err)
	assert.Equal(t, StateFetchedLive, res.State)
	assert.NotEmpty(t, res.Warnings)

	// Second run is served entirely from the cache.
	calls := client.totalCalls()
	res2, err := engine.ResolveSingle(context.Background(), scopeA())
	require.NoError(t, err)
	assert.Equal(t, StateSatisfiedByCache, res2.State)
	require.Len(t, res2.Records, 1)
	assert.Equal(t, "12", res2.Records[0].Grade)
	assert.Equal(t, calls, client.totalCalls())
}

func TestResolveSingle_NoParticipants(t *testing.T) {
	engine := newTestEngine(t, in_mem.NewInMemStore(), newFakeClient())

	res, err := engine.ResolveSingle(context.Background(), scopeA())
	require.NoError(t, err)

	assert.Equal(t, StateNoParticipants, res.State)
	assert.Empty(t, res.Records)
	assert.NotEmpty(t, res.Warnings)
}

func TestResolveSingle_UpstreamErrorIsNotNoParticipants(t *testing.T) {
	client := newFakeClient()
	client.fail[1] = &moodle.UpstreamError{Exception: "moodle_exception", ErrorCode: "invalidtoken", Message: "Invalid token"}

	engine := newTestEngine(t, in_mem.NewInMemStore(), client)

	res, err := engine.ResolveSingle(context.Background(), scopeA())
	require.NoError(t, err)

	assert.Equal(t, StateNoData, res.State)
	assert.Empty(t, res.Records)
	assert.NotEmpty(t, res.Warnings)
}

func TestResolveBulk_FetchesOnlyMissingScopes(t *testing.T) {
	store := in_mem.NewInMemStore()
	seeded := storedRecord(scopeA(), 7, "17", "")
	_, err := store.Upsert(context.Background(), []domain.GradeFeedbackRecord{seeded})
	require.NoError(t, err)

	client := newFakeClient()
	client.participants[2] = []moodle.Participant{{ID: 8, FullName: "Eva Cruz"}}
	client.grades[2] = map[int]string{8: "13"}

	engine := newTestEngine(t, store, client)
	scopes := []domain.ScopeRequest{scopeA(), scopeB()}

	res, err := engine.ResolveBulk(context.Background(), scopes, "curso_Matemática I", false)
	require.NoError(t, err)

	assert.Equal(t, StateFetchedLive, res.State)
	require.Len(t, res.Records, 2)

	// Only the missing assignment was fetched.
	assert.Equal(t, 1, client.participantCalls)
	assert.Equal(t, 1, client.gradeCalls)
	assert.Zero(t, client.feedbackCalls, "plain bulk path must not fetch feedback")

	// Re-running short-circuits via cache with zero client calls.
	calls := client.totalCalls()
	res2, err := engine.ResolveBulk(context.Background(), scopes, "curso_Matemática I", false)
	require.NoError(t, err)
	assert.Equal(t, StateSatisfiedByCache, res2.State)
	assert.Len(t, res2.Records, 2)
	assert.Equal(t, calls, client.totalCalls())
}

func TestResolveBulk_SatisfiedByStore(t *testing.T) {
	store := in_mem.NewInMemStore()
	_, err := store.Upsert(context.Background(), []domain.GradeFeedbackRecord{
		storedRecord(scopeA(), 7, "17", ""),
		storedRecord(scopeB(), 7, "15", ""),
	})
	require.NoError(t, err)

	client := newFakeClient()
	engine := newTestEngine(t, store, client)

	res, err := engine.ResolveBulk(context.Background(), []domain.ScopeRequest{scopeA(), scopeB()}, "curso_Matemática I", false)
	require.NoError(t, err)

	assert.Equal(t, StateSatisfiedByStore, res.State)
	assert.Len(t, res.Records, 2)
	assert.Zero(t, client.totalCalls())
}

func TestResolveBulk_RequireFeedback_RefetchesFeedbacklessScopes(t *testing.T) {
	store := in_mem.NewInMemStore()
	// Stored without feedback: satisfies the plain run, not the feedback run.
	_, err := store.Upsert(context.Background(), []domain.GradeFeedbackRecord{storedRecord(scopeA(), 7, "17", "")})
	require.NoError(t, err)

	client := newFakeClient()
	client.participants[1] = []moodle.Participant{{ID: 7, FullName: "Pia Soto"}}
	client.grades[1] = map[int]string{7: "17"}
	client.feedback[1] = map[int]string{7: "revisar ortografía"}

	engine := newTestEngine(t, store, client)

	res, err := engine.ResolveBulk(context.Background(), []domain.ScopeRequest{scopeA()}, "aula_101", true)
	require.NoError(t, err)

	assert.Equal(t, StateFetchedLive, res.State)
	assert.Equal(t, 1, client.feedbackCalls)
	require.Len(t, res.Records, 1)
	// Store row precedes the fetched one under dedupe, so the stored
	// feedback-less copy wins in the merged view.
	assert.Equal(t, "", res.Records[0].Feedback)

	// The feedback cache namespace is distinct from the plain one: a plain
	// run against the same identifier does not hit the feedback cache entry.
	plain, err := engine.ResolveBulk(context.Background(), []domain.ScopeRequest{scopeA()}, "aula_101", false)
	require.NoError(t, err)
	assert.Equal(t, StateSatisfiedByStore, plain.State)
}

func TestResolveBulk_CacheMerge_StoreRowWins(t *testing.T) {
	store := in_mem.NewInMemStore()
	client := newFakeClient()
	client.participants[1] = []moodle.Participant{{ID: 7, FullName: "Pia Soto"}}
	client.grades[1] = map[int]string{7: "10"}

	engine := newTestEngine(t, store, client)
	scopes := []domain.ScopeRequest{scopeA()}

	// First run caches grade "10".
	_, err := engine.ResolveBulk(context.Background(), scopes, "aula_101", false)
	require.NoError(t, err)

	// The durable store later learns a different grade for the same key.
	updated := storedRecord(scopeA(), 7, "19", "")
	_, err = store.Upsert(context.Background(), []domain.GradeFeedbackRecord{updated})
	require.NoError(t, err)

	res, err := engine.ResolveBulk(context.Background(), scopes, "aula_101", false)
	require.NoError(t, err)

	assert.Equal(t, StateSatisfiedByCache, res.State)
	require.Len(t, res.Records, 1, "duplicate natural keys must collapse")
	assert.Equal(t, "19", res.Records[0].Grade, "store row must win over cached row")
}

func TestResolveBulk_PartialScopeFailure(t *testing.T) {
	store := in_mem.NewInMemStore()
	client := newFakeClient()
	client.fail[1] = errors.New("timeout")
	client.participants[2] = []moodle.Participant{{ID: 8, FullName: "Eva Cruz"}}
	client.grades[2] = map[int]string{8: "13"}

	engine := newTestEngine(t, store, client)

	res, err := engine.ResolveBulk(context.Background(), []domain.ScopeRequest{scopeA(), scopeB()}, "docente_R. Flores", false)
	require.NoError(t, err)

	assert.Equal(t, StateFetchedLive, res.State)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 2, res.Records[0].AssignmentID)
	assert.NotEmpty(t, res.Warnings)
}

func TestResolveBulk_EmptyScopeSetDoesNotLeakStore(t *testing.T) {
	store := in_mem.NewInMemStore()
	unrelated := storedRecord(scopeA(), 7, "17", "")
	unrelated.CourseID = 999
	_, err := store.Upsert(context.Background(), []domain.GradeFeedbackRecord{unrelated})
	require.NoError(t, err)

	client := newFakeClient()
	engine := newTestEngine(t, store, client)

	res, err := engine.ResolveBulk(context.Background(), nil, "aula_typo", false)
	require.NoError(t, err)

	assert.Equal(t, StateNoData, res.State)
	assert.Empty(t, res.Records, "unrelated store rows must not surface for an empty scope set")
	assert.NotEmpty(t, res.Warnings)
	assert.Zero(t, client.totalCalls())
}

func TestResolveBulk_NoDataObtainable(t *testing.T) {
	engine := newTestEngine(t, in_mem.NewInMemStore(), newFakeClient())

	res, err := engine.ResolveBulk(context.Background(), []domain.ScopeRequest{scopeA()}, "curso_vacío", false)
	require.NoError(t, err)

	assert.Equal(t, StateNoData, res.State)
	assert.Empty(t, res.Records)
	assert.NotEmpty(t, res.Warnings)
}
