// Package extract reconciles grade/feedback records across three tiers:
// durable storage, the local cache, and live fetches from the upstream
// service. Failures degrade tier by tier; nothing unwinds past the engine.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecala/gradesync/internal/cache"
	"github.com/ecala/gradesync/internal/domain"
	"github.com/ecala/gradesync/internal/moodle"
	"github.com/ecala/gradesync/internal/storage"
	"github.com/google/uuid"
)

// State is the terminal state of one resolution run.
type State string

const (
	StateSatisfiedByStore State = "satisfied_by_store"
	StateSatisfiedByCache State = "satisfied_by_cache"
	StateFetchedLive      State = "fetched_live"
	StateNoParticipants   State = "no_participants"
	StateNoData           State = "no_data"
)

// feedbackCacheSuffix gives feedback-requiring bulk runs their own cache
// namespace, so a plain run never satisfies a feedback-requiring one.
const feedbackCacheSuffix = "_feedback"

// defaultScopeDelay is the courtesy pause between live bulk fetches. The
// upstream service is rate sensitive; this is politeness, not correctness.
const defaultScopeDelay = 100 * time.Millisecond

// Result is the outcome of one resolution run. Warnings carry everything that
// degraded along the way; a caller can tell "zero because no participants"
// from "zero because of upstream failure" by State.
type Result struct {
	RunID    uuid.UUID                    `json:"run_id"`
	State    State                        `json:"state"`
	Records  []domain.GradeFeedbackRecord `json:"records"`
	Warnings []string                     `json:"warnings,omitempty"`
}

func (r *Result) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	slog.Warn(msg, "run_id", r.RunID)
}

type Engine struct {
	store      storage.Store
	client     moodle.Client
	individual *cache.Cache
	bulk       *cache.Cache
	scopeDelay time.Duration
}

type EngineOption func(*Engine)

func WithScopeDelay(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.scopeDelay = d
	}
}

func NewEngine(store storage.Store, client moodle.Client, individual, bulk *cache.Cache, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      store,
		client:     client,
		individual: individual,
		bulk:       bulk,
		scopeDelay: defaultScopeDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ResolveSingle resolves one (course, assignment) scope: durable store first,
// then the local cache, then a live fetch that is written back to both.
func (e *Engine) ResolveSingle(ctx context.Context, req domain.ScopeRequest) (*Result, error) {
	res := &Result{RunID: uuid.New()}

	stored, err := e.store.Query(ctx, req.CourseID, req.AssignmentID)
	if err != nil {
		res.warn("store query failed, continuing without durable data: %v", err)
	}
	if len(stored) > 0 {
		slog.Info("scope satisfied by durable store",
			"run_id", res.RunID, "course_id", req.CourseID, "assignment_id", req.AssignmentID, "records", len(stored))
		res.State = StateSatisfiedByStore
		res.Records = stored
		return res, nil
	}

	key := e.individual.Key(cache.PairIdentifier(req.CourseID, req.AssignmentID))
	if e.individual.Exists(key) {
		cached, err := e.individual.Read(key)
		if err != nil {
			res.warn("cache read failed, continuing with live fetch: %v", err)
		} else if len(cached) > 0 {
			slog.Info("scope satisfied by local cache",
				"run_id", res.RunID, "course_id", req.CourseID, "assignment_id", req.AssignmentID, "records", len(cached))
			res.State = StateSatisfiedByCache
			res.Records = cached
			return res, nil
		}
	}

	slog.Info("fetching scope from upstream",
		"run_id", res.RunID, "course_id", req.CourseID, "assignment_id", req.AssignmentID)

	grades, err := e.client.FetchGrades(ctx, req.AssignmentID)
	if err != nil {
		res.warn("grades fetch failed, grades will be empty: %v", err)
		grades = nil
	}

	participants, err := e.client.ListParticipants(ctx, req.AssignmentID)
	if err != nil {
		var upstream *moodle.UpstreamError
		if errors.As(err, &upstream) {
			res.warn("participant listing rejected upstream: %v", upstream)
		} else {
			res.warn("participant listing failed: %v", err)
		}
		res.State = StateNoData
		return res, nil
	}
	if len(participants) == 0 {
		res.warn("no participants found for assignment %d", req.AssignmentID)
		res.State = StateNoParticipants
		return res, nil
	}

	records := make([]domain.GradeFeedbackRecord, 0, len(participants))
	for _, p := range participants {
		feedback, err := e.client.FetchFeedback(ctx, req.AssignmentID, p.ID)
		if err != nil {
			res.warn("feedback fetch failed for student %d: %v", p.ID, err)
			feedback = ""
		}
		records = append(records, domain.GradeFeedbackRecord{
			CourseID:       req.CourseID,
			AssignmentID:   req.AssignmentID,
			CourseName:     req.CourseName,
			AssignmentName: req.AssignmentName,
			Instructor:     req.Instructor,
			StudentID:      p.ID,
			StudentName:    p.FullName,
			Grade:          grades[p.ID],
			Feedback:       feedback,
			HasFeedback:    domain.ComputeHasFeedback(feedback),
		})
	}

	e.persist(ctx, res, records)
	if err := e.individual.Write(key, records); err != nil {
		res.warn("cache write failed: %v", err)
	}

	res.State = StateFetchedLive
	res.Records = records
	return res, nil
}

// ResolveBulk resolves a set of scopes under one identifier. Only assignments
// not already satisfied by durable storage are fetched live; with
// requireFeedback, a stored pair counts as satisfied only if at least one of
// its records carries non-empty feedback.
func (e *Engine) ResolveBulk(ctx context.Context, scopes []domain.ScopeRequest, identifier string, requireFeedback bool) (*Result, error) {
	res := &Result{RunID: uuid.New()}

	// An empty scope set would turn the course filter below into a match-all
	// and leak the whole store into the result.
	if len(scopes) == 0 {
		res.warn("no scopes requested for identifier %q", identifier)
		res.State = StateNoData
		return res, nil
	}

	storeRows, err := e.store.QueryBulk(ctx, storage.BulkFilter{CourseIDs: domain.CourseIDs(scopes)})
	if err != nil {
		res.warn("bulk store query failed, continuing without durable data: %v", err)
		storeRows = nil
	}
	satisfied := satisfiedPairs(storeRows, requireFeedback)

	cacheID := identifier
	if requireFeedback {
		cacheID += feedbackCacheSuffix
	}
	key := e.bulk.Key(cacheID)

	if e.bulk.Exists(key) {
		cached, err := e.bulk.Read(key)
		if err != nil {
			res.warn("bulk cache read failed, continuing: %v", err)
		} else if len(cached) > 0 {
			// Store rows precede cached rows so the durable copy wins on
			// duplicate natural keys.
			slog.Info("bulk scope satisfied by local cache",
				"run_id", res.RunID, "identifier", identifier, "store_records", len(storeRows), "cached_records", len(cached))
			res.State = StateSatisfiedByCache
			res.Records = domain.Dedupe(append(storeRows, cached...))
			return res, nil
		}
	}

	var missing []domain.ScopeRequest
	for _, s := range scopes {
		if _, ok := satisfied[s.Pair()]; !ok {
			missing = append(missing, s)
		}
	}

	if len(missing) == 0 {
		slog.Info("bulk scope satisfied by durable store",
			"run_id", res.RunID, "identifier", identifier, "records", len(storeRows))
		res.State = StateSatisfiedByStore
		res.Records = storeRows
		return res, nil
	}

	slog.Info("fetching missing scopes from upstream",
		"run_id", res.RunID, "identifier", identifier, "missing", len(missing), "requested", len(scopes))

	var fetched []domain.GradeFeedbackRecord
	for i, s := range missing {
		if i > 0 && e.scopeDelay > 0 {
			select {
			case <-ctx.Done():
				res.warn("bulk fetch interrupted: %v", ctx.Err())
				return res, ctx.Err()
			case <-time.After(e.scopeDelay):
			}
		}

		rows, err := e.fetchScope(ctx, s, requireFeedback)
		if err != nil {
			// One bad assignment must not abort the whole job.
			res.warn("scope fetch failed for assignment %d (%s), skipping: %v", s.AssignmentID, s.AssignmentName, err)
			continue
		}
		fetched = append(fetched, rows...)
	}

	merged := domain.Dedupe(append(storeRows, fetched...))
	if len(merged) == 0 {
		res.warn("no data obtainable for identifier %q", identifier)
		res.State = StateNoData
		return res, nil
	}

	e.persist(ctx, res, fetched)
	if err := e.bulk.Write(key, merged); err != nil {
		res.warn("bulk cache write failed: %v", err)
	}

	res.State = StateFetchedLive
	res.Records = merged
	return res, nil
}

// fetchScope pulls one assignment live: grades once, participants once, and
// with feedback enabled one submission-status call per participant. Any
// failure fails the whole scope; the bulk loop decides whether to continue.
func (e *Engine) fetchScope(ctx context.Context, req domain.ScopeRequest, withFeedback bool) ([]domain.GradeFeedbackRecord, error) {
	grades, err := e.client.FetchGrades(ctx, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("fetch grades: %w", err)
	}

	participants, err := e.client.ListParticipants(ctx, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	records := make([]domain.GradeFeedbackRecord, 0, len(participants))
	for _, p := range participants {
		r := domain.GradeFeedbackRecord{
			CourseID:       req.CourseID,
			AssignmentID:   req.AssignmentID,
			CourseName:     req.CourseName,
			AssignmentName: req.AssignmentName,
			Instructor:     req.Instructor,
			StudentID:      p.ID,
			StudentName:    p.FullName,
			Grade:          grades[p.ID],
		}
		if withFeedback {
			feedback, err := e.client.FetchFeedback(ctx, req.AssignmentID, p.ID)
			if err != nil {
				return nil, fmt.Errorf("fetch feedback for student %d: %w", p.ID, err)
			}
			r.Feedback = feedback
			r.HasFeedback = domain.ComputeHasFeedback(feedback)
		}
		records = append(records, r)
	}
	return records, nil
}

// persist upserts freshly fetched records best-effort. A store failure is a
// warning only; the cache write that follows must not depend on it.
func (e *Engine) persist(ctx context.Context, res *Result, records []domain.GradeFeedbackRecord) {
	if len(records) == 0 {
		return
	}
	written, err := e.store.Upsert(ctx, records)
	if err != nil {
		res.warn("store upsert failed, records kept in cache only: %v", err)
		return
	}
	slog.Info("records persisted to durable store", "run_id", res.RunID, "count", written)
}

// satisfiedPairs indexes which (course, assignment) pairs the durable store
// already covers. With requireFeedback, only pairs with at least one
// non-empty feedback record count.
func satisfiedPairs(records []domain.GradeFeedbackRecord, requireFeedback bool) map[domain.ScopePair]struct{} {
	satisfied := make(map[domain.ScopePair]struct{})
	for _, r := range records {
		if requireFeedback && !domain.ComputeHasFeedback(r.Feedback) {
			continue
		}
		satisfied[domain.ScopePair{CourseID: r.CourseID, AssignmentID: r.AssignmentID}] = struct{}{}
	}
	return satisfied
}
