package in_mem

import (
	"context"
	"sort"
	"sync"

	"github.com/ecala/gradesync/internal/domain"
	"github.com/ecala/gradesync/internal/storage"
)

// InMemStore keeps records in a map keyed by the natural key. Used in tests
// and as a degraded mode when no durable backend is configured.
type InMemStore struct {
	storageLock sync.RWMutex
	storage     map[domain.RecordKey]domain.GradeFeedbackRecord
}

func NewInMemStore() *InMemStore {
	return &InMemStore{
		storage: make(map[domain.RecordKey]domain.GradeFeedbackRecord),
	}
}

func (s *InMemStore) Exists(ctx context.Context, courseID, assignmentID int) (bool, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	for key := range s.storage {
		if key.CourseID == courseID && key.AssignmentID == assignmentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemStore) Query(ctx context.Context, courseID, assignmentID int) ([]domain.GradeFeedbackRecord, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	var records []domain.GradeFeedbackRecord
	for _, r := range s.storage {
		if r.CourseID == courseID && r.AssignmentID == assignmentID {
			records = append(records, r)
		}
	}
	sortRecords(records)
	return records, nil
}

func (s *InMemStore) QueryBulk(ctx context.Context, filter storage.BulkFilter) ([]domain.GradeFeedbackRecord, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	courseIDs := make(map[int]struct{}, len(filter.CourseIDs))
	for _, id := range filter.CourseIDs {
		courseIDs[id] = struct{}{}
	}

	var records []domain.GradeFeedbackRecord
	for _, r := range s.storage {
		if len(courseIDs) > 0 {
			if _, ok := courseIDs[r.CourseID]; !ok {
				continue
			}
		}
		if filter.Instructor != "" && r.Instructor != filter.Instructor {
			continue
		}
		if filter.CourseName != "" && r.CourseName != filter.CourseName {
			continue
		}
		records = append(records, r)
	}
	sortRecords(records)
	return records, nil
}

func (s *InMemStore) Upsert(ctx context.Context, records []domain.GradeFeedbackRecord) (int, error) {
	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	for _, r := range records {
		s.storage[r.Key()] = r
	}
	return len(records), nil
}

func (s *InMemStore) Healthy(ctx context.Context) bool {
	return true
}

func sortRecords(records []domain.GradeFeedbackRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.CourseID != b.CourseID {
			return a.CourseID < b.CourseID
		}
		if a.AssignmentID != b.AssignmentID {
			return a.AssignmentID < b.AssignmentID
		}
		return a.StudentID < b.StudentID
	})
}
