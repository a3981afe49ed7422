package es

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecala/gradesync/internal/domain"
	"github.com/ecala/gradesync/internal/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

const maxResultWindow = 10000

type Store struct {
	client    *elasticsearch.TypedClient
	indexName string
	config    ClientConfig
}

// Document is the index shape of one grade/feedback record. The document id is
// the natural key "course_assignment_student", so re-indexing an existing key
// replaces the stored document (upsert-on-conflict).
type Document struct {
	CourseID       int       `json:"course_id"`
	AssignmentID   int       `json:"assignment_id"`
	CourseName     string    `json:"course_name"`
	AssignmentName string    `json:"assignment_name"`
	Instructor     string    `json:"instructor"`
	StudentID      int       `json:"student_id"`
	StudentName    string    `json:"student_name"`
	Grade          string    `json:"grade"`
	Feedback       string    `json:"feedback"`
	HasFeedback    bool      `json:"has_feedback"`
	IndexedAt      time.Time `json:"indexed_at"`
}

func NewStore(ctx context.Context, config ClientConfig) (*Store, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	store := &Store{
		client:    client,
		indexName: config.IndexName,
		config:    config,
	}

	if err := store.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return store, nil
}

func (s *Store) ensureIndex(ctx context.Context) error {
	exists, err := s.client.Indices.Exists(s.indexName).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if _, err := s.client.Indices.Create(s.indexName).Do(ctx); err != nil {
		return err
	}
	slog.Info("created index", "index", s.indexName)
	return nil
}

func (s *Store) Exists(ctx context.Context, courseID, assignmentID int) (bool, error) {
	resp, err := s.client.Count().
		Index(s.indexName).
		Query(pairQuery(courseID, assignmentID)).
		Do(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count documents: %w", err)
	}
	return resp.Count > 0, nil
}

func (s *Store) Query(ctx context.Context, courseID, assignmentID int) ([]domain.GradeFeedbackRecord, error) {
	return s.search(ctx, pairQuery(courseID, assignmentID))
}

func (s *Store) QueryBulk(ctx context.Context, filter storage.BulkFilter) ([]domain.GradeFeedbackRecord, error) {
	var must []types.Query

	if len(filter.CourseIDs) > 0 {
		ids := make([]types.FieldValue, len(filter.CourseIDs))
		for i, id := range filter.CourseIDs {
			ids[i] = id
		}
		must = append(must, types.Query{
			Terms: &types.TermsQuery{
				TermsQuery: map[string]types.TermsQueryField{"course_id": ids},
			},
		})
	}
	if filter.Instructor != "" {
		must = append(must, termQuery("instructor.keyword", filter.Instructor))
	}
	if filter.CourseName != "" {
		must = append(must, termQuery("course_name.keyword", filter.CourseName))
	}

	query := &types.Query{MatchAll: &types.MatchAllQuery{}}
	if len(must) > 0 {
		query = &types.Query{Bool: &types.BoolQuery{Must: must}}
	}

	return s.search(ctx, query)
}

func (s *Store) Upsert(ctx context.Context, records []domain.GradeFeedbackRecord) (int, error) {
	written := 0
	for _, r := range records {
		doc := recordToDocument(r)
		id := documentID(r)

		if _, err := s.client.Index(s.indexName).Id(id).Document(doc).Do(ctx); err != nil {
			return written, fmt.Errorf("failed to index document %s: %w", id, err)
		}
		written++
	}

	slog.Info("indexed records", "count", written, "index", s.indexName)
	return written, nil
}

func (s *Store) Healthy(ctx context.Context) bool {
	_, err := s.client.Info().Do(ctx)
	return err == nil
}

func (s *Store) search(ctx context.Context, query *types.Query) ([]domain.GradeFeedbackRecord, error) {
	resp, err := s.client.Search().
		Index(s.indexName).
		Query(query).
		Size(maxResultWindow).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	var records []domain.GradeFeedbackRecord
	for _, hit := range resp.Hits.Hits {
		var doc Document
		if err := json.Unmarshal(hit.Source_, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
		records = append(records, documentToRecord(doc))
	}
	return records, nil
}

func pairQuery(courseID, assignmentID int) *types.Query {
	return &types.Query{
		Bool: &types.BoolQuery{
			Must: []types.Query{
				termQuery("course_id", courseID),
				termQuery("assignment_id", assignmentID),
			},
		},
	}
}

func termQuery(field string, value any) types.Query {
	return types.Query{
		Term: map[string]types.TermQuery{
			field: {Value: value},
		},
	}
}

func documentID(r domain.GradeFeedbackRecord) string {
	return fmt.Sprintf("%d_%d_%d", r.CourseID, r.AssignmentID, r.StudentID)
}

func recordToDocument(r domain.GradeFeedbackRecord) Document {
	return Document{
		CourseID:       r.CourseID,
		AssignmentID:   r.AssignmentID,
		CourseName:     r.CourseName,
		AssignmentName: r.AssignmentName,
		Instructor:     r.Instructor,
		StudentID:      r.StudentID,
		StudentName:    r.StudentName,
		Grade:          r.Grade,
		Feedback:       r.Feedback,
		HasFeedback:    r.HasFeedback,
		IndexedAt:      time.Now().UTC(),
	}
}

func documentToRecord(doc Document) domain.GradeFeedbackRecord {
	return domain.GradeFeedbackRecord{
		CourseID:       doc.CourseID,
		AssignmentID:   doc.AssignmentID,
		CourseName:     doc.CourseName,
		AssignmentName: doc.AssignmentName,
		Instructor:     doc.Instructor,
		StudentID:      doc.StudentID,
		StudentName:    doc.StudentName,
		Grade:          doc.Grade,
		Feedback:       doc.Feedback,
		HasFeedback:    doc.HasFeedback,
	}
}
