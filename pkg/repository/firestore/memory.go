package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// memoryRecordDoc is the Firestore document representation of model.MemoryRecord.
// Embedding is stored as firestore.Vector32 so the collection can carry a vector index.
type memoryRecordDoc struct {
	ID              model.MemoryRecordID `firestore:"ID"`
	UserID          string               `firestore:"UserID"`
	ConversationID  string               `firestore:"ConversationID"`
	UserMessage     string               `firestore:"UserMessage"`
	AIResponse      string               `firestore:"AIResponse"`
	MessageType     string               `firestore:"MessageType"`
	Embedding       firestore.Vector32   `firestore:"Embedding,omitempty"`
	ImportanceScore float64              `firestore:"ImportanceScore"`
	Topics          []string             `firestore:"Topics"`
	Emotions        []string             `firestore:"Emotions"`
	Timestamp       time.Time            `firestore:"Timestamp"`
}

func toMemoryRecordDoc(r *model.MemoryRecord) *memoryRecordDoc {
	doc := &memoryRecordDoc{
		ID:              r.ID,
		UserID:          r.UserID,
		ConversationID:  r.ConversationID,
		UserMessage:     r.UserMessage,
		AIResponse:      r.AIResponse,
		MessageType:     r.MessageType,
		ImportanceScore: r.ImportanceScore,
		Topics:          make([]string, 0, len(r.Topics)),
		Emotions:        make([]string, 0, len(r.Emotions)),
		Timestamp:       r.Timestamp,
	}
	if len(r.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(r.Embedding)
	}
	for _, t := range r.Topics {
		doc.Topics = append(doc.Topics, string(t))
	}
	for _, e := range r.Emotions {
		doc.Emotions = append(doc.Emotions, string(e))
	}
	return doc
}

func fromMemoryRecordDoc(d *memoryRecordDoc) *model.MemoryRecord {
	r := &model.MemoryRecord{
		ID:              d.ID,
		UserID:          d.UserID,
		ConversationID:  d.ConversationID,
		UserMessage:     d.UserMessage,
		AIResponse:      d.AIResponse,
		MessageType:     d.MessageType,
		ImportanceScore: d.ImportanceScore,
		Topics:          make([]types.Topic, 0, len(d.Topics)),
		Emotions:        make([]types.Emotion, 0, len(d.Emotions)),
		Timestamp:       d.Timestamp,
	}
	if len(d.Embedding) > 0 {
		r.Embedding = []float32(d.Embedding)
	}
	for _, t := range d.Topics {
		r.Topics = append(r.Topics, types.Topic(t))
	}
	for _, e := range d.Emotions {
		r.Emotions = append(r.Emotions, types.Emotion(e))
	}
	return r
}

type memoryRecordRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func newMemoryRecordRepository(client *firestore.Client, names *collectionNames) *memoryRecordRepository {
	return &memoryRecordRepository{client: client, names: names}
}

func (r *memoryRecordRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.names.name(CollectionMemories))
}

func (r *memoryRecordRepository) Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error) {
	created := *record
	if created.ID == "" {
		created.ID = model.NewMemoryRecordID()
	}
	if created.Timestamp.IsZero() {
		created.Timestamp = time.Now().UTC()
	}

	docRef := r.collection().Doc(string(created.ID))
	if _, err := docRef.Set(ctx, toMemoryRecordDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create memory record", goerr.V("userID", created.UserID))
	}

	return &created, nil
}

func (r *memoryRecordRepository) Get(ctx context.Context, id model.MemoryRecordID) (*model.MemoryRecord, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "memory record not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory record", goerr.V("id", id))
	}

	var d memoryRecordDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory record", goerr.V("id", id))
	}

	return fromMemoryRecordDoc(&d), nil
}

func (r *memoryRecordRepository) collect(iter *firestore.DocumentIterator) ([]*model.MemoryRecord, error) {
	defer iter.Stop()

	records := make([]*model.MemoryRecord, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory records")
		}

		var d memoryRecordDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory record", goerr.V("docID", doc.Ref.ID))
		}
		records = append(records, fromMemoryRecordDoc(&d))
	}
	return records, nil
}

func (r *memoryRecordRepository) ListRecentByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*model.MemoryRecord, error) {
	q := r.collection().Where("UserID", "==", userID)
	if !since.IsZero() {
		q = q.Where("Timestamp", ">=", since)
	}
	q = q.OrderBy("Timestamp", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	records, err := r.collect(q.Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent memory records", goerr.V("userID", userID))
	}
	return records, nil
}

func (r *memoryRecordRepository) ListByConversation(ctx context.Context, userID, conversationID string, limit int) ([]*model.MemoryRecord, error) {
	q := r.collection().
		Where("UserID", "==", userID).
		Where("ConversationID", "==", conversationID).
		OrderBy("Timestamp", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	records, err := r.collect(q.Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversation memory records",
			goerr.V("userID", userID),
			goerr.V("conversationID", conversationID))
	}
	return records, nil
}

func (r *memoryRecordRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	q := r.collection().Where("UserID", "==", userID)
	result, err := q.NewAggregationQuery().
		WithCount("count").
		Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count memory records", goerr.V("userID", userID))
	}

	v, ok := result["count"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected count aggregation result", goerr.V("result", result))
	}
	return int(v.GetIntegerValue()), nil
}

// ListExpired filters on Timestamp in the query and on importance in
// memory, avoiding a second inequality field.
func (r *memoryRecordRepository) ListExpired(ctx context.Context, before time.Time, maxImportance float64) ([]*model.MemoryRecord, error) {
	iter := r.collection().
		Where("Timestamp", "<", before).
		OrderBy("Timestamp", firestore.Asc).
		Documents(ctx)

	records, err := r.collect(iter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list expired memory records", goerr.V("before", before))
	}

	expired := make([]*model.MemoryRecord, 0, len(records))
	for _, rec := range records {
		if rec.ImportanceScore < maxImportance {
			expired = append(expired, rec)
		}
	}
	return expired, nil
}

func (r *memoryRecordRepository) DeleteExpired(ctx context.Context, before time.Time, maxImportance float64) (int, error) {
	iter := r.collection().
		Where("Timestamp", "<", before).
		Select("ImportanceScore").
		Documents(ctx)
	defer iter.Stop()

	bulkWriter := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bulkWriter.End()
			return countCommitted(jobs), goerr.Wrap(err, "failed to iterate memory records for deletion")
		}

		var d memoryRecordDoc
		if err := doc.DataTo(&d); err != nil {
			bulkWriter.End()
			return countCommitted(jobs), goerr.Wrap(err, "failed to unmarshal memory record", goerr.V("docID", doc.Ref.ID))
		}
		if d.ImportanceScore >= maxImportance {
			continue
		}

		job, err := bulkWriter.Delete(doc.Ref)
		if err != nil {
			bulkWriter.End()
			return countCommitted(jobs), goerr.Wrap(err, "failed to enqueue memory record deletion", goerr.V("docID", doc.Ref.ID))
		}
		jobs = append(jobs, job)
	}
	bulkWriter.End()

	deleted := 0
	var firstErr error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}
	if firstErr != nil {
		return deleted, goerr.Wrap(firstErr, "failed to delete memory records",
			goerr.V("failed", len(jobs)-deleted),
			goerr.V("deleted", deleted))
	}

	return deleted, nil
}

// countCommitted waits for the enqueued jobs and counts the successful ones.
// Only valid after BulkWriter.End.
func countCommitted(jobs []*firestore.BulkWriterJob) int {
	n := 0
	for _, job := range jobs {
		if _, err := job.Results(); err == nil {
			n++
		}
	}
	return n
}

func (r *memoryRecordRepository) Stats(ctx context.Context, userID string, since time.Time) (*model.MemoryAnalytics, error) {
	q := r.collection().Where("Timestamp", ">=", since)
	if userID != "" {
		q = r.collection().Where("UserID", "==", userID).Where("Timestamp", ">=", since)
	}

	iter := q.Select("UserID", "ConversationID", "ImportanceScore").Documents(ctx)
	defer iter.Stop()

	users := make(map[string]struct{})
	conversations := make(map[string]struct{})
	stats := &model.MemoryAnalytics{}
	var importanceSum float64

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory records for stats")
		}

		var d memoryRecordDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory record", goerr.V("docID", doc.Ref.ID))
		}

		stats.TotalMemories++
		importanceSum += d.ImportanceScore
		users[d.UserID] = struct{}{}
		conversations[d.ConversationID] = struct{}{}
	}

	stats.UniqueUsersCount = len(users)
	stats.UniqueConversationsCount = len(conversations)
	if stats.TotalMemories > 0 {
		stats.AvgImportance = importanceSum / float64(stats.TotalMemories)
	}
	return stats, nil
}
