package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

type memoryRecordRepository struct {
	mu      sync.RWMutex
	records map[model.MemoryRecordID]*model.MemoryRecord
}

func newMemoryRecordRepository() *memoryRecordRepository {
	return &memoryRecordRepository{
		records: make(map[model.MemoryRecordID]*model.MemoryRecord),
	}
}

func copyMemoryRecord(r *model.MemoryRecord) *model.MemoryRecord {
	copied := *r
	if r.Embedding != nil {
		copied.Embedding = make([]float32, len(r.Embedding))
		copy(copied.Embedding, r.Embedding)
	}
	if r.Topics != nil {
		copied.Topics = append([]types.Topic{}, r.Topics...)
	}
	if r.Emotions != nil {
		copied.Emotions = append([]types.Emotion{}, r.Emotions...)
	}
	return &copied
}

func (r *memoryRecordRepository) Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyMemoryRecord(record)
	if created.ID == "" {
		created.ID = model.NewMemoryRecordID()
	}
	if created.Timestamp.IsZero() {
		created.Timestamp = time.Now().UTC()
	}

	r.records[created.ID] = created
	return copyMemoryRecord(created), nil
}

func (r *memoryRecordRepository) Get(ctx context.Context, id model.MemoryRecordID) (*model.MemoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "memory record not found", goerr.V("id", id))
	}

	return copyMemoryRecord(record), nil
}

func (r *memoryRecordRepository) ListRecentByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*model.MemoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.MemoryRecord, 0)
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		if !since.IsZero() && rec.Timestamp.Before(since) {
			continue
		}
		result = append(result, copyMemoryRecord(rec))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memoryRecordRepository) ListByConversation(ctx context.Context, userID, conversationID string, limit int) ([]*model.MemoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.MemoryRecord, 0)
	for _, rec := range r.records {
		if rec.UserID == userID && rec.ConversationID == conversationID {
			result = append(result, copyMemoryRecord(rec))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memoryRecordRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rec := range r.records {
		if rec.UserID == userID {
			count++
		}
	}
	return count, nil
}

func isExpired(rec *model.MemoryRecord, before time.Time, maxImportance float64) bool {
	return rec.Timestamp.Before(before) && rec.ImportanceScore < maxImportance
}

func (r *memoryRecordRepository) ListExpired(ctx context.Context, before time.Time, maxImportance float64) ([]*model.MemoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.MemoryRecord, 0)
	for _, rec := range r.records {
		if isExpired(rec, before, maxImportance) {
			result = append(result, copyMemoryRecord(rec))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

func (r *memoryRecordRepository) DeleteExpired(ctx context.Context, before time.Time, maxImportance float64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, rec := range r.records {
		if isExpired(rec, before, maxImportance) {
			delete(r.records, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memoryRecordRepository) Stats(ctx context.Context, userID string, since time.Time) (*model.MemoryAnalytics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make(map[string]struct{})
	conversations := make(map[string]struct{})
	var total int
	var importanceSum float64

	for _, rec := range r.records {
		if userID != "" && rec.UserID != userID {
			continue
		}
		if rec.Timestamp.Before(since) {
			continue
		}
		total++
		importanceSum += rec.ImportanceScore
		users[rec.UserID] = struct{}{}
		conversations[rec.ConversationID] = struct{}{}
	}

	stats := &model.MemoryAnalytics{
		TotalMemories:            total,
		UniqueUsersCount:         len(users),
		UniqueConversationsCount: len(conversations),
	}
	if total > 0 {
		stats.AvgImportance = importanceSum / float64(total)
	}
	return stats, nil
}
