package memory

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

type extractionLogRepository struct {
	mu   sync.RWMutex
	logs []*model.ExtractionLog
}

func newExtractionLogRepository() *extractionLogRepository {
	return &extractionLogRepository{}
}

func (r *extractionLogRepository) Create(ctx context.Context, log *model.ExtractionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *log
	if copied.ID == "" {
		copied.ID = model.NewExtractionLogID()
	}
	if copied.Timestamp.IsZero() {
		copied.Timestamp = time.Now().UTC()
	}
	copied.Tasks = make([]*model.ExtractedTask, 0, len(log.Tasks))
	for _, t := range log.Tasks {
		copied.Tasks = append(copied.Tasks, t.Clone())
	}

	r.logs = append(r.logs, &copied)
	return nil
}

func (r *extractionLogRepository) Stats(ctx context.Context, userID string, since time.Time) (*model.ExtractionAnalytics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make(map[string]struct{})
	stats := &model.ExtractionAnalytics{}
	var confidenceSum float64

	for _, l := range r.logs {
		if userID != "" && l.UserID != userID {
			continue
		}
		if l.Timestamp.Before(since) {
			continue
		}
		stats.TotalExtractions++
		stats.TotalTasksFound += l.TasksExtracted
		confidenceSum += l.Confidence
		users[l.UserID] = struct{}{}
	}

	stats.UniqueUsersCount = len(users)
	if stats.TotalExtractions > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.TotalExtractions)
	}
	return stats, nil
}
