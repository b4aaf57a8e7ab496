package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

type extractionLogRepository struct {
	pool *pgxpool.Pool
}

func (r *extractionLogRepository) Create(ctx context.Context, log *model.ExtractionLog) error {
	created := *log
	if created.ID == "" {
		created.ID = model.NewExtractionLogID()
	}
	if created.Timestamp.IsZero() {
		created.Timestamp = time.Now().UTC()
	}
	tasks := created.Tasks
	if tasks == nil {
		tasks = []*model.ExtractedTask{}
	}

	raw, err := json.Marshal(tasks)
	if err != nil {
		return goerr.Wrap(err, "failed to encode extracted tasks")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO extraction_logs (id, user_id, conversation_id, original_message, tasks_extracted, confidence, tasks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(created.ID), created.UserID, created.ConversationID, created.OriginalMessage,
		created.TasksExtracted, created.Confidence, string(raw), created.Timestamp)
	if err != nil {
		return goerr.Wrap(err, "failed to insert extraction log", goerr.V("userID", created.UserID))
	}
	return nil
}

func (r *extractionLogRepository) Stats(ctx context.Context, userID string, since time.Time) (*model.ExtractionAnalytics, error) {
	stats := &model.ExtractionAnalytics{}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(tasks_extracted), 0), COALESCE(AVG(confidence), 0), COUNT(DISTINCT user_id)
		FROM extraction_logs
		WHERE created_at >= $1 AND ($2 = '' OR user_id = $2)`, since, userID).
		Scan(&stats.TotalExtractions, &stats.TotalTasksFound, &stats.AvgConfidence, &stats.UniqueUsersCount)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to aggregate extraction logs", goerr.V("userID", userID))
	}
	return stats, nil
}
