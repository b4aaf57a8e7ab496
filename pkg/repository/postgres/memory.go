package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

const memoryColumns = `id, user_id, conversation_id, user_message, ai_response, message_type,
	COALESCE(embedding::text, ''), importance_score, topics, emotions, created_at`

type memoryRecordRepository struct {
	pool *pgxpool.Pool
}

func scanMemoryRecord(row pgx.Row) (*model.MemoryRecord, error) {
	var (
		r         model.MemoryRecord
		id        string
		embedding string
		topics    []string
		emotions  []string
	)
	if err := row.Scan(&id, &r.UserID, &r.ConversationID, &r.UserMessage, &r.AIResponse, &r.MessageType,
		&embedding, &r.ImportanceScore, &topics, &emotions, &r.Timestamp); err != nil {
		return nil, err
	}

	r.ID = model.MemoryRecordID(id)
	if embedding != "" {
		var vec pgvector.Vector
		if err := vec.Parse(embedding); err != nil {
			return nil, goerr.Wrap(err, "failed to parse embedding", goerr.V("id", id))
		}
		r.Embedding = vec.Slice()
	}
	r.Topics = make([]types.Topic, 0, len(topics))
	for _, t := range topics {
		r.Topics = append(r.Topics, types.Topic(t))
	}
	r.Emotions = make([]types.Emotion, 0, len(emotions))
	for _, e := range emotions {
		r.Emotions = append(r.Emotions, types.Emotion(e))
	}
	return &r, nil
}

func (r *memoryRecordRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*model.MemoryRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memory records")
	}
	defer rows.Close()

	records := make([]*model.MemoryRecord, 0)
	for rows.Next() {
		rec, err := scanMemoryRecord(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan memory record")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate memory records")
	}
	return records, nil
}

func (r *memoryRecordRepository) Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error) {
	created := *record
	if created.ID == "" {
		created.ID = model.NewMemoryRecordID()
	}
	if created.Timestamp.IsZero() {
		created.Timestamp = time.Now().UTC()
	}

	var embedding any
	if created.HasEmbedding() {
		embedding = pgvector.NewVector(created.Embedding)
	}
	topics := make([]string, 0, len(created.Topics))
	for _, t := range created.Topics {
		topics = append(topics, string(t))
	}
	emotions := make([]string, 0, len(created.Emotions))
	for _, e := range created.Emotions {
		emotions = append(emotions, string(e))
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_memories
			(id, user_id, conversation_id, user_message, ai_response, message_type,
			 embedding, importance_score, topics, emotions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(created.ID), created.UserID, created.ConversationID, created.UserMessage, created.AIResponse,
		created.MessageType, embedding, created.ImportanceScore, topics, emotions, created.Timestamp)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert memory record", goerr.V("userID", created.UserID))
	}

	return &created, nil
}

func (r *memoryRecordRepository) Get(ctx context.Context, id model.MemoryRecordID) (*model.MemoryRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+memoryColumns+` FROM conversation_memories WHERE id = $1`, string(id))
	rec, err := scanMemoryRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "memory record not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory record", goerr.V("id", id))
	}
	return rec, nil
}

func (r *memoryRecordRepository) ListRecentByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*model.MemoryRecord, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	return r.queryRecords(ctx, `
		SELECT `+memoryColumns+`
		FROM conversation_memories
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`, userID, since, limitArg)
}

func (r *memoryRecordRepository) ListByConversation(ctx context.Context, userID, conversationID string, limit int) ([]*model.MemoryRecord, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	return r.queryRecords(ctx, `
		SELECT `+memoryColumns+`
		FROM conversation_memories
		WHERE user_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC
		LIMIT $3`, userID, conversationID, limitArg)
}

func (r *memoryRecordRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversation_memories WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count memory records", goerr.V("userID", userID))
	}
	return count, nil
}

func (r *memoryRecordRepository) ListExpired(ctx context.Context, before time.Time, maxImportance float64) ([]*model.MemoryRecord, error) {
	return r.queryRecords(ctx, `
		SELECT `+memoryColumns+`
		FROM conversation_memories
		WHERE created_at < $1 AND importance_score < $2
		ORDER BY created_at ASC`, before, maxImportance)
}

func (r *memoryRecordRepository) DeleteExpired(ctx context.Context, before time.Time, maxImportance float64) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM conversation_memories WHERE created_at < $1 AND importance_score < $2`,
		before, maxImportance)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete expired memory records", goerr.V("before", before))
	}
	return int(tag.RowsAffected()), nil
}

func (r *memoryRecordRepository) Stats(ctx context.Context, userID string, since time.Time) (*model.MemoryAnalytics, error) {
	stats := &model.MemoryAnalytics{}
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(importance_score), 0),
		       COUNT(DISTINCT user_id), COUNT(DISTINCT conversation_id)
		FROM conversation_memories
		WHERE created_at >= $1 AND ($2 = '' OR user_id = $2)`, since, userID).
		Scan(&stats.TotalMemories, &stats.AvgImportance, &stats.UniqueUsersCount, &stats.UniqueConversationsCount)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to aggregate memory records", goerr.V("userID", userID))
	}
	return stats, nil
}
