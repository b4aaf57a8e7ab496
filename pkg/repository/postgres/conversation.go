package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

const conversationColumns = `id, user_id, title, is_active, message_count, last_message_at, created_at, updated_at`

type conversationRepository struct {
	pool *pgxpool.Pool
}

func scanConversation(row pgx.Row) (*model.Conversation, error) {
	var (
		c  model.Conversation
		id string
	)
	if err := row.Scan(&id, &c.UserID, &c.Title, &c.IsActive, &c.MessageCount, &c.LastMessageAt,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ID = model.ConversationID(id)
	return &c, nil
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	now := time.Now().UTC()
	created := *conv
	if created.ID == "" {
		created.ID = model.NewConversationID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(created.ID), created.UserID, created.Title, created.IsActive, created.MessageCount,
		created.LastMessageAt, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert conversation", goerr.V("userID", created.UserID))
	}
	return &created, nil
}

func (r *conversationRepository) Get(ctx context.Context, userID string, id model.ConversationID) (*model.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations WHERE id = $1 AND user_id = $2 AND is_active`, string(id), userID)
	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "conversation not found", goerr.V("id", id), goerr.V("userID", userID))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}
	return c, nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Conversation, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE user_id = $1 AND is_active
		ORDER BY updated_at DESC
		LIMIT $2`, userID, limitArg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query conversations", goerr.V("userID", userID))
	}
	defer rows.Close()

	result := make([]*model.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan conversation")
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate conversations")
	}
	return result, nil
}

func (r *conversationRepository) IncrementMessageCount(ctx context.Context, userID string, id model.ConversationID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations
		SET message_count = message_count + 1, last_message_at = now(), updated_at = now()
		WHERE id = $1 AND user_id = $2`, string(id), userID)
	if err != nil {
		return goerr.Wrap(err, "failed to increment message count", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(ErrNotFound, "conversation not found", goerr.V("id", id), goerr.V("userID", userID))
	}
	return nil
}

type chatMessageRepository struct {
	pool *pgxpool.Pool
}

func (r *chatMessageRepository) Create(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	created := *msg
	if created.ID == "" {
		created.ID = model.NewChatMessageID()
	}
	if created.Timestamp.IsZero() {
		created.Timestamp = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (id, conversation_id, user_id, message, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(created.ID), string(created.ConversationID), created.UserID, created.Message, created.Response, created.Timestamp)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert chat message", goerr.V("conversationID", created.ConversationID))
	}
	return &created, nil
}

func (r *chatMessageRepository) ListByConversation(ctx context.Context, id model.ConversationID, limit int) ([]*model.ChatMessage, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, user_id, message, response, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2`, string(id), limitArg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chat messages", goerr.V("conversationID", id))
	}
	defer rows.Close()

	result := make([]*model.ChatMessage, 0)
	for rows.Next() {
		var (
			m             model.ChatMessage
			msgID, convID string
		)
		if err := rows.Scan(&msgID, &convID, &m.UserID, &m.Message, &m.Response, &m.Timestamp); err != nil {
			return nil, goerr.Wrap(err, "failed to scan chat message")
		}
		m.ID = model.ChatMessageID(msgID)
		m.ConversationID = model.ConversationID(convID)
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chat messages")
	}
	return result, nil
}
