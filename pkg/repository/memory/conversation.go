package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

type conversationRepository struct {
	mu            sync.RWMutex
	conversations map[model.ConversationID]*model.Conversation
}

func newConversationRepository() *conversationRepository {
	return &conversationRepository{
		conversations: make(map[model.ConversationID]*model.Conversation),
	}
}

func copyConversation(c *model.Conversation) *model.Conversation {
	copied := *c
	if c.LastMessageAt != nil {
		t := *c.LastMessageAt
		copied.LastMessageAt = &t
	}
	return &copied
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyConversation(conv)
	if created.ID == "" {
		created.ID = model.NewConversationID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.conversations[created.ID] = created
	return copyConversation(created), nil
}

func (r *conversationRepository) Get(ctx context.Context, userID string, id model.ConversationID) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, exists := r.conversations[id]
	if !exists || conv.UserID != userID || !conv.IsActive {
		return nil, goerr.Wrap(ErrNotFound, "conversation not found", goerr.V("id", id), goerr.V("userID", userID))
	}

	return copyConversation(conv), nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Conversation, 0)
	for _, c := range r.conversations {
		if c.UserID == userID && c.IsActive {
			result = append(result, copyConversation(c))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *conversationRepository) IncrementMessageCount(ctx context.Context, userID string, id model.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, exists := r.conversations[id]
	if !exists || conv.UserID != userID {
		return goerr.Wrap(ErrNotFound, "conversation not found", goerr.V("id", id), goerr.V("userID", userID))
	}

	now := time.Now().UTC()
	conv.MessageCount++
	conv.LastMessageAt = &now
	conv.UpdatedAt = now
	return nil
}

type chatMessageRepository struct {
	mu       sync.RWMutex
	messages map[model.ConversationID][]*model.ChatMessage
}

func newChatMessageRepository() *chatMessageRepository {
	return &chatMessageRepository{
		messages: make(map[model.ConversationID][]*model.ChatMessage),
	}
}

func (r *chatMessageRepository) Create(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *msg
	if created.ID == "" {
		created.ID = model.NewChatMessageID()
	}
	if created.Timestamp.IsZero() {
		created.Timestamp = time.Now().UTC()
	}

	r.messages[created.ConversationID] = append(r.messages[created.ConversationID], &created)
	result := created
	return &result, nil
}

func (r *chatMessageRepository) ListByConversation(ctx context.Context, id model.ConversationID, limit int) ([]*model.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[id]
	result := make([]*model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		copied := *m
		result = append(result, &copied)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
