package interfaces

import (
	"context"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

// ConversationRepository defines the interface for Conversation persistence
type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)

	// Get returns an active conversation owned by userID
	Get(ctx context.Context, userID string, id model.ConversationID) (*model.Conversation, error)

	// ListByUser returns active conversations, most recently updated first
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Conversation, error)

	// IncrementMessageCount atomically bumps the counter and last message time
	IncrementMessageCount(ctx context.Context, userID string, id model.ConversationID) error
}

// ChatMessageRepository defines the interface for ChatMessage persistence
type ChatMessageRepository interface {
	Create(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error)

	// ListByConversation returns up to limit messages, oldest first
	ListByConversation(ctx context.Context, id model.ConversationID, limit int) ([]*model.ChatMessage, error)
}
