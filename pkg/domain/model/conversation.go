package model

import (
	"time"

	"github.com/google/uuid"
)

// ConversationID is a UUID-based identifier for Conversation
type ConversationID string

// NewConversationID generates a new UUID v4 ConversationID
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

func (id ConversationID) String() string {
	return string(id)
}

// Conversation is a chat thread owned by one user
type Conversation struct {
	ID            ConversationID `json:"id"`
	UserID        string         `json:"user_id"`
	Title         string         `json:"title"`
	IsActive      bool           `json:"is_active"`
	MessageCount  int64          `json:"message_count"`
	LastMessageAt *time.Time     `json:"last_message_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ChatMessageID is a UUID-based identifier for ChatMessage
type ChatMessageID string

// NewChatMessageID generates a new UUID v4 ChatMessageID
func NewChatMessageID() ChatMessageID {
	return ChatMessageID(uuid.New().String())
}

// ChatMessage is a persisted user message with the assistant reply
type ChatMessage struct {
	ID             ChatMessageID  `json:"id"`
	ConversationID ConversationID `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Message        string         `json:"message"`
	Response       string         `json:"response"`
	Timestamp      time.Time      `json:"timestamp"`
}

// ChatReply is what the chat flow returns to its caller
type ChatReply struct {
	ConversationID       ConversationID `json:"conversation_id"`
	Message              string         `json:"message"`
	Response             string         `json:"response"`
	TasksCreated         []*Todo        `json:"tasks_extracted"`
	ExtractionConfidence float64        `json:"extraction_confidence"`
	MemoryStored         bool           `json:"memory_stored"`
	Timestamp            time.Time      `json:"timestamp"`
}

// CompletionRequest is a single-turn text completion request
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// JSON asks the provider for a JSON object when it supports it
	JSON bool
}
