package interfaces

import (
	"errors"
)

// ErrNotFound is returned by repositories when an addressed entity does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for data persistence
type Repository interface {
	Memory() MemoryRecordRepository
	Goal() GoalRepository
	Todo() TodoRepository
	Profile() ProfileRepository
	ExtractionLog() ExtractionLogRepository
	Prompt() PromptRepository
	Conversation() ConversationRepository
	ChatMessage() ChatMessageRepository

	Close() error
}
