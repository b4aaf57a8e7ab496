package usecase

import "errors"

// Sentinel errors for use case layer
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message is empty")

	ErrUnknownPromptType = errors.New("unknown prompt type")
	ErrInvalidPrompt     = errors.New("invalid prompt template")

	// ErrNoCompleter is recorded in degraded outcomes when no model is configured
	ErrNoCompleter = errors.New("no completion model configured")
)
