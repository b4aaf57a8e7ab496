package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

// MemoryRecordRepository defines the interface for MemoryRecord persistence
type MemoryRecordRepository interface {
	// Create stores a new record. ID and Timestamp are assigned when empty.
	Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error)

	// Get retrieves a record by ID
	Get(ctx context.Context, id model.MemoryRecordID) (*model.MemoryRecord, error)

	// ListRecentByUser returns up to limit records of the user, newest first.
	// A zero since disables the time bound.
	ListRecentByUser(ctx context.Context, userID string, since time.Time, limit int) ([]*model.MemoryRecord, error)

	// ListByConversation returns up to limit records of a conversation, oldest first
	ListByConversation(ctx context.Context, userID, conversationID string, limit int) ([]*model.MemoryRecord, error)

	// CountByUser returns the number of records stored for the user
	CountByUser(ctx context.Context, userID string) (int, error)

	// ListExpired returns records older than before with importance below maxImportance
	ListExpired(ctx context.Context, before time.Time, maxImportance float64) ([]*model.MemoryRecord, error)

	// DeleteExpired deletes records older than before with importance below maxImportance
	DeleteExpired(ctx context.Context, before time.Time, maxImportance float64) (int, error)

	// Stats aggregates records created at or after since. Empty userID covers all users.
	Stats(ctx context.Context, userID string, since time.Time) (*model.MemoryAnalytics, error)
}
