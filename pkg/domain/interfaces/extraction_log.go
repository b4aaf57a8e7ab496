package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

// ExtractionLogRepository defines the interface for ExtractionLog persistence
type ExtractionLogRepository interface {
	Create(ctx context.Context, log *model.ExtractionLog) error

	// Stats aggregates logs at or after since. Empty userID covers all users.
	Stats(ctx context.Context, userID string, since time.Time) (*model.ExtractionAnalytics, error)
}
