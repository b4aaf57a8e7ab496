package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// PromptRepository persists prompt templates, their backups and usage logs
type PromptRepository interface {
	// ListTemplates returns the latest stored version of every template
	ListTemplates(ctx context.Context) ([]*model.PromptTemplate, error)
	PutTemplate(ctx context.Context, template *model.PromptTemplate) error
	PutBackup(ctx context.Context, backup *model.PromptBackup) error
	ListBackups(ctx context.Context, promptType types.PromptType) ([]*model.PromptBackup, error)

	LogUsage(ctx context.Context, usage *model.PromptUsage) error
	UsageStats(ctx context.Context, since time.Time) ([]*model.PromptTypeUsage, error)
}
