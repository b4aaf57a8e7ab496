package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

type promptRepository struct {
	mu        sync.RWMutex
	templates map[types.PromptType]*model.PromptTemplate
	backups   []*model.PromptBackup
	usage     []*model.PromptUsage
}

func newPromptRepository() *promptRepository {
	return &promptRepository{
		templates: make(map[types.PromptType]*model.PromptTemplate),
	}
}

func (r *promptRepository) ListTemplates(ctx context.Context) ([]*model.PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.PromptTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		copied := *t
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result, nil
}

func (r *promptRepository) PutTemplate(ctx context.Context, template *model.PromptTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *template
	r.templates[template.Type] = &copied
	return nil
}

func (r *promptRepository) PutBackup(ctx context.Context, backup *model.PromptBackup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *backup
	r.backups = append(r.backups, &copied)
	return nil
}

func (r *promptRepository) ListBackups(ctx context.Context, promptType types.PromptType) ([]*model.PromptBackup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.PromptBackup, 0)
	for _, b := range r.backups {
		if b.Type == promptType {
			copied := *b
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *promptRepository) LogUsage(ctx context.Context, usage *model.PromptUsage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *usage
	r.usage = append(r.usage, &copied)
	return nil
}

func (r *promptRepository) UsageStats(ctx context.Context, since time.Time) ([]*model.PromptTypeUsage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[types.PromptType]int)
	users := make(map[types.PromptType]map[string]struct{})
	for _, u := range r.usage {
		if u.Timestamp.Before(since) {
			continue
		}
		counts[u.Type] += u.UsageCount
		if users[u.Type] == nil {
			users[u.Type] = make(map[string]struct{})
		}
		users[u.Type][u.UserID] = struct{}{}
	}

	result := make([]*model.PromptTypeUsage, 0, len(counts))
	for t, c := range counts {
		result = append(result, &model.PromptTypeUsage{
			Type:             t,
			UsageCount:       c,
			UniqueUsersCount: len(users[t]),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].UsageCount != result[j].UsageCount {
			return result[i].UsageCount > result[j].UsageCount
		}
		return result[i].Type < result[j].Type
	})
	return result, nil
}
