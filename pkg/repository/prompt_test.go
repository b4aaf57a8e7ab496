package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

func runPromptRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("PutTemplate keeps the latest version per type", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now().UTC()

		gt.NoError(t, repo.Prompt().PutTemplate(ctx, &model.PromptTemplate{
			Type: types.PromptTypeCoachingBase, Content: "v1", Version: 1, UpdatedBy: "admin", UpdatedAt: now,
		})).Required()
		gt.NoError(t, repo.Prompt().PutTemplate(ctx, &model.PromptTemplate{
			Type: types.PromptTypeCoachingBase, Content: "v2", Version: 2, UpdatedBy: "admin", UpdatedAt: now,
		})).Required()

		templates, err := repo.Prompt().ListTemplates(ctx)
		gt.NoError(t, err).Required()

		var found *model.PromptTemplate
		for _, tmpl := range templates {
			if tmpl.Type == types.PromptTypeCoachingBase {
				found = tmpl
			}
		}
		gt.Value(t, found).NotNil()
		gt.Value(t, found.Content).Equal("v2")
		gt.Value(t, found.Version).Equal(2)
	})

	t.Run("backups are listed per type", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		editor := uniqueUser("editor")

		gt.NoError(t, repo.Prompt().PutBackup(ctx, &model.PromptBackup{
			Type: types.PromptTypeTaskExtraction, OldPrompt: "old", NewPrompt: "new", OldVersion: 1, UpdatedBy: editor, UpdatedAt: time.Now().UTC(),
		})).Required()

		backups, err := repo.Prompt().ListBackups(ctx, types.PromptTypeTaskExtraction)
		gt.NoError(t, err).Required()

		var mine []*model.PromptBackup
		for _, b := range backups {
			if b.UpdatedBy == editor {
				mine = append(mine, b)
			}
		}
		gt.Array(t, mine).Length(1)
		gt.Value(t, mine[0].OldPrompt).Equal("old")
		gt.Value(t, mine[0].NewPrompt).Equal("new")
	})

	t.Run("UsageStats counts usage and distinct users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		since := time.Now().UTC().Add(-time.Minute)
		u1, u2 := uniqueUser("u1"), uniqueUser("u2")

		before, err := repo.Prompt().UsageStats(ctx, since)
		gt.NoError(t, err).Required()
		base := map[types.PromptType]*model.PromptTypeUsage{}
		for _, u := range before {
			base[u.Type] = u
		}

		for _, userID := range []string{u1, u1, u2} {
			gt.NoError(t, repo.Prompt().LogUsage(ctx, &model.PromptUsage{
				Type: types.PromptTypeMemorySynthesis, UserID: userID, Timestamp: time.Now().UTC(), UsageCount: 1,
			})).Required()
		}

		stats, err := repo.Prompt().UsageStats(ctx, since)
		gt.NoError(t, err).Required()

		var synthesis *model.PromptTypeUsage
		for _, u := range stats {
			if u.Type == types.PromptTypeMemorySynthesis {
				synthesis = u
			}
		}
		gt.Value(t, synthesis).NotNil()

		wantCount, wantUsers := 3, 2
		if b, ok := base[types.PromptTypeMemorySynthesis]; ok {
			wantCount += b.UsageCount
			wantUsers += b.UniqueUsersCount
		}
		gt.Value(t, synthesis.UsageCount).Equal(wantCount)
		gt.Value(t, synthesis.UniqueUsersCount).Equal(wantUsers)
	})
}

func TestPromptRepository(t *testing.T) {
	runAllBackends(t, runPromptRepositoryTest)
}
