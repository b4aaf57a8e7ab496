package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

type promptRepository struct {
	pool *pgxpool.Pool
}

func (r *promptRepository) ListTemplates(ctx context.Context) ([]*model.PromptTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT prompt_type, content, version, updated_by, updated_at
		FROM prompt_templates ORDER BY prompt_type`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query prompt templates")
	}
	defer rows.Close()

	result := make([]*model.PromptTemplate, 0)
	for rows.Next() {
		var (
			t          model.PromptTemplate
			promptType string
		)
		if err := rows.Scan(&promptType, &t.Content, &t.Version, &t.UpdatedBy, &t.UpdatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan prompt template")
		}
		t.Type = types.PromptType(promptType)
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate prompt templates")
	}
	return result, nil
}

func (r *promptRepository) PutTemplate(ctx context.Context, template *model.PromptTemplate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prompt_templates (prompt_type, content, version, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (prompt_type) DO UPDATE SET
			content = EXCLUDED.content,
			version = EXCLUDED.version,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`,
		string(template.Type), template.Content, template.Version, template.UpdatedBy, template.UpdatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to put prompt template", goerr.V("type", template.Type))
	}
	return nil
}

func (r *promptRepository) PutBackup(ctx context.Context, backup *model.PromptBackup) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prompt_backups (prompt_type, old_prompt, new_prompt, old_version, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(backup.Type), backup.OldPrompt, backup.NewPrompt, backup.OldVersion, backup.UpdatedBy, backup.UpdatedAt)
	if err != nil {
		return goerr.Wrap(err, "failed to insert prompt backup", goerr.V("type", backup.Type))
	}
	return nil
}

func (r *promptRepository) ListBackups(ctx context.Context, promptType types.PromptType) ([]*model.PromptBackup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT old_prompt, new_prompt, old_version, updated_by, updated_at
		FROM prompt_backups WHERE prompt_type = $1 ORDER BY id`, string(promptType))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query prompt backups", goerr.V("type", promptType))
	}
	defer rows.Close()

	result := make([]*model.PromptBackup, 0)
	for rows.Next() {
		b := model.PromptBackup{Type: promptType}
		if err := rows.Scan(&b.OldPrompt, &b.NewPrompt, &b.OldVersion, &b.UpdatedBy, &b.UpdatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan prompt backup")
		}
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate prompt backups")
	}
	return result, nil
}

func (r *promptRepository) LogUsage(ctx context.Context, usage *model.PromptUsage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prompt_usage_logs (prompt_type, user_id, usage_count, created_at)
		VALUES ($1, $2, $3, $4)`,
		string(usage.Type), usage.UserID, usage.UsageCount, usage.Timestamp)
	if err != nil {
		return goerr.Wrap(err, "failed to insert prompt usage", goerr.V("type", usage.Type))
	}
	return nil
}

func (r *promptRepository) UsageStats(ctx context.Context, since time.Time) ([]*model.PromptTypeUsage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT prompt_type, SUM(usage_count), COUNT(DISTINCT user_id)
		FROM prompt_usage_logs
		WHERE created_at >= $1
		GROUP BY prompt_type
		ORDER BY SUM(usage_count) DESC, prompt_type`, since)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to aggregate prompt usage")
	}
	defer rows.Close()

	result := make([]*model.PromptTypeUsage, 0)
	for rows.Next() {
		var (
			u          model.PromptTypeUsage
			promptType string
		)
		if err := rows.Scan(&promptType, &u.UsageCount, &u.UniqueUsersCount); err != nil {
			return nil, goerr.Wrap(err, "failed to scan prompt usage")
		}
		u.Type = types.PromptType(promptType)
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate prompt usage")
	}
	return result, nil
}
