package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
)

//go:embed prompt/*.md
var promptFS embed.FS

// DefaultPromptSet returns the built-in base prompts at version 1
func DefaultPromptSet() *model.PromptSet {
	set := model.NewPromptSet()
	for _, t := range types.AllPromptTypes() {
		data, err := promptFS.ReadFile("prompt/" + t.String() + ".md")
		if err != nil {
			panic(fmt.Sprintf("missing embedded prompt %s: %v", t, err))
		}
		set.Put(&model.PromptTemplate{
			Type:      t,
			Content:   string(data),
			Version:   1,
			UpdatedBy: "system",
		})
	}
	return set
}

// mustInternalPrompt parses an embedded prompt that is not user editable
func mustInternalPrompt(name string) *template.Template {
	data, err := promptFS.ReadFile("prompt/" + name + ".md")
	if err != nil {
		panic(fmt.Sprintf("missing embedded prompt %s: %v", name, err))
	}
	return template.Must(template.New(name).Parse(string(data)))
}

func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt", goerr.V("template", tmpl.Name()))
	}
	return buf.String(), nil
}

const (
	contextFallback = "User context is still being built"
	contextFailed   = "User context unavailable"
	goalsFallback   = "No active goals defined"
	goalsFailed     = "Goals unavailable"
	promptGoalLimit = 5
)

// PromptUseCase owns the live, versioned base prompts
type PromptUseCase struct {
	repo   interfaces.Repository
	config Config

	mu      sync.RWMutex
	prompts *model.PromptSet
}

// NewPromptUseCase creates a PromptUseCase serving a copy of prompts
func NewPromptUseCase(repo interfaces.Repository, prompts *model.PromptSet, cfg Config) *PromptUseCase {
	return &PromptUseCase{
		repo:    repo,
		config:  cfg.withDefaults(),
		prompts: prompts.Clone(),
	}
}

// Load overlays the persisted template versions on the live set
func (uc *PromptUseCase) Load(ctx context.Context) error {
	ctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	stored, err := uc.repo.Prompt().ListTemplates(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list prompt templates")
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	for _, t := range stored {
		if !t.Type.IsValid() {
			logging.From(ctx).Warn("ignoring stored prompt of unknown type", "prompt_type", t.Type)
			continue
		}
		if cur := uc.prompts.Get(t.Type); cur != nil && cur.Version > t.Version {
			continue
		}
		uc.prompts.Put(t)
	}
	return nil
}

// Get returns the live template of promptType
func (uc *PromptUseCase) Get(promptType types.PromptType) (*model.PromptTemplate, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()

	t := uc.prompts.Get(promptType)
	if t == nil {
		return nil, goerr.Wrap(ErrUnknownPromptType, "prompt not found", goerr.V("prompt_type", promptType))
	}
	return t, nil
}

// Build renders the template of promptType for userID. UserContext and
// CurrentGoals are filled from the repository; vars supply the rest
// (ConversationHistory, UserMessage, ...) and may override them.
func (uc *PromptUseCase) Build(ctx context.Context, promptType types.PromptType, userID string, vars map[string]string) (string, error) {
	current, err := uc.Get(promptType)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(promptType.String()).Option("missingkey=zero").Parse(current.Content)
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse prompt template", goerr.V("prompt_type", promptType), goerr.V("version", current.Version))
	}

	data := map[string]string{
		"UserContext":  uc.userContext(ctx, userID),
		"CurrentGoals": uc.currentGoals(ctx, userID),
	}
	for k, v := range vars {
		data[k] = v
	}

	out, err := renderPrompt(tmpl, data)
	if err != nil {
		return "", err
	}

	uc.logUsage(ctx, promptType, userID)
	return out, nil
}

func (uc *PromptUseCase) userContext(ctx context.Context, userID string) string {
	logger := logging.From(ctx)
	ctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	onboarding, err := uc.repo.Profile().GetOnboarding(ctx, userID)
	if err != nil {
		logger.Warn("failed to get onboarding profile", "error", err, "user_id", userID)
		return contextFailed
	}
	behavior, err := uc.repo.Profile().GetBehavior(ctx, userID)
	if err != nil {
		logger.Warn("failed to get behavior profile", "error", err, "user_id", userID)
		return contextFailed
	}

	var parts []string
	if onboarding != nil {
		parts = append(parts,
			"Main objective: "+orDefault(onboarding.Objective, "not defined"),
			"Domain: "+orDefault(onboarding.Domain, "not defined"),
			"Level: "+orDefault(onboarding.CurrentLevel, "not defined"),
		)
	}
	if behavior != nil {
		parts = append(parts,
			"Motivation style: "+orDefault(behavior.MotivationType, "balanced"),
			"Procrastination tendency: "+orDefault(behavior.ProcrastinationTendency.String(), "unknown"),
		)
	}

	if len(parts) == 0 {
		return contextFallback
	}
	return strings.Join(parts, " | ")
}

func (uc *PromptUseCase) currentGoals(ctx context.Context, userID string) string {
	ctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	goals, err := uc.repo.Goal().ListActive(ctx, userID, promptGoalLimit)
	if err != nil {
		logging.From(ctx).Warn("failed to list active goals", "error", err, "user_id", userID)
		return goalsFailed
	}
	if len(goals) == 0 {
		return goalsFallback
	}

	lines := make([]string, 0, len(goals))
	for _, g := range goals {
		lines = append(lines, fmt.Sprintf("- %s: %s", orDefault(g.Title, "Untitled"), g.Description))
	}
	return strings.Join(lines, "\n")
}

func (uc *PromptUseCase) logUsage(ctx context.Context, promptType types.PromptType, userID string) {
	ctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	usage := &model.PromptUsage{
		Type:       promptType,
		UserID:     userID,
		Timestamp:  uc.config.Clock(),
		UsageCount: 1,
	}
	if err := uc.repo.Prompt().LogUsage(ctx, usage); err != nil {
		logging.From(ctx).Warn("failed to log prompt usage", "error", err, "prompt_type", promptType)
	}
}

// Update replaces the content of a base prompt. The previous content is
// backed up before anything changes; the live copy is swapped last.
func (uc *PromptUseCase) Update(ctx context.Context, promptType types.PromptType, content, updatedBy string) (*model.PromptTemplate, error) {
	if !promptType.IsValid() {
		return nil, goerr.Wrap(ErrUnknownPromptType, "cannot update prompt", goerr.V("prompt_type", promptType))
	}
	if strings.TrimSpace(content) == "" {
		return nil, goerr.Wrap(ErrInvalidPrompt, "prompt content is empty", goerr.V("prompt_type", promptType))
	}
	if _, err := template.New(promptType.String()).Parse(content); err != nil {
		return nil, goerr.Wrap(ErrInvalidPrompt, "prompt does not parse", goerr.V("prompt_type", promptType), goerr.V("cause", err.Error()))
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	ctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	now := uc.config.Clock()
	var oldContent string
	var oldVersion int
	if cur := uc.prompts.Get(promptType); cur != nil {
		oldContent = cur.Content
		oldVersion = cur.Version
	}

	backup := &model.PromptBackup{
		Type:       promptType,
		OldPrompt:  oldContent,
		NewPrompt:  content,
		OldVersion: oldVersion,
		UpdatedBy:  updatedBy,
		UpdatedAt:  now,
	}
	if err := uc.repo.Prompt().PutBackup(ctx, backup); err != nil {
		return nil, goerr.Wrap(err, "failed to back up prompt", goerr.V("prompt_type", promptType))
	}

	next := &model.PromptTemplate{
		Type:      promptType,
		Content:   content,
		Version:   oldVersion + 1,
		UpdatedBy: updatedBy,
		UpdatedAt: now,
	}
	if err := uc.repo.Prompt().PutTemplate(ctx, next); err != nil {
		return nil, goerr.Wrap(err, "failed to save prompt", goerr.V("prompt_type", promptType))
	}

	uc.prompts.Put(next)
	logging.From(ctx).Info("prompt updated",
		"prompt_type", promptType,
		"version", next.Version,
		"updated_by", updatedBy,
	)
	return next, nil
}

// Backups lists the saved previous versions of a prompt, oldest first
func (uc *PromptUseCase) Backups(ctx context.Context, promptType types.PromptType) ([]*model.PromptBackup, error) {
	ctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	backups, err := uc.repo.Prompt().ListBackups(ctx, promptType)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list prompt backups", goerr.V("prompt_type", promptType))
	}
	return backups, nil
}

// Analytics aggregates prompt usage over the last days
func (uc *PromptUseCase) Analytics(ctx context.Context, days int) *model.PromptAnalytics {
	if days <= 0 {
		days = uc.config.AnalyticsDays
	}
	result := &model.PromptAnalytics{
		Outcome:    model.OK(),
		PeriodDays: days,
		Prompts:    []*model.PromptTypeUsage{},
	}

	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	since := uc.config.Clock().AddDate(0, 0, -days)
	stats, err := uc.repo.Prompt().UsageStats(cctx, since)
	if err != nil {
		logging.From(ctx).Error("failed to aggregate prompt usage", "error", err)
		result.Outcome = model.Degraded(model.ReasonStorageFailed, err)
		return result
	}

	result.Prompts = stats
	for _, s := range stats {
		result.TotalUsage += s.UsageCount
	}
	return result
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
