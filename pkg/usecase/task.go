package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"github.com/secmon-lab/coachmem/pkg/service/heuristics"
	"github.com/secmon-lab/coachmem/pkg/utils/errutil"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	ruleConfidence         = 0.7
	defaultModelConfidence = 0.5
	minSentenceRunes       = 5
	minTitleRunes          = 3
	modelContextTurns      = 5
	modelTemperature       = 0.3
	modelMaxTokens         = 500
	enrichmentGoalLimit    = 10

	// DefaultTaskCategory is used when the onboarding profile has no domain
	DefaultTaskCategory = "general"
)

var taskModelPrompt = mustInternalPrompt("task_model_pass")

// TaskUseCase extracts actionable tasks from chat messages with a
// keyword rule pass and a model pass run side by side
type TaskUseCase struct {
	repo      interfaces.Repository
	completer interfaces.Completer
	analyzer  *heuristics.Analyzer
	config    Config
}

// NewTaskUseCase creates a TaskUseCase. Without a completer only the
// rule pass runs.
func NewTaskUseCase(repo interfaces.Repository, completer interfaces.Completer, analyzer *heuristics.Analyzer, cfg Config) *TaskUseCase {
	return &TaskUseCase{
		repo:      repo,
		completer: completer,
		analyzer:  analyzer,
		config:    cfg.withDefaults(),
	}
}

// ExtractInput is one user message with its preceding turns
type ExtractInput struct {
	Message        string
	UserID         string
	ConversationID string
	Context        []model.ContextTurn
}

// Extract runs both passes, merges and enriches their tasks and logs the
// extraction. It never fails: problems surface as a degraded outcome.
func (uc *TaskUseCase) Extract(ctx context.Context, input ExtractInput) *model.ExtractionResult {
	result := uc.extract(ctx, input)
	uc.logExtraction(ctx, input, result)
	return result
}

func (uc *TaskUseCase) extract(ctx context.Context, input ExtractInput) (result *model.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			err := goerr.New("panic during task extraction", goerr.V("panic", fmt.Sprint(r)))
			_ = errutil.Handle(ctx, err, "task extraction failed")
			result = &model.ExtractionResult{
				Outcome: model.Degraded(model.ReasonInternalError, err),
				Tasks:   []*model.ExtractedTask{},
				Method:  types.ExtractionMethodHybrid,
			}
		}
	}()

	outcome := model.OK()
	degrade := func(reason model.Reason, err error) {
		if outcome.IsOK() {
			outcome = model.Degraded(reason, err)
		}
	}

	var ruleTasks, modelTasks []*model.ExtractedTask
	var ruleErr, modelErr error
	var modelReason model.Reason

	// A failing pass yields no task; the other pass still counts.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer recoverPass(&ruleErr, "rules")
		ruleTasks = uc.ExtractByRules(input.Message)
		return nil
	})
	eg.Go(func() error {
		defer recoverPass(&modelErr, "model")
		modelTasks, modelReason, modelErr = uc.extractByModel(egCtx, input)
		return nil
	})
	_ = eg.Wait()

	if ruleErr != nil {
		_ = errutil.Handle(ctx, ruleErr, "rule task extraction failed")
		ruleTasks = nil
		degrade(model.ReasonInternalError, ruleErr)
	}
	if modelErr != nil {
		if modelReason == "" {
			modelReason = model.ReasonInternalError
		}
		modelTasks = nil
		degrade(modelReason, modelErr)
	}

	tasks := uc.mergeTasks(ctx, modelTasks, ruleTasks)

	if input.UserID != "" && len(tasks) > 0 {
		enriched, err := uc.enrich(ctx, input.UserID, tasks)
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to enrich extracted tasks")
			degrade(model.ReasonEnrichmentFailed, err)
		} else {
			tasks = enriched
		}
	}

	return &model.ExtractionResult{
		Outcome:    outcome,
		Tasks:      tasks,
		Confidence: overallConfidence(tasks),
		Method:     types.ExtractionMethodHybrid,
	}
}

func recoverPass(err *error, pass string) {
	if r := recover(); r != nil {
		*err = goerr.New("panic in extraction pass", goerr.V("pass", pass), goerr.V("panic", fmt.Sprint(r)))
	}
}

// ExtractByRules splits the lower-cased message into sentences and
// turns every sentence holding an action verb into a task
func (uc *TaskUseCase) ExtractByRules(message string) []*model.ExtractedTask {
	today := model.DateOf(uc.config.Clock())
	tasks := []*model.ExtractedTask{}

	for _, sentence := range heuristics.SplitSentences(message) {
		if heuristics.RuneLen(sentence) < minSentenceRunes {
			continue
		}
		verb, ok := uc.analyzer.ActionVerb(sentence)
		if !ok {
			continue
		}
		title := uc.analyzer.TaskTitle(sentence, verb)
		if heuristics.RuneLen(title) < minTitleRunes {
			continue
		}

		task := &model.ExtractedTask{
			Title:            title,
			Description:      sentence,
			Priority:         uc.analyzer.Priority(sentence),
			Confidence:       ruleConfidence,
			ExtractionMethod: types.ExtractionMethodRules,
		}
		if d, ok := uc.analyzer.ResolveRelativeDate(sentence, today); ok {
			task.EstimatedDate = &d
		}
		tasks = append(tasks, task)
	}
	return tasks
}

type modelTask struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Priority      string   `json:"priority"`
	EstimatedDate *string  `json:"estimated_date"`
	Confidence    *float64 `json:"confidence"`
}

type modelTaskResponse struct {
	Tasks []modelTask `json:"tasks"`
}

// extractByModel asks the completer for tasks. Malformed output yields
// no task; the reason tells the caller which kind of failure happened.
func (uc *TaskUseCase) extractByModel(ctx context.Context, input ExtractInput) ([]*model.ExtractedTask, model.Reason, error) {
	if uc.completer == nil {
		return nil, "", nil
	}
	logger := logging.From(ctx)

	prompt, err := renderPrompt(taskModelPrompt, map[string]string{
		"Message": input.Message,
		"Context": contextTranscript(input.Context),
		"Today":   model.DateOf(uc.config.Clock()).String(),
	})
	if err != nil {
		return nil, model.ReasonInternalError, err
	}

	cctx, cancel := uc.config.callContext(ctx)
	raw, err := uc.completer.Complete(cctx, model.CompletionRequest{
		UserPrompt:  prompt,
		Temperature: modelTemperature,
		MaxTokens:   modelMaxTokens,
		JSON:        true,
	})
	cancel()
	if err != nil {
		_ = errutil.Handle(ctx, err, "model task extraction failed")
		return nil, model.ReasonCompletionFailed, err
	}

	var resp modelTaskResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &resp); err != nil {
		logger.Warn("model task extraction returned non-JSON output", "error", err, "response", raw)
		return nil, model.ReasonMalformedOutput, goerr.Wrap(err, "malformed model output")
	}

	tasks := make([]*model.ExtractedTask, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}

		confidence := defaultModelConfidence
		if t.Confidence != nil {
			confidence = math.Max(0, math.Min(*t.Confidence, 1))
		}

		task := &model.ExtractedTask{
			Title:            title,
			Description:      strings.TrimSpace(t.Description),
			Priority:         types.NormalizePriority(t.Priority),
			Confidence:       confidence,
			ExtractionMethod: types.ExtractionMethodModel,
		}
		if t.EstimatedDate != nil {
			raw := strings.TrimSpace(*t.EstimatedDate)
			if raw != "" && raw != "null" {
				if d, err := model.ParseDate(raw); err == nil {
					task.EstimatedDate = &d
				} else {
					logger.Debug("ignoring unparsable estimated date", "date", raw)
				}
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, "", nil
}

// contextTranscript renders the last turns as "User:"/"Assistant:" lines
func contextTranscript(turns []model.ContextTurn) string {
	if len(turns) > modelContextTurns {
		turns = turns[len(turns)-modelContextTurns:]
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := "Assistant"
		if t.IsUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// mergeTasks keeps every model task and adds rule tasks that do not
// duplicate a task already kept. A duplicate lends its date to the kept
// task when that one has none. On panic both lists are concatenated.
func (uc *TaskUseCase) mergeTasks(ctx context.Context, modelTasks, ruleTasks []*model.ExtractedTask) (merged []*model.ExtractedTask) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic while merging tasks, concatenating", "panic", r)
			merged = append(append([]*model.ExtractedTask{}, ruleTasks...), modelTasks...)
		}
	}()

	merged = make([]*model.ExtractedTask, 0, len(modelTasks)+len(ruleTasks))
	for _, t := range modelTasks {
		merged = append(merged, t.Clone())
	}

	for _, rt := range ruleTasks {
		duplicate := false
		for _, kept := range merged {
			if jaccard(wordSet(rt.Title), wordSet(kept.Title)) > uc.config.DuplicateThreshold {
				duplicate = true
				if kept.EstimatedDate == nil && rt.EstimatedDate != nil {
					d := *rt.EstimatedDate
					kept.EstimatedDate = &d
				}
				break
			}
		}
		if !duplicate {
			merged = append(merged, rt.Clone())
		}
	}
	return merged
}

// enrich links tasks to goals, sets their category and bumps priority
// for procrastinators. It works on copies: on error the input is intact.
func (uc *TaskUseCase) enrich(ctx context.Context, userID string, tasks []*model.ExtractedTask) ([]*model.ExtractedTask, error) {
	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	goals, err := uc.repo.Goal().ListActive(cctx, userID, enrichmentGoalLimit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list active goals", goerr.V("user_id", userID))
	}
	onboarding, err := uc.repo.Profile().GetOnboarding(cctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get onboarding profile", goerr.V("user_id", userID))
	}
	behavior, err := uc.repo.Profile().GetBehavior(cctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get behavior profile", goerr.V("user_id", userID))
	}

	enriched := make([]*model.ExtractedTask, 0, len(tasks))
	for _, t := range tasks {
		task := t.Clone()

		if goal := uc.bestGoal(task, goals); goal != nil {
			task.RelatedGoalID = goal.ID
			task.RelatedGoalTitle = goal.Title
		}
		if onboarding != nil {
			task.Category = orDefault(onboarding.Domain, DefaultTaskCategory)
		}
		if behavior != nil && behavior.ProcrastinationTendency == types.TendencyHigh {
			task.Priority = task.Priority.Raise()
		}

		enriched = append(enriched, task)
	}
	return enriched, nil
}

// bestGoal returns the goal whose words overlap most with the task,
// only when the overlap beats the goal match threshold
func (uc *TaskUseCase) bestGoal(task *model.ExtractedTask, goals []*model.Goal) *model.Goal {
	taskWords := wordSet(task.Title, task.Description)

	var best *model.Goal
	bestScore := 0.0
	for _, g := range goals {
		score := jaccard(taskWords, wordSet(g.Title, g.Description))
		if score > bestScore && score > uc.config.GoalMatchThreshold {
			best = g
			bestScore = score
		}
	}
	return best
}

// overallConfidence is the mean task confidence capped at 1
func overallConfidence(tasks []*model.ExtractedTask) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tasks {
		sum += t.Confidence
	}
	return math.Min(sum/float64(len(tasks)), 1.0)
}

func (uc *TaskUseCase) logExtraction(ctx context.Context, input ExtractInput, result *model.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			err := goerr.New("panic while logging task extraction", goerr.V("panic", fmt.Sprint(r)))
			_ = errutil.Handle(ctx, err, "failed to log task extraction")
		}
	}()

	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	log := &model.ExtractionLog{
		UserID:          input.UserID,
		ConversationID:  input.ConversationID,
		OriginalMessage: input.Message,
		TasksExtracted:  len(result.Tasks),
		Confidence:      result.Confidence,
		Tasks:           result.Tasks,
		Timestamp:       uc.config.Clock(),
	}
	if err := uc.repo.ExtractionLog().Create(cctx, log); err != nil {
		logging.From(ctx).Warn("failed to log task extraction", "error", err, "user_id", input.UserID)
	}
}

// ExtractionAnalytics aggregates the extraction logs of the last days.
// An empty userID covers all users.
func (uc *TaskUseCase) ExtractionAnalytics(ctx context.Context, userID string, days int) *model.ExtractionAnalytics {
	if days <= 0 {
		days = uc.config.AnalyticsDays
	}
	since := uc.config.Clock().AddDate(0, 0, -days)

	cctx, cancel := uc.config.callContext(ctx)
	defer cancel()

	stats, err := uc.repo.ExtractionLog().Stats(cctx, userID, since)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to aggregate extraction logs"), "failed to compute extraction analytics")
		return &model.ExtractionAnalytics{Outcome: model.Degraded(model.ReasonStorageFailed, err)}
	}
	stats.Outcome = model.OK()
	return stats
}
