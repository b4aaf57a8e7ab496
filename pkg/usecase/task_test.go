package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"github.com/secmon-lab/coachmem/pkg/repository/memory"
	"github.com/secmon-lab/coachmem/pkg/service/heuristics"
	"github.com/secmon-lab/coachmem/pkg/usecase"
)

func newTaskUseCase(repo *memory.Memory, completer *mockCompleter) *usecase.TaskUseCase {
	if completer == nil {
		return usecase.NewTaskUseCase(repo, nil, heuristics.New(), testConfig())
	}
	return usecase.NewTaskUseCase(repo, completer, heuristics.New(), testConfig())
}

type panickingLogRepository struct {
	interfaces.ExtractionLogRepository
}

func (panickingLogRepository) Create(ctx context.Context, log *model.ExtractionLog) error {
	panic("log store crashed")
}

type panickingLogRepo struct {
	interfaces.Repository
}

func (panickingLogRepo) ExtractionLog() interfaces.ExtractionLogRepository {
	return panickingLogRepository{}
}

func TestTaskUseCase_ExtractByRules(t *testing.T) {
	uc := newTaskUseCase(memory.New(), nil)

	testCases := []struct {
		name     string
		message  string
		title    string
		priority types.Priority
		date     *model.Date
	}{
		{
			name:     "relative day",
			message:  "I need to call the dentist tomorrow. Ok.",
			title:    "The dentist tomorrow",
			priority: types.PriorityMedium,
			date:     &model.Date{Year: 2024, Month: time.January, Day: 11},
		},
		{
			name:     "weekday in the future",
			message:  "I must finish the report friday",
			title:    "The report friday",
			priority: types.PriorityMedium,
			date:     &model.Date{Year: 2024, Month: time.January, Day: 12},
		},
		{
			name:     "urgent keyword",
			message:  "Send the invoice, it is urgent!",
			title:    "The invoice, it is urgent",
			priority: types.PriorityHigh,
		},
		{
			name:     "french filler phrase",
			message:  "Je dois préparer la présentation demain.",
			title:    "La présentation demain",
			priority: types.PriorityMedium,
			date:     &model.Date{Year: 2024, Month: time.January, Day: 11},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tasks := uc.ExtractByRules(tc.message)
			gt.A(t, tasks).Length(1).Required()

			task := tasks[0]
			gt.Value(t, task.Title).Equal(tc.title)
			gt.Value(t, task.Priority).Equal(tc.priority)
			gt.Value(t, task.ExtractionMethod).Equal(types.ExtractionMethodRules)
			gt.Number(t, task.Confidence).Equal(0.7)
			if tc.date == nil {
				gt.Value(t, task.EstimatedDate).Nil()
			} else {
				gt.Value(t, task.EstimatedDate).NotNil().Required()
				gt.Value(t, *task.EstimatedDate).Equal(*tc.date)
			}
		})
	}

	t.Run("no action verb", func(t *testing.T) {
		gt.A(t, uc.ExtractByRules("The weather is nice today")).Length(0)
	})
}

const dentistModelOutput = "```json\n" + `{"tasks":[{"title":"Dentist tomorrow","description":"book a dentist visit","priority":"medium","estimated_date":null,"confidence":0.9}]}` + "\n```"

func TestTaskUseCase_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("merges duplicates and keeps the rule date", func(t *testing.T) {
		repo := memory.New()
		completer := respond(dentistModelOutput)
		uc := newTaskUseCase(repo, completer)

		result := uc.Extract(ctx, usecase.ExtractInput{
			Message: "I need to call the dentist tomorrow",
			Context: []model.ContextTurn{{Content: "my teeth hurt", IsUser: true}},
		})
		gt.Bool(t, result.IsOK()).True()
		gt.Value(t, result.Method).Equal(types.ExtractionMethodHybrid)
		gt.A(t, result.Tasks).Length(1).Required()

		task := result.Tasks[0]
		gt.Value(t, task.Title).Equal("Dentist tomorrow")
		gt.Value(t, task.ExtractionMethod).Equal(types.ExtractionMethodModel)
		gt.Value(t, task.EstimatedDate).NotNil().Required()
		gt.Value(t, task.EstimatedDate.String()).Equal("2024-01-11")
		gt.Number(t, result.Confidence).Equal(0.9)

		reqs := completer.Requests()
		gt.A(t, reqs).Length(1).Required()
		gt.S(t, reqs[0].UserPrompt).Contains("User: my teeth hurt")
		gt.S(t, reqs[0].UserPrompt).Contains("2024-01-10")
	})

	t.Run("enriches with goal, category and priority", func(t *testing.T) {
		repo := memory.New()
		goal, err := repo.Goal().Create(ctx, &model.Goal{
			UserID:      "u1",
			Title:       "Dentist visit",
			Description: "book dentist tomorrow",
			Status:      types.GoalStatusActive,
		})
		gt.NoError(t, err).Required()
		_, err = repo.Goal().Create(ctx, &model.Goal{UserID: "u1", Title: "Learn Go", Status: types.GoalStatusActive})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Profile().PutOnboarding(ctx, &model.OnboardingProfile{UserID: "u1"})).Required()
		gt.NoError(t, repo.Profile().PutBehavior(ctx, &model.BehaviorProfile{
			UserID:                  "u1",
			ProcrastinationTendency: types.TendencyHigh,
		})).Required()

		uc := newTaskUseCase(repo, respond(dentistModelOutput))
		result := uc.Extract(ctx, usecase.ExtractInput{
			Message: "I need to call the dentist tomorrow",
			UserID:  "u1",
		})
		gt.Bool(t, result.IsOK()).True()
		gt.A(t, result.Tasks).Length(1).Required()

		task := result.Tasks[0]
		gt.Value(t, task.RelatedGoalID).Equal(goal.ID)
		gt.Value(t, task.RelatedGoalTitle).Equal("Dentist visit")
		gt.Value(t, task.Category).Equal(usecase.DefaultTaskCategory)
		gt.Value(t, task.Priority).Equal(types.PriorityHigh)
	})

	t.Run("malformed model output keeps rule tasks", func(t *testing.T) {
		uc := newTaskUseCase(memory.New(), respond("I could not find any task"))

		result := uc.Extract(ctx, usecase.ExtractInput{Message: "I need to call the dentist tomorrow"})
		gt.Bool(t, result.IsDegraded()).True()
		gt.Value(t, result.Reason).Equal(model.ReasonMalformedOutput)
		gt.A(t, result.Tasks).Length(1).Required()
		gt.Value(t, result.Tasks[0].ExtractionMethod).Equal(types.ExtractionMethodRules)
	})

	t.Run("completion failure keeps rule tasks", func(t *testing.T) {
		uc := newTaskUseCase(memory.New(), failingCompleter())

		result := uc.Extract(ctx, usecase.ExtractInput{Message: "I need to call the dentist tomorrow"})
		gt.Bool(t, result.IsDegraded()).True()
		gt.Value(t, result.Reason).Equal(model.ReasonCompletionFailed)
		gt.A(t, result.Tasks).Length(1)
		gt.Number(t, result.Confidence).Equal(0.7)
	})

	t.Run("model panic degrades the pass only", func(t *testing.T) {
		completer := &mockCompleter{fn: func(model.CompletionRequest) (string, error) {
			panic("model client crashed")
		}}
		uc := newTaskUseCase(memory.New(), completer)

		result := uc.Extract(ctx, usecase.ExtractInput{Message: "I need to call the dentist tomorrow"})
		gt.Bool(t, result.IsDegraded()).True()
		gt.Value(t, result.Reason).Equal(model.ReasonInternalError)
		gt.A(t, result.Tasks).Length(1)
	})

	t.Run("no task gives zero confidence", func(t *testing.T) {
		uc := newTaskUseCase(memory.New(), respond(`{"tasks":[]}`))

		result := uc.Extract(ctx, usecase.ExtractInput{Message: "Hello there"})
		gt.Bool(t, result.IsOK()).True()
		gt.A(t, result.Tasks).Length(0)
		gt.Number(t, result.Confidence).Equal(0.0)
	})

	t.Run("panicking extraction log does not escape", func(t *testing.T) {
		repo := panickingLogRepo{Repository: memory.New()}
		uc := usecase.NewTaskUseCase(repo, nil, heuristics.New(), testConfig())

		result := uc.Extract(ctx, usecase.ExtractInput{Message: "I need to call the dentist tomorrow"})
		gt.Bool(t, result.IsOK()).True()
		gt.A(t, result.Tasks).Length(1)
	})

	t.Run("every extraction is logged", func(t *testing.T) {
		repo := memory.New()
		uc := newTaskUseCase(repo, nil)

		uc.Extract(ctx, usecase.ExtractInput{Message: "I need to call the dentist tomorrow", UserID: "u1"})
		uc.Extract(ctx, usecase.ExtractInput{Message: "Hello there", UserID: "u1"})

		stats := uc.ExtractionAnalytics(ctx, "u1", 0)
		gt.Bool(t, stats.IsOK()).True()
		gt.Number(t, stats.TotalExtractions).Equal(2)
		gt.Number(t, stats.TotalTasksFound).Equal(1)
		gt.Number(t, stats.UniqueUsersCount).Equal(1)
	})
}

func TestMergeTasks(t *testing.T) {
	ctx := context.Background()
	uc := newTaskUseCase(memory.New(), nil)
	date := model.Date{Year: 2024, Month: time.January, Day: 11}

	modelTasks := []*model.ExtractedTask{
		{Title: "Dentist tomorrow", ExtractionMethod: types.ExtractionMethodModel},
	}
	ruleTasks := []*model.ExtractedTask{
		{Title: "The dentist tomorrow", EstimatedDate: &date, ExtractionMethod: types.ExtractionMethodRules},
		{Title: "The groceries", ExtractionMethod: types.ExtractionMethodRules},
	}

	merged := usecase.MergeTasks(uc, ctx, modelTasks, ruleTasks)
	gt.A(t, merged).Length(2).Required()
	gt.Value(t, merged[0].Title).Equal("Dentist tomorrow")
	gt.Value(t, merged[0].EstimatedDate).NotNil().Required()
	gt.Value(t, *merged[0].EstimatedDate).Equal(date)
	gt.Value(t, merged[1].Title).Equal("The groceries")

	// inputs stay untouched
	gt.Value(t, modelTasks[0].EstimatedDate).Nil()
}

func TestJaccard(t *testing.T) {
	gt.Number(t, usecase.Jaccard(usecase.WordSet("The dentist tomorrow"), usecase.WordSet("dentist TOMORROW"))).Greater(0.6)
	gt.Number(t, usecase.Jaccard(usecase.WordSet("a b"), usecase.WordSet("c d"))).Equal(0.0)
	gt.Number(t, usecase.Jaccard(usecase.WordSet(""), usecase.WordSet("c d"))).Equal(0.0)
}

func TestCosineSimilarity(t *testing.T) {
	sim, ok := usecase.CosineSimilarity([]float32{1, 0}, []float32{1, 0})
	gt.Bool(t, ok).True()
	gt.Number(t, sim).Greater(0.99)

	_, ok = usecase.CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	gt.Bool(t, ok).False()

	sim, ok = usecase.CosineSimilarity([]float32{0, 0}, []float32{1, 0})
	gt.Bool(t, ok).True()
	gt.Number(t, sim).Equal(0.0)
}
