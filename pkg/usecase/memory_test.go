package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"github.com/secmon-lab/coachmem/pkg/repository/memory"
	"github.com/secmon-lab/coachmem/pkg/usecase"
)

func TestMemoryUseCase_Store(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a scored and tagged record", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)

		result := uc.Memory.Store(ctx, usecase.StoreInput{
			UserID:         "u1",
			ConversationID: "c1",
			Message:        "I am happy, my startup project is an important goal",
			Response:       "Great, let's plan the next decision",
		})
		gt.Bool(t, result.IsOK()).True()
		gt.Bool(t, result.Stored).True()
		gt.Value(t, result.Record).NotNil().Required()

		rec := result.Record
		gt.Value(t, rec.MessageType).Equal(usecase.DefaultMessageType)
		gt.Value(t, rec.Timestamp).Equal(testNow)
		gt.Bool(t, rec.ImportanceScore > 0).True()
		gt.Bool(t, rec.ImportanceScore <= 1).True()
		gt.A(t, rec.Topics).Has(types.TopicBusiness)
		gt.A(t, rec.Emotions).Has(types.EmotionPositive)
		gt.Number(t, len(rec.Embedding)).Equal(256)

		stored, err := repo.Memory().Get(ctx, rec.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.UserMessage).Equal("I am happy, my startup project is an important goal")
	})

	t.Run("embedding failure degrades without storing", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo, usecase.WithEmbedder(failingEmbedder{}))

		result := uc.Memory.Store(ctx, usecase.StoreInput{UserID: "u1", Message: "hello", Response: "hi"})
		gt.Bool(t, result.IsDegraded()).True()
		gt.Value(t, result.Reason).Equal(model.ReasonEmbeddingFailed)
		gt.Bool(t, result.Stored).False()

		count, err := repo.Memory().CountByUser(ctx, "u1")
		gt.NoError(t, err)
		gt.Number(t, count).Equal(0)
	})

	t.Run("post-store hook panic does not escape", func(t *testing.T) {
		repo := memory.New()
		uc := newUseCases(repo)
		called := false
		uc.Memory.AddPostStoreHook(func(ctx context.Context, record *model.MemoryRecord) {
			called = true
			panic("boom")
		})

		result := uc.Memory.Store(ctx, usecase.StoreInput{UserID: "u1", Message: "hello", Response: "hi"})
		gt.Bool(t, result.IsOK()).True()
		gt.Bool(t, called).True()
	})
}

func TestMemoryUseCase_RetrieveRelevant(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *usecase.UseCases {
		repo := memory.New()
		uc := newUseCases(repo)
		for _, in := range []usecase.StoreInput{
			{UserID: "u1", Message: "I want to learn Go programming", Response: "Start with the tour of Go"},
			{UserID: "u1", Message: "Buy groceries for dinner", Response: "Remember milk and eggs"},
			{UserID: "u2", Message: "I want to learn Go programming", Response: "Read effective Go"},
		} {
			gt.Bool(t, uc.Memory.Store(ctx, in).IsOK()).True()
		}
		return uc
	}

	t.Run("returns similar memories of the user only", func(t *testing.T) {
		uc := setup(t)

		result := uc.Memory.RetrieveRelevant(ctx, usecase.RetrieveInput{UserID: "u1", Query: "learn Go programming"})
		gt.Bool(t, result.IsOK()).True()
		gt.A(t, result.Memories).Length(1).Required()
		gt.Value(t, result.Memories[0].Record.UserID).Equal("u1")
		gt.Value(t, result.Memories[0].Record.UserMessage).Equal("I want to learn Go programming")
		gt.Bool(t, result.Memories[0].Similarity >= 0.3).True()
	})

	t.Run("empty query is skipped", func(t *testing.T) {
		uc := setup(t)

		result := uc.Memory.RetrieveRelevant(ctx, usecase.RetrieveInput{UserID: "u1", Query: "   "})
		gt.Bool(t, result.IsSkipped()).True()
		gt.Value(t, result.Reason).Equal(model.ReasonEmptyQuery)
		gt.A(t, result.Memories).Length(0)
	})

	t.Run("embedding failure degrades to empty result", func(t *testing.T) {
		uc := newUseCases(memory.New(), usecase.WithEmbedder(failingEmbedder{}))

		result := uc.Memory.RetrieveRelevant(ctx, usecase.RetrieveInput{UserID: "u1", Query: "anything"})
		gt.Bool(t, result.IsDegraded()).True()
		gt.Value(t, result.Reason).Equal(model.ReasonEmbeddingFailed)
		gt.A(t, result.Memories).Length(0)
	})
}

func TestMemoryUseCase_RetrieveRelevant_RecentWindow(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := newUseCases(repo, usecase.WithEmbedder(vectorEmbedder{}))

	_, err := repo.Memory().Create(ctx, &model.MemoryRecord{
		UserID:          "u1",
		UserMessage:     "old matching record",
		Embedding:       []float32{1, 0},
		ImportanceScore: 0.5,
		Timestamp:       testNow.Add(-100 * time.Hour),
	})
	gt.NoError(t, err).Required()

	result := uc.Memory.RetrieveRelevant(ctx, usecase.RetrieveInput{UserID: "u1", Query: "match"})
	gt.A(t, result.Memories).Length(1).Required()
	gt.Value(t, result.Memories[0].Record.UserMessage).Equal("old matching record")

	for i := range 50 {
		_, err := repo.Memory().Create(ctx, &model.MemoryRecord{
			UserID:      "u1",
			UserMessage: "newer unrelated record",
			Embedding:   []float32{0, 1},
			Timestamp:   testNow.Add(-time.Duration(i) * time.Minute),
		})
		gt.NoError(t, err).Required()
	}

	result = uc.Memory.RetrieveRelevant(ctx, usecase.RetrieveInput{UserID: "u1", Query: "match"})
	gt.Bool(t, result.IsOK()).True()
	for _, m := range result.Memories {
		gt.Value(t, m.Record.UserMessage).NotEqual("old matching record")
	}
	gt.A(t, result.Memories).Length(0)
}

func TestMemoryUseCase_RetrieveRelevant_MinSimilarity(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	uc := newUseCases(repo, usecase.WithEmbedder(vectorEmbedder{}))

	_, err := repo.Memory().Create(ctx, &model.MemoryRecord{
		UserID:      "u1",
		UserMessage: "orthogonal record",
		Embedding:   []float32{0, 1},
		Timestamp:   testNow,
	})
	gt.NoError(t, err).Required()

	t.Run("nil takes the configured floor", func(t *testing.T) {
		result := uc.Memory.RetrieveRelevant(ctx, usecase.RetrieveInput{UserID: "u1", Query: "match"})
		gt.A(t, result.Memories).Length(0)
	})

	t.Run("explicit zero disables the floor", func(t *testing.T) {
		floor := 0.0
		result := uc.Memory.RetrieveRelevant(ctx, usecase.RetrieveInput{UserID: "u1", Query: "match", MinSimilarity: &floor})
		gt.A(t, result.Memories).Length(1).Required()
		gt.Value(t, result.Memories[0].Similarity).Equal(0.0)
	})

	t.Run("explicit value above the default is honored", func(t *testing.T) {
		floor := 0.99
		result := uc.Memory.RetrieveRelevant(ctx, usecase.RetrieveInput{UserID: "u1", Query: "match", MinSimilarity: &floor})
		gt.A(t, result.Memories).Length(0)
	})
}

func TestRankMemories(t *testing.T) {
	query := []float32{1, 0}
	records := []*model.MemoryRecord{
		{ID: "same-low", Embedding: []float32{1, 0}, ImportanceScore: 0},
		{ID: "same-high", Embedding: []float32{1, 0}, ImportanceScore: 1},
		{ID: "orthogonal", Embedding: []float32{0, 1}, ImportanceScore: 1},
		{ID: "no-embedding", ImportanceScore: 1},
		{ID: "wrong-dimension", Embedding: []float32{1, 0, 0}, ImportanceScore: 1},
	}

	ranked := usecase.RankMemories(query, records, 0.3, 5)
	gt.A(t, ranked).Length(2).Required()
	gt.Value(t, ranked[0].Record.ID).Equal(model.MemoryRecordID("same-high"))
	gt.Value(t, ranked[1].Record.ID).Equal(model.MemoryRecordID("same-low"))
	gt.Number(t, ranked[0].Score).Greater(0.99)
	gt.Number(t, ranked[1].Score).Less(0.71)

	gt.A(t, usecase.RankMemories(query, records, 0.3, 1)).Length(1)
}

func TestMemoryUseCase_Summarize(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, repo *memory.Memory) {
		for i, msg := range []string{"I want to run a marathon", "I will train three times a week"} {
			_, err := repo.Memory().Create(ctx, &model.MemoryRecord{
				UserID:         "u1",
				ConversationID: "c1",
				UserMessage:    msg,
				AIResponse:     "Sounds good",
				Timestamp:      testNow.Add(time.Duration(i) * 3 * time.Hour),
			})
			gt.NoError(t, err).Required()
		}
	}

	t.Run("parses the model summary", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo)
		completer := respond("```json\n" + `{"summary":"Marathon plan","key_points":["train"],"user_objectives":["marathon"],"commitments":["3 runs a week"],"next_actions":[]}` + "\n```")
		uc := newUseCases(repo, usecase.WithCompleter(completer))

		summary := uc.Memory.Summarize(ctx, "u1", "c1", 0)
		gt.Bool(t, summary.IsOK()).True()
		gt.Value(t, summary.Summary).Equal("Marathon plan")
		gt.A(t, summary.KeyPoints).Equal([]string{"train"})
		gt.A(t, summary.Commitments).Equal([]string{"3 runs a week"})
		gt.A(t, summary.NextActions).Length(0)
		gt.Number(t, summary.MessageCount).Equal(2)
		gt.Value(t, summary.TimeSpan).Equal("3 hour(s)")

		reqs := completer.Requests()
		gt.A(t, reqs).Length(1).Required()
		gt.Bool(t, reqs[0].JSON).True()
		gt.S(t, reqs[0].UserPrompt).Contains("User: I want to run a marathon")
	})

	t.Run("no history is skipped", func(t *testing.T) {
		uc := newUseCases(memory.New(), usecase.WithCompleter(respond("{}")))

		summary := uc.Memory.Summarize(ctx, "u1", "missing", 0)
		gt.Bool(t, summary.IsSkipped()).True()
		gt.Value(t, summary.Reason).Equal(model.ReasonNoHistory)
		gt.Value(t, summary.Summary).Equal("No conversation history available")
	})

	t.Run("non-JSON output keeps the raw text", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo)
		uc := newUseCases(repo, usecase.WithCompleter(respond("The user wants to run a marathon.")))

		summary := uc.Memory.Summarize(ctx, "u1", "c1", 0)
		gt.Bool(t, summary.IsDegraded()).True()
		gt.Value(t, summary.Reason).Equal(model.ReasonMalformedOutput)
		gt.Value(t, summary.Summary).Equal("The user wants to run a marathon.")
	})

	t.Run("completion failure degrades", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo)
		uc := newUseCases(repo, usecase.WithCompleter(failingCompleter()))

		summary := uc.Memory.Summarize(ctx, "u1", "c1", 0)
		gt.Bool(t, summary.IsDegraded()).True()
		gt.Value(t, summary.Reason).Equal(model.ReasonCompletionFailed)
		gt.Number(t, summary.MessageCount).Equal(2)
	})

	t.Run("without completer degrades", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo)
		uc := newUseCases(repo)

		summary := uc.Memory.Summarize(ctx, "u1", "c1", 0)
		gt.Bool(t, summary.IsDegraded()).True()
		gt.Bool(t, summary.Err == usecase.ErrNoCompleter).True()
	})
}

func TestTimeSpan(t *testing.T) {
	at := func(offset time.Duration) *model.MemoryRecord {
		return &model.MemoryRecord{Timestamp: testNow.Add(offset)}
	}

	testCases := []struct {
		name    string
		records []*model.MemoryRecord
		want    string
	}{
		{"single record", []*model.MemoryRecord{at(0)}, "single conversation"},
		{"minutes", []*model.MemoryRecord{at(0), at(42 * time.Minute)}, "42 minute(s)"},
		{"exactly one hour", []*model.MemoryRecord{at(0), at(time.Hour)}, "60 minute(s)"},
		{"hours", []*model.MemoryRecord{at(0), at(5 * time.Hour)}, "5 hour(s)"},
		{"days", []*model.MemoryRecord{at(0), at(50 * time.Hour)}, "2 day(s)"},
		{"unordered", []*model.MemoryRecord{at(2 * time.Hour), at(0), at(90 * time.Minute)}, "2 hour(s)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, usecase.TimeSpan(tc.records)).Equal(tc.want)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	gt.Value(t, usecase.ExtractJSON("```json\n{\"a\":1}\n```")).Equal(`{"a":1}`)
	gt.Value(t, usecase.ExtractJSON("Here: {\"a\":{\"b\":2}} done")).Equal(`{"a":{"b":2}}`)
	gt.Value(t, usecase.ExtractJSON("  no json  ")).Equal("no json")
}

func TestMemoryUseCase_Cleanup(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, repo *memory.Memory) {
		for _, rec := range []*model.MemoryRecord{
			{ID: "old-low", UserID: "u1", ImportanceScore: 0.2, Timestamp: testNow.AddDate(0, 0, -100)},
			{ID: "old-high", UserID: "u1", ImportanceScore: 0.9, Timestamp: testNow.AddDate(0, 0, -100)},
			{ID: "new-low", UserID: "u1", ImportanceScore: 0.1, Timestamp: testNow.AddDate(0, 0, -10)},
		} {
			_, err := repo.Memory().Create(ctx, rec)
			gt.NoError(t, err).Required()
		}
	}

	t.Run("deletes old unimportant records", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo)
		uc := newUseCases(repo)

		result := uc.Memory.Cleanup(ctx, 90)
		gt.Bool(t, result.IsOK()).True()
		gt.Number(t, result.Deleted).Equal(1)
		gt.Number(t, result.Archived).Equal(0)

		_, err := repo.Memory().Get(ctx, "old-low")
		gt.Error(t, err)
		_, err = repo.Memory().Get(ctx, "old-high")
		gt.NoError(t, err)
		_, err = repo.Memory().Get(ctx, "new-low")
		gt.NoError(t, err)
	})

	t.Run("archives before deleting", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo)
		archiver := &recordingArchiver{}
		uc := newUseCases(repo, usecase.WithArchiver(archiver))

		result := uc.Memory.Cleanup(ctx, 0)
		gt.Bool(t, result.IsOK()).True()
		gt.Number(t, result.Archived).Equal(1)
		gt.Number(t, result.Deleted).Equal(1)
		gt.A(t, archiver.archived).Length(1).Required()
		gt.Value(t, archiver.archived[0].ID).Equal(model.MemoryRecordID("old-low"))
	})

	t.Run("archive failure keeps the records", func(t *testing.T) {
		repo := memory.New()
		seed(t, repo)
		uc := newUseCases(repo, usecase.WithArchiver(&recordingArchiver{err: errBackend}))

		result := uc.Memory.Cleanup(ctx, 90)
		gt.Bool(t, result.IsDegraded()).True()
		gt.Value(t, result.Reason).Equal(model.ReasonArchiveFailed)
		gt.Number(t, result.Deleted).Equal(0)

		count, err := repo.Memory().CountByUser(ctx, "u1")
		gt.NoError(t, err)
		gt.Number(t, count).Equal(3)
	})
}

func TestMemoryUseCase_Analytics(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	for _, rec := range []*model.MemoryRecord{
		{UserID: "u1", ConversationID: "c1", ImportanceScore: 0.4, Timestamp: testNow.AddDate(0, 0, -1)},
		{UserID: "u2", ConversationID: "c2", ImportanceScore: 0.8, Timestamp: testNow.AddDate(0, 0, -2)},
		{UserID: "u1", ConversationID: "c1", ImportanceScore: 1.0, Timestamp: testNow.AddDate(0, 0, -60)},
	} {
		_, err := repo.Memory().Create(ctx, rec)
		gt.NoError(t, err).Required()
	}
	uc := newUseCases(repo)

	all := uc.Memory.Analytics(ctx, "", 30)
	gt.Bool(t, all.IsOK()).True()
	gt.Number(t, all.TotalMemories).Equal(2)
	gt.Number(t, all.UniqueUsersCount).Equal(2)
	gt.Number(t, all.UniqueConversationsCount).Equal(2)
	gt.Bool(t, all.AvgImportance > 0.59 && all.AvgImportance < 0.61).True()

	one := uc.Memory.Analytics(ctx, "u1", 0)
	gt.Number(t, one.TotalMemories).Equal(1)
}
