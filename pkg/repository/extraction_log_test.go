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

func runExtractionLogRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Stats aggregates the user's logs in the window", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("extract")
		now := time.Now().UTC()
		date := model.Date{Year: 2024, Month: time.January, Day: 11}

		gt.NoError(t, repo.ExtractionLog().Create(ctx, &model.ExtractionLog{
			UserID:          userID,
			ConversationID:  "c1",
			OriginalMessage: "je dois appeler le médecin demain",
			TasksExtracted:  2,
			Confidence:      0.8,
			Tasks: []*model.ExtractedTask{
				{Title: "Le médecin demain", Priority: types.PriorityMedium, EstimatedDate: &date, Confidence: 0.7, ExtractionMethod: types.ExtractionMethodRules},
				{Title: "Call the doctor", Priority: types.PriorityHigh, Confidence: 0.9, ExtractionMethod: types.ExtractionMethodModel},
			},
			Timestamp: now,
		})).Required()
		gt.NoError(t, repo.ExtractionLog().Create(ctx, &model.ExtractionLog{
			UserID:          userID,
			OriginalMessage: "hello",
			Timestamp:       now,
		})).Required()
		gt.NoError(t, repo.ExtractionLog().Create(ctx, &model.ExtractionLog{
			UserID:          userID,
			OriginalMessage: "ancient",
			TasksExtracted:  5,
			Confidence:      1.0,
			Timestamp:       now.AddDate(0, 0, -45),
		})).Required()

		stats, err := repo.ExtractionLog().Stats(ctx, userID, now.AddDate(0, 0, -30))
		gt.NoError(t, err).Required()
		gt.Value(t, stats.TotalExtractions).Equal(2)
		gt.Value(t, stats.TotalTasksFound).Equal(2)
		gt.Value(t, stats.UniqueUsersCount).Equal(1)
		gt.Bool(t, stats.AvgConfidence > 0.399 && stats.AvgConfidence < 0.401).True()
	})
}

func TestExtractionLogRepository(t *testing.T) {
	runAllBackends(t, runExtractionLogRepositoryTest)
}
