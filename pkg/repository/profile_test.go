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

func runProfileRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("missing profiles are nil without error", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("nobody")

		onboarding, err := repo.Profile().GetOnboarding(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, onboarding).Nil()

		behavior, err := repo.Profile().GetBehavior(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, behavior).Nil()
	})

	t.Run("onboarding round trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("onboard")

		gt.NoError(t, repo.Profile().PutOnboarding(ctx, &model.OnboardingProfile{
			UserID:       userID,
			Objective:    "Launch a bakery",
			Domain:       "business",
			CurrentLevel: "beginner",
		})).Required()

		got, err := repo.Profile().GetOnboarding(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Domain).Equal("business")
		gt.Value(t, got.Objective).Equal("Launch a bakery")
	})

	t.Run("ApplyBehaviorDelta replaces fields and increments the counter", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("behavior")

		gt.NoError(t, repo.Profile().PutBehavior(ctx, &model.BehaviorProfile{
			UserID:                  userID,
			MotivationType:          "achievement",
			ProcrastinationTendency: types.TendencyHigh,
			GoalEvolution:           []string{"stale"},
		})).Required()

		preferred := 250.0
		delta := &model.BehaviorProfileDelta{
			FrequentTopics:   []model.Frequency[types.Topic]{{Item: types.TopicHealth, Count: 4}},
			DominantEmotions: []model.Frequency[types.Emotion]{{Item: types.EmotionPositive, Count: 3}},
			CommunicationPatterns: model.CommunicationPatterns{
				PrefersDetailedResponses: true,
				MostActiveHours:          []int{9, 21},
			},
			ResponsePreferences: model.ResponsePreferences{PreferredResponseLength: &preferred},
			GoalEvolution:       []string{"I want to run"},
			ActivityPatterns:    model.ActivityPatterns{MostActiveHours: []int{9}, TotalInteractions: 12},
			AnalyzedAt:          time.Now().UTC(),
		}

		first, err := repo.Profile().ApplyBehaviorDelta(ctx, userID, delta)
		gt.NoError(t, err).Required()
		gt.Value(t, first.MemoryAnalysisCount).Equal(int64(1))

		_, err = repo.Profile().ApplyBehaviorDelta(ctx, userID, delta)
		gt.NoError(t, err).Required()

		got, err := repo.Profile().GetBehavior(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.MemoryAnalysisCount).Equal(int64(2))
		gt.Value(t, got.MotivationType).Equal("achievement")
		gt.Value(t, got.ProcrastinationTendency).Equal(types.TendencyHigh)
		gt.Value(t, got.GoalEvolution).Equal([]string{"I want to run"})
		gt.Array(t, got.RecurringTopics).Length(1)
		gt.Value(t, got.RecurringTopics[0].Item).Equal(types.TopicHealth)
		gt.Bool(t, got.CommunicationPatterns.PrefersDetailedResponses).True()
		gt.Value(t, *got.ResponsePreferences.PreferredResponseLength).Equal(250.0)
		gt.Value(t, got.ResponsePreferences.DislikedResponseLength).Nil()
		gt.Value(t, got.ActivityPatterns.TotalInteractions).Equal(12)
	})

	t.Run("ApplyBehaviorDelta creates a missing profile", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("fresh")

		updated, err := repo.Profile().ApplyBehaviorDelta(ctx, userID, &model.BehaviorProfileDelta{AnalyzedAt: time.Now().UTC()})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.UserID).Equal(userID)
		gt.Value(t, updated.MemoryAnalysisCount).Equal(int64(1))
	})
}

func TestProfileRepository(t *testing.T) {
	runAllBackends(t, runProfileRepositoryTest)
}
