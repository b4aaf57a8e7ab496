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

func runGoalRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("ListActive returns active goals oldest first", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("goals")
		now := time.Now().UTC()

		first, err := repo.Goal().Create(ctx, &model.Goal{UserID: userID, Title: "Run a marathon", CreatedAt: now.Add(-2 * time.Hour)})
		gt.NoError(t, err).Required()
		gt.Value(t, first.Status).Equal(types.GoalStatusActive)

		_, err = repo.Goal().Create(ctx, &model.Goal{UserID: userID, Title: "Old goal", Status: types.GoalStatusCompleted, CreatedAt: now.Add(-3 * time.Hour)})
		gt.NoError(t, err).Required()
		_, err = repo.Goal().Create(ctx, &model.Goal{UserID: userID, Title: "Learn Go", CreatedAt: now.Add(-time.Hour)})
		gt.NoError(t, err).Required()

		goals, err := repo.Goal().ListActive(ctx, userID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, goals).Length(2)
		gt.Value(t, goals[0].Title).Equal("Run a marathon")
		gt.Value(t, goals[1].Title).Equal("Learn Go")

		limited, err := repo.Goal().ListActive(ctx, userID, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, limited).Length(1)
	})

	t.Run("Get checks ownership", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("owner")

		goal, err := repo.Goal().Create(ctx, &model.Goal{UserID: userID, Title: "Write a book"})
		gt.NoError(t, err).Required()

		got, err := repo.Goal().Get(ctx, userID, goal.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("Write a book")

		_, err = repo.Goal().Get(ctx, uniqueUser("intruder"), goal.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("todos keep their deadline", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := uniqueUser("todos")
		deadline := model.Date{Year: 2024, Month: time.January, Day: 11}

		created, err := repo.Todo().Create(ctx, &model.Todo{
			UserID:   userID,
			GoalID:   model.NewGoalID(),
			Title:    "Call the doctor",
			Priority: types.PriorityHigh,
			Source:   model.TodoSourceChat,
			Deadline: &deadline,
		})
		gt.NoError(t, err).Required()
		gt.String(t, string(created.ID)).NotEqual("")

		_, err = repo.Todo().Create(ctx, &model.Todo{UserID: userID, Title: "No deadline", Priority: types.PriorityLow, Source: model.TodoSourceChat})
		gt.NoError(t, err).Required()

		todos, err := repo.Todo().ListByUser(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Array(t, todos).Length(2)

		var withDeadline *model.Todo
		for _, td := range todos {
			if td.ID == created.ID {
				withDeadline = td
			}
		}
		gt.Value(t, withDeadline).NotNil()
		gt.Value(t, *withDeadline.Deadline).Equal(deadline)
		gt.Value(t, withDeadline.Priority).Equal(types.PriorityHigh)
	})
}

func TestGoalRepository(t *testing.T) {
	runAllBackends(t, runGoalRepositoryTest)
}
