package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

type goalRepository struct {
	mu    sync.RWMutex
	goals map[model.GoalID]*model.Goal
}

func newGoalRepository() *goalRepository {
	return &goalRepository{
		goals: make(map[model.GoalID]*model.Goal),
	}
}

func copyGoal(g *model.Goal) *model.Goal {
	copied := *g
	return &copied
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) (*model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyGoal(goal)
	if created.ID == "" {
		created.ID = model.NewGoalID()
	}
	if created.Status == "" {
		created.Status = types.GoalStatusActive
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	r.goals[created.ID] = created
	return copyGoal(created), nil
}

func (r *goalRepository) Get(ctx context.Context, userID string, id model.GoalID) (*model.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	goal, exists := r.goals[id]
	if !exists || goal.UserID != userID {
		return nil, goerr.Wrap(ErrNotFound, "goal not found", goerr.V("id", id), goerr.V("userID", userID))
	}

	return copyGoal(goal), nil
}

func (r *goalRepository) ListActive(ctx context.Context, userID string, limit int) ([]*model.Goal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Goal, 0)
	for _, g := range r.goals {
		if g.UserID == userID && g.Status == types.GoalStatusActive {
			result = append(result, copyGoal(g))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type todoRepository struct {
	mu    sync.RWMutex
	todos map[model.TodoID]*model.Todo
}

func newTodoRepository() *todoRepository {
	return &todoRepository{
		todos: make(map[model.TodoID]*model.Todo),
	}
}

func copyTodo(t *model.Todo) *model.Todo {
	copied := *t
	if t.Deadline != nil {
		d := *t.Deadline
		copied.Deadline = &d
	}
	return &copied
}

func (r *todoRepository) Create(ctx context.Context, todo *model.Todo) (*model.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyTodo(todo)
	if created.ID == "" {
		created.ID = model.NewTodoID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	r.todos[created.ID] = created
	return copyTodo(created), nil
}

func (r *todoRepository) ListByUser(ctx context.Context, userID string) ([]*model.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Todo, 0)
	for _, t := range r.todos {
		if t.UserID == userID {
			result = append(result, copyTodo(t))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
