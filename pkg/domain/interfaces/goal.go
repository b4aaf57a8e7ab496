package interfaces

import (
	"context"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

// GoalRepository defines the interface for Goal persistence
type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) (*model.Goal, error)
	Get(ctx context.Context, userID string, id model.GoalID) (*model.Goal, error)

	// ListActive returns up to limit active goals of the user, oldest first
	ListActive(ctx context.Context, userID string, limit int) ([]*model.Goal, error)
}

// TodoRepository defines the interface for Todo persistence
type TodoRepository interface {
	Create(ctx context.Context, todo *model.Todo) (*model.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Todo, error)
}
