package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

type goalRepository struct {
	pool *pgxpool.Pool
}

func scanGoal(row pgx.Row) (*model.Goal, error) {
	var (
		g      model.Goal
		id     string
		status string
	)
	if err := row.Scan(&id, &g.UserID, &g.Title, &g.Description, &status, &g.CreatedAt); err != nil {
		return nil, err
	}
	g.ID = model.GoalID(id)
	g.Status = types.GoalStatus(status)
	return &g, nil
}

func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) (*model.Goal, error) {
	created := *goal
	if created.ID == "" {
		created.ID = model.NewGoalID()
	}
	if created.Status == "" {
		created.Status = types.GoalStatusActive
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO goals (id, user_id, title, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(created.ID), created.UserID, created.Title, created.Description, string(created.Status), created.CreatedAt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert goal", goerr.V("userID", created.UserID))
	}
	return &created, nil
}

func (r *goalRepository) Get(ctx context.Context, userID string, id model.GoalID) (*model.Goal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, title, description, status, created_at
		FROM goals WHERE id = $1 AND user_id = $2`, string(id), userID)
	g, err := scanGoal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "goal not found", goerr.V("id", id), goerr.V("userID", userID))
		}
		return nil, goerr.Wrap(err, "failed to get goal", goerr.V("id", id))
	}
	return g, nil
}

func (r *goalRepository) ListActive(ctx context.Context, userID string, limit int) ([]*model.Goal, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, description, status, created_at
		FROM goals
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3`, userID, string(types.GoalStatusActive), limitArg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query goals", goerr.V("userID", userID))
	}
	defer rows.Close()

	goals := make([]*model.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan goal")
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate goals")
	}
	return goals, nil
}

type todoRepository struct {
	pool *pgxpool.Pool
}

func (r *todoRepository) Create(ctx context.Context, todo *model.Todo) (*model.Todo, error) {
	created := *todo
	if created.ID == "" {
		created.ID = model.NewTodoID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	var deadline *time.Time
	if created.Deadline != nil {
		t := created.Deadline.Time()
		deadline = &t
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO todos (id, user_id, goal_id, title, description, priority, source, conversation_id, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(created.ID), created.UserID, string(created.GoalID), created.Title, created.Description,
		string(created.Priority), created.Source, created.ConversationID, deadline, created.CreatedAt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert todo", goerr.V("userID", created.UserID))
	}
	return &created, nil
}

func (r *todoRepository) ListByUser(ctx context.Context, userID string) ([]*model.Todo, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, goal_id, title, description, priority, source, conversation_id, deadline, created_at
		FROM todos WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query todos", goerr.V("userID", userID))
	}
	defer rows.Close()

	todos := make([]*model.Todo, 0)
	for rows.Next() {
		var (
			t                    model.Todo
			id, goalID, priority string
			deadline             *time.Time
		)
		if err := rows.Scan(&id, &t.UserID, &goalID, &t.Title, &t.Description, &priority, &t.Source,
			&t.ConversationID, &deadline, &t.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan todo")
		}
		t.ID = model.TodoID(id)
		t.GoalID = model.GoalID(goalID)
		t.Priority = types.Priority(priority)
		if deadline != nil {
			d := model.DateOf(*deadline)
			t.Deadline = &d
		}
		todos = append(todos, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate todos")
	}
	return todos, nil
}
