package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// GoalID is a UUID-based identifier for Goal
type GoalID string

// NewGoalID generates a new UUID v4 GoalID
func NewGoalID() GoalID {
	return GoalID(uuid.New().String())
}

func (id GoalID) String() string {
	return string(id)
}

// Goal is a user objective that extracted tasks can be linked to
type Goal struct {
	ID          GoalID           `json:"id"`
	UserID      string           `json:"user_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      types.GoalStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TodoID is a UUID-based identifier for Todo
type TodoID string

// NewTodoID generates a new UUID v4 TodoID
func NewTodoID() TodoID {
	return TodoID(uuid.New().String())
}

// TodoSourceChat marks todos created from chat extraction
const TodoSourceChat = "ai_chat"

// Todo is the durable task entity created from an extracted task
type Todo struct {
	ID             TodoID         `json:"id"`
	UserID         string         `json:"user_id"`
	GoalID         GoalID         `json:"goal_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Priority       types.Priority `json:"priority"`
	Source         string         `json:"source"`
	ConversationID string         `json:"conversation_id"`
	Deadline       *Date          `json:"deadline,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
