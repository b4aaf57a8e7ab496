package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// ExtractedTask is a candidate task surfaced from one message. It is
// ephemeral; callers may turn it into a Todo.
type ExtractedTask struct {
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	Priority         types.Priority         `json:"priority"`
	EstimatedDate    *Date                  `json:"estimated_date,omitempty"`
	Confidence       float64                `json:"confidence"`
	ExtractionMethod types.ExtractionMethod `json:"extraction_method"`
	RelatedGoalID    GoalID                 `json:"related_goal_id,omitempty"`
	RelatedGoalTitle string                 `json:"related_goal_title,omitempty"`
	Category         string                 `json:"category,omitempty"`
}

// Clone returns a deep copy of the task
func (t *ExtractedTask) Clone() *ExtractedTask {
	copied := *t
	if t.EstimatedDate != nil {
		d := *t.EstimatedDate
		copied.EstimatedDate = &d
	}
	return &copied
}

// ContextTurn is one prior turn handed to the model pass
type ContextTurn struct {
	Content string `json:"content"`
	IsUser  bool   `json:"is_user"`
}

// ExtractionResult is the outcome of hybrid task extraction
type ExtractionResult struct {
	Outcome
	Tasks      []*ExtractedTask       `json:"tasks_found"`
	Confidence float64                `json:"confidence_score"`
	Method     types.ExtractionMethod `json:"extraction_method"`
}

// ExtractionLogID is a UUID-based identifier for ExtractionLog
type ExtractionLogID string

// NewExtractionLogID generates a new UUID v4 ExtractionLogID
func NewExtractionLogID() ExtractionLogID {
	return ExtractionLogID(uuid.New().String())
}

// ExtractionLog is an analytics record appended after every extraction
type ExtractionLog struct {
	ID              ExtractionLogID  `json:"id"`
	UserID          string           `json:"user_id"`
	ConversationID  string           `json:"conversation_id"`
	OriginalMessage string           `json:"original_message"`
	TasksExtracted  int              `json:"tasks_extracted"`
	Confidence      float64          `json:"extraction_confidence"`
	Tasks           []*ExtractedTask `json:"tasks_details"`
	Timestamp       time.Time        `json:"timestamp"`
}

// ExtractionAnalytics aggregates extraction logs over a time window
type ExtractionAnalytics struct {
	Outcome
	TotalExtractions int     `json:"total_extractions"`
	TotalTasksFound  int     `json:"total_tasks_found"`
	AvgConfidence    float64 `json:"avg_confidence"`
	UniqueUsersCount int     `json:"unique_users_count"`
}
