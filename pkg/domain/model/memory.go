package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// EmbeddingDimension is the vector size requested from embedding providers
const EmbeddingDimension = 768

// MemoryRecordID is a UUID-based identifier for MemoryRecord
type MemoryRecordID string

// NewMemoryRecordID generates a new UUID v4 MemoryRecordID
func NewMemoryRecordID() MemoryRecordID {
	return MemoryRecordID(uuid.New().String())
}

func (id MemoryRecordID) String() string {
	return string(id)
}

// MemoryRecord is one stored exchange between a user and the coach.
// Records are immutable once created and only removed by retention cleanup.
type MemoryRecord struct {
	ID              MemoryRecordID  `json:"id"`
	UserID          string          `json:"user_id"`
	ConversationID  string          `json:"conversation_id"`
	UserMessage     string          `json:"user_message"`
	AIResponse      string          `json:"ai_response"`
	MessageType     string          `json:"message_type"`
	Embedding       []float32       `json:"-"`
	ImportanceScore float64         `json:"importance_score"`
	Topics          []types.Topic   `json:"topics"`
	Emotions        []types.Emotion `json:"emotions"`
	Timestamp       time.Time       `json:"timestamp"`
}

// HasEmbedding reports whether the record can be ranked by similarity
func (r *MemoryRecord) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// ScoredMemory is a retrieved record with its ranking scores
type ScoredMemory struct {
	Record     *MemoryRecord `json:"record"`
	Similarity float64       `json:"similarity"`
	Score      float64       `json:"score"`
}

// StoreResult is the outcome of storing an exchange
type StoreResult struct {
	Outcome
	Stored bool          `json:"stored"`
	Record *MemoryRecord `json:"record,omitempty"`
}

// RetrieveResult is the outcome of a relevance search
type RetrieveResult struct {
	Outcome
	Memories []*ScoredMemory `json:"memories"`
}

// Records returns the retrieved records without scores
func (r *RetrieveResult) Records() []*MemoryRecord {
	records := make([]*MemoryRecord, 0, len(r.Memories))
	for _, m := range r.Memories {
		records = append(records, m.Record)
	}
	return records
}

// Summary is a structured digest of one conversation
type Summary struct {
	Outcome
	Summary        string    `json:"summary"`
	KeyPoints      []string  `json:"key_points"`
	UserObjectives []string  `json:"user_objectives"`
	Commitments    []string  `json:"commitments"`
	NextActions    []string  `json:"next_actions"`
	MessageCount   int       `json:"message_count"`
	TimeSpan       string    `json:"time_span,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// CleanupResult reports how many records retention cleanup removed
type CleanupResult struct {
	Outcome
	Deleted  int `json:"deleted"`
	Archived int `json:"archived"`
}

// MemoryAnalytics aggregates memory records over a time window
type MemoryAnalytics struct {
	Outcome
	TotalMemories            int     `json:"total_memories"`
	AvgImportance            float64 `json:"avg_importance"`
	UniqueUsersCount         int     `json:"unique_users_count"`
	UniqueConversationsCount int     `json:"unique_conversations_count"`
}
