package types

// ExtractionMethod records which pass produced a task
type ExtractionMethod string

const (
	ExtractionMethodRules  ExtractionMethod = "rules"
	ExtractionMethodModel  ExtractionMethod = "model"
	ExtractionMethodHybrid ExtractionMethod = "hybrid"
)

func (m ExtractionMethod) String() string {
	return string(m)
}

// GoalStatus represents the lifecycle state of a user goal
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusArchived  GoalStatus = "archived"
)

// IsValid checks if the goal status is valid
func (s GoalStatus) IsValid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusArchived:
		return true
	default:
		return false
	}
}

func (s GoalStatus) String() string {
	return string(s)
}

// Tendency is a coarse behavioral level such as procrastination tendency
type Tendency string

const (
	TendencyLow    Tendency = "low"
	TendencyMedium Tendency = "medium"
	TendencyHigh   Tendency = "high"
)

func (t Tendency) String() string {
	return string(t)
}
