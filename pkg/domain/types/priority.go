package types

import (
	"fmt"
	"strings"
)

// Priority represents the urgency of an extracted task
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// AllPriorities returns all valid priorities, highest first
func AllPriorities() []Priority {
	return []Priority{
		PriorityHigh,
		PriorityMedium,
		PriorityLow,
	}
}

// IsValid checks if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// Raise returns the priority one step above p. High stays high.
func (p Priority) Raise() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return p
	}
}

// ParsePriority parses a priority label. French labels produced by
// the model prompt (haute, moyenne, basse) are accepted as well.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "haute":
		return PriorityHigh, nil
	case "medium", "moyenne":
		return PriorityMedium, nil
	case "low", "basse":
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("invalid priority: %s", s)
	}
}

// NormalizePriority is ParsePriority falling back to medium
func NormalizePriority(s string) Priority {
	p, err := ParsePriority(s)
	if err != nil {
		return PriorityMedium
	}
	return p
}
