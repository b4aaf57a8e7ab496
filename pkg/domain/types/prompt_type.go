package types

import "fmt"

// PromptType identifies a base prompt template
type PromptType string

const (
	PromptTypeCoachingBase      PromptType = "coaching_base"
	PromptTypeTaskExtraction    PromptType = "task_extraction"
	PromptTypeMemorySynthesis   PromptType = "memory_synthesis"
	PromptTypeProactiveCoaching PromptType = "proactive_coaching"
)

// AllPromptTypes returns all built-in prompt types
func AllPromptTypes() []PromptType {
	return []PromptType{
		PromptTypeCoachingBase,
		PromptTypeTaskExtraction,
		PromptTypeMemorySynthesis,
		PromptTypeProactiveCoaching,
	}
}

// IsValid checks if the prompt type is a built-in type
func (p PromptType) IsValid() bool {
	switch p {
	case PromptTypeCoachingBase,
		PromptTypeTaskExtraction,
		PromptTypeMemorySynthesis,
		PromptTypeProactiveCoaching:
		return true
	default:
		return false
	}
}

func (p PromptType) String() string {
	return string(p)
}

// ParsePromptType parses a string into a PromptType
func ParsePromptType(s string) (PromptType, error) {
	p := PromptType(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid prompt type: %s", s)
	}
	return p, nil
}
