// Package heuristics implements the keyword based text analysis used to
// score and tag memory records and to parse tasks out of chat messages.
// Every function is pure: no I/O, no clock.
package heuristics

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// DefaultImportance is returned when importance scoring fails
const DefaultImportance = 0.5

// Analyzer evaluates texts against a keyword Table
type Analyzer struct {
	table *Table
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithTable replaces the built-in keyword table
func WithTable(table *Table) Option {
	return func(a *Analyzer) {
		a.table = table
	}
}

// New creates an Analyzer using the default table unless overridden
func New(opts ...Option) *Analyzer {
	a := &Analyzer{table: DefaultTable()}
	for _, opt := range opts {
		opt(a)
	}
	a.table = a.table.normalized()
	return a
}

// ImportanceScore rates an exchange in [0,1]: 0.2 per distinct importance
// keyword (capped at 0.8) plus a length bonus of up to 0.2.
func (a *Analyzer) ImportanceScore(message, response string) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			score = DefaultImportance
		}
	}()

	text := strings.ToLower(message + " " + response)

	matches := 0
	for _, kw := range a.table.ImportanceKeywords {
		if strings.Contains(text, kw) {
			matches++
		}
	}

	base := math.Min(float64(matches)*0.2, 0.8)
	lengthBonus := math.Min(float64(utf8.RuneCountInString(text))/1000, 0.2)
	return math.Min(base+lengthBonus, 1.0)
}

// Topics returns every topic with at least one keyword in text. May be empty.
func (a *Analyzer) Topics(text string) []types.Topic {
	lower := strings.ToLower(text)
	topics := []types.Topic{}
	for _, rule := range a.table.Topics {
		if containsAny(lower, rule.Keywords) {
			topics = append(topics, rule.Topic)
		}
	}
	return topics
}

// Emotions returns every emotion with at least one keyword in text, or
// exactly [neutral] when none matches.
func (a *Analyzer) Emotions(text string) []types.Emotion {
	lower := strings.ToLower(text)
	var emotions []types.Emotion
	for _, rule := range a.table.Emotions {
		if containsAny(lower, rule.Keywords) {
			emotions = append(emotions, rule.Emotion)
		}
	}
	if len(emotions) == 0 {
		return []types.Emotion{types.EmotionNeutral}
	}
	return emotions
}

// Priority returns the priority of the first rule matching sentence,
// medium when none does.
func (a *Analyzer) Priority(sentence string) types.Priority {
	lower := strings.ToLower(sentence)
	for _, rule := range a.table.Priorities {
		if containsAny(lower, rule.Keywords) {
			return rule.Priority
		}
	}
	return types.PriorityMedium
}

// ResolveRelativeDate turns a temporal cue in sentence into a date
// relative to today. Literal cues are checked before weekday names; a
// weekday always resolves strictly into the future, a full week ahead
// when it names today.
func (a *Analyzer) ResolveRelativeDate(sentence string, today model.Date) (model.Date, bool) {
	lower := strings.ToLower(sentence)

	for _, cue := range a.table.DateCues {
		if containsAny(lower, cue.Phrases) {
			return today.AddDays(cue.OffsetDays), true
		}
	}

	for _, wd := range a.table.Weekdays {
		if !strings.Contains(lower, wd.Name) {
			continue
		}
		daysAhead := int(wd.Weekday) - int(today.Weekday())
		if daysAhead <= 0 {
			daysAhead += 7
		}
		return today.AddDays(daysAhead), true
	}

	return model.Date{}, false
}

// ActionVerb returns the first table verb contained in sentence
func (a *Analyzer) ActionVerb(sentence string) (string, bool) {
	lower := strings.ToLower(sentence)
	for _, verb := range a.table.ActionVerbs {
		if strings.Contains(lower, verb) {
			return verb, true
		}
	}
	return "", false
}

// StripFillerPrefix removes one leading filler phrase such as "je dois"
func (a *Analyzer) StripFillerPrefix(s string) string {
	for _, prefix := range a.table.FillerPrefixes {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	return s
}

// MentionsGoal reports whether text contains a goal-related keyword
func (a *Analyzer) MentionsGoal(text string) bool {
	return containsAny(strings.ToLower(text), a.table.GoalKeywords)
}

// Feedback classifies the user's reaction to the previous answer
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackPositive
	FeedbackNegative
)

// Feedback looks for positive cues first, then negative ones
func (a *Analyzer) Feedback(message string) Feedback {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, a.table.PositiveFeedback):
		return FeedbackPositive
	case containsAny(lower, a.table.NegativeFeedback):
		return FeedbackNegative
	default:
		return FeedbackNone
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
