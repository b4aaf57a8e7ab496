package heuristics

import (
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// Table holds every keyword list the heuristics use. It is plain data so
// it can be replaced from a TOML file and tested apart from control flow.
// Lists are ordered: the first matching entry wins where order matters.
type Table struct {
	ImportanceKeywords []string       `toml:"importance_keywords"`
	Topics             []TopicRule    `toml:"topic"`
	Emotions           []EmotionRule  `toml:"emotion"`
	Priorities         []PriorityRule `toml:"priority"`
	DateCues           []DateCue      `toml:"date_cue"`
	Weekdays           []WeekdayCue   `toml:"weekday"`
	ActionVerbs        []string       `toml:"action_verbs"`
	FillerPrefixes     []string       `toml:"filler_prefixes"`
	GoalKeywords       []string       `toml:"goal_keywords"`
	PositiveFeedback   []string       `toml:"positive_feedback"`
	NegativeFeedback   []string       `toml:"negative_feedback"`
}

// TopicRule tags a text with Topic when any keyword is a substring
type TopicRule struct {
	Topic    types.Topic `toml:"topic"`
	Keywords []string    `toml:"keywords"`
}

// EmotionRule tags a text with Emotion when any keyword is a substring
type EmotionRule struct {
	Emotion  types.Emotion `toml:"emotion"`
	Keywords []string      `toml:"keywords"`
}

// PriorityRule assigns Priority when any keyword is a substring
type PriorityRule struct {
	Priority types.Priority `toml:"priority"`
	Keywords []string       `toml:"keywords"`
}

// DateCue maps literal phrases to a fixed day offset from today
type DateCue struct {
	Phrases    []string `toml:"phrases"`
	OffsetDays int      `toml:"offset_days"`
}

// WeekdayCue maps a weekday name to its weekday
type WeekdayCue struct {
	Name    string       `toml:"name"`
	Weekday time.Weekday `toml:"weekday"`
}

// Validate checks that the table can drive the analyzer
func (t *Table) Validate() error {
	for i, r := range t.Topics {
		if !r.Topic.IsValid() {
			return goerr.Wrap(ErrInvalidTable, "unknown topic", goerr.V("index", i), goerr.V("topic", r.Topic))
		}
	}
	for i, r := range t.Emotions {
		if !r.Emotion.IsValid() {
			return goerr.Wrap(ErrInvalidTable, "unknown emotion", goerr.V("index", i), goerr.V("emotion", r.Emotion))
		}
	}
	for i, r := range t.Priorities {
		if !r.Priority.IsValid() {
			return goerr.Wrap(ErrInvalidTable, "unknown priority", goerr.V("index", i), goerr.V("priority", r.Priority))
		}
	}
	for i, c := range t.DateCues {
		if c.OffsetDays < 0 {
			return goerr.Wrap(ErrInvalidTable, "date cue offset must not be negative", goerr.V("index", i), goerr.V("offset", c.OffsetDays))
		}
	}
	for i, w := range t.Weekdays {
		if w.Weekday < time.Sunday || w.Weekday > time.Saturday || w.Name == "" {
			return goerr.Wrap(ErrInvalidTable, "invalid weekday cue", goerr.V("index", i), goerr.V("name", w.Name))
		}
	}
	if len(t.ActionVerbs) == 0 {
		return goerr.Wrap(ErrInvalidTable, "action_verbs must not be empty")
	}
	return nil
}

// normalized returns a copy with every keyword lower-cased and trimmed
func (t *Table) normalized() *Table {
	n := &Table{
		ImportanceKeywords: lowerAll(t.ImportanceKeywords),
		ActionVerbs:        lowerAll(t.ActionVerbs),
		FillerPrefixes:     lowerAll(t.FillerPrefixes),
		GoalKeywords:       lowerAll(t.GoalKeywords),
		PositiveFeedback:   lowerAll(t.PositiveFeedback),
		NegativeFeedback:   lowerAll(t.NegativeFeedback),
	}
	for _, r := range t.Topics {
		n.Topics = append(n.Topics, TopicRule{Topic: r.Topic, Keywords: lowerAll(r.Keywords)})
	}
	for _, r := range t.Emotions {
		n.Emotions = append(n.Emotions, EmotionRule{Emotion: r.Emotion, Keywords: lowerAll(r.Keywords)})
	}
	for _, r := range t.Priorities {
		n.Priorities = append(n.Priorities, PriorityRule{Priority: r.Priority, Keywords: lowerAll(r.Keywords)})
	}
	for _, c := range t.DateCues {
		n.DateCues = append(n.DateCues, DateCue{Phrases: lowerAll(c.Phrases), OffsetDays: c.OffsetDays})
	}
	for _, w := range t.Weekdays {
		n.Weekdays = append(n.Weekdays, WeekdayCue{Name: strings.ToLower(strings.TrimSpace(w.Name)), Weekday: w.Weekday})
	}
	return n
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// LoadTable reads a keyword table from a TOML file
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read heuristics table", goerr.V("path", path))
	}

	return ParseTable(data)
}

// ParseTable decodes and validates a keyword table from TOML
func ParseTable(data []byte) (*Table, error) {
	var table Table
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, goerr.Wrap(err, "failed to parse heuristics table")
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}
