package usecase

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/interfaces"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"github.com/secmon-lab/coachmem/pkg/service/heuristics"
	"github.com/secmon-lab/coachmem/pkg/utils/async"
	"github.com/secmon-lab/coachmem/pkg/utils/errutil"
	"github.com/secmon-lab/coachmem/pkg/utils/logging"
)

const (
	// SynthesisInterval fires synthesis every time a user's record count
	// reaches a multiple of it
	SynthesisInterval = 50

	synthesisWindowDays  = 30
	synthesisMaxRecords  = 100
	frequencyTopN        = 10
	minTopicCount        = 3
	minEmotionCount      = 2
	minHourCount         = 2
	detailedResponseSize = 200
	goalExcerptLength    = 100
	goalExcerptCount     = 5
)

// ProfileSynthesizer derives behavior profile updates from the recent
// memory records of a user
type ProfileSynthesizer struct {
	repo     interfaces.Repository
	analyzer *heuristics.Analyzer
	config   Config
	sync     bool
}

// NewProfileSynthesizer creates a synthesizer. With sync set the hook
// runs synthesis inline.
func NewProfileSynthesizer(repo interfaces.Repository, analyzer *heuristics.Analyzer, cfg Config, sync bool) *ProfileSynthesizer {
	return &ProfileSynthesizer{
		repo:     repo,
		analyzer: analyzer,
		config:   cfg.withDefaults(),
		sync:     sync,
	}
}

// Hook returns the post-store hook triggering synthesis on cadence. The
// count is read after the insert without a lock, so concurrent stores
// may fire it twice or skip a beat; synthesis is idempotent.
func (s *ProfileSynthesizer) Hook() PostStoreHook {
	return func(ctx context.Context, record *model.MemoryRecord) {
		cctx, cancel := s.config.callContext(ctx)
		count, err := s.repo.Memory().CountByUser(cctx, record.UserID)
		cancel()
		if err != nil {
			logging.From(ctx).Warn("failed to count memories for synthesis", "error", err, "user_id", record.UserID)
			return
		}
		if count == 0 || count%SynthesisInterval != 0 {
			return
		}

		logging.From(ctx).Info("memory synthesis triggered", "user_id", record.UserID, "count", count)
		run := func(ctx context.Context) error {
			result := s.Synthesize(ctx, record.UserID)
			if result.IsDegraded() {
				return result.Err
			}
			return nil
		}

		if s.sync {
			_ = run(ctx)
			return
		}
		async.Dispatch(ctx, run)
	}
}

// Synthesize aggregates up to 100 records of the last 30 days and
// replaces the synthesized fields of the user's behavior profile
func (s *ProfileSynthesizer) Synthesize(ctx context.Context, userID string) *model.SynthesisResult {
	now := s.config.Clock()
	since := now.AddDate(0, 0, -synthesisWindowDays)

	cctx, cancel := s.config.callContext(ctx)
	records, err := s.repo.Memory().ListRecentByUser(cctx, userID, since, synthesisMaxRecords)
	cancel()
	if err != nil {
		err = goerr.Wrap(err, "failed to list recent memories", goerr.V("user_id", userID))
		_ = errutil.Handle(ctx, err, "failed to synthesize profile")
		return &model.SynthesisResult{Outcome: model.Degraded(model.ReasonStorageFailed, err)}
	}
	if len(records) == 0 {
		return &model.SynthesisResult{Outcome: model.Skipped(model.ReasonNoRecentMemories)}
	}

	delta := s.Analyze(records)
	delta.AnalyzedAt = now

	cctx, cancel = s.config.callContext(ctx)
	_, err = s.repo.Profile().ApplyBehaviorDelta(cctx, userID, delta)
	cancel()
	if err != nil {
		err = goerr.Wrap(err, "failed to apply behavior delta", goerr.V("user_id", userID))
		_ = errutil.Handle(ctx, err, "failed to synthesize profile")
		return &model.SynthesisResult{
			Outcome:          model.Degraded(model.ReasonStorageFailed, err),
			MemoriesAnalyzed: len(records),
			Delta:            delta,
		}
	}

	logging.From(ctx).Info("behavior profile synthesized", "user_id", userID, "memories", len(records))
	return &model.SynthesisResult{
		Outcome:          model.OK(),
		Updated:          true,
		MemoriesAnalyzed: len(records),
		Delta:            delta,
	}
}

// Analyze computes the profile delta of records given newest first.
// AnalyzedAt is left for the caller to set.
func (s *ProfileSynthesizer) Analyze(records []*model.MemoryRecord) *model.BehaviorProfileDelta {
	var topics []types.Topic
	var emotions []types.Emotion
	var hours []int
	var totalResponse int
	var liked, disliked []int

	for _, r := range records {
		topics = append(topics, r.Topics...)
		emotions = append(emotions, r.Emotions...)
		hours = append(hours, r.Timestamp.UTC().Hour())

		length := heuristics.RuneLen(r.AIResponse)
		totalResponse += length
		switch s.analyzer.Feedback(r.UserMessage) {
		case heuristics.FeedbackPositive:
			liked = append(liked, length)
		case heuristics.FeedbackNegative:
			disliked = append(disliked, length)
		}
	}

	activeHours := make([]int, 0)
	for _, f := range rankFrequencies(hours, minHourCount) {
		activeHours = append(activeHours, f.Item)
	}

	avgResponse := float64(totalResponse) / float64(len(records))
	return &model.BehaviorProfileDelta{
		FrequentTopics:   rankFrequencies(topics, minTopicCount),
		DominantEmotions: rankFrequencies(emotions, minEmotionCount),
		CommunicationPatterns: model.CommunicationPatterns{
			PrefersDetailedResponses: avgResponse > detailedResponseSize,
			MostActiveHours:          activeHours,
		},
		ResponsePreferences: model.ResponsePreferences{
			PreferredResponseLength: mean(liked),
			DislikedResponseLength:  mean(disliked),
		},
		GoalEvolution: s.goalEvolution(records),
		ActivityPatterns: model.ActivityPatterns{
			MostActiveHours:   activeHours,
			TotalInteractions: len(records),
		},
	}
}

// goalEvolution returns the most recent goal mentions in chronological
// order, each cut to its first characters
func (s *ProfileSynthesizer) goalEvolution(newestFirst []*model.MemoryRecord) []string {
	mentions := []string{}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		r := newestFirst[i]
		text := r.UserMessage + " " + r.AIResponse
		if s.analyzer.MentionsGoal(text) {
			mentions = append(mentions, truncateRunes(text, goalExcerptLength))
		}
	}
	if len(mentions) > goalExcerptCount {
		mentions = mentions[len(mentions)-goalExcerptCount:]
	}
	return mentions
}

// rankFrequencies counts items and returns the ten most common with at
// least minCount occurrences. Ties keep first-seen order.
func rankFrequencies[T comparable](items []T, minCount int) []model.Frequency[T] {
	counts := make(map[T]int)
	var order []T
	for _, item := range items {
		if _, ok := counts[item]; !ok {
			order = append(order, item)
		}
		counts[item]++
	}

	ranked := make([]model.Frequency[T], 0, len(order))
	for _, item := range order {
		ranked = append(ranked, model.Frequency[T]{Item: item, Count: counts[item]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > frequencyTopN {
		ranked = ranked[:frequencyTopN]
	}

	out := make([]model.Frequency[T], 0, len(ranked))
	for _, f := range ranked {
		if f.Count >= minCount {
			out = append(out, f)
		}
	}
	return out
}

func mean(values []int) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum int
	for _, v := range values {
		sum += v
	}
	m := float64(sum) / float64(len(values))
	return &m
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
