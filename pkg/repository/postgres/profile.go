package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// behaviorSynthesis is the JSONB payload holding the synthesized fields
type behaviorSynthesis struct {
	CommunicationPatterns model.CommunicationPatterns      `json:"communication_patterns"`
	RecurringTopics       []model.Frequency[types.Topic]   `json:"recurring_topics"`
	DominantEmotions      []model.Frequency[types.Emotion] `json:"dominant_emotions"`
	GoalEvolution         []string                         `json:"goal_evolution"`
	ResponsePreferences   model.ResponsePreferences        `json:"response_preferences"`
	ActivityPatterns      model.ActivityPatterns           `json:"activity_patterns"`
}

type profileRepository struct {
	pool *pgxpool.Pool
}

func (r *profileRepository) GetOnboarding(ctx context.Context, userID string) (*model.OnboardingProfile, error) {
	p := &model.OnboardingProfile{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT objective, domain, current_level FROM onboarding_profiles WHERE user_id = $1`, userID).
		Scan(&p.Objective, &p.Domain, &p.CurrentLevel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get onboarding profile", goerr.V("userID", userID))
	}
	return p, nil
}

func (r *profileRepository) PutOnboarding(ctx context.Context, profile *model.OnboardingProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO onboarding_profiles (user_id, objective, domain, current_level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			objective = EXCLUDED.objective,
			domain = EXCLUDED.domain,
			current_level = EXCLUDED.current_level`,
		profile.UserID, profile.Objective, profile.Domain, profile.CurrentLevel)
	if err != nil {
		return goerr.Wrap(err, "failed to put onboarding profile", goerr.V("userID", profile.UserID))
	}
	return nil
}

func scanBehavior(row pgx.Row) (*model.BehaviorProfile, error) {
	var (
		p          model.BehaviorProfile
		tendency   string
		synthesis  []byte
		lastRunRaw *time.Time
	)
	if err := row.Scan(&p.UserID, &p.MotivationType, &tendency, &synthesis, &lastRunRaw, &p.MemoryAnalysisCount); err != nil {
		return nil, err
	}

	var s behaviorSynthesis
	if err := json.Unmarshal(synthesis, &s); err != nil {
		return nil, goerr.Wrap(err, "failed to decode behavior synthesis", goerr.V("userID", p.UserID))
	}

	p.ProcrastinationTendency = types.Tendency(tendency)
	p.CommunicationPatterns = s.CommunicationPatterns
	p.RecurringTopics = s.RecurringTopics
	p.DominantEmotions = s.DominantEmotions
	p.GoalEvolution = s.GoalEvolution
	p.ResponsePreferences = s.ResponsePreferences
	p.ActivityPatterns = s.ActivityPatterns
	if lastRunRaw != nil {
		p.LastMemoryAnalysis = *lastRunRaw
	}
	return &p, nil
}

func encodeSynthesis(p *model.BehaviorProfile) ([]byte, error) {
	raw, err := json.Marshal(&behaviorSynthesis{
		CommunicationPatterns: p.CommunicationPatterns,
		RecurringTopics:       p.RecurringTopics,
		DominantEmotions:      p.DominantEmotions,
		GoalEvolution:         p.GoalEvolution,
		ResponsePreferences:   p.ResponsePreferences,
		ActivityPatterns:      p.ActivityPatterns,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode behavior synthesis", goerr.V("userID", p.UserID))
	}
	return raw, nil
}

const behaviorColumns = `user_id, motivation_type, procrastination_tendency, synthesis, last_memory_analysis, memory_analysis_count`

func (r *profileRepository) GetBehavior(ctx context.Context, userID string) (*model.BehaviorProfile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+behaviorColumns+` FROM behavior_profiles WHERE user_id = $1`, userID)
	p, err := scanBehavior(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get behavior profile", goerr.V("userID", userID))
	}
	return p, nil
}

func (r *profileRepository) PutBehavior(ctx context.Context, profile *model.BehaviorProfile) error {
	synthesis, err := encodeSynthesis(profile)
	if err != nil {
		return err
	}

	var lastRun *time.Time
	if !profile.LastMemoryAnalysis.IsZero() {
		lastRun = &profile.LastMemoryAnalysis
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO behavior_profiles (`+behaviorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			motivation_type = EXCLUDED.motivation_type,
			procrastination_tendency = EXCLUDED.procrastination_tendency,
			synthesis = EXCLUDED.synthesis,
			last_memory_analysis = EXCLUDED.last_memory_analysis,
			memory_analysis_count = EXCLUDED.memory_analysis_count`,
		profile.UserID, profile.MotivationType, string(profile.ProcrastinationTendency),
		string(synthesis), lastRun, profile.MemoryAnalysisCount)
	if err != nil {
		return goerr.Wrap(err, "failed to put behavior profile", goerr.V("userID", profile.UserID))
	}
	return nil
}

// ApplyBehaviorDelta upserts in one statement; declared fields of an
// existing row are left untouched and the counter is incremented in SQL.
func (r *profileRepository) ApplyBehaviorDelta(ctx context.Context, userID string, delta *model.BehaviorProfileDelta) (*model.BehaviorProfile, error) {
	next := &model.BehaviorProfile{UserID: userID}
	next.Apply(delta)

	synthesis, err := encodeSynthesis(next)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO behavior_profiles (user_id, synthesis, last_memory_analysis, memory_analysis_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id) DO UPDATE SET
			synthesis = EXCLUDED.synthesis,
			last_memory_analysis = EXCLUDED.last_memory_analysis,
			memory_analysis_count = behavior_profiles.memory_analysis_count + 1
		RETURNING `+behaviorColumns,
		userID, string(synthesis), delta.AnalyzedAt)

	updated, err := scanBehavior(row)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to apply behavior profile delta", goerr.V("userID", userID))
	}
	return updated, nil
}
