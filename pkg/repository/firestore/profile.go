package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/coachmem/pkg/domain/model"
	"github.com/secmon-lab/coachmem/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type onboardingDoc struct {
	UserID       string `firestore:"UserID"`
	Objective    string `firestore:"Objective"`
	Domain       string `firestore:"Domain"`
	CurrentLevel string `firestore:"CurrentLevel"`
}

type frequencyDoc struct {
	Item  string `firestore:"Item"`
	Count int    `firestore:"Count"`
}

type behaviorDoc struct {
	UserID                   string         `firestore:"UserID"`
	MotivationType           string         `firestore:"MotivationType"`
	ProcrastinationTendency  string         `firestore:"ProcrastinationTendency"`
	PrefersDetailedResponses bool           `firestore:"PrefersDetailedResponses"`
	CommunicationActiveHours []int          `firestore:"CommunicationActiveHours"`
	RecurringTopics          []frequencyDoc `firestore:"RecurringTopics"`
	DominantEmotions         []frequencyDoc `firestore:"DominantEmotions"`
	GoalEvolution            []string       `firestore:"GoalEvolution"`
	PreferredResponseLength  *float64       `firestore:"PreferredResponseLength"`
	DislikedResponseLength   *float64       `firestore:"DislikedResponseLength"`
	ActivityActiveHours      []int          `firestore:"ActivityActiveHours"`
	TotalInteractions        int            `firestore:"TotalInteractions"`
	LastMemoryAnalysis       time.Time      `firestore:"LastMemoryAnalysis"`
	MemoryAnalysisCount      int64          `firestore:"MemoryAnalysisCount"`
}

func toFrequencyDocs[T ~string](items []model.Frequency[T]) []frequencyDoc {
	docs := make([]frequencyDoc, 0, len(items))
	for _, f := range items {
		docs = append(docs, frequencyDoc{Item: string(f.Item), Count: f.Count})
	}
	return docs
}

func fromFrequencyDocs[T ~string](docs []frequencyDoc) []model.Frequency[T] {
	items := make([]model.Frequency[T], 0, len(docs))
	for _, d := range docs {
		items = append(items, model.Frequency[T]{Item: T(d.Item), Count: d.Count})
	}
	return items
}

func toBehaviorDoc(p *model.BehaviorProfile) *behaviorDoc {
	return &behaviorDoc{
		UserID:                   p.UserID,
		MotivationType:           p.MotivationType,
		ProcrastinationTendency:  string(p.ProcrastinationTendency),
		PrefersDetailedResponses: p.CommunicationPatterns.PrefersDetailedResponses,
		CommunicationActiveHours: p.CommunicationPatterns.MostActiveHours,
		RecurringTopics:          toFrequencyDocs(p.RecurringTopics),
		DominantEmotions:         toFrequencyDocs(p.DominantEmotions),
		GoalEvolution:            p.GoalEvolution,
		PreferredResponseLength:  p.ResponsePreferences.PreferredResponseLength,
		DislikedResponseLength:   p.ResponsePreferences.DislikedResponseLength,
		ActivityActiveHours:      p.ActivityPatterns.MostActiveHours,
		TotalInteractions:        p.ActivityPatterns.TotalInteractions,
		LastMemoryAnalysis:       p.LastMemoryAnalysis,
		MemoryAnalysisCount:      p.MemoryAnalysisCount,
	}
}

func fromBehaviorDoc(d *behaviorDoc) *model.BehaviorProfile {
	return &model.BehaviorProfile{
		UserID:                  d.UserID,
		MotivationType:          d.MotivationType,
		ProcrastinationTendency: types.Tendency(d.ProcrastinationTendency),
		CommunicationPatterns: model.CommunicationPatterns{
			PrefersDetailedResponses: d.PrefersDetailedResponses,
			MostActiveHours:          d.CommunicationActiveHours,
		},
		RecurringTopics:  fromFrequencyDocs[types.Topic](d.RecurringTopics),
		DominantEmotions: fromFrequencyDocs[types.Emotion](d.DominantEmotions),
		GoalEvolution:    d.GoalEvolution,
		ResponsePreferences: model.ResponsePreferences{
			PreferredResponseLength: d.PreferredResponseLength,
			DislikedResponseLength:  d.DislikedResponseLength,
		},
		ActivityPatterns: model.ActivityPatterns{
			MostActiveHours:   d.ActivityActiveHours,
			TotalInteractions: d.TotalInteractions,
		},
		LastMemoryAnalysis:  d.LastMemoryAnalysis,
		MemoryAnalysisCount: d.MemoryAnalysisCount,
	}
}

type profileRepository struct {
	client *firestore.Client
	names  *collectionNames
}

func newProfileRepository(client *firestore.Client, names *collectionNames) *profileRepository {
	return &profileRepository{client: client, names: names}
}

func (r *profileRepository) onboardingRef(userID string) *firestore.DocumentRef {
	return r.client.Collection(r.names.name(CollectionOnboarding)).Doc(userID)
}

func (r *profileRepository) behaviorRef(userID string) *firestore.DocumentRef {
	return r.client.Collection(r.names.name(CollectionBehavior)).Doc(userID)
}

func (r *profileRepository) GetOnboarding(ctx context.Context, userID string) (*model.OnboardingProfile, error) {
	doc, err := r.onboardingRef(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get onboarding profile", goerr.V("userID", userID))
	}

	var d onboardingDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal onboarding profile", goerr.V("userID", userID))
	}

	return &model.OnboardingProfile{
		UserID:       d.UserID,
		Objective:    d.Objective,
		Domain:       d.Domain,
		CurrentLevel: d.CurrentLevel,
	}, nil
}

func (r *profileRepository) PutOnboarding(ctx context.Context, profile *model.OnboardingProfile) error {
	d := &onboardingDoc{
		UserID:       profile.UserID,
		Objective:    profile.Objective,
		Domain:       profile.Domain,
		CurrentLevel: profile.CurrentLevel,
	}
	if _, err := r.onboardingRef(profile.UserID).Set(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to put onboarding profile", goerr.V("userID", profile.UserID))
	}
	return nil
}

func (r *profileRepository) GetBehavior(ctx context.Context, userID string) (*model.BehaviorProfile, error) {
	doc, err := r.behaviorRef(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get behavior profile", goerr.V("userID", userID))
	}

	var d behaviorDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal behavior profile", goerr.V("userID", userID))
	}
	return fromBehaviorDoc(&d), nil
}

func (r *profileRepository) PutBehavior(ctx context.Context, profile *model.BehaviorProfile) error {
	if _, err := r.behaviorRef(profile.UserID).Set(ctx, toBehaviorDoc(profile)); err != nil {
		return goerr.Wrap(err, "failed to put behavior profile", goerr.V("userID", profile.UserID))
	}
	return nil
}

// ApplyBehaviorDelta replaces the synthesized fields inside a transaction.
// The analysis counter uses a server-side increment.
func (r *profileRepository) ApplyBehaviorDelta(ctx context.Context, userID string, delta *model.BehaviorProfileDelta) (*model.BehaviorProfile, error) {
	ref := r.behaviorRef(userID)

	var updated *model.BehaviorProfile
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return goerr.Wrap(err, "failed to get behavior profile")
			}
			updated = &model.BehaviorProfile{UserID: userID}
			updated.Apply(delta)
			return tx.Create(ref, toBehaviorDoc(updated))
		}

		var d behaviorDoc
		if err := doc.DataTo(&d); err != nil {
			return goerr.Wrap(err, "failed to unmarshal behavior profile")
		}
		updated = fromBehaviorDoc(&d)
		updated.Apply(delta)

		next := toBehaviorDoc(updated)
		return tx.Update(ref, []firestore.Update{
			{Path: "PrefersDetailedResponses", Value: next.PrefersDetailedResponses},
			{Path: "CommunicationActiveHours", Value: next.CommunicationActiveHours},
			{Path: "RecurringTopics", Value: next.RecurringTopics},
			{Path: "DominantEmotions", Value: next.DominantEmotions},
			{Path: "GoalEvolution", Value: next.GoalEvolution},
			{Path: "PreferredResponseLength", Value: next.PreferredResponseLength},
			{Path: "DislikedResponseLength", Value: next.DislikedResponseLength},
			{Path: "ActivityActiveHours", Value: next.ActivityActiveHours},
			{Path: "TotalInteractions", Value: next.TotalInteractions},
			{Path: "LastMemoryAnalysis", Value: next.LastMemoryAnalysis},
			{Path: "MemoryAnalysisCount", Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to apply behavior profile delta", goerr.V("userID", userID))
	}

	return updated, nil
}
