package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

type profileRepository struct {
	mu         sync.RWMutex
	onboarding map[string]*model.OnboardingProfile
	behavior   map[string]*model.BehaviorProfile
}

func newProfileRepository() *profileRepository {
	return &profileRepository{
		onboarding: make(map[string]*model.OnboardingProfile),
		behavior:   make(map[string]*model.BehaviorProfile),
	}
}

func (r *profileRepository) GetOnboarding(ctx context.Context, userID string) (*model.OnboardingProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.onboarding[userID]
	if !exists {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *profileRepository) PutOnboarding(ctx context.Context, profile *model.OnboardingProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *profile
	r.onboarding[profile.UserID] = &copied
	return nil
}

func (r *profileRepository) GetBehavior(ctx context.Context, userID string) (*model.BehaviorProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.behavior[userID]
	if !exists {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *profileRepository) PutBehavior(ctx context.Context, profile *model.BehaviorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.behavior[profile.UserID] = profile.Clone()
	return nil
}

func (r *profileRepository) ApplyBehaviorDelta(ctx context.Context, userID string, delta *model.BehaviorProfileDelta) (*model.BehaviorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.behavior[userID]
	if !exists {
		p = &model.BehaviorProfile{UserID: userID}
	}

	updated := p.Clone()
	updated.Apply(delta)
	r.behavior[userID] = updated
	return updated.Clone(), nil
}
