package interfaces

import (
	"context"

	"github.com/secmon-lab/coachmem/pkg/domain/model"
)

// ProfileRepository stores onboarding and behavior profiles keyed by user ID.
// Getters return nil without error when the user has no profile yet.
type ProfileRepository interface {
	GetOnboarding(ctx context.Context, userID string) (*model.OnboardingProfile, error)
	PutOnboarding(ctx context.Context, profile *model.OnboardingProfile) error

	GetBehavior(ctx context.Context, userID string) (*model.BehaviorProfile, error)
	PutBehavior(ctx context.Context, profile *model.BehaviorProfile) error

	// ApplyBehaviorDelta upserts the profile, replacing the synthesized
	// fields and atomically incrementing the analysis counter.
	ApplyBehaviorDelta(ctx context.Context, userID string, delta *model.BehaviorProfileDelta) (*model.BehaviorProfile, error)
}
