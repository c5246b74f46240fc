package service

import (
	"context"
	"log"

	"learnhub-server/internal/events"
	"learnhub-server/internal/models"
)

// ProfileService owns the onboarding state: the Profile document and the
// onboarded flag on the user record.
type ProfileService struct {
	profiles  ProfileStore
	users     UserStore
	publisher events.Publisher
}

func NewProfileService(profiles ProfileStore, users UserStore, publisher events.Publisher) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		users:     users,
		publisher: publisher,
	}
}

// CompleteOnboarding upserts the Profile first and only then sets the
// onboarded flag. A crash in between leaves onboarded=false with a profile
// already stored, which re-enters cleanly on retry; the reverse order would
// mark onboarding done with nothing collected.
func (ps *ProfileService) CompleteOnboarding(ctx context.Context, user *models.User, fields models.ProfileFields) (*models.Profile, error) {
	profile, err := ps.profiles.Upsert(ctx, user.ID.Hex(), fields)
	if err != nil {
		return nil, err
	}

	if !user.Onboarded {
		user.Onboarded = true
		if err := ps.users.Update(ctx, user); err != nil {
			return nil, err
		}
		ps.publishOnboarded(ctx, user.ID.Hex())
	}
	return profile, nil
}

// MarkOnboarded sets the flag without collecting profile fields; federated
// users skip the questionnaire, so their Profile may never exist.
func (ps *ProfileService) MarkOnboarded(ctx context.Context, user *models.User) error {
	if user.Onboarded {
		return nil
	}
	user.Onboarded = true
	if err := ps.users.Update(ctx, user); err != nil {
		return err
	}
	ps.publishOnboarded(ctx, user.ID.Hex())
	return nil
}

// GetProfile returns the stored profile, or an empty one with defaults when
// none exists yet.
func (ps *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := ps.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return &models.Profile{UserID: userID}, nil
	}
	return profile, nil
}

func (ps *ProfileService) publishOnboarded(ctx context.Context, userID string) {
	if ps.publisher == nil {
		return
	}
	if err := ps.publisher.PublishUserOnboarded(ctx, userID); err != nil {
		log.Printf("Warning: Failed to publish user onboarded event: %v", err)
	}
}
