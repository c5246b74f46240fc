package service

import (
	"context"
	"log"
	"time"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/events"
	"learnhub-server/internal/models"

	"github.com/google/uuid"
)

const (
	FederationActionLogin  = "login"
	FederationActionSignup = "signup"
)

// GoogleProfile is the identity assertion extracted from Google's userinfo
// endpoint.
type GoogleProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"given_name"`
	LastName  string `json:"family_name"`
	Picture   string `json:"picture"`
}

type FederationDecision int

const (
	FederationCreate FederationDecision = iota
	FederationUpdate
	FederationUpgrade
)

// ResolveFederation is the decision table reconciling a Google assertion
// against the local account state, keyed on {account exists, auth provider,
// email verified, declared action}. The upgrade branch converts an
// unverified local account into a Google one; everything else either reuses,
// creates, or rejects.
func ResolveFederation(user *models.User, action string) (FederationDecision, error) {
	if action != FederationActionLogin && action != FederationActionSignup {
		return 0, apperror.New(apperror.AuthenticationFailed, "authentication failed")
	}

	if user == nil {
		if action == FederationActionSignup {
			return FederationCreate, nil
		}
		return 0, apperror.New(apperror.NoAccountFound, "no account found, please sign up first")
	}

	switch user.AuthProvider {
	case models.ProviderGoogle:
		if action == FederationActionSignup {
			return 0, apperror.New(apperror.AlreadySignedUp, "account already exists, please log in")
		}
		return FederationUpdate, nil

	case models.ProviderLocal:
		if user.IsEmailVerified {
			return 0, apperror.New(apperror.UseLocalCredentials, "this email uses a password, sign in with it")
		}
		if action == FederationActionSignup {
			return FederationUpgrade, nil
		}
	}

	return 0, apperror.New(apperror.AuthenticationFailed, "authentication failed")
}

// FederationService applies federation decisions against the credential
// store.
type FederationService struct {
	users     UserStore
	publisher events.Publisher
}

func NewFederationService(users UserStore, publisher events.Publisher) *FederationService {
	return &FederationService{
		users:     users,
		publisher: publisher,
	}
}

// Authenticate reconciles the Google profile with the local store under the
// client-declared action and returns the resulting account.
func (fs *FederationService) Authenticate(ctx context.Context, profile *GoogleProfile, action string) (*models.User, error) {
	email := NormalizeEmail(profile.Email)
	if email == "" || profile.ID == "" {
		return nil, apperror.New(apperror.AuthenticationFailed, "authentication failed")
	}

	user, err := fs.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	decision, err := ResolveFederation(user, action)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	switch decision {
	case FederationCreate:
		// The schema still requires a stored password value; a random bcrypt
		// hash keeps password login permanently unusable for this account.
		placeholder, err := HashPassword(uuid.NewString())
		if err != nil {
			return nil, err
		}
		user = &models.User{
			Email:           email,
			FirstName:       profile.FirstName,
			LastName:        profile.LastName,
			PasswordHash:    placeholder,
			AuthProvider:    models.ProviderGoogle,
			ExternalID:      profile.ID,
			Role:            models.RoleUser,
			IsEmailVerified: true,
			LastLoginAt:     now.Unix(),
		}
		if err := fs.users.Create(ctx, user); err != nil {
			return nil, err
		}
		if fs.publisher != nil {
			if err := fs.publisher.PublishUserRegistered(ctx, user.ID.Hex(), user.Email, user.AuthProvider); err != nil {
				log.Printf("Warning: Failed to publish user registered event: %v", err)
			}
		}

	case FederationUpgrade:
		user.AuthProvider = models.ProviderGoogle
		user.ExternalID = profile.ID
		user.IsEmailVerified = true
		user.IsOtpSignup = false
		user.LastLoginAt = now.Unix()
		if user.FirstName == "" {
			user.FirstName = profile.FirstName
		}
		if user.LastName == "" {
			user.LastName = profile.LastName
		}
		if err := fs.users.Update(ctx, user); err != nil {
			return nil, err
		}

	case FederationUpdate:
		if user.ExternalID == "" {
			user.ExternalID = profile.ID
		}
		user.LastLoginAt = now.Unix()
		if err := fs.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	return user, nil
}
