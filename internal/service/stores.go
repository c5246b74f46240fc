package service

import (
	"context"
	"time"

	"learnhub-server/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserStore is the credential store surface the services work against. The
// Mongo repository satisfies it in production; tests use in-memory fakes.
// Find* exclude soft-deleted records; FindByEmailAny is the privileged
// lookup that does not.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailAny(ctx context.Context, email string) (*models.User, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	FindAll(ctx context.Context, page, limit int) ([]*models.User, error)
}

type ProfileStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, userID string, fields models.ProfileFields) (*models.Profile, error)
}

type ResultStore interface {
	Create(ctx context.Context, result *models.QuizResult) error
	FindByUser(ctx context.Context, userID string) ([]models.QuizResult, error)
}

// EmailSender dispatches transactional mail. Failures surface to the caller;
// the OTP flow maps them to EmailDispatchFailure.
type EmailSender interface {
	SendOTP(to, code, purpose string) error
	SendPasswordReset(to, resetURL string) error
	SendWelcome(to, name string) error
}

// Locker holds the login lockout markers. Backed by Redis in production; a
// nil Locker disables lockout.
type Locker interface {
	GetInt(ctx context.Context, key string) int64
	SaveInt(ctx context.Context, key string, value int64, ttl time.Duration) error
}
