package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/events"
	"learnhub-server/internal/models"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
	resetTokenTTL     = 10 * time.Minute

	lockoutThreshold = 10
	lockoutTTL       = 10 * time.Minute
)

// UserService owns the credential store operations: account creation,
// password login, password lifecycle and soft deletion.
type UserService struct {
	users     UserStore
	locker    Locker
	email     EmailSender
	publisher events.Publisher
	feAddress string

	mu     sync.Mutex
	failed map[string]*failedLoginAttempt
}

type failedLoginAttempt struct {
	failedAt     int64
	failedNumber int
}

func NewUserService(users UserStore, locker Locker, email EmailSender, publisher events.Publisher, feAddress string) *UserService {
	return &UserService{
		users:     users,
		locker:    locker,
		email:     email,
		publisher: publisher,
		feAddress: feAddress,
		failed:    make(map[string]*failedLoginAttempt),
	}
}

// NormalizeEmail lowercases and trims; email is the natural key and lookups
// must be case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}

func verifyPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

func validatePassword(plaintext string) error {
	if len(plaintext) < minPasswordLength {
		return apperror.New(apperror.ValidationError,
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

// Signup creates an unverified local account. An already-verified email is a
// conflict; an unverified one is refreshed in place so an abandoned signup
// can be retried.
func (us *UserService) Signup(ctx context.Context, firstName, lastName, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperror.New(apperror.ValidationError, "email is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	existing, err := us.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsEmailVerified {
			return nil, apperror.New(apperror.DuplicateKey, "email already registered")
		}
		existing.FirstName = firstName
		existing.LastName = lastName
		existing.PasswordHash = hash
		existing.IsOtpSignup = false
		if err := us.users.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	user := &models.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		AuthProvider: models.ProviderLocal,
		Role:         models.RoleUser,
	}
	if err := us.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if us.publisher != nil {
		if err := us.publisher.PublishUserRegistered(ctx, user.ID.Hex(), user.Email, user.AuthProvider); err != nil {
			log.Printf("Warning: Failed to publish user registered event: %v", err)
		}
	}
	return user, nil
}

// Login validates email+password. Missing user and wrong password collapse
// into the same InvalidCredentials response; the distinction is only logged
// server-side.
func (us *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)

	if us.locker != nil && us.locker.GetInt(ctx, lockKey(email)) != 0 {
		log.Printf("Login rejected for locked account: %s", email)
		return nil, apperror.New(apperror.InvalidCredentials, "invalid email or password")
	}

	user, err := us.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		log.Printf("Login failed for %s: no such user", email)
		return nil, apperror.New(apperror.InvalidCredentials, "invalid email or password")
	}

	if !verifyPassword(user.PasswordHash, password) {
		log.Printf("Login failed for %s: wrong password", email)
		us.recordFailedLogin(ctx, email)
		return nil, apperror.New(apperror.InvalidCredentials, "invalid email or password")
	}

	if !user.IsEmailVerified {
		return nil, apperror.New(apperror.EmailNotVerified, "email not verified")
	}

	us.clearFailedLogins(email)

	user.LastLoginAt = time.Now().Unix()
	if err := us.users.Update(ctx, user); err != nil {
		log.Printf("Warning: failed to record last login for %s: %v", email, err)
	}
	return user, nil
}

func lockKey(email string) string {
	return "lock-user:" + email
}

func (us *UserService) recordFailedLogin(ctx context.Context, email string) {
	now := time.Now().UnixMilli()

	us.mu.Lock()
	attempt := us.failed[email]
	if attempt == nil {
		attempt = &failedLoginAttempt{}
		us.failed[email] = attempt
	}
	last := attempt.failedAt
	attempt.failedAt = now
	attempt.failedNumber++
	count := attempt.failedNumber
	us.mu.Unlock()

	if us.locker == nil {
		return
	}
	if now-last < 1000 && last != 0 {
		log.Printf("WARN: suspicious login activity for %s, instant lock", email)
		if err := us.locker.SaveInt(ctx, lockKey(email), now, lockoutTTL); err != nil {
			log.Printf("failed to store lockout marker for %s: %v", email, err)
		}
		return
	}
	if count > lockoutThreshold {
		log.Printf("User %s failed login %d times, locked for %s", email, count, lockoutTTL)
		if err := us.locker.SaveInt(ctx, lockKey(email), now, lockoutTTL); err != nil {
			log.Printf("failed to store lockout marker for %s: %v", email, err)
		}
	}
}

func (us *UserService) clearFailedLogins(email string) {
	us.mu.Lock()
	delete(us.failed, email)
	us.mu.Unlock()
}

// CheckEmail reports whether an account exists for the address, without
// authenticating.
func (us *UserService) CheckEmail(ctx context.Context, email string) (*models.User, error) {
	return us.users.FindByEmail(ctx, NormalizeEmail(email))
}

// SetupPassword completes an OTP-initiated signup by storing the first
// password. Only valid for a verified account still waiting for one.
func (us *UserService) SetupPassword(ctx context.Context, email, password string) (*models.User, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	user, err := us.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.New(apperror.NotFound, "no account found for this email")
	}
	if !user.IsEmailVerified {
		return nil, apperror.New(apperror.EmailNotVerified, "email not verified")
	}
	if !user.IsOtpSignup || user.PasswordHash != "" {
		return nil, apperror.New(apperror.ValidationError, "password already set for this account")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.IsOtpSignup = false
	user.PasswordChangedAt = passwordChangeTime()
	if err := us.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// passwordChangeTime backdates the change by a second. Token iat values are
// second-granular, so a token issued together with the change must not read
// as older than it.
func passwordChangeTime() time.Time {
	return time.Now().Add(-time.Second)
}

// UpdatePassword verifies the current password before replacing it. Setting
// passwordChangedAt invalidates every previously issued token.
func (us *UserService) UpdatePassword(ctx context.Context, user *models.User, currentPassword, newPassword string) error {
	if !verifyPassword(user.PasswordHash, currentPassword) {
		return apperror.New(apperror.InvalidCredentials, "current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = passwordChangeTime()
	return us.users.Update(ctx, user)
}

// ForgotPassword stores a hashed single-use reset token on the record and
// emails the plaintext token as a link. The plaintext never touches storage.
func (us *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := us.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return apperror.New(apperror.NotFound, "no account found for this email")
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return fmt.Errorf("error generating reset token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	user.ResetTokenHash = hashResetToken(token)
	user.ResetTokenExpires = time.Now().Add(resetTokenTTL)
	if err := us.users.Update(ctx, user); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(us.feAddress, "/"), token)
	if err := us.email.SendPasswordReset(user.Email, resetURL); err != nil {
		// Undo so a valid-looking but undeliverable token is not left active.
		user.ResetTokenHash = ""
		user.ResetTokenExpires = time.Time{}
		if clearErr := us.users.Update(ctx, user); clearErr != nil {
			log.Printf("failed to clear reset token for %s after dispatch failure: %v", user.Email, clearErr)
		}
		return apperror.Wrap(apperror.EmailDispatchFailure, "failed to send reset email", err)
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (us *UserService) ResetPassword(ctx context.Context, token, password string) (*models.User, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	user, err := us.users.FindByResetTokenHash(ctx, hashResetToken(token))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.New(apperror.NotFound, "invalid or expired reset token")
	}
	if time.Now().After(user.ResetTokenExpires) {
		return nil, apperror.New(apperror.NotFound, "invalid or expired reset token")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = passwordChangeTime()
	user.ResetTokenHash = ""
	user.ResetTokenExpires = time.Time{}
	if err := us.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SoftDelete hides the account from all normal reads without removing the
// document.
func (us *UserService) SoftDelete(ctx context.Context, user *models.User) error {
	user.Active = false
	user.IsDeleted = true
	return us.users.Update(ctx, user)
}

func (us *UserService) ListUsers(ctx context.Context, page, limit int) ([]*models.User, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return us.users.FindAll(ctx, page, limit)
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
