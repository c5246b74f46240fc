package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/models"
)

func newUserFixture() (*UserService, *memUserStore, *fakeEmailSender, *memLocker) {
	store := newMemUserStore()
	email := &fakeEmailSender{}
	locker := newMemLocker()
	svc := NewUserService(store, locker, email, &recordingPublisher{}, "http://localhost:3000")
	return svc, store, email, locker
}

// seedVerified creates a verified local account with the given password.
func seedVerified(t *testing.T, store *memUserStore, email, password string) *models.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	user := &models.User{
		Email:           email,
		PasswordHash:    hash,
		AuthProvider:    models.ProviderLocal,
		Role:            models.RoleUser,
		IsEmailVerified: true,
	}
	if err := store.Create(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	return user
}

func TestSignup(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	ctx := context.Background()

	user, err := svc.Signup(ctx, "Ada", "Lovelace", "  Ada@Example.COM ", "correct-horse")
	if err != nil {
		t.Fatalf("Signup() error: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email not normalized: %s", user.Email)
	}
	if user.IsEmailVerified {
		t.Error("new account must start unverified")
	}
	if user.PasswordHash == "correct-horse" {
		t.Fatal("password stored in plaintext")
	}
	if !verifyPassword(user.PasswordHash, "correct-horse") {
		t.Error("stored hash does not verify")
	}

	// Unverified re-signup is refreshed in place, not duplicated.
	again, err := svc.Signup(ctx, "Ada", "L", "ada@example.com", "new-password-1")
	if err != nil {
		t.Fatalf("re-signup error: %v", err)
	}
	if again.ID != user.ID {
		t.Error("unverified re-signup created a second account")
	}
	if !verifyPassword(again.PasswordHash, "new-password-1") {
		t.Error("re-signup did not replace the password")
	}

	// A verified account is a hard conflict.
	stored := store.get("ada@example.com")
	stored.IsEmailVerified = true
	_, err = svc.Signup(ctx, "Ada", "L", "ada@example.com", "whatever-123")
	if apperror.KindOf(err) != apperror.DuplicateKey {
		t.Fatalf("verified re-signup = %v, want DUPLICATE_KEY", err)
	}
}

func TestSignupRejectsShortPassword(t *testing.T) {
	svc, _, _, _ := newUserFixture()

	_, err := svc.Signup(context.Background(), "A", "B", "short@example.com", "seven77")
	if apperror.KindOf(err) != apperror.ValidationError {
		t.Fatalf("Signup() = %v, want VALIDATION_ERROR", err)
	}
}

func TestLogin(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	ctx := context.Background()
	seedVerified(t, store, "login@example.com", "hunter2hunter2")

	t.Run("success", func(t *testing.T) {
		user, err := svc.Login(ctx, "Login@Example.com", "hunter2hunter2")
		if err != nil {
			t.Fatalf("Login() error: %v", err)
		}
		if user.LastLoginAt == 0 {
			t.Error("lastLoginAt not recorded")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "login@example.com", "wrong-password")
		if apperror.KindOf(err) != apperror.InvalidCredentials {
			t.Fatalf("Login() = %v, want INVALID_CREDENTIALS", err)
		}
	})

	t.Run("unknown email is indistinguishable", func(t *testing.T) {
		_, missingErr := svc.Login(ctx, "nobody@example.com", "hunter2hunter2")
		_, wrongErr := svc.Login(ctx, "login@example.com", "wrong-password")
		if missingErr == nil || wrongErr == nil {
			t.Fatal("expected both logins to fail")
		}
		if missingErr.Error() != wrongErr.Error() {
			t.Errorf("missing-user and wrong-password errors differ: %q vs %q", missingErr, wrongErr)
		}
	})
}

func TestLoginUnverified(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	ctx := context.Background()

	hash, _ := HashPassword("hunter2hunter2")
	user := &models.User{Email: "pending@example.com", PasswordHash: hash, AuthProvider: models.ProviderLocal}
	if err := store.Create(ctx, user); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Login(ctx, "pending@example.com", "hunter2hunter2")
	if apperror.KindOf(err) != apperror.EmailNotVerified {
		t.Fatalf("Login() = %v, want EMAIL_NOT_VERIFIED", err)
	}
}

func TestLoginLockout(t *testing.T) {
	svc, store, _, locker := newUserFixture()
	ctx := context.Background()
	seedVerified(t, store, "locked@example.com", "hunter2hunter2")

	// Two failures inside a second trip the instant lock.
	svc.Login(ctx, "locked@example.com", "bad-password-1")
	svc.Login(ctx, "locked@example.com", "bad-password-2")

	if locker.GetInt(ctx, lockKey("locked@example.com")) == 0 {
		t.Fatal("rapid failures did not store a lockout marker")
	}

	_, err := svc.Login(ctx, "locked@example.com", "hunter2hunter2")
	if apperror.KindOf(err) != apperror.InvalidCredentials {
		t.Fatalf("locked login = %v, want INVALID_CREDENTIALS", err)
	}
}

func TestSoftDeleteHidesAccount(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	ctx := context.Background()
	user := seedVerified(t, store, "gone@example.com", "hunter2hunter2")

	if err := svc.SoftDelete(ctx, user); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}

	if _, err := svc.Login(ctx, "gone@example.com", "hunter2hunter2"); apperror.KindOf(err) != apperror.InvalidCredentials {
		t.Fatalf("login after delete = %v, want INVALID_CREDENTIALS", err)
	}
	if u, _ := store.FindByEmail(ctx, "gone@example.com"); u != nil {
		t.Error("soft-deleted account visible to filtered lookup")
	}
	if u, _ := store.FindByEmailAny(ctx, "gone@example.com"); u == nil {
		t.Error("soft-deleted account missing from privileged lookup")
	}
}

func TestSetupPassword(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	ctx := context.Background()

	otpUser := &models.User{
		Email:           "otp@example.com",
		AuthProvider:    models.ProviderLocal,
		IsEmailVerified: true,
		IsOtpSignup:     true,
	}
	if err := store.Create(ctx, otpUser); err != nil {
		t.Fatal(err)
	}

	user, err := svc.SetupPassword(ctx, "otp@example.com", "first-password")
	if err != nil {
		t.Fatalf("SetupPassword() error: %v", err)
	}
	if !verifyPassword(user.PasswordHash, "first-password") {
		t.Error("password not stored")
	}
	if user.IsOtpSignup {
		t.Error("otp-signup marker not cleared")
	}
	if user.PasswordChangedAt.IsZero() {
		t.Error("passwordChangedAt not set")
	}

	// A second setup attempt must be rejected now that a password exists.
	_, err = svc.SetupPassword(ctx, "otp@example.com", "second-password")
	if apperror.KindOf(err) != apperror.ValidationError {
		t.Fatalf("repeat SetupPassword() = %v, want VALIDATION_ERROR", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc, store, _, _ := newUserFixture()
	ctx := context.Background()
	user := seedVerified(t, store, "rotate@example.com", "old-password-1")

	if err := svc.UpdatePassword(ctx, user, "old-password-1", "new-password-1"); err != nil {
		t.Fatalf("UpdatePassword() error: %v", err)
	}
	if !verifyPassword(user.PasswordHash, "new-password-1") {
		t.Error("new password not stored")
	}
	if user.PasswordChangedAt.IsZero() {
		t.Error("passwordChangedAt not set")
	}

	err := svc.UpdatePassword(ctx, user, "old-password-1", "another-one-1")
	if apperror.KindOf(err) != apperror.InvalidCredentials {
		t.Fatalf("UpdatePassword() with stale current = %v, want INVALID_CREDENTIALS", err)
	}
}

func TestForgotResetPassword(t *testing.T) {
	svc, store, email, _ := newUserFixture()
	ctx := context.Background()
	seedVerified(t, store, "forgot@example.com", "old-password-1")

	if err := svc.ForgotPassword(ctx, "forgot@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error: %v", err)
	}
	if len(email.resets) != 1 {
		t.Fatalf("reset emails = %d, want 1", len(email.resets))
	}

	// The mailed link carries the plaintext token; only its hash is stored.
	url := email.resets[0]
	token := url[strings.LastIndex(url, "/")+1:]
	stored := store.get("forgot@example.com")
	if stored.ResetTokenHash == token {
		t.Fatal("plaintext reset token stored")
	}
	if stored.ResetTokenHash != hashResetToken(token) {
		t.Fatal("stored hash does not match mailed token")
	}

	user, err := svc.ResetPassword(ctx, token, "brand-new-pass")
	if err != nil {
		t.Fatalf("ResetPassword() error: %v", err)
	}
	if !verifyPassword(user.PasswordHash, "brand-new-pass") {
		t.Error("reset did not store the new password")
	}
	if user.ResetTokenHash != "" {
		t.Error("reset token not consumed")
	}

	// Consumed token cannot be replayed.
	if _, err := svc.ResetPassword(ctx, token, "yet-another-pw"); apperror.KindOf(err) != apperror.NotFound {
		t.Fatalf("replayed token = %v, want NOT_FOUND", err)
	}
}

func TestForgotPasswordDispatchFailure(t *testing.T) {
	svc, store, email, _ := newUserFixture()
	ctx := context.Background()
	seedVerified(t, store, "bounce@example.com", "old-password-1")
	email.fail = true

	err := svc.ForgotPassword(ctx, "bounce@example.com")
	if apperror.KindOf(err) != apperror.EmailDispatchFailure {
		t.Fatalf("ForgotPassword() = %v, want EMAIL_DISPATCH_FAILURE", err)
	}
	if store.get("bounce@example.com").ResetTokenHash != "" {
		t.Error("undeliverable reset token left active")
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc, store, email, _ := newUserFixture()
	ctx := context.Background()
	seedVerified(t, store, "slow@example.com", "old-password-1")

	if err := svc.ForgotPassword(ctx, "slow@example.com"); err != nil {
		t.Fatal(err)
	}
	url := email.resets[0]
	token := url[strings.LastIndex(url, "/")+1:]

	store.get("slow@example.com").ResetTokenExpires = time.Now().Add(-time.Second)

	if _, err := svc.ResetPassword(ctx, token, "brand-new-pass"); apperror.KindOf(err) != apperror.NotFound {
		t.Fatalf("expired token = %v, want NOT_FOUND", err)
	}
}
