package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/events"
	"learnhub-server/internal/models"
)

const (
	OTPPurposeSignup = "signup"
	OTPPurposeReset  = "reset"

	otpLength = 6
	otpTTL    = 10 * time.Minute
)

// OTPService drives the per-account OTP state machine. The code and expiry
// live on the User document and are always set and cleared together; a
// successful verification is the only transition that clears them.
type OTPService struct {
	users     UserStore
	email     EmailSender
	publisher events.Publisher
}

func NewOTPService(users UserStore, email EmailSender, publisher events.Publisher) *OTPService {
	return &OTPService{
		users:     users,
		email:     email,
		publisher: publisher,
	}
}

// RequestOTP issues a fresh code for the (email, purpose) pair, overwriting
// any code already outstanding. For signup with no existing account an
// unverified user record is created first.
func (o *OTPService) RequestOTP(ctx context.Context, email, purpose, firstName, lastName string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperror.New(apperror.ValidationError, "email is required")
	}
	if purpose != OTPPurposeSignup && purpose != OTPPurposeReset {
		return apperror.New(apperror.ValidationError, "type must be signup or reset")
	}

	user, err := o.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	switch purpose {
	case OTPPurposeSignup:
		if user != nil && user.IsEmailVerified {
			return apperror.New(apperror.AlreadySignedUp, "email already registered, please log in")
		}
		if user == nil {
			user = &models.User{
				Email:        email,
				FirstName:    firstName,
				LastName:     lastName,
				AuthProvider: models.ProviderLocal,
				Role:         models.RoleUser,
				IsOtpSignup:  true,
			}
			if err := o.users.Create(ctx, user); err != nil {
				return err
			}
			if o.publisher != nil {
				if err := o.publisher.PublishUserRegistered(ctx, user.ID.Hex(), user.Email, user.AuthProvider); err != nil {
					log.Printf("Warning: Failed to publish user registered event: %v", err)
				}
			}
		}
	case OTPPurposeReset:
		if user == nil {
			return apperror.New(apperror.NotFound, "no account found for this email")
		}
	}

	code, err := generateOTP(otpLength)
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	user.OTPCode = code
	user.OTPPurpose = purpose
	user.OTPExpiresAt = time.Now().Add(otpTTL)
	if err := o.users.Update(ctx, user); err != nil {
		return err
	}

	if err := o.email.SendOTP(user.Email, code, purpose); err != nil {
		log.Printf("Failed to send OTP email to %s: %v", user.Email, err)
		// Best-effort cleanup so an undeliverable code does not stay active.
		user.ClearOTP()
		if clearErr := o.users.Update(ctx, user); clearErr != nil {
			log.Printf("failed to clear OTP for %s after dispatch failure: %v", user.Email, clearErr)
		}
		return apperror.Wrap(apperror.EmailDispatchFailure, "failed to send verification email", err)
	}

	log.Printf("Issued %s OTP for %s", purpose, user.Email)
	return nil
}

// VerifyResult reports the outcome of a successful verification.
// RequiresPasswordSetup is true for OTP-initiated signups that still have no
// password; the caller must not issue a session token in that case.
type VerifyResult struct {
	User                  *models.User
	RequiresPasswordSetup bool
}

// VerifyOTP checks the submitted code against the stored one. The code is
// bound to the purpose it was issued for; a code requested for one purpose
// never verifies under another. Wrong, mismatched or expired codes leave the
// stored state untouched so the client can retry or re-request; success
// clears the code, making it single-use.
func (o *OTPService) VerifyOTP(ctx context.Context, email, code, purpose string) (*VerifyResult, error) {
	if purpose != OTPPurposeSignup && purpose != OTPPurposeReset {
		return nil, apperror.New(apperror.ValidationError, "type must be signup or reset")
	}

	user, err := o.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.New(apperror.NotFound, "no account found for this email")
	}
	if !user.HasActiveOTP() {
		return nil, apperror.New(apperror.InvalidOtp, "no verification code outstanding, request a new one")
	}
	if user.OTPPurpose != purpose {
		return nil, apperror.New(apperror.InvalidOtp, "no verification code outstanding for this request")
	}
	if otpExpired(time.Now(), user.OTPExpiresAt) {
		return nil, apperror.New(apperror.OtpExpired, "verification code expired, request a new one")
	}
	if user.OTPCode != code {
		return nil, apperror.New(apperror.InvalidOtp, "incorrect verification code")
	}

	user.ClearOTP()

	// An OTP-initiated signup without a password never gets a session from
	// here, whatever the purpose; the caller gates token issuance on this.
	requiresPasswordSetup := user.IsOtpSignup && user.PasswordHash == ""
	if purpose == OTPPurposeSignup {
		user.IsEmailVerified = true
	}

	if err := o.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if purpose == OTPPurposeSignup {
		if o.publisher != nil {
			if err := o.publisher.PublishEmailVerified(ctx, user.ID.Hex(), user.Email); err != nil {
				log.Printf("Warning: Failed to publish email verified event: %v", err)
			}
		}
		if err := o.email.SendWelcome(user.Email, user.FirstName); err != nil {
			log.Printf("Failed to send welcome email to %s: %v", user.Email, err)
		}
	}

	return &VerifyResult{User: user, RequiresPasswordSetup: requiresPasswordSetup}, nil
}

// otpExpired reports whether a code has aged out: it is only accepted
// strictly before its expiry instant.
func otpExpired(now, expiresAt time.Time) bool {
	return !now.Before(expiresAt)
}

// generateOTP returns a random numeric code of the given length.
func generateOTP(length int) (string, error) {
	code := ""
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code += num.String()
	}
	return code, nil
}
