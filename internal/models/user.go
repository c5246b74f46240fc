package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email           string        `bson:"email" json:"email"`
	FirstName       string        `bson:"firstName,omitempty" json:"firstName"`
	LastName        string        `bson:"lastName,omitempty" json:"lastName"`
	PasswordHash    string        `bson:"passwordHash,omitempty" json:"-"`
	AuthProvider    string        `bson:"authProvider" json:"authProvider"`
	ExternalID      string        `bson:"externalId,omitempty" json:"-"`
	Role            string        `bson:"role" json:"role"`
	IsEmailVerified bool          `bson:"isEmailVerified" json:"isEmailVerified"`
	IsOtpSignup     bool          `bson:"isOtpSignup" json:"-"`
	Onboarded       bool          `bson:"onboarded" json:"onboarded"`
	Active          bool          `bson:"active" json:"-"`
	IsDeleted       bool          `bson:"isDeleted" json:"-"`

	OTPCode      string    `bson:"otpCode,omitempty" json:"-"`
	OTPPurpose   string    `bson:"otpPurpose,omitempty" json:"-"`
	OTPExpiresAt time.Time `bson:"otpExpiresAt,omitempty" json:"-"`

	ResetTokenHash    string    `bson:"resetToken,omitempty" json:"-"`
	ResetTokenExpires time.Time `bson:"resetTokenExpiresAt,omitempty" json:"-"`

	PasswordChangedAt time.Time `bson:"passwordChangedAt,omitempty" json:"-"`
	CreatedAt         int64     `bson:"createdAt" json:"createdAt"`
	UpdatedAt         int64     `bson:"updatedAt" json:"updatedAt"`
	LastLoginAt       int64     `bson:"lastLoginAt,omitempty" json:"lastLoginAt"`
}

// PublicUser is the shape returned by the API. The password hash and OTP
// fields never leave the server.
type PublicUser struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Role            string `json:"role"`
	AuthProvider    string `json:"authProvider"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	Onboarded       bool   `json:"onboarded"`
	LastLoginAt     int64  `json:"lastLoginAt,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID.Hex(),
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		AuthProvider:    u.AuthProvider,
		IsEmailVerified: u.IsEmailVerified,
		Onboarded:       u.Onboarded,
		LastLoginAt:     u.LastLoginAt,
	}
}

// HasActiveOTP reports whether an OTP is currently stored on the record.
// Code, purpose and expiry are always set and cleared together.
func (u *User) HasActiveOTP() bool {
	return u.OTPCode != "" && !u.OTPExpiresAt.IsZero()
}

// ClearOTP removes the stored code and everything bound to it.
func (u *User) ClearOTP() {
	u.OTPCode = ""
	u.OTPPurpose = ""
	u.OTPExpiresAt = time.Time{}
}

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
