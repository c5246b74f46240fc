package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// UserRegistered is emitted when a new account is created, by any path.
	UserRegistered EventType = "user.registered"
	// EmailVerified is emitted when an OTP verification succeeds.
	EmailVerified EventType = "user.verified"
	// UserOnboarded is emitted when the onboarding flag is set.
	UserOnboarded EventType = "user.onboarded"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

func newBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Version:   "1.0",
	}
}

type UserRegisteredEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

func NewUserRegisteredEvent(userID, email, provider string) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseEvent: newBaseEvent(UserRegistered),
		UserID:    userID,
		Email:     email,
		Provider:  provider,
	}
}

func (e *UserRegisteredEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

type EmailVerifiedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func NewEmailVerifiedEvent(userID, email string) *EmailVerifiedEvent {
	return &EmailVerifiedEvent{
		BaseEvent: newBaseEvent(EmailVerified),
		UserID:    userID,
		Email:     email,
	}
}

func (e *EmailVerifiedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

type UserOnboardedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
}

func NewUserOnboardedEvent(userID string) *UserOnboardedEvent {
	return &UserOnboardedEvent{
		BaseEvent: newBaseEvent(UserOnboarded),
		UserID:    userID,
	}
}

func (e *UserOnboardedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
