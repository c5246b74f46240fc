package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// memUserStore mirrors the Mongo repository's behavior: unique email, reads
// filtered to active records, privileged Any/All lookups unfiltered.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*models.User)}
}

func (m *memUserStore) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.New(apperror.DuplicateKey, "email already registered")
		}
		if user.ExternalID != "" && u.ExternalID == user.ExternalID {
			return apperror.New(apperror.DuplicateKey, "external id already registered")
		}
	}
	user.ID = bson.NewObjectID()
	user.Active = true
	user.CreatedAt = time.Now().Unix()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.ID.Hex()] = &cp
	return nil
}

func (m *memUserStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id.Hex()]
	if !ok || !u.Active {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.Active {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) FindByEmailAny(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) FindByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	if hash == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ResetTokenHash == hash && u.Active {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID.Hex()]; !ok {
		return apperror.New(apperror.NotFound, "user not found")
	}
	user.UpdatedAt = time.Now().Unix()
	cp := *user
	m.users[user.ID.Hex()] = &cp
	return nil
}

func (m *memUserStore) FindAll(ctx context.Context, page, limit int) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

// get returns the stored record directly so tests can mutate OTP expiry or
// inspect persisted state.
func (m *memUserStore) get(email string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string]*models.Profile)}
}

func (m *memProfileStore) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProfileStore) Upsert(ctx context.Context, userID string, fields models.ProfileFields) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		p = &models.Profile{ID: bson.NewObjectID(), UserID: userID}
		m.profiles[userID] = p
	}
	if fields.Gender != "" {
		p.Gender = fields.Gender
	}
	if fields.DateOfBirth != "" {
		p.DateOfBirth = fields.DateOfBirth
	}
	if fields.ProfileType != "" {
		p.ProfileType = fields.ProfileType
	}
	if fields.Class != "" {
		p.Class = fields.Class
	}
	if fields.Syllabus != "" {
		p.Syllabus = fields.Syllabus
	}
	if fields.School != "" {
		p.School = fields.School
	}
	if fields.Bio != "" {
		p.Bio = fields.Bio
	}
	if fields.ProfileImage != "" {
		p.ProfileImage = fields.ProfileImage
	}
	cp := *p
	return &cp, nil
}

// fakeEmailSender records dispatches and can be told to fail.
type fakeEmailSender struct {
	mu       sync.Mutex
	fail     bool
	otps     []sentOTP
	resets   []string
	welcomes []string
}

type sentOTP struct {
	to      string
	code    string
	purpose string
}

var errDispatch = errors.New("smtp: connection refused")

func (f *fakeEmailSender) SendOTP(to, code, purpose string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errDispatch
	}
	f.otps = append(f.otps, sentOTP{to: to, code: code, purpose: purpose})
	return nil
}

func (f *fakeEmailSender) SendPasswordReset(to, resetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errDispatch
	}
	f.resets = append(f.resets, resetURL)
	return nil
}

func (f *fakeEmailSender) SendWelcome(to, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errDispatch
	}
	f.welcomes = append(f.welcomes, to)
	return nil
}

func (f *fakeEmailSender) lastOTP() (sentOTP, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.otps) == 0 {
		return sentOTP{}, false
	}
	return f.otps[len(f.otps)-1], true
}

type memLocker struct {
	mu   sync.Mutex
	ints map[string]int64
}

func newMemLocker() *memLocker {
	return &memLocker{ints: make(map[string]int64)}
}

func (m *memLocker) GetInt(ctx context.Context, key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ints[key]
}

func (m *memLocker) SaveInt(ctx context.Context, key string, value int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ints[key] = value
	return nil
}

// recordingPublisher captures lifecycle events emitted by the services.
type recordingPublisher struct {
	mu         sync.Mutex
	registered []string
	verified   []string
	onboarded  []string
}

func (r *recordingPublisher) PublishUserRegistered(ctx context.Context, userID, email, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, email)
	return nil
}

func (r *recordingPublisher) PublishEmailVerified(ctx context.Context, userID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verified = append(r.verified, email)
	return nil
}

func (r *recordingPublisher) PublishUserOnboarded(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onboarded = append(r.onboarded, userID)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }
