package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already exists")
)

// User is the account record. Email is unique case-insensitively; the token
// and code fields back email verification, two-factor login and password
// reset, each paired with an expiry.
type User struct {
	ID               string
	Email            string
	Name             string
	PassHash         string // argon2id encoded string
	Verified         bool
	VerifyToken      string
	VerifyExpires    time.Time
	TwoFactorEnabled bool
	TwoFactorCode    string
	TwoFactorExpires time.Time
	ResetToken       string
	ResetExpires     time.Time
	ConsentAccepted  bool
	ConsentAt        time.Time
	CreatedAt        time.Time
}

type UserStore interface {
	Add(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByVerifyToken(ctx context.Context, token string) (*User, error)
	FindByResetToken(ctx context.Context, token string) (*User, error)
	SetVerified(ctx context.Context, id string) error
	SetVerifyToken(ctx context.Context, id, token string, expires time.Time) error
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error
	SetTwoFactorCode(ctx context.Context, id, code string, expires time.Time) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	UpdatePassword(ctx context.Context, id, newHash string) error
	UpdateName(ctx context.Context, id, name string) error
	SetConsent(ctx context.Context, id string, accepted bool, at time.Time) error
	Delete(ctx context.Context, id string) error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryUserStore backs tests and local development.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string // email -> id
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    map[string]*User{},
		byEmail: map[string]string{},
	}
}

func (s *MemoryUserStore) Add(_ context.Context, u *User) error {
	if u == nil || u.ID == "" {
		return errors.New("user missing id")
	}
	email := NormalizeEmail(u.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return ErrEmailTaken
	}
	clone := *u
	clone.Email = email
	s.byID[u.ID] = &clone
	s.byEmail[email] = u.ID
	return nil
}

func (s *MemoryUserStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.byID[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[NormalizeEmail(email)]; ok {
		clone := *s.byID[id]
		return &clone, nil
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) FindByVerifyToken(_ context.Context, token string) (*User, error) {
	return s.findWhere(func(u *User) bool { return token != "" && u.VerifyToken == token })
}

func (s *MemoryUserStore) FindByResetToken(_ context.Context, token string) (*User, error) {
	return s.findWhere(func(u *User) bool { return token != "" && u.ResetToken == token })
}

func (s *MemoryUserStore) findWhere(pred func(*User) bool) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if pred(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryUserStore) SetVerified(_ context.Context, id string) error {
	return s.mutate(id, func(u *User) {
		u.Verified = true
		u.VerifyToken = ""
		u.VerifyExpires = time.Time{}
	})
}

func (s *MemoryUserStore) SetVerifyToken(_ context.Context, id, token string, expires time.Time) error {
	return s.mutate(id, func(u *User) {
		u.VerifyToken = token
		u.VerifyExpires = expires
	})
}

func (s *MemoryUserStore) SetTwoFactorEnabled(_ context.Context, id string, enabled bool) error {
	return s.mutate(id, func(u *User) {
		u.TwoFactorEnabled = enabled
		if !enabled {
			u.TwoFactorCode = ""
			u.TwoFactorExpires = time.Time{}
		}
	})
}

func (s *MemoryUserStore) SetTwoFactorCode(_ context.Context, id, code string, expires time.Time) error {
	return s.mutate(id, func(u *User) {
		u.TwoFactorCode = code
		u.TwoFactorExpires = expires
	})
}

func (s *MemoryUserStore) SetResetToken(_ context.Context, id, token string, expires time.Time) error {
	return s.mutate(id, func(u *User) {
		u.ResetToken = token
		u.ResetExpires = expires
	})
}

func (s *MemoryUserStore) UpdatePassword(_ context.Context, id, newHash string) error {
	return s.mutate(id, func(u *User) {
		u.PassHash = newHash
		u.ResetToken = ""
		u.ResetExpires = time.Time{}
	})
}

func (s *MemoryUserStore) UpdateName(_ context.Context, id, name string) error {
	return s.mutate(id, func(u *User) { u.Name = name })
}

func (s *MemoryUserStore) SetConsent(_ context.Context, id string, accepted bool, at time.Time) error {
	return s.mutate(id, func(u *User) {
		u.ConsentAccepted = accepted
		if accepted {
			u.ConsentAt = at
		} else {
			u.ConsentAt = time.Time{}
		}
	})
}

func (s *MemoryUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.byID, id)
	return nil
}

func (s *MemoryUserStore) mutate(id string, fn func(*User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(u)
	return nil
}
