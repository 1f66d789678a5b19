// Package session is the server-side record of live sessions. Records exist
// independently of bearer tokens: a token names a sid, and the sid is only
// good for as long as its record is still here. Deleting the record is what
// revocation means.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound covers absent, expired and not-owned records alike.
var ErrNotFound = errors.New("session not found")

// Lifetime is fixed at creation and matches the bearer token validity. It is
// never extended on use: Touch records activity for display only.
const Lifetime = 7 * 24 * time.Hour

const sidBytes = 32

// Meta is what we know about the client at login time.
type Meta struct {
	IP        string
	UserAgent string
}

// Device is the parsed user-agent summary shown on the sessions page.
type Device struct {
	Browser string `bson:"browser" json:"browser"`
	OS      string `bson:"os" json:"os"`
	Device  string `bson:"device" json:"device"`
}

type Record struct {
	ID         string
	UserID     string
	SID        string
	IP         string
	UserAgent  string
	Device     Device
	CreatedAt  time.Time
	LastActive time.Time
	ExpiresAt  time.Time
}

func (r Record) expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store persists session records. Implementations must treat records past
// their expiry as absent on every read; callers never filter.
type Store interface {
	Create(ctx context.Context, userID string, meta Meta) (Record, error)
	FindBySID(ctx context.Context, sid string) (Record, error)
	// Exists reports whether a live record exists for sid. It is what the
	// authentication middleware checks on every request.
	Exists(ctx context.Context, sid string) (bool, error)
	// ListByUser returns live records, most recently active first.
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	// Touch updates last-active without altering expiry.
	Touch(ctx context.Context, sid string) error
	Delete(ctx context.Context, sid string) error
	// DeleteByID removes one of userID's sessions by record id. Records owned
	// by other users look absent.
	DeleteByID(ctx context.Context, userID, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// NewSID returns a fresh 256-bit session identifier, hex encoded.
func NewSID() (string, error) {
	b := make([]byte, sidBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
