package vault

import (
	"context"
	"errors"
	"time"

	"github.com/tesnimSatouri/Secure-data-vault/internal/crypto"
)

// ErrNotFound is returned both when an item does not exist and when it belongs
// to another user. The two cases are deliberately indistinguishable so that
// probing ids leaks nothing.
var ErrNotFound = errors.New("vault item not found")

// Item is the persisted form: plaintext-visible label and category alongside
// the sealed envelope. Secret content never appears outside the envelope.
type Item struct {
	ID        string
	UserID    string
	Label     string
	Category  string
	Envelope  crypto.Envelope
	CreatedAt time.Time
}

// ItemStore is the generic per-user collection the service runs against.
// Every read and write is scoped by owner id; an ownership mismatch surfaces
// as ErrNotFound.
type ItemStore interface {
	Insert(ctx context.Context, item Item) error
	// FindByOwner returns the item only if it exists and userID owns it.
	FindByOwner(ctx context.Context, userID, id string) (Item, error)
	// ListByOwner returns items in insertion order.
	ListByOwner(ctx context.Context, userID string) ([]Item, error)
	Replace(ctx context.Context, item Item) error
	DeleteByOwner(ctx context.Context, userID, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}
