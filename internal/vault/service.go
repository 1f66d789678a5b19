// Package vault stores short text secrets as authenticated ciphertext
// envelopes, scoped strictly to their owner.
package vault

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tesnimSatouri/Secure-data-vault/internal/crypto"
)

// Summary is the listing view: metadata only, no envelope fields and no
// plaintext ever.
type Summary struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Detail is the single-item view with the secret opened.
type Detail struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Category  string    `json:"category,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Update carries optional field replacements; nil means keep.
type Update struct {
	Label    *string
	Category *string
	Content  *string
}

type Service struct {
	cipher *crypto.Cipher
	store  ItemStore
}

func NewService(cipher *crypto.Cipher, store ItemStore) *Service {
	return &Service{cipher: cipher, store: store}
}

func (s *Service) Create(ctx context.Context, ownerID, label, category, content string) (Summary, error) {
	env, err := s.cipher.Seal(content)
	if err != nil {
		return Summary{}, err
	}
	item := Item{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Label:     label,
		Category:  category,
		Envelope:  env,
		CreatedAt: time.Now(),
	}
	if err := s.store.Insert(ctx, item); err != nil {
		return Summary{}, err
	}
	return summarize(item), nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Summary, error) {
	items, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(items))
	for _, it := range items {
		out = append(out, summarize(it))
	}
	return out, nil
}

// Get opens the envelope. A failed tag check propagates as
// crypto.ErrIntegrity so callers can tell tampering from absence.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Detail, error) {
	it, err := s.store.FindByOwner(ctx, ownerID, id)
	if err != nil {
		return Detail{}, err
	}
	content, err := s.cipher.Open(it.Envelope)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		ID:        it.ID,
		Label:     it.Label,
		Category:  it.Category,
		Content:   content,
		CreatedAt: it.CreatedAt,
	}, nil
}

// Update replaces supplied fields. New content is re-sealed under a fresh
// nonce; the old envelope is discarded wholesale, never partially reused.
func (s *Service) Update(ctx context.Context, ownerID, id string, upd Update) (Summary, error) {
	it, err := s.store.FindByOwner(ctx, ownerID, id)
	if err != nil {
		return Summary{}, err
	}
	if upd.Label != nil {
		it.Label = *upd.Label
	}
	if upd.Category != nil {
		it.Category = *upd.Category
	}
	if upd.Content != nil {
		env, err := s.cipher.Seal(*upd.Content)
		if err != nil {
			return Summary{}, err
		}
		it.Envelope = env
	}
	if err := s.store.Replace(ctx, it); err != nil {
		return Summary{}, err
	}
	return summarize(it), nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.store.DeleteByOwner(ctx, ownerID, id)
}

// DeleteAllForOwner backs account deletion and GDPR erasure.
func (s *Service) DeleteAllForOwner(ctx context.Context, ownerID string) error {
	return s.store.DeleteAllForUser(ctx, ownerID)
}

// Raw returns owned items with their envelopes intact, for the GDPR export
// path which needs per-item decryption with per-item error handling.
func (s *Service) Raw(ctx context.Context, ownerID string) ([]Item, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Open decrypts one raw item's envelope.
func (s *Service) Open(it Item) (string, error) {
	return s.cipher.Open(it.Envelope)
}

func summarize(it Item) Summary {
	return Summary{ID: it.ID, Label: it.Label, Category: it.Category, CreatedAt: it.CreatedAt}
}
