package account

import (
	"context"
	"time"

	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
)

// Profile is the user-visible projection of the account record: no password
// hash, no tokens.
type Profile struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name,omitempty"`
	Verified        bool      `json:"isVerified"`
	ConsentAccepted bool      `json:"consentAccepted"`
	ConsentAt       time.Time `json:"consentAt,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ExportItem is one decrypted vault entry in a data export. An envelope that
// fails integrity verification is reported in place rather than aborting or
// silently dropping: Content stays empty and Error carries the flag.
type ExportItem struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Category  string    `json:"category,omitempty"`
	Content   string    `json:"content,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Export struct {
	Profile Profile      `json:"user"`
	Vault   []ExportItem `json:"vault"`
}

func toProfile(u *auth.User) Profile {
	return Profile{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Verified:        u.Verified,
		ConsentAccepted: u.ConsentAccepted,
		ConsentAt:       u.ConsentAt,
		CreatedAt:       u.CreatedAt,
	}
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return toProfile(u), nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID, name string) (Profile, error) {
	if err := s.users.UpdateName(ctx, userID, name); err != nil {
		return Profile{}, err
	}
	return s.Profile(ctx, userID)
}

func (s *Service) RecordConsent(ctx context.Context, userID string, accepted bool) error {
	if err := s.users.SetConsent(ctx, userID, accepted, time.Now()); err != nil {
		return err
	}
	s.trail.Append(userID, "consent")
	return nil
}

// ExportData assembles the GDPR access export: profile plus every owned
// secret decrypted. Per-item integrity failures are flagged and logged, never
// swallowed, and never abort the rest of the export.
func (s *Service) ExportData(ctx context.Context, userID string) (Export, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Export{}, err
	}
	items, err := s.vault.Raw(ctx, userID)
	if err != nil {
		return Export{}, err
	}
	out := Export{Profile: toProfile(u), Vault: make([]ExportItem, 0, len(items))}
	for _, it := range items {
		exp := ExportItem{ID: it.ID, Label: it.Label, Category: it.Category, CreatedAt: it.CreatedAt}
		content, err := s.vault.Open(it)
		if err != nil {
			s.log.Error().Str("user", userID).Str("item", it.ID).
				Msg("integrity check failed during export")
			s.trail.Append(userID, "export-integrity-failure:"+it.ID)
			exp.Error = "integrity check failed"
		} else {
			exp.Content = content
		}
		out.Vault = append(out.Vault, exp)
	}
	s.trail.Append(userID, "export")
	return out, nil
}

// DeleteAccount erases everything the user owns: vault items, then session
// records, then the account itself. Backs both account deletion and the GDPR
// right to be forgotten.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.vault.DeleteAllForOwner(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.trail.Append(userID, "delete-account")
	return nil
}
