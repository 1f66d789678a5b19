package account

import (
	"context"
	"fmt"
	"time"

	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
)

// ChangePassword re-hashes after checking the current password. Existing
// sessions are left alone; only the credential changes.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ErrInvalidCredentials
	}
	ok, err := auth.VerifyPassword(current, u.PassHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(s.hashCost, next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	s.trail.Append(userID, "change-password")
	return nil
}

// ForgotPassword issues a reset token and mails it. The caller gets the same
// nothing back whether or not the account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil
	}
	token, err := randomToken(resetTokenLen)
	if err != nil {
		return err
	}
	exp := time.Now().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, u.ID, token, exp); err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", s.ClientURL, token)
	body := fmt.Sprintf("You requested a password reset. Use the link below before %s UTC.\n\n%s\n\nIf you did not request this, ignore the message.",
		exp.UTC().Format(time.RFC3339), link)
	if err := s.mail.Send(u.Email, "Your password reset link", body); err != nil {
		s.log.Error().Err(err).Str("user", u.ID).Msg("reset email failed")
	}
	s.trail.Append(u.ID, "forgot-password")
	return nil
}

// ResetPassword consumes a reset token and installs the new hash. The token
// is single-use: UpdatePassword clears it.
func (s *Service) ResetPassword(ctx context.Context, token, next string) error {
	u, err := s.users.FindByResetToken(ctx, token)
	if err != nil {
		return ErrInvalidToken
	}
	if time.Now().After(u.ResetExpires) {
		_ = s.users.SetResetToken(ctx, u.ID, "", time.Time{})
		return ErrInvalidToken
	}
	hash, err := auth.HashPassword(s.hashCost, next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.trail.Append(u.ID, "reset-password")
	return nil
}
