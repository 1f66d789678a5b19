// Package account implements the account lifecycle: registration, email
// verification, login (with optional emailed two-factor codes), password
// change and reset, consent recording, and the GDPR export/erasure paths.
package account

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tesnimSatouri/Secure-data-vault/internal/audit"
	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
	"github.com/tesnimSatouri/Secure-data-vault/internal/session"
	"github.com/tesnimSatouri/Secure-data-vault/internal/vault"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike, so
	// login failures never reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified blocks login until the email address is confirmed.
	ErrNotVerified = errors.New("email not verified")
	// ErrInvalidToken covers unknown and expired verification, reset and
	// two-factor tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrEmailTaken   = auth.ErrEmailTaken
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = 15 * time.Minute
	twoFactorTTL   = 10 * time.Minute
	verifyTokenLen = 32
	resetTokenLen  = 24
)

// Mailer is the outbound email boundary. Delivery is external; the service
// only cares that a send was attempted.
type Mailer interface {
	Send(to, subject, body string) error
}

type Service struct {
	users    auth.UserStore
	sessions session.Store
	tokens   *auth.TokenIssuer
	vault    *vault.Service
	mail     Mailer
	hashCost auth.ArgonParams
	trail    *audit.Log
	log      zerolog.Logger

	// ClientURL is the browser origin used in verification and reset links.
	ClientURL string
}

func NewService(
	users auth.UserStore,
	sessions session.Store,
	tokens *auth.TokenIssuer,
	vaultSvc *vault.Service,
	mail Mailer,
	hashCost auth.ArgonParams,
	trail *audit.Log,
	log zerolog.Logger,
) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		vault:     vaultSvc,
		mail:      mail,
		hashCost:  hashCost,
		trail:     trail,
		log:       log,
		ClientURL: "http://localhost:5173",
	}
}

// Register creates an unverified account and mails a verification link. It
// never logs the user in.
func (s *Service) Register(ctx context.Context, email, password, name string, consent bool) error {
	email = auth.NormalizeEmail(email)
	hash, err := auth.HashPassword(s.hashCost, password)
	if err != nil {
		return err
	}
	token, err := randomToken(verifyTokenLen)
	if err != nil {
		return err
	}
	now := time.Now()
	u := &auth.User{
		ID:            uuid.NewString(),
		Email:         email,
		Name:          name,
		PassHash:      hash,
		Verified:      false,
		VerifyToken:   token,
		VerifyExpires: now.Add(verifyTokenTTL),
		CreatedAt:     now,
	}
	if consent {
		u.ConsentAccepted = true
		u.ConsentAt = now
	}
	if err := s.users.Add(ctx, u); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.ClientURL, token)
	if err := s.mail.Send(email, "Verify your email",
		"Please click this link to verify your account: "+link); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("verification email failed")
	}
	s.trail.Append(u.ID, "register")
	return nil
}

// VerifyEmail consumes a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	u, err := s.users.FindByVerifyToken(ctx, token)
	if err != nil {
		return ErrInvalidToken
	}
	if !u.VerifyExpires.IsZero() && time.Now().After(u.VerifyExpires) {
		return ErrInvalidToken
	}
	if err := s.users.SetVerified(ctx, u.ID); err != nil {
		return err
	}
	s.trail.Append(u.ID, "verify-email")
	return nil
}

// ResendVerification issues a fresh verification token and mails a new link.
// An expired token no longer strands the account; a new link supersedes it.
// Unknown and already-verified emails return nil so the endpoint leaks
// nothing, same as ForgotPassword.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil || u.Verified {
		return nil
	}
	token, err := randomToken(verifyTokenLen)
	if err != nil {
		return err
	}
	if err := s.users.SetVerifyToken(ctx, u.ID, token, time.Now().Add(verifyTokenTTL)); err != nil {
		return err
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", s.ClientURL, token)
	if err := s.mail.Send(email, "Verify your email",
		"Please click this link to verify your account: "+link); err != nil {
		s.log.Error().Err(err).Str("email", email).Msg("verification email failed")
	}
	s.trail.Append(u.ID, "resend-verification")
	return nil
}

// LoginResult is either a finished login (token + session) or, when the
// account has two-factor enabled, a pending challenge completed by
// VerifyTwoFactor.
type LoginResult struct {
	TwoFactorRequired bool
	Token             string
	ExpiresAt         time.Time
	UserID            string
	Email             string
}

// Login verifies credentials and the verified flag, then either completes the
// session or issues an emailed two-factor code. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string, meta session.Meta) (LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		// Burn a hash anyway so the timing of the miss matches a wrong
		// password.
		_, _ = auth.HashPassword(s.hashCost, password)
		return LoginResult{}, ErrInvalidCredentials
	}
	ok, err := auth.VerifyPassword(password, u.PassHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !u.Verified {
		return LoginResult{}, ErrNotVerified
	}

	if u.TwoFactorEnabled {
		code, err := randomDigits(6)
		if err != nil {
			return LoginResult{}, err
		}
		if err := s.users.SetTwoFactorCode(ctx, u.ID, code, time.Now().Add(twoFactorTTL)); err != nil {
			return LoginResult{}, err
		}
		if err := s.mail.Send(u.Email, "Your sign-in code",
			"Your verification code is "+code+". It expires in 10 minutes."); err != nil {
			s.log.Error().Err(err).Str("user", u.ID).Msg("two-factor email failed")
		}
		return LoginResult{TwoFactorRequired: true, UserID: u.ID, Email: u.Email}, nil
	}

	return s.completeLogin(ctx, u, meta)
}

// VerifyTwoFactor consumes an emailed login code and completes the session.
func (s *Service) VerifyTwoFactor(ctx context.Context, email, code string, meta session.Meta) (LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, ErrInvalidToken
	}
	if u.TwoFactorCode == "" || code == "" ||
		subtle.ConstantTimeCompare([]byte(u.TwoFactorCode), []byte(code)) != 1 {
		return LoginResult{}, ErrInvalidToken
	}
	if time.Now().After(u.TwoFactorExpires) {
		_ = s.users.SetTwoFactorCode(ctx, u.ID, "", time.Time{})
		return LoginResult{}, ErrInvalidToken
	}
	if err := s.users.SetTwoFactorCode(ctx, u.ID, "", time.Time{}); err != nil {
		return LoginResult{}, err
	}
	return s.completeLogin(ctx, u, meta)
}

func (s *Service) completeLogin(ctx context.Context, u *auth.User, meta session.Meta) (LoginResult, error) {
	rec, err := s.sessions.Create(ctx, u.ID, meta)
	if err != nil {
		return LoginResult{}, err
	}
	tok, exp, err := s.tokens.Issue(u.ID, u.Email, rec.SID)
	if err != nil {
		// Don't leave an orphaned session behind.
		_ = s.sessions.Delete(ctx, rec.SID)
		return LoginResult{}, err
	}
	s.trail.Append(u.ID, "login")
	return LoginResult{Token: tok, ExpiresAt: exp, UserID: u.ID, Email: u.Email}, nil
}

// SetTwoFactor turns emailed login codes on or off. Disabling clears any
// pending code.
func (s *Service) SetTwoFactor(ctx context.Context, userID string, enabled bool) error {
	if err := s.users.SetTwoFactorEnabled(ctx, userID, enabled); err != nil {
		return err
	}
	if enabled {
		s.trail.Append(userID, "two-factor-enabled")
	} else {
		s.trail.Append(userID, "two-factor-disabled")
	}
	return nil
}

// Logout deletes the current session record only; other sessions stay live.
func (s *Service) Logout(ctx context.Context, userID, sid string) error {
	if err := s.sessions.Delete(ctx, sid); err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}
	s.trail.Append(userID, "logout")
	return nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func randomDigits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + d.Int64())
	}
	return string(out), nil
}
