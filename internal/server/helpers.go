package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/tesnimSatouri/Secure-data-vault/internal/account"
	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
	"github.com/tesnimSatouri/Secure-data-vault/internal/crypto"
	"github.com/tesnimSatouri/Secure-data-vault/internal/session"
	"github.com/tesnimSatouri/Secure-data-vault/internal/vault"
)

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func tooMany(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	http.Error(w, "too many requests", http.StatusTooManyRequests)
}

// serviceError maps service sentinels onto HTTP statuses; anything unmapped is
// a 500 and gets logged by the caller.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, account.ErrNotVerified):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, account.ErrInvalidToken):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, account.ErrEmailTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, vault.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, crypto.ErrIntegrity):
		http.Error(w, "integrity check failed", http.StatusInternalServerError)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

var reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func isValidEmail(email string) bool {
	return reEmail.MatchString(email)
}

func validatePassword(pw string) error {
	switch {
	case len(pw) < 8:
		return errors.New("password must be at least 8 characters")
	case strings.Contains(pw, " "):
		return errors.New("password must not contain spaces")
	default:
		return nil
	}
}

func clientMeta(r *http.Request) session.Meta {
	return session.Meta{IP: getClientIP(r), UserAgent: r.UserAgent()}
}
