package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type ctxKey int

const identityKey ctxKey = 1

// Identity is the resolved caller attached to the request context once the
// gate has passed: user id, email, and the session the token is bound to.
type Identity struct {
	UserID string
	Email  string
	SID    string
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

type TokenParser interface {
	ParseAndValidate(tokenStr string) (*Claims, error)
}

// SessionChecker is the slice of the session store the gate needs: does a live
// record exist for this sid, and record activity on it.
type SessionChecker interface {
	Exists(ctx context.Context, sid string) (bool, error)
	Touch(ctx context.Context, sid string) error
}

// Required authorizes a request in three steps: a bearer credential must be
// present, its signature and expiry must verify, and the sid it carries must
// still have a live session record. The session lookup is what makes logout
// and revocation effective while the token itself is still within its expiry.
// The revoked case gets a distinct message so clients can auto-logout.
func Required(parser TokenParser, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(h, "Bearer ")
			claims, err := parser.ParseAndValidate(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			alive, err := sessions.Exists(r.Context(), claims.SID)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !alive {
				http.Error(w, "session expired or revoked", http.StatusUnauthorized)
				return
			}
			// Last-active updates on every authenticated request; failures
			// here never block the request.
			_ = sessions.Touch(r.Context(), claims.SID)

			id := &Identity{UserID: claims.Subject, Email: claims.Email, SID: claims.SID}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Helper to extract the caller or fail early in handlers.
func MustIdentity(r *http.Request) (*Identity, error) {
	if id, ok := FromContext(r.Context()); ok {
		return id, nil
	}
	return nil, errors.New("no auth context")
}
