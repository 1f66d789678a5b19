package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
	"github.com/tesnimSatouri/Secure-data-vault/internal/crypto"
	"github.com/tesnimSatouri/Secure-data-vault/internal/session"
	"github.com/tesnimSatouri/Secure-data-vault/internal/vault"
)

type testEnv struct {
	srv      *Server
	users    *auth.MemoryUserStore
	sessions *session.MemoryStore
	items    *vault.MemoryItemStore
	logBuf   *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	cipher, err := crypto.NewCipher(key)
	require.NoError(t, err)

	users := auth.NewMemoryUserStore()
	sessions := session.NewMemoryStore()
	items := vault.NewMemoryItemStore()
	logBuf := &bytes.Buffer{}
	srv := assemble(
		Config{JWTSecret: "test-secret"},
		zerolog.New(logBuf),
		users,
		sessions,
		vault.NewService(cipher, items),
	)
	return &testEnv{srv: srv, users: users, sessions: sessions, items: items, logBuf: logBuf}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.srv.ServeHTTP(rr, req)
	return rr
}

// register + verify + login in one go, returning the bearer token.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": email, "password": password, "name": "Test", "consent": true,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	u, err := e.users.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	rr = e.do(t, http.MethodPost, "/auth/verify-email", "", map[string]string{"token": u.VerifyToken})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestHealthIsPublic(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/health", "", nil).Code)
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	e := newTestEnv(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/vault"},
		{http.MethodGet, "/sessions"},
		{http.MethodGet, "/users/me"},
		{http.MethodGet, "/gdpr/export"},
		{http.MethodPost, "/auth/logout"},
	} {
		rr := e.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", route.method, route.path)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "not-an-email", "password": "P@ssw0rd1",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "P@ssw0rd1",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "P@ssw0rd1",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUnverifiedLoginForbidden(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "P@ssw0rd1",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "P@ssw0rd1",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestVaultCRUD(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "a@x.com", "P@ssw0rd1")

	rr := e.do(t, http.MethodPost, "/vault", token, map[string]string{
		"label": "bank", "category": "finance", "content": "secret123",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.NotContains(t, rr.Body.String(), "secret123")

	// Listing shows metadata only.
	rr = e.do(t, http.MethodGet, "/vault", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "bank")
	assert.NotContains(t, rr.Body.String(), "secret123")

	// Fetch decrypts.
	rr = e.do(t, http.MethodGet, "/vault/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var det struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &det))
	assert.Equal(t, "secret123", det.Content)

	// Update the content, fetch the new value.
	rr = e.do(t, http.MethodPut, "/vault/"+created.ID, token, map[string]string{"content": "rotated"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = e.do(t, http.MethodGet, "/vault/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &det))
	assert.Equal(t, "rotated", det.Content)

	rr = e.do(t, http.MethodPut, "/vault/"+created.ID, token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "empty update rejected")

	rr = e.do(t, http.MethodDelete, "/vault/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = e.do(t, http.MethodGet, "/vault/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVaultOwnershipLooksLikeAbsence(t *testing.T) {
	e := newTestEnv(t)
	tokenA := e.login(t, "a@x.com", "P@ssw0rd1")
	tokenB := e.login(t, "b@x.com", "P@ssw0rd2")

	rr := e.do(t, http.MethodPost, "/vault", tokenA, map[string]string{
		"label": "mine", "content": "private",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rr := e.do(t, method, "/vault/"+created.ID, tokenB, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, method)
	}
	rr = e.do(t, http.MethodPut, "/vault/"+created.ID, tokenB, map[string]string{"label": "stolen"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestResendVerificationEndpoint(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "P@ssw0rd1", "name": "Test", "consent": true,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	u, err := e.users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	stale := u.VerifyToken

	// Public endpoint, rotates the token for an unverified account.
	rr = e.do(t, http.MethodPost, "/auth/resend-verification", "", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	u, err = e.users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, stale, u.VerifyToken)

	// Same response for an unknown address.
	rr2 := e.do(t, http.MethodPost, "/auth/resend-verification", "", map[string]string{"email": "ghost@x.com"})
	assert.Equal(t, http.StatusOK, rr2.Code)
	assert.Equal(t, rr.Body.String(), rr2.Body.String())

	rr = e.do(t, http.MethodPost, "/auth/verify-email", "", map[string]string{"token": u.VerifyToken})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestVaultReadIntegrityFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	token := e.login(t, "a@x.com", "P@ssw0rd1")

	rr := e.do(t, http.MethodPost, "/vault", token, map[string]string{
		"label": "bank", "content": "secret123",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	// Flip a tag bit at the store, simulating at-rest corruption.
	u, err := e.users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	raws, err := e.items.ListByOwner(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	tag, err := hex.DecodeString(raws[0].Envelope.Tag)
	require.NoError(t, err)
	tag[0] ^= 0x01
	raws[0].Envelope.Tag = hex.EncodeToString(tag)
	require.NoError(t, e.items.Replace(ctx, raws[0]))

	e.logBuf.Reset()
	rr = e.do(t, http.MethodGet, "/vault/"+created.ID, token, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "integrity check failed")

	// The failure leaves a trace naming the damaged item.
	logged := e.logBuf.String()
	assert.Contains(t, logged, "integrity check failed on read")
	assert.Contains(t, logged, created.ID)
}

func TestSessionsListAndRevoke(t *testing.T) {
	e := newTestEnv(t)
	tokenA := e.login(t, "a@x.com", "P@ssw0rd1")

	// Second login, same account.
	rr := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "P@ssw0rd1",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var second struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &second))

	rr = e.do(t, http.MethodGet, "/sessions", tokenA, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var views []sessionView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 2)

	current := 0
	var otherID string
	for _, v := range views {
		if v.IsCurrent {
			current++
		} else {
			otherID = v.ID
		}
		assert.Equal(t, "Firefox", v.Device.Browser)
	}
	assert.Equal(t, 1, current, "exactly one session is the caller's")

	// Revoke the other session; its still-valid token stops working.
	rr = e.do(t, http.MethodDelete, "/sessions/"+otherID, tokenA, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = e.do(t, http.MethodGet, "/vault", second.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "session expired or revoked")

	rr = e.do(t, http.MethodGet, "/vault", tokenA, nil)
	assert.Equal(t, http.StatusOK, rr.Code, "revoking one session leaves the other alone")
}

func TestLogoutRevokesOnlyCurrentSession(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "a@x.com", "P@ssw0rd1")

	rr := e.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = e.do(t, http.MethodGet, "/vault", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "session expired or revoked")
}

func TestLoginRateLimitPerIP(t *testing.T) {
	e := newTestEnv(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "ghost@x.com", "password": fmt.Sprintf("wrong-%d", i),
		})
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestExportAttachment(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "a@x.com", "P@ssw0rd1")

	rr := e.do(t, http.MethodPost, "/vault", token, map[string]string{
		"label": "bank", "content": "secret123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = e.do(t, http.MethodGet, "/gdpr/export", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rr.Body.String(), "secret123")
	assert.Contains(t, rr.Body.String(), "a@x.com")
	assert.NotContains(t, rr.Body.String(), "passHash")
}

func TestEraseAllCascades(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "a@x.com", "P@ssw0rd1")

	rr := e.do(t, http.MethodPost, "/vault", token, map[string]string{
		"label": "bank", "content": "secret123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = e.do(t, http.MethodDelete, "/gdpr/deleteAll", token, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Session went with the account.
	rr = e.do(t, http.MethodGet, "/vault", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Credentials are gone too.
	rr = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "P@ssw0rd1",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChangePasswordEndpoint(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "a@x.com", "P@ssw0rd1")

	rr := e.do(t, http.MethodPut, "/users/change-password", token, map[string]string{
		"current": "wrong", "next": "NewP@ss123",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = e.do(t, http.MethodPut, "/users/change-password", token, map[string]string{
		"current": "P@ssw0rd1", "next": "NewP@ss123",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "NewP@ss123",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestProfileAndConsent(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "a@x.com", "P@ssw0rd1")

	rr := e.do(t, http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "a@x.com")

	rr = e.do(t, http.MethodPut, "/users/me", token, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Renamed")

	rr = e.do(t, http.MethodPost, "/gdpr/consent", token, map[string]bool{"accepted": false})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = e.do(t, http.MethodGet, "/users/me", token, nil)
	assert.Contains(t, rr.Body.String(), `"consentAccepted":false`)
}

func TestTwoFactorRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "a@x.com", "P@ssw0rd1")

	rr := e.do(t, http.MethodPut, "/users/two-factor", token, map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "P@ssw0rd1",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"twoFactorRequired":true`)

	u, err := e.users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, u.TwoFactorCode, 6)

	rr = e.do(t, http.MethodPost, "/auth/login/verify", "", map[string]string{
		"email": "a@x.com", "code": "bad",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPost, "/auth/login/verify", "", map[string]string{
		"email": "a@x.com", "code": u.TwoFactorCode,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "token")
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodOptions, "/vault", "", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
