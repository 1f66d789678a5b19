// Package server is the HTTP surface: routing, the authentication gate,
// per-endpoint rate limits, and the JSON request/response shapes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"

	"github.com/tesnimSatouri/Secure-data-vault/internal/account"
	"github.com/tesnimSatouri/Secure-data-vault/internal/audit"
	"github.com/tesnimSatouri/Secure-data-vault/internal/auth"
	"github.com/tesnimSatouri/Secure-data-vault/internal/crypto"
	"github.com/tesnimSatouri/Secure-data-vault/internal/session"
	"github.com/tesnimSatouri/Secure-data-vault/internal/storage"
	"github.com/tesnimSatouri/Secure-data-vault/internal/vault"
)

type Server struct {
	cfg  Config
	mux  *http.ServeMux
	gate http.Handler
	log  zerolog.Logger

	sessions session.Store
	vault    *vault.Service
	account  *account.Service

	storageClient *mongo.Client

	rlLoginIP    *multiLimiter
	rlRegisterIP *multiLimiter
	rlForgotIP   *multiLimiter
	rlResendIP   *multiLimiter
	rlVerify2FA  *multiLimiter
}

// New connects to Mongo, builds the stores and services, and wires the routes.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Server, error) {
	cfg.setDefaults()
	if cfg.MongoURI == "" {
		return nil, errors.New("server: MongoURI required")
	}
	if cfg.MongoDB == "" {
		return nil, errors.New("server: MongoDB required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("server: JWTSecret required")
	}

	key, err := crypto.ParseKeyHex(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		return nil, err
	}
	// The cipher holds its own schedule; scrub the raw key.
	crypto.Zero(key)

	client, err := storage.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	users, err := auth.NewMongoUserStore(ctx, client, cfg.MongoDB, cfg.UsersCollection)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	sessions, err := session.NewMongoStore(ctx, client, cfg.MongoDB, cfg.SessionsCollection)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	items, err := vault.NewMongoItemStore(ctx, client, cfg.MongoDB, cfg.ItemsCollection)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	s := assemble(cfg, log, users, sessions, vault.NewService(cipher, items))
	s.storageClient = client
	return s, nil
}

// assemble wires services, limiters and routes around ready-made stores. The
// tests use it directly with in-memory stores.
func assemble(cfg Config, log zerolog.Logger, users auth.UserStore, sessions session.Store, vaultSvc *vault.Service) *Server {
	cfg.setDefaults()
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL)
	mail := newSMTPMailer(cfg.SMTP, log)
	acct := account.NewService(users, sessions, tokens, vaultSvc, mail, auth.DefaultArgon, audit.New(), log)
	acct.ClientURL = cfg.ClientURL

	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		log:      log,
		sessions: sessions,
		vault:    vaultSvc,
		account:  acct,
	}

	perWindow := func(n int, window time.Duration) float64 { return float64(n) / window.Seconds() }
	s.rlLoginIP = newMultiLimiter(rate.Limit(perWindow(5, 15*time.Minute)), 5, time.Hour)
	s.rlRegisterIP = newMultiLimiter(rate.Limit(perWindow(5, time.Hour)), 5, 2*time.Hour)
	s.rlForgotIP = newMultiLimiter(rate.Limit(perWindow(5, 15*time.Minute)), 5, 30*time.Minute)
	s.rlResendIP = newMultiLimiter(rate.Limit(perWindow(5, 15*time.Minute)), 5, 30*time.Minute)
	s.rlVerify2FA = newMultiLimiter(rate.Limit(perWindow(5, 10*time.Minute)), 5, 30*time.Minute)

	s.routes()
	s.gate = auth.Required(tokens, sessions)(s.mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}()

	s.addDefaultHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if s.isPublic(r.URL.Path) {
		s.mux.ServeHTTP(w, r)
		return
	}
	s.gate.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s
}

func (s *Server) isPublic(path string) bool {
	switch path {
	case "/health", "/api/health",
		"/auth/register", "/auth/login", "/auth/login/verify",
		"/auth/verify-email", "/auth/resend-verification",
		"/auth/forgot-password", "/auth/reset-password":
		return true
	default:
		return false
	}
}

func (s *Server) addDefaultHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
}

// Close releases the Mongo client, if this server owns one.
func (s *Server) Close(ctx context.Context) error {
	if s.storageClient == nil {
		return nil
	}
	return s.storageClient.Disconnect(ctx)
}
