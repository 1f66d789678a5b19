package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tesnimSatouri/Secure-data-vault/internal/server"
)

func main() {
	logger := newLogger()
	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("vaultd exited")
	}
	logger.Info().Msg("server stopped")
}

func run(logger zerolog.Logger) error {
	cfg := configFromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("storage disconnect failed")
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

func newLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lv != zerolog.NoLevel {
		level = lv
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if isatty() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

func isatty() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func configFromEnv() server.Config {
	return server.Config{
		Addr:               envOr("ADDR", ":8080"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            envOr("MONGO_DB", "secure_vault"),
		UsersCollection:    os.Getenv("MONGO_USERS_COLLECTION"),
		SessionsCollection: os.Getenv("MONGO_SESSIONS_COLLECTION"),
		ItemsCollection:    os.Getenv("MONGO_ITEMS_COLLECTION"),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          os.Getenv("JWT_ISSUER"),
		TokenTTL:           envDuration("TOKEN_TTL"),
		ClientURL:          os.Getenv("CLIENT_URL"),
		SMTP: server.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			User:     os.Getenv("SMTP_USER"),
			Pass:     os.Getenv("SMTP_PASS"),
			From:     os.Getenv("SMTP_FROM"),
			Security: os.Getenv("SMTP_SECURITY"),
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are taken as hours, matching the docs.
	if h, err := strconv.Atoi(v); err == nil {
		return time.Duration(h) * time.Hour
	}
	return 0
}
