package server

import (
	"time"

	"github.com/tesnimSatouri/Secure-data-vault/internal/session"
)

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Pass     string
	From     string
	Security string
}

type Config struct {
	Addr               string
	MongoURI           string
	MongoDB            string
	UsersCollection    string
	SessionsCollection string
	ItemsCollection    string

	// EncryptionKey is the server master key for vault envelopes, 64 hex
	// characters (32 bytes).
	EncryptionKey string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// ClientURL is the browser origin used in emailed links.
	ClientURL string

	SMTP SMTPConfig
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.UsersCollection == "" {
		c.UsersCollection = "users"
	}
	if c.SessionsCollection == "" {
		c.SessionsCollection = "sessions"
	}
	if c.ItemsCollection == "" {
		c.ItemsCollection = "vault_items"
	}
	if c.JWTIssuer == "" {
		c.JWTIssuer = "vault-backend"
	}
	if c.TokenTTL <= 0 {
		// Token validity tracks the session record lifetime.
		c.TokenTTL = session.Lifetime
	}
	if c.ClientURL == "" {
		c.ClientURL = "http://localhost:5173"
	}
	if c.SMTP.Security == "" {
		c.SMTP.Security = "starttls"
	}
}
