package server

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tesnimSatouri/Secure-data-vault/internal/account"
)

type smtpMailer struct {
	cfg SMTPConfig
	log zerolog.Logger
}

// newSMTPMailer returns a real SMTP sender, or a logging no-op when the
// config is incomplete so that local development works without a mail server.
func newSMTPMailer(cfg SMTPConfig, log zerolog.Logger) account.Mailer {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.From = strings.TrimSpace(cfg.From)
	cfg.Security = strings.ToLower(strings.TrimSpace(cfg.Security))
	if cfg.Security == "" {
		cfg.Security = "starttls"
	}
	if cfg.Host == "" || cfg.From == "" {
		log.Info().Msg("mailer disabled; SMTP host or from missing")
		return &noopMailer{log: log}
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Str("security", cfg.Security).
		Str("user", maskForLog(cfg.User)).
		Msg("mailer enabled")
	return &smtpMailer{cfg: cfg, log: log}
}

type noopMailer struct {
	log zerolog.Logger
}

func (n *noopMailer) Send(to, subject, body string) error {
	n.log.Debug().Str("to", to).Str("subject", subject).Msg("mail suppressed (noop mailer)")
	return nil
}

func (m *smtpMailer) Send(to, subject, body string) error {
	msg := message(m.cfg.From, to, subject, body)

	switch m.cfg.Security {
	case "ssl", "smtps":
		return m.sendSSL(to, msg)
	case "none":
		return smtp.SendMail(m.addr(), nil, m.cfg.From, []string{to}, msg)
	default:
		return m.sendStartTLS(to, msg)
	}
}

func (m *smtpMailer) sendStartTLS(to string, msg []byte) error {
	addr := m.addr()
	host, _, _ := net.SplitHostPort(addr)

	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		cfg := &tls.Config{ServerName: host}
		if err := client.StartTLS(cfg); err != nil {
			return err
		}
	}

	if m.cfg.User != "" && m.cfg.Pass != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	return m.submit(client, to, msg)
}

func (m *smtpMailer) sendSSL(to string, msg []byte) error {
	conn, err := tls.Dial("tcp", m.addr(), &tls.Config{ServerName: m.cfg.Host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.cfg.User != "" && m.cfg.Pass != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	return m.submit(client, to, msg)
}

func (m *smtpMailer) submit(client *smtp.Client, to string, msg []byte) error {
	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *smtpMailer) addr() string {
	return net.JoinHostPort(m.cfg.Host, m.cfg.Port)
}

func message(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func maskForLog(s string) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= 2 {
		return "***"
	}
	return s[:1] + "***" + s[len(s)-1:]
}
