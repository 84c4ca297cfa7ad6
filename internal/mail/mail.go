// Medialetter - Recently-added newsletter for Emby and Jellyfin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medialetter/medialetter

// Package mail delivers the rendered newsletter over SMTP with
// STARTTLS. Each recipient gets an individual message so addresses are
// never disclosed to each other.
package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"regexp"
	"strconv"
	"time"

	"github.com/medialetter/medialetter/internal/logging"
)

// plainFallback is the text/plain part shown by clients that refuse
// HTML mail.
const plainFallback = "Please view this email in an HTML-capable email client.\r\n"

// defaultBoundary separates the multipart/alternative parts.
const defaultBoundary = "medialetter-boundary-7a3f9c"

// dialTimeout bounds the TCP connect to the SMTP server.
const dialTimeout = 15 * time.Second

// sessionTimeout bounds a whole SMTP transaction when the caller's
// context carries no deadline of its own.
const sessionTimeout = 2 * time.Minute

// addressPattern is a plausibility check, not a full RFC 5322 parser.
var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidAddress reports whether s looks like a deliverable address.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// SMTPConfig holds the connection and sender settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// Mailer sends newsletters through one SMTP account.
type Mailer struct {
	cfg SMTPConfig
}

// New creates a Mailer.
func New(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers the HTML body to every recipient, one message each.
// Per-recipient failures are collected and joined; a failure for one
// recipient never blocks delivery to the others.
func (m *Mailer) Send(ctx context.Context, subject, htmlBody string, recipients []string) error {
	var errs []error
	for _, recipient := range recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg := buildMessage(m.cfg.Sender, recipient, subject, defaultBoundary, htmlBody)
		if err := m.sendSMTP(ctx, recipient, msg); err != nil {
			logging.Error().Err(err).Str("recipient", recipient).Msg("Newsletter delivery failed")
			errs = append(errs, fmt.Errorf("send to %s: %w", recipient, err))
			continue
		}
		logging.Info().Str("recipient", recipient).Msg("Newsletter delivered")
	}
	return errors.Join(errs...)
}

// buildMessage assembles a multipart/alternative MIME message with a
// plain-text fallback part followed by the HTML part. The boundary is
// a parameter so tests can assert on the exact output.
func buildMessage(from, to, subject, boundary, htmlBody string) []byte {
	var msg []byte
	appendLine := func(line string) {
		msg = append(msg, line...)
		msg = append(msg, "\r\n"...)
	}

	appendLine("From: " + from)
	appendLine("To: " + to)
	appendLine("Subject: " + mime.QEncoding.Encode("utf-8", subject))
	appendLine("MIME-Version: 1.0")
	appendLine(`Content-Type: multipart/alternative; boundary="` + boundary + `"`)
	appendLine("")
	appendLine("--" + boundary)
	appendLine(`Content-Type: text/plain; charset="utf-8"`)
	appendLine("")
	msg = append(msg, plainFallback...)
	appendLine("--" + boundary)
	appendLine(`Content-Type: text/html; charset="utf-8"`)
	appendLine("")
	appendLine(htmlBody)
	appendLine("--" + boundary + "--")

	return msg
}

// applyDeadline bounds the whole transaction on the connection: the
// context deadline when one is set, sessionTimeout otherwise. net/smtp
// itself takes no context, so the deadline is the only way a stuck
// server cannot hold the run hostage.
func applyDeadline(ctx context.Context, conn net.Conn) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(sessionTimeout)
	}
	_ = conn.SetDeadline(deadline)
}

// sendSMTP performs one SMTP transaction: connect, STARTTLS,
// authenticate, and submit the message.
func (m *Mailer) sendSMTP(ctx context.Context, recipient string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	applyDeadline(ctx, conn)

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.StartTLS(&tls.Config{
		ServerName: m.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}); err != nil {
		return fmt.Errorf("starttls failed: %w", err)
	}

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp authentication failed: %w", err)
	}

	if err := client.Mail(m.cfg.Sender); err != nil {
		return fmt.Errorf("mail from rejected: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("recipient rejected: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data command failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message body: %w", err)
	}

	// Best-effort goodbye; the message is already accepted.
	_ = client.Quit()
	return nil
}

// CheckConnection verifies the SMTP server is reachable and speaks
// STARTTLS with valid credentials, without sending a message.
func (m *Mailer) CheckConnection(ctx context.Context) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	applyDeadline(ctx, conn)

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake failed: %w", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.StartTLS(&tls.Config{
		ServerName: m.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}); err != nil {
		return fmt.Errorf("starttls failed: %w", err)
	}

	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp authentication failed: %w", err)
	}

	_ = client.Quit()
	return nil
}
