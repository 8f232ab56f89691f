// Package mailer delivers outbound notifications: academic record
// deliveries to institutional addresses and escalation summaries to the
// operations inbox. Chat replies never carry record content, so this
// channel is the only way sensitive data leaves the system.
package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Message is one outbound email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	// Send delivers the message, honoring the context deadline.
	Send(ctx context.Context, msg Message) error
	// IsEnabled reports whether the channel is configured.
	IsEnabled() bool
}

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail over SMTP with PLAIN auth and STARTTLS
// when the server offers it.
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates an SMTP sender. Returns nil if the host or
// from address is missing (channel disabled).
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Host == "" || cfg.From == "" {
		return nil
	}
	return &SMTPSender{config: cfg}
}

// Send delivers the message. The context deadline bounds the whole
// exchange including dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s == nil {
		return fmt.Errorf("mail channel not configured")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	payload := s.buildPayload(msg)

	done := make(chan error, 1)
	go func() {
		done <- s.sendMail(ctx, addr, auth, msg.To, payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendMail runs the SMTP exchange. The dial honors the context
// deadline; the rest of the exchange is bounded by the goroutine in
// Send racing ctx.Done.
func (s *SMTPSender) sendMail(ctx context.Context, addr string, auth smtp.Auth, to []string, payload []byte) error {
	dialer := net.Dialer{}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return fmt.Errorf("writing body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}

	return client.Quit()
}

// buildPayload renders the RFC 5322 message. The subject is Q-encoded
// so Spanish accents survive transport.
func (s *SMTPSender) buildPayload(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.config.From + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// IsEnabled reports whether the sender is configured.
func (s *SMTPSender) IsEnabled() bool {
	return s != nil
}

// NopSender is a disabled mail channel. Sends fail loudly so callers
// fall into their no-delivery paths instead of silently dropping mail.
type NopSender struct{}

// Send always fails.
func (NopSender) Send(context.Context, Message) error {
	return fmt.Errorf("mail channel not configured")
}

// IsEnabled always reports false.
func (NopSender) IsEnabled() bool { return false }
