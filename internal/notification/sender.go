package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mindsettler/service-booking/internal/platform/config"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends mail through an SMTP relay. Port 465 uses implicit TLS, any
// other port uses STARTTLS when the server offers it.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
	timeout  time.Duration
}

// NewSMTPSender creates an SMTPSender from config.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		fromName: cfg.FromName,
		timeout:  10 * time.Second,
	}
}

// Send delivers an HTML email.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := s.buildMessage(to, subject, htmlBody)
	addr := net.JoinHostPort(s.host, s.port)

	dialer := &net.Dialer{Timeout: s.timeout}
	var conn net.Conn
	var err error
	if s.port == "465" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if s.port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if s.username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

func (s *SMTPSender) buildMessage(to, subject, htmlBody string) []byte {
	safe := func(v string) string {
		return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(v))
	}
	from := s.from
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", safe(s.fromName), s.from)
	}

	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + safe(to) + "\r\n")
	sb.WriteString("Subject: " + safe(subject) + "\r\n")
	sb.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	sb.WriteString(htmlBody)
	return []byte(sb.String())
}

// LogSender writes emails to the log instead of sending them. It is used when no
// SMTP relay is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the email and reports success.
func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info("mock email",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// NewSender picks SMTP when a host is configured and the log sender otherwise.
func NewSender(cfg config.SMTPConfig, logger *zap.Logger) Sender {
	if cfg.Host == "" {
		logger.Warn("SMTP not configured, emails will only be logged")
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg)
}
