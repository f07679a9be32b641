package mail

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
)

// SMTPConfig configures the direct SMTP-over-TLS transport.
type SMTPConfig struct {
	Host        string
	Port        int
	SenderEmail string
	Password    string
}

// SMTPSender submits mail over an implicit-TLS SMTP connection, optionally
// with file attachments.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger}
}

// Send delivers the HTML body to every recipient in one submission.
func (s *SMTPSender) Send(ctx context.Context, recipients []string, subject, htmlBody string) error {
	return s.SendWithAttachments(ctx, recipients, subject, htmlBody, nil)
}

// SendWithAttachments delivers the body plus the given local files as a
// multipart MIME message. Missing attachment files are skipped with a
// warning rather than failing the send.
func (s *SMTPSender) SendWithAttachments(ctx context.Context, recipients []string, subject, htmlBody string, attachments []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := s.buildMessage(recipients, subject, htmlBody, attachments)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.cfg.SenderEmail, s.cfg.Password, s.cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(s.cfg.SenderEmail); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, recipient := range recipients {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	s.logger.Info("mail sent", "recipients", len(recipients), "attachments", len(attachments))
	return client.Quit()
}

const mimeBoundary = "paperpulse-mime-boundary"

func (s *SMTPSender) buildMessage(recipients []string, subject, htmlBody string, attachments []string) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "From: <%s>\r\n", s.cfg.SenderEmail)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	for _, path := range attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("attachment unreadable, skipping", "path", path, "error", err)
			continue
		}

		ctype := mime.TypeByExtension(filepath.Ext(path))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		name := filepath.Base(path)

		fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", ctype)
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", name)
		b.WriteString(base64.StdEncoding.EncodeToString(data))
		b.WriteString("\r\n")
	}

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}
