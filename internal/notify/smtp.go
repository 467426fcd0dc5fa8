package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTP sends notifications as plain-text email over implicit TLS
// (SMTPS, typically port 465).
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSMTP returns an email sink, or nil when no host is configured.
func NewSMTP(host string, port int, username, password, from string) *SMTP {
	if host == "" {
		return nil
	}
	if port == 0 {
		port = 465
	}
	return &SMTP{Host: host, Port: port, Username: username, Password: password, From: from}
}

func (s *SMTP) Notify(ctx context.Context, target, subject, body string) error {
	if target == "" {
		// Endpoints without a notification target are silently skipped.
		return nil
	}

	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	dialer := &tls.Dialer{Config: &tls.Config{ServerName: s.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing smtp %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake with %s: %w", addr, err)
	}
	defer client.Close()

	if s.Username != "" {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(target); err != nil {
		return fmt.Errorf("smtp rcpt to %s: %w", target, err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	msg := buildMessage(s.From, target, subject, body)
	if _, err := wc.Write([]byte(msg)); err != nil {
		wc.Close()
		return fmt.Errorf("writing smtp message: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("closing smtp message: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}
