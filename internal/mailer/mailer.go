// Package mailer performs best-effort outbound email delivery.
package mailer

import (
	"fmt"
	"net"
	"net/smtp"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends mail over authenticated SMTP.
type SMTPSender struct {
	server   string // host:port
	user     string
	password string
	from     string
}

func NewSMTPSender(server, user, password, from string) *SMTPSender {
	return &SMTPSender{server: server, user: user, password: password, from: from}
}

// Send delivers the message using SMTP plain auth.
func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	if s.server == "" || s.user == "" || s.password == "" {
		return fmt.Errorf("SMTP settings are not configured")
	}

	host, port, err := net.SplitHostPort(s.server)
	if err != nil {
		return fmt.Errorf("invalid SMTP server format (expected host:port): %v", err)
	}

	auth := smtp.PlainAuth("", s.user, s.password, host)

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
		htmlBody + "\r\n")

	if err := smtp.SendMail(s.server, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email via %s:%s - %v", host, port, err)
	}
	return nil
}

// VerificationBody renders the signup verification email.
func VerificationBody(username, code string) string {
	return fmt.Sprintf(
		"<p>Hi %s,</p>"+
			"<p>Your RoastRadar verification code is: <strong>%s</strong></p>"+
			"<p>It expires in one hour. If you did not sign up, you can ignore this email.</p>",
		username, code)
}
