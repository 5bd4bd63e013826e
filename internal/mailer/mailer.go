// Package mailer sends the transactional mail the auth workflow needs:
// verification codes, password reset links and reset confirmations.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Mailer interface {
	SendVerificationEmail(to, code string) error
	SendPasswordResetEmail(to, resetURL string) error
	SendResetSuccessEmail(to string) error
}

// SMTPMailer delivers over plain SMTP with PlainAuth.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func (m *SMTPMailer) SendVerificationEmail(to, code string) error {
	body := fmt.Sprintf(
		"<p>Your verification code is:</p><h2>%s</h2><p>The code expires in 24 hours.</p>",
		code,
	)
	return m.send(to, "Verify your email", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(to, resetURL string) error {
	body := fmt.Sprintf(
		`<p>We received a request to reset your password.</p><p><a href="%s">Reset password</a></p><p>The link expires in 1 hour. If you didn't ask for this, ignore this mail.</p>`,
		resetURL,
	)
	return m.send(to, "Reset your password", body)
}

func (m *SMTPMailer) SendResetSuccessEmail(to string) error {
	return m.send(to, "Your password was changed",
		"<p>Your password has been reset successfully.</p>")
}

func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", m.FromName, m.From),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	msg := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
