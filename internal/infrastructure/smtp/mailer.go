package smtp

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"
	"time"

	"github.com/go-membership-api/internal/config"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	send     sendFunc
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		send:     smtp.SendMail,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return m.send(addr, auth, m.from, []string{to}, []byte(msg))
}

const VerificationSubject = "Confirm your email address"

var verificationTmpl = template.Must(template.New("verification").Parse(
	`Thank you for registering.

Open the link below to set your password and finish creating your account:

{{.Link}}

This link expires at {{.ExpiresAt}}. If you did not request it, you can ignore this email.
`))

const PasswordResetSubject = "Reset your password"

var passwordResetTmpl = template.Must(template.New("password_reset").Parse(
	`We received a request to reset the password for your account.

Open the link below to choose a new password:

{{.Link}}

This link expires at {{.ExpiresAt}}. If you did not request a reset, you can ignore this email; your password stays unchanged.
`))

// VerificationBody renders the body of the verification email.
func VerificationBody(link string, expiresAt time.Time) (string, error) {
	return render(verificationTmpl, link, expiresAt)
}

// PasswordResetBody renders the body of the password reset email.
func PasswordResetBody(link string, expiresAt time.Time) (string, error) {
	return render(passwordResetTmpl, link, expiresAt)
}

func render(tmpl *template.Template, link string, expiresAt time.Time) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Link      string
		ExpiresAt string
	}{link, expiresAt.UTC().Format("2006-01-02 15:04 MST")})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
