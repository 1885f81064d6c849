// Package mailer delivers confirmation codes by email.
//
// SMTPMailer sends through gomail. LogMailer only logs, which is what local
// setups without SMTP credentials get. CodeSender renders the HTML body from
// an embedded template that can be overridden from a file.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// DefaultSubject is the subject line of confirmation emails.
const DefaultSubject = "Your confirmation code"

//go:embed templates/code.html
var templates embed.FS

// Mailer sends one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends mail over SMTP.
type SMTPMailer struct {
	dialer dialer
	from   string
}

// NewSMTPMailer returns a mailer for host:port authenticating as user.
func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, password), from: from}
}

// Send implements Mailer.
func (s *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer writes a line per email instead of sending it.
type LogMailer struct{}

// Send implements Mailer.
func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	log.Info().Str("to", to).Str("subject", subject).Msg("email not sent: SMTP is not configured")
	return nil
}

// CodeSender renders and sends confirmation codes.
type CodeSender struct {
	Mailer  Mailer
	Subject string
	tmpl    *template.Template
}

// NewCodeSender uses the template at path, or the embedded one when path is
// empty.
func NewCodeSender(m Mailer, path string) (*CodeSender, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if path == "" {
		tmpl, err = template.ParseFS(templates, "templates/code.html")
	} else {
		var raw []byte
		raw, err = os.ReadFile(path)
		if err == nil {
			tmpl, err = template.New("code").Parse(string(raw))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load email template: %w", err)
	}
	return &CodeSender{Mailer: m, Subject: DefaultSubject, tmpl: tmpl}, nil
}

// Render returns the HTML body for code.
func (c *CodeSender) Render(code string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Title, Code string }{Title: c.Subject, Code: code}
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return buf.String(), nil
}

// SendCode renders the template and sends it to the address.
func (c *CodeSender) SendCode(ctx context.Context, to, code string) error {
	body, err := c.Render(code)
	if err != nil {
		return err
	}
	return c.Mailer.Send(ctx, to, c.Subject, body)
}
