package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

var (
	ErrNoRecipients    = errors.New("no recipients specified")
	ErrUnknownTemplate = errors.New("unknown email template")
)

// Config holds SMTP configuration for sending emails.
type Config struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// Validate checks that the SMTP settings are complete.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}

	return nil
}

// Template is a named email whose subject and HTML body are html/template sources.
type Template struct {
	Subject string
	Body    string
}

// DefaultTemplates are the emails the identity service sends.
var DefaultTemplates = map[string]Template{
	"Password_Reset": {
		Subject: "Password Reset Request",
		Body: `<p>Hi,</p>
<p>We received a request to reset the password for your account.</p>
<p>If you made this request, please click the link below to create a new password:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>If you did not request a password reset, you can safely ignore this email.</p>`,
	},
	"Password_Changed": {
		Subject: "Your password was changed",
		Body:    `<p>Hi,</p><p>The password for your account was just changed.</p>`,
	},
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer represents an email sender.
type Mailer struct {
	from      string
	dialer    dialer
	templates map[string]*template.Template
	subjects  map[string]string
}

// Email represents an email message.
type Email struct {
	To       []string
	Subject  string
	Body     string
	HTMLBody string
}

// NewMailer creates a Mailer that delivers through the configured SMTP server.
func NewMailer(cfg Config, templates map[string]Template) (*Mailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return newMailer(cfg.From, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), templates)
}

func newMailer(from string, d dialer, templates map[string]Template) (*Mailer, error) {
	m := &Mailer{
		from:      from,
		dialer:    d,
		templates: make(map[string]*template.Template, len(templates)),
		subjects:  make(map[string]string, len(templates)),
	}

	for name, tpl := range templates {
		parsed, err := template.New(name).Parse(tpl.Body)
		if err != nil {
			return nil, fmt.Errorf("parse email template %q: %w", name, err)
		}
		m.templates[name] = parsed
		m.subjects[name] = tpl.Subject
	}

	return m, nil
}

// Send sends a single email.
func (m *Mailer) Send(email Email) error {
	if len(email.To) == 0 {
		return ErrNoRecipients
	}

	msg := gomail.NewMessage()
	m.setEmailMessage(msg, email)

	return m.dialer.DialAndSend(msg)
}

// SendHTML sends an HTML email.
func (m *Mailer) SendHTML(to []string, subject, htmlBody string) error {
	return m.Send(Email{
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
}

// SendEmailUsingTemplate renders the named template with vars and sends it to address.
func (m *Mailer) SendEmailUsingTemplate(
	ctx context.Context,
	address, templateName string,
	vars map[string]string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := m.render(templateName, vars)
	if err != nil {
		return err
	}

	return m.SendHTML([]string{address}, subject, body)
}

func (m *Mailer) render(templateName string, vars map[string]string) (string, string, error) {
	tpl, ok := m.templates[templateName]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, templateName)
	}

	var body bytes.Buffer
	if err := tpl.Execute(&body, vars); err != nil {
		return "", "", fmt.Errorf("render email template %q: %w", templateName, err)
	}

	return m.subjects[templateName], body.String(), nil
}

func (m *Mailer) setEmailMessage(msg *gomail.Message, email Email) {
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To...)
	msg.SetHeader("Subject", email.Subject)

	if email.HTMLBody != "" {
		msg.SetBody("text/html", email.HTMLBody)
		if email.Body != "" {
			msg.AddAlternative("text/plain", email.Body)
		}
	} else {
		msg.SetBody("text/plain", email.Body)
	}
}
