package mailer

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/go-mail/mail"
	"github.com/opticshop/optics/pkg/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Sender delivers templated emails
type Sender interface {
	Send(to, templateName string, data any) error
}

// Mailer sends emails through an SMTP server
type Mailer struct {
	dialer  *mail.Dialer
	sender  string
	retries int
	backoff time.Duration
}

// New creates a Mailer from the SMTP settings
func New(cfg config.SMTPConfig) *Mailer {
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = 5 * time.Second
	return &Mailer{
		dialer:  dialer,
		sender:  cfg.Sender,
		retries: 3,
		backoff: 500 * time.Millisecond,
	}
}

// Render executes the subject, plain and HTML parts of a template
func Render(templateName string, data any) (*mail.Message, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/"+templateName)
	if err != nil {
		return nil, err
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, err
	}

	plainBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return nil, err
	}

	htmlBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return nil, err
	}

	msg := mail.NewMessage()
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())
	return msg, nil
}

// Send renders the template and delivers it, retrying up to three times
func (m *Mailer) Send(to, templateName string, data any) error {
	msg, err := Render(templateName, data)
	if err != nil {
		return err
	}
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)

	for i := 0; i < m.retries; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
		time.Sleep(m.backoff)
	}

	return err
}
