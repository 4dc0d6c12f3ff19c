// Package notification renders mail templates and hands them to a sender.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender delivers one message.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

const CertificationExpiryReminder = "certification-expiry-reminder"

type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine holds templates and renders {{key}} placeholders.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.RegisterTemplate(Template{
		ID:      CertificationExpiryReminder,
		Subject: "Certification {{name}} expires on {{expiry_date}}",
		Body: "The certification {{name}} (number {{number}}, issued by {{authority}}) expires on {{expiry_date}}, " +
			"{{days_remaining}} day(s) from today. Please start the renewal.",
	})
	return e
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render replaces {{key}} with data[key]. Unknown placeholders are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Mailer renders a template and sends it.
type Mailer struct {
	templates *TemplateEngine
	sender    EmailSender
}

func NewMailer(templates *TemplateEngine, sender EmailSender) *Mailer {
	return &Mailer{templates: templates, sender: sender}
}

func (m *Mailer) Send(ctx context.Context, templateID, to string, data map[string]string) error {
	if to == "" {
		return errors.New("recipient is required")
	}
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return err
	}
	if err := m.sender.SendEmail(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send %s to %s: %w", templateID, to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("email")
	return nil
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from, send: smtp.SendMail}
}

var headerBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// headerValue folds CR and LF out of a value placed in a mail header.
func headerValue(v string) string {
	return strings.TrimSpace(headerBreaks.Replace(v))
}

func (s *SMTPSender) SendEmail(_ context.Context, to, subject, body string) error {
	to, subject = headerValue(to), headerValue(subject)
	msg := "From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" + body + "\r\n"
	return s.send(s.addr, nil, s.from, []string{to}, []byte(msg))
}

// EmailCall records one SendEmail call.
type EmailCall struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []EmailCall
	ShouldFail bool
}

func (m *MockEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, EmailCall{To: to, Subject: subject, Body: body})
	if m.ShouldFail {
		return errors.New("smtp unavailable")
	}
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *MockEmailSender) Calls() []EmailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmailCall, len(m.calls))
	copy(out, m.calls)
	return out
}
