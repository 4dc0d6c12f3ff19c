package notification

import (
	"bytes"
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		ID:      "test-tpl",
		Subject: "Hello {{name}}",
		Body:    "Dear {{name}}, your code is {{code}}.",
	})

	subject, body, err := eng.Render("test-tpl", map[string]string{"name": "Alice", "code": "1234"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hello Alice" {
		t.Errorf("subject = %q, want %q", subject, "Hello Alice")
	}
	if body != "Dear Alice, your code is 1234." {
		t.Errorf("body = %q", body)
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	if _, _, err := NewTemplateEngine().Render("nonexistent", nil); err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
}

func TestTemplateEngine_UnknownPlaceholderKept(t *testing.T) {
	subject, _, err := NewTemplateEngine().Render(CertificationExpiryReminder, map[string]string{"name": "Fire safety"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Certification Fire safety expires on {{expiry_date}}" {
		t.Errorf("unexpected subject %q", subject)
	}
}

func TestMailer_Send(t *testing.T) {
	sender := &MockEmailSender{}
	m := NewMailer(NewTemplateEngine(), sender)

	err := m.Send(context.Background(), CertificationExpiryReminder, "quality@clinic.local", map[string]string{
		"name":           "Operating licence",
		"number":         "OL-1",
		"authority":      "Health Department",
		"expiry_date":    "2025-07-01",
		"days_remaining": "10",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].To != "quality@clinic.local" {
		t.Errorf("unexpected recipient %q", calls[0].To)
	}
	if !strings.Contains(calls[0].Body, "10 day(s)") {
		t.Errorf("expected rendered body, got %q", calls[0].Body)
	}
}

func TestMailer_RequiresRecipient(t *testing.T) {
	sender := &MockEmailSender{}
	m := NewMailer(NewTemplateEngine(), sender)
	if err := m.Send(context.Background(), CertificationExpiryReminder, "", nil); err == nil {
		t.Fatal("expected error without recipient")
	}
	if len(sender.Calls()) != 0 {
		t.Error("expected no send without recipient")
	}
}

func TestMailer_SenderFailure(t *testing.T) {
	m := NewMailer(NewTemplateEngine(), &MockEmailSender{ShouldFail: true})
	err := m.Send(context.Background(), CertificationExpiryReminder, "a@b.c", map[string]string{"name": "X"})
	if err == nil || !strings.Contains(err.Error(), "smtp unavailable") {
		t.Fatalf("expected wrapped sender error, got %v", err)
	}
}

func TestLogSender_WritesEntry(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(zerolog.New(&buf))
	if err := s.SendEmail(context.Background(), "x@y.z", "subj", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"to":"x@y.z"`) {
		t.Errorf("expected recipient in log, got %s", buf.String())
	}
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := NewSMTPSender("mail:25", "no-reply@clinic.local")
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := s.SendEmail(context.Background(), "hr@clinic.local", "Hello", "World"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAddr != "mail:25" || gotFrom != "no-reply@clinic.local" {
		t.Errorf("unexpected envelope %s %s", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "hr@clinic.local" {
		t.Errorf("unexpected recipients %v", gotTo)
	}
	if !strings.Contains(string(gotMsg), "Subject: Hello\r\n") || !strings.HasSuffix(string(gotMsg), "World\r\n") {
		t.Errorf("unexpected message %q", gotMsg)
	}
}

func TestSMTPSender_StripsHeaderBreaks(t *testing.T) {
	var gotTo []string
	var gotMsg []byte
	s := NewSMTPSender("mail:25", "no-reply@clinic.local")
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotTo, gotMsg = to, msg
		return nil
	}

	subject := "Fire safety\r\nBcc: attacker@evil.test"
	if err := s.SendEmail(context.Background(), "hr@clinic.local\n", subject, "World"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := string(gotMsg)
	if strings.Contains(msg, "\r\nBcc:") || strings.Contains(msg, "\nBcc:") {
		t.Errorf("header injected into message %q", msg)
	}
	if !strings.Contains(msg, "Subject: Fire safety  Bcc: attacker@evil.test\r\n") {
		t.Errorf("expected folded subject, got %q", msg)
	}
	if len(gotTo) != 1 || gotTo[0] != "hr@clinic.local" {
		t.Errorf("unexpected recipients %v", gotTo)
	}
}
