package certification

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/blobstore"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/notification"
)

type mockCertRepo struct{ store map[uuid.UUID]*Certification }

func (m *mockCertRepo) get(id uuid.UUID) (*Certification, error) {
	c, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("certification not found")
	}
	return c, nil
}

func (m *mockCertRepo) Create(_ context.Context, c *Certification) error {
	c.ID = uuid.New()
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockCertRepo) GetByID(_ context.Context, id uuid.UUID) (*Certification, error) {
	c, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (m *mockCertRepo) Update(_ context.Context, c *Certification) error {
	cp := *c
	m.store[c.ID] = &cp
	return nil
}

func (m *mockCertRepo) UpdateState(_ context.Context, id uuid.UUID, state State) error {
	c, err := m.get(id)
	if err != nil {
		return err
	}
	c.State = state
	return nil
}

func (m *mockCertRepo) Renew(_ context.Context, id uuid.UUID, expiry time.Time) error {
	c, err := m.get(id)
	if err != nil {
		return err
	}
	c.ExpiryDate = expiry
	c.RenewalDate = &expiry
	c.State = StateValid
	c.RemindedFor = nil
	return nil
}

func (m *mockCertRepo) MarkReminded(_ context.Context, id uuid.UUID, expiry time.Time) error {
	c, err := m.get(id)
	if err != nil {
		return err
	}
	c.RemindedFor = &expiry
	return nil
}

func (m *mockCertRepo) SetDocument(_ context.Context, id uuid.UUID, key *string) error {
	c, err := m.get(id)
	if err != nil {
		return err
	}
	c.DocumentKey = key
	return nil
}

func (m *mockCertRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockCertRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Certification, int, error) {
	var out []*Certification
	for _, c := range m.store {
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockCertRepo) ListForSweep(_ context.Context) ([]*Certification, error) {
	var out []*Certification
	for _, c := range m.store {
		if c.Active && c.State != StateExpired {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockInspectionRepo struct{ store map[uuid.UUID]*Inspection }

func (m *mockInspectionRepo) Create(_ context.Context, i *Inspection) error {
	i.ID = uuid.New()
	cp := *i
	m.store[i.ID] = &cp
	return nil
}

func (m *mockInspectionRepo) GetByID(_ context.Context, id uuid.UUID) (*Inspection, error) {
	i, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("inspection not found")
	}
	cp := *i
	return &cp, nil
}

func (m *mockInspectionRepo) Update(_ context.Context, i *Inspection) error {
	cp := *i
	m.store[i.ID] = &cp
	return nil
}

func (m *mockInspectionRepo) UpdateState(_ context.Context, id uuid.UUID, state InspectionState) error {
	i, ok := m.store[id]
	if !ok {
		return apperr.NotFound("inspection not found")
	}
	i.State = state
	return nil
}

func (m *mockInspectionRepo) SetDocument(_ context.Context, id uuid.UUID, key *string) error {
	i, ok := m.store[id]
	if !ok {
		return apperr.NotFound("inspection not found")
	}
	i.DocumentKey = key
	return nil
}

func (m *mockInspectionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.store, id)
	return nil
}

func (m *mockInspectionRepo) List(_ context.Context, certificationID *uuid.UUID, limit, offset int) ([]*Inspection, int, error) {
	var out []*Inspection
	for _, i := range m.store {
		if certificationID == nil || (i.CertificationID != nil && *i.CertificationID == *certificationID) {
			out = append(out, i)
		}
	}
	return out, len(out), nil
}

type countingObserver struct{ n int }

func (o *countingObserver) IncRemindersSent() { o.n++ }

type testEnv struct {
	svc         *Service
	certs       *mockCertRepo
	inspections *mockInspectionRepo
	docs        *blobstore.Memory
	mail        *notification.MockEmailSender
	observer    *countingObserver
}

var testNow = time.Date(2025, time.June, 1, 7, 0, 0, 0, time.UTC)

func newTestEnv() *testEnv {
	env := &testEnv{
		certs:       &mockCertRepo{store: map[uuid.UUID]*Certification{}},
		inspections: &mockInspectionRepo{store: map[uuid.UUID]*Inspection{}},
		docs:        blobstore.NewMemory(),
		mail:        &notification.MockEmailSender{},
		observer:    &countingObserver{},
	}
	mailer := notification.NewMailer(notification.NewTemplateEngine(), env.mail)
	env.svc = NewService(env.certs, env.inspections, env.docs, mailer, env.observer, db.NoTx{}, clock.Fixed(testNow))
	return env
}

func (e *testEnv) addCert(t *testing.T, expiry time.Time, email *string) *Certification {
	t.Helper()
	c := &Certification{
		Name: "Fire safety", Number: uuid.NewString(), Type: "safety",
		IssueDate: expiry.AddDate(-1, 0, 0), ExpiryDate: expiry,
		RenewalReminder: true, ReminderDays: DefaultReminderDays, ResponsibleEmail: email,
	}
	if err := e.svc.Create(context.Background(), c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.svc.Apply(context.Background(), c.ID, ActionActivate); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return c
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv()
	c := &Certification{Name: "x", Number: "N1", IssueDate: today, ExpiryDate: today.AddDate(0, 0, -1)}
	if err := env.svc.Create(context.Background(), c); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for expiry before issue, got %v", err)
	}
	c = &Certification{Name: "x", Number: "N1", Type: "fashion", IssueDate: today, ExpiryDate: today}
	if err := env.svc.Create(context.Background(), c); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for type, got %v", err)
	}
}

func TestUpdateStates_TransitionsAndRemindsOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	soon := env.addCert(t, today.AddDate(0, 0, 10), strPtr("qa@clinic.test"))
	gone := env.addCert(t, today.AddDate(0, 0, -2), strPtr("qa@clinic.test"))
	later := env.addCert(t, today.AddDate(0, 3, 0), strPtr("qa@clinic.test"))

	n, err := env.svc.UpdateStates(ctx, testNow)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 2 state changes and 1 reminder, got %d", n)
	}
	if env.certs.store[soon.ID].State != StateExpiring {
		t.Errorf("expected expiring, got %s", env.certs.store[soon.ID].State)
	}
	if env.certs.store[gone.ID].State != StateExpired {
		t.Errorf("expected expired, got %s", env.certs.store[gone.ID].State)
	}
	if env.certs.store[later.ID].State != StateValid {
		t.Errorf("expected valid, got %s", env.certs.store[later.ID].State)
	}

	calls := env.mail.Calls()
	if len(calls) != 1 || calls[0].To != "qa@clinic.test" {
		t.Fatalf("expected one reminder, got %+v", calls)
	}
	if !bytes.Contains([]byte(calls[0].Subject), []byte("Fire safety")) {
		t.Errorf("unexpected subject: %s", calls[0].Subject)
	}
	if env.observer.n != 1 {
		t.Errorf("expected reminder counted once, got %d", env.observer.n)
	}

	n, err = env.svc.UpdateStates(ctx, testNow)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 || len(env.mail.Calls()) != 1 {
		t.Errorf("expected second sweep to do nothing, got %d changes and %d mails", n, len(env.mail.Calls()))
	}
}

func TestUpdateStates_FailedSendRetries(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.addCert(t, today.AddDate(0, 0, 10), strPtr("qa@clinic.test"))
	env.mail.ShouldFail = true

	if _, err := env.svc.UpdateStates(ctx, testNow); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if env.certs.store[c.ID].RemindedFor != nil {
		t.Error("failed reminder must not be recorded")
	}

	env.mail.ShouldFail = false
	if _, err := env.svc.UpdateStates(ctx, testNow); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if env.certs.store[c.ID].RemindedFor == nil {
		t.Error("expected reminder recorded after a successful retry")
	}
}

func TestUpdateStates_RemindsDraft(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := &Certification{
		Name: "Radiation license", Number: "RAD-1", Type: "safety",
		IssueDate: today.AddDate(-1, 0, 0), ExpiryDate: today.AddDate(0, 0, 5),
		RenewalReminder: true, ReminderDays: DefaultReminderDays, ResponsibleEmail: strPtr("qa@clinic.test"),
	}
	if err := env.svc.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	n, err := env.svc.UpdateStates(ctx, testNow)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected only the reminder to count, got %d", n)
	}
	if env.certs.store[c.ID].State != StateDraft {
		t.Errorf("expected draft to stay draft, got %s", env.certs.store[c.ID].State)
	}
	if calls := env.mail.Calls(); len(calls) != 1 {
		t.Fatalf("expected one reminder for the draft, got %d", len(calls))
	}
	if env.certs.store[c.ID].RemindedFor == nil {
		t.Error("expected reminder recorded")
	}
}

func TestRenew(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.addCert(t, today.AddDate(0, 0, 10), strPtr("qa@clinic.test"))
	_, _ = env.svc.UpdateStates(ctx, testNow)

	newExpiry := today.AddDate(1, 0, 10)
	got, insp, err := env.svc.Renew(ctx, c.ID, RenewRequest{NewExpiry: newExpiry, Inspector: strPtr("Authority")})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if got.State != StateValid || !got.ExpiryDate.Equal(newExpiry) || got.RemindedFor != nil {
		t.Errorf("unexpected certification after renewal: %+v", got)
	}
	stored := env.certs.store[c.ID]
	if stored.RemindedFor != nil || stored.RenewalDate == nil || !stored.RenewalDate.Equal(newExpiry) {
		t.Errorf("unexpected stored certification: %+v", stored)
	}
	if insp.Result != ResultPassed || insp.State != InspectionCompleted {
		t.Errorf("expected completed passed inspection, got %s/%s", insp.Result, insp.State)
	}
	want := "Renewed from 2025-06-11 to 2026-06-11"
	if insp.Notes == nil || *insp.Notes != want {
		t.Errorf("expected notes %q, got %v", want, insp.Notes)
	}
}

func TestRenew_MustExtend(t *testing.T) {
	env := newTestEnv()
	c := env.addCert(t, today.AddDate(0, 0, 10), nil)
	_, _, err := env.svc.Renew(context.Background(), c.ID, RenewRequest{NewExpiry: today.AddDate(0, 0, 10)})
	if !apperr.IsUser(err) {
		t.Fatalf("expected user error, got %v", err)
	}
	if len(env.inspections.store) != 0 {
		t.Error("no inspection should be created for a rejected renewal")
	}
}

func TestUploadDocument_ReplacesBlob(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.addCert(t, today.AddDate(1, 0, 0), nil)

	first, err := env.svc.UploadDocument(ctx, c.ID, "cert.pdf", "application/pdf", bytes.NewReader([]byte("v1")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	oldKey := *first.DocumentKey
	if _, err := env.svc.UploadDocument(ctx, c.ID, "cert.pdf", "application/pdf", bytes.NewReader([]byte("v2"))); err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if _, _, err := env.docs.Get(ctx, oldKey); err == nil {
		t.Error("expected the replaced document to be deleted")
	}

	rc, obj, err := env.svc.Document(ctx, c.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "v2" || obj.ContentType != "application/pdf" {
		t.Errorf("unexpected document %q (%s)", body, obj.ContentType)
	}

	if _, err := env.svc.UploadDocument(ctx, c.ID, "cert.exe", "application/x-msdownload", bytes.NewReader([]byte("x"))); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for content type, got %v", err)
	}
}

func TestCreateInspection_CorrectiveFlag(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	i := &Inspection{Name: "Annual audit", Result: ResultFailed}
	if err := env.svc.CreateInspection(ctx, i); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !i.CorrectiveActionRequired || i.State != InspectionPlanned {
		t.Errorf("expected planned inspection requiring correction, got %+v", i)
	}
	i.Result = ResultConditional
	if err := env.svc.UpdateInspection(ctx, i); err != nil {
		t.Fatalf("update: %v", err)
	}
	if i.CorrectiveActionRequired {
		t.Error("corrective action is only required for failed inspections")
	}

	missing := uuid.New()
	bad := &Inspection{Name: "x", CertificationID: &missing}
	if err := env.svc.CreateInspection(ctx, bad); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for unknown certification, got %v", err)
	}
}
