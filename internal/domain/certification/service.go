package certification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/blobstore"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/notification"
)

// Notifier sends a rendered mail template.
type Notifier interface {
	Send(ctx context.Context, templateID, to string, data map[string]string) error
}

// ReminderObserver counts reminders that went out.
type ReminderObserver interface {
	IncRemindersSent()
}

type Service struct {
	certs       CertificationRepository
	inspections InspectionRepository
	docs        blobstore.Store
	notifier    Notifier
	observer    ReminderObserver
	tx          db.TxRunner
	now         clock.Clock
}

func NewService(certs CertificationRepository, inspections InspectionRepository, docs blobstore.Store,
	notifier Notifier, observer ReminderObserver, tx db.TxRunner, now clock.Clock) *Service {
	return &Service{
		certs:       certs,
		inspections: inspections,
		docs:        docs,
		notifier:    notifier,
		observer:    observer,
		tx:          tx,
		now:         now,
	}
}

func (s *Service) today() time.Time { return clock.Date(s.now()) }

func validateCertification(c *Certification) error {
	if c.Name == "" {
		return apperr.Validation("name is required")
	}
	if c.Number == "" {
		return apperr.Validation("number is required")
	}
	if c.Type == "" {
		c.Type = "other"
	}
	if !validTypes[c.Type] {
		return apperr.Validation("invalid type: %s", c.Type)
	}
	if c.IssueDate.IsZero() || c.ExpiryDate.IsZero() {
		return apperr.Validation("issue_date and expiry_date are required")
	}
	if c.ExpiryDate.Before(c.IssueDate) {
		return apperr.Validation("expiry_date cannot be before issue_date")
	}
	if c.ReminderDays < 0 {
		return apperr.Validation("reminder_days cannot be negative")
	}
	return nil
}

// -- Certifications --

func (s *Service) Create(ctx context.Context, c *Certification) error {
	if err := validateCertification(c); err != nil {
		return err
	}
	c.State = StateDraft
	c.Active = true
	c.DocumentKey = nil
	c.RemindedFor = nil
	if err := s.certs.Create(ctx, c); err != nil {
		return err
	}
	c.DaysRemaining = c.daysRemaining(s.today())
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Certification, error) {
	c, err := s.certs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.DaysRemaining = c.daysRemaining(s.today())
	return c, nil
}

func (s *Service) Update(ctx context.Context, c *Certification) error {
	if err := validateCertification(c); err != nil {
		return err
	}
	current, err := s.certs.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	c.State = current.State
	c.DocumentKey = current.DocumentKey
	c.RemindedFor = current.RemindedFor
	c.CreatedAt = current.CreatedAt
	if err := s.certs.Update(ctx, c); err != nil {
		return err
	}
	c.DaysRemaining = c.daysRemaining(s.today())
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.certs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.certs.Delete(ctx, id); err != nil {
		return err
	}
	s.dropDocument(ctx, c.DocumentKey)
	return nil
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Certification, int, error) {
	items, total, err := s.certs.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	today := s.today()
	for _, c := range items {
		c.DaysRemaining = c.daysRemaining(today)
	}
	return items, total, nil
}

func (s *Service) Apply(ctx context.Context, id uuid.UUID, action Action) (*Certification, error) {
	c, err := s.certs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(c.State, action)
	if err != nil {
		return nil, err
	}
	if err := s.certs.UpdateState(ctx, id, next); err != nil {
		return nil, err
	}
	c.State = next
	c.DaysRemaining = c.daysRemaining(s.today())
	return c, nil
}

// UpdateStates is the daily certification sweep: it moves certifications to
// expiring or expired, then sends due reminders. It returns the number of
// state changes plus reminders sent. Running it twice on the same day does
// nothing the second time.
func (s *Service) UpdateStates(ctx context.Context, now time.Time) (int, error) {
	today := clock.Date(now)
	certs, err := s.certs.ListForSweep(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, c := range certs {
		next, ok := c.SweepState(today)
		if !ok {
			continue
		}
		if err := s.certs.UpdateState(ctx, c.ID, next); err != nil {
			return changed, err
		}
		c.State = next
		changed++
	}

	sent, err := s.sendReminders(ctx, certs, today)
	return changed + sent, err
}

// sendReminders mails each due certification's responsible address. A failed
// send is logged and retried on the next sweep.
func (s *Service) sendReminders(ctx context.Context, certs []*Certification, today time.Time) (int, error) {
	log := zerolog.Ctx(ctx)
	sent := 0
	for _, c := range certs {
		if !c.ReminderDue(today) {
			continue
		}
		data := map[string]string{
			"name":           c.Name,
			"number":         c.Number,
			"authority":      deref(c.Authority),
			"expiry_date":    c.ExpiryDate.Format("2006-01-02"),
			"days_remaining": strconv.Itoa(c.daysRemaining(today)),
		}
		if err := s.notifier.Send(ctx, notification.CertificationExpiryReminder, *c.ResponsibleEmail, data); err != nil {
			log.Error().Err(err).Str("certification_id", c.ID.String()).Msg("expiry reminder failed")
			continue
		}
		if err := s.certs.MarkReminded(ctx, c.ID, c.ExpiryDate); err != nil {
			return sent, err
		}
		if s.observer != nil {
			s.observer.IncRemindersSent()
		}
		sent++
	}
	return sent, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Renew extends a certification and records the renewal as a passed,
// completed inspection.
func (s *Service) Renew(ctx context.Context, id uuid.UUID, req RenewRequest) (*Certification, *Inspection, error) {
	var c *Certification
	var insp *Inspection
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.certs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.NewExpiry.IsZero() {
			return apperr.Validation("new_expiry_date is required")
		}
		newExpiry := clock.Date(req.NewExpiry)
		if !newExpiry.After(clock.Date(c.ExpiryDate)) {
			return apperr.User("new expiry date must be after the current expiry date %s",
				c.ExpiryDate.Format("2006-01-02"))
		}
		notes := renewalNotes(c.ExpiryDate, newExpiry)
		if req.Notes != nil && *req.Notes != "" {
			notes = *req.Notes
		}
		insp = &Inspection{
			Name:            fmt.Sprintf("Renewal - %s", c.Name),
			CertificationID: &c.ID,
			Date:            s.today(),
			Inspector:       req.Inspector,
			Result:          ResultPassed,
			Notes:           &notes,
			State:           InspectionCompleted,
		}
		if err := s.inspections.Create(ctx, insp); err != nil {
			return err
		}
		if err := s.certs.Renew(ctx, id, newExpiry); err != nil {
			return err
		}
		c.ExpiryDate = newExpiry
		c.RenewalDate = &newExpiry
		c.State = StateValid
		c.RemindedFor = nil
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	c.DaysRemaining = c.daysRemaining(s.today())
	return c, insp, nil
}

// -- Documents --

func (s *Service) storeDocument(ctx context.Context, owner string, id uuid.UUID, fileName, contentType string, content io.Reader) (string, error) {
	key := blobstore.NewKey(owner, id.String(), fileName)
	if _, err := s.docs.Put(ctx, key, contentType, content); err != nil {
		if errors.Is(err, blobstore.ErrFileTooLarge) || errors.Is(err, blobstore.ErrInvalidContentType) {
			return "", apperr.Validation("%v", err)
		}
		return "", err
	}
	return key, nil
}

// dropDocument removes a replaced or orphaned blob; failures only leave
// garbage behind and are logged.
func (s *Service) dropDocument(ctx context.Context, key *string) {
	if key == nil {
		return
	}
	if err := s.docs.Delete(ctx, *key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", *key).Msg("document cleanup failed")
	}
}

func (s *Service) openDocument(ctx context.Context, key *string) (io.ReadCloser, *blobstore.Object, error) {
	if key == nil {
		return nil, nil, apperr.NotFound("document not found")
	}
	rc, obj, err := s.docs.Get(ctx, *key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil, apperr.NotFound("document not found")
	}
	return rc, obj, err
}

func (s *Service) UploadDocument(ctx context.Context, id uuid.UUID, fileName, contentType string, content io.Reader) (*Certification, error) {
	c, err := s.certs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	key, err := s.storeDocument(ctx, "certification", id, fileName, contentType, content)
	if err != nil {
		return nil, err
	}
	if err := s.certs.SetDocument(ctx, id, &key); err != nil {
		s.dropDocument(ctx, &key)
		return nil, err
	}
	s.dropDocument(ctx, c.DocumentKey)
	c.DocumentKey = &key
	c.DaysRemaining = c.daysRemaining(s.today())
	return c, nil
}

func (s *Service) Document(ctx context.Context, id uuid.UUID) (io.ReadCloser, *blobstore.Object, error) {
	c, err := s.certs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.openDocument(ctx, c.DocumentKey)
}

// -- Inspections --

func (s *Service) validateInspection(ctx context.Context, i *Inspection) error {
	if i.Name == "" {
		return apperr.Validation("name is required")
	}
	if i.Date.IsZero() {
		i.Date = s.today()
	}
	if i.Result == "" {
		i.Result = ResultPending
	}
	if !validResults[i.Result] {
		return apperr.Validation("invalid result: %s", i.Result)
	}
	i.CorrectiveActionRequired = i.Result == ResultFailed
	if i.CertificationID != nil {
		if _, err := s.certs.GetByID(ctx, *i.CertificationID); err != nil {
			if apperr.IsNotFound(err) {
				return apperr.Validation("certification %s does not exist", *i.CertificationID)
			}
			return err
		}
	}
	return nil
}

func (s *Service) CreateInspection(ctx context.Context, i *Inspection) error {
	if err := s.validateInspection(ctx, i); err != nil {
		return err
	}
	i.State = InspectionPlanned
	i.DocumentKey = nil
	return s.inspections.Create(ctx, i)
}

func (s *Service) GetInspection(ctx context.Context, id uuid.UUID) (*Inspection, error) {
	return s.inspections.GetByID(ctx, id)
}

func (s *Service) UpdateInspection(ctx context.Context, i *Inspection) error {
	if err := s.validateInspection(ctx, i); err != nil {
		return err
	}
	current, err := s.inspections.GetByID(ctx, i.ID)
	if err != nil {
		return err
	}
	i.State = current.State
	i.DocumentKey = current.DocumentKey
	i.CreatedAt = current.CreatedAt
	return s.inspections.Update(ctx, i)
}

func (s *Service) DeleteInspection(ctx context.Context, id uuid.UUID) error {
	i, err := s.inspections.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.inspections.Delete(ctx, id); err != nil {
		return err
	}
	s.dropDocument(ctx, i.DocumentKey)
	return nil
}

func (s *Service) ListInspections(ctx context.Context, certificationID *uuid.UUID, limit, offset int) ([]*Inspection, int, error) {
	return s.inspections.List(ctx, certificationID, limit, offset)
}

func (s *Service) ApplyInspection(ctx context.Context, id uuid.UUID, action InspectionAction) (*Inspection, error) {
	i, err := s.inspections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := NextInspectionState(i.State, action)
	if err != nil {
		return nil, err
	}
	if err := s.inspections.UpdateState(ctx, id, next); err != nil {
		return nil, err
	}
	i.State = next
	return i, nil
}

func (s *Service) UploadInspectionDocument(ctx context.Context, id uuid.UUID, fileName, contentType string, content io.Reader) (*Inspection, error) {
	i, err := s.inspections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	key, err := s.storeDocument(ctx, "inspection", id, fileName, contentType, content)
	if err != nil {
		return nil, err
	}
	if err := s.inspections.SetDocument(ctx, id, &key); err != nil {
		s.dropDocument(ctx, &key)
		return nil, err
	}
	s.dropDocument(ctx, i.DocumentKey)
	i.DocumentKey = &key
	return i, nil
}

func (s *Service) InspectionDocument(ctx context.Context, id uuid.UUID) (io.ReadCloser, *blobstore.Object, error) {
	i, err := s.inspections.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.openDocument(ctx, i.DocumentKey)
}
