package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/sequence"
)

type Service struct {
	feedback   FeedbackRepository
	complaints ComplaintRepository
	seq        sequence.Generator
	tx         db.TxRunner
	now        clock.Clock
}

func NewService(feedback FeedbackRepository, complaints ComplaintRepository, seq sequence.Generator,
	tx db.TxRunner, now clock.Clock) *Service {
	return &Service{feedback: feedback, complaints: complaints, seq: seq, tx: tx, now: now}
}

func (s *Service) today() time.Time { return clock.Date(s.now()) }

func validateFeedback(f *Feedback) error {
	if f.Description == "" {
		return apperr.Validation("description is required")
	}
	if f.FeedbackType == "" {
		f.FeedbackType = TypeOther
	}
	if !validTypes[f.FeedbackType] {
		return apperr.Validation("invalid feedback_type: %s", f.FeedbackType)
	}
	if !validRating(f.SatisfactionRating) {
		return apperr.Validation("satisfaction_rating must be between 1 and 5")
	}
	return nil
}

// -- Feedback --

func (s *Service) CreateFeedback(ctx context.Context, f *Feedback) error {
	if err := validateFeedback(f); err != nil {
		return err
	}
	if f.FeedbackDate.IsZero() {
		f.FeedbackDate = s.today()
	}
	f.State = StateNew
	f.ComplaintID = nil
	code, err := s.seq.Next(ctx, sequence.Feedback)
	if err != nil {
		return err
	}
	f.Code = code
	return s.feedback.Create(ctx, f)
}

func (s *Service) GetFeedback(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	return s.feedback.GetByID(ctx, id)
}

func (s *Service) UpdateFeedback(ctx context.Context, f *Feedback) error {
	if err := validateFeedback(f); err != nil {
		return err
	}
	current, err := s.feedback.GetByID(ctx, f.ID)
	if err != nil {
		return err
	}
	if f.FeedbackDate.IsZero() {
		f.FeedbackDate = current.FeedbackDate
	}
	f.Code = current.Code
	f.State = current.State
	f.ComplaintID = current.ComplaintID
	f.CreatedAt = current.CreatedAt
	return s.feedback.Update(ctx, f)
}

func (s *Service) DeleteFeedback(ctx context.Context, id uuid.UUID) error {
	return s.feedback.Delete(ctx, id)
}

func (s *Service) ListFeedback(ctx context.Context, f ListFilter, limit, offset int) ([]*Feedback, int, error) {
	return s.feedback.List(ctx, f, limit, offset)
}

func (s *Service) ApplyFeedback(ctx context.Context, id uuid.UUID, action Action) (*Feedback, error) {
	f, err := s.feedback.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Next(f.State, action)
	if err != nil {
		return nil, err
	}
	if err := s.feedback.UpdateState(ctx, id, next); err != nil {
		return nil, err
	}
	f.State = next
	return f, nil
}

// CreateComplaint opens a complaint from a feedback entry and links the two.
// A feedback entry carries at most one complaint.
func (s *Service) CreateComplaint(ctx context.Context, feedbackID uuid.UUID, category Category, priority Priority) (*Complaint, error) {
	var c *Complaint
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		f, err := s.feedback.GetByID(ctx, feedbackID)
		if err != nil {
			return err
		}
		if f.ComplaintID != nil {
			return apperr.User("feedback %s already has a complaint", f.Code)
		}
		c = &Complaint{
			PatientID:   f.PatientID,
			Description: f.Description,
			Category:    category,
			Priority:    priority,
			FeedbackID:  &f.ID,
			UserID:      f.UserID,
		}
		if err := s.createComplaint(ctx, c); err != nil {
			return err
		}
		return s.feedback.SetComplaint(ctx, f.ID, c.ID)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// -- Complaint --

func validateComplaint(c *Complaint) error {
	if c.Description == "" {
		return apperr.Validation("description is required")
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
	if _, ok := responseDays[c.Priority]; !ok {
		return apperr.Validation("invalid priority: %s", c.Priority)
	}
	if c.Category == "" {
		c.Category = "service"
	}
	if !validCategories[c.Category] {
		return apperr.Validation("invalid category: %s", c.Category)
	}
	if !validRating(c.SatisfactionRating) {
		return apperr.Validation("satisfaction_rating must be between 1 and 5")
	}
	return nil
}

func (s *Service) createComplaint(ctx context.Context, c *Complaint) error {
	if err := validateComplaint(c); err != nil {
		return err
	}
	if c.ComplaintDate.IsZero() {
		c.ComplaintDate = s.today()
	}
	c.State = ComplaintNew
	c.ResolvedDate = nil
	code, err := s.seq.Next(ctx, sequence.Complaint)
	if err != nil {
		return err
	}
	c.Code = code
	if err := s.complaints.Create(ctx, c); err != nil {
		return err
	}
	c.derive(s.today())
	return nil
}

func (s *Service) CreateStandaloneComplaint(ctx context.Context, c *Complaint) error {
	c.FeedbackID = nil
	return s.createComplaint(ctx, c)
}

func (s *Service) GetComplaint(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	c, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.derive(s.today())
	return c, nil
}

func (s *Service) UpdateComplaint(ctx context.Context, c *Complaint) error {
	if err := validateComplaint(c); err != nil {
		return err
	}
	current, err := s.complaints.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	if c.ComplaintDate.IsZero() {
		c.ComplaintDate = current.ComplaintDate
	}
	c.Code = current.Code
	c.State = current.State
	c.FeedbackID = current.FeedbackID
	c.ResolvedDate = current.ResolvedDate
	c.CreatedAt = current.CreatedAt
	if err := s.complaints.Update(ctx, c); err != nil {
		return err
	}
	c.derive(s.today())
	return nil
}

func (s *Service) DeleteComplaint(ctx context.Context, id uuid.UUID) error {
	return s.complaints.Delete(ctx, id)
}

func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter, limit, offset int) ([]*Complaint, int, error) {
	items, total, err := s.complaints.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	today := s.today()
	for _, c := range items {
		c.derive(today)
	}
	return items, total, nil
}

// ApplyComplaint moves a complaint through its workflow. Resolving stamps
// today as the resolved date; reopening clears it.
func (s *Service) ApplyComplaint(ctx context.Context, id uuid.UUID, action ComplaintAction) (*Complaint, error) {
	c, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := NextComplaintState(c.State, action)
	if err != nil {
		return nil, err
	}
	today := s.today()
	c.State = next
	switch next {
	case ComplaintResolved:
		c.ResolvedDate = &today
	case ComplaintNew:
		c.ResolvedDate = nil
	}
	if err := s.complaints.UpdateState(ctx, c); err != nil {
		return nil, err
	}
	c.derive(today)
	return c, nil
}

// -- Dashboard --

// Dashboard aggregates feedback between from and to, defaulting to the last
// DashboardDays days.
func (s *Service) Dashboard(ctx context.Context, from, to *time.Time) (*Dashboard, error) {
	end := s.today()
	if to != nil {
		end = clock.Date(*to)
	}
	start := end.AddDate(0, 0, -DashboardDays)
	if from != nil {
		start = clock.Date(*from)
	}
	if start.After(end) {
		return nil, apperr.Validation("date_from must not be after date_to")
	}
	rows, err := s.feedback.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return ComputeDashboard(rows, start, end), nil
}
