package treatment

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicops/clinic/internal/platform/apperr"
	"github.com/clinicops/clinic/internal/platform/clock"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/sequence"
)

// ActivityRecorder marks a patient as active when a treatment step runs.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, patientID uuid.UUID) error
}

type Service struct {
	plans     PlanRepository
	processes ProcessRepository
	activity  ActivityRecorder
	seq       sequence.Generator
	tx        db.TxRunner
	now       clock.Clock
}

func NewService(plans PlanRepository, processes ProcessRepository, activity ActivityRecorder,
	seq sequence.Generator, tx db.TxRunner, now clock.Clock) *Service {
	return &Service{plans: plans, processes: processes, activity: activity, seq: seq, tx: tx, now: now}
}

func validatePlan(p *Plan) error {
	if p.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if p.StartDate.IsZero() {
		return apperr.Validation("start_date is required")
	}
	if p.EndDate != nil && clock.Date(*p.EndDate).Before(clock.Date(p.StartDate)) {
		return apperr.Validation("end_date cannot be before start_date")
	}
	return nil
}

func validateProcess(p *Process) error {
	if p.ExecutorID == nil || *p.ExecutorID == uuid.Nil {
		return apperr.Validation("executor_id is required")
	}
	return nil
}

// CreatePlan stores the plan and any processes given with it.
func (s *Service) CreatePlan(ctx context.Context, p *Plan) error {
	if err := validatePlan(p); err != nil {
		return err
	}
	for _, proc := range p.Processes {
		if err := validateProcess(proc); err != nil {
			return err
		}
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		code, err := s.seq.Next(ctx, sequence.TreatmentPlan)
		if err != nil {
			return err
		}
		p.Code = code
		if err := s.plans.Create(ctx, p); err != nil {
			return err
		}
		for i, proc := range p.Processes {
			proc.PlanID = p.ID
			if proc.Sequence == 0 {
				proc.Sequence = (i + 1) * 10
			}
			if err := s.createProcess(ctx, proc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*Plan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Processes, err = s.processes.ListByPlan(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePlan(ctx context.Context, p *Plan) error {
	if err := validatePlan(p); err != nil {
		return err
	}
	return s.plans.Update(ctx, p)
}

// DeletePlan removes the plan together with its processes.
func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.processes.DeleteByPlan(ctx, id); err != nil {
			return err
		}
		return s.plans.Delete(ctx, id)
	})
}

func (s *Service) ListPlans(ctx context.Context, patientID *uuid.UUID, limit, offset int) ([]*Plan, int, error) {
	return s.plans.List(ctx, patientID, limit, offset)
}

func (s *Service) createProcess(ctx context.Context, p *Process) error {
	code, err := s.seq.Next(ctx, sequence.TreatmentProcess)
	if err != nil {
		return err
	}
	p.Code = code
	p.State = ProcessPending
	return s.processes.Create(ctx, p)
}

func (s *Service) AddProcess(ctx context.Context, p *Process) error {
	if err := validateProcess(p); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.plans.GetByID(ctx, p.PlanID); err != nil {
			return err
		}
		return s.createProcess(ctx, p)
	})
}

func (s *Service) GetProcess(ctx context.Context, id uuid.UUID) (*Process, error) {
	return s.processes.GetByID(ctx, id)
}

// UpdateProcess edits order, executor and prescription. State moves only
// through Apply.
func (s *Service) UpdateProcess(ctx context.Context, p *Process) error {
	if err := validateProcess(p); err != nil {
		return err
	}
	current, err := s.processes.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Code = current.Code
	p.PlanID = current.PlanID
	p.State = current.State
	if p.ExecutionTime == nil {
		p.ExecutionTime = current.ExecutionTime
	}
	return s.processes.Update(ctx, p)
}

func (s *Service) DeleteProcess(ctx context.Context, id uuid.UUID) error {
	return s.processes.Delete(ctx, id)
}

// Apply moves a process through its state machine. Starting a process
// stamps its execution time unless one was already recorded.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, action Action) (*Process, error) {
	var p *Process
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.processes.GetByID(ctx, id); err != nil {
			return err
		}
		next, err := Next(p.State, action)
		if err != nil {
			return err
		}
		p.State = next
		if action == ActionStart && p.ExecutionTime == nil {
			now := s.now()
			p.ExecutionTime = &now
		}
		if err := s.processes.Update(ctx, p); err != nil {
			return err
		}
		if next == ProcessCompleted {
			plan, err := s.plans.GetByID(ctx, p.PlanID)
			if err != nil {
				return err
			}
			return s.activity.RecordActivity(ctx, plan.PatientID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
