// Package sequence issues human-readable record codes such as APT000042.
// Each code has an independent counter.
package sequence

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicops/clinic/internal/platform/db"
)

type Code string

const (
	Appointment      Code = "APT"
	TreatmentPlan    Code = "TP"
	TreatmentProcess Code = "TPR"
	Prescription     Code = "RX"
	PurchaseOrder    Code = "PO"
	Invoice          Code = "INV"
	InsuranceClaim   Code = "CLM"
	Staff            Code = "STF"
	StaffType        Code = "STT"
	Feedback         Code = "FB"
	Complaint        Code = "CMP"
)

const width = 6

// Generator returns the next code for a sequence.
type Generator interface {
	Next(ctx context.Context, code Code) (string, error)
}

func Format(code Code, n int64) string {
	return fmt.Sprintf("%s%0*d", code, width, n)
}

type PGGenerator struct {
	pool *pgxpool.Pool
}

func NewPGGenerator(pool *pgxpool.Pool) *PGGenerator {
	return &PGGenerator{pool: pool}
}

// Next increments the counter row in place, so concurrent callers never
// receive the same number. Joins the caller's transaction when present.
func (g *PGGenerator) Next(ctx context.Context, code Code) (string, error) {
	var n int64
	err := db.Conn(ctx, g.pool).QueryRow(ctx, `
		INSERT INTO sequence_counter (code, last_value) VALUES ($1, 1)
		ON CONFLICT (code) DO UPDATE SET last_value = sequence_counter.last_value + 1
		RETURNING last_value`, string(code)).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("next %s: %w", code, err)
	}
	return Format(code, n), nil
}

// Memory is a process-local Generator.
type Memory struct {
	mu       sync.Mutex
	counters map[Code]int64
}

func NewMemory() *Memory {
	return &Memory{counters: make(map[Code]int64)}
}

func (m *Memory) Next(_ context.Context, code Code) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[code]++
	return Format(code, m.counters[code]), nil
}
