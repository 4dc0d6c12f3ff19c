package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicops/clinic/internal/platform/apperr"
)

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey{}, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestNoTx_PropagatesError(t *testing.T) {
	want := errors.New("boom")
	called := false
	err := NoTx{}.InTx(context.Background(), func(ctx context.Context) error {
		called = true
		return want
	})
	if !called {
		t.Fatal("expected fn to be called")
	}
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestMapError_NoRows(t *testing.T) {
	err := MapError(fmt.Errorf("scan: %w", pgx.ErrNoRows), "patient")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "patient not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestMapError_UniqueViolation(t *testing.T) {
	err := MapError(&pgconn.PgError{Code: "23505", ConstraintName: "insurance_policy_number_key"}, "insurance policy")
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMapError_ForeignKeyViolation(t *testing.T) {
	err := MapError(&pgconn.PgError{Code: "23503", ConstraintName: "appointment_patient_id_fkey"}, "appointment")
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMapError_Passthrough(t *testing.T) {
	if MapError(nil, "x") != nil {
		t.Error("expected nil for nil error")
	}
	orig := errors.New("connection reset")
	if got := MapError(orig, "x"); got != orig {
		t.Errorf("expected original error, got %v", got)
	}
}
