package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("pay invoice: %w", Validation("insufficient stock for %s", "Paracetamol"))
	if !IsValidation(err) {
		t.Fatal("expected wrapped validation error to be detected")
	}
	if IsUser(err) || IsNotFound(err) {
		t.Error("expected only validation kind")
	}
	if err.Error() != "pay invoice: insufficient stock for Paracetamol" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestHTTP_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{Validation("bad"), http.StatusUnprocessableEntity},
		{User("not allowed"), http.StatusConflict},
		{NotFound("missing"), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
		{echo.NewHTTPError(http.StatusBadRequest, "invalid id"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		he := HTTP(tt.err)
		if he.Code != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, he.Code)
		}
	}
}

func TestHTTP_HidesInternalMessage(t *testing.T) {
	he := HTTP(errors.New("pq: connection refused"))
	if he.Message != "internal server error" {
		t.Errorf("expected generic message, got %v", he.Message)
	}
}
