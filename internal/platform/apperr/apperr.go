// Package apperr classifies domain failures so handlers can map them to HTTP
// responses without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Kind int

const (
	// KindValidation means input or a precondition was rejected.
	KindValidation Kind = iota + 1
	// KindUser means the operation is not permitted in the record's current state.
	KindUser
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUser:
		return "user"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func User(format string, args ...interface{}) error {
	return &Error{Kind: KindUser, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsUser(err error) bool       { return KindOf(err) == KindUser }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }

// HTTP converts err into an echo.HTTPError. Unclassified errors become 500
// without leaking their message.
func HTTP(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var e *Error
	if !errors.As(err, &e) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	switch e.Kind {
	case KindValidation:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, e.Msg)
	case KindUser:
		return echo.NewHTTPError(http.StatusConflict, e.Msg)
	case KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, e.Msg)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, e.Msg)
	}
}
