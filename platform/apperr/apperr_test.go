package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusByKind(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), http.StatusNotFound},
		{BadRequest("x"), http.StatusBadRequest},
		{Validation("x"), http.StatusBadRequest},
		{Conflict("x"), http.StatusConflict},
		{Unauthorized("x"), http.StatusUnauthorized},
		{Forbidden("x"), http.StatusForbidden},
		{Internal("x"), http.StatusInternalServerError},
		{New(KindUnknown, "x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("kind %s: expected %d, got %d", tt.err.Kind, tt.want, got)
		}
	}
}

func TestIsFindsWrappedErrors(t *testing.T) {
	base := Conflict("Employee already has an approved appointment at this time")
	wrapped := fmt.Errorf("create appointment: %w", base)

	if !Is(wrapped, KindConflict) {
		t.Fatalf("expected wrapped error to be a conflict")
	}
	if Is(wrapped, KindNotFound) {
		t.Fatalf("did not expect wrapped error to be not found")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected plain error to have unknown kind")
	}
}

func TestErrorStringIncludesOpAndCause(t *testing.T) {
	err := Wrap(KindInternal, "list failed", errors.New("boom")).WithOp("appointments.list")
	if got := err.Error(); got != "appointments.list: list failed: boom" {
		t.Fatalf("unexpected error string %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("expected Unwrap to expose the cause")
	}
}
