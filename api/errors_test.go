package api

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorUnwrapsToSentinel(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want error
	}{
		{ErrCodeInvalidArgument, ErrInvalidArgument},
		{ErrCodeResourceExhausted, ErrResourceExhausted},
		{ErrCodeClosed, ErrClosed},
		{ErrCodeNotSupported, ErrNotSupported},
		{ErrCodeNotFound, ErrNotFound},
		{ErrCodeInternal, ErrInternal},
	}
	for _, c := range cases {
		err := fmt.Errorf("wrapped: %w", NewError(c.code, "boom"))
		if !errors.Is(err, c.want) {
			t.Errorf("%v does not unwrap to %v", c.code, c.want)
		}
	}
	if NewError(ErrCodeOK, "fine").Unwrap() != nil {
		t.Error("ok code unwraps to a sentinel")
	}
}

func TestErrorContext(t *testing.T) {
	e := NewError(ErrCodeInvalidArgument, "bad id").WithContext("env_id", 9)
	if got := e.Error(); got != "bad id (context: map[env_id:9])" {
		t.Errorf("message %q", got)
	}
	if ErrCodeResourceExhausted.String() != "resource_exhausted" {
		t.Errorf("code string %q", ErrCodeResourceExhausted.String())
	}
}
