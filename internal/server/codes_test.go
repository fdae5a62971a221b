package server

import (
	"errors"
	"fmt"
	"testing"

	"github.com/andrei-cloud/go_fle/internal/errorcodes"
	"github.com/andrei-cloud/go_fle/internal/message"
	"github.com/andrei-cloud/go_fle/internal/pinprotect"
	"github.com/andrei-cloud/go_fle/pkg/pinblock"
	"github.com/stretchr/testify/assert"
)

func TestIncrementCode(t *testing.T) {
	t.Parallel()

	tests := map[string]string{"PE": "PF", "NC": "ND", "ZZ": "ZA", "A": "A"}
	for in, want := range tests {
		assert.Equal(t, want, incrementCode(in), in)
	}
}

func TestResultCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want errorcodes.ServiceError
	}{
		{err: fmt.Errorf("wrapped: %w", errorcodes.Err15), want: errorcodes.Err15},
		{err: fmt.Errorf("x: %w", pinprotect.ErrInvalidPinLength), want: errorcodes.Err24},
		{err: &pinprotect.PinEncryptionError{Op: "build", Err: pinblock.ErrInvalidPinLength}, want: errorcodes.Err24},
		{err: &pinprotect.PinEncryptionError{Op: "build", Err: pinblock.ErrInvalidPan}, want: errorcodes.Err22},
		{err: &pinprotect.PinEncryptionError{Op: "build", Err: pinblock.ErrInvalidPin}, want: errorcodes.Err15},
		{err: fmt.Errorf("pin: %w", message.ErrMalformed), want: errorcodes.Err15},
		{err: errors.New("rsa: message too long"), want: errorcodes.Err42},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resultCode(tt.err), tt.err.Error())
	}
}
