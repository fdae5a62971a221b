package message

import (
	"fmt"
	"strconv"
)

// NewPE parses a PE Encrypt PIN command: 2-digit PIN length, PIN, 2-digit
// PAN length, PAN.
func NewPE(data []byte) (*BaseMessage, error) {
	m := NewBaseMessage("PE", "Encrypt PIN for transport")

	pin, data, err := lengthPrefixed(data)
	if err != nil {
		return nil, fmt.Errorf("pin: %w", err)
	}
	m.SetSensitive("PIN", pin)

	pan, data, err := lengthPrefixed(data)
	if err != nil {
		return nil, fmt.Errorf("pan: %w", err)
	}
	m.SetSensitive("PAN", pan)

	if len(data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(data))
	}

	return m, nil
}

// NewNC parses an NC Diagnostics command, which carries no fields.
func NewNC(_ []byte) (*BaseMessage, error) {
	return NewBaseMessage("NC", "Diagnostics"), nil
}

// lengthPrefixed splits a field led by its 2-digit decimal length.
func lengthPrefixed(b []byte) ([]byte, []byte, error) {
	if len(b) < 2 {
		return nil, nil, fmt.Errorf("%w: missing length", ErrMalformed)
	}
	n, err := strconv.Atoi(string(b[:2]))
	if err != nil || n < 0 {
		return nil, nil, fmt.Errorf("%w: length %q", ErrMalformed, b[:2])
	}
	if len(b) < 2+n {
		return nil, nil, fmt.Errorf("%w: field shorter than %d", ErrMalformed, n)
	}

	return b[2 : 2+n], b[2+n:], nil
}
