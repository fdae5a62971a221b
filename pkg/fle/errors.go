package fle

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when certificate or key material is missing
	// or cannot be read. A config in this state cannot encrypt or decrypt.
	ErrConfiguration = errors.New("encryption configuration error")
	// ErrTransportCorrelationMissing is returned when the inbound leg finds no
	// params for its exchange. The payload is never treated as clear text then.
	ErrTransportCorrelationMissing = errors.New("no encryption params correlated with this exchange")

	errInvalidHex       = errors.New("invalid hex value")
	errMissingParameter = errors.New("missing encryption parameter")
	errMalformedPayload = errors.New("malformed encrypted payload")
)

// EncryptionError wraps failures on the encrypting side.
type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	return fmt.Sprintf("encryption failed (%s): %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

// DecryptionError wraps failures on the decrypting side.
type DecryptionError struct {
	Op  string
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed (%s): %v", e.Op, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }
