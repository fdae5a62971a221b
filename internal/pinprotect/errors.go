package pinprotect

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPinLength is returned for PINs shorter than 4 or longer than 6 digits.
	ErrInvalidPinLength = errors.New("invalid pin length")
	// ErrUnsupportedKeyLength is returned for session key sizes other than 112 and 168 bits.
	ErrUnsupportedKeyLength = errors.New("unsupported session key length")

	errUnknownTransformation = errors.New("unsupported transformation")
	errUnknownBlockEncoding  = errors.New("unsupported block encoding")
	errMalformedDer          = errors.New("malformed der encoded key")
	errNoPublicKey           = errors.New("no rsa public key")
)

// PinEncryptionError wraps any failure of the PIN protection chain other
// than an invalid PIN length.
type PinEncryptionError struct {
	Op  string
	Err error
}

func (e *PinEncryptionError) Error() string {
	return fmt.Sprintf("pin encryption failed (%s): %v", e.Op, e.Err)
}

func (e *PinEncryptionError) Unwrap() error { return e.Err }

func wrapErr(op string, err error) error {
	if err == nil || errors.Is(err, ErrInvalidPinLength) {
		return err
	}
	var pe *PinEncryptionError
	if errors.As(err, &pe) {
		return err
	}

	return &PinEncryptionError{Op: op, Err: err}
}
