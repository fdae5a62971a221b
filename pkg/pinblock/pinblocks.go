// Package pinblock encodes and decodes ISO 9564-1 PIN blocks.
package pinblock

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Format identifies a PIN block layout.
type Format int

// Supported PIN block formats.
const (
	ISO0 Format = iota // ISO 9564-1 Format 0, PIN field XOR PAN field, 'F' fill.
	ISO1               // ISO 9564-1 Format 1, random fill, no PAN.
	ISO3               // ISO 9564-1 Format 3, PIN field XOR PAN field, random A-F fill.
)

const (
	blockHexLen = 16
	minPinLen   = 4
	maxPinLen   = 12
	minPanLen   = 13
)

var (
	ErrInvalidPinLength = errors.New("invalid pin length")
	ErrInvalidPin       = errors.New("pin contains non-digit characters")
	ErrInvalidPan       = errors.New("invalid pan")
	ErrInvalidPinBlock  = errors.New("invalid pin block")
	ErrUnknownFormat    = errors.New("unsupported pin block format")

	errRandomGeneration = errors.New("failed to generate random fill")
)

func (f Format) String() string {
	switch f {
	case ISO0:
		return "ISO0"
	case ISO1:
		return "ISO1"
	case ISO3:
		return "ISO3"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat accepts "ISO0", "iso-0", "0" and the like.
func ParseFormat(s string) (Format, error) {
	n := strings.ToUpper(strings.TrimSpace(s))
	n = strings.TrimPrefix(strings.ReplaceAll(n, "-", ""), "ISO")
	switch n {
	case "0":
		return ISO0, nil
	case "1":
		return ISO1, nil
	case "3":
		return ISO3, nil
	default:
		return ISO0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Encode builds a PIN block for pin (4-12 digits). pan is ignored by ISO1.
// The block is returned as 16 upper-case hex characters.
func Encode(pin, pan string, format Format) (string, error) {
	if len(pin) < minPinLen || len(pin) > maxPinLen {
		return "", fmt.Errorf("%w: %d digits", ErrInvalidPinLength, len(pin))
	}
	if !isDigits(pin) {
		return "", ErrInvalidPin
	}

	switch format {
	case ISO0:
		return encodeISO0(pin, pan)
	case ISO1:
		return encodeISO1(pin)
	case ISO3:
		return encodeISO3(pin, pan)
	default:
		return "", ErrUnknownFormat
	}
}

// Decode extracts the clear PIN from a PIN block.
func Decode(block, pan string, format Format) (string, error) {
	if len(block) != blockHexLen {
		return "", fmt.Errorf("%w: length %d", ErrInvalidPinBlock, len(block))
	}
	block = strings.ToUpper(block)
	if _, err := hex.DecodeString(block); err != nil {
		return "", fmt.Errorf("%w: not hex", ErrInvalidPinBlock)
	}

	switch format {
	case ISO0:
		return decodeISO0(block, pan)
	case ISO1:
		return decodeISO1(block)
	case ISO3:
		return decodeISO3(block, pan)
	default:
		return "", ErrUnknownFormat
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
