package pinblock

import (
	"fmt"
	"strconv"
	"strings"
)

// decodePinField validates a clear PIN field and returns the PIN. fill lists
// the characters allowed after the PIN.
func decodePinField(field string, prefix byte, fill, name string) (string, error) {
	if field[0] != prefix {
		return "", fmt.Errorf(
			"%w: %s pin field has prefix %q, expected %q",
			ErrInvalidPinBlock,
			name,
			field[0],
			prefix,
		)
	}

	pinLen, err := strconv.ParseInt(string(field[1]), 16, 64)
	if err != nil || pinLen < minPinLen || pinLen > maxPinLen {
		return "", fmt.Errorf("%w: %s pin field has invalid pin length", ErrInvalidPinBlock, name)
	}

	end := 2 + int(pinLen)
	pin := field[2:end]
	if !isDigits(pin) {
		return "", fmt.Errorf("%w: %s pin field holds non-numeric pin", ErrInvalidPinBlock, name)
	}

	for _, r := range field[end:] {
		if !strings.ContainsRune(fill, r) {
			return "", fmt.Errorf("%w: %s pin field has invalid fill %q", ErrInvalidPinBlock, name, r)
		}
	}

	return pin, nil
}
