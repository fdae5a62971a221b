package pinblock

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// accountField returns "0000" followed by the 12 PAN digits that precede the
// check digit, i.e. characters [len-13, len-1) of the PAN.
func accountField(pan string) (string, error) {
	if !isDigits(pan) {
		return "", fmt.Errorf("%w: pan must be digits only", ErrInvalidPan)
	}
	if len(pan) < minPanLen {
		return "", fmt.Errorf("%w: %d digits, need at least %d", ErrInvalidPan, len(pan), minPanLen)
	}

	return "0000" + pan[len(pan)-13:len(pan)-1], nil
}

// xorHexStrings XORs two equal length hex strings. Result is upper-case hex.
func xorHexStrings(s1, s2 string) (string, error) {
	b1, err := hex.DecodeString(s1)
	if err != nil {
		return "", fmt.Errorf("invalid hex string s1: %w", err)
	}
	b2, err := hex.DecodeString(s2)
	if err != nil {
		return "", fmt.Errorf("invalid hex string s2: %w", err)
	}
	if len(b1) != len(b2) {
		return "", fmt.Errorf("hex strings must have equal length to xor (%d vs %d)", len(b1), len(b2))
	}

	out := make([]byte, len(b1))
	for i := range b1 {
		out[i] = b1[i] ^ b2[i]
	}

	return strings.ToUpper(hex.EncodeToString(out)), nil
}

// randomFill returns n characters drawn from alphabet using crypto/rand.
func randomFill(alphabet string, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", errRandomGeneration, err)
	}

	var sb strings.Builder
	for _, b := range buf {
		sb.WriteByte(alphabet[int(b)%len(alphabet)])
	}

	return sb.String(), nil
}
