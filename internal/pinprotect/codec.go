// Package pinprotect builds ISO-0 PIN blocks and protects them for transport:
// the block is encrypted under a fresh TDEA session key, and the session key
// is DER wrapped and encrypted under the issuer's RSA key.
package pinprotect

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/andrei-cloud/go_fle/pkg/cryptoutils"
	"github.com/andrei-cloud/go_fle/pkg/pinblock"
)

const (
	minPinLen = 4
	maxPinLen = 6

	// KeyBits112 selects a double length session key (K1|K2).
	KeyBits112 = 112
	// KeyBits168 selects a triple length session key (K1|K2|K3).
	KeyBits168 = 168

	derPrefix112 = "30240410"
	derPrefix168 = "302C0418"
	// Fixed IV element appended to every encoded key.
	derIVSuffix = "0410" + "99999999999999999999999999999999"
)

// BuildPinBlock returns the ISO 9564-1 Format 0 block for pin and pan as 16
// upper-case hex characters. pin must be 4 to 6 digits, pan at least 13.
func BuildPinBlock(pin, pan string) (string, error) {
	if len(pin) < minPinLen || len(pin) > maxPinLen {
		return "", fmt.Errorf("%w: %d digits, want %d-%d", ErrInvalidPinLength, len(pin), minPinLen, maxPinLen)
	}

	block, err := pinblock.Encode(pin, pan, pinblock.ISO0)
	if err != nil {
		return "", wrapErr("build pin block", err)
	}

	return block, nil
}

// SessionKeyBytes returns the key length in bytes for bits.
func SessionKeyBytes(bits int) (int, error) {
	switch bits {
	case KeyBits112:
		return cryptoutils.KEY_LENGTH_DOUBLE, nil
	case KeyBits168:
		return cryptoutils.KEY_LENGTH_TRIPLE, nil
	default:
		return 0, fmt.Errorf("%w: %d bits", ErrUnsupportedKeyLength, bits)
	}
}

// GenerateSessionKey returns a fresh TDEA key with DES parity as upper-case hex.
func GenerateSessionKey(bits int) (string, error) {
	n, err := SessionKeyBytes(bits)
	if err != nil {
		return "", wrapErr("generate session key", err)
	}
	key, err := cryptoutils.GenerateRandomKey(n)
	if err != nil {
		return "", wrapErr("generate session key", err)
	}

	return cryptoutils.Raw2Str(key), nil
}

// DerEncode wraps a session key in the fixed DER template for its size. For
// 112 bits the first 32 hex characters of keyHex are used.
func DerEncode(bits int, keyHex string) (string, error) {
	keyHex = strings.ToUpper(keyHex)
	if _, err := hex.DecodeString(keyHex); err != nil {
		return "", wrapErr("der encode", fmt.Errorf("%w: key is not hex", errMalformedDer))
	}

	switch bits {
	case KeyBits112:
		if len(keyHex) < 2*cryptoutils.KEY_LENGTH_DOUBLE {
			return "", wrapErr("der encode", fmt.Errorf("%w: %d hex chars for 112 bits", ErrUnsupportedKeyLength, len(keyHex)))
		}

		return derPrefix112 + keyHex[:2*cryptoutils.KEY_LENGTH_DOUBLE] + derIVSuffix, nil
	case KeyBits168:
		if len(keyHex) != 2*cryptoutils.KEY_LENGTH_TRIPLE {
			return "", wrapErr("der encode", fmt.Errorf("%w: %d hex chars for 168 bits", ErrUnsupportedKeyLength, len(keyHex)))
		}

		return derPrefix168 + keyHex + derIVSuffix, nil
	default:
		return "", wrapErr("der encode", fmt.Errorf("%w: %d bits", ErrUnsupportedKeyLength, bits))
	}
}

// DerDecode reverses DerEncode and returns the key size and session key.
// Any other template is rejected.
func DerDecode(der string) (int, string, error) {
	der = strings.ToUpper(der)
	if !strings.HasSuffix(der, derIVSuffix) {
		return 0, "", wrapErr("der decode", fmt.Errorf("%w: missing iv element", errMalformedDer))
	}
	body := strings.TrimSuffix(der, derIVSuffix)

	switch {
	case strings.HasPrefix(body, derPrefix112) && len(body) == len(derPrefix112)+2*cryptoutils.KEY_LENGTH_DOUBLE:
		return KeyBits112, strings.TrimPrefix(body, derPrefix112), nil
	case strings.HasPrefix(body, derPrefix168) && len(body) == len(derPrefix168)+2*cryptoutils.KEY_LENGTH_TRIPLE:
		return KeyBits168, strings.TrimPrefix(body, derPrefix168), nil
	default:
		return 0, "", wrapErr("der decode", fmt.Errorf("%w: unknown template", errMalformedDer))
	}
}
