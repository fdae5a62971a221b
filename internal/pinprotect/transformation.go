package pinprotect

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/andrei-cloud/go_fle/pkg/cryptoutils"
	pkcs7 "github.com/mergermarket/go-pkcs7"
)

// DefaultTransformation is used when none is configured.
const DefaultTransformation = "DESede/ECB/NoPadding"

// Transformation is a parsed "algorithm/mode/padding" string. Only ECB is
// supported since a PIN block is a single cipher block.
type Transformation struct {
	Algorithm string // DESede or DES.
	Mode      string // ECB.
	Padding   string // NoPadding or PKCS5Padding.
}

// ParseTransformation accepts DESede or DES with ECB and NoPadding or
// PKCS5Padding, case-insensitively.
func ParseTransformation(s string) (Transformation, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultTransformation
	}
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Transformation{}, fmt.Errorf("%w: %q", errUnknownTransformation, s)
	}

	var t Transformation
	switch strings.ToUpper(parts[0]) {
	case "DESEDE", "TRIPLEDES", "TDEA":
		t.Algorithm = "DESede"
	case "DES":
		t.Algorithm = "DES"
	default:
		return Transformation{}, fmt.Errorf("%w: algorithm %q", errUnknownTransformation, parts[0])
	}
	if !strings.EqualFold(parts[1], "ECB") {
		return Transformation{}, fmt.Errorf("%w: mode %q", errUnknownTransformation, parts[1])
	}
	t.Mode = "ECB"
	switch strings.ToUpper(parts[2]) {
	case "NOPADDING":
		t.Padding = "NoPadding"
	case "PKCS5PADDING", "PKCS7PADDING":
		t.Padding = "PKCS5Padding"
	default:
		return Transformation{}, fmt.Errorf("%w: padding %q", errUnknownTransformation, parts[2])
	}

	return t, nil
}

func (t Transformation) String() string {
	return t.Algorithm + "/" + t.Mode + "/" + t.Padding
}

// cipherKey returns the key bytes the algorithm uses. DES takes the first
// eight bytes of a longer session key.
func (t Transformation) cipherKey(key []byte) []byte {
	if t.Algorithm == "DES" && len(key) > cryptoutils.KEY_LENGTH_SINGLE {
		return key[:cryptoutils.KEY_LENGTH_SINGLE]
	}

	return key
}

// Encrypt runs the transformation over data.
func (t Transformation) Encrypt(key, data []byte) ([]byte, error) {
	block, err := cryptoutils.NewDESCipher(t.cipherKey(key))
	if err != nil {
		return nil, err
	}
	if t.Padding == "PKCS5Padding" {
		if data, err = pkcs7.Pad(data, block.BlockSize()); err != nil {
			return nil, err
		}
	}
	if len(data)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("input length %d is not a multiple of %d", len(data), block.BlockSize())
	}

	out := make([]byte, len(data))
	cryptoutils.NewECBEncrypter(block).CryptBlocks(out, data)

	return out, nil
}

// Decrypt reverses Encrypt.
func (t Transformation) Decrypt(key, data []byte) ([]byte, error) {
	block, err := cryptoutils.NewDESCipher(t.cipherKey(key))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of %d", len(data), block.BlockSize())
	}

	out := make([]byte, len(data))
	cryptoutils.NewECBDecrypter(block).CryptBlocks(out, data)
	if t.Padding == "PKCS5Padding" {
		return cryptoutils.Unpad(out, block.BlockSize())
	}

	return out, nil
}

// BlockEncoding selects how the encrypted block is written.
type BlockEncoding int

const (
	BlockHex BlockEncoding = iota
	BlockBase64
)

// ParseBlockEncoding accepts "hex" (default) or "base64".
func ParseBlockEncoding(s string) (BlockEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hex":
		return BlockHex, nil
	case "base64":
		return BlockBase64, nil
	default:
		return BlockHex, fmt.Errorf("%w: %q", errUnknownBlockEncoding, s)
	}
}

func (e BlockEncoding) String() string {
	if e == BlockBase64 {
		return "base64"
	}

	return "hex"
}

func (e BlockEncoding) encode(b []byte) string {
	if e == BlockBase64 {
		return base64.StdEncoding.EncodeToString(b)
	}

	return strings.ToUpper(hex.EncodeToString(b))
}

func (e BlockEncoding) decode(s string) ([]byte, error) {
	if e == BlockBase64 {
		return base64.StdEncoding.DecodeString(s)
	}

	return hex.DecodeString(s)
}
