// Package cryptoutils provides DES/TDEA helpers for PIN protection: ECB mode,
// key parity, key generation and check values.
package cryptoutils

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	pkcs7 "github.com/mergermarket/go-pkcs7"
)

const (
	KEY_LENGTH_SINGLE = 8
	KEY_LENGTH_DOUBLE = 16
	KEY_LENGTH_TRIPLE = 24
	XOR_BIT_FLIP      = 1
)

var (
	// ErrInvalidPadding is returned when decrypted data does not end in valid
	// PKCS#7 padding, typically after decrypting under the wrong key.
	ErrInvalidPadding = errors.New("invalid pkcs7 padding")

	errInvalidKeyLength = errors.New("invalid des key length")
)

// ecb wraps a cipher.Block to provide ECB mode.
type ecb struct{ b cipher.Block }

type ecbEncrypter ecb

type ecbDecrypter ecb

// Raw2Str converts raw binary data to an uppercase hex string.
func Raw2Str(raw []byte) string {
	return strings.ToUpper(hex.EncodeToString(raw))
}

// B2Raw decodes a hex string held in a byte slice.
func B2Raw(b []byte) ([]byte, error) {
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return nil, fmt.Errorf("b2raw: %w", err)
	}

	return raw, nil
}

// NewECBEncrypter returns a cipher.BlockMode for ECB encryption.
func NewECBEncrypter(b cipher.Block) cipher.BlockMode {
	return (*ecbEncrypter)(&ecb{b: b})
}

func (x *ecbEncrypter) BlockSize() int { return x.b.BlockSize() }

func (x *ecbEncrypter) CryptBlocks(dst, src []byte) {
	if len(src)%x.BlockSize() != 0 {
		panic(fmt.Sprintf(
			"cryptoutils: input length %d not a multiple of block size %d",
			len(src),
			x.BlockSize(),
		))
	}
	for len(src) > 0 {
		x.b.Encrypt(dst[:x.BlockSize()], src[:x.BlockSize()])
		src = src[x.BlockSize():]
		dst = dst[x.BlockSize():]
	}
}

// NewECBDecrypter returns a cipher.BlockMode for ECB decryption.
func NewECBDecrypter(b cipher.Block) cipher.BlockMode {
	return (*ecbDecrypter)(&ecb{b: b})
}

func (x *ecbDecrypter) BlockSize() int { return x.b.BlockSize() }

func (x *ecbDecrypter) CryptBlocks(dst, src []byte) {
	if len(src)%x.BlockSize() != 0 {
		panic(fmt.Sprintf(
			"cryptoutils: input length %d not a multiple of block size %d",
			len(src),
			x.BlockSize(),
		))
	}
	for len(src) > 0 {
		x.b.Decrypt(dst[:x.BlockSize()], src[:x.BlockSize()])
		src = src[x.BlockSize():]
		dst = dst[x.BlockSize():]
	}
}

// ExtendDoubleToTripleKey extends a 16-byte key K1K2 to the 24-byte K1K2K1.
func ExtendDoubleToTripleKey(doubleKey []byte) ([]byte, error) {
	if len(doubleKey) != KEY_LENGTH_DOUBLE {
		return nil, fmt.Errorf(
			"%w: double-to-triple extension needs %d bytes, got %d",
			errInvalidKeyLength,
			KEY_LENGTH_DOUBLE,
			len(doubleKey),
		)
	}
	tripleKey := make([]byte, KEY_LENGTH_TRIPLE)
	copy(tripleKey, doubleKey)
	copy(tripleKey[KEY_LENGTH_DOUBLE:], doubleKey[:KEY_LENGTH_SINGLE])

	return tripleKey, nil
}

// NewDESCipher returns single DES for 8-byte keys and TDEA for 16 or
// 24-byte keys.
func NewDESCipher(key []byte) (cipher.Block, error) {
	switch len(key) {
	case KEY_LENGTH_SINGLE:
		return des.NewCipher(key)
	case KEY_LENGTH_DOUBLE:
		full, err := ExtendDoubleToTripleKey(key)
		if err != nil {
			return nil, err
		}

		return des.NewTripleDESCipher(full)
	case KEY_LENGTH_TRIPLE:
		return des.NewTripleDESCipher(key)
	default:
		return nil, fmt.Errorf("%w: %d bytes", errInvalidKeyLength, len(key))
	}
}

// KeyCV returns the first kcvLen hex characters of the key encrypted over a
// zero block.
func KeyCV(keyHex []byte, kcvLen int) ([]byte, error) {
	rawKey, err := B2Raw(keyHex)
	if err != nil {
		return nil, fmt.Errorf("keycv: %w", err)
	}
	block, err := NewDESCipher(rawKey)
	if err != nil {
		return nil, fmt.Errorf("keycv: %w", err)
	}

	zero := make([]byte, block.BlockSize())
	dst := make([]byte, len(zero))
	NewECBEncrypter(block).CryptBlocks(dst, zero)
	hv := []byte(Raw2Str(dst))
	if kcvLen > len(hv) {
		return nil, fmt.Errorf("keycv: kcv_length %d too large", kcvLen)
	}

	return hv[:kcvLen], nil
}

// ParityOf returns 0 for even number of set bits, -1 for odd.
func ParityOf(x int) int {
	parity := 0
	for x != 0 {
		parity = ^parity
		x &= (x - 1)
	}

	return parity
}

// CheckKeyParity returns true if every byte in key has ODD parity.
func CheckKeyParity(key []byte) bool {
	for _, b := range key {
		if ParityOf(int(b)) != -1 {
			return false
		}
	}

	return true
}

// FixKeyParity sets each byte to have ODD parity (as required by DES).
func FixKeyParity(key []byte) []byte {
	res := make([]byte, len(key))
	for i, b := range key {
		if ParityOf(int(b)) == -1 {
			res[i] = b
		} else {
			res[i] = b ^ XOR_BIT_FLIP
		}
	}

	return res
}

// GenerateRandomKey returns a random DES key of 8, 16 or 24 bytes with odd
// parity on every byte.
func GenerateRandomKey(length int) ([]byte, error) {
	if length != KEY_LENGTH_SINGLE && length != KEY_LENGTH_DOUBLE && length != KEY_LENGTH_TRIPLE {
		return nil, fmt.Errorf("%w: must be 8, 16, or 24 bytes", errInvalidKeyLength)
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	return FixKeyParity(key), nil
}

// Unpad strips PKCS#7 padding from data after checking it: the last byte n
// must be between 1 and blockSize and the last n bytes must all equal n.
func Unpad(data []byte, blockSize int) ([]byte, error) {
	if blockSize <= 0 || len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPadding, len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPadding
		}
	}

	return pkcs7.Unpad(data, blockSize)
}
