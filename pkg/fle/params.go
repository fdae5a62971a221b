package fle

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/andrei-cloud/go_fle/pkg/keywrap"
)

const (
	// IVSize is the AES-CBC IV length in bytes.
	IVSize = 16
	// SymmetricKeySize is the AES-128 key length in bytes.
	SymmetricKeySize = 16
)

// Params are the one-time values protecting a single payload. They must
// never be reused for another exchange.
type Params struct {
	IV           []byte
	Key          []byte
	EncryptedKey []byte
	Digest       keywrap.Digest

	encoding FieldValueEncoding
}

// GenerateParams creates a fresh IV and key and wraps the key under the
// config's public key.
func GenerateParams(cfg *Config) (*Params, error) {
	if cfg == nil || !cfg.CanEncrypt() {
		return nil, &EncryptionError{Op: "generate params", Err: fmt.Errorf("%w: no encryption certificate", ErrConfiguration)}
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, &EncryptionError{Op: "generate iv", Err: err}
	}
	key := make([]byte, SymmetricKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, &EncryptionError{Op: "generate key", Err: err}
	}

	wrapped, err := keywrap.Wrap(cfg.PublicKey(), key, cfg.Digest())
	if err != nil {
		return nil, &EncryptionError{Op: "wrap key", Err: err}
	}

	return &Params{
		IV:           iv,
		Key:          key,
		EncryptedKey: wrapped,
		Digest:       cfg.Digest(),
		encoding:     cfg.Encoding(),
	}, nil
}

// ReconstructParams rebuilds params received from a peer, unwrapping the key
// with the config's decryption key. digestName may omit the hyphen.
func ReconstructParams(ivValue, encryptedKeyValue, digestName string, cfg *Config) (*Params, error) {
	if cfg == nil || !cfg.CanDecrypt() {
		return nil, &DecryptionError{Op: "reconstruct params", Err: fmt.Errorf("%w: no decryption key", ErrConfiguration)}
	}
	if ivValue == "" || encryptedKeyValue == "" {
		return nil, &DecryptionError{Op: "reconstruct params", Err: errMissingParameter}
	}
	if digestName == "" {
		digestName = cfg.Digest().String()
	}

	iv, err := decodeValue(ivValue, cfg.Encoding())
	if err != nil {
		return nil, &DecryptionError{Op: "decode iv", Err: err}
	}
	wrapped, err := decodeValue(encryptedKeyValue, cfg.Encoding())
	if err != nil {
		return nil, &DecryptionError{Op: "decode encrypted key", Err: err}
	}

	key, err := keywrap.UnwrapNamed(cfg.DecryptionKey(), wrapped, digestName)
	if err != nil {
		return nil, &DecryptionError{Op: "unwrap key", Err: err}
	}
	d, _ := keywrap.ParseDigest(digestName) // UnwrapNamed already validated the name.

	return &Params{
		IV:           iv,
		Key:          key,
		EncryptedKey: wrapped,
		Digest:       d,
		encoding:     cfg.Encoding(),
	}, nil
}

// IVValue returns the IV as it is written on the wire.
func (p *Params) IVValue() string { return encodeValue(p.IV, p.encoding) }

// EncryptedKeyValue returns the wrapped key as it is written on the wire.
func (p *Params) EncryptedKeyValue() string { return encodeValue(p.EncryptedKey, p.encoding) }

// DigestValue returns the digest name sent to the peer.
func (p *Params) DigestValue() string { return p.Digest.String() }

func encodeValue(b []byte, enc FieldValueEncoding) string {
	if enc == EncodingBase64 {
		return base64.StdEncoding.EncodeToString(b)
	}

	return hex.EncodeToString(b)
}

func decodeValue(s string, enc FieldValueEncoding) ([]byte, error) {
	if enc == EncodingBase64 {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 value: %w", err)
		}

		return b, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidHex, err)
	}

	return b, nil
}
