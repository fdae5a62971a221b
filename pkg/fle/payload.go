package fle

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"

	"github.com/andrei-cloud/go_fle/pkg/cryptoutils"
	pkcs7 "github.com/mergermarket/go-pkcs7"
)

// EncryptPayload encrypts the whole JSON payload with AES-CBC/PKCS#7 under p
// and returns a JSON object holding the encrypted value. In body mode the
// params are embedded next to it.
func EncryptPayload(payload []byte, cfg *Config, p *Params) ([]byte, error) {
	if p == nil {
		return nil, &EncryptionError{Op: "encrypt payload", Err: errMissingParameter}
	}
	ct, err := aesCBCEncrypt(p.Key, p.IV, payload)
	if err != nil {
		return nil, &EncryptionError{Op: "encrypt payload", Err: err}
	}

	f := cfg.FieldNames()
	out := map[string]string{
		f.EncryptedValue: encodeValue(ct, cfg.Encoding()),
	}
	if cfg.Transport() == UseBody {
		out[f.IV] = p.IVValue()
		out[f.EncryptedKey] = p.EncryptedKeyValue()
		out[f.OaepDigestAlgorithm] = p.DigestValue()
		if cfg.Fingerprint() != "" {
			out[f.PublicKeyFingerprint] = cfg.Fingerprint()
		}
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, &EncryptionError{Op: "marshal payload", Err: err}
	}

	return b, nil
}

// DecryptPayload reverses EncryptPayload. When p is nil the params are read
// from the payload fields, which requires a decryption key. A payload without
// an encrypted value field is returned unchanged.
func DecryptPayload(payload []byte, cfg *Config, p *Params) ([]byte, error) {
	fields, ok := encryptedFields(payload)
	if !ok {
		return payload, nil
	}
	f := cfg.FieldNames()
	raw, ok := fields[f.EncryptedValue]
	if !ok {
		return payload, nil
	}

	if p == nil {
		var err error
		p, err = paramsFromFields(fields, cfg)
		if err != nil {
			return nil, err
		}
	}

	ct, err := decodeValue(raw, cfg.Encoding())
	if err != nil {
		return nil, &DecryptionError{Op: "decode encrypted value", Err: err}
	}
	pt, err := aesCBCDecrypt(p.Key, p.IV, ct)
	if err != nil {
		return nil, &DecryptionError{Op: "decrypt payload", Err: err}
	}

	return pt, nil
}

// IsEncrypted reports whether payload carries the encrypted value field.
func IsEncrypted(payload []byte, cfg *Config) bool {
	fields, ok := encryptedFields(payload)
	if !ok {
		return false
	}
	_, ok = fields[cfg.FieldNames().EncryptedValue]

	return ok
}

// ParamsFromPayload extracts and unwraps params embedded in a body mode payload.
func ParamsFromPayload(payload []byte, cfg *Config) (*Params, error) {
	fields, ok := encryptedFields(payload)
	if !ok {
		return nil, &DecryptionError{Op: "read payload params", Err: errMalformedPayload}
	}

	return paramsFromFields(fields, cfg)
}

func paramsFromFields(fields map[string]string, cfg *Config) (*Params, error) {
	f := cfg.FieldNames()

	return ReconstructParams(fields[f.IV], fields[f.EncryptedKey], fields[f.OaepDigestAlgorithm], cfg)
}

// encryptedFields decodes the top level string fields of a JSON object.
func encryptedFields(payload []byte) (map[string]string, bool) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
		}
	}

	return out, true
}

func aesCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv length %d, want %d", len(iv), block.BlockSize())
	}
	padded, err := pkcs7.Pad(plaintext, block.BlockSize())
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return out, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("iv length %d, want %d", len(iv), block.BlockSize())
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", errMalformedPayload, len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	return cryptoutils.Unpad(out, block.BlockSize())
}
