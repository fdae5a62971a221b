package keywrap

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
)

var (
	errNilPublicKey  = errors.New("rsa public key is nil")
	errNilPrivateKey = errors.New("rsa private key is nil")
	errEmptyKey      = errors.New("key material is empty")
)

// WrapError reports a failure to wrap a key.
type WrapError struct {
	Digest Digest
	Err    error
}

func (e *WrapError) Error() string {
	return fmt.Sprintf("failed to wrap secret key (%s): %v", e.Digest, e.Err)
}

func (e *WrapError) Unwrap() error { return e.Err }

// UnwrapError reports a failure to unwrap a key.
type UnwrapError struct {
	Digest Digest
	Err    error
}

func (e *UnwrapError) Error() string {
	return fmt.Sprintf("failed to unwrap secret key (%s): %v", e.Digest, e.Err)
}

func (e *UnwrapError) Unwrap() error { return e.Err }

// Wrap encrypts key under pub. OAEP uses d for both the label hash and MGF1
// with an empty label; None selects PKCS#1 v1.5.
func Wrap(pub *rsa.PublicKey, key []byte, d Digest) ([]byte, error) {
	if pub == nil {
		return nil, &WrapError{Digest: d, Err: errNilPublicKey}
	}
	if len(key) == 0 {
		return nil, &WrapError{Digest: d, Err: errEmptyKey}
	}

	var (
		out []byte
		err error
	)
	if d.IsOAEP() {
		h := d.hash()
		if !h.Available() {
			return nil, &WrapError{Digest: d, Err: errUnknownDigest}
		}
		out, err = rsa.EncryptOAEP(h.New(), rand.Reader, pub, key, nil)
	} else {
		out, err = rsa.EncryptPKCS1v15(rand.Reader, pub, key)
	}
	if err != nil {
		return nil, &WrapError{Digest: d, Err: err}
	}

	return out, nil
}

// Unwrap decrypts a key previously produced by Wrap with the same digest.
func Unwrap(priv *rsa.PrivateKey, wrapped []byte, d Digest) ([]byte, error) {
	if priv == nil {
		return nil, &UnwrapError{Digest: d, Err: errNilPrivateKey}
	}
	if len(wrapped) == 0 {
		return nil, &UnwrapError{Digest: d, Err: errEmptyKey}
	}

	var (
		out []byte
		err error
	)
	if d.IsOAEP() {
		h := d.hash()
		if !h.Available() {
			return nil, &UnwrapError{Digest: d, Err: errUnknownDigest}
		}
		out, err = rsa.DecryptOAEP(h.New(), nil, priv, wrapped, nil)
	} else {
		out, err = rsa.DecryptPKCS1v15(nil, priv, wrapped)
	}
	if err != nil {
		return nil, &UnwrapError{Digest: d, Err: err}
	}

	return out, nil
}

// UnwrapNamed is Unwrap with the digest given by name as it arrives on the wire.
// Names without a hyphen ("SHA256") are accepted.
func UnwrapNamed(priv *rsa.PrivateKey, wrapped []byte, digestName string) ([]byte, error) {
	d, err := ParseDigest(digestName)
	if err != nil {
		return nil, &UnwrapError{Digest: None, Err: err}
	}

	return Unwrap(priv, wrapped, d)
}
