package pinprotect

import (
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/andrei-cloud/go_fle/pkg/fle"
	"github.com/andrei-cloud/go_fle/pkg/keywrap"
	"github.com/andrei-cloud/go_fle/pkg/pinblock"
	"github.com/rs/zerolog/log"
)

// EncryptedPinBlock is the wire form of a protected PIN.
type EncryptedPinBlock struct {
	EncryptedKey   string `json:"encryptedKey"`
	EncryptedBlock string `json:"encryptedBlock"`
}

// KeyLoader loads the issuer's RSA public key from a PEM file at most once,
// on first use. Concurrent first callers share the one load and its result.
type KeyLoader struct {
	load func() (*rsa.PublicKey, error)
}

// NewKeyLoader returns a loader for the PEM "PUBLIC KEY" file at path.
func NewKeyLoader(path string) *KeyLoader {
	l := &KeyLoader{}
	l.load = sync.OnceValues(func() (*rsa.PublicKey, error) {
		log.Info().
			Str("event", "load_pin_public_key").
			Str("file", path).
			Msg("loading pin encryption public key")

		return fle.LoadPublicKeyPEM(path)
	})

	return l
}

// PublicKey returns the loaded key.
func (l *KeyLoader) PublicKey() (*rsa.PublicKey, error) {
	return l.load()
}

// Option configures an Encrypter or DecryptPinBlock.
type Option func(*options) error

type options struct {
	transformation Transformation
	keyBits        int
	encoding       BlockEncoding
}

func defaultOptions() options {
	t, _ := ParseTransformation(DefaultTransformation)

	return options{transformation: t, keyBits: KeyBits168, encoding: BlockHex}
}

// WithTransformation sets the block cipher transformation string.
func WithTransformation(s string) Option {
	return func(o *options) error {
		t, err := ParseTransformation(s)
		if err != nil {
			return err
		}
		o.transformation = t

		return nil
	}
}

// WithKeyBits sets the session key size, 112 or 168.
func WithKeyBits(bits int) Option {
	return func(o *options) error {
		if _, err := SessionKeyBytes(bits); err != nil {
			return err
		}
		o.keyBits = bits

		return nil
	}
}

// WithBlockEncoding sets how the encrypted block is written.
func WithBlockEncoding(e BlockEncoding) Option {
	return func(o *options) error {
		o.encoding = e

		return nil
	}
}

// Encrypter protects PINs for one issuer key. It holds no state besides the
// key and settings; every EncryptPin call is independent.
type Encrypter struct {
	publicKey func() (*rsa.PublicKey, error)
	opts      options
}

// NewEncrypter returns an Encrypter bound to pub.
func NewEncrypter(pub *rsa.PublicKey, opts ...Option) (*Encrypter, error) {
	if pub == nil {
		return nil, wrapErr("new encrypter", errNoPublicKey)
	}

	return newEncrypter(func() (*rsa.PublicKey, error) { return pub, nil }, opts)
}

// NewLazyEncrypter returns an Encrypter that loads its key through l on
// first use.
func NewLazyEncrypter(l *KeyLoader, opts ...Option) (*Encrypter, error) {
	return newEncrypter(l.PublicKey, opts)
}

func newEncrypter(key func() (*rsa.PublicKey, error), opts []Option) (*Encrypter, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, wrapErr("new encrypter", err)
		}
	}

	return &Encrypter{publicKey: key, opts: o}, nil
}

// KeyBits returns the configured session key size.
func (e *Encrypter) KeyBits() int { return e.opts.keyBits }

// Transformation returns the configured block transformation.
func (e *Encrypter) Transformation() Transformation { return e.opts.transformation }

// EncryptPinBlock encrypts a hex PIN block under a hex session key and
// returns it in the configured block encoding.
func (e *Encrypter) EncryptPinBlock(keyHex, blockHex string) (string, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return "", wrapErr("encrypt pin block", fmt.Errorf("session key is not hex: %w", err))
	}
	block, err := hex.DecodeString(blockHex)
	if err != nil {
		return "", wrapErr("encrypt pin block", fmt.Errorf("pin block is not hex: %w", err))
	}

	ct, err := e.opts.transformation.Encrypt(key, block)
	if err != nil {
		return "", wrapErr("encrypt pin block", err)
	}

	return e.opts.encoding.encode(ct), nil
}

// EncryptPin builds the ISO-0 block, encrypts it under a fresh session key
// and wraps the DER encoded key with RSA-OAEP SHA-1.
func (e *Encrypter) EncryptPin(pin, pan string) (EncryptedPinBlock, error) {
	block, err := BuildPinBlock(pin, pan)
	if err != nil {
		return EncryptedPinBlock{}, err
	}

	sessionKey, err := GenerateSessionKey(e.opts.keyBits)
	if err != nil {
		return EncryptedPinBlock{}, err
	}

	encryptedBlock, err := e.EncryptPinBlock(sessionKey, block)
	if err != nil {
		return EncryptedPinBlock{}, err
	}

	der, err := DerEncode(e.opts.keyBits, sessionKey)
	if err != nil {
		return EncryptedPinBlock{}, err
	}
	derBytes, err := hex.DecodeString(der)
	if err != nil {
		return EncryptedPinBlock{}, wrapErr("decode der", err)
	}

	pub, err := e.publicKey()
	if err != nil {
		return EncryptedPinBlock{}, wrapErr("load public key", err)
	}
	wrapped, err := keywrap.Wrap(pub, derBytes, keywrap.SHA1)
	if err != nil {
		return EncryptedPinBlock{}, wrapErr("wrap session key", err)
	}

	log.Debug().
		Str("event", "pin_encrypted").
		Int("key_bits", e.opts.keyBits).
		Str("transformation", e.opts.transformation.String()).
		Msg("pin block encrypted")

	return EncryptedPinBlock{
		EncryptedKey:   hex.EncodeToString(wrapped),
		EncryptedBlock: encryptedBlock,
	}, nil
}

// DecryptPinBlock recovers the clear PIN on the key holder's side: it
// unwraps the DER encoded session key, decrypts the block and decodes it
// against pan.
func DecryptPinBlock(priv *rsa.PrivateKey, epb EncryptedPinBlock, pan string, opts ...Option) (string, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return "", wrapErr("decrypt pin block", err)
		}
	}

	wrapped, err := hex.DecodeString(epb.EncryptedKey)
	if err != nil {
		return "", wrapErr("decode encrypted key", err)
	}
	derBytes, err := keywrap.Unwrap(priv, wrapped, keywrap.SHA1)
	if err != nil {
		return "", wrapErr("unwrap session key", err)
	}
	_, keyHex, err := DerDecode(hex.EncodeToString(derBytes))
	if err != nil {
		return "", err
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return "", wrapErr("decode session key", err)
	}

	ct, err := o.encoding.decode(epb.EncryptedBlock)
	if err != nil {
		return "", wrapErr("decode encrypted block", err)
	}
	plain, err := o.transformation.Decrypt(key, ct)
	if err != nil {
		return "", wrapErr("decrypt pin block", err)
	}

	pin, err := pinblock.Decode(hex.EncodeToString(plain), pan, pinblock.ISO0)
	if err != nil {
		return "", wrapErr("decode pin block", err)
	}

	return pin, nil
}
