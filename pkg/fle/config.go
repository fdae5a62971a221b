// Package fle implements field level envelope encryption of HTTP payloads:
// one-time AES parameters whose key is wrapped under the recipient's RSA key,
// carried either as HTTP headers or as fields of the JSON body.
package fle

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/andrei-cloud/go_fle/pkg/keywrap"
	"github.com/rs/zerolog/log"
)

// Transport selects where encryption params travel.
type Transport int

const (
	UseHeaders Transport = iota // Params as HTTP headers, body holds only the encrypted value.
	UseBody                     // Params embedded as fields of the JSON payload.
)

func (t Transport) String() string {
	if t == UseBody {
		return "body"
	}

	return "headers"
}

// ParseTransport maps "headers" or "body" to a Transport.
func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "headers", "header", "use-headers":
		return UseHeaders, nil
	case "body", "use-body":
		return UseBody, nil
	default:
		return UseHeaders, fmt.Errorf("%w: unknown transport %q", ErrConfiguration, s)
	}
}

// FieldValueEncoding selects how binary values are written to the wire.
type FieldValueEncoding int

const (
	EncodingHex FieldValueEncoding = iota
	EncodingBase64
)

// FieldNames are the JSON names used in body mode.
type FieldNames struct {
	EncryptedValue       string
	EncryptedKey         string
	IV                   string
	PublicKeyFingerprint string
	OaepDigestAlgorithm  string
}

// HeaderNames are the HTTP header names used in header mode.
type HeaderNames struct {
	IV                   string
	EncryptedKey         string
	PublicKeyFingerprint string
	OaepDigestAlgorithm  string
}

// All returns every header name, in a stable order.
func (h HeaderNames) All() []string {
	return []string{h.IV, h.EncryptedKey, h.PublicKeyFingerprint, h.OaepDigestAlgorithm}
}

// DefaultFieldNames returns the field names used by the issuing API.
func DefaultFieldNames() FieldNames {
	return FieldNames{
		EncryptedValue:       "encryptedValue",
		EncryptedKey:         "encryptedKey",
		IV:                   "iv",
		PublicKeyFingerprint: "publicKeyFingerprint",
		OaepDigestAlgorithm:  "oaepPaddingDigestAlgorithm",
	}
}

// DefaultHeaderNames returns the header names used by the issuing API.
func DefaultHeaderNames() HeaderNames {
	return HeaderNames{
		IV:                   "X-MC-IV",
		EncryptedKey:         "X-MC-Encrypted-Key",
		PublicKeyFingerprint: "X-MC-Public-Key-Fingerprint",
		OaepDigestAlgorithm:  "X-MC-Oaep-Padding-Digest-Algorithm",
	}
}

// Config is immutable once built by NewConfig.
type Config struct {
	certificate   *x509.Certificate
	publicKey     *rsa.PublicKey
	fingerprint   string
	decryptionKey *rsa.PrivateKey
	digest        keywrap.Digest
	fields        FieldNames
	headers       HeaderNames
	transport     Transport
	encoding      FieldValueEncoding
}

// Option configures a Config under construction.
type Option func(*Config) error

// WithEncryptionCertificate sets the recipient certificate. Its public key must be RSA.
func WithEncryptionCertificate(cert *x509.Certificate) Option {
	return func(c *Config) error {
		if cert == nil {
			return fmt.Errorf("%w: encryption certificate is nil", ErrConfiguration)
		}
		pub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: certificate public key is %T, want RSA", ErrConfiguration, cert.PublicKey)
		}
		c.certificate = cert
		c.publicKey = pub

		return nil
	}
}

// WithEncryptionPublicKey sets a bare RSA public key instead of a certificate.
func WithEncryptionPublicKey(pub *rsa.PublicKey) Option {
	return func(c *Config) error {
		if pub == nil {
			return fmt.Errorf("%w: encryption public key is nil", ErrConfiguration)
		}
		c.publicKey = pub

		return nil
	}
}

// WithEncryptionCertificateFingerprint sets the caller supplied fingerprint tag.
// It is not computed from the certificate.
func WithEncryptionCertificateFingerprint(fp string) Option {
	return func(c *Config) error {
		c.fingerprint = fp

		return nil
	}
}

// WithDecryptionKey sets the private key used for inbound payloads.
func WithDecryptionKey(key *rsa.PrivateKey) Option {
	return func(c *Config) error {
		c.decryptionKey = key

		return nil
	}
}

// WithOaepPaddingDigestAlgorithm sets the wrap digest through SelectDigest.
func WithOaepPaddingDigestAlgorithm(name string) Option {
	return func(c *Config) error {
		c.digest = SelectDigest(name)

		return nil
	}
}

// WithDigest sets the wrap digest directly.
func WithDigest(d keywrap.Digest) Option {
	return func(c *Config) error {
		c.digest = d

		return nil
	}
}

// WithFieldNames overrides body mode field names. Empty names keep the default.
func WithFieldNames(f FieldNames) Option {
	return func(c *Config) error {
		c.fields = mergeFieldNames(c.fields, f)

		return nil
	}
}

// WithHeaderNames overrides header mode header names. Empty names keep the default.
func WithHeaderNames(h HeaderNames) Option {
	return func(c *Config) error {
		c.headers = mergeHeaderNames(c.headers, h)

		return nil
	}
}

// WithTransport selects the transport profile.
func WithTransport(t Transport) Option {
	return func(c *Config) error {
		c.transport = t

		return nil
	}
}

// WithFieldValueEncoding selects hex or base64 for binary wire values.
func WithFieldValueEncoding(e FieldValueEncoding) Option {
	return func(c *Config) error {
		c.encoding = e

		return nil
	}
}

// NewConfig builds a Config. The default digest is NONE (PKCS#1 v1.5),
// the default transport is headers and the default value encoding is hex.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		digest:    keywrap.None,
		fields:    DefaultFieldNames(),
		headers:   DefaultHeaderNames(),
		transport: UseHeaders,
		encoding:  EncodingHex,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.publicKey == nil && c.decryptionKey == nil {
		return nil, fmt.Errorf("%w: neither encryption certificate nor decryption key set", ErrConfiguration)
	}

	return c, nil
}

// SelectDigest accepts SHA-256 and SHA-512 in any case. Anything else,
// including the unhyphenated spellings, selects NONE and logs a warning.
func SelectDigest(name string) keywrap.Digest {
	switch {
	case strings.EqualFold(name, keywrap.SHA256.String()):
		return keywrap.SHA256
	case strings.EqualFold(name, keywrap.SHA512.String()):
		return keywrap.SHA512
	}
	log.Warn().
		Str("event", "oaep_digest_fallback").
		Str("requested", name).
		Msg("Using OaepPaddingDigestAlgorithm=NONE")

	return keywrap.None
}

func (c *Config) Certificate() *x509.Certificate { return c.certificate }
func (c *Config) PublicKey() *rsa.PublicKey      { return c.publicKey }
func (c *Config) Fingerprint() string            { return c.fingerprint }
func (c *Config) DecryptionKey() *rsa.PrivateKey { return c.decryptionKey }
func (c *Config) Digest() keywrap.Digest         { return c.digest }
func (c *Config) FieldNames() FieldNames         { return c.fields }
func (c *Config) HeaderNames() HeaderNames       { return c.headers }
func (c *Config) Transport() Transport           { return c.transport }
func (c *Config) UseHTTPHeaders() bool           { return c.transport == UseHeaders }
func (c *Config) Encoding() FieldValueEncoding   { return c.encoding }
func (c *Config) CanEncrypt() bool               { return c.publicKey != nil }
func (c *Config) CanDecrypt() bool               { return c.decryptionKey != nil }

func mergeFieldNames(base, over FieldNames) FieldNames {
	if over.EncryptedValue != "" {
		base.EncryptedValue = over.EncryptedValue
	}
	if over.EncryptedKey != "" {
		base.EncryptedKey = over.EncryptedKey
	}
	if over.IV != "" {
		base.IV = over.IV
	}
	if over.PublicKeyFingerprint != "" {
		base.PublicKeyFingerprint = over.PublicKeyFingerprint
	}
	if over.OaepDigestAlgorithm != "" {
		base.OaepDigestAlgorithm = over.OaepDigestAlgorithm
	}

	return base
}

func mergeHeaderNames(base, over HeaderNames) HeaderNames {
	if over.IV != "" {
		base.IV = over.IV
	}
	if over.EncryptedKey != "" {
		base.EncryptedKey = over.EncryptedKey
	}
	if over.PublicKeyFingerprint != "" {
		base.PublicKeyFingerprint = over.PublicKeyFingerprint
	}
	if over.OaepDigestAlgorithm != "" {
		base.OaepDigestAlgorithm = over.OaepDigestAlgorithm
	}

	return base
}
