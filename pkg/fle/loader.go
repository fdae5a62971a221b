package fle

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pkcs12"
)

// Settings are the file based inputs a Config is built from.
type Settings struct {
	CertificateFile        string
	CertificateFingerprint string
	OaepDigestAlgorithm    string
	Transport              string
	DecryptionKeyFile      string
	DecryptionKeyPassword  string

	// DecryptionKeyAlias is accepted for compatibility with keystore based
	// setups. PKCS#12 files are expected to hold a single key.
	DecryptionKeyAlias string
}

// FromSettings loads the certificate and optional decryption key and builds a Config.
func FromSettings(s Settings, opts ...Option) (*Config, error) {
	log.Info().
		Str("event", "load_encryption_certificate").
		Str("file", s.CertificateFile).
		Msg("loading encryption certificate")
	cert, err := LoadCertificate(s.CertificateFile)
	if err != nil {
		return nil, err
	}
	transport, err := ParseTransport(s.Transport)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithEncryptionCertificate(cert),
		WithEncryptionCertificateFingerprint(s.CertificateFingerprint),
		WithOaepPaddingDigestAlgorithm(s.OaepDigestAlgorithm),
		WithTransport(transport),
	}
	if s.DecryptionKeyFile != "" {
		key, err := LoadDecryptionKey(s.DecryptionKeyFile, s.DecryptionKeyPassword)
		if err != nil {
			return nil, err
		}
		base = append(base, WithDecryptionKey(key))
	}

	return NewConfig(append(base, opts...)...)
}

// LoadCertificate reads a PEM or DER encoded X.509 certificate.
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read certificate: %v", ErrConfiguration, err)
	}
	if block, _ := pem.Decode(data); block != nil {
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse certificate %s: %v", ErrConfiguration, path, err)
	}

	return cert, nil
}

// LoadDecryptionKey reads an RSA private key from a PKCS#12 file (.p12, .pfx)
// or from PEM (PKCS#1 or PKCS#8).
func LoadDecryptionKey(path, password string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read decryption key: %v", ErrConfiguration, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".p12", ".pfx":
		key, _, err := pkcs12.Decode(data, password)
		if err != nil {
			return nil, fmt.Errorf("%w: decode keystore %s: %v", ErrConfiguration, path, err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: keystore key is %T, want RSA", ErrConfiguration, key)
		}

		return rsaKey, nil
	}

	return ParsePrivateKeyPEM(data)
}

// ParsePrivateKeyPEM parses a PKCS#1 or PKCS#8 RSA private key.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrConfiguration)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrConfiguration, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T, want RSA", ErrConfiguration, key)
	}

	return rsaKey, nil
}

// LoadPublicKeyPEM reads an RSA public key stored as PEM "PUBLIC KEY".
// Header, footer and line breaks are stripped before base64 decoding so
// files with unusual line endings still load.
func LoadPublicKeyPEM(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read public key: %v", ErrConfiguration, err)
	}

	return ParsePublicKeyPEM(data)
}

// ParsePublicKeyPEM is LoadPublicKeyPEM over in-memory content.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	content := strings.NewReplacer(
		"-----BEGIN PUBLIC KEY-----", "",
		"-----END PUBLIC KEY-----", "",
		"\r\n", "",
		"\n", "",
		" ", "",
	).Replace(string(data))

	der, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("%w: decode public key: %v", ErrConfiguration, err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %v", ErrConfiguration, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, want RSA", ErrConfiguration, pub)
	}

	return rsaPub, nil
}
