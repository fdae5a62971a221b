package fle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andrei-cloud/go_fle/pkg/fle/fletest"
	"github.com/andrei-cloud/go_fle/pkg/keywrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSettings(t *testing.T) {
	t.Parallel()
	kp := fletest.NewKeyPair(t, "issuer")
	certFile, keyFile, _ := kp.Files(t, t.TempDir())

	cfg, err := FromSettings(Settings{
		CertificateFile:        certFile,
		CertificateFingerprint: "abc",
		OaepDigestAlgorithm:    "SHA-512",
		Transport:              "body",
		DecryptionKeyFile:      keyFile,
	})
	require.NoError(t, err)
	assert.True(t, cfg.CanEncrypt())
	assert.True(t, cfg.CanDecrypt())
	assert.Equal(t, keywrap.SHA512, cfg.Digest())
	assert.Equal(t, UseBody, cfg.Transport())
	assert.Equal(t, kp.Key.N, cfg.DecryptionKey().N)
}

func TestFromSettingsMissingCertificate(t *testing.T) {
	t.Parallel()

	_, err := FromSettings(Settings{CertificateFile: filepath.Join(t.TempDir(), "missing.pem")})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestLoadCertificateDER(t *testing.T) {
	t.Parallel()
	kp := fletest.NewKeyPair(t, "issuer")
	path := filepath.Join(t.TempDir(), "cert.der")
	require.NoError(t, os.WriteFile(path, kp.Certificate.Raw, 0o600))

	cert, err := LoadCertificate(path)
	require.NoError(t, err)
	assert.Equal(t, "issuer", cert.Subject.CommonName)
}

func TestParsePublicKeyPEMWindowsLineEndings(t *testing.T) {
	t.Parallel()
	kp := fletest.NewKeyPair(t, "pin")
	crlf := strings.ReplaceAll(string(kp.PublicPEM), "\n", "\r\n")

	pub, err := ParsePublicKeyPEM([]byte(crlf))
	require.NoError(t, err)
	assert.Equal(t, kp.Key.PublicKey.N, pub.N)

	_, err = ParsePublicKeyPEM([]byte("-----BEGIN PUBLIC KEY-----\n!!!\n-----END PUBLIC KEY-----"))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParsePrivateKeyPEM(t *testing.T) {
	t.Parallel()
	kp := fletest.NewKeyPair(t, "client")

	key, err := ParsePrivateKeyPEM(kp.KeyPEM)
	require.NoError(t, err)
	assert.Equal(t, kp.Key.D, key.D)

	_, err = ParsePrivateKeyPEM([]byte("garbage"))
	assert.ErrorIs(t, err, ErrConfiguration)
}
