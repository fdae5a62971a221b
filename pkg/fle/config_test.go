package fle

import (
	"testing"

	"github.com/andrei-cloud/go_fle/pkg/fle/fletest"
	"github.com/andrei-cloud/go_fle/pkg/keywrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want keywrap.Digest
	}{
		{name: "SHA-256", want: keywrap.SHA256},
		{name: "sha-512", want: keywrap.SHA512},
		{name: "SHA256", want: keywrap.None},
		{name: "sha512", want: keywrap.None},
		{name: "NONE", want: keywrap.None},
		{name: "SHA-1", want: keywrap.None},
		{name: "MD5", want: keywrap.None},
		{name: "", want: keywrap.None},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SelectDigest(tt.name))
		})
	}
}

func TestUnhyphenatedDigestWrapsWithPKCS1(t *testing.T) {
	t.Parallel()
	kp := fletest.NewKeyPair(t, "issuer")

	cfg, err := NewConfig(
		WithEncryptionCertificate(kp.Certificate),
		WithDecryptionKey(kp.Key),
		WithOaepPaddingDigestAlgorithm("SHA256"),
	)
	require.NoError(t, err)
	assert.Equal(t, keywrap.None, cfg.Digest())

	p, err := GenerateParams(cfg)
	require.NoError(t, err)
	assert.Equal(t, keywrap.None, p.Digest)
	assert.Equal(t, "NONE", p.DigestValue())

	key, err := keywrap.Unwrap(kp.Key, p.EncryptedKey, keywrap.None)
	require.NoError(t, err)
	assert.Equal(t, p.Key, key)
}

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()
	kp := fletest.NewKeyPair(t, "issuer")

	cfg, err := NewConfig(
		WithEncryptionCertificate(kp.Certificate),
		WithEncryptionCertificateFingerprint("fp-123"),
	)
	require.NoError(t, err)

	assert.True(t, cfg.CanEncrypt())
	assert.False(t, cfg.CanDecrypt())
	assert.True(t, cfg.UseHTTPHeaders())
	assert.Equal(t, keywrap.None, cfg.Digest())
	assert.Equal(t, "fp-123", cfg.Fingerprint())
	assert.Equal(t, DefaultFieldNames(), cfg.FieldNames())
	assert.Equal(t, "X-MC-IV", cfg.HeaderNames().IV)
	assert.Equal(t, EncodingHex, cfg.Encoding())
}

func TestNewConfigOptions(t *testing.T) {
	t.Parallel()
	kp := fletest.NewKeyPair(t, "issuer")

	cfg, err := NewConfig(
		WithEncryptionCertificate(kp.Certificate),
		WithDecryptionKey(kp.Key),
		WithOaepPaddingDigestAlgorithm("sha-512"),
		WithTransport(UseBody),
		WithFieldNames(FieldNames{EncryptedValue: "data"}),
		WithHeaderNames(HeaderNames{IV: "X-IV"}),
	)
	require.NoError(t, err)

	assert.True(t, cfg.CanDecrypt())
	assert.False(t, cfg.UseHTTPHeaders())
	assert.Equal(t, keywrap.SHA512, cfg.Digest())
	assert.Equal(t, "data", cfg.FieldNames().EncryptedValue)
	assert.Equal(t, "encryptedKey", cfg.FieldNames().EncryptedKey)
	assert.Equal(t, "X-IV", cfg.HeaderNames().IV)
	assert.Equal(t, "X-MC-Encrypted-Key", cfg.HeaderNames().EncryptedKey)
}

func TestNewConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := NewConfig()
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewConfig(WithEncryptionCertificate(nil))
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParseTransport(t *testing.T) {
	t.Parallel()

	tr, err := ParseTransport("body")
	require.NoError(t, err)
	assert.Equal(t, UseBody, tr)

	tr, err = ParseTransport("")
	require.NoError(t, err)
	assert.Equal(t, UseHeaders, tr)

	_, err = ParseTransport("carrier-pigeon")
	assert.ErrorIs(t, err, ErrConfiguration)
}
