package keywrap

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return priv
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	t.Parallel()
	priv := testKey(t)

	keys := [][]byte{
		bytes.Repeat([]byte{0x11}, 16),
		bytes.Repeat([]byte{0xA5}, 24),
		bytes.Repeat([]byte{0x01}, 32),
	}

	for _, d := range []Digest{None, SHA1, SHA256, SHA512} {
		for _, key := range keys {
			wrapped, err := Wrap(&priv.PublicKey, key, d)
			require.NoError(t, err, d.String())
			assert.NotEqual(t, key, wrapped)

			got, err := Unwrap(priv, wrapped, d)
			require.NoError(t, err, d.String())
			assert.Equal(t, key, got, d.String())
		}
	}
}

func TestUnwrapNamedNormalizesDigest(t *testing.T) {
	t.Parallel()
	priv := testKey(t)
	key := bytes.Repeat([]byte{0x42}, 16)

	wrapped, err := Wrap(&priv.PublicKey, key, SHA256)
	require.NoError(t, err)

	for _, name := range []string{"SHA-256", "SHA256", "sha256", "Sha-256"} {
		got, err := UnwrapNamed(priv, wrapped, name)
		require.NoError(t, err, name)
		assert.Equal(t, key, got, name)
	}
}

func TestUnwrapWrongDigestFails(t *testing.T) {
	t.Parallel()
	priv := testKey(t)

	wrapped, err := Wrap(&priv.PublicKey, []byte("0123456789abcdef"), SHA512)
	require.NoError(t, err)

	_, err = Unwrap(priv, wrapped, SHA256)
	var uerr *UnwrapError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, SHA256, uerr.Digest)
}

func TestWrapErrors(t *testing.T) {
	t.Parallel()

	_, err := Wrap(nil, []byte("k"), SHA256)
	var werr *WrapError
	require.True(t, errors.As(err, &werr))
	assert.ErrorIs(t, err, errNilPublicKey)

	priv := testKey(t)
	// 256 bytes does not fit a 2048-bit modulus with any padding.
	_, err = Wrap(&priv.PublicKey, make([]byte, 256), None)
	require.True(t, errors.As(err, &werr))

	_, err = Unwrap(nil, []byte{1}, None)
	assert.ErrorIs(t, err, errNilPrivateKey)

	_, err = UnwrapNamed(priv, []byte{1}, "MD5")
	var uerr *UnwrapError
	require.True(t, errors.As(err, &uerr))
	assert.ErrorIs(t, err, errUnknownDigest)
}

func TestParseDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    Digest
		wantErr bool
	}{
		{name: "NONE", want: None},
		{name: "none", want: None},
		{name: "SHA-1", want: SHA1},
		{name: "SHA256", want: SHA256},
		{name: "sha-512", want: SHA512},
		{name: "SHA-384", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDigest(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDigestName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "SHA-256", NormalizeDigestName("SHA256"))
	assert.Equal(t, "SHA-512", NormalizeDigestName("sha-512"))
	assert.Equal(t, "NONE", NormalizeDigestName("None"))
	assert.Equal(t, "SHA-1", NormalizeDigestName("sha1"))
}
