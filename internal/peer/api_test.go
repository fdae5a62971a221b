package peer

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andrei-cloud/go_fle/internal/pinprotect"
	"github.com/andrei-cloud/go_fle/internal/transport"
	"github.com/andrei-cloud/go_fle/pkg/fle"
	"github.com/andrei-cloud/go_fle/pkg/fle/fletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type peerFixture struct {
	router    http.Handler
	clientCfg *fle.Config
	issuer    *fletest.KeyPair
}

func newFixture(t *testing.T, tr fle.Transport, withPinKey bool) *peerFixture {
	t.Helper()
	issuer := fletest.NewKeyPair(t, "issuer")
	client := fletest.NewKeyPair(t, "client")

	clientCfg, err := fle.NewConfig(
		fle.WithEncryptionCertificate(issuer.Certificate),
		fle.WithDecryptionKey(client.Key),
		fle.WithOaepPaddingDigestAlgorithm("SHA-256"),
		fle.WithTransport(tr),
	)
	require.NoError(t, err)
	peerCfg, err := fle.NewConfig(
		fle.WithEncryptionCertificate(client.Certificate),
		fle.WithDecryptionKey(issuer.Key),
		fle.WithOaepPaddingDigestAlgorithm("SHA-256"),
		fle.WithTransport(tr),
	)
	require.NoError(t, err)

	pinKey := issuer.Key
	if !withPinKey {
		pinKey = nil
	}

	return &peerFixture{
		router:    NewRouter(NewAPI(peerCfg, pinKey)),
		clientCfg: clientCfg,
		issuer:    issuer,
	}
}

// post encrypts body the way a client in the fixture's mode would and
// returns the recorder with the params used.
func (f *peerFixture) post(t *testing.T, path string, body []byte) (*httptest.ResponseRecorder, *fle.Params) {
	t.Helper()
	p, err := fle.GenerateParams(f.clientCfg)
	require.NoError(t, err)
	enc, err := fle.EncryptPayload(body, f.clientCfg, p)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(enc))
	if f.clientCfg.UseHTTPHeaders() {
		transport.WriteHeaders(f.clientCfg, p, req.Header)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec, p
}

func (f *peerFixture) decrypt(t *testing.T, rec *httptest.ResponseRecorder, reqParams *fle.Params) []byte {
	t.Helper()
	p := reqParams
	if f.clientCfg.UseHTTPHeaders() {
		names := f.clientCfg.HeaderNames()
		var err error
		p, err = fle.ReconstructParams(
			rec.Header().Get(names.IV),
			rec.Header().Get(names.EncryptedKey),
			rec.Header().Get(names.OaepDigestAlgorithm),
			f.clientCfg,
		)
		require.NoError(t, err)
	}
	plain, err := fle.DecryptPayload(rec.Body.Bytes(), f.clientCfg, p)
	require.NoError(t, err)

	return plain
}

func TestEcho(t *testing.T) {
	t.Parallel()

	for _, tr := range []fle.Transport{fle.UseHeaders, fle.UseBody} {
		tr := tr
		t.Run(tr.String(), func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, tr, false)

			rec, p := f.post(t, "/echo", []byte(`{"pan":"4111111111111111"}`))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.True(t, fle.IsEncrypted(rec.Body.Bytes(), f.clientCfg))
			assert.NotContains(t, rec.Body.String(), "4111111111111111")

			assert.JSONEq(t, `{"echo":{"pan":"4111111111111111"}}`, string(f.decrypt(t, rec, p)))
		})
	}
}

func TestHeaderModeUsesFreshResponseParams(t *testing.T) {
	t.Parallel()
	f := newFixture(t, fle.UseHeaders, false)

	rec, p := f.post(t, "/echo", []byte(`{}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-MC-IV"))
	assert.NotEqual(t, p.IVValue(), rec.Header().Get("X-MC-IV"))
}

func TestEchoRejectsClearPayload(t *testing.T) {
	t.Parallel()
	f := newFixture(t, fle.UseBody, false)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader([]byte(`{"pan":"1"}`)))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors.Error, 1)
	assert.Equal(t, "INVALID_ENCRYPTED_PAYLOAD", resp.Errors.Error[0].ReasonCode)
	assert.False(t, resp.Errors.Error[0].Recoverable)
}

func TestPingNeedsParams(t *testing.T) {
	t.Parallel()
	f := newFixture(t, fle.UseHeaders, false)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pinKey   bool
		pan      string
		status   int
		verified bool
	}{
		{name: "valid", pinKey: true, pan: "4000001234562000", status: http.StatusOK, verified: true},
		{name: "wrong pan", pinKey: true, pan: "4000001234569999", status: http.StatusOK},
		{name: "no pin key", pinKey: false, pan: "4000001234562000", status: http.StatusNotImplemented},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, fle.UseBody, tt.pinKey)

			enc, err := pinprotect.NewEncrypter(&f.issuer.Key.PublicKey)
			require.NoError(t, err)
			epb, err := enc.EncryptPin("123456", "4000001234562000")
			require.NoError(t, err)
			body, err := json.Marshal(PinVerifyRequest{CardNumber: tt.pan, EncryptedPinBlock: epb})
			require.NoError(t, err)

			rec, p := f.post(t, "/pin/verify", body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var got PinVerifyResponse
			require.NoError(t, json.Unmarshal(f.decrypt(t, rec, p), &got))
			assert.Equal(t, tt.verified, got.Verified)
			if tt.verified {
				assert.Equal(t, 6, got.PinLength)
			}
		})
	}
}
