package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andrei-cloud/go_fle/internal/peer"
	"github.com/andrei-cloud/go_fle/internal/pinprotect"
	"github.com/andrei-cloud/go_fle/pkg/fle"
	"github.com/andrei-cloud/go_fle/pkg/fle/fletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root, err := NewRootCommand()
	require.NoError(t, err)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-format", "json", "--log-level", "warn"}, args...))

	err = root.Execute()

	return out.String(), err
}

func TestPinBlock(t *testing.T) {
	out, err := run(t, "pin", "block", "--pin", "1234", "--pan", "4111111111111111")
	require.NoError(t, err)
	assert.Contains(t, out, "041225EEEEEEEEEE")

	out, err = run(t, "pin", "decode", "--block", "041225EEEEEEEEEE", "--pan", "4111111111111111")
	require.NoError(t, err)
	assert.Contains(t, out, "PIN extracted (format ISO0): 1234")

	_, err = run(t, "pin", "block", "--pin", "1234567", "--pan", "4111111111111111")
	assert.ErrorIs(t, err, pinprotect.ErrInvalidPinLength)

	_, err = run(t, "pin", "block", "--pin", "1234567", "--pan", "4111111111111111", "--format", "iso1")
	assert.NoError(t, err)
}

func TestPinKeys(t *testing.T) {
	key := strings.Repeat("0123456789ABCDEF", 2)
	out, err := run(t, "pin", "der", "--bits", "112", "--key", key)
	require.NoError(t, err)
	assert.Contains(t, out, "DER: 30240410"+key+"0410"+strings.Repeat("9", 32))

	out, err = run(t, "pin", "sessionkey", "--bits", "112")
	require.NoError(t, err)
	assert.Contains(t, out, "Session key (112 bits): ")
	assert.Contains(t, out, "KCV: ")

	_, err = run(t, "pin", "sessionkey", "--bits", "64")
	assert.ErrorIs(t, err, pinprotect.ErrUnsupportedKeyLength)
}

func TestPinEncrypt(t *testing.T) {
	kp := fletest.NewKeyPair(t, "issuer")
	_, _, pubFile := kp.Files(t, t.TempDir())

	out, err := run(t, "pin", "encrypt", "--pin", "9876", "--pan", "5555444433332226", "--public-key", pubFile)
	require.NoError(t, err)

	var epb pinprotect.EncryptedPinBlock
	require.NoError(t, json.Unmarshal([]byte(out), &epb))
	pin, err := pinprotect.DecryptPinBlock(kp.Key, epb, "5555444433332226")
	require.NoError(t, err)
	assert.Equal(t, "9876", pin)

	_, err = run(t, "pin", "encrypt", "--pin", "9876", "--pan", "5555444433332226")
	assert.ErrorContains(t, err, "no PIN public key configured")
}

func TestCall(t *testing.T) {
	issuer := fletest.NewKeyPair(t, "issuer")
	me := fletest.NewKeyPair(t, "client")

	peerCfg, err := fle.NewConfig(
		fle.WithEncryptionCertificate(me.Certificate),
		fle.WithDecryptionKey(issuer.Key),
		fle.WithTransport(fle.UseBody),
	)
	require.NoError(t, err)
	srv := httptest.NewServer(peer.NewRouter(peer.NewAPI(peerCfg, nil)))
	t.Cleanup(srv.Close)

	issuerCert, _, _ := issuer.Files(t, t.TempDir())
	_, myKey, _ := me.Files(t, t.TempDir())
	cfg := filepath.Join(t.TempDir(), "go_fle.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf(`
client:
  base_path: %s
encryption:
  certificate:
    file: %s
  oaep_algorithm: SHA-256
  transport: body
  decryption_key:
    file: %s
`, srv.URL, issuerCert, myKey)), 0o600))

	out, err := run(t, "--config", cfg, "call", "/echo", "--data", `{"cvc":"321"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":{"cvc":"321"}}`, out)

	_, err = run(t, "--config", cfg, "call", "/echo", "--data", `{not json`)
	assert.Error(t, err)
}
