// Package peer is an HTTP stand-in for the issuing API. It decrypts
// requests with the issuer's private key and answers with encrypted
// payloads, in header or body mode.
package peer

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/andrei-cloud/go_fle/internal/pinprotect"
	"github.com/andrei-cloud/go_fle/internal/transport"
	"github.com/andrei-cloud/go_fle/pkg/fle"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var errNotEncrypted = errors.New("request payload is not encrypted")

// API serves the peer routes.
type API struct {
	crypto     *fle.Config
	pinKey     *rsa.PrivateKey
	pinOptions []pinprotect.Option
}

// NewAPI returns an API. crypto must hold the issuer's decryption key and,
// in header mode, the client's certificate for response params. pinKey may
// be nil, which disables PIN verification.
func NewAPI(crypto *fle.Config, pinKey *rsa.PrivateKey, pinOptions ...pinprotect.Option) *API {
	return &API{crypto: crypto, pinKey: pinKey, pinOptions: pinOptions}
}

// AppendRoutes mounts the peer routes on r.
func (a *API) AppendRoutes(r chi.Router) {
	r.Get("/ping", a.ping)
	r.Post("/echo", a.echo)
	r.Route("/pin", func(r chi.Router) {
		r.Post("/verify", a.verifyPin)
	})
}

// NewRouter returns a chi router with the peer routes.
func NewRouter(api *API) http.Handler {
	r := chi.NewRouter()
	api.AppendRoutes(r)

	return r
}

// PinVerifyRequest is the plain payload of POST /pin/verify.
type PinVerifyRequest struct {
	CardNumber        string                       `json:"cardNumber"`
	EncryptedPinBlock pinprotect.EncryptedPinBlock `json:"encryptedPinBlock"`
}

// PinVerifyResponse is the plain payload answered by POST /pin/verify.
type PinVerifyResponse struct {
	Verified  bool `json:"verified"`
	PinLength int  `json:"pinLength"`
}

func (a *API) ping(w http.ResponseWriter, r *http.Request) {
	p, err := a.requestParams(r, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ENCRYPTION_PARAMS", err)
		return
	}

	a.writeEncrypted(w, http.StatusOK, p, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) echo(w http.ResponseWriter, r *http.Request) {
	plain, p, err := a.decryptRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ENCRYPTED_PAYLOAD", err)
		return
	}

	a.writeEncrypted(w, http.StatusOK, p, map[string]json.RawMessage{"echo": plain})
}

func (a *API) verifyPin(w http.ResponseWriter, r *http.Request) {
	if a.pinKey == nil {
		writeError(w, http.StatusNotImplemented, "PIN_KEY_NOT_CONFIGURED", errors.New("pin decryption key not configured"))
		return
	}

	plain, p, err := a.decryptRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ENCRYPTED_PAYLOAD", err)
		return
	}
	var req PinVerifyRequest
	if err := json.Unmarshal(plain, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	pin, err := pinprotect.DecryptPinBlock(a.pinKey, req.EncryptedPinBlock, req.CardNumber, a.pinOptions...)
	if err != nil {
		log.Warn().
			Str("event", "pin_verify_failed").
			Err(err).
			Msg("pin block could not be decrypted")
		a.writeEncrypted(w, http.StatusOK, p, PinVerifyResponse{Verified: false})
		return
	}

	a.writeEncrypted(w, http.StatusOK, p, PinVerifyResponse{Verified: true, PinLength: len(pin)})
}

// decryptRequest reads and decrypts the request body and returns the plain
// payload with the params the response must use.
func (a *API) decryptRequest(r *http.Request) ([]byte, *fle.Params, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, err
	}
	if !fle.IsEncrypted(body, a.crypto) {
		return nil, nil, errNotEncrypted
	}

	p, err := a.requestParams(r, body)
	if err != nil {
		return nil, nil, err
	}
	plain, err := fle.DecryptPayload(body, a.crypto, p)
	if err != nil {
		return nil, nil, err
	}

	return plain, p, nil
}

// requestParams reconstructs the request params from headers or, in body
// mode, from the payload fields.
func (a *API) requestParams(r *http.Request, body []byte) (*fle.Params, error) {
	names := a.crypto.HeaderNames()
	if iv := r.Header.Get(names.IV); iv != "" {
		return fle.ReconstructParams(
			iv,
			r.Header.Get(names.EncryptedKey),
			r.Header.Get(names.OaepDigestAlgorithm),
			a.crypto,
		)
	}
	if a.crypto.UseHTTPHeaders() || body == nil {
		return nil, fle.ErrTransportCorrelationMissing
	}

	return fle.ParamsFromPayload(body, a.crypto)
}

// writeEncrypted answers with v encrypted. Header mode uses fresh params
// wrapped for the client; body mode reuses the request params.
func (a *API) writeEncrypted(w http.ResponseWriter, status int, reqParams *fle.Params, v any) {
	plain, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "ENCODING_FAILED", err)
		return
	}

	p := reqParams
	if a.crypto.UseHTTPHeaders() {
		if p, err = fle.GenerateParams(a.crypto); err != nil {
			writeError(w, http.StatusInternalServerError, "ENCRYPTION_FAILED", err)
			return
		}
		transport.WriteHeaders(a.crypto, p, w.Header())
	}

	enc, err := fle.EncryptPayload(plain, a.crypto, p)
	if err != nil {
		transport.StripHeaders(a.crypto, w.Header())
		writeError(w, http.StatusInternalServerError, "ENCRYPTION_FAILED", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(enc)
}
