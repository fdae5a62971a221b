// Package transport wires field level encryption into net/http: transport
// bindings for the encryption params, a transform pipeline and the
// http.RoundTripper that runs it.
package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/andrei-cloud/go_fle/pkg/fle"
)

// ErrNoHeaderParams is returned by HeaderBinding.Inbound when a response
// carries no encryption headers.
var ErrNoHeaderParams = errors.New("response carries no encryption headers")

// Binding moves encryption params between the two legs of an exchange.
type Binding interface {
	// Outbound generates params for a request and publishes them.
	Outbound(ctx context.Context, cfg *fle.Config, h http.Header) (*fle.Params, error)
	// Inbound returns the params protecting a response. It never returns
	// nil params without an error.
	Inbound(ctx context.Context, cfg *fle.Config, h http.Header) (*fle.Params, error)
}

// ForConfig returns the binding matching the config's transport.
func ForConfig(cfg *fle.Config) Binding {
	if cfg.UseHTTPHeaders() {
		return HeaderBinding{}
	}

	return BodyBinding{}
}

// HeaderBinding carries params as HTTP headers on both legs. It keeps no state.
type HeaderBinding struct{}

// Outbound generates params and writes the four encryption headers.
func (HeaderBinding) Outbound(_ context.Context, cfg *fle.Config, h http.Header) (*fle.Params, error) {
	p, err := fle.GenerateParams(cfg)
	if err != nil {
		return nil, err
	}
	WriteHeaders(cfg, p, h)

	return p, nil
}

// Inbound reads the encryption headers, removes them and unwraps the key
// with the config's decryption key. A response without the IV and key
// headers yields ErrNoHeaderParams.
func (HeaderBinding) Inbound(_ context.Context, cfg *fle.Config, h http.Header) (*fle.Params, error) {
	names := cfg.HeaderNames()
	iv := h.Get(names.IV)
	encryptedKey := h.Get(names.EncryptedKey)
	digest := h.Get(names.OaepDigestAlgorithm)
	StripHeaders(cfg, h)

	if iv == "" && encryptedKey == "" {
		return nil, ErrNoHeaderParams
	}

	return fle.ReconstructParams(iv, encryptedKey, digest, cfg)
}

// BodyBinding keeps params in the exchange so the response, encrypted with
// the same key, can be decrypted. The params themselves travel in the body.
type BodyBinding struct{}

// Outbound generates params and stores them in the exchange carried by ctx.
func (BodyBinding) Outbound(ctx context.Context, cfg *fle.Config, _ http.Header) (*fle.Params, error) {
	ex, ok := fle.ExchangeFrom(ctx)
	if !ok {
		return nil, fle.ErrTransportCorrelationMissing
	}
	p, err := fle.GenerateParams(cfg)
	if err != nil {
		return nil, err
	}
	ex.SetParams(p)

	return p, nil
}

// Inbound returns the params stored by Outbound.
func (BodyBinding) Inbound(ctx context.Context, _ *fle.Config, _ http.Header) (*fle.Params, error) {
	ex, ok := fle.ExchangeFrom(ctx)
	if !ok {
		return nil, fle.ErrTransportCorrelationMissing
	}

	return ex.RequireParams()
}

// WriteHeaders sets the encryption headers for p.
func WriteHeaders(cfg *fle.Config, p *fle.Params, h http.Header) {
	names := cfg.HeaderNames()
	h.Set(names.IV, p.IVValue())
	h.Set(names.EncryptedKey, p.EncryptedKeyValue())
	h.Set(names.OaepDigestAlgorithm, p.DigestValue())
	if fp := cfg.Fingerprint(); fp != "" {
		h.Set(names.PublicKeyFingerprint, fp)
	}
}

// StripHeaders removes every encryption header.
func StripHeaders(cfg *fle.Config, h http.Header) {
	for _, name := range cfg.HeaderNames().All() {
		h.Del(name)
	}
}
