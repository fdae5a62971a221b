package transport

import (
	"context"
	"errors"

	"github.com/andrei-cloud/go_fle/pkg/fle"
)

// EncryptionTransform encrypts request payloads and decrypts response
// payloads through the binding chosen for its config.
type EncryptionTransform struct {
	cfg     *fle.Config
	binding Binding
}

// NewEncryptionTransform returns the transform for cfg.
func NewEncryptionTransform(cfg *fle.Config) *EncryptionTransform {
	return &EncryptionTransform{cfg: cfg, binding: ForConfig(cfg)}
}

func (t *EncryptionTransform) Name() string { return "encryption" }

// TransformRequest encrypts a non-empty body under fresh params.
func (t *EncryptionTransform) TransformRequest(ctx context.Context, m *Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	p, err := t.binding.Outbound(ctx, t.cfg, m.Header)
	if err != nil {
		return err
	}
	enc, err := fle.EncryptPayload(m.Body, t.cfg, p)
	if err != nil {
		return err
	}
	m.Body = enc
	m.Header.Set("Content-Type", "application/json")

	return nil
}

// TransformResponse decrypts an encrypted body. Clear text bodies, such as
// error responses, are passed through.
func (t *EncryptionTransform) TransformResponse(ctx context.Context, m *Message) error {
	var (
		p   *fle.Params
		err error
	)
	if t.cfg.UseHTTPHeaders() {
		// Headers are read and stripped even when the body is clear. GET
		// responses may rely on params kept in the exchange instead.
		p, err = t.binding.Inbound(ctx, t.cfg, m.Header)
		if err != nil && !errors.Is(err, ErrNoHeaderParams) {
			return err
		}
	}
	if !fle.IsEncrypted(m.Body, t.cfg) {
		return nil
	}
	if p == nil {
		if p, err = exchangeParams(ctx); err != nil {
			return err
		}
	}

	dec, err := fle.DecryptPayload(m.Body, t.cfg, p)
	if err != nil {
		return err
	}
	m.Body = dec

	return nil
}

func exchangeParams(ctx context.Context) (*fle.Params, error) {
	ex, ok := fle.ExchangeFrom(ctx)
	if !ok {
		return nil, fle.ErrTransportCorrelationMissing
	}

	return ex.RequireParams()
}
