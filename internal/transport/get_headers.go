package transport

import (
	"context"
	"net/http"

	"github.com/andrei-cloud/go_fle/pkg/fle"
)

// GetHeaderTransform attaches encryption headers to GET requests whatever
// the configured transport, so the peer can encrypt its response. The params
// are kept in the exchange for the inbound leg.
type GetHeaderTransform struct {
	cfg *fle.Config
}

// NewGetHeaderTransform returns the transform for cfg.
func NewGetHeaderTransform(cfg *fle.Config) *GetHeaderTransform {
	return &GetHeaderTransform{cfg: cfg}
}

func (t *GetHeaderTransform) Name() string { return "get-headers" }

// TransformRequest only acts on GET.
func (t *GetHeaderTransform) TransformRequest(ctx context.Context, m *Message) error {
	if m.Method != http.MethodGet {
		return nil
	}

	p, err := fle.GenerateParams(t.cfg)
	if err != nil {
		return err
	}
	WriteHeaders(t.cfg, p, m.Header)
	if ex, ok := fle.ExchangeFrom(ctx); ok {
		ex.SetParams(p)
	}

	return nil
}
