package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/andrei-cloud/go_fle/pkg/fle"
)

// RoundTripper runs a Pipeline around a base http.RoundTripper. Each call
// is one exchange with its own params slot: an exchange carried by the
// request context is forked, never written to, and the call's exchange is
// cleared before returning whatever the outcome.
type RoundTripper struct {
	base     http.RoundTripper
	pipeline *Pipeline
}

// NewRoundTripper wraps base. A nil base means http.DefaultTransport.
func NewRoundTripper(base http.RoundTripper, p *Pipeline) *RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	return &RoundTripper{base: base, pipeline: p}
}

// RoundTrip implements http.RoundTripper.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	ex := fle.NewExchange()
	if parent, ok := fle.ExchangeFrom(ctx); ok {
		ex = parent.Fork()
	}
	ctx = fle.WithExchange(ctx, ex)
	defer ex.Clear()

	body, err := drain(req.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	out := &Message{
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header.Clone(),
		Body:   body,
	}
	if err := rt.pipeline.Outbound(ctx, out); err != nil {
		return nil, err
	}

	outReq := req.Clone(ctx)
	outReq.Header = out.Header
	setRequestBody(outReq, out.Body)

	resp, err := rt.base.RoundTrip(outReq)
	if err != nil {
		return nil, err
	}

	respBody, err := drain(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	in := &Message{
		Method:     req.Method,
		URL:        req.URL,
		Header:     resp.Header,
		Body:       respBody,
		StatusCode: resp.StatusCode,
	}
	if err := rt.pipeline.Inbound(ctx, in); err != nil {
		return nil, err
	}

	resp.Header = in.Header
	resp.Body = io.NopCloser(bytes.NewReader(in.Body))
	resp.ContentLength = int64(len(in.Body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(in.Body)))

	return resp, nil
}

func drain(rc io.ReadCloser) ([]byte, error) {
	if rc == nil || rc == http.NoBody {
		return nil, nil
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func setRequestBody(req *http.Request, body []byte) {
	req.ContentLength = int64(len(body))
	if len(body) == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }

		return
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}
