// Package client builds HTTP clients that speak field level encryption to
// the issuing API and offers a small JSON call helper on top of them.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/andrei-cloud/go_fle/internal/transport"
	"github.com/andrei-cloud/go_fle/pkg/fle"
	"golang.org/x/crypto/pkcs12"
)

const defaultTimeout = 30 * time.Second

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Settings configure an HTTP client.
type Settings struct {
	BasePath         string
	Timeout          time.Duration
	Debug            bool
	KeystoreFile     string
	KeystorePassword string
	// Encryption enables the encryption pipeline when set.
	Encryption *fle.Config
}

// NewHTTPClient returns an http.Client presenting the keystore's
// certificate and running the encryption pipeline around every call.
func NewHTTPClient(s Settings) (*http.Client, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if s.KeystoreFile != "" {
		cert, err := loadKeystore(s.KeystoreFile, s.KeystorePassword)
		if err != nil {
			return nil, err
		}
		base.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &http.Client{
		Transport: transport.NewRoundTripper(base, NewPipeline(s)),
		Timeout:   timeout,
	}, nil
}

// NewPipeline returns the transforms for s: GET headers and encryption
// when an encryption config is set, then logging in debug mode.
func NewPipeline(s Settings) *transport.Pipeline {
	p := transport.NewPipeline()
	if s.Encryption != nil {
		p.Use(transport.NewGetHeaderTransform(s.Encryption))
		p.Use(transport.NewEncryptionTransform(s.Encryption))
	}
	if s.Debug {
		p.Use(transport.NewLoggingTransform())
	}

	return p
}

func loadKeystore(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read keystore: %w", err)
	}
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode keystore %s: %w", path, err)
	}

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

// StatusError reports a non 2xx answer with its clear text body.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %d %s", ErrUnexpectedStatus, e.StatusCode, strings.TrimSpace(string(e.Body)))
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client calls JSON endpoints below a base path.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client. A nil hc gets a plain client with the default timeout.
func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

// Do sends body to path and returns the decrypted response payload.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+strings.TrimLeft(path, "/"), rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: out}
	}

	return out, nil
}
