package fle

import (
	"context"
	"sync"
)

// Exchange holds the state of one request/response pair. It replaces a
// per-thread store: the caller creates it, threads it through the outbound
// and inbound legs, and clears it when the exchange ends.
type Exchange struct {
	mu     sync.Mutex
	params *Params
	values map[string]any
}

type exchangeKey struct{}

// NewExchange returns an empty exchange.
func NewExchange() *Exchange {
	return &Exchange{values: make(map[string]any)}
}

// WithExchange returns a copy of ctx carrying ex.
func WithExchange(ctx context.Context, ex *Exchange) context.Context {
	return context.WithValue(ctx, exchangeKey{}, ex)
}

// ExchangeFrom returns the exchange carried by ctx, if any.
func ExchangeFrom(ctx context.Context) (*Exchange, bool) {
	ex, ok := ctx.Value(exchangeKey{}).(*Exchange)

	return ex, ok && ex != nil
}

// Fork returns a new exchange holding a copy of e's values and no params.
// Requests derived from one context each fork its exchange, so their params
// never share a slot.
func (e *Exchange) Fork() *Exchange {
	e.mu.Lock()
	defer e.mu.Unlock()

	f := NewExchange()
	for k, v := range e.values {
		f.values[k] = v
	}

	return f
}

// SetParams stores the params generated for the outbound leg, replacing any
// previous value.
func (e *Exchange) SetParams(p *Params) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = p
}

// Params returns the stored params or nil.
func (e *Exchange) Params() *Params {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.params
}

// RequireParams returns the stored params or ErrTransportCorrelationMissing.
func (e *Exchange) RequireParams() (*Params, error) {
	if p := e.Params(); p != nil {
		return p, nil
	}

	return nil, ErrTransportCorrelationMissing
}

// Put stores an arbitrary value under key.
func (e *Exchange) Put(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = value
}

// Get returns the value stored under key.
func (e *Exchange) Get(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.values[key]

	return v, ok
}

// Clear drops the params and every value.
func (e *Exchange) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = nil
	clear(e.values)
}
