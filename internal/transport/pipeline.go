package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Message is one leg of an exchange as seen by the transforms.
type Message struct {
	Method     string
	URL        *url.URL
	Header     http.Header
	Body       []byte
	StatusCode int // Zero on the outbound leg.
}

// Transform is a named pipeline stage. It takes part in the outbound leg,
// the inbound leg or both by implementing the matching interface.
type Transform interface {
	Name() string
}

// OutboundTransform rewrites a request before it is sent.
type OutboundTransform interface {
	Transform
	TransformRequest(ctx context.Context, m *Message) error
}

// InboundTransform rewrites a response before it is returned.
type InboundTransform interface {
	Transform
	TransformResponse(ctx context.Context, m *Message) error
}

// Pipeline runs outbound transforms in registration order and inbound
// transforms in reverse order.
type Pipeline struct {
	outbound []OutboundTransform
	inbound  []InboundTransform
	size     int
}

// NewPipeline registers each transform on the legs it implements.
func NewPipeline(transforms ...Transform) *Pipeline {
	p := &Pipeline{}
	for _, t := range transforms {
		p.Use(t)
	}

	return p
}

// Use appends t to the pipeline.
func (p *Pipeline) Use(t Transform) {
	p.size++
	if o, ok := t.(OutboundTransform); ok {
		p.outbound = append(p.outbound, o)
	}
	if i, ok := t.(InboundTransform); ok {
		p.inbound = append(p.inbound, i)
	}
}

// Len reports how many transforms are registered.
func (p *Pipeline) Len() int { return p.size }

// Outbound runs the outbound leg.
func (p *Pipeline) Outbound(ctx context.Context, m *Message) error {
	for _, t := range p.outbound {
		if err := t.TransformRequest(ctx, m); err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
	}

	return nil
}

// Inbound runs the inbound leg.
func (p *Pipeline) Inbound(ctx context.Context, m *Message) error {
	for i := len(p.inbound) - 1; i >= 0; i-- {
		t := p.inbound[i]
		if err := t.TransformResponse(ctx, m); err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
	}

	return nil
}
