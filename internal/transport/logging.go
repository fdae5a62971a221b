package transport

import (
	"context"
	"time"

	"github.com/andrei-cloud/go_fle/pkg/fle"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CorrelationHeader carries the id tying a request to its response in logs.
const CorrelationHeader = "X-MC-Correlation-ID"

const (
	correlationKey = "correlationId"
	startedKey     = "startedAt"
)

// LoggingTransform logs both legs of an exchange. It runs after encryption
// on the way out and before decryption on the way in, so it only sees
// encrypted payloads.
type LoggingTransform struct{}

// NewLoggingTransform returns a LoggingTransform.
func NewLoggingTransform() *LoggingTransform {
	return &LoggingTransform{}
}

func (t *LoggingTransform) Name() string { return "logging" }

// TransformRequest sets a correlation id when the caller did not and logs
// the request line.
func (t *LoggingTransform) TransformRequest(ctx context.Context, m *Message) error {
	id := m.Header.Get(CorrelationHeader)
	if id == "" {
		id = uuid.NewString()
		m.Header.Set(CorrelationHeader, id)
	}
	if ex, ok := fle.ExchangeFrom(ctx); ok {
		ex.Put(correlationKey, id)
		ex.Put(startedKey, time.Now())
	}

	log.Info().
		Str("event", "request_sent").
		Str("correlation_id", id).
		Str("method", m.Method).
		Str("url", m.URL.String()).
		Int("body_bytes", len(m.Body)).
		Msg("sent request")

	return nil
}

// TransformResponse logs the status line with the request's correlation id.
func (t *LoggingTransform) TransformResponse(ctx context.Context, m *Message) error {
	ev := log.Info().
		Str("event", "response_received").
		Str("method", m.Method).
		Str("url", m.URL.String()).
		Int("status", m.StatusCode).
		Int("body_bytes", len(m.Body))

	id := m.Header.Get(CorrelationHeader)
	if ex, ok := fle.ExchangeFrom(ctx); ok {
		if v, ok := ex.Get(correlationKey); ok && id == "" {
			id, _ = v.(string)
		}
		if v, ok := ex.Get(startedKey); ok {
			if started, ok := v.(time.Time); ok {
				ev = ev.Dur("elapsed", time.Since(started))
			}
		}
	}
	ev.Str("correlation_id", id).Msg("received response")

	return nil
}
