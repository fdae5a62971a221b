// Package message parses the payloads of the TCP PIN service commands.
package message

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned for payloads that do not match their layout.
var ErrMalformed = errors.New("malformed message")

// Message defines the interface for service messages.
type Message interface {
	Get(field string) []byte
	Set(field string, val []byte)
	CommandCode() string
	Trace() string
}

// BaseMessage implements Message and holds command fields in arrival order.
type BaseMessage struct {
	cmdCode     string
	description string
	order       []string
	sensitive   map[string]bool
	Fields      map[string][]byte
}

// NewBaseMessage creates a new BaseMessage with the given code and description.
func NewBaseMessage(cmdCode, description string) *BaseMessage {
	return &BaseMessage{
		cmdCode:     cmdCode,
		description: description,
		sensitive:   make(map[string]bool),
		Fields:      make(map[string][]byte),
	}
}

func (m *BaseMessage) Get(field string) []byte {
	return m.Fields[field]
}

func (m *BaseMessage) Set(field string, val []byte) {
	if _, ok := m.Fields[field]; !ok {
		m.order = append(m.order, field)
	}
	m.Fields[field] = val
}

// SetSensitive stores a field whose value Trace masks.
func (m *BaseMessage) SetSensitive(field string, val []byte) {
	m.Set(field, val)
	m.sensitive[field] = true
}

func (m *BaseMessage) CommandCode() string {
	return m.cmdCode
}

func (m *BaseMessage) Description() string {
	return m.description
}

// Trace renders the fields for debug logs, masking sensitive values.
func (m *BaseMessage) Trace() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Command: %s (%s)\n", m.cmdCode, m.description)
	for _, k := range m.order {
		v := string(m.Fields[k])
		if m.sensitive[k] {
			v = strings.Repeat("*", len(v))
		}
		fmt.Fprintf(&buf, "\t[%s]=%s\n", k, v)
	}

	return buf.String()
}
