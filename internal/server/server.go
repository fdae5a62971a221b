// Package server exposes PIN protection over the framed TCP protocol
// spoken by payment switches: two-character command, payload, and a
// response carrying the next command code and a two-character result.
package server

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	anetserver "github.com/andrei-cloud/anet/server"
	"github.com/andrei-cloud/go_fle/internal/errorcodes"
	"github.com/andrei-cloud/go_fle/internal/logging"
	"github.com/andrei-cloud/go_fle/internal/message"
	"github.com/andrei-cloud/go_fle/internal/pinprotect"
	"github.com/andrei-cloud/go_fle/pkg/pinblock"
	"github.com/rs/zerolog/log"
)

const firmware = "0001-F000"

// logAdapter implements anet.Logger using zerolog.
type logAdapter struct{}

func (l logAdapter) Print(v ...any) {
	log.Info().Msg(fmt.Sprint(v...))
}

func (l logAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Infof(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Warnf(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func (l logAdapter) Errorf(format string, v ...any) {
	log.Error().Msgf(format, v...)
}

type command struct {
	parse func(data []byte) (*message.BaseMessage, error)
	run   func(m *message.BaseMessage) ([]byte, error)
}

// Server wraps the anet TCP server and the PIN encrypter.
type Server struct {
	address     string
	srv         *anetserver.Server
	encrypter   *pinprotect.Encrypter
	commands    map[string]command
	activeConns int32
}

// NewServer configures a server listening on address. enc encrypts the
// PINs received with the PE command.
func NewServer(address string, enc *pinprotect.Encrypter) (*Server, error) {
	cfg := &anetserver.ServerConfig{
		MaxConns:        100,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     0 * time.Second, // disable idle connection closure.
		ShutdownTimeout: 5 * time.Second,
		Logger:          logAdapter{},
	}

	s := &Server{address: address, encrypter: enc}
	s.commands = map[string]command{
		"PE": {parse: message.NewPE, run: s.encryptPin},
		"NC": {parse: message.NewNC, run: s.diagnostics},
	}

	srv, err := anetserver.NewServer(address, anetserver.HandlerFunc(s.handle), cfg)
	if err != nil {
		return nil, fmt.Errorf("server setup failed: %w", err)
	}
	s.srv = srv

	return s, nil
}

// Start begins listening for connections. It blocks until Stop.
func (s *Server) Start() error {
	log.Info().Str("address", s.address).Msg("server started")

	return s.srv.Start()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	return s.srv.Stop()
}

// incrementCode returns the response code by incrementing the second character.
func incrementCode(cmd string) string {
	b := []byte(cmd)
	if len(b) < 2 {
		return cmd
	}
	if b[1] == 'Z' {
		b[1] = 'A'
	} else {
		b[1]++
	}

	return string(b)
}

// resultCode maps an execution error to its two-character code.
func resultCode(err error) errorcodes.ServiceError {
	var se errorcodes.ServiceError
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, pinprotect.ErrInvalidPinLength), errors.Is(err, pinblock.ErrInvalidPinLength):
		return errorcodes.Err24
	case errors.Is(err, pinblock.ErrInvalidPan):
		return errorcodes.Err22
	case errors.Is(err, pinblock.ErrInvalidPin), errors.Is(err, message.ErrMalformed):
		return errorcodes.Err15
	default:
		return errorcodes.Err42
	}
}

func (s *Server) handle(conn *anetserver.ServerConn, data []byte) ([]byte, error) {
	client := conn.Conn.RemoteAddr().String()
	active := int(atomic.AddInt32(&s.activeConns, 1))
	defer atomic.AddInt32(&s.activeConns, -1)

	start := time.Now()
	if len(data) < 2 {
		log.Error().Str("client_ip", client).Msg("malformed request")

		return nil, message.ErrMalformed
	}

	cmd := string(data[:2])
	resp, code, description := s.execute(cmd, data[2:])
	// Requests carry clear PINs, so only their size is logged.
	logging.LogRequest(client, cmd, description, len(data)-2, active)
	logging.LogResponse(client, cmd, string(resp[:2]), resp, code, active)

	log.Debug().
		Str("event", "handle_done").
		Str("command", cmd).
		Str("duration", time.Since(start).String()).
		Msg("completed request handling")

	return resp, nil
}

// execute runs cmd and returns the full response with its numeric result
// code and the command description.
func (s *Server) execute(cmd string, payload []byte) ([]byte, int, string) {
	respCode := incrementCode(cmd)

	c, ok := s.commands[cmd]
	if !ok {
		log.Warn().
			Str("event", "unknown_command").
			Str("command", cmd).
			Msg("command not recognized, responding with error code")

		return []byte(respCode + errorcodes.Err68.CodeOnly()), 68, "unknown"
	}

	m, err := c.parse(payload)
	description := cmd
	if err == nil {
		description = m.Description()
		log.Debug().
			Str("event", "request_parsed").
			Str("trace", m.Trace()).
			Msg("parsed command")
		var out []byte
		if out, err = c.run(m); err == nil {
			return append([]byte(respCode+errorcodes.Err00.CodeOnly()), out...), 0, description
		}
	}

	se := resultCode(err)
	log.Error().
		Str("event", "command_error").
		Str("command", cmd).
		Str("error_code", se.CodeOnly()).
		Err(err).
		Msg("command execution failed")
	n, _ := strconv.Atoi(se.CodeOnly())

	return []byte(respCode + se.CodeOnly()), n, description
}

// encryptPin handles PE. The response carries the 4-digit length of the
// encrypted key hex, the key, then the encrypted block.
func (s *Server) encryptPin(m *message.BaseMessage) ([]byte, error) {
	epb, err := s.encrypter.EncryptPin(string(m.Get("PIN")), string(m.Get("PAN")))
	if err != nil {
		return nil, err
	}

	return fmt.Appendf(nil, "%04d%s%s", len(epb.EncryptedKey), epb.EncryptedKey, epb.EncryptedBlock), nil
}

func (s *Server) diagnostics(_ *message.BaseMessage) ([]byte, error) {
	return []byte(firmware), nil
}
