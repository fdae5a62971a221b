package logging

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the zerolog logger with the specified debug mode and output format.
func InitLogger(debug, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano                 // always initialize base logger with timestamp.
	base := zerolog.New(os.Stdout).With().Timestamp().Logger() // initialize base logger.
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339Nano,
		}) // select output format.
	} else {
		log.Logger = base // use JSON logger.
	}
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel) // set debug level.
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel) // set info level.
	}
}

// LogRequest logs a received command with structured fields. The payload
// itself is never logged since it may hold a clear PIN.
func LogRequest(
	clientIP string,
	command string,
	description string,
	payloadLen int,
	activeConns int,
) {
	log.Info().
		Str("event", "request_received").
		Str("client_ip", clientIP).
		Str("command", command).
		Str("description", description).
		Int("payload_bytes", payloadLen).
		Int("active_connections", activeConns).
		Msg("received command")
}

// LogResponse logs a sent response with structured fields.
func LogResponse(
	clientIP string,
	command string,
	responseCommand string,
	responseData []byte,
	errorCode int,
	activeConns int,
) {
	hexResp := hex.EncodeToString(responseData)
	log.Info().
		Str("event", "response_sent").
		Str("client_ip", clientIP).
		Str("command", command).
		Str("response_command", responseCommand).
		Str("response_hex", hexResp).
		Int("error_code", errorCode).
		Int("active_connections", activeConns).
		Msg("sent response")
}

// Setup initializes the logger from configuration strings: a zerolog level
// name and "human" or "json".
func Setup(level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var human bool
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "human", "console":
		human = true
	case "json":
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	InitLogger(lvl <= zerolog.DebugLevel, human)
	if lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	return nil
}
