// Package server provides server-related CLI commands.
package server

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrei-cloud/go_fle/internal/config"
	"github.com/andrei-cloud/go_fle/internal/pinprotect"
	"github.com/andrei-cloud/go_fle/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the PIN protection server",
		Long: `Start the TCP server that encrypts PINs for transport (PE command) under
the issuer's RSA public key.`,
		RunE: runServe,
	}

	// Add serve command specific flags that can override config.
	cmd.Flags().String("host", "localhost", "Server host")
	cmd.Flags().Int("port", 1500, "Server port")
	cmd.Flags().String("public-key", "", "issuer RSA public key (PEM)")

	config.BindFlag("server.host", cmd.Flags().Lookup("host"))
	config.BindFlag("server.port", cmd.Flags().Lookup("port"))
	config.BindFlag("pin.public_key.file", cmd.Flags().Lookup("public-key"))

	return cmd
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Get()
	if cfg.Pin.PublicKey.File == "" {
		return fmt.Errorf("pin.public_key.file is required to serve")
	}

	opts, err := cfg.PinOptions()
	if err != nil {
		return err
	}
	// The key is loaded eagerly so a bad file fails at startup.
	pub, err := pinprotect.NewKeyLoader(cfg.Pin.PublicKey.File).PublicKey()
	if err != nil {
		return fmt.Errorf("failed to load PIN public key: %w", err)
	}
	enc, err := pinprotect.NewEncrypter(pub, opts...)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg.ServerAddress(), enc)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stopChan)

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}

		return nil
	case <-stopChan:
	}

	log.Info().Msg("shutting down server...")
	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	return nil
}
