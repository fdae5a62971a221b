// Package peer provides the command running the HTTP peer simulator.
package peer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrei-cloud/go_fle/internal/config"
	peerapi "github.com/andrei-cloud/go_fle/internal/peer"
	"github.com/andrei-cloud/go_fle/pkg/fle"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewPeerCommand creates the peer command.
func NewPeerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Run an HTTP stand-in for the issuing API",
		Long: `Run an HTTP server that decrypts requests with the issuer's private key and
answers with encrypted payloads, for exercising the client without the real API.
Routes: GET /ping, POST /echo, POST /pin/verify.`,
		RunE: runPeer,
	}

	cmd.Flags().String("host", "localhost", "Listen host")
	cmd.Flags().Int("port", 8080, "Listen port")

	config.BindFlag("peer.host", cmd.Flags().Lookup("host"))
	config.BindFlag("peer.port", cmd.Flags().Lookup("port"))

	return cmd
}

// newAPI builds the peer from configuration: the issuer's private key
// decrypts requests and PIN blocks, the client's certificate protects
// header mode responses.
func newAPI(cfg *config.Config) (*peerapi.API, error) {
	if cfg.Peer.PrivateKey.File == "" || cfg.Peer.ClientCertificate.File == "" {
		return nil, fmt.Errorf("%w: peer.private_key.file and peer.client_certificate.file are required", fle.ErrConfiguration)
	}

	key, err := fle.LoadDecryptionKey(cfg.Peer.PrivateKey.File, cfg.Peer.PrivateKey.Password)
	if err != nil {
		return nil, err
	}
	crypto, err := fle.FromSettings(fle.Settings{
		CertificateFile:     cfg.Peer.ClientCertificate.File,
		OaepDigestAlgorithm: cfg.Encryption.OaepAlgorithm,
		Transport:           cfg.Encryption.Transport,
	}, fle.WithDecryptionKey(key))
	if err != nil {
		return nil, err
	}
	opts, err := cfg.PinOptions()
	if err != nil {
		return nil, err
	}

	return peerapi.NewAPI(crypto, key, opts...), nil
}

func runPeer(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()
	api, err := newAPI(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.PeerAddress(),
		Handler:           peerapi.NewRouter(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().
			Str("event", "peer_started").
			Str("address", srv.Addr).
			Str("transport", cfg.Encryption.Transport).
			Msg("peer simulator listening")
		errChan <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("peer server: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down peer...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
