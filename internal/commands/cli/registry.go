// Package cli provides centralized command registration.
package cli

import (
	"fmt"

	"github.com/andrei-cloud/go_fle/internal/commands/cli/call"
	"github.com/andrei-cloud/go_fle/internal/commands/cli/peer"
	"github.com/andrei-cloud/go_fle/internal/commands/cli/pin"
	"github.com/andrei-cloud/go_fle/internal/commands/cli/server"
	"github.com/spf13/cobra"
)

// RegisterCommands registers all root commands.
func RegisterCommands(root *cobra.Command) error {
	pinCmd, err := pin.NewPinCommand()
	if err != nil {
		return fmt.Errorf("failed to create pin command: %w", err)
	}
	root.AddCommand(pinCmd)

	root.AddCommand(server.NewServeCommand())
	root.AddCommand(peer.NewPeerCommand())
	root.AddCommand(call.NewCallCommand())

	return nil
}
