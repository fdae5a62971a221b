// Package call provides the command sending payloads through the
// encryption pipeline.
package call

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/andrei-cloud/go_fle/internal/client"
	"github.com/andrei-cloud/go_fle/internal/config"
	"github.com/andrei-cloud/go_fle/pkg/fle"
	"github.com/spf13/cobra"
)

// clients is shared by every call made from this process.
var clients = client.NewCache()

// NewCallCommand creates the call command.
func NewCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call PATH",
		Short: "Send a JSON payload through the encryption pipeline",
		Long: `Send a JSON payload to the issuing API (or the peer simulator). The payload is
encrypted before it leaves and the response is decrypted before it is printed.`,
		Example: `  go_fle call /echo --data '{"cardNumber":"5555444433332226"}'
  go_fle call /ping --method GET`,
		Args: cobra.ExactArgs(1),
		RunE: runCall,
	}

	cmd.Flags().String("method", http.MethodPost, "HTTP method")
	cmd.Flags().String("data", "", "JSON payload")
	cmd.Flags().String("file", "", "read the JSON payload from a file")
	cmd.Flags().String("base-path", "", "API base path")
	cmd.Flags().Bool("debug", false, "log every request and response")
	cmd.MarkFlagsMutuallyExclusive("data", "file")

	config.BindFlag("client.base_path", cmd.Flags().Lookup("base-path"))
	config.BindFlag("client.debug", cmd.Flags().Lookup("debug"))

	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	method, _ := cmd.Flags().GetString("method")
	body, err := payload(cmd)
	if err != nil {
		return err
	}

	cfg := config.Get()
	hc, err := clients.Get(cfg.MTLS.Keystore.File, func() (*http.Client, error) {
		enc, err := fle.FromSettings(cfg.EncryptionSettings())
		if err != nil {
			return nil, err
		}

		return client.NewHTTPClient(cfg.ClientSettings(enc))
	})
	if err != nil {
		return err
	}

	out, err := client.New(cfg.Client.BasePath, hc).Do(cmd.Context(), strings.ToUpper(method), args[0], body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, out, "", "  ") == nil {
		out = pretty.Bytes()
	}
	cmd.Println(string(out))

	return nil
}

func payload(cmd *cobra.Command) ([]byte, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}

		return data, nil
	}
	data, _ := cmd.Flags().GetString("data")
	if data != "" && !json.Valid([]byte(data)) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}

	return []byte(data), nil
}
