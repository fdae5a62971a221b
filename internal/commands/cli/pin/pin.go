// Package pin provides the PIN protection commands.
package pin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andrei-cloud/go_fle/internal/config"
	"github.com/andrei-cloud/go_fle/internal/pinprotect"
	"github.com/andrei-cloud/go_fle/pkg/cryptoutils"
	"github.com/andrei-cloud/go_fle/pkg/pinblock"
	"github.com/spf13/cobra"
)

var errNoPublicKey = errors.New("no PIN public key configured (set pin.public_key.file or --public-key)")

// NewPinCommand creates the pin command with subcommands.
func NewPinCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "PIN block and PIN protection operations",
		Long: `Build ISO 9564-1 PIN blocks, generate TDEA session keys and their DER
encoding, and encrypt PINs for transport under the issuer's RSA key.`,
		Example: `  # Build an ISO Format 0 PIN block
  go_fle pin block --pin 1234 --pan 4111111111111111

  # Encrypt a PIN typed at a masked prompt
  go_fle pin encrypt --pan 4111111111111111 --prompt`,
	}

	for _, build := range []func() (*cobra.Command, error){
		newBlockCommand,
		newDecodeCommand,
		newEncryptCommand,
	} {
		sub, err := build()
		if err != nil {
			return nil, err
		}
		cmd.AddCommand(sub)
	}
	cmd.AddCommand(newSessionKeyCommand())
	cmd.AddCommand(newDerCommand())

	return cmd, nil
}

func markRequired(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			return fmt.Errorf("failed to mark %s flag as required: %w", name, err)
		}
	}

	return nil
}

func newBlockCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Build a clear PIN block",
		Long: `Build a clear PIN block. ISO Format 0 accepts 4 to 6 digit PINs and is
the format encrypted for transport; ISO 1 and 3 are offered for testing.`,
		RunE: runBlock,
	}

	cmd.Flags().String("pin", "", "PIN (4-6 digits)")
	cmd.Flags().String("pan", "", "Primary Account Number (card number)")
	cmd.Flags().String("format", "iso0", "PIN block format (iso0, iso1, iso3)")

	return cmd, markRequired(cmd, "pin", "pan")
}

func newDecodeCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Extract the PIN from a clear PIN block",
		RunE:  runDecode,
	}

	cmd.Flags().String("block", "", "PIN block as 16 hex characters")
	cmd.Flags().String("pan", "", "Primary Account Number (card number)")
	cmd.Flags().String("format", "iso0", "PIN block format (iso0, iso1, iso3)")

	return cmd, markRequired(cmd, "block", "pan")
}

func newSessionKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessionkey",
		Short: "Generate a TDEA session key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bits, _ := cmd.Flags().GetInt("bits")
			key, err := pinprotect.GenerateSessionKey(bits)
			if err != nil {
				return err
			}
			kcv, err := cryptoutils.KeyCV([]byte(key), 6)
			if err != nil {
				return err
			}

			cmd.Printf("Session key (%d bits): %s\n", bits, key)
			cmd.Printf("KCV: %s\n", kcv)

			return nil
		},
	}

	cmd.Flags().Int("bits", pinprotect.KeyBits168, "key size (112 or 168)")

	return cmd
}

func newDerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "der",
		Short: "DER encode a session key",
		Long:  `DER encode a session key as sent to the issuer. A fresh key is generated when --key is empty.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bits, _ := cmd.Flags().GetInt("bits")
			key, _ := cmd.Flags().GetString("key")
			if key == "" {
				var err error
				if key, err = pinprotect.GenerateSessionKey(bits); err != nil {
					return err
				}
				cmd.Printf("Session key (%d bits): %s\n", bits, key)
			}

			der, err := pinprotect.DerEncode(bits, key)
			if err != nil {
				return err
			}
			cmd.Printf("DER: %s\n", der)

			return nil
		},
	}

	cmd.Flags().Int("bits", pinprotect.KeyBits168, "key size (112 or 168)")
	cmd.Flags().String("key", "", "session key as hex")

	return cmd
}

func newEncryptCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a PIN for transport",
		Long: `Build the ISO Format 0 block for the PIN, encrypt it under a fresh TDEA
session key and wrap the DER encoded key with the issuer's RSA public key.
The result is printed as the JSON object sent to the issuer.`,
		Example: `  go_fle pin encrypt --pin 1234 --pan 4111111111111111 --public-key issuer.pem
  go_fle pin encrypt --prompt`,
		RunE: runEncrypt,
	}

	cmd.Flags().String("pin", "", "PIN (4-6 digits)")
	cmd.Flags().String("pan", "", "Primary Account Number (card number)")
	cmd.Flags().Bool("prompt", false, "read the PIN (and PAN) from a masked prompt")
	cmd.Flags().String("public-key", "", "issuer RSA public key (PEM)")
	cmd.MarkFlagsMutuallyExclusive("pin", "prompt")
	config.BindFlag("pin.public_key.file", cmd.Flags().Lookup("public-key"))

	return cmd, nil
}

func runBlock(cmd *cobra.Command, _ []string) error {
	pin, _ := cmd.Flags().GetString("pin")
	pan, _ := cmd.Flags().GetString("pan")
	name, _ := cmd.Flags().GetString("format")

	format, err := pinblock.ParseFormat(name)
	if err != nil {
		return err
	}

	var block string
	if format == pinblock.ISO0 {
		block, err = pinprotect.BuildPinBlock(pin, pan)
	} else {
		block, err = pinblock.Encode(pin, pan, format)
	}
	if err != nil {
		return err
	}

	cmd.Printf("PIN block generated (format %s): %s\n", format, block)

	return nil
}

func runDecode(cmd *cobra.Command, _ []string) error {
	block, _ := cmd.Flags().GetString("block")
	pan, _ := cmd.Flags().GetString("pan")
	name, _ := cmd.Flags().GetString("format")

	format, err := pinblock.ParseFormat(name)
	if err != nil {
		return err
	}
	pin, err := pinblock.Decode(block, pan, format)
	if err != nil {
		return err
	}

	cmd.Printf("PIN extracted (format %s): %s\n", format, pin)

	return nil
}

func runEncrypt(cmd *cobra.Command, _ []string) error {
	cfg := config.Get()
	if cfg.Pin.PublicKey.File == "" {
		return errNoPublicKey
	}

	pin, _ := cmd.Flags().GetString("pin")
	pan, _ := cmd.Flags().GetString("pan")
	if prompt, _ := cmd.Flags().GetBool("prompt"); prompt {
		var err error
		if pin, pan, err = promptPin(pan); err != nil {
			return err
		}
	}
	if pin == "" || pan == "" {
		return errors.New("both PIN and PAN are required (use --pin and --pan, or --prompt)")
	}

	opts, err := cfg.PinOptions()
	if err != nil {
		return err
	}
	enc, err := pinprotect.NewLazyEncrypter(pinprotect.NewKeyLoader(cfg.Pin.PublicKey.File), opts...)
	if err != nil {
		return err
	}
	epb, err := enc.EncryptPin(pin, pan)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(epb, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))

	return nil
}
