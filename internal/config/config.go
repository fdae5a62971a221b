// Package config loads go_fle settings with viper: a YAML file, GOFLE_*
// environment variables and bound command line flags, over defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andrei-cloud/go_fle/internal/client"
	"github.com/andrei-cloud/go_fle/internal/pinprotect"
	"github.com/andrei-cloud/go_fle/pkg/fle"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configData Config
	v          *viper.Viper
	flags      = map[string][]*pflag.Flag{}
)

// BindFlag makes flag override key once it is set on the command line.
// Several commands may bind the same key; the flag actually set wins.
// Bindings take effect on the next Initialize.
func BindFlag(key string, flag *pflag.Flag) {
	if flag != nil {
		flags[key] = append(flags[key], flag)
	}
}

// ResetFlags drops every flag binding.
func ResetFlags() {
	flags = map[string][]*pflag.Flag{}
}

func boundFlag(candidates []*pflag.Flag) *pflag.Flag {
	for _, f := range candidates {
		if f.Changed {
			return f
		}
	}

	return candidates[0]
}

// KeyFile locates a private key and the password protecting it.
type KeyFile struct {
	File     string
	Password string
	Alias    string
}

// Config holds all configuration settings.
type Config struct {
	// Server configuration
	Server struct {
		Host string
		Port int
	}
	// Logging configuration
	Log struct {
		Level  string
		Format string
	}
	// Client configuration
	Client struct {
		BasePath string `mapstructure:"base_path"`
		Debug    bool
		Timeout  time.Duration
	}
	// Mutual TLS configuration
	MTLS struct {
		Keystore KeyFile
	} `mapstructure:"mtls"`
	// Field level encryption configuration
	Encryption struct {
		Certificate struct {
			File        string
			Fingerprint string
		}
		OaepAlgorithm string `mapstructure:"oaep_algorithm"`
		Transport     string
		DecryptionKey KeyFile `mapstructure:"decryption_key"`
	}
	// PIN protection configuration
	Pin struct {
		PublicKey struct {
			File string
		} `mapstructure:"public_key"`
		Transformation string
		KeyAlgorithm   string `mapstructure:"key_algorithm"`
		KeyBits        int    `mapstructure:"key_bits"`
		BlockEncoding  string `mapstructure:"block_encoding"`
	}
	// Peer simulator configuration
	Peer struct {
		Host       string
		Port       int
		PrivateKey struct {
			File     string
			Password string
		} `mapstructure:"private_key"`
		ClientCertificate struct {
			File string
		} `mapstructure:"client_certificate"`
	}
}

// Initialize sets up the configuration system. A non-empty cfgFile replaces
// the search path.
func Initialize(cfgFile string) error {
	v = viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")        // name of config file (without extension)
		v.SetConfigType("yaml")          // config file type
		v.AddConfigPath(".")             // optionally look for config in working directory
		v.AddConfigPath("$HOME/.go_fle") // look for config in .go_fle directory in home
		v.AddConfigPath("/etc/go_fle/")  // path to look for the config file in
	}

	setDefaults()
	for key, candidates := range flags {
		flag := boundFlag(candidates)
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag.Name, err)
		}
	}

	// Environment variables
	v.SetEnvPrefix("GOFLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile == "" {
		if err := ensureConfig(); err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Defaults apply when no config file is found.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	configData = Config{}
	if err := v.Unmarshal(&configData); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return nil
}

// setDefaults sets default values for all configuration options.
func setDefaults() {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 1500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "human")

	v.SetDefault("client.base_path", "http://localhost:8080")
	v.SetDefault("client.debug", false)
	v.SetDefault("client.timeout", "30s")

	v.SetDefault("mtls.keystore.file", "")
	v.SetDefault("mtls.keystore.password", "")

	v.SetDefault("encryption.certificate.file", "")
	v.SetDefault("encryption.certificate.fingerprint", "")
	v.SetDefault("encryption.oaep_algorithm", "SHA-512")
	v.SetDefault("encryption.transport", fle.UseHeaders.String())
	v.SetDefault("encryption.decryption_key.file", "")
	v.SetDefault("encryption.decryption_key.password", "")
	v.SetDefault("encryption.decryption_key.alias", "")

	v.SetDefault("pin.public_key.file", "")
	v.SetDefault("pin.transformation", pinprotect.DefaultTransformation)
	v.SetDefault("pin.key_algorithm", "DESede")
	v.SetDefault("pin.key_bits", pinprotect.KeyBits168)
	v.SetDefault("pin.block_encoding", pinprotect.BlockHex.String())

	v.SetDefault("peer.host", "localhost")
	v.SetDefault("peer.port", 8080)
	v.SetDefault("peer.private_key.file", "")
	v.SetDefault("peer.private_key.password", "")
	v.SetDefault("peer.client_certificate.file", "")
}

// ensureConfig creates a default config file if none exists.
func ensureConfig() error {
	dir := filepath.Join(os.Getenv("HOME"), ".go_fle")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		defaultConfig := `# GO FLE Configuration File
server:
  host: localhost
  port: 1500

log:
  level: info
  format: human

client:
  base_path: http://localhost:8080
  debug: false
  timeout: 30s

encryption:
  oaep_algorithm: SHA-512
  transport: headers

pin:
  transformation: DESede/ECB/NoPadding
  key_bits: 168
  block_encoding: hex

peer:
  host: localhost
  port: 8080
`
		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o644); err != nil {
			return err
		}
	}

	return nil
}

// Get returns the current configuration.
func Get() *Config {
	return &configData
}

// GetViper returns the viper instance.
func GetViper() *viper.Viper {
	return v
}

// EncryptionSettings returns the field level encryption inputs.
func (c *Config) EncryptionSettings() fle.Settings {
	return fle.Settings{
		CertificateFile:        c.Encryption.Certificate.File,
		CertificateFingerprint: c.Encryption.Certificate.Fingerprint,
		OaepDigestAlgorithm:    c.Encryption.OaepAlgorithm,
		Transport:              c.Encryption.Transport,
		DecryptionKeyFile:      c.Encryption.DecryptionKey.File,
		DecryptionKeyPassword:  c.Encryption.DecryptionKey.Password,
		DecryptionKeyAlias:     c.Encryption.DecryptionKey.Alias,
	}
}

// ClientSettings returns the HTTP client inputs. enc may be nil to disable
// encryption.
func (c *Config) ClientSettings(enc *fle.Config) client.Settings {
	return client.Settings{
		BasePath:         c.Client.BasePath,
		Timeout:          c.Client.Timeout,
		Debug:            c.Client.Debug,
		KeystoreFile:     c.MTLS.Keystore.File,
		KeystorePassword: c.MTLS.Keystore.Password,
		Encryption:       enc,
	}
}

// PinOptions turns the pin settings into encrypter options. A key algorithm
// set without a transformation selects ECB without padding.
func (c *Config) PinOptions() ([]pinprotect.Option, error) {
	transformation := c.Pin.Transformation
	if transformation == "" && c.Pin.KeyAlgorithm != "" {
		transformation = c.Pin.KeyAlgorithm + "/ECB/NoPadding"
	}
	t, err := pinprotect.ParseTransformation(transformation)
	if err != nil {
		return nil, err
	}
	if c.Pin.KeyAlgorithm != "" {
		alg, err := pinprotect.ParseTransformation(c.Pin.KeyAlgorithm + "/ECB/NoPadding")
		if err != nil {
			return nil, err
		}
		if alg.Algorithm != t.Algorithm {
			return nil, fmt.Errorf(
				"pin key algorithm %s does not match transformation %s",
				c.Pin.KeyAlgorithm,
				t,
			)
		}
	}
	enc, err := pinprotect.ParseBlockEncoding(c.Pin.BlockEncoding)
	if err != nil {
		return nil, err
	}

	opts := []pinprotect.Option{
		pinprotect.WithTransformation(t.String()),
		pinprotect.WithBlockEncoding(enc),
	}
	if c.Pin.KeyBits != 0 {
		opts = append(opts, pinprotect.WithKeyBits(c.Pin.KeyBits))
	}

	return opts, nil
}

// ServerAddress returns host:port of the TCP PIN service.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// PeerAddress returns host:port of the peer simulator.
func (c *Config) PeerAddress() string {
	return fmt.Sprintf("%s:%d", c.Peer.Host, c.Peer.Port)
}
