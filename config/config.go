package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cloudx-io/opennegotiation/party"
)

// EnvPrefix prefixes every environment override, e.g. OPENNEGOTIATION_SERVER_ADDRESS.
const EnvPrefix = "OPENNEGOTIATION"

// Listener networks.
const (
	NetworkTCP   = "tcp"
	NetworkVsock = "vsock"
)

// Config represents the full party service configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Party   PartyConfig   `mapstructure:"party"`
	Profile ProfileConfig `mapstructure:"profile"`
	Receipt ReceiptConfig `mapstructure:"receipt"`
	Store   StoreConfig   `mapstructure:"store"`
}

// ServerConfig contains listener settings
type ServerConfig struct {
	Network    string `mapstructure:"network"` // tcp or vsock
	Address    string `mapstructure:"address"`
	VsockPort  uint32 `mapstructure:"vsock_port"`
	MaxWorkers int    `mapstructure:"max_workers"` // concurrent sessions
}

// PartyConfig selects the negotiation strategy
type PartyConfig struct {
	Strategy string `mapstructure:"strategy"`
	Seed     uint64 `mapstructure:"seed"` // 0 draws from crypto/rand
}

// ProfileConfig restricts where profiles may be read from
type ProfileConfig struct {
	Dir string `mapstructure:"dir"`
}

// ReceiptConfig controls session receipts
type ReceiptConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Attest  bool `mapstructure:"attest"` // requires a Nitro enclave
}

// StoreConfig locates the receipt database
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// NewViper returns a viper instance that reads cfgFile, when given, and
// OPENNEGOTIATION_* environment variables. A missing default config file is
// not an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(".opennegotiation")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers every key so environment variables can override it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.network", NetworkTCP)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.vsock_port", 5000)
	v.SetDefault("server.max_workers", 16)
	v.SetDefault("party.strategy", party.StrategyOHelper)
	v.SetDefault("party.seed", 0)
	v.SetDefault("profile.dir", "")
	v.SetDefault("receipt.enabled", false)
	v.SetDefault("receipt.attest", false)
	v.SetDefault("store.dsn", "receipts.db")
}

// Load unmarshals the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Server.Network == "" {
		cfg.Server.Network = NetworkTCP
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Server.VsockPort == 0 {
		cfg.Server.VsockPort = 5000
	}

	if cfg.Server.MaxWorkers <= 0 {
		cfg.Server.MaxWorkers = 16
	}

	if cfg.Party.Strategy == "" {
		cfg.Party.Strategy = party.StrategyOHelper
	}

	if cfg.Store.DSN == "" {
		cfg.Store.DSN = "receipts.db"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Server.Network {
	case NetworkTCP, NetworkVsock:
	default:
		return fmt.Errorf("invalid server network: %s (must be tcp or vsock)", c.Server.Network)
	}

	if _, err := party.NewStrategy(c.Party.Strategy, nil); err != nil {
		return fmt.Errorf("invalid party strategy: %w", err)
	}

	if c.Receipt.Attest && !c.Receipt.Enabled {
		return fmt.Errorf("receipt.attest requires receipt.enabled")
	}

	return nil
}

// ValidateServe adds the checks that apply when parties are served to remote
// hosts, which choose the profile each session loads.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Profile.Dir == "" {
		return fmt.Errorf("profile.dir is required to serve parties")
	}
	return nil
}
