package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cloudx-io/opennegotiation/config"
)

var (
	cfgFile string
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "party",
	Short: "Negotiation party with AC_Combi acceptance and receipts",
	Long: `party runs automated negotiation parties.

Each websocket connection to the server hosts one negotiation session. The
party decides with the AC_Combi acceptance condition and a reservation-anchored
bidding curve, and can sign a receipt of every finished session.

Example:
  party serve --address :8080 --receipts
  party run-local --profile-a buyer.json --profile-b seller.json`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		v, err = config.NewViper(cfgFile)
		if err != nil {
			return err
		}
		return bindFlags(cmd)
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .opennegotiation.yaml)")
	rootCmd.PersistentFlags().String("strategy", "", "strategy: o-helper or random")
	rootCmd.PersistentFlags().Uint64("seed", 0, "random seed (0 uses crypto/rand)")
	rootCmd.PersistentFlags().String("profile-dir", "", "directory profiles must be read from")
}

// flagKeys maps flags to config keys.
var flagKeys = map[string]string{
	"strategy":    "party.strategy",
	"seed":        "party.seed",
	"profile-dir": "profile.dir",
	"network":     "server.network",
	"address":     "server.address",
	"vsock-port":  "server.vsock_port",
	"max-workers": "server.max_workers",
	"receipts":    "receipt.enabled",
	"attest":      "receipt.attest",
	"store":       "store.dsn",
}

// bindFlags lets explicitly set flags override file and environment values.
func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
