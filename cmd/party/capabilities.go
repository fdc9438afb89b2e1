package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudx-io/opennegotiation/party"
	"github.com/cloudx-io/opennegotiation/partyapi"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Print the name, description and capabilities of the configured strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		strategy, err := party.NewStrategy(cfg.Party.Strategy, nil)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(partyapi.InfoFor(strategy), "", "  ")
		if err != nil {
			return fmt.Errorf("encode capabilities: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}
