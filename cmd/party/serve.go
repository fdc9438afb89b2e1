package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudx-io/opennegotiation/profile"
	"github.com/cloudx-io/opennegotiation/receipt"
	"github.com/cloudx-io/opennegotiation/server"
	"github.com/cloudx-io/opennegotiation/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve negotiation sessions over websocket",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("network", "", "listener network: tcp or vsock")
	serveCmd.Flags().String("address", "", "tcp listen address")
	serveCmd.Flags().Uint32("vsock-port", 0, "vsock listen port")
	serveCmd.Flags().Int("max-workers", 0, "maximum concurrent sessions")
	serveCmd.Flags().Bool("receipts", false, "sign and store a receipt of every session")
	serveCmd.Flags().Bool("attest", false, "attest receipts with the Nitro Security Module")
	serveCmd.Flags().String("store", "", "receipt database (SQLite DSN)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var opts []server.Option
	if cfg.Receipt.Enabled {
		st, err := store.NewSQLiteStore(cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer st.Close()

		keyManager, err := receipt.NewKeyManager()
		if err != nil {
			return fmt.Errorf("failed to initialize key manager: %w", err)
		}
		log.Printf("INFO: KeyManager initialized")

		var recorderOpts []receipt.RecorderOption
		if cfg.Receipt.Attest {
			attester, err := receipt.NewNSMAttester()
			if err != nil {
				return err
			}
			recorderOpts = append(recorderOpts, receipt.WithAttester(attester))
			log.Printf("INFO: NSM attester initialized")
		}

		opts = append(opts,
			server.WithStore(st),
			server.WithRecorder(receipt.NewRecorder(keyManager, st, recorderOpts...)),
		)
	}

	srv := server.New(cfg, profile.Opener{Dir: cfg.Profile.Dir}, opts...)

	listener, err := server.Listen(cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("INFO: Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
