package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
	"github.com/cloudx-io/opennegotiation/profile"
	"github.com/cloudx-io/opennegotiation/saop"
)

var runLocalCmd = &cobra.Command{
	Use:   "run-local",
	Short: "Negotiate two parties against each other in this process",
	Long: `run-local hosts a SAOP session between party A and party B.

Party A runs in-process unless --party-url points at a running server, in
which case that server's party takes seat A.`,
	RunE: runLocal,
}

func init() {
	runLocalCmd.Flags().String("profile-a", "", "profile of party A (required)")
	runLocalCmd.Flags().String("profile-b", "", "profile of party B (required)")
	runLocalCmd.Flags().String("strategy-b", "", "strategy of party B (default: same as --strategy)")
	runLocalCmd.Flags().String("party-url", "", "websocket URL of a remote party for seat A")
	runLocalCmd.Flags().Int("rounds", 100, "rounds per party")
	_ = runLocalCmd.MarkFlagRequired("profile-a")
	_ = runLocalCmd.MarkFlagRequired("profile-b")
	rootCmd.AddCommand(runLocalCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived interrupt signal, stopping session...")
		cancel()
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	profileA, _ := cmd.Flags().GetString("profile-a")
	profileB, _ := cmd.Flags().GetString("profile-b")
	strategyB, _ := cmd.Flags().GetString("strategy-b")
	partyURL, _ := cmd.Flags().GetString("party-url")
	rounds, _ := cmd.Flags().GetInt("rounds")
	if strategyB == "" {
		strategyB = cfg.Party.Strategy
	}

	opener := profile.Opener{Dir: cfg.Profile.Dir}
	suffix := uuid.NewString()[:8]

	var seatA saop.Participant
	if partyURL != "" {
		remote, err := saop.Dial(ctx, "party-a-"+suffix, partyURL, 30*time.Second)
		if err != nil {
			return err
		}
		seatA = remote
	} else {
		strategy, err := party.NewStrategy(cfg.Party.Strategy, core.NewRandSource(cfg.Party.Seed))
		if err != nil {
			return err
		}
		seatA = saop.NewLocal("party-a-"+suffix, strategy, opener)
	}
	defer seatA.Close()

	strategy, err := party.NewStrategy(strategyB, core.NewRandSource(cfg.Party.Seed))
	if err != nil {
		return err
	}
	local := saop.NewLocal("party-b-"+suffix, strategy, opener)
	defer local.Close()

	session := &saop.Session{
		Seats: []saop.Seat{
			{Participant: seatA, Profile: profileA},
			{Participant: local, Profile: profileB},
		},
		Rounds: rounds,
	}
	result, err := session.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Outcome:  %s after %d turns\n", result.Reason, result.Turns)
	if result.Agreement != nil {
		fmt.Fprintf(out, "Agreement: %s\n", result.Agreement.Key())
	}
	snapshot := local.Party().Snapshot()
	fmt.Fprintf(out, "Party B:  %s, %d bids made, %d received, agreement utility %.4f\n",
		snapshot.Strategy, snapshot.BidsMade, snapshot.BidsReceived, snapshot.AgreementUtility)
	if result.Err != nil {
		return result.Err
	}
	return nil
}
