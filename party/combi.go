package party

import (
	"fmt"
	"log"

	"github.com/cloudx-io/opennegotiation/core"
)

// CombiStrategy accepts with AC_Combi and bids along the reservation-anchored
// target curve.
type CombiStrategy struct {
	acceptance core.AcceptancePolicy
	bidding    *core.BiddingPolicy
}

// NewCombiStrategy returns the AC_Combi strategy with its default constants.
func NewCombiStrategy(randSource core.RandSource) *CombiStrategy {
	return &CombiStrategy{
		acceptance: core.DefaultAcceptancePolicy(),
		bidding:    core.NewBiddingPolicy(randSource),
	}
}

// Name returns the identifier the strategy is selected by.
func (*CombiStrategy) Name() string {
	return StrategyOHelper
}

// Description is the human readable summary served with the capabilities.
func (*CombiStrategy) Description() string {
	return "O-Helper uses decoupled acceptance and bidding strategies: AC_Combi acceptance " +
		"with a reservation floor and a time and exchange sensitive target utility curve."
}

// Capabilities lists the protocols and profile types the strategy handles.
func (*CombiStrategy) Capabilities() Capabilities {
	return Capabilities{
		Protocols: []Protocol{SAOP},
		Profiles:  []string{ProfileLinearAdditive},
	}
}

// ChooseAction decides between accepting and countering.
//
// Processing flow:
//  1. Compute the target utility our next bid would have
//  2. If a bid was received, run AC_Combi against that target
//  3. Otherwise, or on rejection, pick a counter offer around the target
func (s *CombiStrategy) ChooseAction(tc TurnContext) (Action, error) {
	// Step 1: Target of the bid we would send
	state := core.BiddingState{
		Progress:     tc.Progress,
		Reservation:  tc.Reservation,
		LastSent:     tc.LastSent,
		LastReceived: tc.LastReceived,
	}

	// Step 2: Acceptance
	if tc.LastReceived != nil {
		decision := s.acceptance.Evaluate(core.AcceptanceInput{
			ReceivedUtility: tc.LastReceived.Utility,
			NextUtility:     core.TargetUtility(state),
			Progress:        tc.Progress,
			RoundBased:      tc.RoundBased,
			RoundsRemaining: tc.RoundsRemaining,
			Reservation:     tc.Reservation,
			History:         tc.History,
		})
		logDecision(tc, decision)

		if decision.Accept {
			log.Printf("INFO: Party %s accepting bid with utility %.4f", tc.PartyID, tc.LastReceived.Utility)
			return Accept{PartyID: tc.PartyID, Bid: tc.LastReceived.Bid}, nil
		}
	}

	// Step 3: Counter offer
	selection, err := s.bidding.Choose(tc.Index, state)
	if err != nil {
		return nil, fmt.Errorf("failed to choose bid: %w", err)
	}

	log.Printf("INFO: Party %s offering bid with utility %.4f (target %.4f, candidates %d, fallback %t)",
		tc.PartyID, selection.Utility, selection.Target, selection.Candidates, selection.Fallback)

	return Offer{PartyID: tc.PartyID, Bid: selection.Bid}, nil
}

func logDecision(tc TurnContext, d core.AcceptanceDecision) {
	log.Printf("INFO: Party %s progress %.4f, round %d, received utility %.4f, AC_Next %t",
		tc.PartyID, tc.Progress, tc.CurrentRound, tc.LastReceived.Utility, d.ACNext)

	if !d.PastHalfTime {
		return
	}
	if d.HasACMaxW {
		log.Printf("INFO: Party %s window %d, acMaxW %.4f", tc.PartyID, d.Window, d.ACMaxW)
	}
	if d.HasACMaxT {
		log.Printf("INFO: Party %s acMaxT %.4f, AC_Combi %t", tc.PartyID, d.ACMaxT, d.Accept)
	}
	if d.Reason != "" {
		log.Printf("INFO: Party %s rejecting: %s (window %d, history %d)",
			tc.PartyID, d.Reason, d.Window, historySize(tc.History))
	}
}

func historySize(h *core.ExchangeHistory) int {
	if h == nil {
		return 0
	}
	return h.Size()
}
