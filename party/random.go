package party

import (
	"log"

	"github.com/cloudx-io/opennegotiation/core"
)

const (
	// randomAcceptUtility is the fixed utility threshold of the baseline.
	randomAcceptUtility = 0.6
	// randomAttempts bounds the search for an acceptable bid.
	randomAttempts = 20
)

// RandomStrategy is a baseline that accepts anything above a fixed utility and
// otherwise offers random bids.
type RandomStrategy struct {
	randSource core.RandSource
}

// NewRandomStrategy returns the baseline strategy.
func NewRandomStrategy(randSource core.RandSource) *RandomStrategy {
	if randSource == nil {
		randSource = core.NewRandSource(0)
	}
	return &RandomStrategy{randSource: randSource}
}

// Name returns the identifier the strategy is selected by.
func (*RandomStrategy) Name() string {
	return StrategyRandom
}

// Description is the human readable summary served with the capabilities.
func (*RandomStrategy) Description() string {
	return "Random baseline: accepts any bid with utility above 0.6 and otherwise " +
		"offers a random bid, retrying a few times for one above that threshold."
}

// Capabilities adds Learn, which the baseline finishes immediately.
func (*RandomStrategy) Capabilities() Capabilities {
	return Capabilities{
		Protocols: []Protocol{SAOP, Learn},
		Profiles:  []string{ProfileLinearAdditive},
	}
}

// ChooseAction accepts the last received bid when acceptable under a bilateral
// protocol and otherwise draws up to randomAttempts bids, keeping the first
// acceptable one or the last one drawn.
func (s *RandomStrategy) ChooseAction(tc TurnContext) (Action, error) {
	if tc.Protocol.Bilateral() && tc.LastReceived != nil && tc.LastReceived.Utility > randomAcceptUtility {
		log.Printf("INFO: Party %s accepting bid with utility %.4f", tc.PartyID, tc.LastReceived.Utility)
		return Accept{PartyID: tc.PartyID, Bid: tc.LastReceived.Bid}, nil
	}

	if tc.Index == nil || tc.Index.Size() == 0 {
		return nil, core.ErrEmptyDomain
	}

	var pick core.BidUtilPair
	for attempt := 0; attempt < randomAttempts; attempt++ {
		pick = tc.Index.Pair(s.randSource.Intn(tc.Index.Size()))
		if pick.Utility > randomAcceptUtility {
			break
		}
	}

	log.Printf("INFO: Party %s offering random bid with utility %.4f", tc.PartyID, pick.Utility)
	return Offer{PartyID: tc.PartyID, Bid: pick.Bid}, nil
}
