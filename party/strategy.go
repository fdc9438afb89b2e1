package party

import (
	"fmt"
	"slices"

	"github.com/cloudx-io/opennegotiation/core"
)

// Strategy names accepted by NewStrategy.
const (
	StrategyOHelper = "o-helper"
	StrategyRandom  = "random"
)

// ProfileLinearAdditive is the only profile type the strategies understand.
const ProfileLinearAdditive = "LinearAdditive"

// Capabilities lists the protocols and profile types a strategy supports.
type Capabilities struct {
	Protocols []Protocol
	Profiles  []string
}

// Supports reports whether p is among the supported protocols.
func (c Capabilities) Supports(p Protocol) bool {
	return slices.Contains(c.Protocols, p)
}

// TurnContext is the read-only view of the session a strategy decides on.
type TurnContext struct {
	PartyID  string
	Protocol Protocol

	// Progress is the normalized session clock at the time of the turn.
	Progress float64
	// RoundBased is set when Progress counts rounds.
	RoundBased      bool
	CurrentRound    int
	RoundsRemaining int

	Reservation  float64
	Index        *core.BidIndex
	History      *core.ExchangeHistory
	LastReceived *core.BidUtilPair
	LastSent     *core.BidUtilPair
}

// Strategy decides what the party does on its turn.
type Strategy interface {
	Name() string
	Description() string
	Capabilities() Capabilities
	// ChooseAction returns an Accept of the last received bid or an Offer.
	ChooseAction(tc TurnContext) (Action, error)
}

// NewStrategy returns the strategy registered under name, drawing randomness
// from randSource (a crypto/rand source when nil).
func NewStrategy(name string, randSource core.RandSource) (Strategy, error) {
	switch name {
	case StrategyOHelper, "":
		return NewCombiStrategy(randSource), nil
	case StrategyRandom:
		return NewRandomStrategy(randSource), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want %s or %s)", name, StrategyOHelper, StrategyRandom)
	}
}
