package party

import (
	"github.com/cloudx-io/opennegotiation/core"
)

// Inform is a message from the negotiation host to the party.
type Inform interface {
	InformName() string
}

// Settings opens a session.
type Settings struct {
	PartyID    string
	ProfileURI string
	// ProtocolRef is the raw protocol reference; it is parsed by the party so
	// that unknown protocols can be tolerated.
	ProtocolRef string
	Progress    Progress
	Parameters  map[string]any
}

// ActionDone announces an action taken by any participant, ourselves included.
type ActionDone struct {
	Action Action
}

// YourTurn asks the party to act.
type YourTurn struct{}

// Finished ends the session. Agreements maps party IDs to the agreed bid and is
// empty when no agreement was reached.
type Finished struct {
	Agreements map[string]core.Bid
}

// Voting, OptIn and OptInWithValue belong to the multilateral protocols.
type (
	Voting struct {
		Offers []Offer
	}
	OptIn          struct{}
	OptInWithValue struct{}
)

// Unknown is any inform the party does not understand.
type Unknown struct {
	Name string
}

func (Settings) InformName() string       { return "settings" }
func (ActionDone) InformName() string     { return "ActionDone" }
func (YourTurn) InformName() string       { return "YourTurn" }
func (Finished) InformName() string       { return "Finished" }
func (Voting) InformName() string         { return "Voting" }
func (OptIn) InformName() string          { return "OptIn" }
func (OptInWithValue) InformName() string { return "OptInWithValue" }
func (u Unknown) InformName() string      { return u.Name }

// Action is a message from the party to the negotiation host.
type Action interface {
	ActionName() string
	Actor() string
}

// Offer proposes a bid.
type Offer struct {
	PartyID string
	Bid     core.Bid
}

// Accept agrees to a bid offered by the opponent.
type Accept struct {
	PartyID string
	Bid     core.Bid
}

// LearningDone ends a Learn session.
type LearningDone struct {
	PartyID string
}

func (Offer) ActionName() string        { return "Offer" }
func (Accept) ActionName() string       { return "Accept" }
func (LearningDone) ActionName() string { return "LearningDone" }

func (o Offer) Actor() string        { return o.PartyID }
func (a Accept) Actor() string       { return a.PartyID }
func (l LearningDone) Actor() string { return l.PartyID }
