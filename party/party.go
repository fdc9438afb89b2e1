package party

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/cloudx-io/opennegotiation/core"
)

// Party runs one negotiation session. It reacts to informs from the host one
// at a time; Handle must not be called concurrently.
type Party struct {
	strategy  Strategy
	opener    OracleOpener
	conn      Connection
	recorder  Recorder
	now       func() time.Time
	sessionID string

	started  bool
	active   bool
	finished bool

	partyID     string
	protocol    Protocol
	progress    Progress
	oracle      UtilityOracle
	index       *core.BidIndex
	reservation float64

	history      *core.ExchangeHistory
	sent         []core.BidUtilPair
	lastReceived *core.BidUtilPair
	lastSent     *core.BidUtilPair
	bidsMade     int
	bidsReceived int

	agreement        *core.Bid
	agreementUtility float64
}

// Option configures a Party.
type Option func(*Party)

// WithClock replaces the wall clock used to read time-based progress.
func WithClock(now func() time.Time) Option {
	return func(p *Party) { p.now = now }
}

// WithRecorder makes the party hand a snapshot to r when the session finishes.
func WithRecorder(r Recorder) Option {
	return func(p *Party) { p.recorder = r }
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(p *Party) { p.sessionID = id }
}

// New returns a party that decides with strategy, opens profiles with opener
// and sends its actions over conn.
func New(strategy Strategy, opener OracleOpener, conn Connection, opts ...Option) *Party {
	p := &Party{
		strategy:  strategy,
		opener:    opener,
		conn:      conn,
		now:       time.Now,
		sessionID: uuid.NewString(),
		history:   core.NewExchangeHistory(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SessionID identifies this session in logs and receipts.
func (p *Party) SessionID() string {
	return p.sessionID
}

// Strategy returns the strategy the party decides with.
func (p *Party) Strategy() Strategy {
	return p.strategy
}

// Finished reports whether the host has ended the session.
func (p *Party) Finished() bool {
	return p.finished
}

// Handle processes a single inform to completion.
//
// Any returned error is fatal for the session; the caller should stop feeding
// informs and Close the party.
func (p *Party) Handle(ctx context.Context, inform Inform) error {
	switch in := inform.(type) {
	case Settings:
		return p.handleSettings(ctx, in)
	case ActionDone:
		p.handleActionDone(in)
		return nil
	case YourTurn:
		if err := p.handleYourTurn(ctx); err != nil {
			return err
		}
		p.advance(in)
		return nil
	case Finished:
		return p.handleFinished(ctx, in)
	case Voting:
		return nil
	case OptIn, OptInWithValue:
		p.advance(in)
		return nil
	default:
		log.Printf("INFO: Party %s ignoring inform %s", p.partyID, inform.InformName())
		return nil
	}
}

// handleSettings initializes the session state.
//
// Processing flow:
//  1. Resolve party ID, progress and protocol
//  2. Learn sessions answer LearningDone and stay idle
//  3. Open the utility oracle and index the domain
//  4. Resolve the reservation utility
func (p *Party) handleSettings(ctx context.Context, in Settings) error {
	if p.started {
		return fmt.Errorf("%w: settings received twice", core.ErrInvariant)
	}
	p.started = true

	// Step 1: Session identity
	p.partyID = in.PartyID
	p.progress = in.Progress

	protocol, err := ParseProtocol(in.ProtocolRef)
	p.protocol = protocol
	if err != nil {
		log.Printf("ERROR: Party %s cannot run session %s: %v", p.partyID, p.sessionID, err)
		return nil
	}
	if !p.strategy.Capabilities().Supports(protocol) {
		log.Printf("WARNING: Strategy %s does not advertise protocol %s", p.strategy.Name(), protocol)
	}

	// Step 2: Learn
	if protocol == Learn {
		if err := p.conn.Send(ctx, LearningDone{PartyID: p.partyID}); err != nil {
			return fmt.Errorf("%w: failed to send LearningDone: %w", core.ErrTransport, err)
		}
		log.Printf("INFO: Party %s finished learning", p.partyID)
		return nil
	}

	if p.progress == nil {
		return fmt.Errorf("%w: settings without progress", core.ErrInvariant)
	}

	// Step 3: Profile and domain
	oracle, err := p.opener.Open(ctx, in.ProfileURI)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrProfileUnavailable, err)
	}
	p.oracle = oracle

	index, err := core.NewBidIndex(oracle.Bids(), oracle.Utility)
	if err != nil {
		p.closeOracle()
		return fmt.Errorf("failed to index domain of %s: %w", in.ProfileURI, err)
	}
	p.index = index

	// Step 4: Reservation utility
	var reservationBid *core.Bid
	if bid, ok := oracle.ReservationBid(); ok {
		reservationBid = &bid
	}
	p.reservation = core.ReservationUtility(reservationBid, oracle.Utility)

	p.history = core.NewExchangeHistory()
	p.sent = nil
	p.lastReceived, p.lastSent = nil, nil
	p.bidsMade, p.bidsReceived = 0, 0
	p.active = true

	log.Printf("INFO: Party %s joined session %s (protocol %s, strategy %s, %d bids, best utility %.4f, reservation utility %.4f)",
		p.partyID, p.sessionID, p.protocol, p.strategy.Name(), index.Size(), index.MaxUtility(), p.reservation)
	return nil
}

// handleActionDone records offers made by the opponent. Our own offers come
// back as ActionDone too and are skipped by actor.
func (p *Party) handleActionDone(in ActionDone) {
	offer, ok := in.Action.(Offer)
	if !ok || !p.active || offer.PartyID == p.partyID {
		return
	}

	utility := p.oracle.Utility(offer.Bid)
	p.history.Append(offer.Bid, utility)
	p.lastReceived = &core.BidUtilPair{Bid: offer.Bid, Utility: utility}
	p.bidsReceived++

	log.Printf("INFO: Party %s received bid with utility %.4f (bids received: %d)",
		p.partyID, utility, p.bidsReceived)
}

func (p *Party) handleYourTurn(ctx context.Context) error {
	if !p.active {
		return nil
	}

	action, err := p.strategy.ChooseAction(p.turnContext())
	if err != nil {
		return fmt.Errorf("failed to choose action: %w", err)
	}

	if err := p.conn.Send(ctx, action); err != nil {
		return fmt.Errorf("%w: failed to send %s: %w", core.ErrTransport, action.ActionName(), err)
	}

	if offer, ok := action.(Offer); ok {
		pair := core.BidUtilPair{Bid: offer.Bid, Utility: p.oracle.Utility(offer.Bid)}
		p.lastSent = &pair
		p.sent = append(p.sent, pair)
		p.bidsMade++
		log.Printf("INFO: Party %s bids made: %d", p.partyID, p.bidsMade)
	}
	return nil
}

func (p *Party) turnContext() TurnContext {
	tc := TurnContext{
		PartyID:      p.partyID,
		Protocol:     p.protocol,
		Progress:     p.progress.Get(p.now().UnixMilli()),
		Reservation:  p.reservation,
		Index:        p.index,
		History:      p.history,
		LastReceived: p.lastReceived,
		LastSent:     p.lastSent,
	}
	if rounds, ok := p.progress.(RoundProgress); ok {
		tc.RoundBased = true
		tc.CurrentRound = rounds.CurrentRound()
		tc.RoundsRemaining = rounds.RoundsRemaining()
	}
	return tc
}

// advance moves round-based progress forward when the protocol says inform
// ends a round. Failures are logged and otherwise ignored.
func (p *Party) advance(inform Inform) {
	if !p.protocol.AdvancesOn(inform) {
		return
	}
	rounds, ok := p.progress.(RoundProgress)
	if !ok {
		return
	}
	next, err := rounds.Advance()
	if err != nil {
		log.Printf("WARNING: Party %s could not advance progress: %v", p.partyID, err)
		return
	}
	p.progress = next
}

// handleFinished releases the session resources and records the outcome.
func (p *Party) handleFinished(ctx context.Context, in Finished) error {
	if p.finished {
		return nil
	}

	if bid, ok := in.Agreements[p.partyID]; ok {
		p.agreement = &bid
		if p.oracle != nil {
			p.agreementUtility = p.oracle.Utility(bid)
		}
		log.Printf("INFO: Final outcome for party %s: agreement with utility %.4f after %d bids made, %d received",
			p.partyID, p.agreementUtility, p.bidsMade, p.bidsReceived)
	} else {
		log.Printf("INFO: Final outcome for party %s: no agreement after %d bids made, %d received",
			p.partyID, p.bidsMade, p.bidsReceived)
	}

	p.closeOracle()
	p.index = nil
	p.active = false
	p.finished = true

	if p.recorder == nil {
		return nil
	}
	if err := p.recorder.Record(ctx, p.Snapshot()); err != nil {
		return fmt.Errorf("failed to record session %s: %w", p.sessionID, err)
	}
	return nil
}

// Close releases the utility oracle. It is safe to call at any time and more
// than once.
func (p *Party) Close() {
	p.closeOracle()
	p.active = false
}

func (p *Party) closeOracle() {
	if p.oracle == nil {
		return
	}
	if err := p.oracle.Close(); err != nil {
		log.Printf("ERROR: Failed to close profile for party %s: %v", p.partyID, err)
	}
	p.oracle = nil
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	SessionID        string
	PartyID          string
	Protocol         Protocol
	Strategy         string
	Finished         bool
	Agreement        *core.Bid
	AgreementUtility float64
	BidsMade         int
	BidsReceived     int
	// Received holds the opponent's offers in arrival order.
	Received []core.BidUtilPair
	// Sent holds our own offers in sending order.
	Sent         []core.BidUtilPair
	LastReceived *core.BidUtilPair
	LastSent     *core.BidUtilPair
}

// Snapshot returns a copy of the current session state.
func (p *Party) Snapshot() Snapshot {
	s := Snapshot{
		SessionID:        p.sessionID,
		PartyID:          p.partyID,
		Protocol:         p.protocol,
		Strategy:         p.strategy.Name(),
		Finished:         p.finished,
		AgreementUtility: p.agreementUtility,
		BidsMade:         p.bidsMade,
		BidsReceived:     p.bidsReceived,
		Received:         p.history.Pairs(),
		Sent:             slices.Clone(p.sent),
	}
	if p.agreement != nil {
		agreement := core.NewBid(p.agreement.IssueValues)
		s.Agreement = &agreement
	}
	if p.lastReceived != nil {
		pair := *p.lastReceived
		s.LastReceived = &pair
	}
	if p.lastSent != nil {
		pair := *p.lastSent
		s.LastSent = &pair
	}
	return s
}
