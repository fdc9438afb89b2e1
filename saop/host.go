// Package saop hosts Stacked Alternating Offers sessions for local runs and
// tests. Parties take turns; each turn is an Offer or an Accept of the offer
// just made. The session ends on acceptance, on a protocol violation or when
// every party has used its rounds.
package saop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
)

// Outcome reasons.
const (
	ReasonAgreement = "agreement"
	ReasonDeadline  = "deadline"
	ReasonViolation = "protocol violation"
	ReasonFailure   = "participant failure"
)

// Seat binds a participant to the profile it negotiates with.
type Seat struct {
	Participant Participant
	Profile     string
}

// Session is one SAOP negotiation.
type Session struct {
	Seats []Seat
	// Rounds is the number of turns each party gets.
	Rounds int
	Now    func() time.Time
}

// Result describes how a session ended.
type Result struct {
	Agreement *core.Bid
	Reason    string
	Turns     int
	// Actions lists every action in turn order.
	Actions []party.Action
	// Err is set when a participant failed or broke the protocol.
	Err error
}

// Run drives the session to completion. The returned error is reserved for
// setup problems; participant failures end the session and land in Result.
//
// Processing flow:
//  1. Validate the session and send Settings to every party
//  2. Hand out turns in seat order and broadcast each action
//  3. Stop on an Accept of the standing offer, a violation or the deadline
//  4. Send Finished with the agreement, if any, to every party
func (s *Session) Run(ctx context.Context) (*Result, error) {
	// Step 1: Settings
	if len(s.Seats) < 2 {
		return nil, fmt.Errorf("SAOP needs at least two parties, got %d", len(s.Seats))
	}
	if s.Rounds <= 0 {
		return nil, fmt.Errorf("rounds must be positive, got %d", s.Rounds)
	}
	now := s.Now
	if now == nil {
		now = time.Now
	}

	result := &Result{}
	for _, seat := range s.Seats {
		progress, err := party.NewRoundProgress(s.Rounds, 0, now().Add(time.Hour).UnixMilli())
		if err != nil {
			return nil, err
		}
		settings := party.Settings{
			PartyID:     seat.Participant.ID(),
			ProfileURI:  seat.Profile,
			ProtocolRef: string(party.SAOP),
			Progress:    progress,
		}
		if err := seat.Participant.Inform(ctx, settings); err != nil {
			result.fail(ReasonFailure, fmt.Errorf("settings for %s: %w", seat.Participant.ID(), err))
			s.finish(ctx, result)
			return result, nil
		}
	}
	log.Printf("INFO: SAOP session started with %d parties and %d rounds", len(s.Seats), s.Rounds)

	// Step 2 and 3: Turns
	var standing *party.Offer
	maxTurns := s.Rounds * len(s.Seats)
	for result.Turns < maxTurns && result.Reason == "" {
		if err := ctx.Err(); err != nil {
			result.fail(ReasonFailure, err)
			break
		}

		seat := s.Seats[result.Turns%len(s.Seats)]
		action, err := s.turn(ctx, seat.Participant)
		result.Turns++
		if err != nil {
			result.fail(ReasonFailure, err)
			break
		}
		result.Actions = append(result.Actions, action)

		switch a := action.(type) {
		case party.Offer:
			if a.Actor() != seat.Participant.ID() {
				result.fail(ReasonViolation, fmt.Errorf("%s offered on behalf of %s", seat.Participant.ID(), a.Actor()))
				continue
			}
			standing = &a
		case party.Accept:
			if a.Actor() != seat.Participant.ID() || standing == nil || !standing.Bid.Equal(a.Bid) {
				result.fail(ReasonViolation, fmt.Errorf("%s accepted a bid that is not the standing offer", seat.Participant.ID()))
				continue
			}
			agreement := a.Bid
			result.Agreement = &agreement
			result.Reason = ReasonAgreement
		default:
			result.fail(ReasonViolation, fmt.Errorf("%s sent %s, which SAOP does not allow", seat.Participant.ID(), action.ActionName()))
			continue
		}

		if err := s.broadcast(ctx, party.ActionDone{Action: action}); err != nil {
			result.fail(ReasonFailure, err)
		}
	}
	if result.Reason == "" {
		result.Reason = ReasonDeadline
	}

	// Step 4: Finished
	s.finish(ctx, result)
	log.Printf("INFO: SAOP session ended after %d turns: %s", result.Turns, result.Reason)
	return result, nil
}

func (s *Session) turn(ctx context.Context, p Participant) (party.Action, error) {
	if err := p.Inform(ctx, party.YourTurn{}); err != nil {
		return nil, fmt.Errorf("turn of %s: %w", p.ID(), err)
	}
	action, err := p.Action(ctx)
	if err != nil {
		return nil, fmt.Errorf("turn of %s: %w", p.ID(), err)
	}
	return action, nil
}

func (s *Session) broadcast(ctx context.Context, inform party.Inform) error {
	var errs []error
	for _, seat := range s.Seats {
		if err := seat.Participant.Inform(ctx, inform); err != nil {
			errs = append(errs, fmt.Errorf("%s to %s: %w", inform.InformName(), seat.Participant.ID(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) finish(ctx context.Context, result *Result) {
	agreements := map[string]core.Bid{}
	if result.Agreement != nil {
		for _, seat := range s.Seats {
			agreements[seat.Participant.ID()] = *result.Agreement
		}
	}
	if err := s.broadcast(ctx, party.Finished{Agreements: agreements}); err != nil {
		log.Printf("WARNING: Failed to deliver Finished: %v", err)
	}
}

func (r *Result) fail(reason string, err error) {
	r.Reason = reason
	r.Err = err
	log.Printf("ERROR: SAOP session failed: %v", err)
}
