package partyapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
)

// ErrMalformed is returned for messages that cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// OtherAction stands in for actions the party has no use for, such as votes,
// when they are announced through ActionDone.
type OtherAction struct {
	Name    string
	PartyID string
}

func (a OtherAction) ActionName() string { return a.Name }
func (a OtherAction) Actor() string      { return a.PartyID }

// DecodeInform parses a single inform envelope. Informs with an unknown name
// decode to party.Unknown so the session can ignore them.
func DecodeInform(data []byte) (party.Inform, error) {
	name, body, err := splitEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch name {
	case InformSettings:
		var s Settings
		if err := json.Unmarshal(body, &s); err != nil {
			return nil, fmt.Errorf("%w: settings: %w", ErrMalformed, err)
		}
		return settingsFromWire(s)

	case InformActionDone:
		var ad ActionDone
		if err := json.Unmarshal(body, &ad); err != nil {
			return nil, fmt.Errorf("%w: ActionDone: %w", ErrMalformed, err)
		}
		action, err := decodeAnnouncedAction(ad.Action)
		if err != nil {
			return nil, err
		}
		return party.ActionDone{Action: action}, nil

	case InformYourTurn:
		return party.YourTurn{}, nil

	case InformFinished:
		var f Finished
		if err := json.Unmarshal(body, &f); err != nil {
			return nil, fmt.Errorf("%w: Finished: %w", ErrMalformed, err)
		}
		agreements := make(map[string]core.Bid, len(f.Agreements))
		for partyID, wireBid := range f.Agreements {
			b, err := bidFromWire(&wireBid)
			if err != nil {
				return nil, err
			}
			agreements[partyID] = b
		}
		return party.Finished{Agreements: agreements}, nil

	case InformVoting:
		return party.Voting{}, nil

	case InformOptIn:
		return party.OptIn{}, nil

	case InformOptInWithValue:
		return party.OptInWithValue{}, nil

	default:
		return party.Unknown{Name: name}, nil
	}
}

// DecodeAction parses a single action envelope.
func DecodeAction(data []byte) (party.Action, error) {
	name, body, err := splitEnvelope(data)
	if err != nil {
		return nil, err
	}

	var ab ActionBody
	if err := json.Unmarshal(body, &ab); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}

	switch name {
	case ActionOffer, ActionAccept:
		b, err := bidFromWire(ab.Bid)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if name == ActionOffer {
			return party.Offer{PartyID: ab.Actor, Bid: b}, nil
		}
		return party.Accept{PartyID: ab.Actor, Bid: b}, nil

	case ActionLearningDone:
		return party.LearningDone{PartyID: ab.Actor}, nil

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformed, name)
	}
}

// decodeAnnouncedAction is DecodeAction, tolerant of action kinds the party
// never sends itself.
func decodeAnnouncedAction(data []byte) (party.Action, error) {
	name, body, err := splitEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case ActionOffer, ActionAccept, ActionLearningDone:
		return DecodeAction(data)
	default:
		var ab ActionBody
		_ = json.Unmarshal(body, &ab)
		return OtherAction{Name: name, PartyID: ab.Actor}, nil
	}
}

// EncodeAction renders an action envelope.
func EncodeAction(action party.Action) ([]byte, error) {
	switch a := action.(type) {
	case party.Offer:
		wireBid := bidToWire(a.Bid)
		return envelope(ActionOffer, ActionBody{Actor: a.PartyID, Bid: &wireBid})
	case party.Accept:
		wireBid := bidToWire(a.Bid)
		return envelope(ActionAccept, ActionBody{Actor: a.PartyID, Bid: &wireBid})
	case party.LearningDone:
		return envelope(ActionLearningDone, ActionBody{Actor: a.PartyID})
	default:
		return nil, fmt.Errorf("cannot encode action %T", action)
	}
}

// EncodeInform renders an inform envelope. It is the host side of the codec.
func EncodeInform(inform party.Inform) ([]byte, error) {
	switch in := inform.(type) {
	case party.Settings:
		s, err := settingsToWire(in)
		if err != nil {
			return nil, err
		}
		return envelope(InformSettings, s)

	case party.ActionDone:
		action, err := EncodeAction(in.Action)
		if err != nil {
			return nil, err
		}
		return envelope(InformActionDone, ActionDone{Action: action})

	case party.Finished:
		agreements := make(map[string]Bid, len(in.Agreements))
		for partyID, b := range in.Agreements {
			agreements[partyID] = bidToWire(b)
		}
		return envelope(InformFinished, Finished{Agreements: agreements})

	case party.YourTurn, party.Voting, party.OptIn, party.OptInWithValue:
		return envelope(inform.InformName(), struct{}{})

	default:
		return nil, fmt.Errorf("cannot encode inform %T", inform)
	}
}

// InfoFor describes strategy s.
func InfoFor(s party.Strategy) PartyInfo {
	caps := s.Capabilities()
	behaviours := make([]string, len(caps.Protocols))
	for i, p := range caps.Protocols {
		behaviours[i] = string(p)
	}
	return PartyInfo{
		Name:        s.Name(),
		Description: s.Description(),
		Capabilities: Capabilities{
			Behaviours: behaviours,
			Profiles:   append([]string(nil), caps.Profiles...),
		},
	}
}

func settingsFromWire(s Settings) (party.Settings, error) {
	var progress party.Progress
	switch {
	case s.Progress.Rounds != nil:
		r := s.Progress.Rounds
		rounds, err := party.NewRoundProgress(r.Duration, r.CurrentRound, r.EndTime)
		if err != nil {
			return party.Settings{}, fmt.Errorf("%w: settings: %w", ErrMalformed, err)
		}
		progress = rounds
	case s.Progress.Time != nil:
		progress = party.TimeProgress{Start: s.Progress.Time.Start, Duration: s.Progress.Time.Duration}
	}

	return party.Settings{
		PartyID:     s.ID,
		ProfileURI:  s.Profile,
		ProtocolRef: s.Protocol,
		Progress:    progress,
		Parameters:  s.Parameters,
	}, nil
}

func settingsToWire(s party.Settings) (Settings, error) {
	out := Settings{
		ID:         s.PartyID,
		Profile:    s.ProfileURI,
		Protocol:   s.ProtocolRef,
		Parameters: s.Parameters,
	}
	switch p := s.Progress.(type) {
	case party.RoundProgress:
		out.Progress.Rounds = &ProgressRounds{Duration: p.Duration, CurrentRound: p.Current, EndTime: p.EndTime}
	case party.TimeProgress:
		out.Progress.Time = &ProgressTime{Duration: p.Duration, Start: p.Start}
	case nil:
	default:
		return Settings{}, fmt.Errorf("cannot encode progress %T", s.Progress)
	}
	return out, nil
}

func bidFromWire(b *Bid) (core.Bid, error) {
	if b == nil {
		return core.Bid{}, fmt.Errorf("%w: missing bid", ErrMalformed)
	}

	values := make(map[string]string, len(b.IssueValues))
	for issue, raw := range b.IssueValues {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			values[issue] = s
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return core.Bid{}, fmt.Errorf("%w: value of issue %q must be a string or number", ErrMalformed, issue)
		}
		values[issue] = n.String()
	}
	return core.Bid{IssueValues: values}, nil
}

func bidToWire(b core.Bid) Bid {
	values := make(map[string]json.RawMessage, len(b.IssueValues))
	for issue, value := range b.IssueValues {
		raw, _ := json.Marshal(value)
		values[issue] = raw
	}
	return Bid{IssueValues: values}
}

func envelope(name string, body any) ([]byte, error) {
	data, err := json.Marshal(map[string]any{name: body})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return data, nil
}

func splitEnvelope(data []byte) (string, json.RawMessage, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &env); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(env) != 1 {
		return "", nil, fmt.Errorf("%w: expected a single-key object, got %d keys", ErrMalformed, len(env))
	}
	for name, body := range env {
		return name, body, nil
	}
	return "", nil, ErrMalformed
}
