package partyapi

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
)

func TestDecodeInform_Settings(t *testing.T) {
	data := []byte(`{"settings":{
		"id":"party1",
		"profile":"file:profiles/party1.json",
		"protocol":"SAOP",
		"progress":{"ProgressRounds":{"duration":100,"currentRound":3,"endtime":1700000000000}},
		"parameters":{"seed":7}
	}}`)

	inform, err := DecodeInform(data)
	check.NoError(t, err)

	settings, ok := inform.(party.Settings)
	check.True(t, ok)
	check.Equal(t, "party1", settings.PartyID)
	check.Equal(t, "file:profiles/party1.json", settings.ProfileURI)
	check.Equal(t, "SAOP", settings.ProtocolRef)
	check.Equal(t, 7.0, settings.Parameters["seed"])

	rounds, ok := settings.Progress.(party.RoundProgress)
	check.True(t, ok)
	check.Equal(t, 100, rounds.Duration)
	check.Equal(t, 3, rounds.Current)
	check.Equal(t, int64(1700000000000), rounds.EndTime)
}

func TestDecodeInform_SettingsTimeProgress(t *testing.T) {
	data := []byte(`{"settings":{"id":"p","profile":"x","protocol":"SAOP",
		"progress":{"ProgressTime":{"duration":60000,"start":1000}}}}`)

	inform, err := DecodeInform(data)
	check.NoError(t, err)

	progress, ok := inform.(party.Settings).Progress.(party.TimeProgress)
	check.True(t, ok)
	check.Equal(t, int64(60000), progress.Duration)
	check.Equal(t, int64(1000), progress.Start)
}

func TestDecodeInform_SettingsInvalidRounds(t *testing.T) {
	data := []byte(`{"settings":{"id":"p","profile":"x","protocol":"SAOP",
		"progress":{"ProgressRounds":{"duration":0,"currentRound":0,"endtime":0}}}}`)

	_, err := DecodeInform(data)
	check.True(t, errors.Is(err, ErrMalformed))
}

func TestDecodeInform_ActionDone(t *testing.T) {
	data := []byte(`{"ActionDone":{"action":{"Offer":{"actor":"party2",
		"bid":{"issuevalues":{"price":"high","quantity":12}}}}}}`)

	inform, err := DecodeInform(data)
	check.NoError(t, err)

	done, ok := inform.(party.ActionDone)
	check.True(t, ok)
	offer, ok := done.Action.(party.Offer)
	check.True(t, ok)
	check.Equal(t, "party2", offer.PartyID)
	check.Equal(t, "high", offer.Bid.IssueValues["price"])
	check.Equal(t, "12", offer.Bid.IssueValues["quantity"])
}

func TestDecodeInform_ActionDoneOtherAction(t *testing.T) {
	data := []byte(`{"ActionDone":{"action":{"Votes":{"actor":"party3","votes":[]}}}}`)

	inform, err := DecodeInform(data)
	check.NoError(t, err)

	action := inform.(party.ActionDone).Action
	check.Equal(t, "Votes", action.ActionName())
	check.Equal(t, "party3", action.Actor())
}

func TestDecodeInform_Simple(t *testing.T) {
	tests := []struct {
		data     string
		expected party.Inform
	}{
		{`{"YourTurn":{}}`, party.YourTurn{}},
		{`{"Voting":{"actor":"p","offers":[]}}`, party.Voting{}},
		{`{"OptIn":{}}`, party.OptIn{}},
		{`{"OptInWithValue":{}}`, party.OptInWithValue{}},
		{`{"Telemetry":{"x":1}}`, party.Unknown{Name: "Telemetry"}},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			inform, err := DecodeInform([]byte(tt.data))
			check.NoError(t, err)
			check.Equal(t, tt.expected.InformName(), inform.InformName())
		})
	}
}

func TestDecodeInform_Finished(t *testing.T) {
	data := []byte(`{"Finished":{"agreements":{
		"party1":{"issuevalues":{"price":"mid"}},
		"party2":{"issuevalues":{"price":"mid"}}}}}`)

	inform, err := DecodeInform(data)
	check.NoError(t, err)

	finished, ok := inform.(party.Finished)
	check.True(t, ok)
	check.Equal(t, 2, len(finished.Agreements))
	check.Equal(t, "mid", finished.Agreements["party1"].IssueValues["price"])

	inform, err = DecodeInform([]byte(`{"Finished":{"agreements":{}}}`))
	check.NoError(t, err)
	check.Equal(t, 0, len(inform.(party.Finished).Agreements))
}

func TestDecodeInform_Malformed(t *testing.T) {
	tests := []string{
		`not json`,
		`{}`,
		`{"YourTurn":{},"OptIn":{}}`,
		`{"settings":"nope"}`,
		`{"ActionDone":{"action":{"Offer":{"actor":"p"}}}}`,
		`{"ActionDone":{"action":{"Offer":{"actor":"p","bid":{"issuevalues":{"price":true}}}}}}`,
	}

	for _, data := range tests {
		t.Run(data, func(t *testing.T) {
			_, err := DecodeInform([]byte(data))
			check.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestEncodeAction(t *testing.T) {
	b := core.NewBid(map[string]string{"price": "high"})

	data, err := EncodeAction(party.Offer{PartyID: "party1", Bid: b})
	check.NoError(t, err)
	check.Equal(t, `{"Offer":{"actor":"party1","bid":{"issuevalues":{"price":"high"}}}}`, string(data))

	data, err = EncodeAction(party.Accept{PartyID: "party1", Bid: b})
	check.NoError(t, err)
	check.Equal(t, `{"Accept":{"actor":"party1","bid":{"issuevalues":{"price":"high"}}}}`, string(data))

	data, err = EncodeAction(party.LearningDone{PartyID: "party1"})
	check.NoError(t, err)
	check.Equal(t, `{"LearningDone":{"actor":"party1"}}`, string(data))

	_, err = EncodeAction(OtherAction{Name: "Votes"})
	check.Error(t, err)
}

func TestDecodeAction(t *testing.T) {
	action, err := DecodeAction([]byte(`{"Accept":{"actor":"p2","bid":{"issuevalues":{"a":"1"}}}}`))
	check.NoError(t, err)
	check.Equal(t, party.Action(party.Accept{PartyID: "p2", Bid: core.NewBid(map[string]string{"a": "1"})}), action)

	action, err = DecodeAction([]byte(`{"LearningDone":{"actor":"p2"}}`))
	check.NoError(t, err)
	check.Equal(t, party.Action(party.LearningDone{PartyID: "p2"}), action)

	_, err = DecodeAction([]byte(`{"Votes":{"actor":"p2"}}`))
	check.True(t, errors.Is(err, ErrMalformed))
}

func TestEncodeInform_DecodesBack(t *testing.T) {
	b := core.NewBid(map[string]string{"price": "low", "delivery": "fast"})
	informs := []party.Inform{
		party.Settings{
			PartyID:     "party1",
			ProfileURI:  "file:a.json",
			ProtocolRef: "SAOP",
			Progress:    party.RoundProgress{Duration: 10, Current: 2, EndTime: 99},
		},
		party.Settings{
			PartyID:     "party1",
			ProfileURI:  "file:a.json",
			ProtocolRef: "Learn",
			Progress:    party.TimeProgress{Start: 5, Duration: 1000},
		},
		party.ActionDone{Action: party.Offer{PartyID: "party2", Bid: b}},
		party.YourTurn{},
		party.Finished{Agreements: map[string]core.Bid{"party1": b}},
		party.OptIn{},
	}

	for _, inform := range informs {
		t.Run(inform.InformName(), func(t *testing.T) {
			data, err := EncodeInform(inform)
			check.NoError(t, err)

			decoded, err := DecodeInform(data)
			check.NoError(t, err)
			check.Equal(t, inform, decoded)
		})
	}

	_, err := EncodeInform(party.Unknown{Name: "x"})
	check.Error(t, err)
}

func TestInfoFor(t *testing.T) {
	info := InfoFor(party.NewCombiStrategy(nil))
	check.Equal(t, party.StrategyOHelper, info.Name)
	check.Equal(t, []string{"SAOP"}, info.Capabilities.Behaviours)
	check.Equal(t, []string{party.ProfileLinearAdditive}, info.Capabilities.Profiles)

	data, err := json.Marshal(InfoFor(party.NewRandomStrategy(nil)))
	check.NoError(t, err)

	var decoded map[string]any
	check.NoError(t, json.Unmarshal(data, &decoded))
	caps := decoded["capabilities"].(map[string]any)
	check.Equal(t, []any{"SAOP", "Learn"}, caps["behaviours"].([]any))
}
