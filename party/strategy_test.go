package party

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/opennegotiation/core"
)

func indexOf(t *testing.T, oracle *fakeOracle) *core.BidIndex {
	t.Helper()
	index, err := core.NewBidIndex(oracle.Bids(), oracle.Utility)
	check.NoError(t, err)
	return index
}

func TestNewStrategy(t *testing.T) {
	s, err := NewStrategy("", nil)
	check.NoError(t, err)
	check.Equal(t, StrategyOHelper, s.Name())

	s, err = NewStrategy(StrategyOHelper, nil)
	check.NoError(t, err)
	check.Equal(t, StrategyOHelper, s.Name())

	s, err = NewStrategy(StrategyRandom, core.NewRandSource(1))
	check.NoError(t, err)
	check.Equal(t, StrategyRandom, s.Name())

	_, err = NewStrategy("boulware", nil)
	check.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	combi := NewCombiStrategy(nil).Capabilities()
	check.True(t, combi.Supports(SAOP))
	check.False(t, combi.Supports(Learn))
	check.Equal(t, []string{ProfileLinearAdditive}, combi.Profiles)

	random := NewRandomStrategy(nil).Capabilities()
	check.True(t, random.Supports(SAOP))
	check.True(t, random.Supports(Learn))
	check.False(t, random.Supports(MOPAC))

	check.NotEqual(t, "", NewCombiStrategy(nil).Description())
	check.NotEqual(t, "", NewRandomStrategy(nil).Description())
}

func TestCombiStrategy_NoAcceptBeforeFirstOffer(t *testing.T) {
	s := NewCombiStrategy(&mockRandSource{sequence: []int{1}})
	action, err := s.ChooseAction(TurnContext{
		PartyID:     "me",
		Protocol:    SAOP,
		Reservation: 0.6,
		Index:       indexOf(t, newThreeBidOracle(nil)),
		History:     core.NewExchangeHistory(),
	})
	check.NoError(t, err)

	offer, ok := action.(Offer)
	check.True(t, ok)
	check.Equal(t, "high", offer.Bid.IssueValues["price"])
}

func TestCombiStrategy_EmptyIndex(t *testing.T) {
	_, err := NewCombiStrategy(nil).ChooseAction(TurnContext{PartyID: "me", Protocol: SAOP})
	check.Error(t, err)
}

func TestRandomStrategy_AcceptsAboveThreshold(t *testing.T) {
	s := NewRandomStrategy(&mockRandSource{})
	index := indexOf(t, newThreeBidOracle(nil))

	tests := []struct {
		name     string
		protocol Protocol
		utility  float64
		accept   bool
	}{
		{"SAOP above threshold", SAOP, 0.70, true},
		{"SHAOP above threshold", SHAOP, 0.95, true},
		{"SAOP at threshold", SAOP, 0.60, false},
		{"SAOP below threshold", SAOP, 0.40, false},
		{"MOPAC never accepts", MOPAC, 0.95, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := s.ChooseAction(TurnContext{
				PartyID:      "me",
				Protocol:     tt.protocol,
				Index:        index,
				LastReceived: &core.BidUtilPair{Bid: bid("x"), Utility: tt.utility},
			})
			check.NoError(t, err)
			_, accepted := action.(Accept)
			check.Equal(t, tt.accept, accepted)
		})
	}
}

func TestRandomStrategy_SearchesForAcceptableBid(t *testing.T) {
	index := indexOf(t, newThreeBidOracle(nil))

	// Sorted order is low, mid, high: two misses, then mid
	s := NewRandomStrategy(&mockRandSource{sequence: []int{0, 0, 1, 2}})
	action, err := s.ChooseAction(TurnContext{PartyID: "me", Protocol: SAOP, Index: index})
	check.NoError(t, err)

	offer, ok := action.(Offer)
	check.True(t, ok)
	check.Equal(t, "mid", offer.Bid.IssueValues["price"])
}

func TestRandomStrategy_GivesUpAfterAttempts(t *testing.T) {
	oracle := &fakeOracle{
		domain:    []core.Bid{bid("a"), bid("b")},
		utilities: map[string]float64{"a": 0.1, "b": 0.2},
	}
	source := &mockRandSource{sequence: make([]int, 30)}
	for i := range source.sequence {
		source.sequence[i] = i
	}

	action, err := NewRandomStrategy(source).ChooseAction(TurnContext{
		PartyID:  "me",
		Protocol: SAOP,
		Index:    indexOf(t, oracle),
	})
	check.NoError(t, err)

	// 20 draws: the last one is 19 % 2 = 1, the "b" bid
	check.Equal(t, 20, source.index)
	check.Equal(t, "b", action.(Offer).Bid.IssueValues["price"])
}
