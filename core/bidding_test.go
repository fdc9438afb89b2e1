package core

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestTargetUtility_BeforeFirstReceived(t *testing.T) {
	target := TargetUtility(BiddingState{Progress: 0.7, Reservation: 0.6})
	check.Equal(t, ACConst, target)
}

func TestTargetUtility_Curve(t *testing.T) {
	tests := []struct {
		name     string
		state    BiddingState
		expected float64
	}{
		{
			name: "first counter offer uses ACConst as our last utility",
			state: BiddingState{
				Progress:     0.0,
				Reservation:  0.6,
				LastReceived: &BidUtilPair{Bid: testBid("low"), Utility: 0.40},
			},
			// 0.1*(1-0) + 0.3*((0.40+0.90)/2) + 0.6
			expected: 0.895,
		},
		{
			name: "midpoint of both last offers",
			state: BiddingState{
				Progress:     0.0,
				Reservation:  0.6,
				LastSent:     &BidUtilPair{Bid: testBid("high"), Utility: 0.95},
				LastReceived: &BidUtilPair{Bid: testBid("low"), Utility: 0.40},
			},
			expected: 0.9025,
		},
		{
			name: "low reservation is raised to the concession floor",
			state: BiddingState{
				Progress:     0.5,
				Reservation:  0.3,
				LastReceived: &BidUtilPair{Bid: testBid("low"), Utility: 0.40},
			},
			// 0.125*0.5 + 0.375*0.65 + 0.5
			expected: 0.80625,
		},
		{
			name: "end of session",
			state: BiddingState{
				Progress:     1.0,
				Reservation:  0.6,
				LastSent:     &BidUtilPair{Bid: testBid("mid"), Utility: 0.70},
				LastReceived: &BidUtilPair{Bid: testBid("mid"), Utility: 0.70},
			},
			expected: 0.81,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkApprox(t, tt.expected, TargetUtility(tt.state))
		})
	}
}

func TestTargetUtility_NeverBelowFloor(t *testing.T) {
	for _, reservation := range []float64{0.0, 0.3, 0.5, 0.6, 0.8} {
		for _, progress := range []float64{0.0, 0.5, 1.0} {
			state := BiddingState{
				Progress:     progress,
				Reservation:  reservation,
				LastSent:     &BidUtilPair{Utility: 0.0},
				LastReceived: &BidUtilPair{Utility: 0.0},
			}
			check.GreaterThanOrEqual(t, TargetUtility(state), ConcessionFloor(reservation))
		}
	}
}

func TestChoose_OpeningOfferUsesFallback(t *testing.T) {
	index := threeBidIndex(t)

	// Target 0.90 leaves only "high"; "mid" is added as the best bid below it.
	// Intn(2)=0 swaps the two candidates.
	policy := NewBiddingPolicy(&mockRandSource{sequence: []int{0}})
	selection, err := policy.Choose(index, BiddingState{Reservation: 0.6})
	check.NoError(t, err)

	check.Equal(t, ACConst, selection.Target)
	check.True(t, selection.Fallback)
	check.Equal(t, 2, selection.Candidates)
	check.Equal(t, "mid", selection.Bid.IssueValues["price"])
	check.Equal(t, 0.70, selection.Utility)

	// Intn(2)=1 keeps the order
	policy = NewBiddingPolicy(&mockRandSource{sequence: []int{1}})
	selection, err = policy.Choose(index, BiddingState{Reservation: 0.6})
	check.NoError(t, err)
	check.Equal(t, "high", selection.Bid.IssueValues["price"])
}

func TestChoose_OnlyOpeningCandidates(t *testing.T) {
	index := threeBidIndex(t)
	policy := NewBiddingPolicy(NewRandSource(7))

	for range 200 {
		selection, err := policy.Choose(index, BiddingState{Reservation: 0.6})
		check.NoError(t, err)
		check.NotEqual(t, "low", selection.Bid.IssueValues["price"])
	}
}

func TestChoose_EnoughCandidatesNoFallback(t *testing.T) {
	utilities := map[string]float64{"a": 0.5, "b": 0.8, "c": 0.9, "d": 0.95, "e": 1.0}
	bids := []Bid{testBid("a"), testBid("b"), testBid("c"), testBid("d"), testBid("e")}
	index, err := NewBidIndex(bids, utilityTable(utilities))
	check.NoError(t, err)

	state := BiddingState{
		Progress:     1.0,
		Reservation:  0.6,
		LastSent:     &BidUtilPair{Bid: testBid("d"), Utility: 0.95},
		LastReceived: &BidUtilPair{Bid: testBid("d"), Utility: 0.95},
	}

	policy := NewBiddingPolicy(NewRandSource(11))
	for range 50 {
		selection, err := policy.Choose(index, state)
		check.NoError(t, err)
		check.False(t, selection.Fallback)
		check.Equal(t, 3, selection.Candidates)
		check.GreaterThanOrEqual(t, selection.Utility, selection.Target)
	}
}

func TestChoose_SingleBidDomain(t *testing.T) {
	index, err := NewBidIndex([]Bid{testBid("only")}, utilityTable(map[string]float64{"only": 0.3}))
	check.NoError(t, err)

	selection, err := NewBiddingPolicy(nil).Choose(index, BiddingState{Reservation: 0.6})
	check.NoError(t, err)
	check.Equal(t, "only", selection.Bid.IssueValues["price"])
	check.True(t, selection.Fallback)
	check.Equal(t, 1, selection.Candidates)
}

func TestChoose_NilIndex(t *testing.T) {
	_, err := NewBiddingPolicy(nil).Choose(nil, BiddingState{})
	check.True(t, errors.Is(err, ErrEmptyDomain))
}
