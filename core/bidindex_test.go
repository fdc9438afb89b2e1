package core

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestNewBidIndex_EmptyDomain(t *testing.T) {
	index, err := NewBidIndex(nil, func(Bid) float64 { return 0 })

	check.Nil(t, index)
	check.True(t, errors.Is(err, ErrEmptyDomain))
	check.True(t, errors.Is(err, ErrInvariant))
}

func TestBidIndex_SortedAscending(t *testing.T) {
	index, err := NewBidIndex(
		[]Bid{testBid("high"), testBid("low"), testBid("mid")},
		utilityTable(map[string]float64{"low": 0.40, "mid": 0.70, "high": 0.95}),
	)
	check.NoError(t, err)

	check.Equal(t, 3, index.Size())
	check.Equal(t, "low", index.Pair(0).Bid.IssueValues["price"])
	check.Equal(t, "mid", index.Pair(1).Bid.IssueValues["price"])
	check.Equal(t, "high", index.Pair(2).Bid.IssueValues["price"])
	check.Equal(t, 0.95, index.MaxUtility())
}

func TestNewBidIndex_DoesNotAliasInput(t *testing.T) {
	bids := []Bid{testBid("high"), testBid("low")}
	index, err := NewBidIndex(bids, utilityTable(map[string]float64{"low": 0.40, "high": 0.95}))
	check.NoError(t, err)

	bids[0] = testBid("other")
	check.Equal(t, "high", index.Pair(1).Bid.IssueValues["price"])
}

func TestBidIndex_ReturnsCopies(t *testing.T) {
	index := threeBidIndex(t)

	candidates := index.BidsWithUtilityAtLeast(0.0)
	candidates[0], candidates[2] = candidates[2], candidates[0]
	candidates[1] = BidUtilPair{Bid: testBid("other"), Utility: 1.0}

	check.Equal(t, "low", index.Pair(0).Bid.IssueValues["price"])
	check.Equal(t, "mid", index.Pair(1).Bid.IssueValues["price"])
}

func TestBidsWithUtilityAtLeast(t *testing.T) {
	index := threeBidIndex(t)

	tests := []struct {
		name     string
		u        float64
		expected []string
	}{
		{"below domain returns everything", 0.0, []string{"low", "mid", "high"}},
		{"exact match is included", 0.70, []string{"mid", "high"}},
		{"between bids", 0.90, []string{"high"}},
		{"top of domain", 0.95, []string{"high"}},
		{"above domain returns nothing", 0.96, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := index.BidsWithUtilityAtLeast(tt.u)
			values := make([]string, len(result))
			for i, pair := range result {
				values[i] = pair.Bid.IssueValues["price"]
				check.GreaterThanOrEqual(t, pair.Utility, tt.u)
			}
			check.Equal(t, tt.expected, values)
		})
	}
}

func TestHighestUtilityBidAtMost(t *testing.T) {
	index := threeBidIndex(t)

	tests := []struct {
		name     string
		u        float64
		expected string
		found    bool
	}{
		{"between mid and high", 0.90, "mid", true},
		{"exact match", 0.95, "high", true},
		{"above domain", 1.0, "high", true},
		{"lowest bid is eligible", 0.40, "low", true},
		{"below domain", 0.30, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, ok := index.HighestUtilityBidAtMost(tt.u)
			check.Equal(t, tt.found, ok)
			if ok {
				check.Equal(t, tt.expected, pair.Bid.IssueValues["price"])
			}
		})
	}
}

func TestHighestUtilityBidAtMost_TieTakesLastEnumerated(t *testing.T) {
	index, err := NewBidIndex(
		[]Bid{testBid("a"), testBid("b"), testBid("c")},
		utilityTable(map[string]float64{"a": 0.7, "b": 0.7, "c": 0.9}),
	)
	check.NoError(t, err)

	pair, ok := index.HighestUtilityBidAtMost(0.8)
	check.True(t, ok)
	check.Equal(t, "b", pair.Bid.IssueValues["price"])
}
