package core

import (
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestNewRandSource_ZeroSeedIsCrypto(t *testing.T) {
	_, ok := NewRandSource(0).(cryptoRandSource)
	check.True(t, ok)
}

func TestNewRandSource_SeededIsReproducible(t *testing.T) {
	a := NewRandSource(42)
	b := NewRandSource(42)

	for range 100 {
		check.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestRandSource_Range(t *testing.T) {
	for _, source := range []RandSource{NewRandSource(0), NewRandSource(3)} {
		seen := make(map[int]bool)
		for range 500 {
			v := source.Intn(4)
			check.True(t, v >= 0 && v < 4)
			seen[v] = true
		}
		check.Equal(t, 4, len(seen))
	}
}

func TestShufflePairs(t *testing.T) {
	pairs := []BidUtilPair{
		{Bid: testBid("a"), Utility: 0.1},
		{Bid: testBid("b"), Utility: 0.2},
		{Bid: testBid("c"), Utility: 0.3},
	}

	// k=2: Intn(3)=0 swaps c and a -> [c b a]
	// k=1: Intn(2)=1 keeps the order
	shufflePairs(pairs, &mockRandSource{sequence: []int{0, 1}})

	check.Equal(t, "c", pairs[0].Bid.IssueValues["price"])
	check.Equal(t, "b", pairs[1].Bid.IssueValues["price"])
	check.Equal(t, "a", pairs[2].Bid.IssueValues["price"])
}

func TestShufflePairs_Empty(t *testing.T) {
	shufflePairs(nil, &mockRandSource{})
	shufflePairs([]BidUtilPair{{Utility: 0.5}}, &mockRandSource{})
}
