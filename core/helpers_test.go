package core

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/check"
)

// mockRandSource provides a deterministic random source for testing
type mockRandSource struct {
	sequence []int
	index    int
}

func (m *mockRandSource) Intn(n int) int {
	if m.index >= len(m.sequence) {
		return 0
	}
	val := m.sequence[m.index] % n
	m.index++
	return val
}

// testBid builds a single-issue bid.
func testBid(value string) Bid {
	return NewBid(map[string]string{"price": value})
}

// utilityTable returns a utility function backed by a fixed lookup.
func utilityTable(utilities map[string]float64) func(Bid) float64 {
	return func(b Bid) float64 {
		return utilities[b.IssueValues["price"]]
	}
}

// threeBidIndex is the {0.40, 0.70, 0.95} domain used throughout the tests.
func threeBidIndex(t *testing.T) *BidIndex {
	t.Helper()
	index, err := NewBidIndex(
		[]Bid{testBid("low"), testBid("mid"), testBid("high")},
		utilityTable(map[string]float64{"low": 0.40, "mid": 0.70, "high": 0.95}),
	)
	check.NoError(t, err)
	return index
}

func checkApprox(t *testing.T, want, got float64) {
	t.Helper()
	check.True(t, math.Abs(want-got) < 1e-9)
}
