package core

import (
	"slices"
	"sort"
)

// BidIndex is an immutable, utility-sorted view of an entire negotiation domain.
// It is built once per session and may be shared freely after construction.
type BidIndex struct {
	sorted []BidUtilPair
}

// NewBidIndex evaluates every bid once and sorts the domain by ascending utility.
// Bids with equal utility keep their enumeration order, so queries that break
// ties by position are deterministic for a given enumeration.
//
// Returns ErrEmptyDomain if bids is empty.
func NewBidIndex(bids []Bid, utility func(Bid) float64) (*BidIndex, error) {
	if len(bids) == 0 {
		return nil, ErrEmptyDomain
	}

	sorted := make([]BidUtilPair, len(bids))
	for i, bid := range bids {
		sorted[i] = BidUtilPair{Bid: bid, Utility: utility(bid)}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Less(sorted[j])
	})

	return &BidIndex{sorted: sorted}, nil
}

// Size returns the number of bids in the domain.
func (x *BidIndex) Size() int {
	return len(x.sorted)
}

// MaxUtility returns the highest utility in the domain.
func (x *BidIndex) MaxUtility() float64 {
	return x.sorted[len(x.sorted)-1].Utility
}

// BidsWithUtilityAtLeast returns every bid whose utility is >= u, in ascending
// utility order. The slice is freshly allocated; callers may reorder it.
func (x *BidIndex) BidsWithUtilityAtLeast(u float64) []BidUtilPair {
	start := sort.Search(len(x.sorted), func(i int) bool {
		return x.sorted[i].Utility >= u
	})
	return slices.Clone(x.sorted[start:])
}

// HighestUtilityBidAtMost returns the bid with the greatest utility <= u.
// Among equal utilities the bid enumerated last wins.
// The boolean is false when every bid in the domain is above u.
func (x *BidIndex) HighestUtilityBidAtMost(u float64) (BidUtilPair, bool) {
	end := sort.Search(len(x.sorted), func(i int) bool {
		return x.sorted[i].Utility > u
	})
	if end == 0 {
		return BidUtilPair{}, false
	}
	return x.sorted[end-1], true
}

// Pair returns the i-th bid in ascending utility order.
func (x *BidIndex) Pair(i int) BidUtilPair {
	return x.sorted[i]
}
