package core

import "slices"

// ExchangeHistory is the append-only record of the opponent's offers, in arrival
// order, each paired with the utility our profile assigns to it.
// Repeated bids produce repeated entries.
type ExchangeHistory struct {
	pairs []BidUtilPair
}

// NewExchangeHistory returns an empty history.
func NewExchangeHistory() *ExchangeHistory {
	return &ExchangeHistory{pairs: make([]BidUtilPair, 0)}
}

// Append records a received bid.
func (h *ExchangeHistory) Append(bid Bid, utility float64) {
	h.pairs = append(h.pairs, BidUtilPair{Bid: bid, Utility: utility})
}

// Size returns the number of recorded offers.
func (h *ExchangeHistory) Size() int {
	return len(h.pairs)
}

// Last returns the most recent entry.
func (h *ExchangeHistory) Last() (BidUtilPair, bool) {
	if len(h.pairs) == 0 {
		return BidUtilPair{}, false
	}
	return h.pairs[len(h.pairs)-1], true
}

// Pairs returns a copy of the history, oldest first.
func (h *ExchangeHistory) Pairs() []BidUtilPair {
	return slices.Clone(h.pairs)
}

// AverageUtilityOverLastK returns the mean utility of the last k entries.
// Returns ErrEmptyWindow if k <= 0 or fewer than k entries exist.
func (h *ExchangeHistory) AverageUtilityOverLastK(k int) (float64, error) {
	window, err := h.lastK(k)
	if err != nil {
		return 0, err
	}

	sum := 0.0
	for _, pair := range window {
		sum += pair.Utility
	}
	return sum / float64(len(window)), nil
}

// MaxUtilityOverLastK returns the highest utility among the last k entries.
// Returns ErrEmptyWindow if k <= 0 or fewer than k entries exist.
func (h *ExchangeHistory) MaxUtilityOverLastK(k int) (float64, error) {
	window, err := h.lastK(k)
	if err != nil {
		return 0, err
	}
	return maxUtility(window), nil
}

// MaxUtilityOverall returns the highest utility ever offered by the opponent.
// Returns ErrEmptyHistory if nothing has been received yet.
func (h *ExchangeHistory) MaxUtilityOverall() (float64, error) {
	if len(h.pairs) == 0 {
		return 0, ErrEmptyHistory
	}
	return maxUtility(h.pairs), nil
}

func (h *ExchangeHistory) lastK(k int) ([]BidUtilPair, error) {
	if k <= 0 || len(h.pairs) < k {
		return nil, ErrEmptyWindow
	}
	return h.pairs[len(h.pairs)-k:], nil
}

func maxUtility(pairs []BidUtilPair) float64 {
	best := pairs[0].Utility
	for _, pair := range pairs[1:] {
		if pair.Utility > best {
			best = pair.Utility
		}
	}
	return best
}
