package core

// BiddingState is the part of the session state the target curve depends on.
type BiddingState struct {
	// Progress is the normalized session clock in [0,1].
	Progress float64
	// Reservation is the reservation utility R.
	Reservation float64
	// LastSent is our previous offer, nil before our first offer.
	LastSent *BidUtilPair
	// LastReceived is the opponent's latest offer, nil before the first one.
	LastReceived *BidUtilPair
}

// Selection describes the bid chosen for an outgoing offer.
type Selection struct {
	Bid     Bid
	Utility float64
	Target  float64
	// Fallback is set when fewer than two bids met the target and the best bid
	// below the target was added to the candidates.
	Fallback bool
	// Candidates is the number of bids the choice was made from.
	Candidates int
}

// TargetUtility returns the utility our next bid should reach.
//
// Before anything was received the target is ACConst. Afterwards it is
//
//	R' + ((1-R')/4)(1-t) + ((1-R')*3/4)*avg
//
// where R' = ConcessionFloor(R), t the progress and avg the midpoint between our
// last sent utility (ACConst if none) and the last received utility.
func TargetUtility(s BiddingState) float64 {
	if s.LastReceived == nil {
		return ACConst
	}

	floor := ConcessionFloor(s.Reservation)
	return ((1-floor)/4.0)*(1-s.Progress) +
		((1-floor)*(3.0/4.0))*exchangeMidpoint(s) +
		floor
}

// exchangeMidpoint averages the last utilities both sides put on the table.
func exchangeMidpoint(s BiddingState) float64 {
	lastSentUtility := ACConst
	if s.LastSent != nil {
		lastSentUtility = s.LastSent.Utility
	}
	return (s.LastReceived.Utility + lastSentUtility) / 2.0
}

// BiddingPolicy picks outgoing bids around the target utility.
type BiddingPolicy struct {
	randSource RandSource
}

// NewBiddingPolicy returns a policy drawing from randSource, or from a
// crypto/rand source when randSource is nil.
func NewBiddingPolicy(randSource RandSource) *BiddingPolicy {
	if randSource == nil {
		randSource = defaultRandSource
	}
	return &BiddingPolicy{randSource: randSource}
}

// Choose selects the next bid to offer.
//
// Processing flow:
//  1. Compute the target utility for this turn
//  2. Collect every bid at or above the target
//  3. With fewer than two candidates, add the best bid at or below the target
//  4. Pick uniformly at random among the candidates
func (p *BiddingPolicy) Choose(index *BidIndex, s BiddingState) (Selection, error) {
	if index == nil || index.Size() == 0 {
		return Selection{}, ErrEmptyDomain
	}

	// Step 1: Target utility
	target := TargetUtility(s)

	// Step 2: Candidates at or above target
	candidates := index.BidsWithUtilityAtLeast(target)

	// Step 3: Keep moving when the target sits at the top of the domain
	fallback := false
	if len(candidates) <= 1 {
		if below, ok := index.HighestUtilityBidAtMost(target); ok {
			candidates = append(candidates, below)
			fallback = true
		}
	}
	if len(candidates) == 0 {
		return Selection{}, ErrEmptyDomain
	}

	// Step 4: Uniform choice
	shufflePairs(candidates, p.randSource)
	chosen := candidates[0]

	return Selection{
		Bid:        chosen.Bid,
		Utility:    chosen.Utility,
		Target:     target,
		Fallback:   fallback,
		Candidates: len(candidates),
	}, nil
}
