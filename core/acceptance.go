package core

// ACNext reports whether a*received + b >= next, the AC_Next acceptance condition.
func ACNext(a, b, received, next float64) bool {
	return a*received+b >= next
}

// AcceptanceInput carries everything the acceptance decision looks at.
type AcceptanceInput struct {
	// ReceivedUtility is the utility of the opponent's last offer.
	ReceivedUtility float64
	// NextUtility is the target utility of the bid we would send instead.
	NextUtility float64
	// Progress is the normalized session clock in [0,1].
	Progress float64
	// RoundBased is set when progress counts rounds; RoundsRemaining is only
	// meaningful then.
	RoundBased      bool
	RoundsRemaining int
	// Reservation is the reservation utility R.
	Reservation float64
	// History holds the opponent's offers, including the one being judged.
	History *ExchangeHistory
}

// AcceptanceDecision is the outcome of an acceptance check together with the
// intermediate values, kept for logging.
type AcceptanceDecision struct {
	Accept       bool
	ACNext       bool
	PastHalfTime bool

	// Window is floor(RoundsRemaining/2); ACMaxW is the best utility received in it.
	Window    int
	ACMaxW    float64
	HasACMaxW bool

	// ACMaxT is the best utility received over the whole session.
	ACMaxT    float64
	HasACMaxT bool

	// Reason explains a rejection that did not come from the predicate itself.
	Reason string
}

// AcceptancePolicy implements a variant of AC_Combi:
//
//	(AC_Next(Alpha, Beta) OR t > TimeThreshold) AND u_in >= max(history) AND u_in > R
//
// after halftime, and plain AC_Next before it.
type AcceptancePolicy struct {
	Alpha         float64
	Beta          float64
	TimeThreshold float64
}

// DefaultAcceptancePolicy returns the policy with the agent's fixed constants.
func DefaultAcceptancePolicy() AcceptancePolicy {
	return AcceptancePolicy{
		Alpha:         Alpha,
		Beta:          Beta,
		TimeThreshold: ACTime,
	}
}

// Evaluate decides whether the last received offer should be accepted.
//
// Processing flow:
//  1. Evaluate AC_Next against the target of our next bid
//  2. Before halftime, or when progress is time based, AC_Next alone decides
//  3. Compute acMaxW over the last floor(roundsRemaining/2) offers (logged only)
//  4. Compute acMaxT over the whole history
//  5. Combine: (AC_Next or past TimeThreshold) and u_in >= acMaxT and u_in > R
func (p AcceptancePolicy) Evaluate(in AcceptanceInput) AcceptanceDecision {
	// Step 1: AC_Next
	decision := AcceptanceDecision{
		ACNext: ACNext(p.Alpha, p.Beta, in.ReceivedUtility, in.NextUtility),
	}

	// Step 2: Halftime gate
	if !in.RoundBased || in.Progress <= halfTime {
		decision.Accept = decision.ACNext
		return decision
	}
	decision.PastHalfTime = true

	if in.History == nil {
		decision.Reason = "no history"
		return decision
	}

	// Step 3: Windowed maximum
	decision.Window = max(in.RoundsRemaining, 0) / 2
	if decision.Window > 0 {
		acMaxW, err := in.History.MaxUtilityOverLastK(decision.Window)
		if err != nil {
			decision.Reason = "history shorter than window"
			return decision
		}
		decision.ACMaxW, decision.HasACMaxW = acMaxW, true
	}

	// Step 4: Overall maximum
	acMaxT, err := in.History.MaxUtilityOverall()
	if err != nil {
		decision.Reason = "empty history"
		return decision
	}
	decision.ACMaxT, decision.HasACMaxT = acMaxT, true

	// Step 5: AC_Combi
	decision.Accept = (decision.ACNext || in.Progress > p.TimeThreshold) &&
		in.ReceivedUtility >= acMaxT &&
		AboveReservation(in.ReceivedUtility, in.Reservation)

	return decision
}
