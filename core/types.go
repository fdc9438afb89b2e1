package core

import (
	"maps"
	"slices"
	"strings"
)

// Strategy constants for the AC_Combi acceptance condition and the
// reservation-anchored bidding curve.
const (
	// Alpha scales the received utility in AC_Next.
	Alpha = 1.0
	// Beta is the additive offset in AC_Next.
	Beta = 0.0
	// ACConst is the opening target utility.
	ACConst = 0.90
	// ACTime is the progress after which AC_Next is bypassed.
	ACTime = 0.92
	// ResAlt is the concession floor used when the reservation utility is lower.
	ResAlt = 0.5
	// DefaultReservation applies when the profile has no reservation bid.
	DefaultReservation = 0.6

	halfTime = 0.5
)

// Bid is a complete assignment of values to the issues of a negotiation domain.
// The decision core never looks inside a bid; it only carries it around and asks
// a utility function about it.
type Bid struct {
	IssueValues map[string]string `json:"issuevalues"`
}

// NewBid returns a bid holding a copy of issueValues.
func NewBid(issueValues map[string]string) Bid {
	return Bid{IssueValues: maps.Clone(issueValues)}
}

// keyEscaper escapes the separators used by Key so distinct bids never share
// a key.
var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `=`, `\=`)

// Key returns a canonical string form of the bid: issues sorted by name,
// rendered as issue=value and joined with "|". Backslash, "|" and "=" inside
// issues and values are escaped with a backslash.
func (b Bid) Key() string {
	issues := slices.Sorted(maps.Keys(b.IssueValues))

	var sb strings.Builder
	for i, issue := range issues {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(keyEscaper.Replace(issue))
		sb.WriteByte('=')
		sb.WriteString(keyEscaper.Replace(b.IssueValues[issue]))
	}
	return sb.String()
}

// Equal reports whether both bids assign the same values to the same issues.
func (b Bid) Equal(other Bid) bool {
	return maps.Equal(b.IssueValues, other.IssueValues)
}

// IsZero reports whether the bid assigns no values at all.
func (b Bid) IsZero() bool {
	return len(b.IssueValues) == 0
}

// BidUtilPair couples a bid with the utility our profile assigns to it.
// Pairs are ordered by utility.
type BidUtilPair struct {
	Bid     Bid     `json:"bid"`
	Utility float64 `json:"utility"`
}

// Less orders pairs by ascending utility.
func (p BidUtilPair) Less(other BidUtilPair) bool {
	return p.Utility < other.Utility
}
