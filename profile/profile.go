package profile

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opennegotiation/core"
)

// weightTolerance bounds how far issue weights may sum away from 1.
var weightTolerance = decimal.New(1, -6)

// ErrInvalidProfile is returned by Validate and by the loaders.
var ErrInvalidProfile = errors.New("invalid profile")

// Domain lists the issues of a negotiation and the values each can take.
type Domain struct {
	Name   string              `json:"name" yaml:"name" toml:"name"`
	Issues map[string][]string `json:"issues" yaml:"issues" toml:"issues"`
}

// LinearAdditive is a utility space where the utility of a bid is the weighted
// sum of per-issue value utilities.
type LinearAdditive struct {
	Name   string `json:"name" yaml:"name" toml:"name"`
	Domain Domain `json:"domain" yaml:"domain" toml:"domain"`
	// IssueWeights must sum to 1.
	IssueWeights map[string]float64 `json:"issueWeights" yaml:"issueWeights" toml:"issueWeights"`
	// ValueUtilities maps issue -> value -> utility in [0,1].
	ValueUtilities map[string]map[string]float64 `json:"valueUtilities" yaml:"valueUtilities" toml:"valueUtilities"`
	// ReservationBid is optional.
	ReservationBid map[string]string `json:"reservationBid,omitempty" yaml:"reservationBid,omitempty" toml:"reservationBid,omitempty"`
}

// Validate checks the profile is complete and its weights are normalized.
func (p *LinearAdditive) Validate() error {
	if len(p.Domain.Issues) == 0 {
		return fmt.Errorf("%w: domain has no issues", ErrInvalidProfile)
	}

	total := decimal.Zero
	for _, issue := range p.issues() {
		values := p.Domain.Issues[issue]
		if len(values) == 0 {
			return fmt.Errorf("%w: issue %q has no values", ErrInvalidProfile, issue)
		}

		weight, ok := p.IssueWeights[issue]
		if !ok {
			return fmt.Errorf("%w: issue %q has no weight", ErrInvalidProfile, issue)
		}
		if weight < 0 || weight > 1 {
			return fmt.Errorf("%w: weight %.4f of issue %q outside [0,1]", ErrInvalidProfile, weight, issue)
		}
		total = total.Add(decimal.NewFromFloat(weight))

		for _, value := range values {
			u, ok := p.ValueUtilities[issue][value]
			if !ok {
				return fmt.Errorf("%w: value %q of issue %q has no utility", ErrInvalidProfile, value, issue)
			}
			if u < 0 || u > 1 {
				return fmt.Errorf("%w: utility %.4f of %s=%s outside [0,1]", ErrInvalidProfile, u, issue, value)
			}
		}
	}

	for issue := range p.IssueWeights {
		if _, ok := p.Domain.Issues[issue]; !ok {
			return fmt.Errorf("%w: weight for unknown issue %q", ErrInvalidProfile, issue)
		}
	}

	if total.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(weightTolerance) {
		return fmt.Errorf("%w: issue weights sum to %s, want 1", ErrInvalidProfile, total.String())
	}

	if len(p.ReservationBid) > 0 {
		if err := p.checkBid(p.ReservationBid); err != nil {
			return fmt.Errorf("%w: reservation bid: %w", ErrInvalidProfile, err)
		}
	}
	return nil
}

// Utility returns the weighted sum of the value utilities of bid. Issues the
// bid leaves out, or values the profile does not know, contribute nothing.
func (p *LinearAdditive) Utility(bid core.Bid) float64 {
	sum := decimal.Zero
	for issue, value := range bid.IssueValues {
		weight, ok := p.IssueWeights[issue]
		if !ok {
			continue
		}
		u, ok := p.ValueUtilities[issue][value]
		if !ok {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(weight).Mul(decimal.NewFromFloat(u)))
	}
	return sum.InexactFloat64()
}

// Bids enumerates every complete bid of the domain. Issues are taken in name
// order; the last issue varies fastest and values keep their listed order.
func (p *LinearAdditive) Bids() []core.Bid {
	issues := p.issues()
	if len(issues) == 0 {
		return nil
	}

	size := 1
	for _, issue := range issues {
		size *= len(p.Domain.Issues[issue])
	}
	if size == 0 {
		return nil
	}

	bids := make([]core.Bid, 0, size)
	positions := make([]int, len(issues))
	for {
		values := make(map[string]string, len(issues))
		for i, issue := range issues {
			values[issue] = p.Domain.Issues[issue][positions[i]]
		}
		bids = append(bids, core.Bid{IssueValues: values})

		// Odometer increment from the last issue
		i := len(issues) - 1
		for ; i >= 0; i-- {
			positions[i]++
			if positions[i] < len(p.Domain.Issues[issues[i]]) {
				break
			}
			positions[i] = 0
		}
		if i < 0 {
			return bids
		}
	}
}

// Reservation returns the reservation bid, if the profile has one.
func (p *LinearAdditive) Reservation() (core.Bid, bool) {
	if len(p.ReservationBid) == 0 {
		return core.Bid{}, false
	}
	return core.NewBid(p.ReservationBid), true
}

func (p *LinearAdditive) issues() []string {
	return slices.Sorted(maps.Keys(p.Domain.Issues))
}

func (p *LinearAdditive) checkBid(values map[string]string) error {
	for issue, value := range values {
		allowed, ok := p.Domain.Issues[issue]
		if !ok {
			return fmt.Errorf("unknown issue %q", issue)
		}
		if !slices.Contains(allowed, value) {
			return fmt.Errorf("value %q not in issue %q", value, issue)
		}
	}
	return nil
}
