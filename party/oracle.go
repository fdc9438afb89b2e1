package party

import (
	"context"

	"github.com/cloudx-io/opennegotiation/core"
)

// UtilityOracle answers utility questions about one profile for one session.
type UtilityOracle interface {
	// Utility returns the utility of bid in [0,1].
	Utility(bid core.Bid) float64
	// Bids enumerates the full domain.
	Bids() []core.Bid
	// ReservationBid returns the profile's reservation bid, if any.
	ReservationBid() (core.Bid, bool)
	// Close releases the profile. Calling it more than once is a no-op.
	Close() error
}

// OracleOpener opens the profile referenced by a session's settings.
type OracleOpener interface {
	Open(ctx context.Context, uri string) (UtilityOracle, error)
}

// Connection delivers actions to the negotiation host.
type Connection interface {
	Send(ctx context.Context, action Action) error
}

// Recorder persists the outcome of a finished session.
type Recorder interface {
	Record(ctx context.Context, snapshot Snapshot) error
}
