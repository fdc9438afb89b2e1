package party

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/opennegotiation/core"
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

func bid(value string) core.Bid {
	return core.NewBid(map[string]string{"price": value})
}

// fakeOracle serves utilities from a table keyed by the "price" issue.
type fakeOracle struct {
	domain      []core.Bid
	utilities   map[string]float64
	reservation *core.Bid
	closeCount  int
}

// newThreeBidOracle returns the {0.40, 0.70, 0.95} domain. Extra utilities can
// be registered for bids the opponent offers.
func newThreeBidOracle(extra map[string]float64) *fakeOracle {
	utilities := map[string]float64{"low": 0.40, "mid": 0.70, "high": 0.95}
	for k, v := range extra {
		utilities[k] = v
	}
	return &fakeOracle{
		domain:    []core.Bid{bid("low"), bid("mid"), bid("high")},
		utilities: utilities,
	}
}

func (o *fakeOracle) Utility(b core.Bid) float64 {
	return o.utilities[b.IssueValues["price"]]
}

func (o *fakeOracle) Bids() []core.Bid {
	return o.domain
}

func (o *fakeOracle) ReservationBid() (core.Bid, bool) {
	if o.reservation == nil {
		return core.Bid{}, false
	}
	return *o.reservation, true
}

func (o *fakeOracle) Close() error {
	o.closeCount++
	return nil
}

type fakeOpener struct {
	oracle *fakeOracle
	err    error
	opened []string
}

func (f *fakeOpener) Open(_ context.Context, uri string) (UtilityOracle, error) {
	f.opened = append(f.opened, uri)
	if f.err != nil {
		return nil, f.err
	}
	return f.oracle, nil
}

type fakeConn struct {
	sent []Action
	err  error
}

func (c *fakeConn) Send(_ context.Context, action Action) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, action)
	return nil
}

func (c *fakeConn) last() Action {
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

func (c *fakeConn) count(name string) int {
	n := 0
	for _, a := range c.sent {
		if a.ActionName() == name {
			n++
		}
	}
	return n
}

type fakeRecorder struct {
	snapshots []Snapshot
	err       error
}

func (r *fakeRecorder) Record(_ context.Context, s Snapshot) error {
	r.snapshots = append(r.snapshots, s)
	return r.err
}

var errBroken = errors.New("broken")

func roundSettings(partyID string, total, current int) Settings {
	return Settings{
		PartyID:     partyID,
		ProfileURI:  "file:profile.json",
		ProtocolRef: "SAOP",
		Progress:    RoundProgress{Duration: total, Current: current},
	}
}

func checkApprox(t *testing.T, want, got float64) {
	t.Helper()
	check.True(t, math.Abs(want-got) < 1e-9)
}
