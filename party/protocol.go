package party

import (
	"fmt"
	"strings"

	"github.com/cloudx-io/opennegotiation/core"
)

// Protocol names the negotiation protocol a session runs.
type Protocol string

const (
	SAOP   Protocol = "SAOP"
	SHAOP  Protocol = "SHAOP"
	MOPAC  Protocol = "MOPAC"
	MOPAC2 Protocol = "MOPAC2"
	Learn  Protocol = "Learn"
)

// ParseProtocol resolves a protocol reference as found in session settings.
// References may be given as a bare name or as a URI path ("/SAOP").
func ParseProtocol(ref string) (Protocol, error) {
	name := strings.TrimPrefix(strings.TrimSpace(ref), "/")
	switch p := Protocol(name); p {
	case SAOP, SHAOP, MOPAC, MOPAC2, Learn:
		return p, nil
	default:
		return Protocol(name), fmt.Errorf("%w: %q", core.ErrProtocolMismatch, ref)
	}
}

// AdvancesOn reports whether receiving inform moves round-based progress to
// the next round under this protocol.
func (p Protocol) AdvancesOn(inform Inform) bool {
	switch p {
	case SAOP, SHAOP:
		_, ok := inform.(YourTurn)
		return ok
	case MOPAC:
		_, ok := inform.(OptIn)
		return ok
	case MOPAC2:
		_, ok := inform.(OptInWithValue)
		return ok
	default:
		return false
	}
}

// Bilateral reports whether the protocol is a plain alternating-offers protocol.
func (p Protocol) Bilateral() bool {
	return p == SAOP || p == SHAOP
}
