package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by a negotiation session.
var (
	// ErrTransport means an action could not be delivered to the host.
	ErrTransport = errors.New("transport failure")
	// ErrProfileUnavailable means the utility oracle could not be opened.
	ErrProfileUnavailable = errors.New("profile unavailable")
	// ErrProtocolMismatch means the session runs a protocol we do not recognize.
	ErrProtocolMismatch = errors.New("protocol mismatch")
	// ErrInvariant marks internal failures that must abort the session.
	ErrInvariant = errors.New("invariant violated")
)

var (
	ErrEmptyDomain  = fmt.Errorf("%w: empty domain", ErrInvariant)
	ErrEmptyWindow  = fmt.Errorf("%w: empty history window", ErrInvariant)
	ErrEmptyHistory = fmt.Errorf("%w: empty history", ErrInvariant)
)
