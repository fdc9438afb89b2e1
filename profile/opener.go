package profile

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
)

// Opener resolves profile references to files under Dir.
//
// Accepted references are plain paths and file: URIs. Relative paths are
// resolved against Dir, or the working directory when Dir is empty. Absolute
// paths are only accepted when Dir is set, and every path must stay inside the
// directory after symlinks are resolved.
type Opener struct {
	Dir string
}

// Open loads the referenced profile and wraps it as a utility oracle.
func (o Opener) Open(ctx context.Context, uri string) (party.UtilityOracle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := o.resolve(uri)
	if err != nil {
		return nil, err
	}

	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewOracle(p), nil
}

func (o Opener) resolve(uri string) (string, error) {
	path := uri
	if strings.Contains(uri, ":") {
		u, err := url.Parse(uri)
		if err != nil {
			return "", fmt.Errorf("invalid profile reference %q: %w", uri, err)
		}
		if u.Scheme != "file" {
			return "", fmt.Errorf("unsupported profile reference scheme %q", u.Scheme)
		}
		path = u.Path
		if path == "" {
			path = u.Opaque
		}
	}
	if path == "" {
		return "", fmt.Errorf("empty profile reference")
	}

	base, err := o.root()
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		if o.Dir == "" {
			return "", fmt.Errorf("absolute profile path %q needs a profile directory", uri)
		}
	} else {
		path = filepath.Join(base, path)
	}

	// Links are followed before the containment check so a link inside the
	// directory cannot point outside it.
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("profile %q: %w", uri, err)
	}
	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("profile %q is outside %s", uri, base)
	}
	return resolved, nil
}

// root is Dir, or the working directory when Dir is empty, with links resolved.
func (o Opener) root() (string, error) {
	dir := o.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("profile directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("profile directory: %w", err)
	}
	return resolved, nil
}

// Oracle serves a loaded profile to a party session.
type Oracle struct {
	profile   *LinearAdditive
	bids      []core.Bid
	closeOnce sync.Once
}

// NewOracle enumerates the domain of p once and returns an oracle over it.
func NewOracle(p *LinearAdditive) *Oracle {
	return &Oracle{profile: p, bids: p.Bids()}
}

func (o *Oracle) Utility(bid core.Bid) float64 {
	return o.profile.Utility(bid)
}

func (o *Oracle) Bids() []core.Bid {
	return o.bids
}

func (o *Oracle) ReservationBid() (core.Bid, bool) {
	return o.profile.Reservation()
}

// Close drops the enumerated domain. Later calls do nothing.
func (o *Oracle) Close() error {
	o.closeOnce.Do(func() {
		o.bids = nil
	})
	return nil
}
