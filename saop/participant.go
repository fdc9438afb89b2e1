package saop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cloudx-io/opennegotiation/party"
	"github.com/cloudx-io/opennegotiation/partyapi"
)

// ErrNoAction is returned when a participant ends its turn without acting.
var ErrNoAction = errors.New("participant did not act")

// Participant is a party as seen by the host.
type Participant interface {
	ID() string
	// Inform delivers an inform. In-process participants have handled it by
	// the time Inform returns.
	Inform(ctx context.Context, inform party.Inform) error
	// Action returns the action sent in response to the last YourTurn.
	Action(ctx context.Context) (party.Action, error)
	Close() error
}

// Mailbox is the party.Connection of an in-process party. It keeps the
// actions the party sends until the host collects them.
type Mailbox struct {
	mu      sync.Mutex
	pending []party.Action
}

func (m *Mailbox) Send(_ context.Context, action party.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, action)
	return nil
}

func (m *Mailbox) take() (party.Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, false
	}
	action := m.pending[0]
	m.pending = m.pending[1:]
	return action, true
}

// Local runs a party in-process.
type Local struct {
	id      string
	party   *party.Party
	mailbox *Mailbox
}

// NewLocal creates a party with strategy that sends to its own mailbox.
func NewLocal(id string, strategy party.Strategy, opener party.OracleOpener, opts ...party.Option) *Local {
	mailbox := &Mailbox{}
	return &Local{
		id:      id,
		party:   party.New(strategy, opener, mailbox, opts...),
		mailbox: mailbox,
	}
}

func (l *Local) ID() string { return l.id }

// Party exposes the wrapped party.
func (l *Local) Party() *party.Party { return l.party }

func (l *Local) Inform(ctx context.Context, inform party.Inform) error {
	return l.party.Handle(ctx, inform)
}

func (l *Local) Action(context.Context) (party.Action, error) {
	action, ok := l.mailbox.take()
	if !ok {
		return nil, ErrNoAction
	}
	return action, nil
}

func (l *Local) Close() error {
	l.party.Close()
	return nil
}

// Remote is a party served over a websocket, e.g. by this repo's server.
type Remote struct {
	id          string
	ws          *websocket.Conn
	turnTimeout time.Duration
}

// Dial connects to a party endpoint such as ws://host:8080/party.
func Dial(ctx context.Context, id, url string, turnTimeout time.Duration) (*Remote, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Remote{id: id, ws: ws, turnTimeout: turnTimeout}, nil
}

func (r *Remote) ID() string { return r.id }

func (r *Remote) Inform(_ context.Context, inform party.Inform) error {
	data, err := partyapi.EncodeInform(inform)
	if err != nil {
		return err
	}
	if err := r.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s to %s: %w", inform.InformName(), r.id, err)
	}
	return nil
}

func (r *Remote) Action(ctx context.Context) (party.Action, error) {
	deadline := time.Now().Add(r.turnTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = r.ws.SetReadDeadline(deadline)

	_, message, err := r.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoAction, r.id, err)
	}
	return partyapi.DecodeAction(message)
}

// Close ends the connection; the remote party closes its session.
func (r *Remote) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = r.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return r.ws.Close()
}
