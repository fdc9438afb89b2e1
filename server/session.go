package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/cloudx-io/opennegotiation/core"
	"github.com/cloudx-io/opennegotiation/party"
	"github.com/cloudx-io/opennegotiation/partyapi"
)

const writeTimeout = 10 * time.Second

// wsConnection sends party actions over a websocket.
type wsConnection struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConnection) Send(_ context.Context, action party.Action) error {
	data, err := partyapi.EncodeAction(action)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write %s: %w", action.ActionName(), err)
	}
	return nil
}

func (c *wsConnection) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	if err := c.ws.Close(); err != nil {
		log.Printf("ERROR: Failed to close connection: %v", err)
	}
}

// HandleParty upgrades the request and runs one negotiation session on it.
// Requests beyond server.max_workers are rejected before the upgrade.
func (s *Server) HandleParty(c echo.Context) error {
	// Acquire worker slot - immediate rejection if pool full
	if !s.acquire() {
		log.Printf("INFO: No workers available, rejecting connection (pool full)")
		return errorJSON(c, http.StatusServiceUnavailable, "no workers available")
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.release()
		log.Printf("ERROR: Failed to upgrade websocket: %v", err)
		return nil
	}
	ws.SetReadLimit(maxMessageSize)

	go func() {
		defer s.release()
		s.runSession(&wsConnection{ws: ws})
	}()
	return nil
}

// runSession feeds informs from the host to a fresh Party until the session
// finishes, fails, or the host disconnects.
func (s *Server) runSession(conn *wsConnection) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var p *party.Party
	closeCode, closeReason := websocket.CloseNormalClosure, ""
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in party session: %v", r)
			closeCode, closeReason = websocket.CloseInternalServerErr, "internal error"
		}
		if p != nil {
			p.Close()
		}
		conn.close(closeCode, closeReason)
	}()

	strategy, err := s.newStrategy()
	if err != nil {
		log.Printf("ERROR: Failed to create strategy: %v", err)
		closeCode, closeReason = websocket.CloseInternalServerErr, "strategy unavailable"
		return
	}

	opts := []party.Option{party.WithClock(s.now)}
	if s.recorder != nil {
		opts = append(opts, party.WithRecorder(s.recorder))
	}
	p = party.New(strategy, s.opener, conn, opts...)
	log.Printf("INFO: Session %s opened", p.SessionID())

	for !p.Finished() {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("ERROR: Session %s read failed: %v", p.SessionID(), err)
			} else {
				log.Printf("INFO: Session %s closed by host", p.SessionID())
			}
			return
		}

		inform, err := partyapi.DecodeInform(message)
		if err != nil {
			log.Printf("ERROR: Session %s received malformed inform: %v", p.SessionID(), err)
			closeCode, closeReason = websocket.CloseUnsupportedData, "malformed inform"
			return
		}

		if err := p.Handle(ctx, inform); err != nil {
			log.Printf("ERROR: Session %s aborted on %s: %v", p.SessionID(), inform.InformName(), err)
			closeCode, closeReason = websocket.CloseInternalServerErr, failureReason(err)
			return
		}
	}

	log.Printf("INFO: Session %s finished", p.SessionID())
}

// failureReason names the kind of failure without its details. Error text can
// carry file paths and profile contents, so it stays in the server log.
func failureReason(err error) string {
	for _, kind := range []error{
		core.ErrProfileUnavailable,
		core.ErrProtocolMismatch,
		core.ErrTransport,
		core.ErrInvariant,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal error"
}
