package controller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sharetube/synctube/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	sendBufferSize = 256
)

type sessionState int

const (
	stateConnected sessionState = iota
	stateJoined
	stateClosed
)

type closeRequest struct {
	code   int
	reason string
}

// session is one websocket connection. Its identity and room are fixed by join.
// All writes go through the write pump so Send and Close never block the caller.
type session struct {
	id     string
	conn   *websocket.Conn
	send   chan any
	closes chan closeRequest
	done   chan struct{}
	logger *slog.Logger

	mu       sync.RWMutex
	state    sessionState
	identity domain.Identity
	roomID   string

	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, logger *slog.Logger) *session {
	return &session{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan any, sendBufferSize),
		closes: make(chan closeRequest, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.identity
}

func (s *session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.roomID
}

func (s *session) State() sessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *session) bind(identity domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = identity
}

func (s *session) joined(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roomID = roomID
	s.state = stateJoined
}

// Send queues an event for the write pump. A session that cannot keep up is closed.
func (s *session) Send(event any) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.send <- event:
	default:
		s.logger.Warn("session send buffer full, closing", "session_id", s.id)
		s.Close(websocket.CloseTryAgainLater, "too slow")
	}
}

// Close asks the write pump to flush queued events, send a close frame and stop.
func (s *session) Close(code int, reason string) {
	// close frame payloads are limited to 125 bytes
	if len(reason) > 120 {
		reason = reason[:120]
	}

	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = stateClosed
		s.mu.Unlock()

		s.closes <- closeRequest{code: code, reason: reason}
	})
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		close(s.done)
		s.conn.Close()
	}()

	for {
		select {
		case event := <-s.send:
			if err := s.write(event); err != nil {
				s.logger.Debug("failed to write event", "session_id", s.id, "error", err)
				return
			}

		case req := <-s.closes:
			s.flush()
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			msg := websocket.FormatCloseMessage(req.code, req.reason)
			if err := s.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
				s.logger.Debug("failed to write close message", "session_id", s.id, "error", err)
			}
			return

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) flush() {
	for {
		select {
		case event := <-s.send:
			if err := s.write(event); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *session) write(event any) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(event)
}
