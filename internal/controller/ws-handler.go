package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sharetube/synctube/internal/metrics"
	"github.com/sharetube/synctube/internal/service/room"
	"github.com/sharetube/synctube/pkg/ctxlogger"
	"github.com/sharetube/synctube/pkg/wsrouter"
)

func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	sess := newSession(conn, c.logger)
	ctx := ctxlogger.AppendCtx(context.WithoutCancel(r.Context()), slog.String("session_id", sess.ID()))

	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()

	go sess.writePump()
	defer func() {
		c.roomService.Disconnect(ctx, &room.JoinParams{Sender: sess, RoomID: sess.RoomID()})
		sess.Close(websocket.CloseNormalClosure, "")
		<-sess.done
	}()

	c.readLoop(ctx, sess)
}

func (c controller) readLoop(ctx context.Context, sess *session) {
	conn := sess.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.InfoContext(ctx, "websocket closed unexpectedly", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if messageType != websocket.TextMessage {
			sess.Close(websocket.ClosePolicyViolation, "text frames only")
			return
		}

		if err := c.wsmux.Route(ctx, sess, data); err != nil {
			if errors.Is(err, wsrouter.ErrMalformedMessage) {
				c.logger.InfoContext(ctx, "closing on malformed message", "error", err)
				sess.Close(websocket.ClosePolicyViolation, "malformed message")
				return
			}

			c.writeError(ctx, sess, err)
		}

		if sess.State() == stateClosed {
			return
		}
	}
}
