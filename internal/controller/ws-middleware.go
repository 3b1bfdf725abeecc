package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sharetube/synctube/internal/metrics"
	"github.com/sharetube/synctube/pkg/ctxlogger"
	"github.com/sharetube/synctube/pkg/wsrouter"
)

// actions allowed before join
var publicActions = map[string]bool{
	"join":     true,
	"roomlist": true,
}

func (c controller) loggerWSMw() wsrouter.Middleware[*session] {
	return func(next wsrouter.HandlerFunc[*session]) wsrouter.HandlerFunc[*session] {
		return func(ctx context.Context, sess *session, raw json.RawMessage) error {
			action := wsrouter.GetActionFromCtx(ctx)
			ctx = ctxlogger.AppendCtx(ctx, slog.String("action", action))
			if roomID := sess.RoomID(); roomID != "" {
				ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomID))
			}

			c.logger.DebugContext(ctx, "websocket message received", "size", len(raw))
			start := time.Now()

			err := next(ctx, sess, raw)

			result := "ok"
			if err != nil {
				result, _ = errorReason(err)
			}
			metrics.ActionsTotal.WithLabelValues(action, result).Inc()
			metrics.ActionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
			c.logger.DebugContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
				"result", result,
			)

			return err
		}
	}
}

func (c controller) joinedWSMw() wsrouter.Middleware[*session] {
	return func(next wsrouter.HandlerFunc[*session]) wsrouter.HandlerFunc[*session] {
		return func(ctx context.Context, sess *session, raw json.RawMessage) error {
			if !publicActions[wsrouter.GetActionFromCtx(ctx)] && sess.State() != stateJoined {
				return ErrNotJoined
			}

			return next(ctx, sess, raw)
		}
	}
}
