package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sharetube/synctube/internal/metrics"
	"github.com/sharetube/synctube/pkg/ctxlogger"
	"github.com/sharetube/synctube/pkg/pubsub"
)

// consumeBus re-emits events published by other workers to local sessions.
// It never mutates rooms or publishes, and a failing event never stops the loop.
func (s *service) consumeBus(ctx context.Context, events <-chan *pubsub.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				s.logger.WarnContext(ctx, "bus subscription closed")
				return
			}

			if err := s.handleBusEvent(ctx, event); err != nil {
				s.logger.ErrorContext(ctx, "failed to handle bus event",
					"event_id", event.ID,
					"type", event.Type,
					"room_id", event.RoomID,
					"error", err,
				)
			}
		}
	}
}

func (s *service) handleBusEvent(ctx context.Context, event *pubsub.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in bus handler: %v", r)
		}
	}()

	if event.Origin == s.cfg.WorkerID {
		return nil
	}
	if seen, _ := s.seenEvents.ContainsOrAdd(event.ID, struct{}{}); seen {
		return nil
	}

	metrics.BusEventsTotal.WithLabelValues("in", event.Type).Inc()
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", event.RoomID))

	// a room that is not loaded here has no local sessions
	lr, ok := s.registry.Get(event.RoomID)
	if !ok {
		if event.Type == eventUserList {
			s.refreshRemote(ctx)
			s.notifyRoomList(ctx)
		}
		return nil
	}

	payload, err := decodePayload(event)
	if err != nil {
		return err
	}

	if event.Type == eventUserList {
		s.refreshRemote(ctx)
		defer s.notifyRoomList(ctx)
	}

	return s.deliverRemote(ctx, lr, event.Type, payload)
}

func (s *service) deliverRemote(ctx context.Context, lr *liveRoom, kind string, payload any) error {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	switch kind {
	case eventSync, eventVideoChanged, eventPlaylistChange, eventConfig, eventUserList:
		if err := s.refresh(ctx, lr); err != nil {
			return err
		}
	}

	s.deliver(ctx, lr, kind, payload)
	return nil
}

var errUnknownEvent = errors.New("unknown event type")

func decodePayload(event *pubsub.Event) (any, error) {
	var (
		payload any
		err     error
	)

	switch event.Type {
	case eventSync, eventVideoChanged, eventConfig, eventUserList:
		return nil, nil
	case eventPlaylistChange:
		var p PlaylistUpdateEvent
		err = event.UnmarshalPayload(&p)
		payload = p
	case eventChat:
		var p ChatEvent
		err = event.UnmarshalPayload(&p)
		payload = p
	case eventKick:
		var p kickPayload
		err = event.UnmarshalPayload(&p)
		payload = p
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownEvent, event.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}

	return payload, nil
}
