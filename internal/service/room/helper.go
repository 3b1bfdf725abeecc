package room

import (
	"context"
	"fmt"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/metrics"
	"github.com/sharetube/synctube/pkg/pubsub"
)

func ptr[T any](v T) *T {
	return &v
}

// lockRoom takes the room mutex and, in cluster mode, the cross-process lock,
// then reloads the state so the caller mutates the latest version.
func (s *service) lockRoom(ctx context.Context, lr *liveRoom) (func(), error) {
	lr.mu.Lock()
	if !s.cfg.Cluster {
		return lr.mu.Unlock, nil
	}

	unlock, err := s.locker.Lock(ctx, "room:"+lr.id)
	if err != nil {
		lr.mu.Unlock()
		return nil, fmt.Errorf("failed to lock room: %w", err)
	}

	if err := s.refresh(ctx, lr); err != nil {
		unlock()
		lr.mu.Unlock()
		return nil, err
	}

	return func() {
		unlock()
		lr.mu.Unlock()
	}, nil
}

// refresh reloads lr.state from the repository. Caller holds lr.mu.
func (s *service) refresh(ctx context.Context, lr *liveRoom) error {
	state, err := s.roomRepo.FindRoom(ctx, lr.id)
	if err != nil {
		return fmt.Errorf("failed to refresh room: %w", err)
	}

	lr.state = state
	return nil
}

// commit persists next and makes it the live state. Caller holds lr.mu.
func (s *service) commit(ctx context.Context, lr *liveRoom, next *domain.Room) error {
	if err := s.roomRepo.SaveRoom(ctx, next); err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}

	lr.state = next
	return nil
}

// broadcast delivers every emission to local sessions and publishes it. Caller holds lr.mu.
func (s *service) broadcast(ctx context.Context, lr *liveRoom, emissions ...emission) {
	for _, e := range emissions {
		s.deliver(ctx, lr, e.kind, e.payload)
		s.publish(ctx, lr.id, e.kind, e.payload)
	}
}

func (s *service) publish(ctx context.Context, roomID, kind string, payload any) {
	if s.bus == nil {
		return
	}

	event, err := pubsub.NewEvent(s.cfg.WorkerID, kind, roomID, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create bus event", "type", kind, "error", err)
		return
	}

	if err := s.bus.Publish(ctx, s.cfg.BusChannel, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish bus event", "type", kind, "error", err)
		return
	}

	metrics.BusEventsTotal.WithLabelValues("out", kind).Inc()
}

// deliver emits an event to the sessions connected to lr on this process.
// It never mutates or publishes. Caller holds lr.mu.
func (s *service) deliver(ctx context.Context, lr *liveRoom, kind string, payload any) {
	switch kind {
	case eventSync:
		s.sendAll(lr, newSyncEvent(lr.state, s.clock()))
	case eventVideoChanged:
		s.sendAll(lr, newSetVideoEvent(lr.state))
		s.sendAll(lr, newSyncEvent(lr.state, s.clock()))
	case eventPlaylistChange:
		update, ok := payload.(PlaylistUpdateEvent)
		if !ok {
			s.logger.WarnContext(ctx, "unexpected playlist payload", "payload", payload)
			return
		}
		if update.Type == PlaylistUpdateAll {
			update = s.playlistAll(ctx, lr.state)
		}
		s.sendAll(lr, update)
	case eventUserList:
		for _, sess := range lr.sessions {
			sess.Send(s.userList(lr, sess))
		}
	case eventChat:
		s.sendAll(lr, payload)
	case eventConfig:
		s.sendAll(lr, newConfigUpdateEvent(lr.state))
	case eventKick:
		kick, ok := payload.(kickPayload)
		if !ok {
			s.logger.WarnContext(ctx, "unexpected kick payload", "payload", payload)
			return
		}
		s.kickLocal(ctx, lr, kick)
	default:
		s.logger.WarnContext(ctx, "unknown event type", "type", kind)
	}
}

func (s *service) sendAll(lr *liveRoom, event any) {
	for _, sess := range lr.sessions {
		sess.Send(event)
	}
}

func (s *service) entryView(ctx context.Context, e domain.PlaylistEntry) PlaylistEntry {
	view := PlaylistEntry{VideoID: e.VideoID, AddedBy: e.AddedBy}
	info, err := s.videoInfo.Get(ctx, e.VideoID)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get video info", "video_id", e.VideoID, "error", err)
		return view
	}

	view.Title = info.Title
	view.Author = info.Author
	view.Duration = info.Duration
	return view
}

func (s *service) playlistAll(ctx context.Context, r *domain.Room) PlaylistUpdateEvent {
	entries := make([]PlaylistEntry, 0, len(r.Playlist))
	for _, e := range r.Playlist {
		entries = append(entries, s.entryView(ctx, e))
	}

	return PlaylistUpdateEvent{Action: "playlistupdate", Type: PlaylistUpdateAll, Playlist: entries}
}

// userList builds the member list as seen by recipient: local sessions first, then users on other workers.
func (s *service) userList(lr *liveRoom, recipient Session) UserListUpdateEvent {
	info := func(id domain.Identity, isYou bool) UserInfo {
		return UserInfo{
			Username: id.Name,
			IsYou:    isYou,
			IsGuest:  id.IsGuest(),
			IsAdmin:  lr.state.IsModerator(id),
			IsOwner:  lr.state.IsOwner(id),
		}
	}

	list := make([]UserInfo, 0, len(lr.sessions))
	for _, sess := range lr.sessions {
		list = append(list, info(sess.Identity(), recipient != nil && sess.ID() == recipient.ID()))
	}
	for _, id := range s.remoteMembers(lr.id) {
		list = append(list, info(id, false))
	}

	return UserListUpdateEvent{Action: "userlistupdate", UserList: list}
}

func (s *service) remoteMembers(roomID string) []domain.Identity {
	s.remoteMu.RLock()
	defer s.remoteMu.RUnlock()

	return s.remote[roomID]
}
