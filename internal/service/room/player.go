package room

import (
	"context"
	"fmt"

	"github.com/sharetube/synctube/internal/domain"
)

type PlayerParams struct {
	Sender Session
	RoomID string
}

func (s *service) room(roomID string) (*liveRoom, error) {
	lr, ok := s.registry.Get(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	return lr, nil
}

// resync sends the current play state to the sender only. Caller holds lr.mu.
func (s *service) resync(lr *liveRoom, sender Session) {
	sender.Send(newSyncEvent(lr.state, s.clock()))
}

func (s *service) Sync(ctx context.Context, params *PlayerParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	s.resync(lr, params.Sender)
	return nil
}

func (s *service) Play(ctx context.Context, params *PlayerParams) error {
	return s.updatePlayer(ctx, params.RoomID, params.Sender, func(r *domain.Room) bool {
		return r.Play(s.clock())
	})
}

func (s *service) Pause(ctx context.Context, params *PlayerParams) error {
	return s.updatePlayer(ctx, params.RoomID, params.Sender, func(r *domain.Room) bool {
		return r.Pause(s.clock())
	})
}

type SeekParams struct {
	Sender Session
	RoomID string
	Time   int
}

func (s *service) Seek(ctx context.Context, params *SeekParams) error {
	return s.updatePlayer(ctx, params.RoomID, params.Sender, func(r *domain.Room) bool {
		r.Seek(params.Time, s.clock())
		return true
	})
}

// updatePlayer applies a pause-gated player change. A denied or no-op change only
// resyncs the sender.
func (s *service) updatePlayer(ctx context.Context, roomID string, sender Session, apply func(r *domain.Room) bool) error {
	lr, err := s.room(roomID)
	if err != nil {
		return err
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	if !lr.state.Can(sender.Identity(), domain.CanPause) {
		s.resync(lr, sender)
		return nil
	}

	next := lr.state.Clone()
	if !apply(next) {
		s.resync(lr, sender)
		return nil
	}

	if err := s.commit(ctx, lr, next); err != nil {
		return fmt.Errorf("failed to commit player state: %w", err)
	}

	s.broadcast(ctx, lr, emission{kind: eventSync})
	return nil
}

type ChangeVideoParams struct {
	Sender Session
	RoomID string
	Index  int
}

func (s *service) ChangeVideo(ctx context.Context, params *ChangeVideoParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	if !lr.state.Can(params.Sender.Identity(), domain.CanSkip) {
		return ErrNotAllowed
	}
	if params.Index < 0 || params.Index >= len(lr.state.Playlist) {
		return ErrIndexOutOfRange
	}

	next := lr.state.Clone()
	if err := next.ChangeVideo(params.Index, domain.TimePadding, s.clock()); err != nil {
		return err
	}

	if err := s.commit(ctx, lr, next); err != nil {
		return fmt.Errorf("failed to commit video change: %w", err)
	}

	s.broadcast(ctx, lr, emission{kind: eventVideoChanged})
	return nil
}
