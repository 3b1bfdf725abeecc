package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/service/videoinfo"
)

type AddVideoParams struct {
	Sender  Session
	RoomID  string
	VideoID string
	// Index is nil to append.
	Index *int
}

func (s *service) AddVideo(ctx context.Context, params *AddVideoParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	if !lr.snapshot().Can(params.Sender.Identity(), domain.CanAdd) {
		return ErrNotAllowed
	}

	info, err := s.videoInfo.Get(ctx, params.VideoID)
	if err != nil {
		switch {
		case errors.Is(err, videoinfo.ErrInvalidVideo):
			return ErrInvalidVideo
		case errors.Is(err, videoinfo.ErrUnavailable):
			return ErrProviderUnavailable
		}
		return fmt.Errorf("failed to get video info: %w", err)
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	// permissions may have changed during the lookup
	if !lr.state.Can(params.Sender.Identity(), domain.CanAdd) {
		return ErrNotAllowed
	}
	if len(lr.state.Playlist) >= s.cfg.PlaylistLimit {
		return ErrPlaylistLimitReached
	}

	entry := domain.PlaylistEntry{VideoID: info.VideoID, AddedBy: params.Sender.Identity().Name}
	next := lr.state.Clone()
	res, err := next.InsertVideo(entry, params.Index, s.clock())
	if err != nil {
		return err
	}

	if err := s.commit(ctx, lr, next); err != nil {
		return fmt.Errorf("failed to commit added video: %w", err)
	}

	emissions := []emission{{
		kind: eventPlaylistChange,
		payload: PlaylistUpdateEvent{
			Action: "playlistupdate",
			Type:   PlaylistUpdateAdd,
			Entries: []PlaylistEntry{{
				VideoID:  info.VideoID,
				Title:    info.Title,
				Author:   info.Author,
				Duration: info.Duration,
				AddedBy:  entry.AddedBy,
			}},
			FirstIndex: ptr(res.Index),
		},
	}}
	if res.VideoChanged {
		emissions = append(emissions, emission{kind: eventVideoChanged})
	}

	s.broadcast(ctx, lr, emissions...)
	return nil
}

type RemoveVideoParams struct {
	Sender Session
	RoomID string
	Index  int
}

func (s *service) RemoveVideo(ctx context.Context, params *RemoveVideoParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	if !lr.state.Can(params.Sender.Identity(), domain.CanRemove) {
		return ErrNotAllowed
	}

	next := lr.state.Clone()
	res, err := next.RemoveVideo(params.Index, s.clock())
	if err != nil {
		return err
	}

	if err := s.commit(ctx, lr, next); err != nil {
		return fmt.Errorf("failed to commit removed video: %w", err)
	}

	emissions := []emission{{
		kind: eventPlaylistChange,
		payload: PlaylistUpdateEvent{
			Action:  "playlistupdate",
			Type:    PlaylistUpdateRemove,
			Indices: []int{params.Index},
		},
	}}
	if res.VideoChanged {
		emissions = append(emissions, emission{kind: eventVideoChanged})
	}

	s.broadcast(ctx, lr, emissions...)
	return nil
}

type MoveVideoParams struct {
	Sender   Session
	RoomID   string
	OldIndex int
	NewIndex int
}

func (s *service) MoveVideo(ctx context.Context, params *MoveVideoParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	if !lr.state.Can(params.Sender.Identity(), domain.CanMove) {
		return ErrNotAllowed
	}

	next := lr.state.Clone()
	if err := next.MoveVideo(params.OldIndex, params.NewIndex); err != nil {
		return err
	}

	if err := s.commit(ctx, lr, next); err != nil {
		return fmt.Errorf("failed to commit moved video: %w", err)
	}

	s.broadcast(ctx, lr, emission{
		kind: eventPlaylistChange,
		payload: PlaylistUpdateEvent{
			Action:   "playlistupdate",
			Type:     PlaylistUpdateMove,
			OldIndex: ptr(params.OldIndex),
			NewIndex: ptr(params.NewIndex),
		},
	})
	return nil
}

func (s *service) ShufflePlaylist(ctx context.Context, params *PlayerParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	if !lr.state.Can(params.Sender.Identity(), domain.CanMove) {
		return ErrNotAllowed
	}

	next := lr.state.Clone()
	next.Shuffle()

	if err := s.commit(ctx, lr, next); err != nil {
		return fmt.Errorf("failed to commit shuffled playlist: %w", err)
	}

	s.broadcast(ctx, lr,
		emission{kind: eventPlaylistChange, payload: PlaylistUpdateEvent{Type: PlaylistUpdateAll}},
		emission{kind: eventVideoChanged},
	)
	return nil
}

// ReloadPlaylist re-sends the full playlist to the sender.
func (s *service) ReloadPlaylist(ctx context.Context, params *PlayerParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	state := lr.snapshot()
	params.Sender.Send(s.playlistAll(ctx, state))
	return nil
}
