package room

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sharetube/synctube/internal/domain"
	roomrepo "github.com/sharetube/synctube/internal/repository/room"
	omitnilpointers "github.com/sharetube/synctube/pkg/omit-nil-pointers"
)

type CreateRoomParams struct {
	Slug      string
	Title     string
	Topic     string
	IsPrivate bool
	// Credential is optional; a valid one makes its user the owner.
	Credential string
}

type CreateRoomResponse struct {
	RoomID   string          `json:"room_id"`
	OwnerID  string          `json:"owner_id,omitempty"`
	Settings domain.Settings `json:"settings"`
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	state := domain.NewRoom(params.Slug)
	state.Settings.Title = params.Title
	state.Settings.Topic = params.Topic
	state.Settings.IsPrivate = params.IsPrivate

	if params.Credential != "" {
		owner := s.ResolveIdentity(ctx, params.Credential)
		if owner.IsGuest() {
			return CreateRoomResponse{}, ErrNotAllowed
		}
		state.OwnerID = owner.UserID
	}

	if err := s.roomRepo.CreateRoom(ctx, state); err != nil {
		if errors.Is(err, roomrepo.ErrRoomAlreadyExists) {
			return CreateRoomResponse{}, ErrRoomAlreadyExists
		}
		return CreateRoomResponse{}, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_id", state.ID, "owner_id", state.OwnerID)
	return CreateRoomResponse{
		RoomID:   state.ID,
		OwnerID:  state.OwnerID,
		Settings: state.Settings,
	}, nil
}

// SettingsChanges is a partial settings update; nil fields are left unchanged.
type SettingsChanges struct {
	Title          *string `json:"title"`
	Topic          *string `json:"topic"`
	IsPrivate      *bool   `json:"is_private"`
	UsersCanPause  *bool   `json:"users_can_pause"`
	UsersCanSkip   *bool   `json:"users_can_skip"`
	UsersCanAdd    *bool   `json:"users_can_add"`
	UsersCanRemove *bool   `json:"users_can_remove"`
	UsersCanMove   *bool   `json:"users_can_move"`
}

type UpdateSettingsParams struct {
	Sender  Session
	RoomID  string
	Changes SettingsChanges
}

func (s *service) UpdateSettings(ctx context.Context, params *UpdateSettingsParams) error {
	changes := omitnilpointers.FromStruct(params.Changes)
	if len(changes) == 0 {
		return ErrNothingToUpdate
	}

	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	if !lr.state.IsModerator(params.Sender.Identity()) {
		return ErrNotAllowed
	}

	next := lr.state.Clone()
	next.Settings.Apply(changes)

	if err := s.commit(ctx, lr, next); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}

	s.broadcast(ctx, lr, emission{kind: eventConfig})
	return nil
}

// RoomList returns the most populated public rooms across all workers.
func (s *service) RoomList(ctx context.Context) []RoomListEntry {
	counts := make(map[string]int)

	s.membersMu.RLock()
	for roomID, members := range s.members {
		counts[roomID] += len(members)
	}
	s.membersMu.RUnlock()

	s.remoteMu.RLock()
	for roomID, members := range s.remote {
		counts[roomID] += len(members)
	}
	s.remoteMu.RUnlock()

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	rooms := make([]RoomListEntry, 0, s.cfg.RoomListSize)
	for _, id := range ids {
		if len(rooms) == s.cfg.RoomListSize {
			break
		}

		lr, err := s.registry.Load(ctx, id)
		if err != nil {
			s.logger.InfoContext(ctx, "failed to load room for room list", "room_id", id, "error", err)
			continue
		}

		state := lr.snapshot()
		if state.Settings.IsPrivate {
			continue
		}

		rooms = append(rooms, RoomListEntry{
			Name:      id,
			Title:     state.Settings.Title,
			UserCount: counts[id],
		})
	}

	return rooms
}

type RoomListParams struct {
	Sender Session
	Listen bool
}

// SendRoomList sends the room list to the sender and, with Listen, keeps sending it on every change.
func (s *service) SendRoomList(ctx context.Context, params *RoomListParams) {
	if params.Listen {
		s.listenersMu.Lock()
		s.listeners[params.Sender.ID()] = params.Sender
		s.listenersMu.Unlock()
	} else {
		s.StopRoomList(params.Sender)
	}

	params.Sender.Send(RoomListEvent{Action: "roomlist", Rooms: s.RoomList(ctx)})
}

func (s *service) StopRoomList(sess Session) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	delete(s.listeners, sess.ID())
}

func (s *service) notifyRoomList(ctx context.Context) {
	s.listenersMu.Lock()
	listeners := make([]Session, 0, len(s.listeners))
	for _, sess := range s.listeners {
		listeners = append(listeners, sess)
	}
	s.listenersMu.Unlock()

	if len(listeners) == 0 {
		return
	}

	event := RoomListEvent{Action: "roomlist", Rooms: s.RoomList(ctx)}
	for _, sess := range listeners {
		sess.Send(event)
	}
}
