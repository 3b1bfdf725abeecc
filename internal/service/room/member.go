package room

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sharetube/synctube/internal/domain"
	roomrepo "github.com/sharetube/synctube/internal/repository/room"
)

type JoinParams struct {
	Sender Session
	RoomID string
}

// Join adds the sender to the room, sends it a full snapshot and announces the
// new member list to the room.
func (s *service) Join(ctx context.Context, params *JoinParams) error {
	identity := params.Sender.Identity()

	lr, err := s.registry.GetOrCreate(ctx, params.RoomID, identity)
	if err != nil {
		return err
	}

	// presence is written first so other workers read the new member when the
	// userlist update reaches them
	s.addMember(lr.id, params.Sender)
	s.writePresence(ctx)

	if err := s.join(ctx, lr, params.Sender); err != nil {
		s.removeMember(lr.id, params.Sender)
		s.writePresence(ctx)
		return err
	}

	s.notifyRoomList(ctx)
	return nil
}

func (s *service) join(ctx context.Context, lr *liveRoom, sender Session) error {
	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	identity := sender.Identity()
	if lr.state.OwnerID == "" && !identity.IsGuest() {
		next := lr.state.Clone()
		next.OwnerID = identity.UserID
		if err := s.commit(ctx, lr, next); err != nil {
			return fmt.Errorf("failed to commit owner: %w", err)
		}
		s.logger.InfoContext(ctx, "room owner assigned", "room_id", lr.id, "user_id", identity.UserID)
	}

	lr.sessions = append(lr.sessions, sender)

	now := s.clock()
	sender.Send(s.playlistAll(ctx, lr.state))
	sender.Send(newSetVideoEvent(lr.state))
	sender.Send(newSyncEvent(lr.state, now))
	sender.Send(newConfigUpdateEvent(lr.state))

	s.broadcast(ctx, lr, emission{kind: eventUserList})
	return nil
}

// Disconnect removes the sender from its room. It is safe to call for a session
// that never joined.
func (s *service) Disconnect(ctx context.Context, params *JoinParams) {
	s.StopRoomList(params.Sender)

	if params.RoomID == "" {
		return
	}

	lr, ok := s.registry.Get(params.RoomID)
	if !ok {
		return
	}

	s.removeMember(lr.id, params.Sender)
	s.writePresence(ctx)

	lr.mu.Lock()
	lr.sessions = slices.DeleteFunc(lr.sessions, func(sess Session) bool {
		return sess.ID() == params.Sender.ID()
	})
	s.broadcast(ctx, lr, emission{kind: eventUserList})
	lr.mu.Unlock()

	s.notifyRoomList(ctx)
}

func (s *service) addMember(roomID string, sess Session) {
	s.membersMu.Lock()
	defer s.membersMu.Unlock()

	if s.members[roomID] == nil {
		s.members[roomID] = make(map[string]domain.Identity)
	}
	s.members[roomID][sess.ID()] = sess.Identity()
}

func (s *service) removeMember(roomID string, sess Session) {
	s.membersMu.Lock()
	defer s.membersMu.Unlock()

	delete(s.members[roomID], sess.ID())
	if len(s.members[roomID]) == 0 {
		delete(s.members, roomID)
	}
}

type KickParams struct {
	Sender   Session
	RoomID   string
	Username string
	Message  string
}

// Kick disconnects every session of the named user, on this and other workers.
func (s *service) Kick(ctx context.Context, params *KickParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	sender := params.Sender.Identity()
	if !lr.state.IsModerator(sender) || params.Username == sender.Name {
		return ErrNotAllowed
	}

	target, local, ok := s.findMember(lr, params.Username)
	if !ok {
		return ErrUserNotFound
	}
	if lr.state.IsOwner(target) {
		return ErrNotAllowed
	}

	kick := kickPayload{
		Username: params.Username,
		By:       sender.Name,
		Message:  params.Message,
	}
	// guest labels repeat across workers
	if local {
		kick.Worker = s.cfg.WorkerID
	}

	s.broadcast(ctx, lr, emission{kind: eventKick, payload: kick})
	return nil
}

// findMember looks up a member by name among local sessions, then remote users.
// local reports whether the match is a session of this worker. Caller holds lr.mu.
func (s *service) findMember(lr *liveRoom, username string) (id domain.Identity, local bool, ok bool) {
	for _, sess := range lr.sessions {
		if id := sess.Identity(); id.Name == username {
			return id, true, true
		}
	}
	for _, id := range s.remoteMembers(lr.id) {
		if id.Name == username {
			return id, false, true
		}
	}

	return domain.Identity{}, false, false
}

// kickLocal closes the local sessions of the kicked user. The sessions leave the
// room through Disconnect once their connection is gone. Caller holds lr.mu.
func (s *service) kickLocal(ctx context.Context, lr *liveRoom, kick kickPayload) {
	if kick.Worker != "" && kick.Worker != s.cfg.WorkerID {
		return
	}

	for _, sess := range lr.sessions {
		if sess.Identity().Name != kick.Username {
			continue
		}

		sess.Send(KickedEvent{Action: "kicked", By: kick.By, Message: kick.Message})
		sess.Close(KickCloseCode, kick.Message)
		s.logger.InfoContext(ctx, "session kicked", "room_id", lr.id, "session_id", sess.ID(), "by", kick.By)
	}
}

type SetAdminParams struct {
	Sender   Session
	RoomID   string
	Username string
	Admin    bool
}

// SetAdmin grants or revokes admin rights. Only the owner may do this.
func (s *service) SetAdmin(ctx context.Context, params *SetAdminParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	user, err := s.roomRepo.FindUserByName(ctx, params.Username)
	if err != nil {
		if errors.Is(err, roomrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	unlock, err := s.lockRoom(ctx, lr)
	if err != nil {
		return err
	}
	defer unlock()

	if !lr.state.IsOwner(params.Sender.Identity()) || user.ID == lr.state.OwnerID {
		return ErrNotAllowed
	}

	next := lr.state.Clone()
	if !next.SetAdmin(user.ID, params.Admin) {
		return nil
	}

	if err := s.commit(ctx, lr, next); err != nil {
		return fmt.Errorf("failed to commit admins: %w", err)
	}

	s.broadcast(ctx, lr, emission{kind: eventUserList})
	return nil
}
