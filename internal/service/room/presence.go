package room

import (
	"context"
	"time"

	"golang.org/x/exp/maps"

	"github.com/sharetube/synctube/internal/domain"
)

// runPresence periodically republishes this worker's membership and reloads the
// membership of the others.
func (s *service) runPresence(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PresenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writePresence(ctx)
			if s.refreshRemote(ctx) {
				s.deliverUserLists(ctx)
				s.notifyRoomList(ctx)
			}
		}
	}
}

func (s *service) localMembers() map[string][]domain.Identity {
	s.membersMu.RLock()
	defer s.membersMu.RUnlock()

	rooms := make(map[string][]domain.Identity, len(s.members))
	for roomID, members := range s.members {
		rooms[roomID] = maps.Values(members)
	}

	return rooms
}

func (s *service) writePresence(ctx context.Context) {
	if s.presenceRepo == nil {
		return
	}

	if err := s.presenceRepo.SetWorkerRooms(ctx, s.cfg.WorkerID, s.localMembers(), 3*s.cfg.PresenceInterval); err != nil {
		s.logger.ErrorContext(ctx, "failed to write presence", "error", err)
	}
}

// refreshRemote reloads the membership of other workers. It reports whether the view changed.
func (s *service) refreshRemote(ctx context.Context) bool {
	if s.presenceRepo == nil {
		return false
	}

	remote, err := s.presenceRepo.Snapshot(ctx, s.cfg.WorkerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read presence", "error", err)
		return false
	}

	s.remoteMu.Lock()
	defer s.remoteMu.Unlock()

	changed := len(remote) != len(s.remote)
	for roomID, members := range remote {
		if !sameMembers(members, s.remote[roomID]) {
			changed = true
			break
		}
	}

	s.remote = remote
	return changed
}

// deliverUserLists sends a fresh member list to every local room.
func (s *service) deliverUserLists(ctx context.Context) {
	for _, lr := range s.registry.All() {
		lr.mu.Lock()
		if len(lr.sessions) > 0 {
			s.deliver(ctx, lr, eventUserList, nil)
		}
		lr.mu.Unlock()
	}
}

func sameMembers(a, b []domain.Identity) bool {
	if len(a) != len(b) {
		return false
	}

	seen := make(map[domain.Identity]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}

	return true
}
