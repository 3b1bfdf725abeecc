package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/metrics"
	roomrepo "github.com/sharetube/synctube/internal/repository/room"
)

// Session is a connected client as seen by the room service.
// Send must not block; Close may be called more than once.
type Session interface {
	ID() string
	Identity() domain.Identity
	Send(event any)
	Close(code int, reason string)
}

// liveRoom is the process-local holder of one room. mu serializes every
// mutation together with its broadcast.
type liveRoom struct {
	mu       sync.Mutex
	id       string
	state    *domain.Room
	sessions []Session
}

func (lr *liveRoom) snapshot() *domain.Room {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	return lr.state.Clone()
}

// Registry maps room ids to live rooms for the lifetime of the process.
type Registry struct {
	mu         sync.RWMutex
	rooms      map[string]*liveRoom
	repo       iRoomRepo
	autoCreate bool
	logger     *slog.Logger
}

func NewRegistry(repo iRoomRepo, autoCreate bool, logger *slog.Logger) *Registry {
	return &Registry{
		rooms:      make(map[string]*liveRoom),
		repo:       repo,
		autoCreate: autoCreate,
		logger:     logger,
	}
}

func (r *Registry) Get(roomID string) (*liveRoom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lr, ok := r.rooms[roomID]
	return lr, ok
}

// Load returns the live room, hydrating it from the repository on a miss.
func (r *Registry) Load(ctx context.Context, roomID string) (*liveRoom, error) {
	if lr, ok := r.Get(roomID); ok {
		return lr, nil
	}

	state, err := r.repo.FindRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, roomrepo.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	return r.put(state), nil
}

// GetOrCreate is Load that creates unknown rooms when auto creation is enabled.
// An authenticated creator becomes the owner.
func (r *Registry) GetOrCreate(ctx context.Context, roomID string, creator domain.Identity) (*liveRoom, error) {
	lr, err := r.Load(ctx, roomID)
	if !errors.Is(err, ErrRoomNotFound) || !r.autoCreate {
		return lr, err
	}

	state := domain.NewRoom(roomID)
	state.OwnerID = creator.UserID
	if err := r.repo.CreateRoom(ctx, state); err != nil {
		if errors.Is(err, roomrepo.ErrRoomAlreadyExists) {
			return r.Load(ctx, roomID)
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	r.logger.InfoContext(ctx, "room created", "room_id", roomID, "owner_id", creator.UserID)
	return r.put(state), nil
}

func (r *Registry) put(state *domain.Room) *liveRoom {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lr, ok := r.rooms[state.ID]; ok {
		return lr
	}

	lr := &liveRoom{id: state.ID, state: state}
	r.rooms[state.ID] = lr
	metrics.RoomsLoaded.Set(float64(len(r.rooms)))
	return lr
}

func (r *Registry) All() []*liveRoom {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Values(r.rooms)
}
