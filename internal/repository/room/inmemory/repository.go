package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/repository/room"
)

// repo keeps rooms and users in process memory. Rooms are stored as copies.
type repo struct {
	rooms     map[string]*domain.Room
	users     map[string]domain.User
	userNames map[string]string
	mu        sync.RWMutex
	logger    *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:     make(map[string]*domain.Room),
		users:     make(map[string]domain.User),
		userNames: make(map[string]string),
		logger:    logger,
	}
}

func (r *repo) FindRoom(ctx context.Context, slug string) (*domain.Room, error) {
	funcName := "inmemory.FindRoom"
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[slug]
	if !ok {
		r.logger.DebugContext(ctx, funcName, "slug", slug, "error", room.ErrRoomNotFound)
		return nil, room.ErrRoomNotFound
	}

	return rm.Clone(), nil
}

func (r *repo) CreateRoom(ctx context.Context, rm *domain.Room) error {
	funcName := "inmemory.CreateRoom"
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[rm.ID]; ok {
		r.logger.DebugContext(ctx, funcName, "slug", rm.ID, "error", room.ErrRoomAlreadyExists)
		return room.ErrRoomAlreadyExists
	}

	r.rooms[rm.ID] = rm.Clone()
	return nil
}

func (r *repo) SaveRoom(ctx context.Context, rm *domain.Room) error {
	funcName := "inmemory.SaveRoom"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, funcName, "slug", rm.ID, "position", rm.Position)
	r.rooms[rm.ID] = rm.Clone()
	return nil
}

func (r *repo) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return domain.User{}, room.ErrUserNotFound
	}
	return u, nil
}

func (r *repo) FindUserByName(ctx context.Context, name string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.userNames[name]
	if !ok {
		return domain.User{}, room.ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *repo) SaveUser(ctx context.Context, u domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.users[u.ID]; ok {
		delete(r.userNames, old.Name)
	}
	r.users[u.ID] = u
	r.userNames[u.Name] = u.ID
	return nil
}
