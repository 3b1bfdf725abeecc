package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/service/videoinfo"
	"github.com/sharetube/synctube/pkg/locker"
	"github.com/sharetube/synctube/pkg/pubsub"
)

var (
	ErrInvalidVideo = errors.New("invalid video")
	// ErrProviderUnavailable is a video lookup that failed for reasons other than the id.
	ErrProviderUnavailable  = errors.New("video information is temporarily unavailable")
	ErrIndexOutOfRange      = domain.ErrIndexOutOfRange
	ErrNotAllowed           = errors.New("not allowed")
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomAlreadyExists    = errors.New("room already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrPlaylistLimitReached = errors.New("playlist limit reached")
	ErrNothingToUpdate      = errors.New("nothing to update")
)

// KickCloseCode is the websocket close code sent to a kicked session.
const KickCloseCode = 4001

type iRoomRepo interface {
	FindRoom(ctx context.Context, slug string) (*domain.Room, error)
	CreateRoom(ctx context.Context, room *domain.Room) error
	SaveRoom(ctx context.Context, room *domain.Room) error
	FindUserByID(ctx context.Context, id string) (domain.User, error)
	FindUserByName(ctx context.Context, name string) (domain.User, error)
}

type iVideoInfo interface {
	Get(ctx context.Context, videoID string) (*videoinfo.Info, error)
}

type iPresenceRepo interface {
	SetWorkerRooms(ctx context.Context, workerID string, rooms map[string][]domain.Identity, ttl time.Duration) error
	Snapshot(ctx context.Context, excludeWorkerID string) (map[string][]domain.Identity, error)
	RemoveWorker(ctx context.Context, workerID string) error
}

type iTokenParser interface {
	Parse(token string) (string, error)
}

// Deps holds the collaborators of the service. Bus and PresenceRepo may be nil
// for a single-process deployment.
type Deps struct {
	RoomRepo     iRoomRepo
	VideoInfo    iVideoInfo
	Bus          pubsub.PubSub
	Locker       locker.Locker
	PresenceRepo iPresenceRepo
	Tokens       iTokenParser
}

type Config struct {
	// WorkerID identifies this process on the bus and in presence keys.
	WorkerID        string
	PlaylistLimit   int
	AutoCreateRooms bool
	// Cluster makes every mutation reload the room from the repository under a
	// cross-process lock before applying it.
	Cluster          bool
	SweepInterval    time.Duration
	PresenceInterval time.Duration
	RoomListSize     int
	BusChannel       string
}

type service struct {
	roomRepo     iRoomRepo
	videoInfo    iVideoInfo
	bus          pubsub.PubSub
	locker       locker.Locker
	presenceRepo iPresenceRepo
	tokens       iTokenParser
	registry     *Registry
	cfg          Config
	logger       *slog.Logger
	clock        func() time.Time

	guestCounter atomic.Uint64
	seenEvents   *lru.Cache

	// members mirrors the sessions of every live room, keyed by room then session id.
	// It is guarded by its own mutex so presence and room list reads never take a room lock.
	membersMu sync.RWMutex
	members   map[string]map[string]domain.Identity

	listenersMu sync.Mutex
	listeners   map[string]Session

	remoteMu sync.RWMutex
	remote   map[string][]domain.Identity
}

func NewService(deps Deps, cfg *Config, logger *slog.Logger) (*service, error) {
	seen, err := lru.New(4096)
	if err != nil {
		return nil, fmt.Errorf("failed to create event cache: %w", err)
	}

	c := *cfg
	if c.WorkerID == "" {
		return nil, errors.New("worker id is required")
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 2 * time.Second
	}
	if c.PresenceInterval <= 0 {
		c.PresenceInterval = 5 * time.Second
	}
	if c.RoomListSize <= 0 {
		c.RoomListSize = 10
	}
	if c.PlaylistLimit <= 0 {
		c.PlaylistLimit = 100
	}
	if c.BusChannel == "" {
		c.BusChannel = "synctube:rooms"
	}

	lk := deps.Locker
	if lk == nil {
		lk = locker.Noop{}
	}

	return &service{
		roomRepo:     deps.RoomRepo,
		videoInfo:    deps.VideoInfo,
		bus:          deps.Bus,
		locker:       lk,
		presenceRepo: deps.PresenceRepo,
		tokens:       deps.Tokens,
		registry:     NewRegistry(deps.RoomRepo, c.AutoCreateRooms, logger),
		cfg:          c,
		logger:       logger,
		clock:        time.Now,
		seenEvents:   seen,
		members:      make(map[string]map[string]domain.Identity),
		listeners:    make(map[string]Session),
		remote:       make(map[string][]domain.Identity),
	}, nil
}

// Run starts the background loops and blocks until ctx is done.
func (s *service) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	if s.bus != nil {
		events, err := s.bus.Subscribe(ctx, s.cfg.BusChannel)
		if err != nil {
			return fmt.Errorf("failed to subscribe to bus: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.consumeBus(ctx, events)
		}()
	}

	if s.presenceRepo != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runPresence(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runSweep(ctx)
	}()

	wg.Wait()

	if s.presenceRepo != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.presenceRepo.RemoveWorker(cleanupCtx, s.cfg.WorkerID); err != nil {
			s.logger.WarnContext(cleanupCtx, "failed to remove worker presence", "error", err)
		}
	}

	return nil
}

// ResolveIdentity verifies credential and returns the matching user. Any failure yields a fresh guest.
func (s *service) ResolveIdentity(ctx context.Context, credential string) domain.Identity {
	if credential != "" && s.tokens != nil {
		userID, err := s.tokens.Parse(credential)
		if err == nil {
			user, err := s.roomRepo.FindUserByID(ctx, userID)
			if err == nil {
				return user.Identity()
			}
			s.logger.InfoContext(ctx, "failed to find user for credential", "user_id", userID, "error", err)
		} else {
			s.logger.InfoContext(ctx, "failed to verify credential", "error", err)
		}
	}

	return domain.Identity{Name: fmt.Sprintf("Guest %d", s.guestCounter.Add(1)-1)}
}
