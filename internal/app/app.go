package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sharetube/synctube/internal/controller"
	presenceredis "github.com/sharetube/synctube/internal/repository/presence/redis"
	"github.com/sharetube/synctube/internal/repository/room/gormdb"
	"github.com/sharetube/synctube/internal/repository/room/inmemory"
	roomredis "github.com/sharetube/synctube/internal/repository/room/redis"
	"github.com/sharetube/synctube/internal/service/room"
	"github.com/sharetube/synctube/internal/service/videoinfo"
	"github.com/sharetube/synctube/pkg/authtoken"
	"github.com/sharetube/synctube/pkg/ctxlogger"
	"github.com/sharetube/synctube/pkg/locker"
	"github.com/sharetube/synctube/pkg/pubsub"
	"github.com/sharetube/synctube/pkg/redisclient"
	"github.com/sharetube/synctube/pkg/ytvideodata"
)

type AppConfig struct {
	Secret           string        `json:"-"`
	Host             string        `json:"host"`
	Port             int           `json:"port"`
	LogLevel         string        `json:"log_level"`
	RedisHost        string        `json:"redis_host"`
	RedisPort        int           `json:"redis_port"`
	RedisPassword    string        `json:"-"`
	DBDriver         string        `json:"db_driver"`
	DBDSN            string        `json:"-"`
	YouTubeAPIKey    string        `json:"-"`
	VideoInfoTimeout time.Duration `json:"video_info_timeout"`
	VideoCacheSize   int           `json:"video_cache_size"`
	PlaylistLimit    int           `json:"playlist_limit"`
	AutoCreateRooms  bool          `json:"autocreate_rooms"`
	Cluster          bool          `json:"cluster"`
	SweepInterval    time.Duration `json:"sweep_interval"`
	PresenceInterval time.Duration `json:"presence_interval"`
}

func (cfg *AppConfig) Validate() error {
	var errs []error
	if cfg.Secret == "" {
		errs = append(errs, errors.New("secret is required"))
	}
	if cfg.PlaylistLimit < 1 {
		errs = append(errs, errors.New("playlist limit must be greater than 0"))
	}
	if cfg.VideoCacheSize < 1 {
		errs = append(errs, errors.New("video cache size must be greater than 0"))
	}
	if !slices.Contains([]string{"memory", "redis", "sqlite", "postgres"}, cfg.DBDriver) {
		errs = append(errs, fmt.Errorf("unsupported db driver %q", cfg.DBDriver))
	}
	if (cfg.DBDriver == "sqlite" || cfg.DBDriver == "postgres") && cfg.DBDSN == "" {
		errs = append(errs, errors.New("db dsn is required"))
	}
	if (cfg.Cluster || cfg.DBDriver == "redis") && cfg.RedisHost == "" {
		errs = append(errs, errors.New("cluster mode and the redis store require redis"))
	}
	if cfg.Cluster && cfg.DBDriver == "memory" {
		errs = append(errs, errors.New("cluster mode requires a shared database"))
	}
	// workers joined through the bus must read one another's room state
	if cfg.RedisHost != "" && cfg.DBDriver == "memory" {
		errs = append(errs, errors.New("the memory store cannot be shared with other workers, use redis, sqlite or postgres with redis"))
	}
	if cfg.SweepInterval <= 0 || cfg.PresenceInterval <= 0 {
		errs = append(errs, errors.New("intervals must be positive"))
	}

	return errors.Join(errs...)
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

type iRunner interface {
	Run(ctx context.Context) error
}

// components is the wired application without its listener.
type components struct {
	handler http.Handler
	service iRunner
	closers []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			slog.Warn("failed to close component", "error", err)
		}
	}
}

func newComponents(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (_ *components, err error) {
	c := &components{}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	deps := room.Deps{Tokens: authtoken.NewManager(cfg.Secret)}

	var rc *redis.Client
	if cfg.RedisHost != "" {
		rc, err = redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		c.closers = append(c.closers, rc.Close)

		deps.Bus = pubsub.NewRedisPubSub(rc, logger)
		deps.PresenceRepo = presenceredis.NewRepo(rc, logger)
		if cfg.Cluster {
			deps.Locker = locker.NewRedis(rc, 10*time.Second, logger)
		}
	}

	switch cfg.DBDriver {
	case "memory":
		deps.RoomRepo = inmemory.NewRepo(logger)
	case "redis":
		deps.RoomRepo = roomredis.NewRepo(rc, logger)
	default:
		db, err := gormdb.Open(&gormdb.Config{
			Driver:          cfg.DBDriver,
			DSN:             cfg.DBDSN,
			MaxIdleConns:    5,
			MaxOpenConns:    20,
			ConnMaxLifetime: time.Hour,
			LogQueries:      strings.EqualFold(cfg.LogLevel, "debug"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		c.closers = append(c.closers, sqlDB.Close)
		deps.RoomRepo = gormdb.NewRepo(db, logger)
	}

	provider := ytvideodata.NewClient(ytvideodata.Config{
		APIKey:     cfg.YouTubeAPIKey,
		Timeout:    cfg.VideoInfoTimeout,
		RetryCount: 2,
	})
	deps.VideoInfo, err = videoinfo.NewCache(provider, videoinfo.Config{
		Size:          cfg.VideoCacheSize,
		LookupTimeout: cfg.VideoInfoTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create video info cache: %w", err)
	}

	roomService, err := room.NewService(deps, &room.Config{
		WorkerID:         uuid.NewString(),
		PlaylistLimit:    cfg.PlaylistLimit,
		AutoCreateRooms:  cfg.AutoCreateRooms,
		Cluster:          cfg.Cluster,
		SweepInterval:    cfg.SweepInterval,
		PresenceInterval: cfg.PresenceInterval,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create room service: %w", err)
	}

	c.service = roomService
	c.handler = controller.NewController(roomService, logger).GetMux()
	return c, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	c, err := newComponents(serverCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	serviceDone := make(chan error, 1)
	go func() {
		serviceDone <- c.service.Run(serverCtx)
	}()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: c.handler}

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "cluster", cfg.Cluster)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	if err := <-serviceDone; err != nil {
		return fmt.Errorf("room service stopped: %w", err)
	}

	return nil
}
