package videoinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/sharetube/synctube/internal/metrics"
	"github.com/sharetube/synctube/pkg/ytvideodata"
)

var (
	ErrInvalidVideo = errors.New("invalid video")
	// ErrUnavailable is returned when the provider failed for reasons unrelated to the id.
	ErrUnavailable = errors.New("video info provider unavailable")
)

// Info is immutable once cached; callers must not modify it.
type Info struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Duration int    `json:"duration"`
}

type iProvider interface {
	Get(ctx context.Context, videoID string) (*ytvideodata.VideoData, error)
}

type Config struct {
	Size          int
	LookupTimeout time.Duration
}

// Cache resolves video ids through the provider and keeps every resolved entry in
// a bounded LRU. Failed lookups are never cached.
type Cache struct {
	provider iProvider
	entries  *lru.Cache
	group    singleflight.Group
	timeout  time.Duration
	logger   *slog.Logger
}

func NewCache(provider iProvider, cfg Config, logger *slog.Logger) (*Cache, error) {
	entries, err := lru.New(cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}

	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Cache{
		provider: provider,
		entries:  entries,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

func (c *Cache) Get(ctx context.Context, videoID string) (*Info, error) {
	if v, ok := c.entries.Get(videoID); ok {
		metrics.VideoInfoLookups.WithLabelValues("hit").Inc()
		return v.(*Info), nil
	}

	v, err, _ := c.group.Do(videoID, func() (any, error) {
		if v, ok := c.entries.Get(videoID); ok {
			return v, nil
		}

		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		data, err := c.provider.Get(lookupCtx, videoID)
		if err != nil {
			return nil, err
		}

		info := &Info{
			VideoID:  videoID,
			Title:    data.Title,
			Author:   data.AuthorName,
			Duration: data.Duration,
		}
		c.entries.Add(videoID, info)
		return info, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ytvideodata.ErrVideoNotFound), errors.Is(err, ytvideodata.ErrVideoNotEmbeddable):
			metrics.VideoInfoLookups.WithLabelValues("invalid").Inc()
			return nil, fmt.Errorf("%w: %s", ErrInvalidVideo, videoID)
		default:
			metrics.VideoInfoLookups.WithLabelValues("error").Inc()
			c.logger.WarnContext(ctx, "failed to resolve video", "video_id", videoID, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	metrics.VideoInfoLookups.WithLabelValues("miss").Inc()
	return v.(*Info), nil
}

// Peek returns a cached entry without calling the provider.
func (c *Cache) Peek(videoID string) (*Info, bool) {
	v, ok := c.entries.Peek(videoID)
	if !ok {
		return nil, false
	}
	return v.(*Info), true
}

func (c *Cache) Len() int {
	return c.entries.Len()
}
