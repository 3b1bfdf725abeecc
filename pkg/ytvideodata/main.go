package ytvideodata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoNotEmbeddable = errors.New("video is not embeddable")
	// ErrUnavailable marks failures of the remote service rather than of the video id.
	ErrUnavailable = errors.New("video data service unavailable")
)

const (
	defaultAPIBaseURL  = "https://www.googleapis.com/youtube/v3"
	defaultSiteBaseURL = "https://www.youtube.com"
)

var videoIDRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

type VideoData struct {
	ID           string `json:"video_id"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	// Duration in seconds, 0 when unknown (live streams).
	Duration int `json:"duration"`
}

type Config struct {
	// APIKey enables the Data API. Without it the oEmbed endpoint and the watch page are used.
	APIKey      string
	Timeout     time.Duration
	RetryCount  int
	APIBaseURL  string
	SiteBaseURL string
}

type Client struct {
	http        *resty.Client
	apiKey      string
	apiBaseURL  string
	siteBaseURL string
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.SiteBaseURL == "" {
		cfg.SiteBaseURL = defaultSiteBaseURL
	}

	client := resty.New().
		SetHeader("User-Agent", "synctube/1.0").
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	return &Client{
		http:        client,
		apiKey:      cfg.APIKey,
		apiBaseURL:  cfg.APIBaseURL,
		siteBaseURL: cfg.SiteBaseURL,
	}
}

// Get resolves a video id. It returns ErrVideoNotFound or ErrVideoNotEmbeddable for
// ids that cannot be played and an error wrapping ErrUnavailable for remote failures.
func (c *Client) Get(ctx context.Context, videoID string) (*VideoData, error) {
	if !videoIDRegexp.MatchString(videoID) {
		return nil, ErrVideoNotFound
	}

	if c.apiKey != "" {
		videoData, err := c.getFromAPI(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from api: %w", err)
		}
		return videoData, nil
	}

	videoData, err := c.getWithEmbed(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video data with embed: %w", err)
	}

	duration, err := c.getDurationFromPage(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video data from page: %w", err)
	}
	videoData.Duration = duration

	return videoData, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
