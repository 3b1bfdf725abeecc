package ytvideodata

import (
	"context"
	"fmt"
)

type apiVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Status struct {
			Embeddable *bool `json:"embeddable"`
		} `json:"status"`
	} `json:"items"`
}

func (c *Client) getFromAPI(ctx context.Context, videoID string) (*VideoData, error) {
	var result apiVideosResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "snippet,contentDetails,status",
			"id":   videoID,
			"key":  c.apiKey,
		}).
		SetResult(&result).
		Get(c.apiBaseURL + "/videos")
	if err != nil {
		return nil, unavailable(err)
	}
	if resp.IsError() {
		return nil, unavailable(fmt.Errorf("unexpected status code: %d", resp.StatusCode()))
	}

	if len(result.Items) == 0 {
		return nil, ErrVideoNotFound
	}

	item := result.Items[0]
	if item.Status.Embeddable != nil && !*item.Status.Embeddable {
		return nil, ErrVideoNotEmbeddable
	}

	duration, err := ParseDuration(item.ContentDetails.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration: %w", err)
	}

	return &VideoData{
		ID:           videoID,
		Title:        item.Snippet.Title,
		AuthorName:   item.Snippet.ChannelTitle,
		ThumbnailURL: item.Snippet.Thumbnails["high"].URL,
		Duration:     duration,
	}, nil
}
