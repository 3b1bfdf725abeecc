package ytvideodata

import (
	"context"
	"fmt"
	"net/http"
)

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (c *Client) getWithEmbed(ctx context.Context, videoID string) (*VideoData, error) {
	var result oembedResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"url":    c.siteBaseURL + "/watch?v=" + videoID,
			"format": "json",
		}).
		SetResult(&result).
		Get(c.siteBaseURL + "/oembed")
	if err != nil {
		return nil, unavailable(err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusNotFound:
		return nil, ErrVideoNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrVideoNotEmbeddable
	default:
		return nil, unavailable(fmt.Errorf("unexpected status code: %d", resp.StatusCode()))
	}

	return &VideoData{
		ID:           videoID,
		Title:        result.Title,
		AuthorName:   result.AuthorName,
		ThumbnailURL: result.ThumbnailURL,
	}, nil
}
