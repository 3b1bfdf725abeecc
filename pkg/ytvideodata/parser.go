package ytvideodata

import (
	"context"
	"fmt"

	"golang.org/x/net/html"
)

// getDurationFromPage reads <meta itemprop="duration"> from the watch page.
// A page without it yields 0.
func (c *Client) getDurationFromPage(ctx context.Context, videoID string) (int, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetQueryParam("v", videoID).
		Get(c.siteBaseURL + "/watch")
	if err != nil {
		return 0, unavailable(err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return 0, unavailable(fmt.Errorf("unexpected status code: %d", resp.StatusCode()))
	}

	doc, err := html.Parse(body)
	if err != nil {
		return 0, unavailable(err)
	}

	content := getItempropContent(doc, "meta", "duration")
	if content == "" {
		return 0, nil
	}

	return ParseDuration(content)
}

func getItempropContent(n *html.Node, tag, itemprop string) string {
	if n.Type == html.ElementNode && n.Data == tag && attr(n, "itemprop") == itemprop {
		return attr(n, "content")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if content := getItempropContent(c, tag, itemprop); content != "" {
			return content
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
