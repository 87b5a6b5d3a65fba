// Package images resolves the visual assets for scripted videos: a Google
// Custom Search client for real photos and a deterministic placeholder
// fallback so a search outage never fails a run.
package images

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"postreel/pkg/httputil"
)

const (
	searchBaseURL  = "https://www.googleapis.com/customsearch/v1"
	defaultTimeout = 15 * time.Second
)

// SearchClient queries the Google Custom Search API for images.
type SearchClient struct {
	apiKey     string
	engineID   string
	httpClient *httputil.RetryClient
	baseURL    string
}

type SearchResult struct {
	Title    string
	ImageURL string
	ThumbURL string
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title string    `json:"title"`
	Link  string    `json:"link"`
	Image imageInfo `json:"image"`
}

type imageInfo struct {
	ThumbnailLink string `json:"thumbnailLink"`
}

func NewSearchClient(apiKey, engineID string) *SearchClient {
	return &SearchClient{
		apiKey:   apiKey,
		engineID: engineID,
		httpClient: httputil.NewRetryClient(
			&http.Client{Timeout: defaultTimeout},
			httputil.DefaultRetryConfig(),
		),
		baseURL: searchBaseURL,
	}
}

func (c *SearchClient) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if count > 10 {
		count = 10
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", fmt.Sprintf("%d", count))
	params.Set("safe", "active")
	params.Set("imgSize", "large")
	params.Set("imgType", "photo")

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search api error: %s, body: %s", resp.Status, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var searchResp searchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]SearchResult, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		results = append(results, SearchResult{
			Title:    item.Title,
			ImageURL: item.Link,
			ThumbURL: item.Image.ThumbnailLink,
		})
	}
	return results, nil
}
