package images

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"

	"postreel/internal/model"
)

// Searcher is the query interface the provider depends on. Nil means
// placeholders only.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

// Provider turns image queries into downloadable assets.
type Provider struct {
	search     Searcher
	httpClient *http.Client
	logger     *slog.Logger
}

func NewProvider(search Searcher, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		search:     search,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Resolve finds one image per query. A failed or empty search falls back
// to a placeholder seeded by the query text, so repeated runs of the same
// post pick the same placeholders.
func (p *Provider) Resolve(ctx context.Context, queries []string) []model.Image {
	images := make([]model.Image, 0, len(queries))
	for i, query := range queries {
		if p.search != nil {
			results, err := p.search.Search(ctx, query, 1)
			if err == nil && len(results) > 0 {
				images = append(images, model.Image{
					URL:    results[0].ImageURL,
					Thumb:  results[0].ThumbURL,
					Title:  results[0].Title,
					Source: "Google Custom Search",
				})
				continue
			}
			if err != nil {
				p.logger.Warn("image search failed, using placeholder",
					"query", query, "error", err)
			}
		}
		images = append(images, placeholder(query, i))
	}
	return images
}

// placeholder builds a deterministic Lorem Picsum URL for a query.
func placeholder(query string, index int) model.Image {
	h := fnv.New32a()
	_, _ = h.Write([]byte(query))
	return model.Image{
		URL:    fmt.Sprintf("https://picsum.photos/seed/%d-%d/1080/1920", h.Sum32(), index),
		Title:  fmt.Sprintf("Placeholder for %q", query),
		Source: "Lorem Picsum",
	}
}

// Download fetches an image and rejects payloads that are not actually
// image data, which happens when hosts return HTML error pages with a 200.
func (p *Provider) Download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image data: %w", err)
	}
	if !isValidImage(data) {
		return nil, fmt.Errorf("response from %s is not image data", imageURL)
	}
	return data, nil
}

var imageMagics = [][]byte{
	{0xFF, 0xD8, 0xFF},       // JPEG
	{0x89, 'P', 'N', 'G'},    // PNG
	{'G', 'I', 'F', '8'},     // GIF
	{'R', 'I', 'F', 'F'},     // WebP (RIFF container)
	{'B', 'M'},               // BMP
}

func isValidImage(data []byte) bool {
	for _, magic := range imageMagics {
		if bytes.HasPrefix(data, magic) {
			return true
		}
	}
	return false
}
