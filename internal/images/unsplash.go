// Package images finds stock photos for a generation. Every failure degrades to an
// empty list; a page without photos is still a page.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/httputil"
)

const (
	MaxResults    = 6
	maxQueryWords = 5
	maxBodyBytes  = 1 << 20
)

type Fetcher interface {
	Fetch(ctx context.Context, query string) []string
}

// SearchTerm keeps the first five whitespace-separated words of query.
func SearchTerm(query string) string {
	words := strings.Fields(query)
	if len(words) > maxQueryWords {
		words = words[:maxQueryWords]
	}
	return strings.Join(words, " ")
}

type UnsplashFetcher struct {
	accessKey string
	baseURL   string
	client    *http.Client
	logger    *slog.Logger
}

func NewUnsplashFetcher(accessKey, baseURL string, client *http.Client, logger *slog.Logger) *UnsplashFetcher {
	if client == nil {
		client = httputil.NewClient(httputil.LookupConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UnsplashFetcher{
		accessKey: accessKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		logger:    logger,
	}
}

// Fetch never fails; errors are logged and yield no images.
func (f *UnsplashFetcher) Fetch(ctx context.Context, query string) []string {
	urls, err := f.Search(ctx, query)
	if err != nil {
		f.logger.Warn("image search failed", "error", err)
		return []string{}
	}
	return urls
}

// Search is Fetch with the error exposed, for callers that track failures.
func (f *UnsplashFetcher) Search(ctx context.Context, query string) ([]string, error) {
	if f.accessKey == "" {
		return nil, fmt.Errorf("unsplash: access key not configured")
	}

	term := SearchTerm(query)
	if term == "" {
		return []string{}, nil
	}

	params := url.Values{}
	params.Set("query", term)
	params.Set("per_page", strconv.Itoa(MaxResults))
	params.Set("orientation", "landscape")
	params.Set("content_filter", "high")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/search/photos?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+f.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unsplash error: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("unsplash: malformed response body")
	}

	urls := make([]string, 0, MaxResults)
	for _, u := range gjson.GetBytes(body, "results.#.urls.regular").Array() {
		if u.Type != gjson.String || u.Str == "" {
			continue
		}
		urls = append(urls, u.Str)
		if len(urls) == MaxResults {
			break
		}
	}
	return urls, nil
}
