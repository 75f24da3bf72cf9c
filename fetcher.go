package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// PageFetcher downloads a search-result page and converts it to a markdown
// excerpt, giving research synthesis more to work with than the ranked
// snippets alone.
type PageFetcher struct {
	converter  *md.Converter
	client     *http.Client
	maxExcerpt int
}

// NewPageFetcher creates a fetcher with the configured excerpt ceiling.
func NewPageFetcher(settings SearchSettings) *PageFetcher {
	return &PageFetcher{
		converter: md.NewConverter("", true, nil),
		client: &http.Client{
			Timeout: time.Duration(settings.TimeoutSeconds) * time.Second,
		},
		maxExcerpt: settings.MaxPageExcerpt,
	}
}

// FetchExcerpt fetches a URL and returns a truncated markdown rendering of
// the page body.
func (f *PageFetcher) FetchExcerpt(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	markdown, err := f.converter.ConvertString(string(body))
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}

	if len(markdown) > f.maxExcerpt {
		markdown = markdown[:f.maxExcerpt] + "..."
	}
	return markdown, nil
}
