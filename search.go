package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// SearchResult is one ranked hit returned by the web-search service.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher issues a single query against the web-search service. An empty
// result list is a valid, non-error response.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// BingSearcher queries the Bing Web Search v7 API.
type BingSearcher struct {
	apiKey   string
	endpoint string
	count    int
	retries  int
	backoff  time.Duration
	client   *http.Client
}

// NewBingSearcher creates a searcher for the given subscription key.
func NewBingSearcher(apiKey string, settings SearchSettings) (*BingSearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("search API key is required")
	}
	return &BingSearcher{
		apiKey:   apiKey,
		endpoint: settings.Endpoint,
		count:    settings.Count,
		retries:  settings.MaxRetries,
		backoff:  time.Second,
		client: &http.Client{
			Timeout: time.Duration(settings.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// Search runs one query with bounded retries on transient failures.
func (s *BingSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		results, err := s.search(ctx, query)
		if err == nil {
			return results, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
		if attempt < s.retries-1 {
			backoff := time.Duration(1<<uint(attempt)) * s.backoff
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("exceeded max retries after %d attempts: %w", s.retries, lastErr)
}

func (s *BingSearcher) search(ctx context.Context, query string) ([]SearchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)

	q := req.URL.Query()
	q.Add("q", query)
	q.Add("count", strconv.Itoa(s.count))
	q.Add("responseFilter", "Webpages")
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	debugLog("search API response for %q: status=%d", query, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.Redacted()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var payload struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.WebPages.Value))
	for _, item := range payload.WebPages.Value {
		results = append(results, SearchResult{
			Title:   item.Name,
			Snippet: item.Snippet,
			URL:     item.URL,
		})
	}
	return results, nil
}

// isRetryable reports whether an error is a transient external failure:
// timeouts, rate limits, 5xx.
func isRetryable(err error) bool {
	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr.StatusCode == http.StatusTooManyRequests ||
			httpErr.StatusCode >= http.StatusInternalServerError
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return true
	}
	return false
}
