package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const bingResponse = `{
	"webPages": {
		"value": [
			{"name": "DORA State of DevOps", "url": "https://example.com/dora", "snippet": "Elite teams deploy on demand."},
			{"name": "Build caching", "url": "https://example.org/cache", "snippet": "Cache hit rates above 90%."}
		]
	}
}`

func newTestSearcher(endpoint string, client *http.Client) *BingSearcher {
	return &BingSearcher{
		apiKey:   "test-key",
		endpoint: endpoint,
		count:    5,
		retries:  3,
		backoff:  time.Millisecond,
		client:   client,
	}
}

func TestBingSearcherSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "test-key" {
			t.Errorf("subscription key header = %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "deploy frequency" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("count"); got != "5" {
			t.Errorf("count = %q", got)
		}
		w.Write([]byte(bingResponse))
	}))
	defer server.Close()

	s := newTestSearcher(server.URL, server.Client())
	results, err := s.Search(context.Background(), "deploy frequency")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	want := SearchResult{
		Title:   "DORA State of DevOps",
		Snippet: "Elite teams deploy on demand.",
		URL:     "https://example.com/dora",
	}
	if results[0] != want {
		t.Errorf("first result = %+v", results[0])
	}
}

func TestBingSearcherEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	s := newTestSearcher(server.URL, server.Client())
	results, err := s.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("empty result set must not be an error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestBingSearcherRetriesTransientFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(bingResponse))
	}))
	defer server.Close()

	s := newTestSearcher(server.URL, server.Client())
	results, err := s.Search(context.Background(), "deploy frequency")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2", len(results))
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestBingSearcherGivesUpAfterMaxRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := newTestSearcher(server.URL, server.Client())
	if _, err := s.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestBingSearcherDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	s := newTestSearcher(server.URL, server.Client())
	if _, err := s.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &HTTPError{StatusCode: 429}, true},
		{"server error", &HTTPError{StatusCode: 503}, true},
		{"unauthorized", &HTTPError{StatusCode: 401}, false},
		{"not found", &HTTPError{StatusCode: 404}, false},
		{"plain error", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestNewBingSearcherRequiresKey(t *testing.T) {
	if _, err := NewBingSearcher("", SearchSettings{}); err == nil {
		t.Error("expected error for missing key")
	}
}
