package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, timeout time.Duration, maxBytes int64) *Fetcher {
	t.Helper()
	f, err := NewFetcher(http.DefaultClient, timeout, "test-agent", maxBytes)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNewFetcher_Validation(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		if _, err := NewFetcher(http.DefaultClient, timeout, "test-agent", 1<<20); err == nil {
			t.Errorf("expected error for timeout %v", timeout)
		}
	}
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `[{"a":1}]`)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, 5*time.Second, 1<<20)
	resp, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(resp.Body) != `[{"a":1}]` {
		t.Errorf("Unexpected body: %s", resp.Body)
	}
	if resp.Meta.StatusCode != http.StatusOK || resp.Meta.ContentType != "application/json" {
		t.Errorf("Unexpected meta: %+v", resp.Meta)
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, 5*time.Second, 1<<20)
	_, err := fetcher.Fetch(context.Background(), server.URL)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if got := err.Error(); got != "unexpected status: 503 Service Unavailable" {
		t.Errorf("Unexpected error: %s", got)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	fetcher := newTestFetcher(t, 5*time.Second, 1<<20)
	_, err := fetcher.Fetch(context.Background(), closedServerURL())

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %v", err)
	}
}

func TestFetch_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 64))
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, 5*time.Second, 32)
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for oversized body")
	}
}

func TestFetch_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	fetcher := newTestFetcher(t, 50*time.Millisecond, 1<<20)
	_, err := fetcher.Fetch(context.Background(), server.URL)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %v", err)
	}
	if !transportErr.Timeout() {
		t.Errorf("Expected Timeout() for %v", err)
	}
}
