package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/reup/internal/model"
)

// Fetcher performs the buffered single-shot GET
type Fetcher struct {
	client    Doer
	timeout   time.Duration
	userAgent string
	maxBytes  int64
}

// NewFetcher creates a new Fetcher with the given configuration. Every
// request is bounded by timeout, which must be positive.
func NewFetcher(client Doer, timeout time.Duration, userAgent string, maxBytes int64) (*Fetcher, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %v", timeout)
	}
	return &Fetcher{
		client:    client,
		timeout:   timeout,
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}, nil
}

// Response contains the full body and metadata of a single-shot GET
type Response struct {
	Body []byte
	Meta model.FetchMeta
}

// Fetch retrieves the whole body of rawURL, requiring a 2xx status
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setRequestHeaders(req, f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now().UTC(),
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	// Read one byte past the limit so an oversized body is detected rather than silently cut
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("read body: exceeds %d bytes", f.maxBytes)
	}
	meta.Bytes = len(body)

	return &Response{Body: body, Meta: meta}, nil
}
