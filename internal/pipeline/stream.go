package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/reup/internal/model"
)

var errBodyLimit = errors.New("body size limit reached")

// RawBuffer accumulates streamed body chunks in arrival order
type RawBuffer struct {
	buf    bytes.Buffer
	chunks int
}

// Append adds a chunk to the end of the buffer
func (b *RawBuffer) Append(chunk []byte) {
	b.buf.Write(chunk)
	b.chunks++
}

// Len returns the number of bytes received
func (b *RawBuffer) Len() int { return b.buf.Len() }

// Chunks returns the number of chunks received
func (b *RawBuffer) Chunks() int { return b.chunks }

// String returns the accumulated text
func (b *RawBuffer) String() string { return b.buf.String() }

// StreamResult is whatever part of the body was received
type StreamResult struct {
	Buffer    *RawBuffer
	Meta      model.FetchMeta
	Truncated bool  // the stream ended early
	Cause     error // why the stream ended early, nil if it completed
}

// StreamFetcher reads a response body in fixed-size chunks and keeps
// what it received when the connection drops mid-payload
type StreamFetcher struct {
	client    Doer
	chunkSize int
	timeout   time.Duration
	userAgent string
	maxBytes  int64
}

// NewStreamFetcher creates a StreamFetcher. chunkSize and timeout must be positive.
func NewStreamFetcher(client Doer, chunkSize int, timeout time.Duration, userAgent string, maxBytes int64) (*StreamFetcher, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("stream timeout must be positive, got %v", timeout)
	}
	return &StreamFetcher{
		client:    client,
		chunkSize: chunkSize,
		timeout:   timeout,
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}, nil
}

// Stream GETs rawURL and accumulates the body chunk by chunk.
//
// A failure before any chunk arrived returns a *TransportError and an empty buffer.
// A failure after that ends the stream and the partial buffer is returned with
// Truncated set. A non-2xx status returns the buffer together with a *StatusError.
func (s *StreamFetcher) Stream(ctx context.Context, rawURL string) (*StreamResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := &StreamResult{
		Buffer: &RawBuffer{},
		Meta:   model.FetchMeta{URL: rawURL, FetchedAt: time.Now().UTC()},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return result, fmt.Errorf("create request: %w", err)
	}
	setRequestHeaders(req, s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return result, &TransportError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	result.Meta.StatusCode = resp.StatusCode
	result.Meta.ContentType = resp.Header.Get("Content-Type")

	chunk := make([]byte, s.chunkSize)
	for {
		n, readErr := readChunk(resp.Body, chunk)
		if n > 0 {
			if s.maxBytes > 0 && int64(result.Buffer.Len()+n) > s.maxBytes {
				if remaining := s.maxBytes - int64(result.Buffer.Len()); remaining > 0 {
					result.Buffer.Append(chunk[:remaining])
				}
				result.Truncated = true
				result.Cause = errBodyLimit
				break
			}
			result.Buffer.Append(chunk[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if result.Buffer.Chunks() == 0 {
				return result, &TransportError{URL: rawURL, Err: readErr}
			}
			result.Truncated = true
			result.Cause = readErr
			break
		}
	}

	result.Meta.Bytes = result.Buffer.Len()
	result.Meta.Chunks = result.Buffer.Chunks()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return result, nil
}

// readChunk fills p unless the reader ends or fails first
func readChunk(r io.Reader, p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := r.Read(p[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
