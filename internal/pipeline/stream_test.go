package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewStreamFetcher_Validation(t *testing.T) {
	if _, err := NewStreamFetcher(http.DefaultClient, 0, time.Second, "", 0); err == nil {
		t.Error("expected error for zero chunk size")
	}
	if _, err := NewStreamFetcher(http.DefaultClient, 8192, 0, "", 0); err == nil {
		t.Error("expected error for zero timeout")
	}
}

func TestStream_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, universitiesBody)
	}))
	defer server.Close()

	res, err := newTestStreamer(t, 64).Stream(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if res.Truncated || res.Cause != nil {
		t.Errorf("complete stream marked truncated: %v", res.Cause)
	}
	if res.Buffer.String() != universitiesBody {
		t.Errorf("buffer mismatch:\n%s", res.Buffer.String())
	}
	wantChunks := (len(universitiesBody) + 63) / 64
	if res.Buffer.Chunks() != wantChunks {
		t.Errorf("chunks = %d, want %d", res.Buffer.Chunks(), wantChunks)
	}
	if res.Meta.StatusCode != http.StatusOK || res.Meta.Bytes != len(universitiesBody) {
		t.Errorf("unexpected meta: %+v", res.Meta)
	}
}

func TestStream_ConnectionDroppedMidPayload(t *testing.T) {
	partial := universitiesBody[:len(universitiesBody)-40]
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTruncated(t, w, http.StatusOK, partial)
	}))
	defer server.Close()

	res, err := newTestStreamer(t, 32).Stream(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected partial result without error, got %v", err)
	}
	if !res.Truncated {
		t.Error("expected Truncated")
	}
	if !errors.Is(res.Cause, io.ErrUnexpectedEOF) {
		t.Errorf("cause = %v, want unexpected EOF", res.Cause)
	}
	if res.Buffer.String() != partial {
		t.Errorf("buffer = %q, want the %d bytes sent", res.Buffer.String(), len(partial))
	}
}

func TestStream_ConnectionRefused(t *testing.T) {
	res, err := newTestStreamer(t, 8192).Stream(context.Background(), closedServerURL())

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if res.Buffer.Len() != 0 {
		t.Errorf("expected empty buffer, got %d bytes", res.Buffer.Len())
	}
}

func TestStream_FailureOnFirstRead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTruncated(t, w, http.StatusOK, "")
	}))
	defer server.Close()

	res, err := newTestStreamer(t, 8192).Stream(context.Background(), server.URL)

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if res.Buffer.Len() != 0 || res.Buffer.Chunks() != 0 {
		t.Errorf("expected empty buffer, got %d bytes in %d chunks", res.Buffer.Len(), res.Buffer.Chunks())
	}
}

func TestStream_TimeoutBeforeFirstChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	s, err := NewStreamFetcher(http.DefaultClient, 8192, 100*time.Millisecond, "reup-test", 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err = s.Stream(context.Background(), server.URL)
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("stream did not honor its timeout, took %v", elapsed)
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

func TestStream_NonSuccessStatusKeepsBuffer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"overloaded"}`)
	}))
	defer server.Close()

	res, err := newTestStreamer(t, 8192).Stream(context.Background(), server.URL)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d", statusErr.StatusCode)
	}
	if res.Buffer.String() != `{"error":"overloaded"}` {
		t.Errorf("buffer = %q", res.Buffer.String())
	}
}

func TestStream_BodyLimit(t *testing.T) {
	body := strings.Repeat("x", 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	defer server.Close()

	s, err := NewStreamFetcher(http.DefaultClient, 16, time.Second, "", 40)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Stream(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !res.Truncated || !errors.Is(res.Cause, errBodyLimit) {
		t.Errorf("expected body limit truncation, got truncated=%v cause=%v", res.Truncated, res.Cause)
	}
	if res.Buffer.Len() != 40 {
		t.Errorf("buffer length = %d, want 40", res.Buffer.Len())
	}
}

func TestTransportError_Timeout(t *testing.T) {
	if !(&TransportError{Err: context.DeadlineExceeded}).Timeout() {
		t.Error("deadline exceeded should report Timeout")
	}
	if (&TransportError{Err: errors.New("connection refused")}).Timeout() {
		t.Error("connection refused should not report Timeout")
	}
}
