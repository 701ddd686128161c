package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError is a connection failure before any body bytes were received
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline being hit
func (e *TransportError) Timeout() bool {
	var netErr net.Error
	if errors.As(e.Err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// StatusError is a non-2xx HTTP response
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("unexpected status: %d", e.StatusCode)
	}
	return "unexpected status: " + e.Status
}

// ParseError means a body, or a repaired payload, is not valid JSON
type ParseError struct {
	Repaired bool
	Err      error
}

func (e *ParseError) Error() string {
	if e.Repaired {
		return fmt.Sprintf("parse repaired payload: %v", e.Err)
	}
	return fmt.Sprintf("parse body: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RepairError means no usable boundary was found to repair a truncated buffer
type RepairError struct {
	Reason string
}

func (e *RepairError) Error() string {
	return "repair: " + e.Reason
}

// ShapeError means parsed JSON lacks the structure the caller expects
type ShapeError struct {
	Want   string
	Detail string
}

func (e *ShapeError) Error() string {
	if e.Detail == "" {
		return "shape: want " + e.Want
	}
	return fmt.Sprintf("shape: want %s: %s", e.Want, e.Detail)
}

// FetchError is returned when both the single-shot and the fallback paths failed
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }
