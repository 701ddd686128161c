package model

import (
	"sort"
	"time"
)

// Record is a single row derived from a JSON object.
// Field presence and value types are not guaranteed uniform across sources.
type Record map[string]any

// RecordSet is an ordered sequence of records handed to storage and reporting
type RecordSet []Record

// Fields returns the union of field names in first-seen order.
// Keys within a single record are visited in sorted order so the result is stable.
func (rs RecordSet) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, rec := range rs {
		for _, key := range sortedKeys(rec) {
			if !seen[key] {
				seen[key] = true
				fields = append(fields, key)
			}
		}
	}
	return fields
}

// Column returns the values of one field across all records (nil where absent)
func (rs RecordSet) Column(field string) []any {
	col := make([]any, len(rs))
	for i, rec := range rs {
		col[i] = rec[field]
	}
	return col
}

// FetchPath identifies which branch of the orchestrator produced a result
type FetchPath string

const (
	PathCache      FetchPath = "cache"
	PathSingleShot FetchPath = "single_shot"
	PathFallback   FetchPath = "fallback"
)

// FetchMeta contains HTTP metadata from the request that produced the records
type FetchMeta struct {
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type,omitempty"`
	Bytes       int       `json:"bytes"`
	Chunks      int       `json:"chunks,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func sortedKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
