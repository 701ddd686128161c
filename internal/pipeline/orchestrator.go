package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ppiankov/reup/internal/cache"
	"github.com/ppiankov/reup/internal/metrics"
	"github.com/ppiankov/reup/internal/model"
	"github.com/ppiankov/reup/internal/util"
	"github.com/ppiankov/reup/internal/worker"
)

// stageRobots labels failures that happen before any fetch is attempted
const stageRobots = "robots"

// ErrDisallowed is returned when robots.txt checking is enabled and forbids the URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Orchestrator fetches a URL into a RecordSet. It tries one buffered
// single-shot GET and, if that fails for any reason, falls back once to a
// streamed GET whose (possibly truncated) body is repaired before parsing.
type Orchestrator struct {
	fetcher  *Fetcher
	streamer *StreamFetcher

	limiter  *worker.Limiter
	robots   *util.RobotsChecker
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// Option configures optional Orchestrator collaborators
type Option func(*Orchestrator)

// WithLimiter paces every outbound request
func WithLimiter(l *worker.Limiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithRobots checks robots.txt before fetching
func WithRobots(r *util.RobotsChecker) Option {
	return func(o *Orchestrator) { o.robots = r }
}

// WithCache serves and stores complete single-shot payloads
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

// WithMetrics records fetch outcomes
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger used for fallback and failure diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an Orchestrator over the two fetchers
func NewOrchestrator(fetcher *Fetcher, streamer *StreamFetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:  fetcher,
		streamer: streamer,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// FetchResult is a RecordSet plus how it was obtained
type FetchResult struct {
	Records  model.RecordSet
	Path     model.FetchPath
	Repaired bool // the fallback body was cut back to its last complete record
	Meta     model.FetchMeta
	Fallback error // the single-shot failure that triggered the fallback, if any
}

// Fetch returns the records at rawURL. It fails with a *FetchError only when
// the fallback path fails too; single-shot failures are logged and absorbed.
func (o *Orchestrator) Fetch(ctx context.Context, rawURL string, shape Shape) (*FetchResult, error) {
	start := time.Now()
	host := hostLabel(rawURL)

	var crawlDelay time.Duration
	if o.robots != nil {
		allowed, delay, err := o.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, o.fail(rawURL, host, stageRobots, start, err)
		}
		if !allowed {
			return nil, o.fail(rawURL, host, stageRobots, start, ErrDisallowed)
		}
		crawlDelay = delay
	}

	if result, ok := o.fromCache(rawURL, shape); ok {
		o.metrics.ObserveFetch(host, string(result.Path), metrics.OutcomeOK, len(result.Records), time.Since(start))
		return result, nil
	}

	result, err := o.singleShot(ctx, rawURL, shape, crawlDelay)
	if err == nil {
		o.metrics.ObserveFetch(host, string(result.Path), metrics.OutcomeOK, len(result.Records), time.Since(start))
		return result, nil
	}

	o.metrics.ObserveFallback(host)
	o.logger.Warn("single-shot fetch failed, trying partial fetch", "url", rawURL, "error", err)

	result, fbErr := o.fallback(ctx, rawURL, crawlDelay)
	if fbErr != nil {
		return nil, o.fail(rawURL, host, string(model.PathFallback), start, fbErr)
	}
	result.Fallback = err

	outcome := metrics.OutcomeOK
	if result.Repaired {
		outcome = metrics.OutcomeRepaired
	}
	o.metrics.ObserveFetch(host, string(result.Path), outcome, len(result.Records), time.Since(start))
	o.logger.Info("partial fetch recovered records",
		"url", rawURL,
		"records", len(result.Records),
		"repaired", result.Repaired,
		"bytes", result.Meta.Bytes,
	)
	return result, nil
}

func (o *Orchestrator) singleShot(ctx context.Context, rawURL string, shape Shape, crawlDelay time.Duration) (*FetchResult, error) {
	if err := o.wait(ctx, rawURL, crawlDelay); err != nil {
		return nil, err
	}

	resp, err := o.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	records, err := shape.Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		p := &cache.Payload{Body: resp.Body, ContentType: resp.Meta.ContentType, StoredAt: resp.Meta.FetchedAt}
		if err := o.cache.Store(rawURL, p, o.cacheTTL); err != nil {
			o.logger.Warn("cache write failed", "url", rawURL, "error", err)
		}
	}

	return &FetchResult{Records: records, Path: model.PathSingleShot, Meta: resp.Meta}, nil
}

func (o *Orchestrator) fallback(ctx context.Context, rawURL string, crawlDelay time.Duration) (*FetchResult, error) {
	if err := o.wait(ctx, rawURL, crawlDelay); err != nil {
		return nil, err
	}

	stream, err := o.streamer.Stream(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if stream.Truncated {
		o.logger.Warn("ignoring server error, keeping partial body",
			"url", rawURL,
			"bytes", stream.Buffer.Len(),
			"chunks", stream.Buffer.Chunks(),
			"error", stream.Cause,
		)
	}

	text := stream.Buffer.String()
	repaired, err := Repair(text)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords([]byte(repaired), true)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Records:  records,
		Path:     model.PathFallback,
		Repaired: repaired != text,
		Meta:     stream.Meta,
	}, nil
}

func (o *Orchestrator) fromCache(rawURL string, shape Shape) (*FetchResult, bool) {
	if o.cache == nil {
		return nil, false
	}
	p, ok := o.cache.Load(rawURL)
	if !ok {
		return nil, false
	}
	records, err := shape.Decode(p.Body)
	if err != nil {
		o.logger.Debug("dropping unusable cache entry", "url", rawURL, "error", err)
		_ = o.cache.Evict(rawURL)
		return nil, false
	}
	o.logger.Debug("serving from cache", "url", rawURL, "records", len(records), "stored_at", p.StoredAt)
	meta := model.FetchMeta{
		URL:         rawURL,
		ContentType: p.ContentType,
		Bytes:       len(p.Body),
		FetchedAt:   p.StoredAt,
	}
	return &FetchResult{Records: records, Path: model.PathCache, Meta: meta}, true
}

func (o *Orchestrator) wait(ctx context.Context, rawURL string, delay time.Duration) error {
	if o.limiter == nil {
		return nil
	}
	if err := o.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// fail records a terminal failure at stage and wraps cause
func (o *Orchestrator) fail(rawURL, host, stage string, start time.Time, cause error) error {
	o.metrics.ObserveFetch(host, stage, metrics.OutcomeFailed, 0, time.Since(start))
	o.logger.Error("fetch failed", "url", rawURL, "error", cause)
	return &FetchError{URL: rawURL, Cause: cause}
}

func hostLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
