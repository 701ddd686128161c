package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/reup/internal/cache"
	"github.com/ppiankov/reup/internal/metrics"
	"github.com/ppiankov/reup/internal/model"
	"github.com/ppiankov/reup/internal/util"
	"github.com/ppiankov/reup/internal/worker"
)

// New wires an Orchestrator from configuration
func New(cfg *model.Config, logger *slog.Logger, rec *metrics.Recorder) (*Orchestrator, error) {
	client := NewHTTPClient(cfg.HTTP)

	streamer, err := NewStreamFetcher(client, cfg.HTTP.ChunkSize, cfg.HTTP.StreamTimeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("stream fetcher: %w", err)
	}
	fetcher, err := NewFetcher(client, cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	opts := []Option{
		WithLogger(logger),
		WithMetrics(rec),
		WithLimiter(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, WithCache(cache.NewLayeredCache(cfg.Cache), cfg.Cache.DiskTTL))
	}
	if cfg.HTTP.RespectRobots {
		opts = append(opts, WithRobots(util.NewRobotsChecker(client, cfg.HTTP.UserAgent, cfg.HTTP.Timeout)))
	}

	return NewOrchestrator(fetcher, streamer, opts...), nil
}
