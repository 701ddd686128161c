// Package source defines the data sources reup ingests and the
// fetch, store, log sequence they share.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/reup/internal/model"
	"github.com/ppiankov/reup/internal/pipeline"
	"github.com/ppiankov/reup/internal/report"
	"github.com/ppiankov/reup/internal/store"
)

// Source describes one upstream API: where to fetch, what shape to expect,
// how to persist the records and how to summarize them.
type Source interface {
	Name() string
	URL() (string, error)
	Shape() pipeline.Shape
	Store(ctx context.Context, st Store, rs model.RecordSet) error
	Report(rs model.RecordSet, mode report.Mode) (string, error)
}

// Store is the persistence a source needs
type Store interface {
	store.Sink
	ReplaceUniversities(ctx context.Context, rs model.RecordSet) error
	RecordRun(ctx context.Context, r *store.Run) error
}

// Fetcher is satisfied by *pipeline.Orchestrator
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, shape pipeline.Shape) (*pipeline.FetchResult, error)
}

// Result is the outcome of one Ingest
type Result struct {
	Source  string
	Records model.RecordSet
	Fetch   *pipeline.FetchResult
	Run     *store.Run
}

// Ingest fetches src, stores its records and appends an ingest_runs row.
// Once the URL is built the run row is written whether or not the fetch or
// store succeeded.
func Ingest(ctx context.Context, f Fetcher, st Store, src Source, logger *slog.Logger) (res *Result, err error) {
	rawURL, err := src.URL()
	if err != nil {
		return nil, fmt.Errorf("%s: build url: %w", src.Name(), err)
	}

	run := store.NewRun(src.Name(), rawURL)
	res = &Result{Source: src.Name(), Run: run}
	defer func() {
		if err != nil {
			run.Error = err.Error()
		}
		run.FinishedAt = time.Now().UTC()
		// ctx may already be cancelled; the run log should still be written
		if recErr := st.RecordRun(context.WithoutCancel(ctx), run); recErr != nil {
			err = errors.Join(err, recErr)
		}
	}()

	logger.Debug("fetching", "source", src.Name(), "url", rawURL)
	fr, err := f.Fetch(ctx, rawURL, src.Shape())
	if err != nil {
		return res, fmt.Errorf("%s: %w", src.Name(), err)
	}
	res.Fetch = fr
	res.Records = fr.Records
	run.Path = fr.Path
	run.Repaired = fr.Repaired
	run.Records = len(fr.Records)

	if err := src.Store(ctx, st, fr.Records); err != nil {
		return res, fmt.Errorf("%s: store: %w", src.Name(), err)
	}
	logger.Info("ingested", "source", src.Name(), "records", len(fr.Records), "path", fr.Path, "repaired", fr.Repaired)
	return res, nil
}
