package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/reup/internal/metrics"
	"github.com/ppiankov/reup/internal/model"
	"github.com/ppiankov/reup/internal/pipeline"
	"github.com/ppiankov/reup/internal/report"
	"github.com/ppiankov/reup/internal/source"
	"github.com/ppiankov/reup/internal/store"
)

// weatherCmd represents the weather command
var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Fetch the daily forecast, store it and print a summary",
	Long: `Fetch the Open-Meteo daily forecast for one location, replace the
forecast table with it and print the maximum temperature and precipitation.

Example:
  reup weather
  reup weather --lat 48.85 --lon 2.35 --days 7
  reup weather --format markdown`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSources(cmd, func(cfg *model.Config) []source.Source {
			return []source.Source{source.NewWeather(cfg.Weather)}
		})
	},
}

// universitiesCmd represents the universities command
var universitiesCmd = &cobra.Command{
	Use:   "universities",
	Short: "Fetch the university directory for a country and store it",
	Long: `Fetch the Hipolabs university directory for one country and store it in
the normalized universities, web_pages and domains tables.

The directory endpoint often drops the connection before the response is
complete; reup keeps every complete record received.

Example:
  reup universities
  reup universities --country "United Kingdom"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSources(cmd, func(cfg *model.Config) []source.Source {
			return []source.Source{source.NewUniversities(cfg.Universities)}
		})
	},
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest every source",
	Long: `Ingest the weather and universities sources in one invocation.
Up to concurrency.sources sources are fetched at once; a failing source does
not stop the others.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSources(cmd, func(cfg *model.Config) []source.Source {
			return []source.Source{
				source.NewWeather(cfg.Weather),
				source.NewUniversities(cfg.Universities),
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(weatherCmd)
	rootCmd.AddCommand(universitiesCmd)
	rootCmd.AddCommand(runCmd)

	weatherCmd.Flags().Float64("lat", 0, "latitude")
	weatherCmd.Flags().Float64("lon", 0, "longitude")
	weatherCmd.Flags().Int("days", 0, "forecast days")
	weatherCmd.Flags().StringSlice("daily", nil, "daily variables, comma separated")
	weatherCmd.Flags().String("table", "", "table the forecast replaces")
	_ = viper.BindPFlag("weather.latitude", weatherCmd.Flags().Lookup("lat"))
	_ = viper.BindPFlag("weather.longitude", weatherCmd.Flags().Lookup("lon"))
	_ = viper.BindPFlag("weather.forecast_days", weatherCmd.Flags().Lookup("days"))
	_ = viper.BindPFlag("weather.daily", weatherCmd.Flags().Lookup("daily"))
	_ = viper.BindPFlag("weather.table", weatherCmd.Flags().Lookup("table"))

	universitiesCmd.Flags().String("country", "", "country to list universities for")
	_ = viper.BindPFlag("universities.country", universitiesCmd.Flags().Lookup("country"))

	runCmd.Flags().Int("concurrency", 0, "sources fetched at once")
	_ = viper.BindPFlag("concurrency.sources", runCmd.Flags().Lookup("concurrency"))
}

func runSources(cmd *cobra.Command, build func(*model.Config) []source.Source) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	ingestErr := a.ingest(cmd.Context(), cmd.OutOrStdout(), build(cfg))
	return errors.Join(ingestErr, a.Close())
}

// app holds what every ingest command wires from configuration
type app struct {
	cfg     *model.Config
	logger  *slog.Logger
	metrics *metrics.Recorder
	fetcher source.Fetcher
	store   *store.SqlStore
	mode    report.Mode
}

func newApp(cfg *model.Config) (*app, error) {
	mode, err := report.ParseMode(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Output.Verbose)
	rec := metrics.New()

	fetcher, err := pipeline.New(cfg, logger, rec)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("store opened", "path", cfg.Storage.Path)

	return &app{cfg: cfg, logger: logger, metrics: rec, fetcher: fetcher, store: st, mode: mode}, nil
}

// ingest runs every source through the fetcher and prints the reports in
// source order once all have finished
func (a *app) ingest(ctx context.Context, out io.Writer, sources []source.Source) error {
	results := make([]*source.Result, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(max(a.cfg.Concurrency.Sources, 1))
	for i, src := range sources {
		g.Go(func() error {
			results[i], errs[i] = source.Ingest(ctx, a.fetcher, a.store, src, a.logger)
			return nil
		})
	}
	_ = g.Wait()

	for i, src := range sources {
		if errs[i] != nil {
			continue
		}
		res := results[i]
		text, err := src.Report(res.Records, a.mode)
		if err != nil {
			errs[i] = fmt.Errorf("%s: report: %w", src.Name(), err)
			continue
		}
		note := ""
		if res.Run.Repaired {
			note = ", repaired"
		}
		fmt.Fprintf(out, "%s: %d records via %s%s\n%s\n\n", src.Name(), len(res.Records), res.Run.Path, note, text)
	}
	return errors.Join(errs...)
}

// Close closes the store and writes the metrics textfile when configured
func (a *app) Close() error {
	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := a.metrics.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		} else {
			a.logger.Debug("metrics written", "path", path)
		}
	}
	return errors.Join(errs...)
}
