package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/reup/internal/model"
	"github.com/ppiankov/reup/internal/pipeline"
	"github.com/ppiankov/reup/internal/report"
)

// Weather is the Open-Meteo daily forecast
type Weather struct {
	cfg model.WeatherConfig
}

// NewWeather creates the weather source
func NewWeather(cfg model.WeatherConfig) *Weather {
	return &Weather{cfg: cfg}
}

func (w *Weather) Name() string { return "weather" }

// URL builds the forecast request from coordinates, daily variables and horizon
func (w *Weather) URL() (string, error) {
	u, err := url.Parse(w.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q is not absolute", w.cfg.BaseURL)
	}
	if len(w.cfg.Daily) == 0 {
		return "", fmt.Errorf("no daily variables configured")
	}
	if w.cfg.ForecastDays <= 0 {
		return "", fmt.Errorf("forecast_days must be positive, got %d", w.cfg.ForecastDays)
	}

	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(w.cfg.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(w.cfg.Longitude, 'f', -1, 64))
	q.Set("daily", strings.Join(w.cfg.Daily, ","))
	q.Set("forecast_days", strconv.Itoa(w.cfg.ForecastDays))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Shape pivots the "daily" columns into one record per day
func (w *Weather) Shape() pipeline.Shape {
	return pipeline.ColumnarShape{Key: "daily"}
}

func (w *Weather) Store(ctx context.Context, st Store, rs model.RecordSet) error {
	return st.Replace(ctx, w.cfg.Table, rs)
}

// Report prints the forecast summary, or per-field stats when the
// configured daily variables are not temperature and precipitation
func (w *Weather) Report(rs model.RecordSet, mode report.Mode) (string, error) {
	if r, err := report.Weather(rs); err == nil {
		return r.Table(mode).String(), nil
	}

	stats := make([]report.Stats, 0, len(w.cfg.Daily))
	for _, field := range w.cfg.Daily {
		st, err := report.Summarize(rs, field)
		if err != nil {
			return "", err
		}
		stats = append(stats, st)
	}
	return report.StatsTable(stats, mode).String(), nil
}
