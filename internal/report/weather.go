package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/ppiankov/reup/internal/model"
)

const (
	FieldDate           = "time"
	FieldTemperatureMax = "temperature_2m_max"
	FieldPrecipitation  = "precipitation_sum"
)

// WeatherReport is the forecast summary printed after a weather fetch
type WeatherReport struct {
	Days               int
	MaxTemperature     float64
	TotalPrecipitation float64
	MaxPrecipitation   float64
	WettestDays        []string
}

// Weather builds a WeatherReport from daily forecast records.
// Both temperature and precipitation fields must be present.
func Weather(rs model.RecordSet) (*WeatherReport, error) {
	temp, err := Summarize(rs, FieldTemperatureMax)
	if err != nil {
		return nil, err
	}
	precip, err := Summarize(rs, FieldPrecipitation)
	if err != nil {
		return nil, err
	}
	if temp.Count == 0 || precip.Count == 0 {
		return nil, fmt.Errorf("weather report needs %s and %s values", FieldTemperatureMax, FieldPrecipitation)
	}

	r := &WeatherReport{
		Days:               len(rs),
		MaxTemperature:     temp.Max,
		TotalPrecipitation: precip.Sum,
		MaxPrecipitation:   precip.Max,
	}
	for _, rec := range rs {
		v := rec[FieldPrecipitation]
		if v == nil {
			continue
		}
		if f, err := toFloat(v); err == nil && f == precip.Max {
			r.WettestDays = append(r.WettestDays, cast.ToString(rec[FieldDate]))
		}
	}
	return r, nil
}

// Table renders the report in mode
func (r *WeatherReport) Table(mode Mode) *Table {
	t := NewTable(mode)
	t.Header("Metric", "Value")
	t.Row("Forecast days", r.Days)
	t.Row("Maximum daily temperature", formatFloat(r.MaxTemperature)+" °C")
	t.Row("Total precipitation", formatFloat(r.TotalPrecipitation)+" mm")
	t.Row("Highest precipitation", formatFloat(r.MaxPrecipitation)+" mm")
	t.Row("Dates with highest precipitation", strings.Join(r.WettestDays, ", "))
	return t
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
