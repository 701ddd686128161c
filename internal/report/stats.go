package report

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"

	"github.com/ppiankov/reup/internal/model"
)

// Stats summarizes one numeric field of a RecordSet
type Stats struct {
	Field string
	Count int // non-null values
	Min   float64
	Max   float64
	Sum   float64
}

// Summarize computes min, max and sum over field. Null and missing values are
// skipped; values that do not coerce to a number are an error.
func Summarize(rs model.RecordSet, field string) (Stats, error) {
	st := Stats{Field: field}
	for i, rec := range rs {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		f, err := toFloat(v)
		if err != nil {
			return st, fmt.Errorf("record %d field %q: %w", i, field, err)
		}
		if st.Count == 0 || f < st.Min {
			st.Min = f
		}
		if st.Count == 0 || f > st.Max {
			st.Max = f
		}
		st.Sum += f
		st.Count++
	}
	return st, nil
}

func toFloat(v any) (float64, error) {
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	return cast.ToFloat64E(v)
}

// StatsTable renders one row per field
func StatsTable(stats []Stats, mode Mode) *Table {
	t := NewTable(mode)
	t.Header("Field", "Count", "Min", "Max", "Sum")
	t.AlignRight(2, 3, 4, 5)
	for _, st := range stats {
		t.Row(st.Field, st.Count, formatFloat(st.Min), formatFloat(st.Max), formatFloat(st.Sum))
	}
	return t
}
