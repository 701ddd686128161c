package report

import (
	"sort"

	"github.com/spf13/cast"

	"github.com/ppiankov/reup/internal/model"
)

// UniversityReport counts what a university fetch stored
type UniversityReport struct {
	Universities int
	Provinces    []string // distinct non-empty state-province values, sorted
	WebPages     int
	Domains      int
}

// Universities builds a UniversityReport from directory records
func Universities(rs model.RecordSet) *UniversityReport {
	r := &UniversityReport{Universities: len(rs)}
	seen := make(map[string]bool)
	for _, rec := range rs {
		if p := cast.ToString(rec["state-province"]); p != "" && !seen[p] {
			seen[p] = true
			r.Provinces = append(r.Provinces, p)
		}
		r.WebPages += count(rec["web_pages"])
		r.Domains += count(rec["domains"])
	}
	sort.Strings(r.Provinces)
	return r
}

func count(v any) int {
	items, _ := v.([]any)
	return len(items)
}

// Table renders the report in mode
func (r *UniversityReport) Table(mode Mode) *Table {
	t := NewTable(mode)
	t.Header("Metric", "Value")
	t.AlignRight(2)
	t.Row("Universities", r.Universities)
	t.Row("States/provinces", len(r.Provinces))
	t.Row("Web pages", r.WebPages)
	t.Row("Domains", r.Domains)
	return t
}
