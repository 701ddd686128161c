package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ppiankov/reup/internal/model"
	"github.com/ppiankov/reup/internal/pipeline"
	"github.com/ppiankov/reup/internal/report"
)

// Universities is the Hipolabs university directory for one country
type Universities struct {
	cfg model.UniversitiesConfig
}

// NewUniversities creates the universities source
func NewUniversities(cfg model.UniversitiesConfig) *Universities {
	return &Universities{cfg: cfg}
}

func (u *Universities) Name() string { return "universities" }

func (u *Universities) URL() (string, error) {
	base, err := url.Parse(u.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base url %q is not absolute", u.cfg.BaseURL)
	}
	if u.cfg.Country == "" {
		return "", fmt.Errorf("no country configured")
	}
	q := base.Query()
	q.Set("country", u.cfg.Country)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func (u *Universities) Shape() pipeline.Shape {
	return pipeline.ArrayShape{Required: []string{"name"}}
}

// Store replaces the normalized universities, web_pages and domains tables
func (u *Universities) Store(ctx context.Context, st Store, rs model.RecordSet) error {
	return st.ReplaceUniversities(ctx, rs)
}

func (u *Universities) Report(rs model.RecordSet, mode report.Mode) (string, error) {
	return report.Universities(rs).Table(mode).String(), nil
}
