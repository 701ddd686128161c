package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/reup/internal/model"
)

// Sink accepts a RecordSet and replaces the contents of a named table with it
type Sink interface {
	Replace(ctx context.Context, table string, rs model.RecordSet) error
}

// timeLayout is fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedTables may not be overwritten through Replace
var reservedTables = map[string]bool{
	"schema_version": true,
	"ingest_runs":    true,
	"universities":   true,
	"web_pages":      true,
	"domains":        true,
}

// SqlStore is the SQLite sink
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and applies the schema.
// Creates the parent directory if it does not exist.
func Open(path string) (*SqlStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	// pragmas are per connection in SQLite, so they ride on the DSN
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite has one writer; concurrent sources queue on the pool instead of
	// failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// Replace drops table and recreates it from rs in one transaction: one column
// per field, one row per record. An empty RecordSet leaves no table behind.
func (s *SqlStore) Replace(ctx context.Context, table string, rs model.RecordSet) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	if reservedTables[table] {
		return fmt.Errorf("table %q is managed by reup", table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return fmt.Errorf("drop %s: %w", table, err)
	}

	fields := rs.Fields()
	if len(fields) > 0 {
		cols := make([]string, len(fields))
		marks := make([]string, len(fields))
		for i, f := range fields {
			cols[i] = quoteIdent(f) + " " + columnType(rs.Column(f))
			marks[i] = "?"
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", "))); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}

		quoted := make([]string, len(fields))
		for i, f := range fields {
			quoted[i] = quoteIdent(f)
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		args := make([]any, len(fields))
		for n, rec := range rs {
			for i, f := range fields {
				args[i] = sqlValue(rec[f])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert row %d into %s: %w", n, table, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace tx: %w", err)
	}
	return nil
}

// ReplaceUniversities replaces the normalized university tables with rs.
// Each record's web_pages and domains lists become child rows.
func (s *SqlStore) ReplaceUniversities(ctx context.Context, rs model.RecordSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin universities tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"web_pages", "domains", "universities"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	uni, err := tx.PrepareContext(ctx,
		`INSERT INTO universities(name, state_province, alpha_two_code, country) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare university insert: %w", err)
	}
	defer func() { _ = uni.Close() }()
	page, err := tx.PrepareContext(ctx, `INSERT INTO web_pages(university_id, web_page) VALUES(?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare web page insert: %w", err)
	}
	defer func() { _ = page.Close() }()
	domain, err := tx.PrepareContext(ctx, `INSERT INTO domains(university_id, domain_name) VALUES(?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare domain insert: %w", err)
	}
	defer func() { _ = domain.Close() }()

	for n, rec := range rs {
		name, ok := rec["name"].(string)
		if !ok || name == "" {
			return fmt.Errorf("university %d: missing name", n)
		}
		res, err := uni.ExecContext(ctx, name,
			sqlValue(rec["state-province"]), sqlValue(rec["alpha_two_code"]), sqlValue(rec["country"]))
		if err != nil {
			return fmt.Errorf("insert university %q: %w", name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		for _, p := range stringList(rec["web_pages"]) {
			if _, err := page.ExecContext(ctx, id, p); err != nil {
				return fmt.Errorf("insert web page for %q: %w", name, err)
			}
		}
		for _, d := range stringList(rec["domains"]) {
			if _, err := domain.ExecContext(ctx, id, d); err != nil {
				return fmt.Errorf("insert domain for %q: %w", name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit universities tx: %w", err)
	}
	return nil
}

// Run is one fetch-and-store attempt
type Run struct {
	ID         uuid.UUID
	Source     string
	URL        string
	Path       model.FetchPath
	Repaired   bool
	Records    int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun starts a run record for source
func NewRun(source, rawURL string) *Run {
	return &Run{ID: uuid.New(), Source: source, URL: rawURL, StartedAt: time.Now().UTC()}
}

// RecordRun appends a run to the ingest log
func (s *SqlStore) RecordRun(ctx context.Context, r *Run) error {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs(id, source, url, path, repaired, records, error, started_at, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Source, r.URL, nullIfEmpty(string(r.Path)), r.Repaired, r.Records, nullIfEmpty(r.Error),
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert ingest run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first
func (s *SqlStore) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, url, path, repaired, records, error, started_at, finished_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r                  Run
			id, started, ended string
			path, errMsg       sql.NullString
		)
		if err := rows.Scan(&id, &r.Source, &r.URL, &path, &r.Repaired, &r.Records, &errMsg, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id: %w", err)
		}
		r.Path = model.FetchPath(path.String)
		r.Error = errMsg.String
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse run %s started_at: %w", id, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, ended); err != nil {
			return nil, fmt.Errorf("parse run %s finished_at: %w", id, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// columnType is NUMERIC when every non-null value is a number, TEXT otherwise
func columnType(values []any) string {
	numeric := false
	for _, v := range values {
		switch v.(type) {
		case nil:
		case json.Number, float64, int, int64:
			numeric = true
		default:
			return "TEXT"
		}
	}
	if numeric {
		return "NUMERIC"
	}
	return "TEXT"
}

func sqlValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case string, bool, float64, int, int64:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
