// Package catalog persists field metadata per GRIB2 message in SQLite.
//
// Messages are keyed by the BLAKE3 digest of their bytes, so the same file
// loaded from different paths shares one set of entries.
package catalog

import (
	"context"
	"database/sql"
	"encoding/hex"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"github.com/wippyai/gribpack/errors"
	"github.com/wippyai/gribpack/session"
)

// Memory opens a private in-memory catalog.
const Memory = ":memory:"

// Catalog is a field metadata store.
type Catalog struct {
	db *sql.DB
}

// Entry is one cataloged field.
type Entry struct {
	CreatedAt  time.Time
	Digest     string
	Source     string
	Discipline int64
	Category   int64
	Number     int64
	Nx         int64
	Ny         int64
	Index      int
	NumPoints  int64
	Valid      int
	Min        float64
	Max        float64
	Mean       float64
	Metadata   []byte
}

// Message summarizes the entries of one digest.
type Message struct {
	Digest string
	Source string
	Fields int
}

// Digest returns the hex BLAKE3-256 digest of msg.
func Digest(msg []byte) string {
	sum := blake3.Sum256(msg)
	return hex.EncodeToString(sum[:])
}

// Open opens (and creates if needed) the catalog at path.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.InvalidInput(errors.PhaseCatalog, "catalog path is empty")
	}
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storageErr(err, "create catalog directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr(err, "open sqlite")
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, storageErr(err, "set busy_timeout")
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fields (
  digest      TEXT NOT NULL,
  field_index INTEGER NOT NULL,
  source      TEXT NOT NULL DEFAULT '',
  discipline  INTEGER NOT NULL,
  category    INTEGER NOT NULL,
  number      INTEGER NOT NULL,
  nx          INTEGER NOT NULL,
  ny          INTEGER NOT NULL,
  num_points  INTEGER NOT NULL,
  valid       INTEGER NOT NULL,
  min_value   REAL,
  max_value   REAL,
  mean_value  REAL,
  metadata    JSON NOT NULL,
  created_at  TEXT NOT NULL,
  PRIMARY KEY (digest, field_index)
);`,
		`CREATE INDEX IF NOT EXISTS fields_parameter_idx ON fields(discipline, category, number);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return storageErr(err, "bootstrap sqlite")
		}
	}
	return nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put records a scanned field, replacing any earlier entry for the same
// digest and index.
func (c *Catalog) Put(ctx context.Context, digest, source string, f session.Field) error {
	return put(ctx, c.db, digest, source, f)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, ex execer, digest, source string, f session.Field) error {
	if f.Document == nil {
		return errors.InvalidInput(errors.PhaseCatalog, "field has no parsed metadata")
	}
	doc := f.Document
	category, number := doc.Parameter()

	_, err := ex.ExecContext(ctx, `
INSERT INTO fields (digest, field_index, source, discipline, category, number, nx, ny,
  num_points, valid, min_value, max_value, mean_value, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(digest, field_index) DO UPDATE SET
  source = excluded.source,
  discipline = excluded.discipline,
  category = excluded.category,
  number = excluded.number,
  nx = excluded.nx,
  ny = excluded.ny,
  num_points = excluded.num_points,
  valid = excluded.valid,
  min_value = excluded.min_value,
  max_value = excluded.max_value,
  mean_value = excluded.mean_value,
  metadata = excluded.metadata,
  created_at = excluded.created_at;`,
		digest, f.Index, source, doc.Info.Discipline, category, number, doc.Grid.Nx, doc.Grid.Ny,
		doc.Grid.NumPoints, f.Summary.Valid,
		nullable(f.Summary.Min), nullable(f.Summary.Max), nullable(f.Summary.Mean),
		string(f.Metadata), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return storageErr(err, "insert field")
	}
	return nil
}

// PutAll records every field of a scan in one transaction.
func (c *Catalog) PutAll(ctx context.Context, digest, source string, fields []session.Field) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin")
	}
	for _, f := range fields {
		if err := put(ctx, tx, digest, source, f); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit")
	}
	return nil
}

const selectEntry = `SELECT digest, field_index, source, discipline, category, number, nx, ny,
  num_points, valid, min_value, max_value, mean_value, metadata, created_at FROM fields`

// Get returns the entry for digest and index.
func (c *Catalog) Get(ctx context.Context, digest string, index int) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, selectEntry+` WHERE digest = ? AND field_index = ?;`, digest, index)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound(errors.PhaseCatalog, "field", digest[:min(12, len(digest))]+"/"+strconv.Itoa(index))
	}
	if err != nil {
		return nil, storageErr(err, "select field")
	}
	return e, nil
}

// List returns the entries of digest ordered by index.
func (c *Catalog) List(ctx context.Context, digest string) ([]Entry, error) {
	return c.query(ctx, selectEntry+` WHERE digest = ? ORDER BY field_index;`, digest)
}

// FindParameter returns entries of any message carrying the given
// discipline, parameter category and number.
func (c *Catalog) FindParameter(ctx context.Context, discipline, category, number int64) ([]Entry, error) {
	return c.query(ctx, selectEntry+` WHERE discipline = ? AND category = ? AND number = ? ORDER BY digest, field_index;`,
		discipline, category, number)
}

// Messages lists cataloged messages.
func (c *Catalog) Messages(ctx context.Context) ([]Message, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT digest, MAX(source), COUNT(*) FROM fields GROUP BY digest ORDER BY digest;`)
	if err != nil {
		return nil, storageErr(err, "select messages")
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Digest, &m.Source, &m.Fields); err != nil {
			return nil, storageErr(err, "scan message")
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "select messages")
	}
	return out, nil
}

// Delete removes every entry of digest and returns how many were removed.
func (c *Catalog) Delete(ctx context.Context, digest string) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM fields WHERE digest = ?;`, digest)
	if err != nil {
		return 0, storageErr(err, "delete fields")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (c *Catalog) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(err, "select fields")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr(err, "scan field")
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "select fields")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e             Entry
		lo, hi, mean  sql.NullFloat64
		meta, created string
	)
	err := s.Scan(&e.Digest, &e.Index, &e.Source, &e.Discipline, &e.Category, &e.Number,
		&e.Nx, &e.Ny, &e.NumPoints, &e.Valid, &lo, &hi, &mean, &meta, &created)
	if err != nil {
		return nil, err
	}
	e.Min, e.Max, e.Mean = fromNullable(lo), fromNullable(hi), fromNullable(mean)
	e.Metadata = []byte(meta)
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = t
	}
	return &e, nil
}

// NaN statistics (no valid samples) are stored as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func storageErr(err error, detail string) *errors.Error {
	return errors.Wrap(errors.PhaseCatalog, errors.KindStorage, err, detail)
}
