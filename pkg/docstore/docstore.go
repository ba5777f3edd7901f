// Package docstore persists JSON documents in Postgres. Documents live in
// named collections; path-addressed documents additionally support
// merge-or-replace upserts.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

type document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         int64          `bun:"id,pk,autoincrement"`
	Collection string         `bun:"collection,notnull"`
	Path       string         `bun:"path,nullzero"`
	Fields     map[string]any `bun:"fields,type:jsonb"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Store is a Postgres-backed document store.
type Store struct {
	db      *bun.DB
	timeout time.Duration
}

func NewStore(cfg Config) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("docstore dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &Store{db: db, timeout: timeout}, nil
}

// Init creates the documents table and the path index when missing.
func (s *Store) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.NewCreateTable().
		Model((*document)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}

	if _, err := s.db.NewCreateIndex().
		Model((*document)(nil)).
		Index("documents_path_idx").
		Unique().
		Column("path").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create path index: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil docstore")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

// AddDocument appends a new document to a collection.
func (s *Store) AddDocument(ctx context.Context, collection string, fields map[string]any) error {
	if s == nil || s.db == nil {
		return errors.New("nil docstore")
	}
	if strings.TrimSpace(collection) == "" {
		return errors.New("collection is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := &document{
		Collection: collection,
		Fields:     fields,
	}
	if _, err := s.db.NewInsert().Model(doc).Exec(ctx); err != nil {
		return fmt.Errorf("add document to %s: %w", collection, err)
	}
	return nil
}

// SetDocument writes the document at path. With merge the new fields are
// folded into the existing ones; without it they replace them.
func (s *Store) SetDocument(ctx context.Context, path string, fields map[string]any, merge bool) error {
	if s == nil || s.db == nil {
		return errors.New("nil docstore")
	}
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return errors.New("document path is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := &document{
		Collection: collectionOf(path),
		Path:       path,
		Fields:     fields,
	}

	q := s.db.NewInsert().Model(doc).On("CONFLICT (path) DO UPDATE")
	if merge {
		q = q.Set("fields = d.fields || EXCLUDED.fields")
	} else {
		q = q.Set("fields = EXCLUDED.fields")
	}

	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("set document %s: %w", path, err)
	}
	return nil
}

// collectionOf derives the collection from a document path: everything up
// to the final segment, or the path itself for top-level documents.
func collectionOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return path
	}
	return path[:idx]
}
