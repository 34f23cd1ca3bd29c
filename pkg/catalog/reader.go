package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBFilename is the catalog file inside a Calibre library folder.
const DefaultDBFilename = "metadata.db"

// Reader answers read-only queries against a Calibre catalog. Every call checks out
// its own connection and returns it before returning; nothing is cached between calls.
type Reader struct {
	db     *sql.DB
	root   string
	dbPath string
	layout ColumnLayout
	logger *slog.Logger
	ownsDB bool
}

// Option customizes a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// WithColumnLayout replaces the custom column table naming convention.
func WithColumnLayout(l ColumnLayout) Option {
	return func(r *Reader) { r.layout = l }
}

// Open opens the catalog database of the library at root in read-only mode.
func Open(root, filename string, opts ...Option) (*Reader, error) {
	if root == "" {
		return nil, fmt.Errorf("library path is empty")
	}
	if filename == "" {
		filename = DefaultDBFilename
	}
	path := filepath.Join(root, filename)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database file not found: %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=query_only(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}

	r := NewReader(db, root, path, opts...)
	r.ownsDB = true
	return r, nil
}

// NewReader wraps an already opened database handle. The caller keeps ownership of db.
func NewReader(db *sql.DB, root, dbPath string, opts ...Option) *Reader {
	r := &Reader{
		db:     db,
		root:   root,
		dbPath: dbPath,
		layout: CalibreLayout{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close closes the database handle if the Reader opened it.
func (r *Reader) Close() error {
	if r.ownsDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the catalog is reachable.
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// DBPath returns the path of the catalog file.
func (r *Reader) DBPath() string { return r.dbPath }

// LibraryRoot returns the library folder.
func (r *Reader) LibraryRoot() string { return r.root }

// withConn runs fn on a dedicated connection and always hands it back to the pool.
func (r *Reader) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return dbError(op, err)
	}
	defer conn.Close()
	return fn(conn)
}
