package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ColumnLayout maps a custom column id to the tables that hold its values.
// link is the per-book link table, direct is the value table. Either may be
// missing in a given library.
type ColumnLayout interface {
	Tables(columnID int64) (link, direct string)
}

// CalibreLayout is the naming used by Calibre since 0.7.
type CalibreLayout struct{}

func (CalibreLayout) Tables(id int64) (string, string) {
	return fmt.Sprintf("books_custom_column_%d_link", id), fmt.Sprintf("custom_column_%d", id)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	return `"` + name + `"`, nil
}

var plainIntRe = regexp.MustCompile(`^[0-9]+$`)

func tableExists(ctx context.Context, conn *sql.Conn, name string) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	return n > 0, err
}

func hasColumn(ctx context.Context, conn *sql.Conn, table, column string) (bool, error) {
	var n int
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	return n > 0, err
}

type columnDef struct {
	id    int64
	label string
}

// loadCustomColumns resolves every custom column value of one book, keyed by
// column label. A library without custom columns yields an empty map.
func (r *Reader) loadCustomColumns(ctx context.Context, conn *sql.Conn, bookID int64) (map[string]string, error) {
	out := map[string]string{}

	ok, err := tableExists(ctx, conn, "custom_columns")
	if err != nil {
		return nil, err
	}
	if !ok {
		return out, nil
	}

	defs, err := listColumns(ctx, conn)
	if err != nil {
		return nil, err
	}

	for _, def := range defs {
		link, direct := r.layout.Tables(def.id)

		var values []string
		hasLink, err := tableExists(ctx, conn, link)
		if err != nil {
			return nil, err
		}
		if hasLink {
			values, err = r.linkedValues(ctx, conn, link, direct, bookID)
		} else {
			values, err = inlineValues(ctx, conn, direct, bookID)
		}
		if err != nil {
			return nil, err
		}
		if len(values) > 0 {
			out[def.label] = strings.Join(values, " & ")
		}
	}
	return out, nil
}

func listColumns(ctx context.Context, conn *sql.Conn) ([]columnDef, error) {
	rows, err := conn.QueryContext(ctx, `SELECT id, label FROM custom_columns ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []columnDef
	for rows.Next() {
		var d columnDef
		if err := rows.Scan(&d.id, &d.label); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// linkedValues reads the raw link values first and resolves them afterwards so
// only one statement is open on conn at a time.
func (r *Reader) linkedValues(ctx context.Context, conn *sql.Conn, link, direct string, bookID int64) ([]string, error) {
	qlink, err := quoteIdent(link)
	if err != nil {
		return nil, err
	}
	raw, err := scanStrings(ctx, conn,
		`SELECT value FROM `+qlink+` WHERE book = ? ORDER BY id`, bookID)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	hasDirect, err := tableExists(ctx, conn, direct)
	if err != nil || !hasDirect {
		return raw, nil
	}
	qdirect, err := quoteIdent(direct)
	if err != nil {
		return raw, nil
	}

	resolved := make([]string, 0, len(raw))
	for _, v := range raw {
		resolved = append(resolved, r.resolveValue(ctx, conn, qdirect, v))
	}
	return resolved, nil
}

// resolveValue looks a numeric link value up in the value table. Any failure
// keeps the raw value.
func (r *Reader) resolveValue(ctx context.Context, conn *sql.Conn, qdirect, raw string) string {
	if !plainIntRe.MatchString(raw) {
		return raw
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return raw
	}
	var v sql.NullString
	if err := conn.QueryRowContext(ctx, `SELECT value FROM `+qdirect+` WHERE id = ?`, id).Scan(&v); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("custom value lookup failed", "table", qdirect, "id", id, "error", err)
		}
		return raw
	}
	if !v.Valid {
		return raw
	}
	return v.String
}

// inlineValues reads a value table that carries its own book column.
func inlineValues(ctx context.Context, conn *sql.Conn, direct string, bookID int64) ([]string, error) {
	ok, err := tableExists(ctx, conn, direct)
	if err != nil || !ok {
		return nil, err
	}
	ok, err = hasColumn(ctx, conn, direct, "book")
	if err != nil || !ok {
		return nil, err
	}
	qdirect, err := quoteIdent(direct)
	if err != nil {
		return nil, err
	}
	return scanStrings(ctx, conn, `SELECT value FROM `+qdirect+` WHERE book = ? ORDER BY id`, bookID)
}

func scanStrings(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid {
			out = append(out, v.String)
		}
	}
	return out, rows.Err()
}
