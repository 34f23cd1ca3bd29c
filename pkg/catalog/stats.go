package catalog

import (
	"context"
	"database/sql"
)

func count(ctx context.Context, conn *sql.Conn, table string) (int64, error) {
	var n int64
	err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	return n, err
}

// CountBooks returns the number of books in the catalog.
func (r *Reader) CountBooks(ctx context.Context) (int64, error) {
	return r.countOne(ctx, "counting books", "books")
}

// CountAuthors returns the number of authors in the catalog.
func (r *Reader) CountAuthors(ctx context.Context) (int64, error) {
	return r.countOne(ctx, "counting authors", "authors")
}

func (r *Reader) countOne(ctx context.Context, op, table string) (int64, error) {
	var n int64
	err := r.withConn(ctx, op, func(conn *sql.Conn) error {
		var err error
		if n, err = count(ctx, conn, table); err != nil {
			return dbError(op, err)
		}
		return nil
	})
	return n, err
}

// Stats returns the row counts of the main catalog tables.
func (r *Reader) Stats(ctx context.Context) (*LibraryStats, error) {
	const op = "getting database info"
	st := &LibraryStats{DBPath: r.dbPath}
	err := r.withConn(ctx, op, func(conn *sql.Conn) error {
		for _, c := range []struct {
			table string
			dst   *int64
		}{
			{"books", &st.Books},
			{"authors", &st.Authors},
			{"series", &st.Series},
			{"publishers", &st.Publishers},
			{"tags", &st.Tags},
			{"languages", &st.Languages},
		} {
			n, err := count(ctx, conn, c.table)
			if err != nil {
				return dbError(op, err)
			}
			*c.dst = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
