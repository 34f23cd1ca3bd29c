package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
)

// CoverFilename is the cover image Calibre stores next to each book's formats.
const CoverFilename = "cover.jpg"

// aggSep terminates every item of a DISTINCT group_concat so values that contain
// commas, such as author sort keys, survive the split.
const aggSep = "\x1f"

const bookDetailSQL = `
	SELECT
		COALESCE(b.title, ''),
		COALESCE(b.sort, ''),
		COALESCE(b.pubdate, ''),
		COALESCE(b.series_index, 0.0),
		COALESCE(b.path, ''),
		GROUP_CONCAT(DISTINCT a.name || char(31) ORDER BY a.name || char(31)),
		GROUP_CONCAT(DISTINCT a.sort || char(31) ORDER BY a.sort || char(31)),
		COALESCE(s.name, ''),
		COALESCE(s.sort, ''),
		GROUP_CONCAT(DISTINCT p.name || char(31) ORDER BY p.name || char(31)),
		GROUP_CONCAT(DISTINCT i.type || ':' || i.val || char(31) ORDER BY i.type || ':' || i.val || char(31)),
		COALESCE((SELECT l.lang_code FROM books_languages_link bll
		          JOIN languages l ON l.id = bll.lang_code
		          WHERE bll.book = b.id ORDER BY bll.id LIMIT 1), ''),
		COALESCE((SELECT c.text FROM comments c WHERE c.book = b.id), ''),
		GROUP_CONCAT(DISTINCT t.name || char(31) ORDER BY t.name || char(31))
	FROM books b
	LEFT JOIN books_authors_link bal ON bal.book = b.id
	LEFT JOIN authors a ON a.id = bal.author
	LEFT JOIN books_series_link bsl ON bsl.book = b.id
	LEFT JOIN series s ON s.id = bsl.series
	LEFT JOIN books_publishers_link bpl ON bpl.book = b.id
	LEFT JOIN publishers p ON p.id = bpl.publisher
	LEFT JOIN identifiers i ON i.book = b.id
	LEFT JOIN books_tags_link btl ON btl.book = b.id
	LEFT JOIN tags t ON t.id = btl.tag
	WHERE b.id = ?
	GROUP BY b.id, s.name, s.sort`

// cleanAggregate turns a raw group_concat value into a sep-joined list.
// Unterminated input is treated as plain comma separated.
func cleanAggregate(raw sql.NullString, sep string) string {
	if !raw.Valid || raw.String == "" {
		return ""
	}
	s := raw.String
	if strings.HasSuffix(s, aggSep) {
		s = strings.TrimSuffix(s, aggSep)
		return strings.ReplaceAll(s, aggSep+",", sep)
	}
	return strings.ReplaceAll(s, ",", sep)
}

// Book loads the full record of one book, custom columns included.
func (r *Reader) Book(ctx context.Context, id int64) (*Book, error) {
	if err := checkID("book_id", id); err != nil {
		return nil, err
	}

	var book *Book
	err := r.withConn(ctx, "book data loading", func(conn *sql.Conn) error {
		var (
			relPath                                  string
			authors, authorSorts, publishers, idents sql.NullString
			tags                                     sql.NullString
		)
		b := &Book{ID: id}
		err := conn.QueryRowContext(ctx, bookDetailSQL, id).Scan(
			&b.Title, &b.TitleSort, &b.Date, &b.SeriesIndex, &relPath,
			&authors, &authorSorts, &b.Series, &b.SeriesSort,
			&publishers, &idents, &b.Language, &b.Synopsis, &tags,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("book", strconv.FormatInt(id, 10), "ID")
		}
		if err != nil {
			return dbError("book data loading", err)
		}

		b.Author = cleanAggregate(authors, " & ")
		b.AuthorSort = cleanAggregate(authorSorts, " & ")
		b.Publisher = cleanAggregate(publishers, " & ")
		b.Identifiers = cleanAggregate(idents, ", ")
		b.Tags = cleanAggregate(tags, " & ")
		if relPath != "" {
			b.CoverPath = filepath.Join(r.root, relPath, CoverFilename)
		}

		b.Custom, err = r.loadCustomColumns(ctx, conn, id)
		if err != nil {
			return dbError("custom columns loading", err)
		}
		book = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("book loaded", "id", id, "custom_columns", len(book.Custom))
	return book, nil
}
