package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/hazyhaar/calibre-mcp/pkg/textmatch"
)

// Accent folding cannot be pushed into a LIKE, so name-based lookups read every
// (id, name) pair and filter in memory: O(n) in catalog size per call.

const (
	scanBookTitlesSQL = `SELECT id, COALESCE(title, '') FROM books`
	scanTagNamesSQL   = `SELECT id, COALESCE(name, '') FROM tags`
	scanSeriesSQL     = `SELECT id, COALESCE(name, '') FROM series`
	scanAuthorNameSQL = `SELECT id, COALESCE(name, '') FROM authors`
	scanAuthorsSQL    = `SELECT id, COALESCE(name, ''), COALESCE(sort, '') FROM authors ORDER BY name`
)

// Detail queries take the matched ids as one JSON array bound to json_each(?).
const summarySelect = `
	SELECT b.id, COALESCE(b.title, ''),
	       COALESCE((SELECT GROUP_CONCAT(a.name, ' & ' ORDER BY bal.id)
	                 FROM books_authors_link bal
	                 JOIN authors a ON a.id = bal.author
	                 WHERE bal.book = b.id), ''),
	       COALESCE(b.pubdate, '')
	FROM books b`

const (
	summaryByIDsSQL = summarySelect + `
	WHERE b.id IN (SELECT value FROM json_each(?))
	ORDER BY b.title`

	summaryByTagIDsSQL = summarySelect + `
	WHERE b.id IN (SELECT btl.book FROM books_tags_link btl
	               WHERE btl.tag IN (SELECT value FROM json_each(?)))
	ORDER BY b.title`
)

const authorBooksSelect = `
	SELECT b.id, COALESCE(b.title, ''), COALESCE(b.pubdate, ''),
	       CASE WHEN s.name IS NOT NULL
	            THEN s.name || ' #' || CAST(COALESCE(b.series_index, 0.0) AS TEXT)
	            ELSE '' END
	FROM books b
	LEFT JOIN books_series_link bsl ON bsl.book = b.id
	LEFT JOIN series s ON s.id = bsl.series`

const (
	booksByAuthorIDsSQL = authorBooksSelect + `
	WHERE b.id IN (SELECT bal.book FROM books_authors_link bal
	               WHERE bal.author IN (SELECT value FROM json_each(?)))
	ORDER BY b.pubdate DESC, b.title`

	booksByAuthorIDSQL = authorBooksSelect + `
	WHERE b.id IN (SELECT bal.book FROM books_authors_link bal WHERE bal.author = ?)
	ORDER BY b.pubdate DESC, b.title`
)

const booksBySeriesIDsSQL = `
	SELECT b.id, COALESCE(b.title, ''), COALESCE(s.name, ''), COALESCE(b.series_index, 0.0)
	FROM books b
	JOIN books_series_link bsl ON bsl.book = b.id
	JOIN series s ON s.id = bsl.series
	WHERE s.id IN (SELECT value FROM json_each(?))
	ORDER BY COALESCE(b.series_index, 0.0), b.id`

const allTagsSQL = `SELECT id, COALESCE(name, '') FROM tags ORDER BY name`

type namedRow struct {
	id   int64
	name string
}

func scanNames(ctx context.Context, conn *sql.Conn, query string) ([]namedRow, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []namedRow
	for rows.Next() {
		var nr namedRow
		if err := rows.Scan(&nr.id, &nr.name); err != nil {
			return nil, err
		}
		out = append(out, nr)
	}
	return out, rows.Err()
}

func filterIDs(rows []namedRow, match func(string) bool) []int64 {
	var ids []int64
	for _, nr := range rows {
		if match(nr.name) {
			ids = append(ids, nr.id)
		}
	}
	return ids
}

func idsParam(ids []int64) string {
	data, _ := json.Marshal(ids)
	return string(data)
}

func querySummaries(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]BookSummary, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookSummary
	for rows.Next() {
		var b BookSummary
		if err := rows.Scan(&b.ID, &b.Title, &b.Authors, &b.PublicationDate); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func queryAuthorBooks(ctx context.Context, conn *sql.Conn, query string, args ...any) ([]AuthorBook, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuthorBook
	for rows.Next() {
		var b AuthorBook
		if err := rows.Scan(&b.ID, &b.Title, &b.PublicationDate, &b.SeriesInfo); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SearchBooksByTitle returns books whose title matches pattern, accent and case
// insensitively, ordered by title.
func (r *Reader) SearchBooksByTitle(ctx context.Context, pattern string) ([]BookSummary, error) {
	const op = "searching books by title"
	pattern, err := cleanText("title_pattern", pattern, MaxPatternLen)
	if err != nil {
		return nil, err
	}
	p := textmatch.Compile(pattern)

	var books []BookSummary
	err = r.withConn(ctx, op, func(conn *sql.Conn) error {
		titles, err := scanNames(ctx, conn, scanBookTitlesSQL)
		if err != nil {
			return dbError(op, err)
		}
		ids := filterIDs(titles, p.Match)
		r.logger.Debug("title scan", "pattern", pattern, "mode", p.Mode, "scanned", len(titles), "matched", len(ids))
		if len(ids) == 0 {
			return nil
		}
		books, err = querySummaries(ctx, conn, summaryByIDsSQL, idsParam(ids))
		if err != nil {
			return dbError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, notFound("books", pattern, "title pattern")
	}
	return books, nil
}

// SearchAuthorsByName returns authors whose name matches pattern, ordered by name.
func (r *Reader) SearchAuthorsByName(ctx context.Context, pattern string) ([]Author, error) {
	const op = "searching authors by name"
	pattern, err := cleanText("name_pattern", pattern, MaxPatternLen)
	if err != nil {
		return nil, err
	}
	p := textmatch.Compile(pattern)

	var authors []Author
	err = r.withConn(ctx, op, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, scanAuthorsSQL)
		if err != nil {
			return dbError(op, err)
		}
		defer rows.Close()

		for rows.Next() {
			var a Author
			if err := rows.Scan(&a.ID, &a.Name, &a.Sort); err != nil {
				return dbError(op, err)
			}
			if p.Match(a.Name) {
				authors = append(authors, a)
			}
		}
		if err := rows.Err(); err != nil {
			return dbError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return nil, notFound("authors", pattern, "name pattern")
	}
	return authors, nil
}

// SearchBooksByTagPattern matches tag names first, then returns the books carrying
// any matched tag, ordered by title.
func (r *Reader) SearchBooksByTagPattern(ctx context.Context, pattern string) ([]BookSummary, error) {
	const op = "searching books by tag pattern"
	pattern, err := cleanText("tag_pattern", pattern, MaxTagLen)
	if err != nil {
		return nil, err
	}
	p := textmatch.Compile(pattern)

	var books []BookSummary
	err = r.withConn(ctx, op, func(conn *sql.Conn) error {
		tags, err := scanNames(ctx, conn, scanTagNamesSQL)
		if err != nil {
			return dbError(op, err)
		}
		ids := filterIDs(tags, p.Match)
		if len(ids) == 0 {
			return nil
		}
		books, err = querySummaries(ctx, conn, summaryByTagIDsSQL, idsParam(ids))
		if err != nil {
			return dbError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, notFound("books", pattern, "tag pattern")
	}
	return books, nil
}

// BooksByAuthor resolves every author whose folded name equals name and returns the
// union of their books, newest first.
func (r *Reader) BooksByAuthor(ctx context.Context, name string) ([]AuthorBook, error) {
	const op = "getting books by author"
	name, err := cleanText("author_name", name, MaxPatternLen)
	if err != nil {
		return nil, err
	}

	var books []AuthorBook
	err = r.withConn(ctx, op, func(conn *sql.Conn) error {
		authors, err := scanNames(ctx, conn, scanAuthorNameSQL)
		if err != nil {
			return dbError(op, err)
		}
		ids := filterIDs(authors, func(s string) bool { return textmatch.Equal(s, name) })
		if len(ids) == 0 {
			return nil
		}
		books, err = queryAuthorBooks(ctx, conn, booksByAuthorIDsSQL, idsParam(ids))
		if err != nil {
			return dbError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, notFound("books", name, "author name")
	}
	return books, nil
}

// BooksByAuthorID returns the books linked to one author id, newest first.
func (r *Reader) BooksByAuthorID(ctx context.Context, authorID int64) ([]AuthorBook, error) {
	const op = "getting books by author ID"
	if err := checkID("author_id", authorID); err != nil {
		return nil, err
	}

	var books []AuthorBook
	err := r.withConn(ctx, op, func(conn *sql.Conn) error {
		var err error
		books, err = queryAuthorBooks(ctx, conn, booksByAuthorIDSQL, authorID)
		if err != nil {
			return dbError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, notFound("books", strconv.FormatInt(authorID, 10), "author ID")
	}
	return books, nil
}

// BooksBySeries returns the books of every series whose folded name equals name,
// ordered by series index.
func (r *Reader) BooksBySeries(ctx context.Context, name string) ([]SeriesBook, error) {
	const op = "getting books by series"
	name, err := cleanText("series_name", name, MaxPatternLen)
	if err != nil {
		return nil, err
	}

	var books []SeriesBook
	err = r.withConn(ctx, op, func(conn *sql.Conn) error {
		series, err := scanNames(ctx, conn, scanSeriesSQL)
		if err != nil {
			return dbError(op, err)
		}
		ids := filterIDs(series, func(s string) bool { return textmatch.Equal(s, name) })
		if len(ids) == 0 {
			return nil
		}

		rows, err := conn.QueryContext(ctx, booksBySeriesIDsSQL, idsParam(ids))
		if err != nil {
			return dbError(op, err)
		}
		defer rows.Close()
		for rows.Next() {
			var b SeriesBook
			if err := rows.Scan(&b.ID, &b.Title, &b.SeriesName, &b.SeriesIndex); err != nil {
				return dbError(op, err)
			}
			books = append(books, b)
		}
		if err := rows.Err(); err != nil {
			return dbError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, notFound("books", name, "series name")
	}
	return books, nil
}

// BooksByTag returns the books carrying a tag whose folded name equals name, ordered
// by title.
func (r *Reader) BooksByTag(ctx context.Context, name string) ([]BookSummary, error) {
	const op = "getting books by tag"
	name, err := cleanText("tag_name", name, MaxTagLen)
	if err != nil {
		return nil, err
	}

	var books []BookSummary
	err = r.withConn(ctx, op, func(conn *sql.Conn) error {
		tags, err := scanNames(ctx, conn, scanTagNamesSQL)
		if err != nil {
			return dbError(op, err)
		}
		ids := filterIDs(tags, func(s string) bool { return textmatch.Equal(s, name) })
		if len(ids) == 0 {
			return nil
		}
		books, err = querySummaries(ctx, conn, summaryByTagIDsSQL, idsParam(ids))
		if err != nil {
			return dbError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, notFound("books", name, "tag")
	}
	return books, nil
}

// Tags lists every tag alphabetically. An empty catalog yields an empty slice.
func (r *Reader) Tags(ctx context.Context) ([]Tag, error) {
	const op = "getting all tags"
	tags := []Tag{}
	err := r.withConn(ctx, op, func(conn *sql.Conn) error {
		rows, err := scanNames(ctx, conn, allTagsSQL)
		if err != nil {
			return dbError(op, err)
		}
		for _, nr := range rows {
			tags = append(tags, Tag{ID: nr.id, Name: nr.name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}
