package api

import (
	"context"
	"strings"

	"github.com/hazyhaar/calibre-mcp/pkg/catalog"
)

// fakeCatalog answers from fixed data and records the last argument it saw.
type fakeCatalog struct {
	lastArg any
	dbErr   error
}

func (f *fakeCatalog) fail(op string) error {
	if f.dbErr != nil {
		return &catalog.DatabaseError{Operation: op, Err: f.dbErr}
	}
	return nil
}

func blank(s string) error {
	if strings.TrimSpace(s) == "" {
		return &catalog.ValidationError{Parameter: "pattern", Message: "cannot be empty or whitespace"}
	}
	return nil
}

func (f *fakeCatalog) SearchBooksByTitle(_ context.Context, p string) ([]catalog.BookSummary, error) {
	f.lastArg = p
	if err := blank(p); err != nil {
		return nil, err
	}
	if err := f.fail("searching books by title"); err != nil {
		return nil, err
	}
	if p == "%nothing%" {
		return nil, &catalog.NotFoundError{Resource: "books", Identifier: p, Criteria: "title pattern"}
	}
	return []catalog.BookSummary{{ID: 1, Title: "Dune", Authors: "Frank Herbert", PublicationDate: "1965-08-01"}}, nil
}

func (f *fakeCatalog) SearchAuthorsByName(_ context.Context, p string) ([]catalog.Author, error) {
	f.lastArg = p
	return []catalog.Author{{ID: 2, Name: "Frank Herbert", Sort: "Herbert, Frank"}}, nil
}

func (f *fakeCatalog) SearchBooksByTagPattern(_ context.Context, p string) ([]catalog.BookSummary, error) {
	f.lastArg = p
	return []catalog.BookSummary{{ID: 1, Title: "Dune"}}, nil
}

func (f *fakeCatalog) BooksByAuthor(_ context.Context, name string) ([]catalog.AuthorBook, error) {
	f.lastArg = name
	return []catalog.AuthorBook{{ID: 1, Title: "Dune", SeriesInfo: "Dune #1.0"}}, nil
}

func (f *fakeCatalog) BooksByAuthorID(_ context.Context, id int64) ([]catalog.AuthorBook, error) {
	f.lastArg = id
	if id <= 0 {
		return nil, &catalog.ValidationError{Parameter: "author_id", Message: "author_id must be a positive integer"}
	}
	return []catalog.AuthorBook{{ID: 1, Title: "Dune"}}, nil
}

func (f *fakeCatalog) BooksBySeries(_ context.Context, name string) ([]catalog.SeriesBook, error) {
	f.lastArg = name
	return []catalog.SeriesBook{{ID: 1, Title: "Dune", SeriesName: "Dune", SeriesIndex: 1}}, nil
}

func (f *fakeCatalog) BooksByTag(_ context.Context, name string) ([]catalog.BookSummary, error) {
	f.lastArg = name
	return []catalog.BookSummary{{ID: 1, Title: "Dune"}}, nil
}

func (f *fakeCatalog) Book(_ context.Context, id int64) (*catalog.Book, error) {
	f.lastArg = id
	if id == 404 {
		return nil, &catalog.NotFoundError{Resource: "book", Identifier: "404", Criteria: "ID"}
	}
	return &catalog.Book{ID: id, Title: "Dune", Custom: map[string]string{}}, nil
}

func (f *fakeCatalog) Tags(context.Context) ([]catalog.Tag, error) {
	if err := f.fail("getting all tags"); err != nil {
		return nil, err
	}
	return []catalog.Tag{{ID: 1, Name: "Science Fiction"}}, nil
}

func (f *fakeCatalog) Stats(context.Context) (*catalog.LibraryStats, error) {
	return &catalog.LibraryStats{DBPath: "/library/metadata.db", Books: 1, Authors: 1}, nil
}

func (f *fakeCatalog) CountBooks(context.Context) (int64, error) {
	if f.dbErr != nil {
		return 0, f.dbErr
	}
	return 1, nil
}

func (f *fakeCatalog) Ping(context.Context) error { return nil }
