package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_Aggregates(t *testing.T) {
	r := newTestLibrary(t)
	b, err := r.Book(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), b.ID)
	assert.Equal(t, "Harry Potter and the Philosopher's Stone", b.Title)
	assert.Equal(t, "1997-06-26 00:00:00+00:00", b.Date)
	assert.Equal(t, "J.K. Rowling", b.Author)
	assert.Equal(t, "Rowling, J.K.", b.AuthorSort)
	assert.Equal(t, "Harry Potter", b.Series)
	assert.Equal(t, 1.0, b.SeriesIndex)
	assert.Equal(t, "Bloomsbury", b.Publisher)
	assert.Equal(t, "doi:456, isbn:123", b.Identifiers)
	assert.Equal(t, "eng", b.Language)
	assert.Equal(t, "Fantasy", b.Tags)
	assert.Equal(t, "A boy discovers he is a wizard.", b.Synopsis)
	assert.Equal(t,
		filepath.Join(r.LibraryRoot(), "J.K. Rowling/Harry Potter (1)", CoverFilename),
		b.CoverPath)
	assert.NotNil(t, b.Custom)
	assert.Empty(t, b.Custom)
}

func TestBook_MultipleAuthorsSorted(t *testing.T) {
	r := newTestLibrary(t)
	b, err := r.Book(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "Isaac Asimov & J.K. Rowling", b.Author)
	assert.Equal(t, "Asimov, Isaac & Rowling, J.K.", b.AuthorSort)
	assert.Equal(t, "", b.Series)
	assert.Equal(t, "", b.Publisher)
	assert.Equal(t, "", b.Identifiers)
	assert.Equal(t, "", b.Language)
	assert.Equal(t, "", b.Synopsis)
}

func TestBook_NotFound(t *testing.T) {
	r := newTestLibrary(t)
	b, err := r.Book(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, b)
	assert.EqualError(t, err, "No book found with ID: '999'")
}

func TestBook_CustomColumns(t *testing.T) {
	r := newTestLibrary(t, customColumnsData)
	ctx := context.Background()

	b, err := r.Book(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"genre": "Boarding school & Young adult",
		"read":  "1",
		"shelf": "99",
		"note":  "signed copy",
	}, b.Custom)

	// Columns with no value for this book are left out.
	b, err = r.Book(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, b.Custom)
}

type prefixLayout struct{ prefix string }

func (l prefixLayout) Tables(id int64) (string, string) {
	link, direct := CalibreLayout{}.Tables(id)
	return l.prefix + link, l.prefix + direct
}

func TestBook_ColumnLayoutIsPluggable(t *testing.T) {
	r := newTestLibrary(t, customColumnsData)
	r.layout = prefixLayout{prefix: "missing_"}

	b, err := r.Book(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, b.Custom)
}

func TestBook_CustomColumnErrorStage(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	r := NewReader(db, "/library", "/library/metadata.db")

	cols := []string{
		"title", "sort", "pubdate", "series_index", "path", "authors", "author_sorts",
		"series", "series_sort", "publishers", "identifiers", "lang", "synopsis", "tags",
	}
	mock.ExpectQuery(`FROM books b`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"Dune", "Dune", "", 0.0, "Frank Herbert/Dune (5)", "Frank Herbert\x1f", "Herbert, Frank\x1f",
			"", "", nil, nil, "", "", nil))
	mock.ExpectQuery(`FROM sqlite_master`).WithArgs("custom_columns").
		WillReturnError(sql.ErrConnDone)

	_, err = r.Book(context.Background(), 5)
	var dbe *DatabaseError
	require.ErrorAs(t, err, &dbe)
	assert.Equal(t, "custom columns loading", dbe.Operation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanAggregate(t *testing.T) {
	tests := []struct {
		raw  sql.NullString
		sep  string
		want string
	}{
		{sql.NullString{}, " & ", ""},
		{sql.NullString{String: "", Valid: true}, " & ", ""},
		{sql.NullString{String: "isbn:123,doi:456", Valid: true}, ", ", "isbn:123, doi:456"},
		{sql.NullString{String: "isbn:123\x1f,doi:456\x1f", Valid: true}, ", ", "isbn:123, doi:456"},
		{sql.NullString{String: "Rowling, J.K.\x1f,Asimov, Isaac\x1f", Valid: true}, " & ", "Rowling, J.K. & Asimov, Isaac"},
		{sql.NullString{String: "Solo\x1f", Valid: true}, " & ", "Solo"},
	}
	for _, tt := range tests {
		if got := cleanAggregate(tt.raw, tt.sep); got != tt.want {
			t.Errorf("cleanAggregate(%q, %q) = %q, want %q", tt.raw.String, tt.sep, got, tt.want)
		}
	}
}

func TestOpen_MissingDatabase(t *testing.T) {
	_, err := Open(t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database file not found")

	_, err = Open("", "")
	require.Error(t, err)
}

func TestOpen_ReadOnly(t *testing.T) {
	r := newTestLibrary(t)
	_, err := r.db.Exec(`DELETE FROM books`)
	require.Error(t, err)

	n, err := r.CountBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
}
