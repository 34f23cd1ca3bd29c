package catalog

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const calibreSchema = `
CREATE TABLE books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT 'Unknown',
	sort TEXT,
	timestamp TIMESTAMP,
	pubdate TIMESTAMP,
	series_index REAL NOT NULL DEFAULT 1.0,
	author_sort TEXT,
	path TEXT NOT NULL DEFAULT ''
);
CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT NOT NULL, sort TEXT, link TEXT NOT NULL DEFAULT '');
CREATE TABLE books_authors_link (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, author INTEGER NOT NULL);
CREATE TABLE series (id INTEGER PRIMARY KEY, name TEXT NOT NULL, sort TEXT);
CREATE TABLE books_series_link (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, series INTEGER NOT NULL);
CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE books_tags_link (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, tag INTEGER NOT NULL);
CREATE TABLE publishers (id INTEGER PRIMARY KEY, name TEXT NOT NULL, sort TEXT);
CREATE TABLE books_publishers_link (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, publisher INTEGER NOT NULL);
CREATE TABLE identifiers (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, type TEXT NOT NULL DEFAULT 'isbn', val TEXT NOT NULL);
CREATE TABLE languages (id INTEGER PRIMARY KEY, lang_code TEXT NOT NULL);
CREATE TABLE books_languages_link (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, lang_code INTEGER NOT NULL, item_order INTEGER NOT NULL DEFAULT 0);
CREATE TABLE comments (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, text TEXT NOT NULL);
`

const calibreData = `
INSERT INTO authors (id, name, sort) VALUES
	(1, 'J.K. Rowling', 'Rowling, J.K.'),
	(2, 'Isaac Asimov', 'Asimov, Isaac'),
	(3, 'Gabriel García Márquez', 'García Márquez, Gabriel'),
	(4, 'Gabriel Garcia Marquez', 'Garcia Marquez, Gabriel'),
	(5, 'Françoise Sagan', 'Sagan, Françoise');

INSERT INTO books (id, title, sort, pubdate, series_index, path) VALUES
	(1, 'Harry Potter and the Philosopher''s Stone', 'Harry Potter and the Philosopher''s Stone', '1997-06-26 00:00:00+00:00', 1.0, 'J.K. Rowling/Harry Potter (1)'),
	(2, 'harry potter et la chambre des secrets', 'harry potter et la chambre des secrets', '1998-07-02 00:00:00+00:00', 2.0, 'J.K. Rowling/harry potter (2)'),
	(3, 'Hárry Pötter Companion', 'Hárry Pötter Companion', '2001-01-01 00:00:00+00:00', 1.0, 'J.K. Rowling/Harry Potter Companion (3)'),
	(4, 'Foundation', 'Foundation', '1951-06-01 00:00:00+00:00', 1.0, 'Isaac Asimov/Foundation (4)'),
	(5, 'Foundation and Empire', 'Foundation and Empire', '1952-06-01 00:00:00+00:00', 2.0, 'Isaac Asimov/Foundation and Empire (5)'),
	(6, 'Second Foundation', 'Second Foundation', '1953-06-01 00:00:00+00:00', 3.0, 'Isaac Asimov/Second Foundation (6)'),
	(7, 'Cien años de soledad', 'Cien años de soledad', '1967-05-30 00:00:00+00:00', 1.0, 'Gabriel Garcia Marquez/Cien anos de soledad (7)'),
	(8, 'El amor en los tiempos del cólera', 'amor en los tiempos del cólera, El', '1985-09-05 00:00:00+00:00', 1.0, 'Gabriel Garcia Marquez/El amor (8)'),
	(9, 'Bonjour tristesse', 'Bonjour tristesse', '1954-03-15 00:00:00+00:00', 1.0, 'Francoise Sagan/Bonjour tristesse (9)');

INSERT INTO books_authors_link (id, book, author) VALUES
	(1, 1, 1), (2, 2, 1), (3, 3, 1), (4, 3, 2),
	(5, 4, 2), (6, 5, 2), (7, 6, 2),
	(8, 7, 3), (9, 8, 4), (10, 9, 5);

INSERT INTO series (id, name, sort) VALUES (1, 'Foundation', 'Foundation'), (2, 'Harry Potter', 'Harry Potter');
INSERT INTO books_series_link (id, book, series) VALUES (1, 6, 1), (2, 4, 1), (3, 5, 1), (4, 1, 2), (5, 2, 2);

INSERT INTO tags (id, name) VALUES (1, 'Fantasy'), (2, 'Science Fiction'), (3, 'Littérature française'), (4, 'Novela');
INSERT INTO books_tags_link (id, book, tag) VALUES
	(1, 1, 1), (2, 2, 1), (3, 3, 1),
	(4, 4, 2), (5, 5, 2), (6, 6, 2),
	(7, 9, 3), (8, 7, 4), (9, 8, 4);

INSERT INTO publishers (id, name, sort) VALUES (1, 'Bloomsbury', 'Bloomsbury'), (2, 'Gnome Press', 'Gnome Press');
INSERT INTO books_publishers_link (id, book, publisher) VALUES (1, 1, 1), (2, 4, 2);

INSERT INTO identifiers (id, book, type, val) VALUES (1, 1, 'isbn', '123'), (2, 1, 'doi', '456');

INSERT INTO languages (id, lang_code) VALUES (1, 'eng'), (2, 'spa');
INSERT INTO books_languages_link (id, book, lang_code) VALUES (1, 1, 1), (2, 7, 2);

INSERT INTO comments (id, book, text) VALUES (1, 1, 'A boy discovers he is a wizard.');
`

// customColumnsData defines four custom columns covering every storage layout:
// a normalized column, an inline one, a link pointing to a missing value and a
// link holding a non numeric value.
const customColumnsData = `
CREATE TABLE custom_columns (
	id INTEGER PRIMARY KEY, label TEXT NOT NULL, name TEXT NOT NULL,
	datatype TEXT NOT NULL, is_multiple BOOL DEFAULT 0, normalized BOOL NOT NULL
);
INSERT INTO custom_columns (id, label, name, datatype, is_multiple, normalized) VALUES
	(1, 'genre', 'Genre', 'text', 1, 1),
	(2, 'read', 'Read', 'bool', 0, 0),
	(3, 'shelf', 'Shelf', 'text', 0, 1),
	(4, 'note', 'Note', 'text', 0, 1);

CREATE TABLE custom_column_1 (id INTEGER PRIMARY KEY, value TEXT NOT NULL);
CREATE TABLE books_custom_column_1_link (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, value INTEGER NOT NULL);
INSERT INTO custom_column_1 (id, value) VALUES (1, 'Young adult'), (2, 'Boarding school');
INSERT INTO books_custom_column_1_link (id, book, value) VALUES (1, 1, 2), (2, 1, 1);

CREATE TABLE custom_column_2 (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, value INTEGER NOT NULL);
INSERT INTO custom_column_2 (id, book, value) VALUES (1, 1, 1);

CREATE TABLE custom_column_3 (id INTEGER PRIMARY KEY, value TEXT NOT NULL);
CREATE TABLE books_custom_column_3_link (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, value INTEGER NOT NULL);
INSERT INTO books_custom_column_3_link (id, book, value) VALUES (1, 1, 99);

CREATE TABLE books_custom_column_4_link (id INTEGER PRIMARY KEY, book INTEGER NOT NULL, value TEXT NOT NULL);
INSERT INTO books_custom_column_4_link (id, book, value) VALUES (1, 1, 'signed copy');
`

// newTestLibrary writes a small Calibre library under t.TempDir and opens it
// read-only. extra SQL runs after the base data.
func newTestLibrary(t *testing.T, extra ...string) *Reader {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, DefaultDBFilename)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range append([]string{calibreSchema, calibreData}, extra...) {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	r, err := Open(root, "")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}
