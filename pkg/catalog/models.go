package catalog

// Author is one row of the authors table.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Sort string `json:"sort"`
}

// Tag is one row of the tags table.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// BookSummary is a search hit with its authors joined by " & ".
type BookSummary struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	PublicationDate string `json:"publication_date"`
}

// AuthorBook is a book listed under an author, with "Series #index" when it belongs
// to one.
type AuthorBook struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	PublicationDate string `json:"publication_date"`
	SeriesInfo      string `json:"series_info"`
}

// SeriesBook is a member of a series.
type SeriesBook struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	SeriesName  string  `json:"series_name"`
	SeriesIndex float64 `json:"series_index"`
}

// LibraryStats holds the row counts of the main catalog tables.
type LibraryStats struct {
	DBPath     string `json:"db_path"`
	Books      int64  `json:"books_count"`
	Authors    int64  `json:"authors_count"`
	Series     int64  `json:"series_count"`
	Publishers int64  `json:"publishers_count"`
	Tags       int64  `json:"tags_count"`
	Languages  int64  `json:"languages_count"`
}

// Book is the full denormalized record of one catalog entry. Multi-valued fields are
// already joined; missing values are empty strings, never absent.
type Book struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	TitleSort   string            `json:"title_sort"`
	Date        string            `json:"date"`
	Author      string            `json:"author"`
	AuthorSort  string            `json:"author_sort"`
	Series      string            `json:"series"`
	SeriesSort  string            `json:"series_sort"`
	SeriesIndex float64           `json:"series_idx"`
	Publisher   string            `json:"publisher"`
	Identifiers string            `json:"identifiers"`
	Language    string            `json:"language"`
	Tags        string            `json:"tags"`
	Synopsis    string            `json:"synopsis"`
	CoverPath   string            `json:"cover_path"`
	Custom      map[string]string `json:"custom_columns"`
}
