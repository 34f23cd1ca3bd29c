package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hazyhaar/calibre-mcp/pkg/catalog"
	"github.com/hazyhaar/calibre-mcp/pkg/kit"
)

// Catalog is the read side the transports need. *catalog.Reader satisfies it.
type Catalog interface {
	SearchBooksByTitle(ctx context.Context, pattern string) ([]catalog.BookSummary, error)
	SearchAuthorsByName(ctx context.Context, pattern string) ([]catalog.Author, error)
	SearchBooksByTagPattern(ctx context.Context, pattern string) ([]catalog.BookSummary, error)
	BooksByAuthor(ctx context.Context, name string) ([]catalog.AuthorBook, error)
	BooksByAuthorID(ctx context.Context, id int64) ([]catalog.AuthorBook, error)
	BooksBySeries(ctx context.Context, name string) ([]catalog.SeriesBook, error)
	BooksByTag(ctx context.Context, name string) ([]catalog.BookSummary, error)
	Book(ctx context.Context, id int64) (*catalog.Book, error)
	Tags(ctx context.Context) ([]catalog.Tag, error)
	Stats(ctx context.Context) (*catalog.LibraryStats, error)
	CountBooks(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Tool names double as operation names in logs.
const (
	OpSearchBooksByTitle      = "search_books_by_title"
	OpSearchAuthorsByName     = "search_authors_by_name"
	OpGetBooksByAuthor        = "get_books_by_author"
	OpGetBooksByAuthorID      = "get_books_by_author_id"
	OpGetBooksBySeries        = "get_books_by_series"
	OpGetBooksByTag           = "get_books_by_tag"
	OpSearchBooksByTagPattern = "search_books_by_tag_pattern"
	OpGetBookDetails          = "get_book_details"
	OpGetLibraryStats         = "get_library_stats"
	OpGetAllTags              = "get_all_tags"
)

// Shared request types used by both HTTP and MCP transports.

type patternReq struct {
	Pattern string
}

type nameReq struct {
	Name string
}

type idReq struct {
	ID int64
}

// Endpoints holds one kit.Endpoint per catalog operation.
type Endpoints struct {
	SearchBooksByTitle      kit.Endpoint
	SearchAuthorsByName     kit.Endpoint
	GetBooksByAuthor        kit.Endpoint
	GetBooksByAuthorID      kit.Endpoint
	GetBooksBySeries        kit.Endpoint
	GetBooksByTag           kit.Endpoint
	SearchBooksByTagPattern kit.Endpoint
	GetBookDetails          kit.Endpoint
	GetLibraryStats         kit.Endpoint
	GetAllTags              kit.Endpoint
}

// IsClientError reports failures caused by the request rather than the server.
func IsClientError(err error) bool {
	return errors.Is(err, catalog.ErrValidation) || errors.Is(err, catalog.ErrNotFound)
}

// MakeEndpoints builds the endpoints backed by c, each wrapped with request id
// and logging middleware.
func MakeEndpoints(c Catalog, logger *slog.Logger) Endpoints {
	if logger == nil {
		logger = slog.Default()
	}
	wrap := func(op string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, op, IsClientError))(ep)
	}

	return Endpoints{
		SearchBooksByTitle: wrap(OpSearchBooksByTitle, kit.Typed(func(ctx context.Context, r *patternReq) ([]catalog.BookSummary, error) {
			return c.SearchBooksByTitle(ctx, r.Pattern)
		})),
		SearchAuthorsByName: wrap(OpSearchAuthorsByName, kit.Typed(func(ctx context.Context, r *patternReq) ([]catalog.Author, error) {
			return c.SearchAuthorsByName(ctx, r.Pattern)
		})),
		GetBooksByAuthor: wrap(OpGetBooksByAuthor, kit.Typed(func(ctx context.Context, r *nameReq) ([]catalog.AuthorBook, error) {
			return c.BooksByAuthor(ctx, r.Name)
		})),
		GetBooksByAuthorID: wrap(OpGetBooksByAuthorID, kit.Typed(func(ctx context.Context, r *idReq) ([]catalog.AuthorBook, error) {
			return c.BooksByAuthorID(ctx, r.ID)
		})),
		GetBooksBySeries: wrap(OpGetBooksBySeries, kit.Typed(func(ctx context.Context, r *nameReq) ([]catalog.SeriesBook, error) {
			return c.BooksBySeries(ctx, r.Name)
		})),
		GetBooksByTag: wrap(OpGetBooksByTag, kit.Typed(func(ctx context.Context, r *nameReq) ([]catalog.BookSummary, error) {
			return c.BooksByTag(ctx, r.Name)
		})),
		SearchBooksByTagPattern: wrap(OpSearchBooksByTagPattern, kit.Typed(func(ctx context.Context, r *patternReq) ([]catalog.BookSummary, error) {
			return c.SearchBooksByTagPattern(ctx, r.Pattern)
		})),
		GetBookDetails: wrap(OpGetBookDetails, kit.Typed(func(ctx context.Context, r *idReq) (*catalog.Book, error) {
			return c.Book(ctx, r.ID)
		})),
		GetLibraryStats: wrap(OpGetLibraryStats, func(ctx context.Context, _ any) (any, error) {
			return c.Stats(ctx)
		}),
		GetAllTags: wrap(OpGetAllTags, func(ctx context.Context, _ any) (any, error) {
			return c.Tags(ctx)
		}),
	}
}
