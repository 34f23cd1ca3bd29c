package api

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hazyhaar/calibre-mcp/pkg/catalog"
	"github.com/hazyhaar/calibre-mcp/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers the ten catalog tools on the server.
func RegisterMCPTools(srv *server.MCPServer, eps Endpoints) {
	readOnly := func(title string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithTitleAnnotation(title),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithOpenWorldHintAnnotation(false),
		}
	}
	tool := func(name, title, desc string, opts ...mcp.ToolOption) mcp.Tool {
		all := append([]mcp.ToolOption{mcp.WithDescription(desc)}, readOnly(title)...)
		return mcp.NewTool(name, append(all, opts...)...)
	}
	patternArg := func(name, desc string, maxLen int) mcp.ToolOption {
		return mcp.WithString(name, mcp.Required(), mcp.Description(desc),
			mcp.MinLength(1), mcp.MaxLength(maxLen))
	}
	idArg := func(name, desc string) mcp.ToolOption {
		return mcp.WithNumber(name, mcp.Required(), mcp.Description(desc), mcp.Min(1))
	}

	kit.RegisterMCPTool(srv, tool(OpSearchBooksByTitle, "Search Books by Title",
		"Search for books in the Calibre library by title pattern (supports wildcards like %). Matching ignores case and accents.",
		patternArg("title_pattern", "Title pattern to search for (use % for wildcards, e.g. 'Python%' or '%Django%')", catalog.MaxPatternLen),
	), eps.SearchBooksByTitle, decodePattern("title_pattern"))

	kit.RegisterMCPTool(srv, tool(OpSearchAuthorsByName, "Search Authors by Name",
		"Search for authors in the Calibre library by name pattern (supports wildcards like %).",
		patternArg("name_pattern", "Author name pattern (use % for wildcards, e.g. 'Tolkien%' or '%Martin%')", catalog.MaxPatternLen),
	), eps.SearchAuthorsByName, decodePattern("name_pattern"))

	kit.RegisterMCPTool(srv, tool(OpGetBooksByAuthor, "Get Books by Author",
		"Get all books by an author, matched on the full name ignoring case and accents. Newest first.",
		patternArg("author_name", "Exact author name", catalog.MaxPatternLen),
	), eps.GetBooksByAuthor, decodeName("author_name"))

	kit.RegisterMCPTool(srv, tool(OpGetBooksByAuthorID, "Get Books by Author ID",
		"Get all books by an author identified by their catalog ID. Newest first.",
		idArg("author_id", "Author ID (positive integer)"),
	), eps.GetBooksByAuthorID, decodeID("author_id"))

	kit.RegisterMCPTool(srv, tool(OpGetBooksBySeries, "Get Books by Series",
		"Get the books of a series in reading order.",
		patternArg("series_name", "Exact series name", catalog.MaxPatternLen),
	), eps.GetBooksBySeries, decodeName("series_name"))

	kit.RegisterMCPTool(srv, tool(OpGetBooksByTag, "Get Books by Tag",
		"Get all books carrying a tag, matched on the full tag name.",
		patternArg("tag_name", "Exact tag name", catalog.MaxTagLen),
	), eps.GetBooksByTag, decodeName("tag_name"))

	kit.RegisterMCPTool(srv, tool(OpSearchBooksByTagPattern, "Search Books by Tag Pattern",
		"Search for books whose tags match a pattern (supports wildcards like %).",
		patternArg("tag_pattern", "Tag pattern (use % for wildcards, e.g. '%fiction%')", catalog.MaxTagLen),
	), eps.SearchBooksByTagPattern, decodePattern("tag_pattern"))

	kit.RegisterMCPTool(srv, tool(OpGetBookDetails, "Get Book Details",
		"Get the full metadata of one book: authors, series, publisher, identifiers, language, tags, synopsis, cover path and custom columns.",
		idArg("book_id", "Book ID (positive integer)"),
	), eps.GetBookDetails, decodeID("book_id"))

	kit.RegisterMCPTool(srv, tool(OpGetLibraryStats, "Get Library Statistics",
		"Get counts of books, authors, series, publishers, tags and languages in the Calibre library.",
	), eps.GetLibraryStats, decodeNone)

	kit.RegisterMCPTool(srv, tool(OpGetAllTags, "Get All Tags",
		"Get all available tags in the Calibre library, alphabetically.",
	), eps.GetAllTags, decodeNone)
}

// Missing string arguments decode to "" and are rejected by catalog validation,
// which produces the more precise message.

func decodePattern(arg string) func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		v, err := stringArg(req.GetArguments(), arg)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &patternReq{Pattern: v}}, nil
	}
}

func decodeName(arg string) func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		v, err := stringArg(req.GetArguments(), arg)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &nameReq{Name: v}}, nil
	}
}

func decodeID(arg string) func(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		id, err := intArg(req.GetArguments(), arg)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &idReq{ID: id}}, nil
	}
}

func decodeNone(mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{}, nil
}

func stringArg(args map[string]any, name string) (string, error) {
	switch v := args[name].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s must be a string", name)
	}
}

// intArg accepts JSON numbers with no fractional part and decimal strings.
func intArg(args map[string]any, name string) (int64, error) {
	bad := fmt.Errorf("%s must be an integer", name)
	switch v := args[name].(type) {
	case nil:
		return 0, fmt.Errorf("%s is required", name)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.Abs(v) > 1<<53 {
			return 0, bad
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, bad
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, bad
		}
		return n, nil
	default:
		return 0, bad
	}
}
