package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hazyhaar/calibre-mcp/pkg/catalog"
	"github.com/hazyhaar/calibre-mcp/pkg/kit"
)

// NewRouter returns an http.Handler with the REST mirror of the MCP tools.
// When mcpHandler is not nil it is mounted at /mcp.
func NewRouter(eps Endpoints, c Catalog, mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	h := &handler{cat: c}

	mux.HandleFunc("GET /v1/books/search", h.query(eps.SearchBooksByTitle, "title", patternFrom))
	mux.HandleFunc("GET /v1/authors/search", h.query(eps.SearchAuthorsByName, "name", patternFrom))
	mux.HandleFunc("GET /v1/tags/search", h.query(eps.SearchBooksByTagPattern, "pattern", patternFrom))
	mux.HandleFunc("GET /v1/books", h.query(eps.GetBooksByAuthor, "author", nameFrom))
	mux.HandleFunc("GET /v1/authors/{id}/books", h.byID(eps.GetBooksByAuthorID))
	mux.HandleFunc("GET /v1/series/{name}/books", h.byName(eps.GetBooksBySeries))
	mux.HandleFunc("GET /v1/tags/{name}/books", h.byName(eps.GetBooksByTag))
	mux.HandleFunc("GET /v1/tags", h.noArgs(eps.GetAllTags))
	mux.HandleFunc("GET /v1/books/{id}", h.byID(eps.GetBookDetails))
	mux.HandleFunc("GET /v1/stats", h.noArgs(eps.GetLibraryStats))
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	if mcpHandler != nil {
		mux.Handle("/mcp", mcpHandler)
	}
	return cors(mux)
}

type handler struct {
	cat Catalog
}

func patternFrom(v string) any { return &patternReq{Pattern: v} }
func nameFrom(v string) any    { return &nameReq{Name: v} }

// --- dispatch ---

func (h *handler) query(ep kit.Endpoint, param string, build func(string) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, ep, build(r.URL.Query().Get(param)))
	}
}

func (h *handler) byName(ep kit.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, ep, &nameReq{Name: r.PathValue("name")})
	}
}

func (h *handler) byID(ep kit.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id must be an integer")
			return
		}
		h.serve(w, r, ep, &idReq{ID: id})
	}
}

func (h *handler) noArgs(ep kit.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, ep, nil)
	}
}

func (h *handler) serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	ctx := kit.WithTransport(r.Context(), "http")
	if id := r.Header.Get("X-Request-Id"); id != "" {
		ctx = kit.WithRequestID(ctx, id)
	}
	resp, err := ep(ctx, req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// --- health ---

type healthResponse struct {
	Status string `json:"status"`
	Books  int64  `json:"books"`
	Error  string `json:"error,omitempty"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.cat.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	n, err := h.cat.CountBooks(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Books: n})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id, X-Request-Id")
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
