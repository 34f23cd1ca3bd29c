package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, fc *fakeCatalog) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(MakeEndpoints(fc, quietLogger()), fc, nil))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRoutesDispatch(t *testing.T) {
	fc := &fakeCatalog{}
	srv := newTestServer(t, fc)

	tests := []struct {
		path    string
		wantArg any
	}{
		{"/v1/books/search?title=%25dune%25", "%dune%"},
		{"/v1/authors/search?name=Herb%25", "Herb%"},
		{"/v1/tags/search?pattern=%25fiction", "%fiction"},
		{"/v1/books?author=Frank+Herbert", "Frank Herbert"},
		{"/v1/authors/7/books", int64(7)},
		{"/v1/series/Dune/books", "Dune"},
		{"/v1/tags/Science%20Fiction/books", "Science Fiction"},
		{"/v1/books/42", int64(42)},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var body any
			code := get(t, srv.URL+tt.path, &body)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.wantArg, fc.lastArg)
		})
	}
}

func TestStatsAndTags(t *testing.T) {
	srv := newTestServer(t, &fakeCatalog{})

	var stats map[string]any
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/stats", &stats))
	assert.Equal(t, "/library/metadata.db", stats["db_path"])
	assert.Equal(t, float64(1), stats["books_count"])

	var tags []map[string]any
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/tags", &tags))
	require.Len(t, tags, 1)
	assert.Equal(t, "Science Fiction", tags[0]["name"])
}

func TestErrorStatus(t *testing.T) {
	srv := newTestServer(t, &fakeCatalog{})

	tests := []struct {
		path string
		code int
	}{
		{"/v1/books/search?title=", http.StatusBadRequest},
		{"/v1/books/search?title=%25nothing%25", http.StatusNotFound},
		{"/v1/books/404", http.StatusNotFound},
		{"/v1/books/abc", http.StatusBadRequest},
		{"/v1/authors/0/books", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			var body map[string]string
			assert.Equal(t, tt.code, get(t, srv.URL+tt.path, &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDatabaseErrorIs500(t *testing.T) {
	srv := newTestServer(t, &fakeCatalog{dbErr: errors.New("disk I/O error")})

	var body map[string]string
	assert.Equal(t, http.StatusInternalServerError, get(t, srv.URL+"/v1/tags", &body))
	assert.Equal(t, "Database error during getting all tags: disk I/O error", body["error"])
}

func TestHealth(t *testing.T) {
	var body healthResponse
	srv := newTestServer(t, &fakeCatalog{})
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/health", &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(1), body.Books)

	srv = newTestServer(t, &fakeCatalog{dbErr: errors.New("gone")})
	require.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/v1/health", &body))
	assert.Equal(t, "unavailable", body.Status)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeCatalog{})
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/v1/stats", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
