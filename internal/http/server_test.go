package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rationalhq/ragd/internal/indexer"
	"github.com/rationalhq/ragd/internal/search"
)

// fakeIndexer scripts lifecycle outcomes per repository name.
type fakeIndexer struct {
	addErr     error
	removeErr  error
	reindexErr error
	repos      []string

	lastAdd RepositoryRequest
}

func (f *fakeIndexer) Add(ctx context.Context, name, path, language string) error {
	f.lastAdd = RepositoryRequest{RepoName: name, RepoPath: path, Language: language}
	return f.addErr
}

func (f *fakeIndexer) Reindex(ctx context.Context, name string) error { return f.reindexErr }
func (f *fakeIndexer) Remove(ctx context.Context, name string) error  { return f.removeErr }
func (f *fakeIndexer) List() []string                                 { return f.repos }

type fakeSearcher struct {
	results []search.Result
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, text, repoName string) ([]search.Result, error) {
	return f.results, f.err
}

func newTestServer(t *testing.T, idx *fakeIndexer, s *fakeSearcher) *Server {
	t.Helper()
	srv, err := NewServer(idx, s, zap.NewNop(), nil)
	require.NoError(t, err)
	return srv
}

func doJSON(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeIndexer{}, &fakeSearcher{})

	rec := doJSON(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAddRepository(t *testing.T) {
	idx := &fakeIndexer{}
	srv := newTestServer(t, idx, &fakeSearcher{})

	rec := doJSON(srv, http.MethodPost, "/repositories",
		`{"action":"add","repo_name":"backend","repo_path":"/srv/backend","language":"python"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "backend", idx.lastAdd.RepoName)
	assert.Equal(t, "/srv/backend", idx.lastAdd.RepoPath)
	assert.Equal(t, "python", idx.lastAdd.Language)
}

func TestRepositoryErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"already exists", fmt.Errorf("%w: backend", indexer.ErrAlreadyExists), http.StatusConflict},
		{"invalid path", fmt.Errorf("%w: /nope", indexer.ErrInvalidPath), http.StatusBadRequest},
		{"storage failure", fmt.Errorf("%w: create", indexer.ErrStorage), http.StatusBadGateway},
		{"indexing failure", fmt.Errorf("%w: walk", indexer.ErrIndexing), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeIndexer{addErr: tt.err}, &fakeSearcher{})
			rec := doJSON(srv, http.MethodPost, "/repositories",
				`{"action":"add","repo_name":"backend","repo_path":"/srv/backend","language":"python"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRepositoryActionValidation(t *testing.T) {
	srv := newTestServer(t, &fakeIndexer{}, &fakeSearcher{})

	rec := doJSON(srv, http.MethodPost, "/repositories", `{"action":"rename","repo_name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/repositories", `{"action":"add"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/repositories", `{"action":"add","repo_name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveRepository(t *testing.T) {
	srv := newTestServer(t, &fakeIndexer{}, &fakeSearcher{})

	rec := doJSON(srv, http.MethodPost, "/repositories", `{"action":"remove","repo_name":"backend"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"removed"}`, rec.Body.String())
}

func TestRemoveUnknownRepository(t *testing.T) {
	idx := &fakeIndexer{removeErr: fmt.Errorf("%w: ghost", indexer.ErrNotFound)}
	srv := newTestServer(t, idx, &fakeSearcher{})

	rec := doJSON(srv, http.MethodPost, "/repositories", `{"action":"remove","repo_name":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReindex(t *testing.T) {
	srv := newTestServer(t, &fakeIndexer{}, &fakeSearcher{})

	rec := doJSON(srv, http.MethodPost, "/reindex", `{"repo_name":"backend"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(srv, http.MethodPost, "/reindex", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReindexUnknownRepository(t *testing.T) {
	idx := &fakeIndexer{reindexErr: fmt.Errorf("%w: ghost", indexer.ErrNotFound)}
	srv := newTestServer(t, idx, &fakeSearcher{})

	rec := doJSON(srv, http.MethodPost, "/reindex", `{"repo_name":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	searcher := &fakeSearcher{results: []search.Result{
		{FilePath: "/srv/backend/a.py", Code: "def f(): pass", ChunkType: "function", Similarity: 0.9},
	}}
	srv := newTestServer(t, &fakeIndexer{}, searcher)

	rec := doJSON(srv, http.MethodPost, "/search", `{"text":"f","collection_name":"backend"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var results []search.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "function", results[0].ChunkType)
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown collection", fmt.Errorf("%w: ghost", search.ErrInvalidCollection), http.StatusBadRequest},
		{"empty query", search.ErrEmptyQuery, http.StatusUnprocessableEntity},
		{"backend failure", fmt.Errorf("qdrant timeout"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeIndexer{}, &fakeSearcher{err: tt.err})
			rec := doJSON(srv, http.MethodPost, "/search", `{"text":"q","collection_name":"x"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCollections(t *testing.T) {
	idx := &fakeIndexer{repos: []string{"alpha", "beta"}}
	srv := newTestServer(t, idx, &fakeSearcher{})

	rec := doJSON(srv, http.MethodGet, "/collections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"collections":["alpha","beta"]}`, rec.Body.String())
}
