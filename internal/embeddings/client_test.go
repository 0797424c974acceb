package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService records embedding requests and answers with one vector per
// input, encoding the input's arrival order into the vector.
type fakeService struct {
	t        *testing.T
	requests [][]string
	status   int
}

func (f *fakeService) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(f.t, "/embeddings", r.URL.Path)
		require.Equal(f.t, http.MethodPost, r.Method)

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(f.t, req.Model)

		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}

		seen := 0
		for _, batch := range f.requests {
			seen += len(batch)
		}
		f.requests = append(f.requests, req.Input)

		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []datum `json:"data"`
		}{}
		for i := range req.Input {
			resp.Data = append(resp.Data, datum{
				Embedding: []float32{float32(seen + i)},
				Index:     i,
			})
		}
		require.NoError(f.t, json.NewEncoder(w).Encode(resp))
	}
}

func TestEmbedBatchesInputs(t *testing.T) {
	svc := &fakeService{t: t}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, BatchSize: 2}, nil)

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, vectors, 5)

	// 5 inputs with batch size 2 -> batches of 2, 2, 1.
	require.Len(t, svc.requests, 3)
	assert.Equal(t, []string{"a", "b"}, svc.requests[0])
	assert.Equal(t, []string{"c", "d"}, svc.requests[1])
	assert.Equal(t, []string{"e"}, svc.requests[2])

	// Vectors come back in input order across batches.
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i)}, v)
	}
}

func TestEmbedFiltersBlankTexts(t *testing.T) {
	svc := &fakeService{t: t}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)

	vectors, err := client.Embed(context.Background(), []string{"a", "", "   ", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Len(t, svc.requests, 1)
	assert.Equal(t, []string{"a", "b"}, svc.requests[0])
}

func TestEmbedAllBlankReturnsNothing(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://unused.invalid"}, nil)

	vectors, err := client.Embed(context.Background(), []string{"", "  \n"})
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedServiceErrorAbortsCall(t *testing.T) {
	svc := &fakeService{t: t, status: http.StatusBadGateway}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, BatchSize: 1}, nil)

	_, err := client.Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestEmbedSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1],"index":0}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "sk-test"}, nil)

	_, err := client.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestEmbedQuery(t *testing.T) {
	svc := &fakeService{t: t}
	server := httptest.NewServer(svc.handler())
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)

	vector, err := client.EmbedQuery(context.Background(), "find the parser")
	require.NoError(t, err)
	assert.Equal(t, []float32{0}, vector)
}
