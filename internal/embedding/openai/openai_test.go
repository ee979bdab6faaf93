package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", Model: "test-embed"})
	require.NoError(t, err)
	return c
}

func TestEmbedOrdersByIndex(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"test-embed","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0.5]}
		]}`))
	})

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0.5}, {0, 1}}, vecs)
}

func TestEmbedProviderError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
	})

	_, err := c.Embed(context.Background(), []string{"a"})
	var svcErr *domain.EmbeddingServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Contains(t, svcErr.Provider, "test-embed")
}

func TestEmbedCountMismatch(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1]}]}`))
	})

	_, err := c.Embed(context.Background(), []string{"a", "b"})
	var svcErr *domain.EmbeddingServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestEmbedEmptyInput(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	vecs, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestNewClientRequiresKeyForHostedAPI(t *testing.T) {
	t.Setenv("DOCQA_TEST_OPENAI_KEY", "")
	_, err := NewClient(Config{BaseURL: OpenAIBaseURL, APIKeyEnv: "DOCQA_TEST_OPENAI_KEY"})
	assert.Error(t, err)

	t.Setenv("DOCQA_TEST_OPENAI_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: OpenAIBaseURL, APIKeyEnv: "DOCQA_TEST_OPENAI_KEY"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.model)
}
