package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/logging"
)

type fakeRAG struct {
	topK int
	err  error
}

func (f *fakeRAG) Retrieve(_ context.Context, q string, topK int) ([]domain.SearchResult, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SearchResult{
		{Chunk: domain.Chunk{DocumentID: "france", Ordinal: 0, Text: "The capital of France is Paris."}, Score: 0.75},
		{Chunk: domain.Chunk{DocumentID: "france", Ordinal: 1, Text: "Paris is known for the Eiffel Tower."}, Score: 0.5},
	}, nil
}

func (f *fakeRAG) Answer(ctx context.Context, q string, topK int) (string, []domain.SearchResult, error) {
	res, err := f.Retrieve(ctx, q, topK)
	if err != nil {
		return "", nil, err
	}
	return "Paris.", res[:1], nil
}

func newHandlers(rag RAG) *handlers {
	return &handlers{rag: rag, topK: 3, log: logging.Discard()}
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestRetrieveTool(t *testing.T) {
	rag := &fakeRAG{}
	res, err := newHandlers(rag).retrieve(context.Background(), call(map[string]any{"query": "capital"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, 3, rag.topK)

	lines := strings.Split(strings.TrimSpace(text(t, res)), "\n")
	require.Len(t, lines, 2)
	var first hit
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, hit{Score: 0.75, DocID: "france", Ordinal: 0, Text: "The capital of France is Paris."}, first)
}

func TestRetrieveToolTopK(t *testing.T) {
	rag := &fakeRAG{}
	h := newHandlers(rag)

	_, err := h.retrieve(context.Background(), call(map[string]any{"query": "q", "top_k": float64(7)}))
	require.NoError(t, err)
	assert.Equal(t, 7, rag.topK)

	_, err = h.retrieve(context.Background(), call(map[string]any{"query": "q", "top_k": "4"}))
	require.NoError(t, err)
	assert.Equal(t, 4, rag.topK)

	res, err := h.retrieve(context.Background(), call(map[string]any{"query": "q", "top_k": "many"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestToolErrors(t *testing.T) {
	h := newHandlers(&fakeRAG{err: &domain.EmbeddingServiceError{Provider: "stub", Err: errors.New("down")}})

	res, err := h.retrieve(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.answer(context.Background(), call(map[string]any{"question": "q"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "down")
}

func TestAnswerTool(t *testing.T) {
	res, err := newHandlers(&fakeRAG{}).answer(context.Background(), call(map[string]any{"question": "What is the capital of France?"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	out := text(t, res)
	assert.True(t, strings.HasPrefix(out, "Paris.\n\nSources:\n"))
	assert.Contains(t, out, `"doc_id":"france"`)
}

func TestNewServerBuilds(t *testing.T) {
	assert.NotNil(t, NewServer(&fakeRAG{}, 3, logging.Discard()))
}
