package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"docqa/internal/domain"
)

// RAG is the part of the service exposed as MCP tools.
type RAG interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
	Answer(ctx context.Context, question string, topK int) (string, []domain.SearchResult, error)
}

// Version is reported to MCP clients.
const Version = "0.1.0"

type hit struct {
	Score   float64 `json:"score"`
	DocID   string  `json:"doc_id"`
	Ordinal int     `json:"ordinal"`
	Text    string  `json:"text"`
}

type handlers struct {
	rag  RAG
	topK int
	log  *slog.Logger
}

// NewServer registers the retrieve and answer tools. Requests without
// top_k use defaultTopK.
func NewServer(rag RAG, defaultTopK int, log *slog.Logger) *server.MCPServer {
	h := &handlers{rag: rag, topK: defaultTopK, log: log}

	retrieve := mcp.NewTool("retrieve",
		mcp.WithDescription("Search the ingested documents and return the most similar chunks as JSON lines"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of chunks to return"),
		))
	answer := mcp.NewTool("answer",
		mcp.WithDescription("Answer a question using the ingested documents as context"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to answer"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of chunks used as context"),
		))

	srv := server.NewMCPServer("docqa", Version, server.WithToolCapabilities(false))
	srv.AddTool(retrieve, h.retrieve)
	srv.AddTool(answer, h.answer)
	return srv
}

func (h *handlers) retrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK, err := h.topKArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := h.rag.Retrieve(ctx, q, topK)
	if err != nil {
		h.log.Error("retrieve tool failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines, err := jsonLines(res)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.log.Info("retrieve tool", "results", len(res))
	return mcp.NewToolResultText(lines), nil
}

func (h *handlers) answer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK, err := h.topKArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, sources, err := h.rag.Answer(ctx, q, topK)
	if err != nil {
		h.log.Error("answer tool failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines, err := jsonLines(sources)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	h.log.Info("answer tool", "sources", len(sources))
	if lines == "" {
		return mcp.NewToolResultText(answer), nil
	}
	return mcp.NewToolResultText(answer + "\n\nSources:\n" + lines), nil
}

func (h *handlers) topKArg(request mcp.CallToolRequest) (int, error) {
	if _, ok := request.GetArguments()["top_k"]; !ok {
		return h.topK, nil
	}
	return request.RequireInt("top_k")
}

func jsonLines(results []domain.SearchResult) (string, error) {
	var b strings.Builder
	for _, r := range results {
		raw, err := json.Marshal(hit{
			Score:   r.Score,
			DocID:   r.Chunk.DocumentID,
			Ordinal: r.Chunk.Ordinal,
			Text:    r.Chunk.Text,
		})
		if err != nil {
			return "", err
		}
		b.Write(raw)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Serve runs srv over SSE on addr until ctx is canceled.
func Serve(ctx context.Context, srv *server.MCPServer, addr, baseURL string, log *slog.Logger) error {
	if baseURL == "" {
		host := addr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		baseURL = "http://" + host
	}
	sse := server.NewSSEServer(srv, server.WithBaseURL(baseURL))

	errCh := make(chan error, 1)
	go func() {
		log.Info("mcp server listening", "addr", addr, "base_url", baseURL)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return sse.Shutdown(shutdownCtx)
	}
}
