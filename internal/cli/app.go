package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	embopenai "docqa/internal/embedding/openai"
	genopenai "docqa/internal/generator/openai"
	"docqa/internal/logging"
	"docqa/internal/service"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

type app struct {
	cfg     *config.AppConfig
	log     *slog.Logger
	svc     *service.RAGService
	summary string
	closer  io.Closer
}

func (a *app) Close() error { return a.closer.Close() }

// newApp assembles the service from the config. When ingest is set the
// sample corpus and the --docs files are loaded before returning.
func newApp(ctx context.Context, s *settings, ingest bool) (*app, error) {
	cfg, _, err := s.load()
	if err != nil {
		return nil, err
	}
	log, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	svc, err := buildService(cfg, log)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	a := &app{cfg: cfg, log: log, svc: svc, closer: closer}
	if !ingest {
		return a, nil
	}

	if cfg.Ingest.SeedSamples {
		n, err := svc.SeedSamples(ctx)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to seed samples: %w", err)
		}
		log.Info("sample documents ingested", "chunks", n)
	}
	if docs := s.docs(); len(docs) > 0 {
		report, err := svc.IngestFiles(ctx, docs)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("ingest failed: %w", err)
		}
		a.summary = report.Summary
		log.Info("documents ingested", "files", len(report.Files), "stored", report.Stored(), "failed", report.Failed())
	}
	return a, nil
}

func buildService(cfg *config.AppConfig, log *slog.Logger) (*service.RAGService, error) {
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	gen, err := buildGenerator(cfg)
	if err != nil {
		return nil, err
	}
	st, err := buildStore(cfg, emb)
	if err != nil {
		return nil, err
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "paragraph", "":
		ch = chunker.NewParagraphChunker()
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	var sum domain.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	return service.NewRAGService(ch, emb, st, gen, sum, service.Options{
		TopK:                cfg.Retrieval.TopK,
		Concurrency:         cfg.Ingest.Concurrency,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		Logger:              log,
	}), nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.EmbeddingClient, error) {
	switch cfg.Embedder.Type {
	case "hashing":
		return hashing.NewEmbedder(cfg.Embedder.Hashing.Dimension), nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, errors.New("openai embedder config missing")
		}
		o := cfg.Embedder.OpenAI
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:    o.BaseURL,
			APIKeyEnv:  o.APIKeyEnv,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			Timeout:    time.Duration(o.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
}

func buildGenerator(cfg *config.AppConfig) (domain.AnswerGenerator, error) {
	g := cfg.Generator
	gen, err := genopenai.NewGenerator(genopenai.Config{
		BaseURL:     g.BaseURL,
		APIKeyEnv:   g.APIKeyEnv,
		Model:       g.Model,
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
		Timeout:     time.Duration(g.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}
	return gen, nil
}

// sized is implemented by embedders whose vector size is known before the
// first call.
type sized interface {
	Dimension() int
}

func buildStore(cfg *config.AppConfig, emb domain.EmbeddingClient) (domain.VectorStore, error) {
	dim := 0
	if e, ok := emb.(sized); ok {
		dim = e.Dimension()
	}
	switch cfg.VectorStore.Type {
	case "memory", "":
		return memory.NewStorage(dim), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		if q == nil {
			return nil, errors.New("qdrant config missing")
		}
		if q.Dimension > 0 {
			dim = q.Dimension
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Distance:   q.Distance,
			Dimension:  dim,
			Timeout:    time.Duration(q.TimeoutSecs) * time.Second,
		}), nil
	}
	return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
}
