package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/ingest"
	"docqa/internal/logging"
	"docqa/internal/pipeline"
	"docqa/internal/retriever"
)

// ErrNoDocuments is returned by IngestFiles when no pattern matches a
// supported file.
var ErrNoDocuments = errors.New("no .txt or .md documents found")

// ErrResetUnsupported is returned by Reset when the vector store cannot be
// emptied in one call.
var ErrResetUnsupported = errors.New("vector store does not support reset")

// Resetter is implemented by vector stores that can drop their whole corpus.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Options tunes a RAGService. Zero values select defaults.
type Options struct {
	TopK                int
	Concurrency         int
	SummaryMaxSentences int
	Logger              *slog.Logger
}

// FileReport is the outcome of ingesting one file.
type FileReport struct {
	Path   string
	Report domain.IngestReport
}

// FilesReport is the outcome of IngestFiles.
type FilesReport struct {
	Files   []FileReport
	Summary string
}

// Stored returns the number of chunks stored across all files.
func (r FilesReport) Stored() int {
	n := 0
	for _, f := range r.Files {
		n += f.Report.Stored
	}
	return n
}

// Failed returns the number of chunks skipped across all files.
func (r FilesReport) Failed() int {
	n := 0
	for _, f := range r.Files {
		n += f.Report.Failed
	}
	return n
}

// RAGService is the facade the binary, the TUI and the MCP server talk to.
type RAGService struct {
	log                 *slog.Logger
	embed               domain.EmbeddingClient
	store               domain.VectorStore
	generator           domain.AnswerGenerator
	summarizer          domain.Summarizer
	ingester            *ingest.Ingester
	retriever           *retriever.Retriever
	pipeline            *pipeline.Pipeline
	topK                int
	summaryMaxSentences int
}

func NewRAGService(chunker domain.Chunker, embed domain.EmbeddingClient, store domain.VectorStore, generator domain.AnswerGenerator, summarizer domain.Summarizer, opts Options) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = pipeline.DefaultTopK
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	r := retriever.New(store)
	return &RAGService{
		log:                 opts.Logger,
		embed:               embed,
		store:               store,
		generator:           generator,
		summarizer:          summarizer,
		ingester:            ingest.New(chunker, opts.Concurrency),
		retriever:           r,
		pipeline:            pipeline.New(r, embed, generator),
		topK:                opts.TopK,
		summaryMaxSentences: opts.SummaryMaxSentences,
	}
}

// TopK returns the default number of context chunks.
func (s *RAGService) TopK() int { return s.topK }

// Ingest adds text to the corpus under documentID.
func (s *RAGService) Ingest(ctx context.Context, text, documentID string) (domain.IngestReport, error) {
	report, err := s.ingester.Ingest(ctx, text, documentID, s.embed, s.store)
	if err != nil {
		s.log.Error("ingest failed", "doc_id", documentID, "stored", report.Stored, "error", err)
		return report, err
	}
	for i, ord := range report.FailedOrdinals {
		s.log.Warn("chunk skipped", "doc_id", documentID, "ordinal", ord, "error", report.Errors[i])
	}
	s.log.Info("document ingested", "doc_id", documentID, "stored", report.Stored, "failed", report.Failed)
	return report, nil
}

// IngestFile (re)ingests the file at path. Chunks from a previous
// ingestion of the same path are removed first.
func (s *RAGService) IngestFile(ctx context.Context, path string) (domain.IngestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.IngestReport{}, err
	}
	return s.ingestDocument(ctx, domain.Document{ID: DocumentID(path), Path: path, Content: string(data)})
}

func (s *RAGService) ingestDocument(ctx context.Context, d domain.Document) (domain.IngestReport, error) {
	if _, err := s.store.RemoveDocument(ctx, d.ID); err != nil {
		return domain.IngestReport{DocumentID: d.ID}, fmt.Errorf("remove previous chunks of %s: %w", d.Path, err)
	}
	report, err := s.Ingest(ctx, d.Content, d.ID)
	if err != nil {
		return report, fmt.Errorf("ingest %s: %w", d.Path, err)
	}
	return report, nil
}

// RemoveFile drops every chunk ingested from path.
func (s *RAGService) RemoveFile(ctx context.Context, path string) (int, error) {
	return s.RemoveDocument(ctx, DocumentID(path))
}

// IngestFiles expands the glob patterns, ingests every .txt and .md file
// they match and summarizes the ingested text. A pattern without glob
// matches is treated as a literal path.
func (s *RAGService) IngestFiles(ctx context.Context, patterns []string) (FilesReport, error) {
	var paths []string
	seen := make(map[string]struct{})
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return FilesReport{}, fmt.Errorf("pattern %q: %w", p, err)
		}
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			if !SupportedFile(m) {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return FilesReport{}, ErrNoDocuments
	}

	documents := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return FilesReport{}, err
		}
		documents = append(documents, domain.Document{ID: DocumentID(p), Path: p, Content: string(data)})
	}

	var out FilesReport
	var all strings.Builder
	for _, d := range documents {
		report, err := s.ingestDocument(ctx, d)
		out.Files = append(out.Files, FileReport{Path: d.Path, Report: report})
		if err != nil {
			return out, err
		}
		all.WriteString(d.Content)
		all.WriteString("\n\n")
	}

	if s.summarizer != nil {
		summary, err := s.summarizer.Summarize(all.String(), s.summaryMaxSentences)
		if err != nil {
			return out, fmt.Errorf("summarize: %w", err)
		}
		out.Summary = summary
	}
	return out, nil
}

// Retrieve returns the topK chunks closest to query.
func (s *RAGService) Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	return s.retriever.Retrieve(ctx, query, s.embed, topK)
}

// Answer answers question from the topK most similar chunks and returns
// those chunks alongside the answer.
func (s *RAGService) Answer(ctx context.Context, question string, topK int) (string, []domain.SearchResult, error) {
	answer, sources, err := s.pipeline.AnswerWithSources(ctx, question, topK)
	if err != nil {
		s.log.Error("answer failed", "error", err)
		return "", sources, err
	}
	s.log.Debug("answered", "sources", len(sources))
	return answer, sources, nil
}

// Chat sends message to the generator without retrieval.
func (s *RAGService) Chat(ctx context.Context, message string) (string, error) {
	return s.generator.Generate(ctx, "", message)
}

// RemoveDocument drops every chunk of documentID and returns how many were removed.
func (s *RAGService) RemoveDocument(ctx context.Context, documentID string) (int, error) {
	n, err := s.store.RemoveDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("document removed", "doc_id", documentID, "chunks", n)
	}
	return n, nil
}

// Reset empties the vector store.
func (s *RAGService) Reset(ctx context.Context) error {
	r, ok := s.store.(Resetter)
	if !ok {
		return ErrResetUnsupported
	}
	if err := r.Reset(ctx); err != nil {
		return fmt.Errorf("reset vector store: %w", err)
	}
	s.log.Info("vector store reset")
	return nil
}

// SupportedFile reports whether path has an extension IngestFiles reads.
func SupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// DocumentID is the stable document identifier for a file path.
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	h := sha1.Sum([]byte(path))
	return hex.EncodeToString(h[:8])
}
