package ingest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
)

// Ingester chunks documents, embeds every chunk and stores the results.
//
// A chunk whose embedding fails is skipped and recorded in the report; the
// rest of the document is still stored. A store error aborts the document.
type Ingester struct {
	chunker     domain.Chunker
	concurrency int
}

// New creates an Ingester. Concurrency bounds the number of embedding calls
// in flight for one document; values below 1 mean sequential.
func New(chunker domain.Chunker, concurrency int) *Ingester {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ingester{chunker: chunker, concurrency: concurrency}
}

// Ingest stores the chunks of text under documentID. Empty or
// whitespace-only text is a no-op. Chunks are inserted in ordinal order
// regardless of the embedding concurrency.
func (in *Ingester) Ingest(ctx context.Context, text, documentID string, embed domain.EmbeddingClient, store domain.VectorStore) (domain.IngestReport, error) {
	report := domain.IngestReport{DocumentID: documentID}
	chunks := in.chunker.Chunk(documentID, text)
	if len(chunks) == 0 {
		return report, nil
	}

	vectors := make([][]float64, len(chunks))
	errs := make([]error, len(chunks))
	var g errgroup.Group
	g.SetLimit(in.concurrency)
	for i := range chunks {
		g.Go(func() error {
			vectors[i], errs[i] = embedOne(ctx, embed, chunks[i].Text)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for i, c := range chunks {
		if errs[i] != nil {
			report.Failed++
			report.FailedOrdinals = append(report.FailedOrdinals, c.Ordinal)
			report.Errors = append(report.Errors, errs[i])
			continue
		}
		if err := store.Insert(ctx, c, vectors[i]); err != nil {
			return report, fmt.Errorf("insert chunk %d of %s: %w", c.Ordinal, documentID, err)
		}
		report.Stored++
	}
	return report, nil
}

func embedOne(ctx context.Context, embed domain.EmbeddingClient, text string) ([]float64, error) {
	vecs, err := embed.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, &domain.EmbeddingServiceError{Provider: "chunk", Err: fmt.Errorf("expected 1 embedding, got %d", len(vecs))}
	}
	return vecs[0], nil
}
