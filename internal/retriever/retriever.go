package retriever

import (
	"context"
	"fmt"

	"docqa/internal/domain"
)

// Retriever embeds a query and ranks stored chunks against it. It keeps no
// state beyond the store it searches.
type Retriever struct {
	store domain.VectorStore
}

func New(store domain.VectorStore) *Retriever { return &Retriever{store: store} }

// Retrieve returns at most topK chunks ranked by similarity to queryText.
// Embedding failures are returned unchanged; there is no retry.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, embed domain.EmbeddingClient, topK int) ([]domain.SearchResult, error) {
	if topK < 0 {
		return nil, domain.ErrInvalidTopK
	}
	vecs, err := embed.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, &domain.EmbeddingServiceError{Provider: "query", Err: fmt.Errorf("expected 1 embedding, got %d", len(vecs))}
	}
	return r.store.Search(ctx, vecs[0], topK)
}
