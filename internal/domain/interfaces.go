package domain

import "context"

// Document represents a single text source loaded into the system.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a contiguous fragment of a document used for retrieval.
// Chunks are immutable once created.
type Chunk struct {
	ID         string
	DocumentID string
	Text       string
	Ordinal    int
}

// IndexedChunk pairs a chunk with its embedding vector.
type IndexedChunk struct {
	Chunk  Chunk
	Vector []float64
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// IngestReport summarizes one document ingestion. Embedding failures are
// counted here instead of aborting the document.
type IngestReport struct {
	DocumentID     string
	Stored         int
	Failed         int
	FailedOrdinals []int
	Errors         []error
}

// Total returns the number of chunks the document was split into.
func (r IngestReport) Total() int { return r.Stored + r.Failed }

// EmbeddingClient maps texts to fixed-dimension vectors. The returned slice
// has one vector per input, in input order. Provider failures are reported
// as *EmbeddingServiceError.
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// AnswerGenerator produces a text answer for a composed prompt. Provider
// failures are reported as *GenerationServiceError.
type AnswerGenerator interface {
	Generate(ctx context.Context, systemInstruction, userPrompt string) (string, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(documentID, text string) []Chunk
}

// VectorStore holds the corpus and answers similarity queries.
//
// Implementations must be safe for concurrent use: an Insert is observed by
// Search either fully or not at all.
type VectorStore interface {
	Insert(ctx context.Context, chunk Chunk, vector []float64) error
	Search(ctx context.Context, query []float64, topK int) ([]SearchResult, error)
	Remove(ctx context.Context, chunkID string) error
	RemoveDocument(ctx context.Context, documentID string) (int, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
