package memory

import (
	"context"
	"math"
	"slices"
	"sync"

	"docqa/internal/domain"
)

type entry struct {
	domain.IndexedChunk
	norm float64
}

// Storage is an in-memory vector store using brute-force cosine similarity.
//
// The dimension is fixed at construction or by the first insertion. Results
// with equal scores keep insertion order.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
}

// NewStorage creates a store. A dimension of zero is inferred from the first insert.
func NewStorage(dimension int) *Storage {
	if dimension < 0 {
		dimension = 0
	}
	return &Storage{dimension: dimension}
}

// Dimension returns the fixed dimensionality, or zero while still unknown.
func (s *Storage) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Len returns the number of stored chunks.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Storage) Insert(_ context.Context, chunk domain.Chunk, vector []float64) error {
	if len(vector) == 0 {
		return &domain.DimensionMismatchError{Expected: s.Dimension(), Got: 0}
	}
	e := entry{IndexedChunk: domain.IndexedChunk{Chunk: chunk, Vector: slices.Clone(vector)}, norm: norm(vector)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = len(vector)
	}
	if len(vector) != s.dimension {
		return &domain.DimensionMismatchError{Expected: s.dimension, Got: len(vector)}
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *Storage) Search(_ context.Context, query []float64, topK int) ([]domain.SearchResult, error) {
	if topK < 0 {
		return nil, domain.ErrInvalidTopK
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 || topK == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(query) != s.dimension {
		return nil, &domain.DimensionMismatchError{Expected: s.dimension, Got: len(query)}
	}

	qn := norm(query)
	results := make([]domain.SearchResult, len(s.entries))
	for i, e := range s.entries {
		results[i] = domain.SearchResult{Chunk: e.Chunk, Score: cosine(query, qn, e.Vector, e.norm)}
	}
	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Remove deletes a chunk by ID. Removing an unknown ID is not an error.
func (s *Storage) Remove(_ context.Context, chunkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.DeleteFunc(s.entries, func(e entry) bool { return e.Chunk.ID == chunkID })
	return nil
}

// RemoveDocument deletes every chunk of a document and returns how many were removed.
func (s *Storage) RemoveDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, func(e entry) bool { return e.Chunk.DocumentID == documentID })
	return before - len(s.entries), nil
}

// Reset drops the corpus but keeps the dimension.
func (s *Storage) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either magnitude is
// zero or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosine(a, norm(a), b, norm(b))
}

func cosine(a []float64, na float64, b []float64, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (na * nb)
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
