package qdrant

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

// Storage is a minimal REST client to Qdrant implementing domain.VectorStore.
// The collection is created on first insert with the dimension of that
// vector. Each point carries an insertion sequence number in its payload so
// equal scores rank in insertion order like the in-memory store.
type Storage struct {
	url        string
	apiKey     string
	collection string
	distance   string
	client     *http.Client

	mu        sync.Mutex
	ready     bool
	fixed     int
	dimension int
	seq       int64
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Distance   string
	// Dimension fixes the vector size up front; zero means the first insert decides.
	Dimension int
	Timeout   time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	distance := cfg.Distance
	if distance == "" {
		distance = "Cosine"
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		distance:   distance,
		fixed:      cfg.Dimension,
		dimension:  cfg.Dimension,
		client:     &http.Client{Timeout: timeout},
		seq:        time.Now().UnixNano(),
	}
}

var errNotFound = errors.New("not found")

type payload struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`
	Seq        int64  `json:"seq"`
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float64 `json:"vector"`
	Payload payload   `json:"payload"`
}

type scoredPoint struct {
	Score   float64 `json:"score"`
	Payload payload `json:"payload"`
}

// Insert upserts one point. A vector whose length differs from the
// collection dimension is rejected before any request is sent.
func (s *Storage) Insert(ctx context.Context, chunk domain.Chunk, vector []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		if err := s.ensureCollection(ctx, len(vector)); err != nil {
			return err
		}
		s.ready = true
	}
	if len(vector) != s.dimension {
		return &domain.DimensionMismatchError{Expected: s.dimension, Got: len(vector)}
	}
	s.seq++
	body := map[string]any{"points": []point{{
		ID:     pointID(chunk.ID),
		Vector: vector,
		Payload: payload{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Ordinal:    chunk.Ordinal,
			Text:       chunk.Text,
			Seq:        s.seq,
		},
	}}}
	return s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), body, nil)
}

// Search returns up to topK points by descending score.
func (s *Storage) Search(ctx context.Context, query []float64, topK int) ([]domain.SearchResult, error) {
	if topK < 0 {
		return nil, domain.ErrInvalidTopK
	}
	if topK == 0 {
		return []domain.SearchResult{}, nil
	}
	dim, err := s.currentDimension(ctx)
	if errors.Is(err, errNotFound) {
		return []domain.SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(query) != dim {
		return nil, &domain.DimensionMismatchError{Expected: dim, Got: len(query)}
	}

	req := map[string]any{
		"vector":       query,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	err = s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp)
	if errors.Is(err, errNotFound) {
		return []domain.SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(resp.Result, func(a, b scoredPoint) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Payload.Seq, b.Payload.Seq)
	})
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:         r.Payload.ChunkID,
				DocumentID: r.Payload.DocumentID,
				Ordinal:    r.Payload.Ordinal,
				Text:       r.Payload.Text,
			},
			Score: r.Score,
		})
	}
	return results, nil
}

// Remove deletes the point of chunkID. Unknown IDs are not an error.
func (s *Storage) Remove(ctx context.Context, chunkID string) error {
	body := map[string]any{"points": []string{pointID(chunkID)}}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), body, nil)
	if errors.Is(err, errNotFound) {
		return nil
	}
	return err
}

// RemoveDocument deletes every point of documentID and returns how many there were.
func (s *Storage) RemoveDocument(ctx context.Context, documentID string) (int, error) {
	filter := map[string]any{
		"must": []map[string]any{{
			"key":   "document_id",
			"match": map[string]any{"value": documentID},
		}},
	}
	var count struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"), map[string]any{"filter": filter, "exact": true}, &count)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if count.Result.Count == 0 {
		return 0, nil
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"filter": filter}, nil); err != nil {
		return 0, err
	}
	return count.Result.Count, nil
}

// Reset deletes the whole collection. The next insert recreates it.
func (s *Storage) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.do(ctx, http.MethodDelete, s.collectionPath(""), nil, nil)
	if errors.Is(err, errNotFound) {
		err = nil
	}
	if err == nil {
		s.dimension = s.fixed
		s.ready = false
	}
	return err
}

func (s *Storage) currentDimension(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension > 0 {
		return s.dimension, nil
	}
	dim, err := s.fetchDimension(ctx)
	if err != nil {
		return 0, err
	}
	s.dimension = dim
	return dim, nil
}

// ensureCollection must be called with s.mu held.
func (s *Storage) ensureCollection(ctx context.Context, dimension int) error {
	dim, err := s.fetchDimension(ctx)
	switch {
	case err == nil:
		s.dimension = dim
		return nil
	case !errors.Is(err, errNotFound):
		return err
	}
	if s.dimension > 0 && dimension != s.dimension {
		return &domain.DimensionMismatchError{Expected: s.dimension, Got: dimension}
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": s.distance,
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) fetchDimension(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Config.Params.Vectors.Size, nil
}

func (s *Storage) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s: %w", method, url, errNotFound)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// pointID maps a chunk ID to a Qdrant point ID, which must be a UUID or an
// unsigned integer.
func pointID(chunkID string) string {
	if id, err := uuid.Parse(chunkID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}
