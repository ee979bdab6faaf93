package memory

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func chunk(id string) domain.Chunk {
	return domain.Chunk{ID: id, DocumentID: "doc", Text: "text " + id}
}

func ids(results []domain.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.ID
	}
	return out
}

func TestCosineSimilarity(t *testing.T) {
	v := []float64{0.3, -1.2, 4.5, 2}
	neg := []float64{-0.3, 1.2, -4.5, -2}

	assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity(v, neg), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-12)
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 1}, []float64{0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{1, 1}))
	assert.False(t, math.IsNaN(CosineSimilarity([]float64{0, 0}, []float64{0, 0})))
}

func TestSearchEmptyStore(t *testing.T) {
	ctx := context.Background()
	for _, dim := range []int{0, 3} {
		s := NewStorage(dim)
		for _, k := range []int{0, 1, 10} {
			res, err := s.Search(ctx, []float64{1, 2, 3}, k)
			require.NoError(t, err)
			assert.Empty(t, res)
		}
	}
}

func TestSearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(0)
	require.NoError(t, s.Insert(ctx, chunk("x"), []float64{1, 0}))
	require.NoError(t, s.Insert(ctx, chunk("y"), []float64{0, 1}))
	require.NoError(t, s.Insert(ctx, chunk("xy"), []float64{1, 1}))

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "xy", "y"}, ids(res))
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.InDelta(t, math.Sqrt2/2, res[1].Score, 1e-9)
	assert.InDelta(t, 0.0, res[2].Score, 1e-9)
}

func TestSearchTopK(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(2)
	require.NoError(t, s.Insert(ctx, chunk("a"), []float64{1, 0}))
	require.NoError(t, s.Insert(ctx, chunk("b"), []float64{1, 1}))

	res, err := s.Search(ctx, []float64{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(res))

	res, err = s.Search(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = s.Search(ctx, []float64{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = s.Search(ctx, []float64{1, 0}, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidTopK)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(0)
	require.NoError(t, s.Insert(ctx, chunk("low"), []float64{0, 1}))
	require.NoError(t, s.Insert(ctx, chunk("first"), []float64{2, 0}))
	require.NoError(t, s.Insert(ctx, chunk("second"), []float64{1, 0}))
	require.NoError(t, s.Insert(ctx, chunk("third"), []float64{5, 0}))
	require.NoError(t, s.Insert(ctx, chunk("zero"), []float64{0, 0}))

	for i := 0; i < 5; i++ {
		res, err := s.Search(ctx, []float64{3, 0}, 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third", "low", "zero"}, ids(res))
	}

	res, err := s.Search(ctx, []float64{3, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ids(res))

	res, err = s.Search(ctx, []float64{3, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, ids(res))
}

func TestSearchScoresNonIncreasing(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	s := NewStorage(8)
	for i := 0; i < 200; i++ {
		v := make([]float64, 8)
		for j := range v {
			v[j] = rng.NormFloat64()
		}
		require.NoError(t, s.Insert(ctx, chunk(fmt.Sprint(i)), v))
	}

	res, err := s.Search(ctx, []float64{1, 2, 3, 4, 5, 6, 7, 8}, 50)
	require.NoError(t, err)
	require.Len(t, res, 50)
	for i := 1; i < len(res); i++ {
		assert.LessOrEqual(t, res[i].Score, res[i-1].Score)
	}
}

func TestInsertThenSearchSelfMatch(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	s := NewStorage(0)
	for i := 0; i < 50; i++ {
		v := make([]float64, 16)
		for j := range v {
			v[j] = rng.Float64()*2 - 1
		}
		id := fmt.Sprint("c", i)
		require.NoError(t, s.Insert(ctx, chunk(id), v))

		res, err := s.Search(ctx, v, 1)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, id, res[0].Chunk.ID)
		assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	}
}

func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(0)
	require.NoError(t, s.Insert(ctx, chunk("a"), []float64{1, 2, 3}))
	assert.Equal(t, 3, s.Dimension())

	err := s.Insert(ctx, chunk("b"), []float64{1, 2})
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	var dm *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Got)
	assert.Equal(t, 1, s.Len())

	_, err = s.Search(ctx, []float64{1}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	fixed := NewStorage(4)
	assert.ErrorIs(t, fixed.Insert(ctx, chunk("c"), []float64{1, 2, 3}), domain.ErrDimensionMismatch)
	assert.ErrorIs(t, fixed.Insert(ctx, chunk("d"), nil), domain.ErrDimensionMismatch)
	assert.Equal(t, 0, fixed.Len())
}

func TestInsertCopiesVector(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(0)
	v := []float64{1, 0}
	require.NoError(t, s.Insert(ctx, chunk("a"), v))
	require.NoError(t, s.Insert(ctx, chunk("b"), []float64{0, 1}))
	v[0], v[1] = 0, 1

	res, err := s.Search(ctx, []float64{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(res))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(0)
	require.NoError(t, s.Insert(ctx, domain.Chunk{ID: "a1", DocumentID: "a"}, []float64{1, 0}))
	require.NoError(t, s.Insert(ctx, domain.Chunk{ID: "b1", DocumentID: "b"}, []float64{1, 1}))
	require.NoError(t, s.Insert(ctx, domain.Chunk{ID: "a2", DocumentID: "a"}, []float64{0, 1}))

	require.NoError(t, s.Remove(ctx, "b1"))
	require.NoError(t, s.Remove(ctx, "missing"))
	assert.Equal(t, 2, s.Len())

	n, err := s.RemoveDocument(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 2, s.Dimension())

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestConcurrentInsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(3)
	const writers, perWriter = 8, 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c := domain.Chunk{ID: fmt.Sprintf("%d-%d", w, i), Text: fmt.Sprintf("%d-%d", w, i)}
				assert.NoError(t, s.Insert(ctx, c, []float64{float64(w + 1), float64(i), 1}))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res, err := s.Search(ctx, []float64{1, 1, 1}, 1000)
				assert.NoError(t, err)
				for _, hit := range res {
					assert.Equal(t, hit.Chunk.ID, hit.Chunk.Text)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, s.Len())
	res, err := s.Search(ctx, []float64{1, 1, 1}, writers*perWriter)
	require.NoError(t, err)
	seen := make(map[string]struct{}, len(res))
	for _, hit := range res {
		seen[hit.Chunk.ID] = struct{}{}
	}
	assert.Len(t, seen, writers*perWriter)
}

func TestResetKeepsDimension(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(0)
	require.NoError(t, s.Insert(ctx, chunk("a"), []float64{1, 0}))
	require.NoError(t, s.Reset(ctx))
	assert.Zero(t, s.Len())
	assert.Equal(t, 2, s.Dimension())

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.ErrorIs(t, s.Insert(ctx, chunk("b"), []float64{1, 0, 0}), domain.ErrDimensionMismatch)
}
