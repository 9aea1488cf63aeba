// Package index wraps an in-process HNSW graph behind the narrow contract the
// retriever needs: load an index file built offline, search it read-only.
package index

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/staffdex/staffdex/internal/domain"
)

// Index is a cosine-metric vector index keyed by dense 0-based row ids.
// Rows are appended at build time; after Load the index is read-only and
// safe for concurrent searches.
type Index struct {
	loadOnce sync.Once
	loadErr  error

	mu    sync.RWMutex
	graph *hnsw.Graph[int]
	dims  int
	ready bool
}

// New creates an empty index for the given vector dimensionality. Used by the
// offline builder; the server side constructs via Open.
func New(dims int) *Index {
	idx := &Index{graph: newGraph(), dims: dims, ready: true}
	return idx
}

// Open creates an index bound to a file. The file is not read until Load.
func Open(dims int) *Index {
	return &Index{graph: newGraph(), dims: dims}
}

func newGraph() *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 32
	g.Ml = 0.25
	return g
}

// Add appends a vector under the given row id. Vectors are unit-normalized
// before insertion so the cosine distance is exact.
func (x *Index) Add(rowID int, vector []float32) error {
	if rowID < 0 {
		return fmt.Errorf("row id must be non-negative, got %d", rowID)
	}
	if len(vector) != x.dims {
		return fmt.Errorf("row %d: %w: expected %d, got %d",
			rowID, domain.ErrVectorDimMismatch, x.dims, len(vector))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)
	x.graph.Add(hnsw.MakeNode(rowID, vec))
	return nil
}

// Load reads the index file exactly once. Concurrent callers share a single
// load; repeated calls return the first outcome.
func (x *Index) Load(path string) error {
	x.loadOnce.Do(func() {
		x.loadErr = x.load(path)
	})
	return x.loadErr
}

func (x *Index) load(path string) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open index file %s: %w", path, err)
	}
	defer f.Close()

	x.mu.Lock()
	defer x.mu.Unlock()

	// hnsw.Import needs an io.ByteReader.
	if err := x.graph.Import(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("import index %s: %w", path, err)
	}
	x.ready = true
	return nil
}

// Save writes the index to disk atomically (temp file + rename).
func (x *Index) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := x.graph.Export(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("export index: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

// Ready reports whether the index is loaded and searchable.
func (x *Index) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ready
}

// Len returns the number of indexed rows.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.graph.Len()
}

// Search returns up to k nearest rows, best match first. The returned distance
// is the cosine distance 1 − cos(query, row); callers derive the similarity
// score as 1 − distance.
func (x *Index) Search(vector []float32, k int) ([]domain.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.ready {
		return nil, domain.ErrNotReady
	}
	if len(vector) != x.dims {
		return nil, fmt.Errorf("query vector: %w: expected %d, got %d",
			domain.ErrVectorDimMismatch, x.dims, len(vector))
	}
	if k <= 0 || x.graph.Len() == 0 {
		return nil, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	normalizeInPlace(query)

	nodes := x.graph.Search(query, k)
	hits := make([]domain.VectorHit, 0, len(nodes))
	for _, node := range nodes {
		hits = append(hits, domain.VectorHit{
			RowID:    node.Key,
			Distance: x.graph.Distance(query, node.Value),
		})
	}

	// The graph returns base-layer candidates in an order that depends on its
	// randomized layer structure, not on distance. Re-rank here so the hit
	// order is the similarity order, with row id as a deterministic tie-break.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].RowID < hits[j].RowID
	})
	return hits, nil
}

// normalizeInPlace scales a vector to unit length. Zero vectors are left as-is.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
