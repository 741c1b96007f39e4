package hnsw

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// Config holds HNSW graph parameters
type Config struct {
	// Dimensions is the embedding dimensionality. Zero means adopt the
	// dimensionality of the first indexed vector.
	Dimensions int

	// M is the maximum number of neighbors per node
	M int

	// EfSearch is the candidate list size during search
	EfSearch int

	// Path is the directory for graph persistence. Empty means in-memory only.
	Path string
}

// DefaultConfig returns sensible defaults
func DefaultConfig(path string) Config {
	return Config{
		M:        16,
		EfSearch: 20,
		Path:     path,
	}
}

// chunkMeta is what the graph remembers about each vector besides the
// embedding itself. Chunk text lives in the chunk store, not here.
type chunkMeta struct {
	ChunkID    string
	DocumentID string
	Source     string
	Index      int
}

// userGraph is one user's HNSW graph with its ID mappings.
// Deleting uses lazy deletion: the mapping is dropped but the node stays
// in the graph, so stale nodes are skipped at search time.
type userGraph struct {
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]chunkMeta
	nextKey uint64
}

// graphSnapshot is the gob-encoded sidecar next to each exported graph
type graphSnapshot struct {
	IDMap   map[string]uint64
	KeyMap  map[uint64]chunkMeta
	NextKey uint64
}

// VectorIndex implements driven.VectorIndex with one HNSW graph per user.
// Scope filtering is structural: a search can only ever walk the caller's
// own graph, so cross-user results cannot be expressed.
type VectorIndex struct {
	mu     sync.RWMutex
	graphs map[string]*userGraph
	config Config
	closed bool
}

// NewVectorIndex creates a vector index, loading any persisted graphs
// from the configured path.
func NewVectorIndex(config Config) (*VectorIndex, error) {
	if config.M <= 0 {
		config.M = 16
	}
	if config.EfSearch <= 0 {
		config.EfSearch = 20
	}

	v := &VectorIndex{
		graphs: make(map[string]*userGraph),
		config: config,
	}

	if config.Path != "" {
		if err := os.MkdirAll(config.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
		if err := v.loadAll(); err != nil {
			return nil, err
		}
	}

	return v, nil
}

func (v *VectorIndex) newGraph() *userGraph {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = v.config.M
	g.EfSearch = v.config.EfSearch
	g.Ml = 0.25
	return &userGraph{
		graph:  g,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]chunkMeta),
	}
}

// IndexBatch adds embedded chunks to the caller's graph
func (v *VectorIndex) IndexBatch(ctx context.Context, scope domain.Scope, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("vector index is closed")
	}

	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		if v.config.Dimensions == 0 {
			v.config.Dimensions = len(c.Embedding)
		}
		if len(c.Embedding) != v.config.Dimensions {
			return fmt.Errorf("embedding dimension mismatch for chunk %s: expected %d, got %d",
				c.ID, v.config.Dimensions, len(c.Embedding))
		}
	}

	ug, ok := v.graphs[scope.UserID]
	if !ok {
		ug = v.newGraph()
		v.graphs[scope.UserID] = ug
	}

	for _, c := range chunks {
		if existingKey, exists := ug.idMap[c.ID]; exists {
			// Lazy re-insert: orphan the old node rather than deleting it
			delete(ug.keyMap, existingKey)
			delete(ug.idMap, c.ID)
		}

		key := ug.nextKey
		ug.nextKey++

		vec := make([]float32, len(c.Embedding))
		copy(vec, c.Embedding)
		normalize(vec)

		ug.graph.Add(hnsw.MakeNode(key, vec))
		ug.idMap[c.ID] = key
		ug.keyMap[key] = chunkMeta{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Source:     c.Source,
			Index:      c.Index,
		}
	}

	return v.persist(scope.UserID, ug)
}

// Search finds the k nearest chunks by cosine similarity
func (v *VectorIndex) Search(ctx context.Context, scope domain.Scope, embedding []float32, k int) ([]domain.VectorMatch, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, fmt.Errorf("vector index is closed")
	}

	ug, ok := v.graphs[scope.UserID]
	if !ok || ug.graph.Len() == 0 {
		return nil, nil
	}

	if v.config.Dimensions > 0 && len(embedding) != v.config.Dimensions {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d",
			v.config.Dimensions, len(embedding))
	}

	query := make([]float32, len(embedding))
	copy(query, embedding)
	normalize(query)

	// Over-fetch to compensate for lazily deleted nodes
	nodes := ug.graph.Search(query, k*2)

	matches := make([]domain.VectorMatch, 0, k)
	for _, node := range nodes {
		meta, exists := ug.keyMap[node.Key]
		if !exists {
			continue // lazily deleted
		}

		distance := ug.graph.Distance(query, node.Value)
		matches = append(matches, domain.VectorMatch{
			ChunkID:    meta.ChunkID,
			DocumentID: meta.DocumentID,
			UserID:     scope.UserID,
			Source:     meta.Source,
			ChunkIndex: meta.Index,
			Similarity: 1.0 - distance/2.0,
		})
		if len(matches) == k {
			break
		}
	}

	return matches, nil
}

// DeleteByDocument removes all of a document's vectors from the caller's graph
func (v *VectorIndex) DeleteByDocument(ctx context.Context, scope domain.Scope, documentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return fmt.Errorf("vector index is closed")
	}

	ug, ok := v.graphs[scope.UserID]
	if !ok {
		return nil
	}

	for key, meta := range ug.keyMap {
		if meta.DocumentID == documentID {
			delete(ug.idMap, meta.ChunkID)
			delete(ug.keyMap, key)
		}
	}

	return v.persist(scope.UserID, ug)
}

// Count returns the number of live vectors in the caller's graph
func (v *VectorIndex) Count(ctx context.Context, scope domain.Scope) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return 0, fmt.Errorf("vector index is closed")
	}

	ug, ok := v.graphs[scope.UserID]
	if !ok {
		return 0, nil
	}
	return len(ug.idMap), nil
}

// Ping verifies the index is available
func (v *VectorIndex) Ping(ctx context.Context) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return fmt.Errorf("vector index is closed")
	}
	return nil
}

// Close flushes all graphs to disk and releases them
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}

	for userID, ug := range v.graphs {
		if err := v.persist(userID, ug); err != nil {
			return err
		}
	}

	v.closed = true
	v.graphs = nil
	return nil
}

// persist writes one user's graph and its ID mappings to disk.
// Writes go to temp files first, then rename, so a crash mid-write
// never leaves a torn snapshot.
func (v *VectorIndex) persist(userID string, ug *userGraph) error {
	if v.config.Path == "" {
		return nil
	}

	graphPath := filepath.Join(v.config.Path, userID+".graph")

	tmpGraph := graphPath + ".tmp"
	file, err := os.Create(tmpGraph)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}
	if err := ug.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpGraph)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpGraph)
		return fmt.Errorf("close graph file: %w", err)
	}
	if err := os.Rename(tmpGraph, graphPath); err != nil {
		os.Remove(tmpGraph)
		return fmt.Errorf("rename graph file: %w", err)
	}

	metaPath := filepath.Join(v.config.Path, userID+".meta")
	tmpMeta := metaPath + ".tmp"
	metaFile, err := os.Create(tmpMeta)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	snapshot := graphSnapshot{
		IDMap:   ug.idMap,
		KeyMap:  ug.keyMap,
		NextKey: ug.nextKey,
	}
	if err := gob.NewEncoder(metaFile).Encode(snapshot); err != nil {
		metaFile.Close()
		os.Remove(tmpMeta)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := metaFile.Close(); err != nil {
		os.Remove(tmpMeta)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpMeta, metaPath)
}

// loadAll restores every persisted user graph from the index directory
func (v *VectorIndex) loadAll() error {
	entries, err := os.ReadDir(v.config.Path)
	if err != nil {
		return fmt.Errorf("read index directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".meta") {
			continue
		}
		userID := strings.TrimSuffix(name, ".meta")
		if err := v.loadUser(userID); err != nil {
			return fmt.Errorf("load graph for %s: %w", userID, err)
		}
	}
	return nil
}

func (v *VectorIndex) loadUser(userID string) error {
	metaFile, err := os.Open(filepath.Join(v.config.Path, userID+".meta"))
	if err != nil {
		return fmt.Errorf("open metadata: %w", err)
	}
	defer metaFile.Close()

	var snapshot graphSnapshot
	if err := gob.NewDecoder(metaFile).Decode(&snapshot); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	graphFile, err := os.Open(filepath.Join(v.config.Path, userID+".graph"))
	if err != nil {
		return fmt.Errorf("open graph: %w", err)
	}
	defer graphFile.Close()

	ug := v.newGraph()
	// Import requires an io.ByteReader
	if err := ug.graph.Import(bufio.NewReader(graphFile)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	ug.idMap = snapshot.IDMap
	ug.keyMap = snapshot.KeyMap
	ug.nextKey = snapshot.NextKey

	v.graphs[userID] = ug
	return nil
}

// normalize scales a vector to unit length in place
func normalize(v []float32) {
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
