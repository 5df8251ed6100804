// Package index maintains a similarity-searchable set of normalized job
// embeddings keyed by job id, persisted on disk next to a metadata sidecar.
package index

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

const defaultFlushEvery = 50

// Meta is the lightweight per-vector metadata kept in the sidecar so search
// results can be displayed without a store lookup.
type Meta struct {
	Title   string `json:"title,omitempty"`
	Company string `json:"company,omitempty"`
}

// Hit is a single similarity search result.
type Hit struct {
	JobID int64
	Score float64
	Meta  Meta
}

// Index is a flat exact inner-product index. Positions are assigned
// sequentially and never reused, even across reloads; removed jobs leave dead
// positions behind rather than triggering compaction.
//
// Index is not safe for concurrent writers. The pipeline serializes inserts.
type Index struct {
	dir        string
	dim        int
	flushEvery int
	logger     *zap.Logger

	vectors    [][]float32
	idMap      map[int]int64
	meta       map[int]Meta
	nextPos    int
	sinceFlush int
}

// Open loads the index from dir, creating an empty one when no persisted
// state exists. A vectors file without its sidecar (or vice versa), or the
// two out of lockstep, is a corrupt store and fails loudly.
func Open(dir string, dim, flushEvery int, logger *zap.Logger) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	if flushEvery <= 0 {
		flushEvery = defaultFlushEvery
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	ix := &Index{
		dir:        dir,
		dim:        dim,
		flushEvery: flushEvery,
		logger:     logger,
		idMap:      make(map[int]int64),
		meta:       make(map[int]Meta),
	}

	if err := ix.load(); err != nil {
		return nil, err
	}

	return ix, nil
}

// Dim returns the target vector dimension.
func (ix *Index) Dim() int { return ix.dim }

// Size returns the number of stored vectors, dead positions included.
func (ix *Index) Size() int { return ix.nextPos }

// Insert appends a vector at the next sequential position. Vectors of the
// wrong dimension are padded with zeros or truncated rather than rejected, so
// a model/dimension mismatch degrades instead of crashing. The vector is
// normalized to unit length before storage; the zero vector is stored as-is
// and scores 0 against every query.
func (ix *Index) Insert(jobID int64, vec []float32, meta Meta) int {
	if len(vec) != ix.dim {
		ix.logger.Warn("embedding dimension mismatch, repairing",
			zap.Int("got", len(vec)),
			zap.Int("want", ix.dim),
			zap.Int64("job_id", jobID),
		)
		vec = conform(vec, ix.dim)
	}

	stored := make([]float32, ix.dim)
	copy(stored, vec)
	normalize(stored)

	pos := ix.nextPos
	ix.vectors = append(ix.vectors, stored)
	ix.idMap[pos] = jobID
	ix.meta[pos] = meta
	ix.nextPos++
	ix.sinceFlush++

	if ix.sinceFlush >= ix.flushEvery {
		if err := ix.Flush(); err != nil {
			ix.logger.Warn("periodic index flush failed", zap.Error(err))
		}
	}

	return pos
}

// Search returns up to min(k, size) hits sorted by descending inner-product
// score. Ties are broken by insertion order, first inserted wins. An empty
// index or nil query yields an empty result, not an error.
func (ix *Index) Search(query []float32, k int) []Hit {
	if len(query) == 0 || ix.nextPos == 0 || k <= 0 {
		return nil
	}

	if len(query) != ix.dim {
		query = conform(query, ix.dim)
	}

	hits := make([]Hit, 0, ix.nextPos)
	for pos, vec := range ix.vectors {
		hits = append(hits, Hit{
			JobID: ix.idMap[pos],
			Score: dot(query, vec),
			Meta:  ix.meta[pos],
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// conform repairs a vector to the target dimension: truncate when too long,
// zero-pad when too short.
func conform(vec []float32, dim int) []float32 {
	out := make([]float32, dim)
	copy(out, vec)
	return out
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// SaveResumeVector persists the resume embedding, overwriting any previous
// one. The vector is conformed and normalized the same way job vectors are.
func (ix *Index) SaveResumeVector(vec []float32) error {
	stored := conform(vec, ix.dim)
	normalize(stored)
	return writeGob(filepath.Join(ix.dir, resumeFile), persistedResume{Dim: ix.dim, Vector: stored})
}

// LoadResumeVector returns the persisted resume embedding, or nil when none
// has been saved yet.
func (ix *Index) LoadResumeVector() ([]float32, error) {
	var p persistedResume
	err := readGob(filepath.Join(ix.dir, resumeFile), &p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load resume vector: %w", err)
	}
	return conform(p.Vector, ix.dim), nil
}

// HasResumeVector reports whether a resume embedding is persisted.
func (ix *Index) HasResumeVector() bool {
	_, err := os.Stat(filepath.Join(ix.dir, resumeFile))
	return err == nil
}
