package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// On-disk layout: two co-located artifacts that must stay in lockstep. The
// vectors file holds the raw float data, the sidecar maps positions back to
// job ids and display metadata. A third single-vector artifact holds the
// current resume embedding.
const (
	vectorsFile = "jobs.vec"
	sidecarFile = "jobs.meta.json"
	resumeFile  = "resume.vec"
)

type persistedVectors struct {
	Dim     int
	Vectors [][]float32
}

type persistedResume struct {
	Dim    int
	Vector []float32
}

type sidecar struct {
	IDMap        map[int]int64 `json:"id_map"`
	Meta         map[int]Meta  `json:"metadata"`
	NextPosition int           `json:"next_position"`
}

func (ix *Index) load() error {
	vecPath := filepath.Join(ix.dir, vectorsFile)
	sidePath := filepath.Join(ix.dir, sidecarFile)

	vecExists := fileExists(vecPath)
	sideExists := fileExists(sidePath)

	if !vecExists && !sideExists {
		ix.logger.Info("creating new vector index", zap.String("dir", ix.dir), zap.Int("dim", ix.dim))
		return nil
	}

	if vecExists != sideExists {
		return fmt.Errorf("corrupt index in %s: vectors and sidecar must exist together (vectors=%t sidecar=%t)",
			ix.dir, vecExists, sideExists)
	}

	var pv persistedVectors
	if err := readGob(vecPath, &pv); err != nil {
		return fmt.Errorf("read vectors file: %w", err)
	}

	raw, err := os.ReadFile(sidePath)
	if err != nil {
		return fmt.Errorf("read sidecar: %w", err)
	}

	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return fmt.Errorf("parse sidecar: %w", err)
	}

	if pv.Dim != ix.dim {
		return fmt.Errorf("corrupt index in %s: persisted dim %d does not match configured dim %d",
			ix.dir, pv.Dim, ix.dim)
	}

	if sc.NextPosition != len(pv.Vectors) {
		return fmt.Errorf("corrupt index in %s: sidecar next_position %d does not match %d stored vectors",
			ix.dir, sc.NextPosition, len(pv.Vectors))
	}

	// Every position must have a sidecar entry, even when its metadata is
	// empty. A missing mapping means the two files are from different writes.
	for pos := range pv.Vectors {
		if _, ok := sc.IDMap[pos]; !ok {
			return fmt.Errorf("corrupt index in %s: position %d has no id mapping", ix.dir, pos)
		}
	}

	ix.vectors = pv.Vectors
	ix.idMap = sc.IDMap
	ix.meta = sc.Meta
	if ix.meta == nil {
		ix.meta = make(map[int]Meta)
	}
	ix.nextPos = sc.NextPosition

	ix.logger.Info("loaded vector index",
		zap.String("dir", ix.dir),
		zap.Int("vectors", ix.nextPos),
	)

	return nil
}

// Flush persists vectors and sidecar together, each written atomically via a
// temp file and rename. Must be called before process exit; a crash between
// flushes loses the unflushed insertions, which is acceptable because jobs
// are re-ingested idempotently by external id.
func (ix *Index) Flush() error {
	if err := writeGob(filepath.Join(ix.dir, vectorsFile), persistedVectors{
		Dim:     ix.dim,
		Vectors: ix.vectors,
	}); err != nil {
		return fmt.Errorf("write vectors file: %w", err)
	}

	raw, err := json.Marshal(sidecar{
		IDMap:        ix.idMap,
		Meta:         ix.meta,
		NextPosition: ix.nextPos,
	})
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}

	if err := writeAtomic(filepath.Join(ix.dir, sidecarFile), raw); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}

	ix.sinceFlush = 0
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

func writeGob(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
