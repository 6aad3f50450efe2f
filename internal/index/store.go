package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vampirenirmal/bookforge/internal/core"
)

const (
	vectorsFile = "vectors.bin"
	metaFile    = "meta.json"

	vectorsMagic = uint32(0x424b4658) // "BKFX"
)

// metaDocument is the on-disk metadata shape: the chunk list in chunk-id order
// plus build provenance for staleness checks.
type metaDocument struct {
	Chunks  []Chunk   `json:"chunks"`
	BuiltAt time.Time `json:"built_at"`
	Source  string    `json:"source,omitempty"`
}

// Info describes a loaded index.
type Info struct {
	Chunks   int
	Chapters int
	BuiltAt  time.Time
	Source   string
	// Stale is set when the manuscript file is newer than the index build.
	Stale bool
}

// Save writes the index as an artifact pair under dir: a binary vector file
// and a JSON metadata file. Both are written to temp files and renamed so a
// crash never leaves a half-written pair. source records the manuscript path
// the index was built from (may be empty).
func Save(idx *Index, dir, source string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	if err := writeVectors(filepath.Join(dir, vectorsFile), idx); err != nil {
		return err
	}

	meta := metaDocument{Chunks: idx.chunks, BuiltAt: time.Now(), Source: source}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, metaFile), data); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	return nil
}

// Load reads the artifact pair back. A missing vector or metadata file yields
// ErrNotIndexed; an empty index is never silently substituted.
func Load(dir string) (*Index, *Info, error) {
	vecPath := filepath.Join(dir, vectorsFile)
	metaPath := filepath.Join(dir, metaFile)

	for _, p := range []string{vecPath, metaPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, nil, fmt.Errorf("%w: %s missing (run index first)", core.ErrNotIndexed, filepath.Base(p))
		}
	}

	idx, err := readVectors(vecPath)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading metadata: %w", err)
	}
	var meta metaDocument
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, nil, fmt.Errorf("parsing metadata: %w", err)
	}

	if len(meta.Chunks) != len(idx.vectors) {
		return nil, nil, fmt.Errorf("index mismatch: %d vectors but %d chunk records",
			len(idx.vectors), len(meta.Chunks))
	}
	idx.chunks = meta.Chunks

	info := &Info{
		Chunks:   idx.Len(),
		Chapters: idx.ChapterCount(),
		BuiltAt:  meta.BuiltAt,
		Source:   meta.Source,
	}
	if meta.Source != "" {
		if st, err := os.Stat(meta.Source); err == nil && st.ModTime().After(meta.BuiltAt) {
			info.Stale = true
		}
	}

	return idx, info, nil
}

func writeVectors(path string, idx *Index) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating vector file: %w", err)
	}

	w := bufio.NewWriter(f)
	header := []uint32{vectorsMagic, uint32(idx.dimension), uint32(len(idx.vectors))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return fmt.Errorf("writing vector header: %w", err)
		}
	}
	for _, vec := range idx.vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			f.Close()
			return fmt.Errorf("writing vectors: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flushing vector file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing vector file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming vector file: %w", err)
	}
	return nil
}

func readVectors(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vector file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic, dim, count uint32
	for _, dst := range []*uint32{&magic, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("reading vector header: %w", err)
		}
	}
	if magic != vectorsMagic {
		return nil, fmt.Errorf("vector file has wrong magic %#x", magic)
	}

	idx := &Index{
		dimension: int(dim),
		vectors:   make([][]float32, 0, count),
	}
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("reading vector %d: %w", i, err)
		}
		idx.vectors = append(idx.vectors, vec)
	}

	return idx, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
