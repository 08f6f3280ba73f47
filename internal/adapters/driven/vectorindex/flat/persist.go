package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/logger"
)

// Persisted layout.
const (
	vectorsFile   = "vectors.idx"
	chunksFile    = "chunks.jsonl"
	documentsFile = "documents.json"

	magic         = "RPVX"
	formatVersion = uint32(2)

	// headerSize is magic + version + dimension + count + generation.
	headerSize = 4 + 4 + 4 + 8 + 8
)

// chunkRecord is one line of chunks.jsonl.
type chunkRecord struct {
	Content    string       `json:"content"`
	Metadata   domain.Chunk `json:"metadata"`
	Generation uint64       `json:"generation"`
}

// documentsRecord is the content of documents.json.
type documentsRecord struct {
	Generation uint64                     `json:"generation"`
	Documents  map[string]domain.Document `json:"documents"`
}

// Save writes the index to its directory. Each file is written to a
// temporary name and renamed into place. All three files carry the same
// random generation so Load can reject a directory left half-replaced by
// an interrupted Save.
func (idx *Index) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(idx.dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	gen := rand.Uint64()
	files := []struct {
		name  string
		write func(io.Writer, uint64) error
	}{
		{documentsFile, idx.writeDocuments},
		{chunksFile, idx.writeChunks},
		{vectorsFile, idx.writeVectors},
	}
	for _, f := range files {
		err := writeAtomic(filepath.Join(idx.dir, f.name), func(w io.Writer) error { return f.write(w, gen) })
		if err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	logger.Info("saved index to %s (%d vectors)", idx.dir, len(idx.chunks))
	return nil
}

func (idx *Index) writeVectors(w io.Writer, gen uint64) error {
	count := uint64(0)
	if idx.dim > 0 {
		count = uint64(len(idx.vectors) / idx.dim)
	}

	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(idx.dim))
	binary.LittleEndian.PutUint64(header[12:20], count)
	binary.LittleEndian.PutUint64(header[20:28], gen)
	if _, err := w.Write(header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, idx.vectors)
}

func (idx *Index) writeChunks(w io.Writer, gen uint64) error {
	enc := json.NewEncoder(w)
	for _, c := range idx.chunks {
		if err := enc.Encode(chunkRecord{Content: c.Content, Metadata: c, Generation: gen}); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) writeDocuments(w io.Writer, gen uint64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(documentsRecord{Generation: gen, Documents: idx.documents})
}

// Load replaces the contents with the persisted index.
// Everything is decoded into temporaries first; on any failure the index is left empty.
func (idx *Index) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dim, vectors, chunks, documents, err := readLayout(idx.dir)
	if err != nil {
		idx.Clear()
		return err
	}

	idx.mu.Lock()
	idx.dim = dim
	idx.vectors = vectors
	idx.chunks = chunks
	idx.documents = documents
	idx.mu.Unlock()

	logger.Info("loaded index from %s (%d vectors, dim %d)", idx.dir, len(chunks), dim)
	return nil
}

func readLayout(dir string) (int, []float32, []domain.Chunk, map[string]domain.Document, error) {
	dim, vectors, gen, err := readVectors(filepath.Join(dir, vectorsFile))
	if err != nil {
		return 0, nil, nil, nil, err
	}
	chunks, err := readChunks(filepath.Join(dir, chunksFile), gen)
	if err != nil {
		return 0, nil, nil, nil, err
	}
	if len(chunks)*dim != len(vectors) {
		return 0, nil, nil, nil, fmt.Errorf("%w: %d vectors for %d chunks",
			domain.ErrMalformedIndex, len(vectors)/dim, len(chunks))
	}
	documents, err := readDocuments(filepath.Join(dir, documentsFile), gen)
	if err != nil {
		return 0, nil, nil, nil, err
	}
	return dim, vectors, chunks, documents, nil
}

func readVectors(path string) (int, []float32, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, 0, openError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}

	r := bufio.NewReader(f)
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, 0, fmt.Errorf("%w: truncated header", domain.ErrMalformedIndex)
	}
	if string(header[0:4]) != magic {
		return 0, nil, 0, fmt.Errorf("%w: bad magic %q", domain.ErrMalformedIndex, header[0:4])
	}
	if v := binary.LittleEndian.Uint32(header[4:8]); v != formatVersion {
		return 0, nil, 0, fmt.Errorf("%w: unsupported format version %d", domain.ErrMalformedIndex, v)
	}
	dim := uint64(binary.LittleEndian.Uint32(header[8:12]))
	count := binary.LittleEndian.Uint64(header[12:20])
	gen := binary.LittleEndian.Uint64(header[20:28])
	if dim == 0 {
		return 0, nil, 0, fmt.Errorf("%w: dimension 0", domain.ErrMalformedIndex)
	}

	// count*dim*4 can wrap for a forged header, so bound count first.
	payload := uint64(info.Size()) - headerSize
	if count == 0 || count > math.MaxInt64/4/dim || payload != count*dim*4 {
		return 0, nil, 0, fmt.Errorf("%w: payload of %d bytes does not hold %d vectors of dimension %d",
			domain.ErrMalformedIndex, payload, count, dim)
	}

	vectors := make([]float32, count*dim)
	if err := binary.Read(r, binary.LittleEndian, vectors); err != nil {
		return 0, nil, 0, fmt.Errorf("%w: %v", domain.ErrMalformedIndex, err)
	}
	return int(dim), vectors, gen, nil
}

func readChunks(path string, gen uint64) ([]domain.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	var chunks []domain.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec chunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", domain.ErrMalformedIndex, len(chunks), err)
		}
		if rec.Generation != gen {
			return nil, fmt.Errorf("%w: chunk %d belongs to another save", domain.ErrMalformedIndex, len(chunks))
		}
		c := rec.Metadata
		c.Content = rec.Content
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedIndex, err)
	}
	return chunks, nil
}

func readDocuments(path string, gen uint64) (map[string]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, openError(path, err)
	}
	var rec documentsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: documents: %v", domain.ErrMalformedIndex, err)
	}
	if rec.Generation != gen {
		return nil, fmt.Errorf("%w: documents belong to another save", domain.ErrMalformedIndex)
	}
	if rec.Documents == nil {
		rec.Documents = make(map[string]domain.Document)
	}
	return rec.Documents, nil
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return fmt.Errorf("open %s: %w", path, err)
}

// writeAtomic writes through a temporary file in the same directory and renames it over path.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
