// Package processed persists the intermediate output of an index rebuild so
// the index can be rebuilt later without re-embedding the corpus.
package processed

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
	"github.com/custodia-labs/riskpilot/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ProcessedStore = (*Store)(nil)

const (
	embeddingsFile = "embeddings.f32"
	chunksFile     = "chunks.jsonl"
	documentsFile  = "documents.json"
	statsFile      = "stats.json"
)

type chunkLine struct {
	Content  string       `json:"content"`
	Metadata domain.Chunk `json:"metadata"`
}

// Store keeps a processed corpus in a directory.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created on Save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether a corpus has been saved.
func (s *Store) Exists() bool {
	for _, name := range []string{embeddingsFile, chunksFile, documentsFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Save writes the corpus, replacing any previous one.
func (s *Store) Save(ctx context.Context, corpus *domain.ProcessedCorpus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if corpus == nil {
		return fmt.Errorf("%w: nil corpus", domain.ErrInvalidInput)
	}
	if len(corpus.Embeddings) != len(corpus.Chunks) {
		return fmt.Errorf("%w: %d embeddings for %d chunks",
			domain.ErrInvalidInput, len(corpus.Embeddings), len(corpus.Chunks))
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create processed directory: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{embeddingsFile, func(w io.Writer) error { return writeMatrix(w, corpus.Embeddings) }},
		{chunksFile, func(w io.Writer) error { return writeChunks(w, corpus.Chunks) }},
		{documentsFile, func(w io.Writer) error { return writeJSON(w, corpus.Documents) }},
		{statsFile, func(w io.Writer) error { return writeJSON(w, corpus.Stats) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(s.dir, f.name), f.write); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	logger.Info("saved processed corpus to %s (%d chunks)", s.dir, len(corpus.Chunks))
	return nil
}

// Load reads the stored corpus.
func (s *Store) Load(ctx context.Context) (*domain.ProcessedCorpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings, err := readMatrix(filepath.Join(s.dir, embeddingsFile))
	if err != nil {
		return nil, err
	}
	chunks, err := readChunks(filepath.Join(s.dir, chunksFile))
	if err != nil {
		return nil, err
	}
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d embeddings for %d chunks",
			domain.ErrMalformedIndex, len(embeddings), len(chunks))
	}

	documents := make(map[string]domain.Document)
	if err := readJSON(filepath.Join(s.dir, documentsFile), &documents); err != nil {
		return nil, err
	}

	corpus := &domain.ProcessedCorpus{
		Embeddings: embeddings,
		Chunks:     chunks,
		Documents:  documents,
	}

	// stats.json is informational; recompute counts when it is absent.
	if err := readJSON(filepath.Join(s.dir, statsFile), &corpus.Stats); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		corpus.Stats = domain.CorpusStats{TotalDocuments: len(documents), TotalChunks: len(chunks)}
		if len(embeddings) > 0 {
			corpus.Stats.EmbeddingDim = len(embeddings[0])
		}
	}
	return corpus, nil
}

// writeMatrix writes a rows/cols header followed by row-major little-endian float32 values.
func writeMatrix(w io.Writer, rows [][]float32) error {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(rows)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(cols))
	if _, err := w.Write(header); err != nil {
		return err
	}
	for i, row := range rows {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d columns, want %d", domain.ErrInvalidInput, i, len(row), cols)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return nil
}

func readMatrix(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	r := bufio.NewReader(f)
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: truncated embeddings header", domain.ErrMalformedIndex)
	}
	rows := int64(binary.LittleEndian.Uint32(header[0:4]))
	cols := int64(binary.LittleEndian.Uint32(header[4:8]))
	if rows > 0 && cols == 0 {
		return nil, fmt.Errorf("%w: %d embeddings of zero columns", domain.ErrMalformedIndex, rows)
	}
	// Compare by division so a hostile header cannot overflow the product.
	payload := info.Size() - 8
	if rows == 0 {
		if payload != 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes after empty embeddings", domain.ErrMalformedIndex, payload)
		}
		return [][]float32{}, nil
	}
	if payload%(cols*4) != 0 || payload/(cols*4) != rows {
		return nil, fmt.Errorf("%w: embeddings payload does not hold %dx%d values",
			domain.ErrMalformedIndex, rows, cols)
	}

	n, width := int(rows), int(cols)
	flat := make([]float32, n*width)
	if err := binary.Read(r, binary.LittleEndian, flat); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedIndex, err)
	}
	matrix := make([][]float32, n)
	for i := range matrix {
		matrix[i] = flat[i*width : (i+1)*width : (i+1)*width]
	}
	return matrix, nil
}

func writeChunks(w io.Writer, chunks []domain.Chunk) error {
	enc := json.NewEncoder(w)
	for _, c := range chunks {
		if err := enc.Encode(chunkLine{Content: c.Content, Metadata: c}); err != nil {
			return err
		}
	}
	return nil
}

func readChunks(path string) ([]domain.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	var chunks []domain.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var line chunkLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", domain.ErrMalformedIndex, len(chunks), err)
		}
		c := line.Metadata
		c.Content = line.Content
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedIndex, err)
	}
	return chunks, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return openError(path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedIndex, filepath.Base(path), err)
	}
	return nil
}

func openError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	return fmt.Errorf("open %s: %w", path, err)
}

func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
