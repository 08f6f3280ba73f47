// Package chunker provides a recursive separator text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/riskpilot/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// defaultSeparators are tried in order. The empty separator cuts between characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Processor splits document content into overlapping chunks.
// It prefers paragraph boundaries, then lines, sentences and words, and only
// cuts inside a word when nothing else fits. It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: defaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Content == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	spans := p.split(doc.Content, span{0, len(doc.Content)}, p.separators)

	chunks := make([]domain.Chunk, 0, len(spans))
	for _, s := range spans {
		s = trimSpan(doc.Content, s)
		if s.start >= s.end {
			continue
		}
		content := doc.Content[s.start:s.end]
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			Content:    content,
			CharLength: utf8.RuneCountInString(content),
			Section:    sectionBefore(doc.Content, s.start),
		})
	}

	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s_chunk_%d", doc.ID, i)
		chunks[i].Index = i
		chunks[i].TotalChunks = len(chunks)
	}

	return chunks, nil
}

// span is a half-open byte range of the source text.
type span struct {
	start, end int
}

func (p *Processor) split(text string, s span, separators []string) []span {
	segment := text[s.start:s.end]

	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(segment, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var out, pending []span
	for _, piece := range splitKeepingSeparator(segment, s.start, sep) {
		if p.length(text, piece) < p.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, p.merge(text, pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, p.split(text, piece, rest)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, p.merge(text, pending)...)
	}
	return out
}

// merge greedily packs adjacent pieces into chunks of at most chunkSize
// characters, carrying trailing pieces of up to overlap characters into the next chunk.
func (p *Processor) merge(text string, pieces []span) []span {
	var out, current []span
	total := 0

	for _, piece := range pieces {
		n := p.length(text, piece)
		if total+n > p.chunkSize && len(current) > 0 {
			out = append(out, span{current[0].start, current[len(current)-1].end})
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= p.length(text, current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if len(current) > 0 {
		out = append(out, span{current[0].start, current[len(current)-1].end})
	}
	return out
}

func (p *Processor) length(text string, s span) int {
	return utf8.RuneCountInString(text[s.start:s.end])
}

// splitKeepingSeparator splits segment on sep, leaving each separator attached
// to the end of the piece before it. The empty separator yields one piece per rune.
func splitKeepingSeparator(segment string, offset int, sep string) []span {
	var pieces []span
	if sep == "" {
		for i, r := range segment {
			pieces = append(pieces, span{offset + i, offset + i + utf8.RuneLen(r)})
		}
		return pieces
	}

	start := 0
	for {
		idx := strings.Index(segment[start:], sep)
		if idx < 0 {
			break
		}
		end := start + idx + len(sep)
		pieces = append(pieces, span{offset + start, offset + end})
		start = end
	}
	if start < len(segment) {
		pieces = append(pieces, span{offset + start, offset + len(segment)})
	}
	return pieces
}

func trimSpan(text string, s span) span {
	segment := text[s.start:s.end]
	left := len(segment) - len(strings.TrimLeftFunc(segment, unicode.IsSpace))
	right := len(strings.TrimRightFunc(segment, unicode.IsSpace))
	if left >= right {
		return span{s.start, s.start}
	}
	return span{s.start + left, s.start + right}
}

// sectionBefore returns the nearest markdown heading above offset.
func sectionBefore(text string, offset int) string {
	lines := strings.Split(text[:offset], "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "#") {
			return strings.TrimSpace(strings.Trim(lines[i], "#"))
		}
	}
	return ""
}
