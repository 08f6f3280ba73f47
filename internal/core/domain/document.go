package domain

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"time"
)

// documentIDLength is the number of hex characters kept from the content hash.
const documentIDLength = 12

// Document represents a policy document loaded from the corpus.
// Documents are immutable once created.
type Document struct {
	// ID is derived from the content hash, so identical content always
	// maps to the same identifier.
	ID string `json:"id"`

	// Name is the file name, used as the human-readable source marker.
	Name string `json:"name"`

	// Path is the original location on disk.
	Path string `json:"path"`

	// Size is the content length in bytes.
	Size int `json:"size"`

	// ModifiedAt is the file modification time.
	ModifiedAt time.Time `json:"modified"`

	// Type is the file extension including the dot.
	Type string `json:"type"`

	// Content is the full text. It is held only while the document is
	// being chunked and is never persisted with the index.
	Content string `json:"-"`
}

// NewDocument builds a document from its file content.
func NewDocument(name, path, content string, modifiedAt time.Time, fileType string) Document {
	return Document{
		ID:         DocumentID(content),
		Name:       name,
		Path:       path,
		Size:       len(content),
		ModifiedAt: modifiedAt,
		Type:       fileType,
		Content:    content,
	}
}

// Metadata returns a copy of the document without its content.
func (d Document) Metadata() Document {
	d.Content = ""
	return d
}

// DocumentID returns the content-addressed identifier for the given content.
func DocumentID(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])[:documentIDLength]
}

// Chunk represents a searchable unit within a document.
// Documents are split into overlapping chunks, each embedded and indexed.
type Chunk struct {
	// ID is "{document_id}_chunk_{index}".
	ID string `json:"chunk_id"`

	// DocumentID links to the parent Document.
	DocumentID string `json:"id"`

	// Index is the ordinal position within the document.
	Index int `json:"chunk_index"`

	// TotalChunks is the number of chunks the document produced.
	TotalChunks int `json:"total_chunks"`

	// Content is the text content of this chunk.
	Content string `json:"-"`

	// CharLength is the content length in characters.
	CharLength int `json:"chunk_size"`

	// Section is the nearest preceding markdown heading, empty when none.
	Section string `json:"section,omitempty"`
}

// HasSection reports whether the chunk sits under a heading.
func (c Chunk) HasSection() bool {
	return c.Section != ""
}
