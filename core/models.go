package core

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored documents.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// IDFromDocument derives the ID of a document from its DocumentKey, so two
// documents that deduplicate to one also share a storage identity.
func IDFromDocument(doc Document) ID {
	key := doc.Key()
	return IDFromContent(strconv.Itoa(len(key.Content)) + ":" + key.Content + key.Metadata)
}

// StoredDocument is a document persisted by the local index together with
// its embedding.
type StoredDocument struct {
	Id         ID
	Document   Document
	Vector     []float32 // Normalized embedding of Document.Content
	InsertedAt time.Time // When the document was first written
	UpdatedAt  time.Time // When the document or its vector last changed
}

// SimilarityMatch represents a stored document match from vector similarity search.
type SimilarityMatch struct {
	DocumentId ID
	Score      float32
}

// SearchResult represents a search result with the full document and relevance score.
type SearchResult struct {
	Document *StoredDocument
	Score    float32
}

// Checkpoint records how far a long-running processor got, so an interrupted
// run can resume after LastId.
type Checkpoint struct {
	ProcessorType string
	LastId        ID
	Processed     int
	UpdatedAt     time.Time
}
