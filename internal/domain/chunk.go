package domain

import "time"

// Chunk represents one bounded, possibly overlapping span of a document's
// text. Chunks are immutable once created; a re-upload replaces the whole
// set for the owning document.
type Chunk struct {
	ID          string
	DocumentID  string
	Index       int // Ordinal position within the document
	Content     string
	StartOffset int // Absolute rune offset into the document text
	EndOffset   int
	TokenCount  int
	Embedding   []float32
	CreatedAt   time.Time
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return NewDomainError(ErrCodeValidation, "chunk cannot be nil")
	}
	if c.DocumentID == "" {
		return NewDomainError(ErrCodeValidation, "chunk document ID is required")
	}
	if c.Index < 0 {
		return NewDomainError(ErrCodeValidation, "chunk index cannot be negative")
	}
	if c.Content == "" {
		return NewDomainError(ErrCodeValidation, "chunk content is required")
	}
	if c.StartOffset < 0 || c.EndOffset < c.StartOffset {
		return NewDomainError(ErrCodeValidation, "chunk offsets are inconsistent")
	}
	if c.TokenCount < 0 {
		return NewDomainError(ErrCodeValidation, "chunk token count cannot be negative")
	}
	return nil
}
