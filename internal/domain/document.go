package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the indexing lifecycle of an uploaded document
type DocumentStatus string

const (
	DocumentStatusUploaded DocumentStatus = "uploaded"
	DocumentStatusChunked  DocumentStatus = "chunked"
	DocumentStatusIndexed  DocumentStatus = "indexed"
	DocumentStatusFailed   DocumentStatus = "failed"
)

// Document represents an uploaded document in the portal
type Document struct {
	ID         string
	Title      string
	Content    string
	Status     DocumentStatus
	SourceName string // Original filename, empty for raw text uploads
	StorageKey string // Object storage key for the raw file, empty if not archived
	ChunkCount int
	UploadedAt time.Time
	UpdatedAt  time.Time
}

// NewDocument creates a new Document instance in the uploaded state
func NewDocument(id, title, content string, uploadedAt time.Time) *Document {
	return &Document{
		ID:         id,
		Title:      title,
		Content:    content,
		Status:     DocumentStatusUploaded,
		UploadedAt: uploadedAt,
		UpdatedAt:  uploadedAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return NewDomainError(ErrCodeValidation, "document ID is required")
	}

	if d.Title == "" {
		return NewDomainError(ErrCodeValidation, "document title is required")
	}

	if !isValidDocumentStatus(d.Status) {
		return ErrInvalidDocumentStatus
	}

	if d.ChunkCount < 0 {
		return NewDomainError(ErrCodeValidation, "document chunk count cannot be negative")
	}

	return nil
}

// CanTransitionTo reports whether the status may move to next.
// The pipeline is uploaded -> chunked -> indexed, with failed reachable from
// any non-terminal state. Re-upload resets to uploaded, and a retry of a
// failed document re-enters the pipeline at chunked.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	if !isValidDocumentStatus(next) {
		return false
	}
	switch s {
	case DocumentStatusUploaded:
		return next == DocumentStatusChunked || next == DocumentStatusFailed
	case DocumentStatusChunked:
		return next == DocumentStatusIndexed || next == DocumentStatusFailed
	case DocumentStatusIndexed:
		return next == DocumentStatusUploaded
	case DocumentStatusFailed:
		return next == DocumentStatusUploaded || next == DocumentStatusChunked
	}
	return false
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusChunked,
		DocumentStatusIndexed, DocumentStatusFailed:
		return true
	}
	return false
}
