package domain

import (
	"fmt"
	"time"
)

// IndexJobStatus represents the status of a document indexing job
type IndexJobStatus string

const (
	IndexJobStatusPending    IndexJobStatus = "pending"
	IndexJobStatusProcessing IndexJobStatus = "processing"
	IndexJobStatusCompleted  IndexJobStatus = "completed"
	IndexJobStatusFailed     IndexJobStatus = "failed"
)

// IndexJob represents an async job that chunks a document and builds its
// lexical and semantic indexes
type IndexJob struct {
	ID          string
	DocumentID  string
	Status      IndexJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIndexJob creates a pending IndexJob for a document
func NewIndexJob(id, documentID string, createdAt time.Time) *IndexJob {
	return &IndexJob{
		ID:         id,
		DocumentID: documentID,
		Status:     IndexJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateIndexJob validates an IndexJob instance
func ValidateIndexJob(j *IndexJob) error {
	if j == nil {
		return fmt.Errorf("index job cannot be nil")
	}

	if j.ID == "" {
		return NewDomainError(ErrCodeValidation, "index job ID is required")
	}

	if j.DocumentID == "" {
		return NewDomainError(ErrCodeValidation, "index job document ID is required")
	}

	if !isValidIndexJobStatus(j.Status) {
		return ErrInvalidIndexJobStatus
	}

	if j.Retries < 0 {
		return NewDomainError(ErrCodeValidation, "index job retries cannot be negative")
	}

	return nil
}

func isValidIndexJobStatus(s IndexJobStatus) bool {
	switch s {
	case IndexJobStatusPending, IndexJobStatusProcessing,
		IndexJobStatusCompleted, IndexJobStatusFailed:
		return true
	}
	return false
}
