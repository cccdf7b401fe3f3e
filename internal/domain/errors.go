package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeConfig            = "CONFIG_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeDimensionMismatch = "DIMENSION_MISMATCH"
	ErrCodeGeneration        = "GENERATION_ERROR"
	ErrCodeIndexing          = "INDEXING_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidOperation  = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidDocumentStatus = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidIndexJobStatus = NewDomainError(ErrCodeValidation, "invalid index job status")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuestion         = NewDomainError(ErrCodeValidation, "question cannot be empty")
)

// Configuration errors
var (
	ErrChunkOverlapTooLarge = NewDomainError(ErrCodeConfig, "chunk overlap must be strictly less than max tokens")
	ErrInvalidChunkSize     = NewDomainError(ErrCodeConfig, "chunk max tokens must be positive")
	ErrInvalidFusionWeight  = NewDomainError(ErrCodeConfig, "fusion weight alpha must be in [0,1]")
)

// Not found errors
var (
	ErrDocumentNotFound    = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound       = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrQuestionLogNotFound = NewDomainError(ErrCodeNotFound, "question log entry not found")
	ErrIndexJobNotFound    = NewDomainError(ErrCodeNotFound, "index job not found")
	ErrIndexNotFound       = NewDomainError(ErrCodeNotFound, "no index built for document")
)

// Retrieval errors
var (
	ErrDimensionMismatch = NewDomainError(ErrCodeDimensionMismatch, "query vector dimension does not match index dimension")
)

// Collaborator errors
var (
	ErrGenerationFailed = NewDomainError(ErrCodeGeneration, "generative model call failed")
	ErrIndexingFailed   = NewDomainError(ErrCodeIndexing, "document indexing failed")
)

// Operation errors
var (
	ErrDocumentNotIndexed = NewDomainError(ErrCodeInvalidOperation, "document has not finished indexing")
)
