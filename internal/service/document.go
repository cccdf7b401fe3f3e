package service

import (
	"context"
	"fmt"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/pagination"
	"github.com/refdesk-ai/refdesk/internal/telemetry"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Update(ctx context.Context, d *domain.Document) error
	Delete(ctx context.Context, id string) error
}

// DocumentPageResult is one page of documents.
type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// IndexJobRepositoryInterface defines the repository interface for index job persistence
type IndexJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IndexJob) error
}

// BlobStore persists raw uploaded files. Optional; the service runs without it.
type BlobStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// DocumentService handles business logic for documents: creation, uploads,
// listing, and deletion, plus queueing of index jobs.
type DocumentService struct {
	docRepo  DocumentRepositoryInterface
	jobRepo  IndexJobRepositoryInterface
	registry *IndexRegistry
	blobs    BlobStore
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(docRepo DocumentRepositoryInterface, jobRepo IndexJobRepositoryInterface, registry *IndexRegistry) *DocumentService {
	return &DocumentService{
		docRepo:  docRepo,
		jobRepo:  jobRepo,
		registry: registry,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewDocumentServiceWithBlobs creates a DocumentService that also stores raw
// uploads in blob storage.
func NewDocumentServiceWithBlobs(docRepo DocumentRepositoryInterface, jobRepo IndexJobRepositoryInterface, registry *IndexRegistry, blobs BlobStore) *DocumentService {
	s := NewDocumentService(docRepo, jobRepo, registry)
	s.blobs = blobs
	return s
}

// NewDocumentServiceWithTx creates a DocumentService that writes the
// document row and its index job in one transaction.
func NewDocumentServiceWithTx(docRepo DocumentRepositoryInterface, jobRepo IndexJobRepositoryInterface, registry *IndexRegistry, blobs BlobStore, txRunner TxRunner) *DocumentService {
	s := NewDocumentService(docRepo, jobRepo, registry)
	s.blobs = blobs
	s.txRunner = txRunner
	return s
}

// NewDocumentServiceWithUUIDGen creates a DocumentService with a custom UUID
// generator (for testing).
func NewDocumentServiceWithUUIDGen(docRepo DocumentRepositoryInterface, jobRepo IndexJobRepositoryInterface, registry *IndexRegistry, uuidGen UUIDGenerator) *DocumentService {
	s := NewDocumentService(docRepo, jobRepo, registry)
	s.uuidGen = uuidGen
	return s
}

// CreateDocumentInput represents the input for creating a document
type CreateDocumentInput struct {
	Title      string
	Content    string
	SourceName string
	Raw        []byte // Original uploaded file, stored when blob storage is configured
	RawType    string
}

// ListDocumentsInput carries cursor pagination parameters.
type ListDocumentsInput struct {
	Cursor string
	Limit  int
}

// ListDocumentsOutput is one page of documents with the next cursor.
type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// Create persists a new document and queues an index job for it.
func (s *DocumentService) Create(ctx context.Context, input CreateDocumentInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Create", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), input.Title, input.Content, now)
	doc.SourceName = input.SourceName

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if s.blobs != nil && len(input.Raw) > 0 {
		key := buildStorageKey(doc.ID, input.SourceName)
		if err := s.blobs.PutObject(ctx, key, input.Raw, input.RawType); err != nil {
			return nil, fmt.Errorf("failed to store raw document: %w", err)
		}
		doc.StorageKey = key
	}

	job := domain.NewIndexJob(s.uuidGen.NewString(), doc.ID, now)

	if s.txRunner != nil {
		err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Documents().Create(ctx, doc); err != nil {
				return err
			}
			return repos.IndexJobs().Create(ctx, job)
		})
		if err != nil {
			return nil, err
		}
		return doc, nil
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	return doc, nil
}

// Replace overwrites a document's text and queues a fresh index job. The
// previous snapshot stays live until the rebuild swaps it out.
func (s *DocumentService) Replace(ctx context.Context, id, title, content string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Replace", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "replace",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc.Title = title
	doc.Content = content
	doc.Status = domain.DocumentStatusUploaded
	doc.UpdatedAt = now

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	job := domain.NewIndexJob(s.uuidGen.NewString(), doc.ID, now)
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	return doc, nil
}

// GetByID retrieves a document by ID
func (s *DocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, id)
}

// List retrieves a page of documents, most recently uploaded first.
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.docRepo.ListWithCursor(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Delete removes a document, its persisted chunks and logs (cascaded by the
// database), its stored blob, and its live snapshot.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		return err
	}

	if s.blobs != nil && doc.StorageKey != "" {
		if err := s.blobs.DeleteObject(ctx, doc.StorageKey); err != nil {
			telemetry.CaptureError(ctx, err)
		}
	}

	s.registry.Remove(id)
	return nil
}

// DownloadURL returns a presigned URL for the document's original upload.
func (s *DocumentService) DownloadURL(ctx context.Context, id string) (string, error) {
	if s.blobs == nil {
		return "", domain.NewDomainError(domain.ErrCodeInvalidOperation, "blob storage not configured")
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.StorageKey == "" {
		return "", domain.NewDomainError(domain.ErrCodeNotFound, "document has no stored upload")
	}

	return s.blobs.GenerateDownloadURL(ctx, doc.StorageKey)
}

func buildStorageKey(documentID, sourceName string) string {
	if sourceName == "" {
		sourceName = "document.txt"
	}
	return fmt.Sprintf("documents/%s/%s", documentID, sourceName)
}
