package service

import (
	"context"
	"testing"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDocumentService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates document and queues index job", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		jobRepo := new(MockIndexJobRepository)
		svc := NewDocumentServiceWithUUIDGen(docRepo, jobRepo, NewIndexRegistry(), NewMockUUIDGenerator("doc-id-1", "job-id-1"))

		docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
			return d.ID == "doc-id-1" &&
				d.Title == "Manual" &&
				d.Content == "some content" &&
				d.Status == domain.DocumentStatusUploaded
		})).Return(nil)
		jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.IndexJob) bool {
			return job.ID == "job-id-1" &&
				job.DocumentID == "doc-id-1" &&
				job.Status == domain.IndexJobStatusPending
		})).Return(nil)

		doc, err := svc.Create(ctx, CreateDocumentInput{Title: "Manual", Content: "some content"})
		require.NoError(t, err)
		assert.Equal(t, "doc-id-1", doc.ID)

		docRepo.AssertExpectations(t)
		jobRepo.AssertExpectations(t)
	})

	t.Run("returns validation error on missing title", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		jobRepo := new(MockIndexJobRepository)
		svc := NewDocumentService(docRepo, jobRepo, NewIndexRegistry())

		_, err := svc.Create(ctx, CreateDocumentInput{Title: "", Content: "content"})
		require.Error(t, err)
		docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("stores raw upload when blob storage configured", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		jobRepo := new(MockIndexJobRepository)
		blobs := new(MockBlobStore)
		svc := NewDocumentServiceWithBlobs(docRepo, jobRepo, NewIndexRegistry(), blobs)
		svc.uuidGen = NewMockUUIDGenerator("doc-id-1", "job-id-1")

		blobs.On("PutObject", mock.Anything, "documents/doc-id-1/manual.pdf", []byte("%PDF"), "application/pdf").Return(nil)
		docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
			return d.StorageKey == "documents/doc-id-1/manual.pdf"
		})).Return(nil)
		jobRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.Create(ctx, CreateDocumentInput{
			Title:      "Manual",
			Content:    "extracted text",
			SourceName: "manual.pdf",
			Raw:        []byte("%PDF"),
			RawType:    "application/pdf",
		})
		require.NoError(t, err)
		blobs.AssertExpectations(t)
	})
}

func TestDocumentService_Replace(t *testing.T) {
	ctx := context.Background()

	t.Run("resets status and queues a new index job", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		jobRepo := new(MockIndexJobRepository)
		svc := NewDocumentServiceWithUUIDGen(docRepo, jobRepo, NewIndexRegistry(), NewMockUUIDGenerator("job-id-2"))

		existing := &domain.Document{
			ID:         "doc-1",
			Title:      "Old",
			Content:    "old content",
			Status:     domain.DocumentStatusIndexed,
			UploadedAt: time.Now().UTC(),
		}
		docRepo.On("GetByID", mock.Anything, "doc-1").Return(existing, nil)
		docRepo.On("Update", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
			return d.Title == "New" &&
				d.Content == "new content" &&
				d.Status == domain.DocumentStatusUploaded
		})).Return(nil)
		jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.IndexJob) bool {
			return job.DocumentID == "doc-1"
		})).Return(nil)

		doc, err := svc.Replace(ctx, "doc-1", "New", "new content")
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentStatusUploaded, doc.Status)
	})

	t.Run("propagates not found", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		svc := NewDocumentService(docRepo, new(MockIndexJobRepository), NewIndexRegistry())

		docRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrDocumentNotFound)

		_, err := svc.Replace(ctx, "missing", "New", "content")
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})
}

func TestDocumentService_List(t *testing.T) {
	ctx := context.Background()

	docRepo := new(MockDocumentRepository)
	svc := NewDocumentService(docRepo, new(MockIndexJobRepository), NewIndexRegistry())

	page := &DocumentPageResult{
		Items:      []*domain.Document{{ID: "doc-1"}, {ID: "doc-2"}},
		NextCursor: "next",
		HasMore:    true,
	}
	docRepo.On("ListWithCursor", mock.Anything, (*pagination.Cursor)(nil), 20).Return(page, nil)

	out, err := svc.List(ctx, ListDocumentsInput{})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, "next", out.Cursor)
	assert.True(t, out.HasMore)
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes document, blob, and snapshot", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		blobs := new(MockBlobStore)
		registry := NewIndexRegistry()
		registry.Swap(testSnapshot("doc-1"))
		svc := NewDocumentServiceWithBlobs(docRepo, new(MockIndexJobRepository), registry, blobs)

		doc := &domain.Document{ID: "doc-1", Title: "T", StorageKey: "documents/doc-1/file.txt"}
		docRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		docRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
		blobs.On("DeleteObject", mock.Anything, "documents/doc-1/file.txt").Return(nil)

		err := svc.Delete(ctx, "doc-1")
		require.NoError(t, err)

		_, ok := registry.Get("doc-1")
		assert.False(t, ok)
		blobs.AssertExpectations(t)
	})

	t.Run("blob deletion failure does not fail the request", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		blobs := new(MockBlobStore)
		svc := NewDocumentServiceWithBlobs(docRepo, new(MockIndexJobRepository), NewIndexRegistry(), blobs)

		doc := &domain.Document{ID: "doc-1", Title: "T", StorageKey: "k"}
		docRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		docRepo.On("Delete", mock.Anything, "doc-1").Return(nil)
		blobs.On("DeleteObject", mock.Anything, "k").Return(assert.AnError)

		assert.NoError(t, svc.Delete(ctx, "doc-1"))
	})
}

func TestDocumentService_DownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("returns presigned URL", func(t *testing.T) {
		docRepo := new(MockDocumentRepository)
		blobs := new(MockBlobStore)
		svc := NewDocumentServiceWithBlobs(docRepo, new(MockIndexJobRepository), NewIndexRegistry(), blobs)

		doc := &domain.Document{ID: "doc-1", Title: "T", StorageKey: "k"}
		docRepo.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
		blobs.On("GenerateDownloadURL", mock.Anything, "k").Return("https://example.com/signed", nil)

		url, err := svc.DownloadURL(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/signed", url)
	})

	t.Run("errors without blob storage", func(t *testing.T) {
		svc := NewDocumentService(new(MockDocumentRepository), new(MockIndexJobRepository), NewIndexRegistry())

		_, err := svc.DownloadURL(ctx, "doc-1")
		require.Error(t, err)

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeInvalidOperation, domainErr.Code)
	})
}
