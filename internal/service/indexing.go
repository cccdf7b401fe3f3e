package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/index"
	"github.com/refdesk-ai/refdesk/internal/telemetry"
)

// IndexingDocumentRepository defines the repository interface for document
// status tracking during indexing.
type IndexingDocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	UpdateChunkCount(ctx context.Context, id string, count int) error
}

// IndexingChunkRepository defines the repository interface for chunk persistence.
type IndexingChunkRepository interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// IndexingService rebuilds a document's retrieval indexes from its text:
// chunking, chunk embeddings, the lexical index, and the semantic index.
// The finished pair is installed in the registry as one snapshot.
type IndexingService struct {
	docRepo   IndexingDocumentRepository
	chunkRepo IndexingChunkRepository
	embedder  EmbeddingClient
	registry  *IndexRegistry
	uuidGen   UUIDGenerator
	chunkCfg  ChunkConfig
	retCfg    RetrievalConfig
}

// NewIndexingService creates a new IndexingService instance.
func NewIndexingService(
	docRepo IndexingDocumentRepository,
	chunkRepo IndexingChunkRepository,
	embedder EmbeddingClient,
	registry *IndexRegistry,
	chunkCfg ChunkConfig,
	retCfg RetrievalConfig,
) *IndexingService {
	return &IndexingService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		registry:  registry,
		uuidGen:   &DefaultUUIDGenerator{},
		chunkCfg:  chunkCfg,
		retCfg:    retCfg,
	}
}

// NewIndexingServiceWithUUIDGen creates an IndexingService with a custom
// UUID generator (for testing).
func NewIndexingServiceWithUUIDGen(
	docRepo IndexingDocumentRepository,
	chunkRepo IndexingChunkRepository,
	embedder EmbeddingClient,
	registry *IndexRegistry,
	chunkCfg ChunkConfig,
	retCfg RetrievalConfig,
	uuidGen UUIDGenerator,
) *IndexingService {
	s := NewIndexingService(docRepo, chunkRepo, embedder, registry, chunkCfg, retCfg)
	s.uuidGen = uuidGen
	return s
}

// IndexDocument chunks, embeds, and indexes one document, then swaps the
// resulting snapshot into the registry. The document moves
// uploaded -> chunked -> indexed, or to failed when any stage errors.
// A failed run leaves the previous snapshot in place so readers keep
// querying the last good indexes.
func (s *IndexingService) IndexDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexingService.IndexDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "index",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.indexDocument(ctx, doc); err != nil {
		span.SetError(err)
		if doc.Status.CanTransitionTo(domain.DocumentStatusFailed) {
			if stErr := s.docRepo.UpdateStatus(ctx, documentID, domain.DocumentStatusFailed); stErr != nil {
				telemetry.CaptureError(ctx, stErr)
			}
		}
		return err
	}

	return nil
}

func (s *IndexingService) indexDocument(ctx context.Context, doc *domain.Document) error {
	chunks, err := ChunkDocument(doc.ID, doc.Content, s.chunkCfg)
	if err != nil {
		return err
	}

	for i := range chunks {
		chunks[i].ID = s.uuidGen.NewString()
	}

	if !doc.Status.CanTransitionTo(domain.DocumentStatusChunked) {
		return domain.ErrInvalidDocumentStatus
	}
	if err := s.docRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusChunked); err != nil {
		return err
	}
	// Keep the in-memory status in step so a later failure in this run can
	// still move the document to failed.
	doc.Status = domain.DocumentStatusChunked

	for i := range chunks {
		embedding, err := s.embedder.GenerateEmbedding(ctx, chunks[i].Content)
		if err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeIndexing,
				fmt.Sprintf("failed to embed chunk %d", chunks[i].Index), err)
		}
		chunks[i].Embedding = embedding
	}

	snap, err := s.buildSnapshot(doc.ID, chunks)
	if err != nil {
		return err
	}

	if err := s.chunkRepo.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return err
	}
	if err := s.docRepo.UpdateChunkCount(ctx, doc.ID, len(chunks)); err != nil {
		return err
	}
	if err := s.docRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusIndexed); err != nil {
		return err
	}

	s.registry.Swap(snap)
	return nil
}

// buildSnapshot constructs the lexical and semantic indexes for a chunk set.
// The two builds are independent and run concurrently.
func (s *IndexingService) buildSnapshot(documentID string, chunks []domain.Chunk) (*IndexSnapshot, error) {
	chunkIDs := make([]string, len(chunks))
	tokenized := make([][]string, len(chunks))
	for i := range chunks {
		chunkIDs[i] = chunks[i].ID
		tokenized[i] = index.Tokenize(chunks[i].Content, index.TokenizerConfig{
			RemoveStopWords: s.retCfg.RemoveStopWords,
		})
	}

	var (
		wg       sync.WaitGroup
		lexical  *index.BM25Index
		semantic *index.VectorIndex
		semErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		lexical = index.NewBM25Index(chunkIDs, tokenized, index.BM25Params{K1: s.retCfg.K1, B: s.retCfg.B})
	}()
	go func() {
		defer wg.Done()
		semantic = index.NewVectorIndex(0)
		for i := range chunks {
			if err := semantic.Add(chunks[i].ID, chunks[i].Embedding); err != nil {
				semErr = domain.NewDomainErrorWithCause(domain.ErrCodeIndexing,
					fmt.Sprintf("failed to index chunk %d embedding", chunks[i].Index), err)
				return
			}
		}
	}()
	wg.Wait()

	if semErr != nil {
		return nil, semErr
	}

	// The snapshot keeps chunk text and offsets for answer composition but
	// not the embeddings, which already live inside the vector index.
	stripped := make([]domain.Chunk, len(chunks))
	copy(stripped, chunks)
	for i := range stripped {
		stripped[i].Embedding = nil
	}

	return &IndexSnapshot{
		DocumentID: documentID,
		Chunks:     stripped,
		Lexical:    lexical,
		Semantic:   semantic,
		BuiltAt:    time.Now().UTC(),
	}, nil
}

// RebuildFromStore reinstalls the snapshot for one document from persisted
// chunks, without calling the embedding API. Used at startup and after a
// registry miss for a document that is already indexed.
func (s *IndexingService) RebuildFromStore(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexingService.RebuildFromStore", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "rebuild",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.DocumentStatusIndexed {
		return domain.ErrDocumentNotIndexed
	}

	chunks, err := s.chunkRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return domain.ErrChunkNotFound
	}

	snap, err := s.buildSnapshot(documentID, chunks)
	if err != nil {
		return err
	}

	s.registry.Swap(snap)
	return nil
}

// RemoveDocument drops a document's snapshot from the registry.
func (s *IndexingService) RemoveDocument(documentID string) {
	s.registry.Remove(documentID)
}
