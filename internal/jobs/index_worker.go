package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts before a job is failed
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one poll cycle claims
	claimBatchSize = 10
)

// IndexJobRepository defines the persistence operations the worker needs
type IndexJobRepository interface {
	// ClaimPending atomically claims up to limit pending jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.IndexJob, error)

	// UpdateStatus updates a job's status and error message
	UpdateStatus(ctx context.Context, id string, status domain.IndexJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, id string) error
}

// DocumentIndexer runs the chunk-embed-index pipeline for one document
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, documentID string) error
}

// IndexWorker processes index jobs claimed from the queue
type IndexWorker struct {
	repo    IndexJobRepository
	indexer DocumentIndexer
}

func NewIndexWorker(repo IndexJobRepository, indexer DocumentIndexer) *IndexWorker {
	return &IndexWorker{
		repo:    repo,
		indexer: indexer,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IndexWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending index jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IndexWorker) processJob(ctx context.Context, job *domain.IndexJob) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexWorker.processJob", telemetry.SpanAttributes{
		DocumentID: job.DocumentID,
		Operation:  "index_job",
	})
	defer span.End()

	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)

	if err := w.indexer.IndexDocument(ctx, job.DocumentID); err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// handleJobFailure requeues the job for retry or fails it once retries are
// exhausted
func (w *IndexWorker) handleJobFailure(ctx context.Context, job *domain.IndexJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
