// Package jobs runs the background indexing pipeline. A Worker polls for
// pending index jobs and hands each one to the indexing service.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/refdesk-ai/refdesk/internal/telemetry"
)

// JobProcessor processes one batch of claimed jobs per invocation.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor on a fixed interval until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop. It returns when the context is cancelled or
// Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("Index worker started with poll interval: %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Index worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Index worker stopped: stop signal received")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("Error processing index jobs: %v", err)
				telemetry.CaptureError(ctx, err)
			}
		}
	}
}

// Stop signals the worker and waits for the loop to exit.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("Index worker shutdown complete")
}
