package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/refdesk-ai/refdesk/internal/config"
	"github.com/refdesk-ai/refdesk/internal/extract"
	"github.com/refdesk-ai/refdesk/internal/jobs"
	"github.com/refdesk-ai/refdesk/internal/service"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a document from a local file",
		Long:  "Extract text from a local file, store it as a document and queue it for indexing",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().StringP("title", "t", "", "Document title (defaults to the file name)")
	cmd.Flags().Bool("index", false, "Index the document immediately instead of waiting for the worker")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	content, err := extract.FromFile(filepath.Base(path), raw)
	if err != nil {
		return fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = filepath.Base(path)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	deps, err := buildServices(ctx, cfg, pool)
	if err != nil {
		return err
	}

	doc, err := deps.docSvc.Create(ctx, service.CreateDocumentInput{
		Title:      title,
		Content:    content,
		SourceName: filepath.Base(path),
		Raw:        raw,
	})
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	fmt.Printf("Document created: %s (%q, %d bytes of text)\n", doc.ID, doc.Title, len(content))

	index, _ := cmd.Flags().GetBool("index")
	if !index {
		fmt.Println("Queued for indexing; a running serve instance will pick it up.")
		return nil
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("cannot index: OPENAI_API_KEY not set")
	}

	log.Println("indexing document...")
	processor := jobs.NewIndexWorker(deps.jobRepo, deps.indexingSvc)
	if err := processor.ProcessJobs(ctx); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	updated, err := deps.docSvc.GetByID(ctx, doc.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Document status: %s\n", updated.Status)
	return nil
}
