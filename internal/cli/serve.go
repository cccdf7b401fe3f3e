// Package cli implements the refdeskd commands.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/refdesk-ai/refdesk/internal/api/handlers"
	"github.com/refdesk-ai/refdesk/internal/config"
	"github.com/refdesk-ai/refdesk/internal/jobs"
	"github.com/refdesk-ai/refdesk/internal/openai"
	"github.com/refdesk-ai/refdesk/internal/repository"
	"github.com/refdesk-ai/refdesk/internal/server"
	"github.com/refdesk-ai/refdesk/internal/service"
	"github.com/refdesk-ai/refdesk/internal/storage"
	"github.com/refdesk-ai/refdesk/internal/telemetry"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the refdesk API server and the background index worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	deps, err := buildServices(ctx, cfg, pool)
	if err != nil {
		return err
	}

	// Indexes live in memory; rebuild them from the persisted chunks so
	// already indexed documents answer questions after a restart.
	if err := rebuildIndexes(ctx, deps.docRepo, deps.indexingSvc); err != nil {
		return err
	}

	var worker *jobs.Worker
	if cfg.HasOpenAI() {
		processor := jobs.NewIndexWorker(deps.jobRepo, deps.indexingSvc)
		worker = jobs.NewWorker(processor, cfg.WorkerPollInterval)
		go worker.Start(ctx)
		log.Println("index worker started")
	} else {
		log.Println("OPENAI_API_KEY not set: indexing and answering disabled")
	}

	routerCfg := server.RouterConfig{
		DocumentHandler:  handlers.NewDocumentHandler(deps.docSvc),
		QuestionHandler:  handlers.NewQuestionHandler(deps.answerSvc, deps.questionLogSvc),
		DashboardHandler: handlers.NewDashboardHandler(deps.questionLogSvc),
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.NewRouter(routerCfg),
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// serviceDeps bundles the wired services the commands share.
type serviceDeps struct {
	docRepo        *repository.DocumentRepository
	jobRepo        *repository.IndexJobRepository
	registry       *service.IndexRegistry
	docSvc         *service.DocumentService
	indexingSvc    *service.IndexingService
	answerSvc      *service.AnswerService
	questionLogSvc *service.QuestionLogService
}

func buildServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*serviceDeps, error) {
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewIndexJobRepository(pool)
	logRepo := repository.NewQuestionLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	registry := service.NewIndexRegistry()

	var blobs service.BlobStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		blobs = s3Client
	}

	var embedder service.EmbeddingClient = &noOpEmbedder{}
	var generator service.Generator = &noOpGenerator{}
	if cfg.HasOpenAI() {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		embedder = client
		generator = client
	}

	chunkCfg := service.ChunkConfig{
		MaxTokens:     cfg.ChunkMaxTokens,
		OverlapTokens: cfg.ChunkOverlapTokens,
	}
	retCfg := service.RetrievalConfig{
		K1:                  cfg.BM25K1,
		B:                   cfg.BM25B,
		Alpha:               cfg.FusionAlpha,
		TopK:                cfg.TopK,
		CandidateMultiplier: cfg.CandidateMultiplier,
		AmbiguityGap:        cfg.AmbiguityGap,
		RemoveStopWords:     cfg.RemoveStopWords,
	}
	if err := chunkCfg.Validate(); err != nil {
		return nil, err
	}
	if err := retCfg.Validate(); err != nil {
		return nil, err
	}

	indexingSvc := service.NewIndexingService(docRepo, chunkRepo, embedder, registry, chunkCfg, retCfg)
	ranker := service.NewRanker(registry, embedder, retCfg)

	return &serviceDeps{
		docRepo:        docRepo,
		jobRepo:        jobRepo,
		registry:       registry,
		docSvc:         service.NewDocumentServiceWithTx(docRepo, jobRepo, registry, blobs, txRunner),
		indexingSvc:    indexingSvc,
		answerSvc: service.NewAnswerService(ranker, generator, docRepo, logRepo, service.AnswerConfig{
			Timeout:             cfg.AnswerTimeout,
			ConfidenceThreshold: cfg.ConfidenceThreshold,
		}),
		questionLogSvc: service.NewQuestionLogService(logRepo, logRepo),
	}, nil
}

func rebuildIndexes(ctx context.Context, docRepo *repository.DocumentRepository, indexingSvc *service.IndexingService) error {
	ids, err := docRepo.ListIndexed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexed documents: %w", err)
	}

	for _, id := range ids {
		if err := indexingSvc.RebuildFromStore(ctx, id); err != nil {
			log.Printf("failed to rebuild index for document %s: %v", id, err)
			telemetry.CaptureError(ctx, err)
			continue
		}
	}
	if len(ids) > 0 {
		log.Printf("rebuilt indexes for %d documents", len(ids))
	}
	return nil
}

func initTelemetry() func() {
	noop := func() {}

	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return noop
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	sampleRate := 0.1
	if environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              dsn,
		Environment:      environment,
		TracesSampleRate: sampleRate,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return noop
	}
	return shutdown
}

type noOpEmbedder struct{}

func (e *noOpEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider not configured: OPENAI_API_KEY required")
}

type noOpGenerator struct{}

func (g *noOpGenerator) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("generation provider not configured: OPENAI_API_KEY required")
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Println("migrations applied")
	return nil
}
