package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/refdesk-ai/refdesk/internal/config"
	"github.com/spf13/cobra"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <document-id> <question>",
		Short: "Ask a question against an indexed document",
		Long:  "Run a one-shot hybrid retrieval query against a document and print the grounded answer",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runAsk,
	}

	cmd.Flags().BoolP("verbose", "v", false, "Print the ranked source chunks alongside the answer")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	documentID := args[0]
	question := strings.Join(args[1:], " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("cannot answer: OPENAI_API_KEY not set")
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

	// One-shot invocations start with an empty in-memory index.
	if err := deps.indexingSvc.RebuildFromStore(ctx, documentID); err != nil {
		return fmt.Errorf("failed to load index for document %s: %w", documentID, err)
	}

	out, err := deps.answerSvc.Answer(ctx, documentID, question)
	if err != nil {
		return err
	}

	fmt.Println(out.Answer)
	fmt.Printf("\nConfidence: %.2f\n", out.Confidence)

	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		fmt.Println("\nSources:")
		for _, rc := range out.Ranked {
			fmt.Printf("  [chunk %d] score %.3f (lexical %.3f, semantic %.3f)\n",
				rc.ChunkIndex, rc.FusedScore, rc.LexicalScore, rc.SemanticScore)
		}
	}

	return nil
}
