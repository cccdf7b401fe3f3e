package main

import (
	"fmt"
	"os"

	"github.com/refdesk-ai/refdesk/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "refdeskd",
		Short: "Document question-answering service",
		Long:  "refdeskd serves a document portal with hybrid retrieval and grounded answers",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())
	rootCmd.AddCommand(cli.AskCmd())

	// Default to serve so `refdeskd` alone starts the server.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
