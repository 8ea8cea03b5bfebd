// Command scorectl runs chunking and analyses from the terminal against the
// same services the HTTP API uses, with an in-memory store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type rootOptions struct {
	providersPath string
	provider      string
	mock          bool
	jsonOut       bool
	verbose       bool
}

func (o *rootOptions) logger() *logger.Logger {
	if !o.verbose {
		return logger.NewNop()
	}
	log, err := logger.New("development")
	if err != nil {
		return logger.NewNop()
	}
	return log
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "scorectl",
		Short:         "Score, chunk and inspect texts with the configured LLM providers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.providersPath, "providers", "", "providers YAML file (defaults to LLM_PROVIDERS_PATH or API key env vars)")
	root.PersistentFlags().StringVar(&opts.provider, "provider", "", "provider to use (defaults to the configured default)")
	root.PersistentFlags().BoolVar(&opts.mock, "mock", false, "register the offline mock provider")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(newChunkCmd(opts), newAnalyzeCmd(opts), newProvidersCmd(opts))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
