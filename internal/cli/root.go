package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"nexus/internal/bootstrap"
	"nexus/internal/gateway/config"
	llmclient "nexus/internal/llmClient"
)

type rootOptions struct {
	provider string
	verbose  bool
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "nexus",
		Short: "Expand raw ideas into structured product concepts",
		Long: `NEXUS - Idea Expander

Turns a one-line idea into a structured product concept (title, tagline,
audience, features, risks, pivots) and can render concept art for it.

Quick Start:
  nexus expand "Uber for dog walking"       Print the concept as Markdown
  nexus expand --visualize --image-out a.png "Uber for dog walking"
  nexus tui                                 Interactive terminal session

Configuration comes from .env and the environment (NEXUS_PROVIDER,
GEMINI_API_KEY, OPENAI_API_KEY, NEXUS_TEXT_MODEL, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.provider, "provider", "p", "", "Model provider: gemini, openai, fake (overrides NEXUS_PROVIDER)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log model requests to stderr")

	cmd.AddCommand(newExpandCmd(opts))
	cmd.AddCommand(newTUICmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRuntime loads configuration, applies the command-line overrides and
// wires the model client.
func buildRuntime(ctx context.Context, opts *rootOptions, stderr io.Writer) (*bootstrap.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.provider != "" {
		p, err := llmclient.ParseProvider(opts.provider)
		if err != nil {
			return nil, err
		}
		cfg.LLM.UseProvider(p)
	}
	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(stderr, "nexus: ", log.LstdFlags)
	}
	return bootstrap.New(ctx, cfg, logger)
}
