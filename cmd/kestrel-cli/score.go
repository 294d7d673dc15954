package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/domain"
)

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Score a checkout context",
	Long: `Score a checkout context against the local scoring tables.

Reads the same JSON payload as POST /score from a file or stdin and
writes the score result with its attribution drivers to stdout.

Examples:
  kestrel-cli score checkout.json
  cat checkout.json | kestrel-cli score
  kestrel-cli score checkout.json --tables ./tables --compact`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	var req domain.ScoreRequest
	if err := readRequest(args, &req); err != nil {
		return err
	}

	tc, err := buildContext(&req)
	if err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}

	result, drivers, err := p.Score(context.Background(), tc)
	if err != nil {
		return err
	}

	return writeOutput(api.ScoreResponse{ScoreResult: result, Drivers: drivers})
}
