package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/kestrel/internal/api"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [file]",
	Short: "Score a checkout and rank candidate cards",
	Long: `Score a checkout context and rank the candidate cards by utility.

Reads the same JSON payload as POST /recommend from a file or stdin.
Cards must be supplied inline in the payload; offline runs have no
stored wallets.

Examples:
  kestrel-cli recommend checkout-with-cards.json
  cat checkout-with-cards.json | kestrel-cli recommend --compact`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecommend,
}

func runRecommend(cmd *cobra.Command, args []string) error {
	var req api.RecommendRequest
	if err := readRequest(args, &req); err != nil {
		return err
	}

	tc, err := buildContext(&req.ScoreRequest)
	if err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}

	result, rankings, err := p.Recommend(context.Background(), tc, req.Cards)
	if err != nil {
		return err
	}

	return writeOutput(api.RecommendResponse{Score: result, Rankings: rankings})
}
