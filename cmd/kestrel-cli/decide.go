package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/kestrel/internal/api"
	"github.com/opensource-finance/kestrel/internal/domain"
)

var decideCmd = &cobra.Command{
	Use:   "decide [file]",
	Short: "Produce a full decision contract for a checkout",
	Long: `Score a checkout context and produce the terminal decision contract,
including the routing hint, triggered rules and reason strings.

Reads the same JSON payload as POST /decide from a file or stdin.

Examples:
  kestrel-cli decide checkout.json
  kestrel-cli decide checkout.json --tables ./tables`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecide,
}

func runDecide(cmd *cobra.Command, args []string) error {
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

	contract, result, drivers, err := p.Decide(context.Background(), tc)
	if err != nil {
		return err
	}

	return writeOutput(api.DecideResponse{
		Decision: contract,
		Score:    result,
		Drivers:  drivers,
	})
}
