// Package pipeline wires the scoring components into the three request
// operations: Score, Recommend and Decide. The whole pipeline is a pure
// function of (context, table snapshot); the snapshot is resolved once per
// request so a reload can never tear a request across two table versions.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/decision"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/explain"
	"github.com/opensource-finance/kestrel/internal/risk"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// DefaultMaxWorkers bounds the per-request card scoring concurrency.
const DefaultMaxWorkers = 5

// Pipeline evaluates checkout requests against the current table snapshot.
type Pipeline struct {
	// Now is the clock used for output timestamps. Overridable in tests;
	// defaults to time.Now.
	Now func() time.Time

	store      *config.Store
	evaluator  *risk.Evaluator
	calibrator *risk.Calibrator
	preference *scoring.PreferenceWeighting
	penalty    *scoring.MerchantPenalty
	composer   *scoring.Composer
	explainer  *explain.Engine
	decider    *decision.Engine

	maxWorkers int
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New creates a Pipeline over a table store.
func New(store *config.Store, maxWorkers int, logger *slog.Logger) *Pipeline {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Now:        time.Now,
		store:      store,
		evaluator:  risk.NewEvaluator(),
		calibrator: risk.NewCalibrator(),
		preference: scoring.NewPreferenceWeighting(),
		penalty:    scoring.NewMerchantPenalty(),
		composer:   scoring.NewComposer(),
		explainer:  explain.NewEngine(),
		decider:    decision.NewEngine(),
		maxWorkers: maxWorkers,
		logger:     logger,
		tracer:     otel.Tracer("kestrel/pipeline"),
	}
}

// Score evaluates one context: both scoring strategies plus the validated
// attribution and its driver summary.
func (p *Pipeline) Score(ctx context.Context, tc *domain.TransactionContext) (*domain.ScoreResult, explain.Drivers, error) {
	_, span := p.tracer.Start(ctx, "pipeline.score")
	defer span.End()

	tables := p.store.Snapshot()
	result, _, err := p.score(tables, tc)
	if err != nil {
		return nil, explain.Drivers{}, err
	}
	drivers, err := p.explainer.TopDrivers(result.Attribution, explain.DefaultTopK)
	if err != nil {
		return nil, explain.Drivers{}, err
	}
	return result, drivers, nil
}

// Recommend scores the context once, then computes and ranks the utility of
// every candidate card. Candidates are evaluated in parallel; the ranking
// is stable, so exact utility ties keep the caller's card order.
func (p *Pipeline) Recommend(ctx context.Context, tc *domain.TransactionContext, cards []*domain.CardMetadata) (*domain.ScoreResult, []domain.CardUtility, error) {
	_, span := p.tracer.Start(ctx, "pipeline.recommend")
	defer span.End()

	tables := p.store.Snapshot()
	result, _, err := p.score(tables, tc)
	if err != nil {
		return nil, nil, err
	}
	if len(cards) == 0 {
		return result, []domain.CardUtility{}, nil
	}

	// Merchant penalty depends only on the context, not the card
	penalty := p.penalty.Penalty(tables, tc)

	utilities := make([]domain.CardUtility, len(cards))
	errs := make([]error, len(cards))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, p.maxWorkers)

	for i, card := range cards {
		wg.Add(1)
		go func(idx int, card *domain.CardMetadata) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			adjusted := result.RawScore + p.evaluator.CardAdjustment(tables, card)
			pApproval, err := p.calibrator.Calibrate(tables, adjusted)
			if err != nil {
				errs[idx] = err
				return
			}
			rewards := p.composer.ExpectedRewards(tables, card, tc.Merchant.MCC)
			weight := p.preference.Weight(tables, card, tc)
			utilities[idx] = p.composer.Utility(card.ID, pApproval, rewards, weight, penalty)
		}(i, card)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return result, p.composer.Rank(utilities), nil
}

// Decide scores the context and assembles the terminal decision contract
// with its driver summary.
func (p *Pipeline) Decide(ctx context.Context, tc *domain.TransactionContext) (*domain.DecisionContract, *domain.ScoreResult, explain.Drivers, error) {
	_, span := p.tracer.Start(ctx, "pipeline.decide")
	defer span.End()

	tables := p.store.Snapshot()
	result, coarse, err := p.score(tables, tc)
	if err != nil {
		return nil, nil, explain.Drivers{}, err
	}
	drivers, err := p.explainer.TopDrivers(result.Attribution, explain.DefaultTopK)
	if err != nil {
		return nil, nil, explain.Drivers{}, err
	}

	contract := p.decider.Decide(tables, &decision.Input{
		Context: tc,
		Coarse:  coarse,
		Now:     p.Now(),
	})
	return contract, result, drivers, nil
}

// score runs both strategies over one snapshot. Invariant violations and
// unimplemented calibration methods abort the request; they are logic
// defects, not input problems.
func (p *Pipeline) score(tables *config.Tables, tc *domain.TransactionContext) (*domain.ScoreResult, risk.CoarseScore, error) {
	attr := p.evaluator.Evaluate(tables, tc)
	if err := attr.Validate(); err != nil {
		p.logger.Error("attribution invariant violated",
			"requestId", tc.RequestID,
			"baseline", attr.Baseline,
			"sum", attr.Sum,
			"error", err)
		return nil, risk.CoarseScore{}, err
	}

	pApproval, err := p.calibrator.Calibrate(tables, attr.Sum)
	if err != nil {
		return nil, risk.CoarseScore{}, err
	}

	coarse := p.evaluator.ScoreCoarse(tables, tc)
	network, _ := decision.ResolveNetwork(&tc.Merchant)

	result := &domain.ScoreResult{
		RequestID:    tc.RequestID,
		RiskScore:    coarse.RiskScore,
		LoyaltyBoost: coarse.LoyaltyBoost,
		FinalScore:   coarse.FinalScore,
		RoutingHint:  network,
		RawScore:     attr.Sum,
		PApproval:    pApproval,
		Attribution:  attr,
		Signals:      p.evaluator.Signals(tables, tc),
		Timestamp:    p.Now().UTC(),
	}
	return result, coarse, nil
}
