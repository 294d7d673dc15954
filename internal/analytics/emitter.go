// Package analytics publishes aggregate scoring activity to the event bus.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Event is the payload published on TopicAnalyticsEvent. Each scored
// checkout and finalized decision produces one event carrying the running
// totals, so downstream consumers can build dashboards without replaying
// the full history.
type Event struct {
	Type       string          `json:"type"` // "transaction.scored" or "decision.finalized"
	RequestID  string          `json:"requestId"`
	Decision   domain.Decision `json:"decision,omitempty"`
	FinalScore int             `json:"finalScore,omitempty"`
	Totals     Totals          `json:"totals"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Totals is the running activity distribution since emitter start.
type Totals struct {
	Scored   int64 `json:"scored"`
	Approved int64 `json:"approved"`
	Review   int64 `json:"review"`
	Declined int64 `json:"declined"`
}

// Emitter consumes scoring and decision topics and republishes compact
// analytics events. It never blocks the scoring path; everything rides the
// bus.
type Emitter struct {
	bus    domain.EventBus
	logger *slog.Logger

	subs   []domain.Subscription
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	totals Totals
}

// NewEmitter creates an analytics emitter.
func NewEmitter(bus domain.EventBus, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Emitter{
		bus:    bus,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the scored and finalized topics.
func (e *Emitter) Start() error {
	scoredSub, err := e.bus.Subscribe(e.ctx, domain.TopicTransactionScored, e.handleScored)
	if err != nil {
		return fmt.Errorf("failed to subscribe to scored topic: %w", err)
	}
	e.subs = append(e.subs, scoredSub)

	decisionSub, err := e.bus.Subscribe(e.ctx, domain.TopicDecisionFinalized, e.handleDecision)
	if err != nil {
		return fmt.Errorf("failed to subscribe to decision topic: %w", err)
	}
	e.subs = append(e.subs, decisionSub)

	e.logger.Info("analytics emitter started",
		"topics", []string{domain.TopicTransactionScored, domain.TopicDecisionFinalized},
	)
	return nil
}

// handleScored counts a scored checkout.
func (e *Emitter) handleScored(ctx context.Context, msg *domain.Message) error {
	var result domain.ScoreResult
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		e.logger.Error("failed to parse score result",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	e.mu.Lock()
	e.totals.Scored++
	totals := e.totals
	e.mu.Unlock()

	return e.emit(ctx, Event{
		Type:       "transaction.scored",
		RequestID:  result.RequestID,
		FinalScore: result.FinalScore,
		Totals:     totals,
		Timestamp:  time.Now().UTC(),
	})
}

// handleDecision counts a finalized decision by outcome.
func (e *Emitter) handleDecision(ctx context.Context, msg *domain.Message) error {
	var event domain.DecisionEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		e.logger.Error("failed to parse decision event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	e.mu.Lock()
	switch event.Decision {
	case domain.DecisionApprove:
		e.totals.Approved++
	case domain.DecisionReview:
		e.totals.Review++
	case domain.DecisionDecline:
		e.totals.Declined++
	}
	totals := e.totals
	e.mu.Unlock()

	return e.emit(ctx, Event{
		Type:       "decision.finalized",
		RequestID:  event.RequestID,
		Decision:   event.Decision,
		FinalScore: event.FinalScore,
		Totals:     totals,
		Timestamp:  time.Now().UTC(),
	})
}

func (e *Emitter) emit(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := e.bus.Publish(ctx, domain.TopicAnalyticsEvent, payload); err != nil {
		e.logger.Error("failed to publish analytics event",
			"request_id", event.RequestID,
			"error", err,
		)
		return err
	}
	return nil
}

// Totals returns the running distribution since start.
func (e *Emitter) Totals() Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totals
}

// Stop unsubscribes from all topics.
func (e *Emitter) Stop() error {
	e.cancel()

	for _, sub := range e.subs {
		if err := sub.Unsubscribe(); err != nil {
			e.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	e.subs = nil

	e.logger.Info("analytics emitter stopped")
	return nil
}
