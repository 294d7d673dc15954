// Package webhook delivers finalized decisions to registered HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Delivery headers sent with every webhook POST.
const (
	SignatureHeader = "X-Kestrel-Signature"
	EventHeader     = "X-Kestrel-Event"
	DeliveryHeader  = "X-Kestrel-Delivery"
)

// Dispatcher subscribes to finalized decisions and posts them to every
// enabled endpoint whose filter matches. Delivery is fire-and-forget from
// the scoring path's perspective; retries and logging happen here.
type Dispatcher struct {
	bus    domain.EventBus
	repo   domain.Repository
	cfg    domain.WebhookConfig
	client *http.Client
	logger *slog.Logger

	env *cel.Env

	// Compiled filters keyed by endpoint ID, invalidated when the
	// endpoint's filter expression changes.
	mu      sync.Mutex
	filters map[string]cachedFilter

	sub    domain.Subscription
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	delivered atomic.Int64
	failed    atomic.Int64
}

type cachedFilter struct {
	expr    string
	program cel.Program
}

// NewDispatcher creates a webhook dispatcher.
func NewDispatcher(bus domain.EventBus, repo domain.Repository, cfg domain.WebhookConfig, logger *slog.Logger) (*Dispatcher, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 10
	}
	if cfg.BackoffSecs < 0 {
		cfg.BackoffSecs = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	env, err := newFilterEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		bus:     bus,
		repo:    repo,
		cfg:     cfg,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second},
		logger:  logger,
		env:     env,
		filters: make(map[string]cachedFilter),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start subscribes to the finalized decision topic.
func (d *Dispatcher) Start() error {
	sub, err := d.bus.Subscribe(d.ctx, domain.TopicDecisionFinalized, d.handleDecision)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	d.sub = sub

	d.logger.Info("webhook dispatcher started",
		"topic", domain.TopicDecisionFinalized,
		"max_attempts", d.cfg.MaxAttempts,
	)
	return nil
}

// handleDecision fans a decision event out to all matching endpoints.
func (d *Dispatcher) handleDecision(ctx context.Context, msg *domain.Message) error {
	var event domain.DecisionEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		d.logger.Error("failed to parse decision event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	endpoints, err := d.repo.ListWebhookEndpoints(ctx)
	if err != nil {
		d.logger.Error("failed to list webhook endpoints",
			"request_id", event.RequestID,
			"error", err,
		)
		return err
	}

	for _, ep := range endpoints {
		if !ep.Enabled {
			continue
		}

		program, err := d.filterFor(ep)
		if err != nil {
			d.logger.Error("invalid webhook filter",
				"endpoint_id", ep.ID,
				"error", err,
			)
			continue
		}

		ok, err := matches(program, &event)
		if err != nil {
			d.logger.Error("webhook filter evaluation failed",
				"endpoint_id", ep.ID,
				"request_id", event.RequestID,
				"error", err,
			)
			continue
		}
		if !ok {
			continue
		}

		d.wg.Add(1)
		go func(ep *domain.WebhookEndpoint) {
			defer d.wg.Done()
			d.deliver(d.ctx, ep, &event, msg.Payload)
		}(ep)
	}

	return nil
}

// filterFor returns the compiled filter for an endpoint, compiling and
// caching it on first use.
func (d *Dispatcher) filterFor(ep *domain.WebhookEndpoint) (cel.Program, error) {
	if ep.Filter == "" {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cached, ok := d.filters[ep.ID]; ok && cached.expr == ep.Filter {
		return cached.program, nil
	}

	program, err := compileFilter(d.env, ep.Filter)
	if err != nil {
		return nil, err
	}

	d.filters[ep.ID] = cachedFilter{expr: ep.Filter, program: program}
	return program, nil
}

// deliver posts the event body to one endpoint with retries, then records
// the delivery outcome.
func (d *Dispatcher) deliver(ctx context.Context, ep *domain.WebhookEndpoint, event *domain.DecisionEvent, body []byte) {
	delivery := &domain.WebhookDelivery{
		ID:         uuid.New().String(),
		EndpointID: ep.ID,
		RequestID:  event.RequestID,
		CreatedAt:  time.Now().UTC(),
	}

	backoff := time.Duration(d.cfg.BackoffSecs) * time.Second
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		delivery.Attempts = attempt

		status, err := d.post(ctx, ep, delivery.ID, body)
		delivery.StatusCode = status

		if err != nil {
			delivery.LastError = err.Error()
		} else if status >= 200 && status < 300 {
			now := time.Now().UTC()
			delivery.DeliveredAt = &now
			delivery.LastError = ""
			break
		} else {
			delivery.LastError = fmt.Sprintf("unexpected status %d", status)
		}

		if attempt == d.cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			delivery.LastError = "dispatcher stopped during retry"
			attempt = d.cfg.MaxAttempts
		}
		backoff *= 2
	}

	d.record(delivery, ep)
}

// post sends one signed delivery attempt.
func (d *Dispatcher) post(ctx context.Context, ep *domain.WebhookEndpoint, deliveryID string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, "decision.finalized")
	req.Header.Set(DeliveryHeader, deliveryID)
	if ep.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(ep.Secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// record persists the delivery outcome and publishes the delivered topic.
func (d *Dispatcher) record(delivery *domain.WebhookDelivery, ep *domain.WebhookEndpoint) {
	// Save even when the dispatcher context is cancelled; the audit row is
	// the only trace of a failed delivery.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if d.repo != nil {
		if err := d.repo.SaveWebhookDelivery(saveCtx, delivery); err != nil {
			d.logger.Error("failed to save webhook delivery",
				"delivery_id", delivery.ID,
				"endpoint_id", ep.ID,
				"error", err,
			)
		}
	}

	if delivery.DeliveredAt != nil {
		d.delivered.Add(1)
		d.logger.Info("webhook delivered",
			"delivery_id", delivery.ID,
			"endpoint_id", ep.ID,
			"request_id", delivery.RequestID,
			"status", delivery.StatusCode,
			"attempts", delivery.Attempts,
		)
	} else {
		d.failed.Add(1)
		d.logger.Warn("webhook delivery failed",
			"delivery_id", delivery.ID,
			"endpoint_id", ep.ID,
			"request_id", delivery.RequestID,
			"status", delivery.StatusCode,
			"attempts", delivery.Attempts,
			"last_error", delivery.LastError,
		)
	}

	payload, _ := json.Marshal(delivery)
	if err := d.bus.Publish(saveCtx, domain.TopicWebhookDelivered, payload); err != nil {
		d.logger.Error("failed to publish delivery event",
			"delivery_id", delivery.ID,
			"error", err,
		)
	}
}

// Stop unsubscribes and waits for in-flight deliveries.
func (d *Dispatcher) Stop() error {
	d.cancel()

	if d.sub != nil {
		if err := d.sub.Unsubscribe(); err != nil {
			d.logger.Error("failed to unsubscribe",
				"topic", d.sub.Topic(),
				"error", err,
			)
		}
		d.sub = nil
	}

	d.wg.Wait()

	d.logger.Info("webhook dispatcher stopped")
	return nil
}

// Stats returns dispatcher delivery counters.
type Stats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// GetStats returns current delivery counters.
func (d *Dispatcher) GetStats() Stats {
	return Stats{
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
	}
}

// Sign computes the hex HMAC-SHA256 signature of a delivery body. Receivers
// recompute it with the shared secret to verify authenticity.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
