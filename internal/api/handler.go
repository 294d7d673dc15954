package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/explain"
	"github.com/opensource-finance/kestrel/internal/pipeline"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/velocity"
	"github.com/opensource-finance/kestrel/internal/webhook"
)

// Cache TTLs for wallet and decision reads.
const (
	walletCacheTTL   = 5 * time.Minute
	decisionCacheTTL = 10 * time.Minute
)

// Handler holds dependencies for API handlers.
type Handler struct {
	store    *config.Store
	pipeline *pipeline.Pipeline
	velocity *velocity.Service
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(store *config.Store, pipe *pipeline.Pipeline, velo *velocity.Service, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		store:    store,
		pipeline: pipe,
		velocity: velo,
		repo:     repo,
		cache:    cache,
		bus:      bus,
		version:  version,
	}
}

// ScoreResponse is the response for POST /score: the score result plus the
// top attribution drivers.
type ScoreResponse struct {
	*domain.ScoreResult
	Drivers explain.Drivers `json:"drivers"`
}

// RecommendRequest is the request body for POST /recommend. Cards may be
// supplied inline; when omitted the customer's stored wallet is used.
type RecommendRequest struct {
	domain.ScoreRequest
	Cards []*domain.CardMetadata `json:"cards,omitempty"`
}

// RecommendResponse is the response for POST /recommend.
type RecommendResponse struct {
	Score    *domain.ScoreResult  `json:"score"`
	Rankings []domain.CardUtility `json:"rankings"`
}

// DecideResponse is the response for POST /decide.
type DecideResponse struct {
	Decision *domain.DecisionContract `json:"decision"`
	Score    *domain.ScoreResult      `json:"score"`
	Drivers  explain.Drivers          `json:"drivers"`
}

// Score handles POST /score requests.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req domain.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	tc, err := h.resolveContext(r, &req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	result, drivers, err := h.pipeline.Score(r.Context(), tc)
	if err != nil {
		writeScoringError(w, tc.RequestID, err)
		return
	}

	h.persistScore(r.Context(), tc, result)

	writeJSON(w, http.StatusOK, ScoreResponse{ScoreResult: result, Drivers: drivers})
}

// Recommend handles POST /recommend requests.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	tc, err := h.resolveContext(r, &req.ScoreRequest)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	cards := req.Cards
	if len(cards) == 0 {
		cards, err = h.loadWallet(r.Context(), tc.Customer.ID)
		if err != nil {
			slog.Error("failed to load wallet",
				"customer_id", tc.Customer.ID,
				"error", err,
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to load wallet",
			})
			return
		}
	}

	result, rankings, err := h.pipeline.Recommend(r.Context(), tc, cards)
	if err != nil {
		writeScoringError(w, tc.RequestID, err)
		return
	}

	h.persistScore(r.Context(), tc, result)

	writeJSON(w, http.StatusOK, RecommendResponse{Score: result, Rankings: rankings})
}

// Decide handles POST /decide requests.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req domain.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	tc, err := h.resolveContext(r, &req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	contract, result, drivers, err := h.pipeline.Decide(r.Context(), tc)
	if err != nil {
		writeScoringError(w, tc.RequestID, err)
		return
	}

	h.persistScore(r.Context(), tc, result)
	h.persistDecision(r.Context(), tc, contract, result)

	writeJSON(w, http.StatusOK, DecideResponse{
		Decision: contract,
		Score:    result,
		Drivers:  drivers,
	})
}

// resolveContext validates a score request and builds the transaction
// context, resolving velocity from the service when the caller omitted it.
func (h *Handler) resolveContext(r *http.Request, req *domain.ScoreRequest) (*domain.TransactionContext, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	velocity24h := 0
	if req.Customer.Velocity24h != nil {
		velocity24h = *req.Customer.Velocity24h
	} else if h.velocity != nil {
		resolved, err := h.velocity.Resolve(r.Context(), req.Customer.ID)
		if err != nil {
			// Missing history data degrades the signal, not the request
			slog.Warn("velocity resolution failed",
				"customer_id", req.Customer.ID,
				"error", err,
			)
		} else {
			velocity24h = resolved
		}
	}

	return req.ToContext(requestID, velocity24h, time.Now()), nil
}

// persistScore records the transaction and score, bumps the velocity
// counter and publishes the scored event. Persistence failures are logged
// and swallowed; the caller already holds the result.
func (h *Handler) persistScore(ctx context.Context, tc *domain.TransactionContext, result *domain.ScoreResult) {
	if h.repo != nil {
		if err := h.repo.SaveTransaction(ctx, tc); err != nil {
			slog.Error("failed to save transaction",
				"request_id", tc.RequestID,
				"error", err,
			)
		}
		if err := h.repo.SaveScoreResult(ctx, result); err != nil {
			slog.Error("failed to save score result",
				"request_id", tc.RequestID,
				"error", err,
			)
		}
	}

	if h.velocity != nil {
		if _, err := h.velocity.Record(ctx, tc.Customer.ID); err != nil {
			slog.Warn("failed to record velocity",
				"customer_id", tc.Customer.ID,
				"error", err,
			)
		}
	}

	if h.bus != nil {
		payload, _ := json.Marshal(result)
		if err := h.bus.Publish(ctx, domain.TopicTransactionScored, payload); err != nil {
			slog.Error("failed to publish scored event",
				"request_id", tc.RequestID,
				"error", err,
			)
		}
	}
}

// persistDecision records the contract, caches it for idempotent reads and
// publishes the finalized event consumed by webhooks and analytics.
func (h *Handler) persistDecision(ctx context.Context, tc *domain.TransactionContext, contract *domain.DecisionContract, result *domain.ScoreResult) {
	if h.repo != nil {
		if err := h.repo.SaveDecision(ctx, contract); err != nil {
			slog.Error("failed to save decision",
				"request_id", contract.RequestID,
				"error", err,
			)
		}
	}

	if h.cache != nil {
		if err := h.cache.SetDecision(ctx, contract.RequestID, contract, decisionCacheTTL); err != nil {
			slog.Warn("failed to cache decision",
				"request_id", contract.RequestID,
				"error", err,
			)
		}
	}

	if h.bus != nil {
		event := domain.DecisionEvent{
			RequestID:    contract.RequestID,
			CustomerID:   tc.Customer.ID,
			MerchantName: tc.Merchant.Name,
			MCC:          tc.Merchant.MCC,
			Decision:     contract.Decision,
			Confidence:   contract.Confidence,
			RiskScore:    result.RiskScore,
			FinalScore:   result.FinalScore,
			PApproval:    result.PApproval,
			Network:      contract.Routing.PreferredNetwork,
			Incentive:    contract.Routing.PenaltyOrIncentive,
			Timestamp:    contract.Timestamp,
		}
		payload, _ := json.Marshal(event)
		if err := h.bus.Publish(ctx, domain.TopicDecisionFinalized, payload); err != nil {
			slog.Error("failed to publish decision event",
				"request_id", contract.RequestID,
				"error", err,
			)
		}
	}
}

// loadWallet returns the customer's stored wallet, cache first.
func (h *Handler) loadWallet(ctx context.Context, customerID string) ([]*domain.CardMetadata, error) {
	if h.cache != nil {
		if cards, err := h.cache.GetWallet(ctx, customerID); err == nil && cards != nil {
			return cards, nil
		}
	}

	if h.repo == nil {
		return nil, nil
	}

	cards, err := h.repo.ListCards(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil && len(cards) > 0 {
		h.cache.SetWallet(ctx, customerID, cards, walletCacheTTL)
	}

	return cards, nil
}

// GetScore retrieves a score result by request ID.
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	result, err := h.repo.GetScoreResult(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "score not found",
			})
			return
		}
		slog.Error("failed to get score", "request_id", requestID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get score",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetDecision retrieves a decision contract by request ID, cache first.
func (h *Handler) GetDecision(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	if h.cache != nil {
		if contract, err := h.cache.GetDecision(r.Context(), requestID); err == nil && contract != nil {
			writeJSON(w, http.StatusOK, contract)
			return
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	contract, err := h.repo.GetDecision(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "decision not found",
			})
			return
		}
		slog.Error("failed to get decision", "request_id", requestID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get decision",
		})
		return
	}

	if h.cache != nil {
		h.cache.SetDecision(r.Context(), requestID, contract, decisionCacheTTL)
	}

	writeJSON(w, http.StatusOK, contract)
}

// ListDecisions returns recent decisions for a customer.
func (h *Handler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = parsed
	}

	decisions, err := h.repo.ListDecisionsByCustomer(r.Context(), customerID, limit)
	if err != nil {
		slog.Error("failed to list decisions", "customer_id", customerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list decisions",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"decisions": decisions,
		"count":     len(decisions),
	})
}

// ListCards returns the customer's wallet.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	cards, err := h.repo.ListCards(r.Context(), customerID)
	if err != nil {
		slog.Error("failed to list cards", "customer_id", customerID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list cards",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cards": cards,
		"count": len(cards),
	})
}

// SaveCard adds or updates one card in the customer's wallet.
func (h *Handler) SaveCard(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	var card domain.CardMetadata
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if card.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "card id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.SaveCard(r.Context(), customerID, &card); err != nil {
		slog.Error("failed to save card",
			"customer_id", customerID,
			"card_id", card.ID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save card",
		})
		return
	}

	h.invalidateWallet(r.Context(), customerID)

	slog.Info("card saved", "customer_id", customerID, "card_id", card.ID)
	writeJSON(w, http.StatusCreated, card)
}

// ReplaceWallet swaps the customer's whole wallet in one operation.
func (h *Handler) ReplaceWallet(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	var cards []*domain.CardMetadata
	if err := json.NewDecoder(r.Body).Decode(&cards); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	for i, card := range cards {
		if card == nil || card.ID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "card id is required at index " + strconv.Itoa(i),
			})
			return
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.ReplaceWallet(r.Context(), customerID, cards); err != nil {
		slog.Error("failed to replace wallet",
			"customer_id", customerID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to replace wallet",
		})
		return
	}

	h.invalidateWallet(r.Context(), customerID)

	slog.Info("wallet replaced", "customer_id", customerID, "count", len(cards))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cards": cards,
		"count": len(cards),
	})
}

// DeleteCard removes one card from the customer's wallet.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	cardID := chi.URLParam(r, "cardId")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.DeleteCard(r.Context(), customerID, cardID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "card not found",
			})
			return
		}
		slog.Error("failed to delete card",
			"customer_id", customerID,
			"card_id", cardID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete card",
		})
		return
	}

	h.invalidateWallet(r.Context(), customerID)

	slog.Info("card deleted", "customer_id", customerID, "card_id", cardID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "card deleted",
	})
}

func (h *Handler) invalidateWallet(ctx context.Context, customerID string) {
	if h.cache != nil {
		h.cache.DeleteWallet(ctx, customerID)
	}
}

// CreateWebhook registers a webhook endpoint.
func (h *Handler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req domain.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	// Reject broken filters at registration, not on every event
	if err := webhook.ValidateFilter(req.Filter); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid filter expression: " + err.Error(),
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	endpoint := req.ToEndpoint(uuid.New().String(), time.Now())
	if err := h.repo.SaveWebhookEndpoint(r.Context(), endpoint); err != nil {
		slog.Error("failed to save webhook endpoint", "url", endpoint.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save webhook endpoint",
		})
		return
	}

	slog.Info("webhook endpoint created", "id", endpoint.ID, "url", endpoint.URL)
	writeJSON(w, http.StatusCreated, endpoint)
}

// ListWebhooks returns all registered endpoints.
func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	endpoints, err := h.repo.ListWebhookEndpoints(r.Context())
	if err != nil {
		slog.Error("failed to list webhook endpoints", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list webhook endpoints",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"webhooks": endpoints,
		"count":    len(endpoints),
	})
}

// GetWebhook retrieves one endpoint by ID.
func (h *Handler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	endpoint, err := h.repo.GetWebhookEndpoint(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "webhook not found",
			})
			return
		}
		slog.Error("failed to get webhook endpoint", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get webhook endpoint",
		})
		return
	}

	writeJSON(w, http.StatusOK, endpoint)
}

// DeleteWebhook removes an endpoint.
func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.DeleteWebhookEndpoint(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "webhook not found",
			})
			return
		}
		slog.Error("failed to delete webhook endpoint", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete webhook endpoint",
		})
		return
	}

	slog.Info("webhook endpoint deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "webhook deleted",
	})
}

// ListWebhookDeliveries returns the delivery log for an endpoint.
func (h *Handler) ListWebhookDeliveries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = parsed
	}

	deliveries, err := h.repo.ListWebhookDeliveries(r.Context(), id, limit)
	if err != nil {
		slog.Error("failed to list webhook deliveries", "endpoint_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list webhook deliveries",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deliveries": deliveries,
		"count":      len(deliveries),
	})
}

// GetConfig returns the active scoring tables snapshot.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// ReloadConfig re-reads the scoring table files and swaps them in
// atomically. In-flight requests keep the snapshot they started with.
func (h *Handler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.Reload()
	if err != nil {
		slog.Error("failed to reload scoring tables", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload tables: " + err.Error(),
		})
		return
	}

	slog.Info("scoring tables reloaded",
		"source", tables.Source,
		"reloads", h.store.Reloads(),
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "tables reloaded successfully",
		"source":   tables.Source,
		"loadedAt": tables.LoadedAt,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check bus health
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeScoringError maps pipeline errors to HTTP responses. Validation
// failures carry their field detail back to the caller; anything else gets
// logged with full context and returned as a generic 500.
func writeScoringError(w http.ResponseWriter, requestID string, err error) {
	if domain.IsValidation(err) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	slog.Error("scoring failed", "request_id", requestID, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "scoring failed",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
