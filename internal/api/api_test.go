package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/bus"
	"github.com/opensource-finance/kestrel/internal/cache"
	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/pipeline"
	"github.com/opensource-finance/kestrel/internal/repository"
	"github.com/opensource-finance/kestrel/internal/velocity"
)

// createTestServer creates a server wired to a temp SQLite database, an
// in-process cache and an in-process bus, running on the built-in tables.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := config.NewStore("", quiet)
	if err != nil {
		t.Fatalf("failed to create table store: %v", err)
	}

	tmpFile, err := os.CreateTemp("", "api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
		os.Remove(tmpPath)
	})

	lru := cache.NewLRUCache(100)
	t.Cleanup(func() { lru.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	pipe := pipeline.New(store, 4, quiet)
	velo := velocity.NewService(repo, lru)

	return NewServer(cfg, store, pipe, velo, repo, lru, eventBus, "test-v1")
}

func intPtr(v int) *int { return &v }

// groceryRequest is a clean checkout: same-city device, silver tier, low
// velocity. Scores 105 and approves on the default tables.
func groceryRequest() domain.ScoreRequest {
	return domain.ScoreRequest{
		Cart:     domain.Cart{Currency: "USD", Total: decimal.RequireFromString("45.99")},
		Merchant: domain.Merchant{Name: "Corner Grocer", MCC: "5411"},
		Customer: domain.CustomerInput{
			ID:          "cust-001",
			LoyaltyTier: domain.TierSilver,
			Velocity24h: intPtr(3),
		},
		Device: &domain.Device{
			IP:       "203.0.113.10",
			DeviceID: "dev-001",
			Location: &domain.Geo{City: "Austin", Country: "US"},
		},
		Geo: &domain.Geo{City: "Austin", Country: "US"},
	}
}

// electronicsRequest trips the location, velocity and chargeback checks and
// declines on the default tables.
func electronicsRequest() domain.ScoreRequest {
	return domain.ScoreRequest{
		Cart:     domain.Cart{Currency: "USD", Total: decimal.RequireFromString("899.99")},
		Merchant: domain.Merchant{Name: "Gadget Planet", MCC: "5732"},
		Customer: domain.CustomerInput{
			ID:             "cust-002",
			Velocity24h:    intPtr(15),
			Chargebacks12m: 2,
		},
		Device: &domain.Device{Location: &domain.Geo{City: "Miami", Country: "US"}},
		Geo:    &domain.Geo{City: "Austin", Country: "US"},
	}
}

// postJSON marshals body and serves a POST through the full middleware stack.
func postJSON(t *testing.T, server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

// do serves a bodyless request (GET, DELETE) through the router.
func do(t *testing.T, server *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func TestScoreEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulScore", func(t *testing.T) {
		reqBody := groceryRequest()
		reqBody.RequestID = "req-score-001"

		rr := postJSON(t, server, "/score", reqBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp ScoreResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.RequestID != "req-score-001" {
			t.Errorf("expected requestId req-score-001, got %s", resp.RequestID)
		}
		if resp.RiskScore != 0 || resp.LoyaltyBoost != 5 || resp.FinalScore != 105 {
			t.Errorf("expected scores 0/5/105, got %d/%d/%d",
				resp.RiskScore, resp.LoyaltyBoost, resp.FinalScore)
		}
		if resp.RoutingHint != "interlink" {
			t.Errorf("expected interlink routing for grocery MCC, got %s", resp.RoutingHint)
		}
		if resp.PApproval <= 0.9 || resp.PApproval >= 0.99 {
			t.Errorf("pApproval out of expected range: %v", resp.PApproval)
		}
		if len(resp.Drivers.Positive) == 0 {
			t.Error("expected positive drivers in response")
		}
		if len(resp.Drivers.Negative) != 0 {
			t.Errorf("clean checkout should have no negative drivers, got %v", resp.Drivers.Negative)
		}
	})

	t.Run("GeneratedRequestID", func(t *testing.T) {
		rr := postJSON(t, server, "/score", groceryRequest())
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp ScoreResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.RequestID == "" {
			t.Error("expected a generated requestId when the caller omits one")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/score", bytes.NewBufferString("not-json"))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingCustomerID", func(t *testing.T) {
		reqBody := groceryRequest()
		reqBody.Customer.ID = ""

		rr := postJSON(t, server, "/score", reqBody)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingMerchantMCC", func(t *testing.T) {
		reqBody := groceryRequest()
		reqBody.Merchant.MCC = ""

		rr := postJSON(t, server, "/score", reqBody)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("CartTotalMismatch", func(t *testing.T) {
		reqBody := groceryRequest()
		reqBody.Cart.Items = []domain.CartItem{
			{UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		}
		// Total stays 45.99, items sum to 20.00

		rr := postJSON(t, server, "/score", reqBody)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		rr := postJSON(t, server, "/score", groceryRequest())

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if rr.Header().Get("X-Trace-ID") == "" {
			t.Error("expected X-Trace-ID header in response")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Error("expected Content-Type: application/json")
		}
	})
}

func TestScoreRetrieval(t *testing.T) {
	server := createTestServer(t)

	t.Run("StoredAfterScoring", func(t *testing.T) {
		reqBody := groceryRequest()
		reqBody.RequestID = "req-lookup-001"

		rr := postJSON(t, server, "/score", reqBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = do(t, server, http.MethodGet, "/scores/req-lookup-001")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var result domain.ScoreResult
		if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if result.RequestID != "req-lookup-001" || result.FinalScore != 105 {
			t.Errorf("stored score mismatch: %s/%d", result.RequestID, result.FinalScore)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/scores/req-unknown")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestDecideEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("ApprovesCleanCheckout", func(t *testing.T) {
		reqBody := groceryRequest()
		reqBody.RequestID = "req-decide-001"

		rr := postJSON(t, server, "/decide", reqBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp DecideResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.Decision == nil || resp.Decision.Decision != domain.DecisionApprove {
			t.Fatalf("expected APPROVE, got %+v", resp.Decision)
		}
		if resp.Decision.Confidence != 0.95 {
			t.Errorf("expected confidence 0.95, got %v", resp.Decision.Confidence)
		}
		if resp.Decision.Routing.PenaltyOrIncentive != domain.IncentiveNone {
			t.Errorf("expected no incentive on approval, got %s", resp.Decision.Routing.PenaltyOrIncentive)
		}
		if resp.Score == nil || resp.Score.FinalScore != 105 {
			t.Errorf("expected final score 105 alongside the decision, got %+v", resp.Score)
		}
		if len(resp.Decision.Reasons) == 0 {
			t.Error("expected at least a summary reason")
		}

		// The finalized decision is retrievable by request ID
		rr = do(t, server, http.MethodGet, "/decisions/req-decide-001")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var contract domain.DecisionContract
		if err := json.Unmarshal(rr.Body.Bytes(), &contract); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if contract.RequestID != "req-decide-001" || contract.Decision != domain.DecisionApprove {
			t.Errorf("stored decision mismatch: %s/%s", contract.RequestID, contract.Decision)
		}
	})

	t.Run("DeclinesRiskyCheckout", func(t *testing.T) {
		reqBody := electronicsRequest()
		reqBody.RequestID = "req-decide-002"

		rr := postJSON(t, server, "/decide", reqBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp DecideResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.Decision == nil || resp.Decision.Decision != domain.DecisionDecline {
			t.Fatalf("expected DECLINE, got %+v", resp.Decision)
		}
		if resp.Decision.Routing.PenaltyOrIncentive != domain.IncentiveSuppression {
			t.Errorf("expected suppression on decline, got %s", resp.Decision.Routing.PenaltyOrIncentive)
		}
		if len(resp.Drivers.Negative) == 0 {
			t.Error("expected negative drivers on a decline")
		}
	})

	t.Run("ListCustomerDecisions", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/customers/cust-001/decisions")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Decisions []*domain.DecisionContract `json:"decisions"`
			Count     int                        `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 1 || len(resp.Decisions) != 1 {
			t.Fatalf("expected exactly 1 decision for cust-001, got %d", resp.Count)
		}
		if resp.Decisions[0].RequestID != "req-decide-001" {
			t.Errorf("unexpected decision: %s", resp.Decisions[0].RequestID)
		}
	})

	t.Run("InvalidLimit", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/customers/cust-001/decisions?limit=abc")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("DecisionNotFound", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/decisions/req-unknown")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestRecommendEndpoint(t *testing.T) {
	server := createTestServer(t)

	wallet := []*domain.CardMetadata{
		{
			ID:             "card-grocery",
			Issuer:         "First National",
			Network:        "visa",
			IssuerFamily:   "major-bank",
			RewardType:     domain.RewardCashback,
			BaseRewardRate: 0.01,
			CategoryBonuses: map[string]float64{
				"5411": 0.04,
			},
		},
		{
			ID:             "card-plain",
			Issuer:         "Neobank",
			Network:        "mastercard",
			IssuerFamily:   "fintech",
			RewardType:     domain.RewardPoints,
			BaseRewardRate: 0.01,
		},
	}

	t.Run("InlineCards", func(t *testing.T) {
		reqBody := RecommendRequest{
			ScoreRequest: groceryRequest(),
			Cards:        wallet,
		}

		rr := postJSON(t, server, "/recommend", reqBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp RecommendResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if resp.Score == nil || resp.Score.FinalScore != 105 {
			t.Errorf("expected the score alongside rankings, got %+v", resp.Score)
		}
		if len(resp.Rankings) != 2 {
			t.Fatalf("expected 2 rankings, got %d", len(resp.Rankings))
		}
		if resp.Rankings[0].CardID != "card-grocery" {
			t.Errorf("grocery bonus card should rank first, got %s", resp.Rankings[0].CardID)
		}
	})

	t.Run("StoredWallet", func(t *testing.T) {
		raw, _ := json.Marshal(wallet)
		req := httptest.NewRequest(http.MethodPut, "/customers/cust-001/cards", bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		// No inline cards: the stored wallet drives the ranking
		rr = postJSON(t, server, "/recommend", RecommendRequest{ScoreRequest: groceryRequest()})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp RecommendResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(resp.Rankings) != 2 {
			t.Fatalf("expected 2 rankings from the stored wallet, got %d", len(resp.Rankings))
		}
		if resp.Rankings[0].CardID != "card-grocery" {
			t.Errorf("grocery bonus card should rank first, got %s", resp.Rankings[0].CardID)
		}
	})

	t.Run("EmptyWallet", func(t *testing.T) {
		reqBody := RecommendRequest{ScoreRequest: groceryRequest()}
		reqBody.Customer.ID = "cust-no-wallet"

		rr := postJSON(t, server, "/recommend", reqBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp RecommendResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(resp.Rankings) != 0 {
			t.Errorf("expected empty rankings for empty wallet, got %d", len(resp.Rankings))
		}
		if resp.Score == nil {
			t.Error("expected the score even with an empty wallet")
		}
	})
}

func TestWalletEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("SaveAndList", func(t *testing.T) {
		card := domain.CardMetadata{
			ID:             "card-001",
			Issuer:         "First National",
			Network:        "visa",
			IssuerFamily:   "major-bank",
			RewardType:     domain.RewardCashback,
			BaseRewardRate: 0.015,
		}

		rr := postJSON(t, server, "/customers/cust-100/cards", card)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = do(t, server, http.MethodGet, "/customers/cust-100/cards")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Cards []*domain.CardMetadata `json:"cards"`
			Count int                    `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 1 || len(resp.Cards) != 1 {
			t.Fatalf("expected 1 card, got %d", resp.Count)
		}
		if resp.Cards[0].ID != "card-001" {
			t.Errorf("unexpected wallet contents: %+v", resp.Cards[0])
		}
	})

	t.Run("MissingCardID", func(t *testing.T) {
		rr := postJSON(t, server, "/customers/cust-100/cards", domain.CardMetadata{Network: "visa"})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ReplaceWallet", func(t *testing.T) {
		cards := []*domain.CardMetadata{
			{ID: "card-002", Network: "visa", BaseRewardRate: 0.01},
			{ID: "card-003", Network: "mastercard", BaseRewardRate: 0.02},
		}
		raw, _ := json.Marshal(cards)
		req := httptest.NewRequest(http.MethodPut, "/customers/cust-100/cards", bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		// The old card is gone, only the replacement wallet remains
		rr = do(t, server, http.MethodGet, "/customers/cust-100/cards")
		var resp struct {
			Cards []*domain.CardMetadata `json:"cards"`
			Count int                    `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 2 {
			t.Errorf("expected 2 cards after replace, got %d", resp.Count)
		}
		for _, c := range resp.Cards {
			if c.ID == "card-001" {
				t.Error("replaced wallet should not contain card-001")
			}
		}
	})

	t.Run("DeleteCard", func(t *testing.T) {
		rr := do(t, server, http.MethodDelete, "/customers/cust-100/cards/card-002")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = do(t, server, http.MethodDelete, "/customers/cust-100/cards/card-002")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 on second delete, got %d", rr.Code)
		}
	})
}

func TestWebhookEndpoints(t *testing.T) {
	server := createTestServer(t)

	var endpointID string

	t.Run("CreateAndGet", func(t *testing.T) {
		rr := postJSON(t, server, "/webhooks", domain.WebhookRequest{
			URL:    "https://hooks.example.com/decisions",
			Secret: "wh-s3cret",
			Filter: `decision == "DECLINE"`,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		// The shared secret must never round-trip through the API
		if bytes.Contains(rr.Body.Bytes(), []byte("wh-s3cret")) {
			t.Error("secret leaked into the response body")
		}

		var endpoint domain.WebhookEndpoint
		if err := json.Unmarshal(rr.Body.Bytes(), &endpoint); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if endpoint.ID == "" {
			t.Fatal("expected a generated endpoint id")
		}
		if !endpoint.Enabled {
			t.Error("endpoints should default to enabled")
		}
		endpointID = endpoint.ID

		rr = do(t, server, http.MethodGet, "/webhooks/"+endpointID)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = do(t, server, http.MethodGet, "/webhooks")
		var list struct {
			Webhooks []*domain.WebhookEndpoint `json:"webhooks"`
			Count    int                       `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if list.Count != 1 {
			t.Errorf("expected 1 webhook, got %d", list.Count)
		}
	})

	t.Run("RejectsInvalidFilter", func(t *testing.T) {
		rr := postJSON(t, server, "/webhooks", domain.WebhookRequest{
			URL:    "https://hooks.example.com/decisions",
			Filter: `decision ==`,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("RejectsMissingURL", func(t *testing.T) {
		rr := postJSON(t, server, "/webhooks", domain.WebhookRequest{
			Filter: `decision == "APPROVE"`,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("EmptyDeliveryLog", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/webhooks/"+endpointID+"/deliveries")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Deliveries []*domain.WebhookDelivery `json:"deliveries"`
			Count      int                       `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 0 {
			t.Errorf("expected no deliveries yet, got %d", resp.Count)
		}
	})

	t.Run("DeleteWebhook", func(t *testing.T) {
		rr := do(t, server, http.MethodDelete, "/webhooks/"+endpointID)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = do(t, server, http.MethodGet, "/webhooks/"+endpointID)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 after delete, got %d", rr.Code)
		}
	})
}

func TestConfigEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("GetConfig", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/config")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var tables config.Tables
		if err := json.Unmarshal(rr.Body.Bytes(), &tables); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if tables.Source != "defaults" {
			t.Errorf("expected defaults source, got %s", tables.Source)
		}
		if tables.Risk.Coarse.LocationMismatch != 30 {
			t.Errorf("unexpected location weight: %d", tables.Risk.Coarse.LocationMismatch)
		}
	})

	t.Run("ReloadConfig", func(t *testing.T) {
		rr := postJSON(t, server, "/config/reload", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp map[string]interface{}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp["message"] != "tables reloaded successfully" {
			t.Errorf("unexpected reload message: %v", resp["message"])
		}
	})
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("HealthCheck", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/health")
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/ready")
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedRequestID = GetRequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("TracingMiddlewareHonorsCallerID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedRequestID = GetRequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "caller-supplied-id")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID != "caller-supplied-id" {
			t.Errorf("expected caller-supplied request ID, got '%s'", capturedRequestID)
		}
		if rr.Header().Get("X-Request-ID") != "caller-supplied-id" {
			t.Error("expected the caller-supplied ID echoed in the response")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		// Should not panic
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})
}
