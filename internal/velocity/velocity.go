// Package velocity resolves customer transaction velocity.
package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// DefaultWindow is the trailing window for velocity counts.
const DefaultWindow = 24 * time.Hour

// Service resolves the 24h checkout count for customers. Score requests may
// supply customer.velocity24h directly; when they omit it, the service answers
// from the transaction audit trail.
type Service struct {
	repo   domain.Repository
	cache  domain.Cache
	window time.Duration
}

// NewService creates a new velocity service.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		window: DefaultWindow,
	}
}

// Resolve returns the number of transactions recorded for a customer within
// the trailing window. The repository is the source of truth so counts
// survive restarts.
func (s *Service) Resolve(ctx context.Context, customerID string) (int, error) {
	if customerID == "" {
		return 0, fmt.Errorf("customerID is required")
	}
	if s.repo == nil {
		return 0, fmt.Errorf("no data source available")
	}

	since := time.Now().Add(-s.window)
	count, err := s.repo.CountTransactionsByCustomer(ctx, customerID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return int(count), nil
}

// Record notes a scored checkout in the rolling cache counter and returns the
// live count for the window. The counter feeds operational monitoring; it is
// not used by Resolve because in-memory counters reset on restart.
func (s *Service) Record(ctx context.Context, customerID string) (int64, error) {
	if customerID == "" {
		return 0, fmt.Errorf("customerID is required")
	}
	if s.cache == nil {
		return 0, nil
	}

	return s.cache.IncrementCounter(ctx, "velocity:"+customerID, s.window)
}
