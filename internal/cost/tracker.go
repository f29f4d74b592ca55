package cost

import (
	"context"
	"sync"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

// UsageRecord is the local ledger row written for every finalized generation.
type UsageRecord struct {
	RequestID        string
	UserID           string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Source           domain.UsageSource
	CostUSD          float64
	Timestamp        time.Time
}

type Tracker interface {
	Record(ctx context.Context, record UsageRecord) error
	GetUserTotalCost(ctx context.Context, userID string, since time.Time) (float64, error)
}

type InMemoryTracker struct {
	mu      sync.RWMutex
	records []UsageRecord
}

func NewInMemoryTracker() *InMemoryTracker {
	return &InMemoryTracker{
		records: make([]UsageRecord, 0),
	}
}

func (t *InMemoryTracker) Record(ctx context.Context, record UsageRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, record)
	return nil
}

func (t *InMemoryTracker) GetUserTotalCost(ctx context.Context, userID string, since time.Time) (float64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var total float64
	for _, r := range t.records {
		if r.UserID == userID && !r.Timestamp.Before(since) {
			total += r.CostUSD
		}
	}
	return total, nil
}

func (t *InMemoryTracker) GetAllRecords() []UsageRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]UsageRecord, len(t.records))
	copy(result, t.records)
	return result
}
