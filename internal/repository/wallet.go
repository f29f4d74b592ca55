package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

// WalletRepository holds prepaid balances in USD.
type WalletRepository interface {
	Balance(ctx context.Context, userID string) (float64, error)
	// Debit subtracts amount and returns the new balance. A balance never goes
	// below zero: when amount exceeds it, the balance is set to zero and
	// domain.ErrInsufficientBalance is returned together with the new balance.
	Debit(ctx context.Context, userID string, amount float64) (float64, error)
	Credit(ctx context.Context, userID string, amount float64) (float64, error)
}

type InMemoryWalletRepository struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func NewInMemoryWalletRepository() *InMemoryWalletRepository {
	return &InMemoryWalletRepository{
		profiles: make(map[string]*domain.Profile),
	}
}

func (r *InMemoryWalletRepository) Balance(ctx context.Context, userID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p.Balance, nil
}

func (r *InMemoryWalletRepository) Debit(ctx context.Context, userID string, amount float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}

	p.UpdatedAt = time.Now()
	if amount > p.Balance {
		p.Balance = 0
		return 0, domain.ErrInsufficientBalance
	}
	p.Balance -= amount
	return p.Balance, nil
}

// Credit creates the profile on first top-up.
func (r *InMemoryWalletRepository) Credit(ctx context.Context, userID string, amount float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		p = &domain.Profile{ID: userID}
		r.profiles[userID] = p
	}
	p.Balance += amount
	p.UpdatedAt = time.Now()
	return p.Balance, nil
}
