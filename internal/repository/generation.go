package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

type GenerationRepository interface {
	Save(ctx context.Context, gen *domain.Generation) error
	GetByID(ctx context.Context, id string) (*domain.Generation, error)
	// ListByUser returns the user's generations, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Generation, error)
}

type InMemoryGenerationRepository struct {
	mu          sync.RWMutex
	generations map[string]*domain.Generation
}

func NewInMemoryGenerationRepository() *InMemoryGenerationRepository {
	return &InMemoryGenerationRepository{
		generations: make(map[string]*domain.Generation),
	}
}

func (r *InMemoryGenerationRepository) Save(ctx context.Context, gen *domain.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *gen
	r.generations[gen.ID] = &stored
	return nil
}

func (r *InMemoryGenerationRepository) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gen, ok := r.generations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *gen
	return &out, nil
}

func (r *InMemoryGenerationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Generation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Generation, 0)
	for _, gen := range r.generations {
		if gen.UserID == userID {
			out := *gen
			result = append(result, &out)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
