package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

func TestInMemoryGenerationRepository_SaveAndGet(t *testing.T) {
	repo := NewInMemoryGenerationRepository()
	ctx := context.Background()

	gen := &domain.Generation{ID: "g1", UserID: "u1", Prompt: "bakery", HTML: "<h1>Bakery</h1>", Model: "gpt-5", CreatedAt: time.Now()}
	if err := repo.Save(ctx, gen); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	gen.HTML = "mutated"
	got, err := repo.GetByID(ctx, "g1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.HTML != "<h1>Bakery</h1>" {
		t.Errorf("HTML = %q; stored value aliased the caller's struct", got.HTML)
	}
}

func TestInMemoryGenerationRepository_NotFound(t *testing.T) {
	repo := NewInMemoryGenerationRepository()

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryGenerationRepository_ListByUser(t *testing.T) {
	repo := NewInMemoryGenerationRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	repo.Save(ctx, &domain.Generation{ID: "old", UserID: "u1", CreatedAt: base})
	repo.Save(ctx, &domain.Generation{ID: "new", UserID: "u1", CreatedAt: base.Add(2 * time.Hour)})
	repo.Save(ctx, &domain.Generation{ID: "mid", UserID: "u1", CreatedAt: base.Add(time.Hour)})
	repo.Save(ctx, &domain.Generation{ID: "other", UserID: "u2", CreatedAt: base})

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"new", "mid", "old"}},
		{"limited", 2, []string{"new", "mid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListByUser(ctx, "u1", tt.limit)
			if err != nil {
				t.Fatalf("ListByUser() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("got[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestInMemoryWalletRepository(t *testing.T) {
	repo := NewInMemoryWalletRepository()
	ctx := context.Background()

	if _, err := repo.Debit(ctx, "u1", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Debit() on unknown user error = %v, want ErrNotFound", err)
	}

	if balance, _ := repo.Credit(ctx, "u1", 5); balance != 5 {
		t.Errorf("Credit() = %v, want 5", balance)
	}

	balance, err := repo.Debit(ctx, "u1", 2)
	if err != nil || balance != 3 {
		t.Errorf("Debit() = %v, %v; want 3, nil", balance, err)
	}

	balance, err = repo.Debit(ctx, "u1", 10)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("Debit() error = %v, want ErrInsufficientBalance", err)
	}
	if balance != 0 {
		t.Errorf("balance = %v, want clamped to 0", balance)
	}

	if got, _ := repo.Balance(ctx, "u1"); got != 0 {
		t.Errorf("Balance() = %v, want 0", got)
	}
}
