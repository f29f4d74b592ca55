package main

import (
	"context"
	"testing"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/billing"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/config"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/cost"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/repository"
)

func TestBuildSinks(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		wantSinks int
		wantQueue bool
	}{
		{
			name:      "webhook and wallet",
			cfg:       config.Config{BillingSinks: []string{"webhook", "wallet"}, BillingWebhookURL: "https://hooks.example/billing"},
			wantSinks: 2,
		},
		{
			name:      "webhook without url is skipped",
			cfg:       config.Config{BillingSinks: []string{"webhook"}},
			wantSinks: 0,
		},
		{
			name: "webhook goes through the relay when sqs is on",
			cfg: config.Config{
				BillingSinks:      []string{"webhook", "sqs"},
				BillingWebhookURL: "https://hooks.example/billing",
				SQSQueueURL:       "https://sqs.us-east-1.amazonaws.com/123456789012/billing",
				AWSRegion:         "us-east-1",
			},
			wantSinks: 1,
			wantQueue: true,
		},
		{
			name:      "budget alerts",
			cfg:       config.Config{BillingSinks: []string{"wallet"}, MonthlyBudgetUSD: 20},
			wantSinks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink, q, err := buildSinks(context.Background(), &tt.cfg,
				repository.NewInMemoryWalletRepository(), cost.NewInMemoryTracker())
			if err != nil {
				t.Fatalf("buildSinks() error = %v", err)
			}

			multi, ok := sink.(*billing.MultiSink)
			if !ok {
				t.Fatalf("buildSinks() sink = %T, want *billing.MultiSink", sink)
			}
			if multi.Len() != tt.wantSinks {
				t.Errorf("sinks = %d, want %d", multi.Len(), tt.wantSinks)
			}
			if (q != nil) != tt.wantQueue {
				t.Errorf("queue = %v, want present=%v", q, tt.wantQueue)
			}
		})
	}
}

func TestBuildSinks_UnknownSink(t *testing.T) {
	cfg := config.Config{BillingSinks: []string{"carrier-pigeon"}}

	if _, _, err := buildSinks(context.Background(), &cfg, repository.NewInMemoryWalletRepository(), cost.NewInMemoryTracker()); err == nil {
		t.Error("expected error for unknown sink")
	}
}
