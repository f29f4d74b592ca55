package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/cost"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestMonitor(t *testing.T, budget float64, spend map[string]float64) (*Monitor, *cost.InMemoryTracker) {
	t.Helper()
	tracker := cost.NewInMemoryTracker()
	for userID, amount := range spend {
		tracker.Record(context.Background(), cost.UsageRecord{
			RequestID: "req-" + userID,
			UserID:    userID,
			CostUSD:   amount,
			Timestamp: testNow.Add(-time.Hour),
		})
	}
	m := NewMonitor(tracker, budget, DefaultThresholds())
	m.now = func() time.Time { return testNow }
	return m, tracker
}

type failingTracker struct{}

func (failingTracker) Record(ctx context.Context, record cost.UsageRecord) error { return nil }

func (failingTracker) GetUserTotalCost(ctx context.Context, userID string, since time.Time) (float64, error) {
	return 0, errors.New("ledger unavailable")
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()

	if th.Warning != 0.8 {
		t.Errorf("Warning threshold = %v, want 0.8", th.Warning)
	}
	if th.Critical != 0.95 {
		t.Errorf("Critical threshold = %v, want 0.95", th.Critical)
	}
}

func TestMonitor_Check_Levels(t *testing.T) {
	tests := []struct {
		name      string
		budget    float64
		spend     float64
		wantLevel AlertLevel
	}{
		{"no budget", 0, 100, ""},
		{"under budget", 10, 5, ""},
		{"warning", 10, 8.5, AlertLevelWarning},
		{"critical", 10, 9.6, AlertLevelCritical},
		{"exceeded", 10, 11, AlertLevelExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMonitor(t, tt.budget, map[string]float64{"u1": tt.spend})

			alert, err := m.Check(context.Background(), "u1")
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if tt.wantLevel == "" {
				if alert != nil {
					t.Errorf("Check() = %+v, want no alert", alert)
				}
				return
			}
			if alert == nil {
				t.Fatalf("Check() returned no alert, want %s", tt.wantLevel)
			}
			if alert.Level != tt.wantLevel {
				t.Errorf("alert.Level = %v, want %v", alert.Level, tt.wantLevel)
			}
			if alert.UserID != "u1" {
				t.Errorf("alert.UserID = %v, want u1", alert.UserID)
			}
		})
	}
}

func TestMonitor_Check_OnlyCountsCurrentMonth(t *testing.T) {
	m, tracker := newTestMonitor(t, 10, nil)
	tracker.Record(context.Background(), cost.UsageRecord{
		UserID:    "u1",
		CostUSD:   50,
		Timestamp: time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC),
	})

	alert, err := m.Check(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if alert != nil {
		t.Errorf("last month's spend raised %+v", alert)
	}
}

func TestMonitor_Check_NoRepeatAlerts(t *testing.T) {
	m, tracker := newTestMonitor(t, 10, map[string]float64{"u1": 8.5})

	if alert, _ := m.Check(context.Background(), "u1"); alert == nil {
		t.Fatal("first check should alert")
	}
	if alert, _ := m.Check(context.Background(), "u1"); alert != nil {
		t.Error("second check at the same level should not alert")
	}

	tracker.Record(context.Background(), cost.UsageRecord{UserID: "u1", CostUSD: 2, Timestamp: testNow})
	alert, _ := m.Check(context.Background(), "u1")
	if alert == nil || alert.Level != AlertLevelExceeded {
		t.Errorf("escalation = %+v, want exceeded", alert)
	}
}

func TestMonitor_Check_AnonymousIgnored(t *testing.T) {
	m, _ := newTestMonitor(t, 10, map[string]float64{"": 50})

	alert, err := m.Check(context.Background(), "")
	if err != nil || alert != nil {
		t.Errorf("Check(\"\") = %+v, %v", alert, err)
	}
}

func TestMonitor_Check_TrackerError(t *testing.T) {
	m := NewMonitor(failingTracker{}, 10, DefaultThresholds())

	if _, err := m.Check(context.Background(), "u1"); err == nil {
		t.Error("expected ledger error")
	}
}

func TestMonitor_OnAlert(t *testing.T) {
	m, _ := newTestMonitor(t, 10, map[string]float64{"u1": 9})

	var received []Alert
	m.OnAlert(func(a Alert) { received = append(received, a) })

	if err := m.Deliver(context.Background(), domain.CostReport{UserID: "u1", Cost: 0.01}); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if len(received) != 1 {
		t.Fatalf("handler called %d times, want 1", len(received))
	}
	if received[0].UserID != "u1" || received[0].Budget != 10 {
		t.Errorf("received %+v", received[0])
	}
	if received[0].Percentage != 90 {
		t.Errorf("Percentage = %v, want 90", received[0].Percentage)
	}
}

func TestMonitor_IsBudgetExceeded(t *testing.T) {
	tests := []struct {
		name       string
		budget     float64
		spend      float64
		wantExceed bool
	}{
		{"no budget", 0, 100, false},
		{"under budget", 100, 50, false},
		{"at budget", 100, 100, true},
		{"over budget", 100, 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMonitor(t, tt.budget, map[string]float64{"u1": tt.spend})

			exceeded, err := m.IsBudgetExceeded(context.Background(), "u1")
			if err != nil {
				t.Fatalf("IsBudgetExceeded() error = %v", err)
			}
			if exceeded != tt.wantExceed {
				t.Errorf("IsBudgetExceeded() = %v, want %v", exceeded, tt.wantExceed)
			}
		})
	}
}

func TestLogAlertHandler(t *testing.T) {
	LogAlertHandler(Alert{
		UserID:     "u1",
		Level:      AlertLevelWarning,
		Budget:     10,
		CurrentUse: 8.5,
		Percentage: 85,
		Timestamp:  testNow,
	})
}
