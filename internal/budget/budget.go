// Package budget raises spend alerts when a user's month-to-date cost crosses
// a fraction of the configured monthly budget.
package budget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/cost"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

type AlertLevel string

const (
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
	AlertLevelExceeded AlertLevel = "exceeded"
)

type Alert struct {
	UserID     string
	Level      AlertLevel
	Budget     float64
	CurrentUse float64
	Percentage float64
	Timestamp  time.Time
}

type AlertHandler func(alert Alert)

type Thresholds struct {
	Warning  float64
	Critical float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning:  0.8,
		Critical: 0.95,
	}
}

// Monitor compares month-to-date spend from the usage ledger with a single
// per-user budget. Each level fires once until spend drops back below warning,
// which in practice happens when a new month starts.
type Monitor struct {
	mu            sync.RWMutex
	tracker       cost.Tracker
	budgetUSD     float64
	thresholds    Thresholds
	alertHandlers []AlertHandler
	lastAlerts    map[string]AlertLevel
	now           func() time.Time
}

func NewMonitor(tracker cost.Tracker, budgetUSD float64, thresholds Thresholds) *Monitor {
	return &Monitor{
		tracker:       tracker,
		budgetUSD:     budgetUSD,
		thresholds:    thresholds,
		alertHandlers: make([]AlertHandler, 0),
		lastAlerts:    make(map[string]AlertLevel),
		now:           time.Now,
	}
}

func (m *Monitor) OnAlert(handler AlertHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertHandlers = append(m.alertHandlers, handler)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Check returns the alert raised for userID, or nil when spend is below the
// warning threshold or the level was already reported.
func (m *Monitor) Check(ctx context.Context, userID string) (*Alert, error) {
	if m.budgetUSD <= 0 || userID == "" {
		return nil, nil
	}

	now := m.now()
	currentCost, err := m.tracker.GetUserTotalCost(ctx, userID, startOfMonth(now))
	if err != nil {
		return nil, err
	}

	percentage := currentCost / m.budgetUSD

	var level AlertLevel
	switch {
	case percentage >= 1.0:
		level = AlertLevelExceeded
	case percentage >= m.thresholds.Critical:
		level = AlertLevelCritical
	case percentage >= m.thresholds.Warning:
		level = AlertLevelWarning
	default:
		m.mu.Lock()
		delete(m.lastAlerts, userID)
		m.mu.Unlock()
		return nil, nil
	}

	m.mu.Lock()
	if last, ok := m.lastAlerts[userID]; ok && last == level {
		m.mu.Unlock()
		return nil, nil
	}
	m.lastAlerts[userID] = level
	handlers := make([]AlertHandler, len(m.alertHandlers))
	copy(handlers, m.alertHandlers)
	m.mu.Unlock()

	alert := &Alert{
		UserID:     userID,
		Level:      level,
		Budget:     m.budgetUSD,
		CurrentUse: currentCost,
		Percentage: percentage * 100,
		Timestamp:  now,
	}

	for _, handler := range handlers {
		handler(*alert)
	}

	return alert, nil
}

func (m *Monitor) IsBudgetExceeded(ctx context.Context, userID string) (bool, error) {
	if m.budgetUSD <= 0 {
		return false, nil
	}

	currentCost, err := m.tracker.GetUserTotalCost(ctx, userID, startOfMonth(m.now()))
	if err != nil {
		return false, err
	}

	return currentCost >= m.budgetUSD, nil
}

// Deliver lets the monitor sit in the billing fan-out. The report itself is
// already in the ledger, so only the user's total is re-read.
func (m *Monitor) Deliver(ctx context.Context, report domain.CostReport) error {
	_, err := m.Check(ctx, report.UserID)
	return err
}

func LogAlertHandler(alert Alert) {
	slog.Warn("budget alert",
		"user_id", alert.UserID,
		"level", alert.Level,
		"budget", alert.Budget,
		"current_use", alert.CurrentUse,
		"percentage", alert.Percentage,
	)
}
