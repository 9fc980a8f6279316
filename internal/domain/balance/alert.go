package balance

import (
	"fmt"
	"time"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/shopspring/decimal"
)

// AlertType identifies the condition an alert reports.
type AlertType string

const (
	AlertHighLoss       AlertType = "high_loss"
	AlertCriticalLoss   AlertType = "critical_loss"
	AlertNegativeLoss   AlertType = "negative_loss"
	AlertSuddenIncrease AlertType = "sudden_increase"
)

// AlertPriority orders alerts for review.
type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

// AlertState is the review state of an alert. Alerts are generated fresh on
// every request, so they always start pending.
type AlertState string

const (
	AlertPending   AlertState = "pending"
	AlertReviewing AlertState = "reviewing"
	AlertResolved  AlertState = "resolved"
	AlertDismissed AlertState = "dismissed"
)

// Alert is a loss condition detected for a purchase point and month.
type Alert struct {
	ID                  string
	PurchasePointID     int64
	PurchasePointName   string
	Month               period.Month
	Type                AlertType
	Message             string
	LossPercent         decimal.Decimal
	PreviousLossPercent *decimal.Decimal
	Threshold           *decimal.Decimal
	Priority            AlertPriority
	State               AlertState
	CreatedAt           time.Time
}

// AlertID builds the deterministic identifier of an alert.
func AlertID(purchasePointID int64, m period.Month, t AlertType) string {
	return fmt.Sprintf("%d_%s_%s", purchasePointID, m, t)
}

// AlertRules holds the thresholds of the alert generator.
type AlertRules struct {
	// NegativeLossBelow triggers negative_loss when lossPercent is strictly lower.
	NegativeLossBelow decimal.Decimal
	// SuddenIncrease is the month-over-month rise in percentage points that
	// triggers sudden_increase. Zero disables the rule.
	SuddenIncrease decimal.Decimal
}

// DefaultAlertRules returns the production thresholds.
func DefaultAlertRules() AlertRules {
	return AlertRules{
		NegativeLossBelow: decimal.NewFromInt(-5),
		SuddenIncrease:    decimal.Zero,
	}
}

// GenerateAlerts scans the entries of month m. previous holds the entries of
// the month before and is only consulted by the sudden increase rule.
func GenerateAlerts(m period.Month, entries, previous []Entry, rules AlertRules, now time.Time) []Alert {
	prior := make(map[int64]Entry, len(previous))
	for _, e := range previous {
		prior[e.PurchasePointID] = e
	}

	var alerts []Alert
	for _, e := range entries {
		if e.Month != m {
			continue
		}
		pct := e.LossPercent.StringFixed(2)

		switch e.Tier {
		case TierCritical:
			alerts = append(alerts, newAlert(e, AlertCriticalLoss, PriorityCritical, now,
				fmt.Sprintf("Critical loss of %s%% at purchase point %d", pct, e.PurchasePointID)))
		case TierHigh:
			alerts = append(alerts, newAlert(e, AlertHighLoss, PriorityHigh, now,
				fmt.Sprintf("High loss of %s%% at purchase point %d", pct, e.PurchasePointID)))
		}

		if e.LossPercent.LessThan(rules.NegativeLossBelow) {
			a := newAlert(e, AlertNegativeLoss, PriorityMedium, now,
				fmt.Sprintf("Negative loss of %s%% at purchase point %d, check meter readings", pct, e.PurchasePointID))
			threshold := rules.NegativeLossBelow
			a.Threshold = &threshold
			alerts = append(alerts, a)
		}

		if !rules.SuddenIncrease.IsPositive() {
			continue
		}
		before, ok := prior[e.PurchasePointID]
		if !ok {
			continue
		}
		if e.LossPercent.Sub(before.LossPercent).GreaterThan(rules.SuddenIncrease) {
			a := newAlert(e, AlertSuddenIncrease, PriorityHigh, now,
				fmt.Sprintf("Loss at purchase point %d rose from %s%% to %s%% since %s",
					e.PurchasePointID, before.LossPercent.StringFixed(2), pct, before.Month))
			prev := before.LossPercent
			threshold := rules.SuddenIncrease
			a.PreviousLossPercent = &prev
			a.Threshold = &threshold
			alerts = append(alerts, a)
		}
	}
	return alerts
}

func newAlert(e Entry, t AlertType, p AlertPriority, now time.Time, msg string) Alert {
	return Alert{
		ID:              AlertID(e.PurchasePointID, e.Month, t),
		PurchasePointID: e.PurchasePointID,
		Month:           e.Month,
		Type:            t,
		Message:         msg,
		LossPercent:     e.LossPercent,
		Priority:        p,
		State:           AlertPending,
		CreatedAt:       now,
	}
}

// AlertStats counts alerts by type and priority.
type AlertStats struct {
	Total      int
	ByType     map[AlertType]int
	ByPriority map[AlertPriority]int
}

// CountAlerts aggregates alerts into stats.
func CountAlerts(alerts []Alert) AlertStats {
	stats := AlertStats{
		Total:      len(alerts),
		ByType:     make(map[AlertType]int),
		ByPriority: make(map[AlertPriority]int),
	}
	for _, a := range alerts {
		stats.ByType[a.Type]++
		stats.ByPriority[a.Priority]++
	}
	return stats
}
