package balance

import (
	"sort"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/shopspring/decimal"
)

// Summary aggregates every balance entry of a month.
type Summary struct {
	Month             period.Month
	TotalBoughtKwh    decimal.Decimal
	TotalSoldKwh      decimal.Decimal
	TotalAmountBought decimal.Decimal
	TotalAmountSold   decimal.Decimal
	TotalLossKwh      decimal.Decimal
	LossPercent       decimal.Decimal
	TierCounts        map[Tier]int
	TotalPoints       int
}

// Summarize totals the entries of m. The aggregate loss percentage is
// computed from the totals, not averaged from the entries.
func Summarize(m period.Month, entries []Entry) Summary {
	s := Summary{
		Month:             m,
		TotalBoughtKwh:    decimal.Zero,
		TotalSoldKwh:      decimal.Zero,
		TotalAmountBought: decimal.Zero,
		TotalAmountSold:   decimal.Zero,
		TotalLossKwh:      decimal.Zero,
		TierCounts:        emptyTierCounts(),
	}
	points := make(map[int64]struct{})
	for _, e := range entries {
		if e.Month != m {
			continue
		}
		s.TotalBoughtKwh = s.TotalBoughtKwh.Add(e.EnergyBoughtKwh)
		s.TotalSoldKwh = s.TotalSoldKwh.Add(e.EnergySoldKwh)
		s.TotalAmountBought = s.TotalAmountBought.Add(e.AmountBought)
		s.TotalAmountSold = s.TotalAmountSold.Add(e.AmountSold)
		s.TotalLossKwh = s.TotalLossKwh.Add(e.LossKwh)
		s.TierCounts[e.Tier]++
		points[e.PurchasePointID] = struct{}{}
	}
	s.TotalLossKwh = s.TotalLossKwh.Round(2)
	s.LossPercent = LossPercent(s.TotalBoughtKwh, s.TotalSoldKwh)
	s.TotalPoints = len(points)
	return s
}

func emptyTierCounts() map[Tier]int {
	counts := make(map[Tier]int, len(Tiers))
	for _, t := range Tiers {
		counts[t] = 0
	}
	return counts
}

// Ranking limits.
const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100
)

// RankedLoss is an entry in a top losses ranking.
type RankedLoss struct {
	Rank              int
	PurchasePointName string
	Entry
}

// ClampLimit keeps limit within 1..MaxTopLimit, falling back to the default
// when unset.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTopLimit
	case limit > MaxTopLimit:
		return MaxTopLimit
	default:
		return limit
	}
}

// TopLosses orders entries by loss percentage descending, breaking ties by
// purchase point id ascending, and keeps the first limit entries.
func TopLosses(entries []Entry, limit int) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].LossPercent.Cmp(sorted[j].LossPercent); c != 0 {
			return c > 0
		}
		if sorted[i].PurchasePointID != sorted[j].PurchasePointID {
			return sorted[i].PurchasePointID < sorted[j].PurchasePointID
		}
		return sorted[i].Month.Before(sorted[j].Month)
	})
	limit = ClampLimit(limit)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Rank numbers the entries from 1 and attaches purchase point names.
func Rank(entries []Entry, names map[int64]string) []RankedLoss {
	ranked := make([]RankedLoss, len(entries))
	for i, e := range entries {
		ranked[i] = RankedLoss{
			Rank:              i + 1,
			PurchasePointName: names[e.PurchasePointID],
			Entry:             e,
		}
	}
	return ranked
}
