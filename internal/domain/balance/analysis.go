package balance

import "github.com/shopspring/decimal"

// Analysis extends a balance entry with customer context.
// LoadFactor and AverageDemandKw stay zero until demand data is integrated.
type Analysis struct {
	Entry
	CustomerCount   int64
	KwhPerCustomer  decimal.Decimal
	LoadFactor      decimal.Decimal
	AverageDemandKw decimal.Decimal
}

// Analyze attaches the number of active customers of the entry's point.
func Analyze(e Entry, customers int64) Analysis {
	a := Analysis{
		Entry:           e,
		CustomerCount:   customers,
		KwhPerCustomer:  decimal.Zero,
		LoadFactor:      decimal.Zero,
		AverageDemandKw: decimal.Zero,
	}
	if customers > 0 {
		a.KwhPerCustomer = e.EnergySoldKwh.Div(decimal.NewFromInt(customers)).Round(2)
	}
	return a
}

// Statistics describes a set of balance entries.
type Statistics struct {
	Count              int
	AverageLossPercent decimal.Decimal
	MaxLossPercent     decimal.Decimal
	MinLossPercent     decimal.Decimal
	TierDistribution   map[Tier]int
}

// ComputeStatistics returns zero values for an empty set.
func ComputeStatistics(entries []Entry) Statistics {
	st := Statistics{
		Count:              len(entries),
		AverageLossPercent: decimal.Zero,
		MaxLossPercent:     decimal.Zero,
		MinLossPercent:     decimal.Zero,
		TierDistribution:   emptyTierCounts(),
	}
	if len(entries) == 0 {
		return st
	}

	sum := decimal.Zero
	st.MaxLossPercent = entries[0].LossPercent
	st.MinLossPercent = entries[0].LossPercent
	for _, e := range entries {
		sum = sum.Add(e.LossPercent)
		st.MaxLossPercent = decimal.Max(st.MaxLossPercent, e.LossPercent)
		st.MinLossPercent = decimal.Min(st.MinLossPercent, e.LossPercent)
		st.TierDistribution[e.Tier]++
	}
	st.AverageLossPercent = sum.Div(decimal.NewFromInt(int64(len(entries)))).Round(2)
	return st
}

// LoadFactor is energy over the maximum deliverable at peak demand for the
// given number of days, as a percentage. Zero when demand or days are not positive.
func LoadFactor(energyKwh, peakDemandKw decimal.Decimal, days int) decimal.Decimal {
	if !peakDemandKw.IsPositive() || days <= 0 {
		return decimal.Zero
	}
	hours := decimal.NewFromInt(int64(days * 24))
	return energyKwh.Mul(hundred).Div(peakDemandKw.Mul(hours)).Round(2)
}

// NormalizeMeasurement clamps negative meter values to zero and rounds to places.
func NormalizeMeasurement(value decimal.Decimal, places int32) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value.Round(places)
}
