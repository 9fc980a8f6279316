package balance

import (
	"fmt"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/coopelec/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MonthlyContribution is the share of a bimestral sale assigned to one month.
type MonthlyContribution struct {
	Month               period.Month
	EnergyKwh           decimal.Decimal
	Amount              decimal.Decimal
	Days                int
	DistributionPercent decimal.Decimal
}

// Prorate splits a bimestral sale across its two months in proportion to
// their day counts. Each figure is rounded independently, so the halves add
// up to the input within 0.01. Negative inputs are not clamped.
func Prorate(b period.Bimestre, energyKwh, amount decimal.Decimal) ([2]MonthlyContribution, error) {
	var out [2]MonthlyContribution
	if !b.Adjacent() {
		return out, shared.ErrInvalidPeriodFormat.WithMessage(
			fmt.Sprintf("bimestre %s does not span consecutive months", b))
	}

	months := b.Months()
	d1, d2 := months[0].Days(), months[1].Days()
	total := decimal.NewFromInt(int64(d1 + d2))

	for i, d := range []int{d1, d2} {
		days := decimal.NewFromInt(int64(d))
		out[i] = MonthlyContribution{
			Month:               months[i],
			EnergyKwh:           energyKwh.Mul(days).Div(total).Round(2),
			Amount:              amount.Mul(days).Div(total).Round(2),
			Days:                d,
			DistributionPercent: days.Mul(hundred).Div(total).Round(2),
		}
	}
	return out, nil
}
