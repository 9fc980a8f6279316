// Package balance reconciles purchased and sold energy per purchase point and
// month, and derives losses, alerts and rankings from the result.
package balance

import "github.com/shopspring/decimal"

// Tier is the severity bucket of a loss percentage.
type Tier string

const (
	TierNormal   Tier = "normal"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// Tiers lists every tier from least to most severe.
var Tiers = []Tier{TierNormal, TierModerate, TierHigh, TierCritical}

// Descriptions attached by the classifier and the reconciler.
const (
	DescSaleExceedsPurchase = "sale exceeds purchase (possible measurement error)"
	DescNormal              = "normal technical losses"
	DescModerate            = "moderate losses — inspect network"
	DescHigh                = "high losses — requires investigation"
	DescCritical            = "critical losses — urgent intervention"
	DescNoSales             = "no sales recorded"
	DescNoPurchase          = "sale without matching purchase"
)

var (
	hundred       = decimal.NewFromInt(100)
	moderateFloor = decimal.NewFromInt(5)
	highFloor     = decimal.NewFromInt(10)
	criticalFloor = decimal.NewFromInt(20)
)

// Classification is the result of classifying a loss percentage.
type Classification struct {
	Tier        Tier
	Description string
}

// Classify maps a loss percentage to its tier. Upper bounds are inclusive:
// 5 is normal, 10 moderate and 20 high.
func Classify(lossPercent decimal.Decimal) Classification {
	switch {
	case lossPercent.IsNegative():
		return Classification{TierNormal, DescSaleExceedsPurchase}
	case lossPercent.LessThanOrEqual(moderateFloor):
		return Classification{TierNormal, DescNormal}
	case lossPercent.LessThanOrEqual(highFloor):
		return Classification{TierModerate, DescModerate}
	case lossPercent.LessThanOrEqual(criticalFloor):
		return Classification{TierHigh, DescHigh}
	default:
		return Classification{TierCritical, DescCritical}
	}
}

// LossPercent returns (bought-sold)/bought*100 rounded to two places, or zero
// when nothing was bought.
func LossPercent(bought, sold decimal.Decimal) decimal.Decimal {
	if !bought.IsPositive() {
		return decimal.Zero
	}
	return bought.Sub(sold).Mul(hundred).Div(bought).Round(2)
}
