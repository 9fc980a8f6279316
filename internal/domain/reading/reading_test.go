package reading

import (
	"errors"
	"testing"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/coopelec/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestNewPurchase(t *testing.T) {
	t.Run("valid purchase is normalized", func(t *testing.T) {
		p, err := NewPurchase(period.DefaultBounds, PurchaseInput{
			PurchasePointID: 3,
			PeriodMonth:     "2024-05",
			EnergyKwh:       dec("1500.456"),
			Amount:          dec("99.999"),
			PowerFactorAvg:  decPtr("0.93"),
		})
		require.NoError(t, err)
		assert.Equal(t, "2024-05", p.Month.String())
		assert.Equal(t, "1500.46", p.EnergyKwh.StringFixed(2))
		assert.Equal(t, "100.00", p.Amount.StringFixed(2))
	})

	tests := []struct {
		name string
		in   PurchaseInput
		want error
	}{
		{"missing point", PurchaseInput{PeriodMonth: "2024-05"}, shared.ErrInvalidInput},
		{"bad month", PurchaseInput{PurchasePointID: 1, PeriodMonth: "2024-5"}, shared.ErrInvalidPeriodFormat},
		{"negative energy", PurchaseInput{PurchasePointID: 1, PeriodMonth: "2024-05", EnergyKwh: dec("-1")}, shared.ErrInvalidInput},
		{"power factor above one", PurchaseInput{PurchasePointID: 1, PeriodMonth: "2024-05", PowerFactorAvg: decPtr("1.2")}, shared.ErrInvalidInput},
		{"negative demand", PurchaseInput{PurchasePointID: 1, PeriodMonth: "2024-05", PeakDemandKw: decPtr("-3")}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPurchase(period.DefaultBounds, tt.in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNewSale(t *testing.T) {
	t.Run("monthly", func(t *testing.T) {
		s, err := NewSale(period.DefaultBounds, SaleInput{
			PurchasePointID: int64Ptr(1),
			PeriodMonth:     "2024-05",
			EnergyKwh:       dec("10"),
		})
		require.NoError(t, err)
		assert.Equal(t, BillingMonthly, s.BillingType)
		assert.Equal(t, "2024-05", s.FirstMonth().String())
		assert.Equal(t, "2024-05", s.LastMonth().String())
	})

	t.Run("bimestral", func(t *testing.T) {
		s, err := NewSale(period.DefaultBounds, SaleInput{
			CustomerID:     int64Ptr(8),
			PeriodBimestre: "2024-12_2025-01",
			EnergyKwh:      dec("600"),
		})
		require.NoError(t, err)
		assert.Equal(t, BillingBimestral, s.BillingType)
		assert.Equal(t, "2024-12", s.FirstMonth().String())
		assert.Equal(t, "2025-01", s.LastMonth().String())
	})

	tests := []struct {
		name string
		in   SaleInput
		want error
	}{
		{"no owner", SaleInput{PeriodMonth: "2024-05"}, shared.ErrInvalidInput},
		{"no period", SaleInput{PurchasePointID: int64Ptr(1)}, shared.ErrInvalidInput},
		{"both periods", SaleInput{PurchasePointID: int64Ptr(1), PeriodMonth: "2024-05", PeriodBimestre: "2024-05_2024-06"}, shared.ErrInvalidInput},
		{"gap bimestre", SaleInput{PurchasePointID: int64Ptr(1), PeriodBimestre: "2024-05_2024-07"}, shared.ErrInvalidPeriodFormat},
		{"negative amount", SaleInput{PurchasePointID: int64Ptr(1), PeriodMonth: "2024-05", Amount: dec("-2")}, shared.ErrInvalidInput},
		{"meter went backwards", SaleInput{PurchasePointID: int64Ptr(1), PeriodMonth: "2024-05", ReadingStart: decPtr("100"), ReadingEnd: decPtr("90")}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSale(period.DefaultBounds, tt.in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
