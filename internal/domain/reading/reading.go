// Package reading holds metered purchase and sale readings as they are
// ingested. Analytics never writes them; it only reads their aggregates.
package reading

import (
	"context"
	"fmt"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/coopelec/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BillingType distinguishes monthly from bimestral sale readings.
type BillingType string

const (
	BillingMonthly   BillingType = "MONTHLY"
	BillingBimestral BillingType = "BIMONTHLY"
)

var one = decimal.NewFromInt(1)

// Purchase is the energy bought at a purchase point in one month. There is
// at most one per point and month; ingesting again replaces it.
type Purchase struct {
	PurchasePointID int64
	Month           period.Month
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
	PowerFactorAvg  *decimal.Decimal
	PeakDemandKw    *decimal.Decimal
	Notes           string
}

// PurchaseInput carries unvalidated purchase fields.
type PurchaseInput struct {
	PurchasePointID int64
	PeriodMonth     string
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
	PowerFactorAvg  *decimal.Decimal
	PeakDemandKw    *decimal.Decimal
	Notes           string
}

// NewPurchase validates in and normalizes its measurements to two places.
func NewPurchase(bounds period.Bounds, in PurchaseInput) (*Purchase, error) {
	if in.PurchasePointID <= 0 {
		return nil, invalid("purchase_point_id must be positive")
	}
	m, err := bounds.ParseMonth(in.PeriodMonth)
	if err != nil {
		return nil, err
	}
	if in.EnergyKwh.IsNegative() || in.Amount.IsNegative() {
		return nil, invalid("energy and amount must not be negative")
	}
	if in.PowerFactorAvg != nil && (in.PowerFactorAvg.IsNegative() || in.PowerFactorAvg.GreaterThan(one)) {
		return nil, invalid("power factor must be between 0 and 1")
	}
	if in.PeakDemandKw != nil && in.PeakDemandKw.IsNegative() {
		return nil, invalid("peak demand must not be negative")
	}

	return &Purchase{
		PurchasePointID: in.PurchasePointID,
		Month:           m,
		EnergyKwh:       in.EnergyKwh.Round(2),
		Amount:          in.Amount.Round(2),
		PowerFactorAvg:  in.PowerFactorAvg,
		PeakDemandKw:    in.PeakDemandKw,
		Notes:           in.Notes,
	}, nil
}

// Sale is energy sold under a purchase point or to a customer, either for
// one month or for a two-month cycle. A bimestral sale is stored once and
// prorated on read.
type Sale struct {
	PurchasePointID *int64
	CustomerID      *int64
	BillingType     BillingType
	Month           period.Month
	Bimestre        period.Bimestre
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
	ReadingStart    *decimal.Decimal
	ReadingEnd      *decimal.Decimal
}

// SaleInput carries unvalidated sale fields. Exactly one of PeriodMonth and
// PeriodBimestre must be set.
type SaleInput struct {
	PurchasePointID *int64
	CustomerID      *int64
	PeriodMonth     string
	PeriodBimestre  string
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
	ReadingStart    *decimal.Decimal
	ReadingEnd      *decimal.Decimal
}

// NewSale validates in.
func NewSale(bounds period.Bounds, in SaleInput) (*Sale, error) {
	if in.PurchasePointID == nil && in.CustomerID == nil {
		return nil, invalid("either purchase_point_id or customer_id is required")
	}
	if in.EnergyKwh.IsNegative() || in.Amount.IsNegative() {
		return nil, invalid("energy and amount must not be negative")
	}
	if in.ReadingStart != nil && in.ReadingEnd != nil && in.ReadingEnd.LessThan(*in.ReadingStart) {
		return nil, invalid("final meter reading is lower than the initial one")
	}

	s := &Sale{
		PurchasePointID: in.PurchasePointID,
		CustomerID:      in.CustomerID,
		EnergyKwh:       in.EnergyKwh.Round(2),
		Amount:          in.Amount.Round(2),
		ReadingStart:    in.ReadingStart,
		ReadingEnd:      in.ReadingEnd,
	}

	switch {
	case in.PeriodMonth != "" && in.PeriodBimestre != "":
		return nil, invalid("period_month and period_bimestre are mutually exclusive")
	case in.PeriodMonth != "":
		m, err := bounds.ParseMonth(in.PeriodMonth)
		if err != nil {
			return nil, err
		}
		s.BillingType = BillingMonthly
		s.Month = m
	case in.PeriodBimestre != "":
		b, err := bounds.ParseBimestre(in.PeriodBimestre)
		if err != nil {
			return nil, err
		}
		if !b.Adjacent() {
			return nil, shared.ErrInvalidPeriodFormat.WithMessage(
				fmt.Sprintf("bimestre %s does not span consecutive months", b))
		}
		s.BillingType = BillingBimestral
		s.Bimestre = b
	default:
		return nil, invalid("period_month or period_bimestre is required")
	}
	return s, nil
}

// FirstMonth is the first month the sale covers.
func (s *Sale) FirstMonth() period.Month {
	if s.BillingType == BillingBimestral {
		return s.Bimestre.First
	}
	return s.Month
}

// LastMonth is the last month the sale covers.
func (s *Sale) LastMonth() period.Month {
	if s.BillingType == BillingBimestral {
		return s.Bimestre.Second
	}
	return s.Month
}

func invalid(msg string) error {
	return shared.ErrInvalidInput.WithMessage(msg)
}

// Writer persists ingested readings.
type Writer interface {
	// UpsertPurchases inserts purchases, replacing any existing reading for
	// the same purchase point and month.
	UpsertPurchases(ctx context.Context, purchases []Purchase) error
	InsertSales(ctx context.Context, sales []Sale) error
}
