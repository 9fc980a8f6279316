package balance

import (
	"context"

	"github.com/coopelec/backend/internal/domain/period"
)

// Filter restricts reading queries to a month window and optionally one point.
type Filter struct {
	PurchasePointID *int64
	From            period.Month
	To              period.Month
}

// ReadingRepository reads aggregated purchase and sale readings.
type ReadingRepository interface {
	// FetchPurchaseTotals sums purchases grouped by purchase point and month.
	FetchPurchaseTotals(ctx context.Context, filter Filter) ([]PurchaseTotal, error)
	// FetchMonthlySales sums monthly sales grouped by purchase point and month.
	FetchMonthlySales(ctx context.Context, filter Filter) ([]MonthlySale, error)
	// FetchBimestralSales returns bimestral sales overlapping the window, one per cycle and point.
	FetchBimestralSales(ctx context.Context, filter Filter) ([]BimestralSale, error)
}

// CatalogRepository resolves catalog data used to decorate balances.
type CatalogRepository interface {
	CountActiveCustomers(ctx context.Context, purchasePointID int64) (int64, error)
	PurchasePointNames(ctx context.Context, ids []int64) (map[int64]string, error)
}
