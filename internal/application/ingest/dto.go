package ingest

import "github.com/shopspring/decimal"

// PurchaseRequest is one purchase reading as delivered by the ETL
type PurchaseRequest struct {
	PurchasePointID int64            `json:"purchase_point_id" binding:"required,gt=0" example:"1"`
	PeriodMonth     string           `json:"period_month" binding:"required,period_month" example:"2024-01"`
	EnergyKwh       decimal.Decimal  `json:"energy_kwh" example:"125000.50"`
	Amount          decimal.Decimal  `json:"amount" example:"9800000"`
	PowerFactorAvg  *decimal.Decimal `json:"power_factor_avg,omitempty" example:"0.94"`
	PeakDemandKw    *decimal.Decimal `json:"peak_demand_kw,omitempty" example:"310"`
	Notes           string           `json:"notes,omitempty" binding:"max=2000"`
}

// PurchaseBatchRequest carries the purchase readings of one upload
type PurchaseBatchRequest struct {
	Readings []PurchaseRequest `json:"readings" binding:"required,min=1,max=1000,dive"`
}

// SaleRequest is one sale reading. Exactly one of PeriodMonth and
// PeriodBimestre is set; at least one of PurchasePointID and CustomerID.
type SaleRequest struct {
	PurchasePointID *int64           `json:"purchase_point_id,omitempty" binding:"omitempty,gt=0" example:"1"`
	CustomerID      *int64           `json:"customer_id,omitempty" binding:"omitempty,gt=0"`
	PeriodMonth     string           `json:"period_month,omitempty" binding:"omitempty,period_month" example:"2024-01"`
	PeriodBimestre  string           `json:"period_bimestre,omitempty" binding:"omitempty,period_bimestre" example:"2024-01_2024-02"`
	EnergyKwh       decimal.Decimal  `json:"energy_kwh" example:"600"`
	Amount          decimal.Decimal  `json:"amount" example:"45000"`
	ReadingStart    *decimal.Decimal `json:"reading_start,omitempty"`
	ReadingEnd      *decimal.Decimal `json:"reading_end,omitempty"`
}

// SaleBatchRequest carries the sale readings of one upload
type SaleBatchRequest struct {
	Readings []SaleRequest `json:"readings" binding:"required,min=1,max=5000,dive"`
}

// IngestResponse reports how many readings were stored
type IngestResponse struct {
	Received int `json:"received"`
	Stored   int `json:"stored"`
	// Replaced counts purchase readings that repeated a point and month
	// earlier in the same batch; the last one wins.
	Replaced int `json:"replaced,omitempty"`
}
