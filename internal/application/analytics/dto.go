package analytics

import (
	"time"

	"github.com/coopelec/backend/internal/domain/balance"
	"github.com/coopelec/backend/internal/domain/hierarchy"
	"github.com/shopspring/decimal"
)

// ===================== Requests =====================

// ProrateRequest is a bimestral sale to split into months
type ProrateRequest struct {
	PeriodBimestre string   `json:"period_bimestre" binding:"required,period_bimestre" example:"2024-01_2024-02"`
	EnergySoldKwh  *float64 `json:"energy_sold_kwh" binding:"required,gte=0" example:"600"`
	AmountSold     *float64 `json:"amount_sold" binding:"omitempty,gte=0" example:"45000"`
}

// BalanceQuery selects a month window, optionally for one purchase point
type BalanceQuery struct {
	PurchasePointID *int64 `form:"purchase_point_id" binding:"omitempty,gt=0"`
	PeriodFrom      string `form:"period_from" binding:"required,period_month" example:"2024-01"`
	PeriodTo        string `form:"period_to" binding:"required,period_month" example:"2024-06"`
}

// ===================== Responses =====================

// MonthlyContributionResponse is one month of a prorated sale
type MonthlyContributionResponse struct {
	PeriodMonth         string  `json:"period_month"`
	EnergySoldKwh       float64 `json:"energy_sold_kwh"`
	AmountSold          float64 `json:"amount_sold"`
	Days                int     `json:"days"`
	DistributionPercent float64 `json:"distribution_percent"`
}

// ProrateResponse is the monthly breakdown of a bimestral sale
type ProrateResponse struct {
	PeriodBimestre string                        `json:"period_bimestre"`
	EnergySoldKwh  float64                       `json:"energy_sold_kwh"`
	AmountSold     float64                       `json:"amount_sold"`
	Months         []MonthlyContributionResponse `json:"months"`
}

// BalanceEntryResponse is the balance of a purchase point for one month
type BalanceEntryResponse struct {
	PurchasePointID     int64   `json:"purchase_point_id"`
	PeriodMonth         string  `json:"period_month"`
	EnergyBoughtKwh     float64 `json:"energy_bought_kwh"`
	EnergySoldKwh       float64 `json:"energy_sold_kwh"`
	AmountBought        float64 `json:"amount_bought"`
	AmountSold          float64 `json:"amount_sold"`
	LossKwh             float64 `json:"loss_kwh"`
	LossPercent         float64 `json:"loss_percent"`
	SeverityTier        string  `json:"severity_tier"`
	SeverityDescription string  `json:"severity_description"`
}

// PurchaseLineResponse is the energy bought at a point in one month
type PurchaseLineResponse struct {
	PurchasePointID int64   `json:"purchase_point_id"`
	PeriodMonth     string  `json:"period_month"`
	EnergyBoughtKwh float64 `json:"energy_bought_kwh"`
	AmountBought    float64 `json:"amount_bought"`
	PeakDemandKw    float64 `json:"peak_demand_kw"`
	LoadFactor      float64 `json:"load_factor"`
}

// PurchaseBalanceResponse lists purchases with their totals
type PurchaseBalanceResponse struct {
	Lines          []PurchaseLineResponse `json:"lines"`
	TotalEnergyKwh float64                `json:"total_energy_kwh"`
	TotalAmount    float64                `json:"total_amount"`
	TotalRecords   int                    `json:"total_records"`
	SkippedRecords int                    `json:"skipped_records"`
}

// SaleLineResponse is the energy sold under a point in one month, with
// bimestral sales already prorated
type SaleLineResponse struct {
	PurchasePointID int64   `json:"purchase_point_id"`
	PeriodMonth     string  `json:"period_month"`
	EnergySoldKwh   float64 `json:"energy_sold_kwh"`
	AmountSold      float64 `json:"amount_sold"`
}

// SaleBalanceResponse lists sales with their totals
type SaleBalanceResponse struct {
	Lines          []SaleLineResponse `json:"lines"`
	TotalEnergyKwh float64            `json:"total_energy_kwh"`
	TotalAmount    float64            `json:"total_amount"`
	TotalRecords   int                `json:"total_records"`
	SkippedRecords int                `json:"skipped_records"`
}

// LossAnalysisEntryResponse is a balance entry with customer context
type LossAnalysisEntryResponse struct {
	BalanceEntryResponse
	CustomerCount   int64   `json:"customer_count"`
	KwhPerCustomer  float64 `json:"kwh_per_customer"`
	LoadFactor      float64 `json:"load_factor"`
	AverageDemandKw float64 `json:"average_demand_kw"`
}

// StatisticsResponse describes the loss distribution of an analysis
type StatisticsResponse struct {
	Count              int            `json:"count"`
	AverageLossPercent float64        `json:"average_loss_percent"`
	MaxLossPercent     float64        `json:"max_loss_percent"`
	MinLossPercent     float64        `json:"min_loss_percent"`
	TierDistribution   map[string]int `json:"tier_distribution"`
}

// LossAnalysisResponse is the loss analysis of a window
type LossAnalysisResponse struct {
	Entries    []LossAnalysisEntryResponse `json:"entries"`
	Statistics StatisticsResponse          `json:"statistics"`
}

// PeriodSummaryResponse aggregates one month across all purchase points
type PeriodSummaryResponse struct {
	PeriodMonth       string         `json:"period_month"`
	TotalBoughtKwh    float64        `json:"total_bought_kwh"`
	TotalSoldKwh      float64        `json:"total_sold_kwh"`
	TotalAmountBought float64        `json:"total_amount_bought"`
	TotalAmountSold   float64        `json:"total_amount_sold"`
	TotalLossKwh      float64        `json:"total_loss_kwh"`
	LossPercent       float64        `json:"loss_percent"`
	SeverityCounts    map[string]int `json:"severity_counts"`
	TotalPoints       int            `json:"total_points"`
}

// TopLossResponse is one position of the loss ranking
type TopLossResponse struct {
	Rank              int     `json:"rank"`
	PurchasePointID   int64   `json:"purchase_point_id"`
	PurchasePointName string  `json:"purchase_point_name"`
	PeriodMonth       string  `json:"period_month"`
	EnergyBoughtKwh   float64 `json:"energy_bought_kwh"`
	EnergySoldKwh     float64 `json:"energy_sold_kwh"`
	LossKwh           float64 `json:"loss_kwh"`
	LossPercent       float64 `json:"loss_percent"`
	SeverityTier      string  `json:"severity_tier"`
}

// AlertResponse is a generated loss alert
type AlertResponse struct {
	ID                  string    `json:"id"`
	PurchasePointID     int64     `json:"purchase_point_id"`
	PurchasePointName   string    `json:"purchase_point_name,omitempty"`
	PeriodMonth         string    `json:"period_month"`
	AlertType           string    `json:"alert_type"`
	Message             string    `json:"message"`
	LossPercent         float64   `json:"loss_percent"`
	PreviousLossPercent *float64  `json:"previous_loss_percent,omitempty"`
	Threshold           *float64  `json:"threshold,omitempty"`
	Priority            string    `json:"priority"`
	State               string    `json:"state"`
	CreatedAt           time.Time `json:"created_at"`
}

// AlertStatsResponse counts alerts by type and priority
type AlertStatsResponse struct {
	Total      int            `json:"total"`
	ByType     map[string]int `json:"by_type"`
	ByPriority map[string]int `json:"by_priority"`
}

// AlertsResponse is the result of an alert scan
type AlertsResponse struct {
	PeriodMonth string             `json:"period_month"`
	Alerts      []AlertResponse    `json:"alerts"`
	Stats       AlertStatsResponse `json:"stats"`
}

// CustomerResponse is a customer node of the hierarchy
type CustomerResponse struct {
	ID           int64    `json:"id"`
	SupplyNumber string   `json:"supply_number"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	SegmentID    *int64   `json:"segment_id"`
	SegmentName  string   `json:"segment_name"`
	LineID       *int64   `json:"line_id"`
	LineName     string   `json:"line_name"`
	Active       bool     `json:"active"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	PostalCode   string   `json:"postal_code"`
}

// DistributorResponse is a distributor node of the hierarchy
type DistributorResponse struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Location       string             `json:"location"`
	Latitude       *float64           `json:"latitude"`
	Longitude      *float64           `json:"longitude"`
	TotalCustomers int                `json:"total_customers"`
	Customers      []CustomerResponse `json:"customers"`
}

// HierarchyResponse is the tree under a purchase point
type HierarchyResponse struct {
	ID                int64                 `json:"id"`
	Name              string                `json:"name"`
	Provider          string                `json:"provider"`
	Active            bool                  `json:"active"`
	Latitude          *float64              `json:"latitude"`
	Longitude         *float64              `json:"longitude"`
	TotalDistributors int                   `json:"total_distributors"`
	TotalCustomers    int                   `json:"total_customers"`
	Distributors      []DistributorResponse `json:"distributors"`
	DirectCustomers   []CustomerResponse    `json:"direct_customers"`
}

// HierarchySummaryResponse is a purchase point with its counts
type HierarchySummaryResponse struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	Provider          string   `json:"provider"`
	Active            bool     `json:"active"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	TotalDistributors int      `json:"total_distributors"`
	TotalCustomers    int      `json:"total_customers"`
}

// HierarchySummaryListResponse lists every purchase point with global totals
type HierarchySummaryListResponse struct {
	PurchasePoints      []HierarchySummaryResponse `json:"purchase_points"`
	TotalPurchasePoints int                        `json:"total_purchase_points"`
	TotalDistributors   int                        `json:"total_distributors"`
	TotalCustomers      int                        `json:"total_customers"`
}

// ===================== Mapping =====================

func toFloat64(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toFloat64Ptr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func toBalanceEntryResponse(e balance.Entry) BalanceEntryResponse {
	return BalanceEntryResponse{
		PurchasePointID:     e.PurchasePointID,
		PeriodMonth:         e.Month.String(),
		EnergyBoughtKwh:     toFloat64(e.EnergyBoughtKwh),
		EnergySoldKwh:       toFloat64(e.EnergySoldKwh),
		AmountBought:        toFloat64(e.AmountBought),
		AmountSold:          toFloat64(e.AmountSold),
		LossKwh:             toFloat64(e.LossKwh),
		LossPercent:         toFloat64(e.LossPercent),
		SeverityTier:        string(e.Tier),
		SeverityDescription: e.Description,
	}
}

func toAlertResponse(a balance.Alert) AlertResponse {
	return AlertResponse{
		ID:                  a.ID,
		PurchasePointID:     a.PurchasePointID,
		PurchasePointName:   a.PurchasePointName,
		PeriodMonth:         a.Month.String(),
		AlertType:           string(a.Type),
		Message:             a.Message,
		LossPercent:         toFloat64(a.LossPercent),
		PreviousLossPercent: toFloat64Ptr(a.PreviousLossPercent),
		Threshold:           toFloat64Ptr(a.Threshold),
		Priority:            string(a.Priority),
		State:               string(a.State),
		CreatedAt:           a.CreatedAt,
	}
}

func toAlertStatsResponse(stats balance.AlertStats) AlertStatsResponse {
	out := AlertStatsResponse{
		Total:      stats.Total,
		ByType:     make(map[string]int, len(stats.ByType)),
		ByPriority: make(map[string]int, len(stats.ByPriority)),
	}
	for t, n := range stats.ByType {
		out.ByType[string(t)] = n
	}
	for p, n := range stats.ByPriority {
		out.ByPriority[string(p)] = n
	}
	return out
}

func tierCounts(counts map[balance.Tier]int) map[string]int {
	out := make(map[string]int, len(counts))
	for t, n := range counts {
		out[string(t)] = n
	}
	return out
}

func toHierarchyResponse(node hierarchy.PurchasePointNode) *HierarchyResponse {
	resp := &HierarchyResponse{
		ID:                node.ID,
		Name:              node.Name,
		Provider:          node.Provider,
		Active:            node.Active,
		Latitude:          node.Latitude,
		Longitude:         node.Longitude,
		TotalDistributors: node.TotalDistributors,
		TotalCustomers:    node.TotalCustomers,
		Distributors:      make([]DistributorResponse, 0, len(node.Distributors)),
		DirectCustomers:   toCustomerResponses(node.DirectCustomers),
	}
	for _, d := range node.Distributors {
		dr := DistributorResponse{
			ID:             d.ID,
			Name:           d.Name,
			Location:       d.Location,
			Latitude:       d.Latitude,
			Longitude:      d.Longitude,
			TotalCustomers: d.TotalCustomers,
			Customers:      toCustomerResponses(d.Customers),
		}
		resp.Distributors = append(resp.Distributors, dr)
	}
	return resp
}

func toCustomerResponses(customers []hierarchy.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, CustomerResponse{
			ID:           c.ID,
			SupplyNumber: c.SupplyNumber,
			Name:         c.Name,
			Address:      c.Address,
			SegmentID:    c.SegmentID,
			SegmentName:  c.SegmentName,
			LineID:       c.LineID,
			LineName:     c.LineName,
			Active:       c.Active,
			Latitude:     c.Latitude,
			Longitude:    c.Longitude,
			PostalCode:   c.PostalCode,
		})
	}
	return out
}
