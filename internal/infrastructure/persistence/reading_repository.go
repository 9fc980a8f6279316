package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/coopelec/backend/internal/domain/balance"
	"github.com/coopelec/backend/internal/domain/reading"
	"github.com/coopelec/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// salePointExpr resolves the purchase point of a sale: its own, the
// customer's, or the one feeding the customer's distributor.
const salePointExpr = "COALESCE(s.purchase_point_id, c.purchase_point_id, d.purchase_point_id)"

const insertBatchSize = 500

// GormReadingRepository reads and writes purchase and sale readings using GORM
type GormReadingRepository struct {
	db *gorm.DB
}

// NewGormReadingRepository creates a new GormReadingRepository
func NewGormReadingRepository(db *gorm.DB) *GormReadingRepository {
	return &GormReadingRepository{db: db}
}

// FetchPurchaseTotals sums purchase readings by purchase point and month
func (r *GormReadingRepository) FetchPurchaseTotals(ctx context.Context, filter balance.Filter) ([]balance.PurchaseTotal, error) {
	type purchaseResult struct {
		PurchasePointID int64
		PeriodMonth     string
		EnergyKwh       decimal.Decimal
		Amount          decimal.Decimal
		PeakDemandKw    decimal.Decimal
	}

	var results []purchaseResult
	query := r.db.WithContext(ctx).Table("purchase_readings pr").
		Select(`
			pr.purchase_point_id as purchase_point_id,
			pr.period_month as period_month,
			COALESCE(SUM(pr.energy_kwh), 0) as energy_kwh,
			COALESCE(SUM(pr.amount), 0) as amount,
			COALESCE(MAX(pr.peak_demand_kw), 0) as peak_demand_kw
		`).
		Where("pr.period_month BETWEEN ? AND ?", filter.From.String(), filter.To.String())
	if filter.PurchasePointID != nil {
		query = query.Where("pr.purchase_point_id = ?", *filter.PurchasePointID)
	}

	err := query.Group("pr.purchase_point_id, pr.period_month").
		Order("pr.purchase_point_id, pr.period_month").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("query purchase totals: %w", err)
	}

	totals := make([]balance.PurchaseTotal, len(results))
	for i, res := range results {
		totals[i] = balance.PurchaseTotal{
			PurchasePointID: res.PurchasePointID,
			PeriodMonth:     res.PeriodMonth,
			EnergyKwh:       res.EnergyKwh,
			Amount:          res.Amount,
			PeakDemandKw:    res.PeakDemandKw,
		}
	}
	return totals, nil
}

type saleResult struct {
	PurchasePointID int64
	Period          string
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
}

// saleQuery groups sales of one billing type by resolved purchase point and periodColumn.
func (r *GormReadingRepository) saleQuery(ctx context.Context, billing reading.BillingType, periodColumn string, filter balance.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Table("sale_readings s").
		Select(fmt.Sprintf(`
			%s as purchase_point_id,
			%s as period,
			COALESCE(SUM(s.energy_kwh), 0) as energy_kwh,
			COALESCE(SUM(s.amount), 0) as amount
		`, salePointExpr, periodColumn)).
		Joins("LEFT JOIN customers c ON c.id = s.customer_id").
		Joins("LEFT JOIN distributors d ON d.id = c.distributor_id").
		Where("s.billing_type = ?", string(billing)).
		Where("s.period_end >= ? AND s.period_start <= ?", filter.From.String(), filter.To.String()).
		Where(salePointExpr + " IS NOT NULL")
	if filter.PurchasePointID != nil {
		query = query.Where(salePointExpr+" = ?", *filter.PurchasePointID)
	}
	return query.
		Group(salePointExpr + ", " + periodColumn).
		Order(salePointExpr + ", " + periodColumn)
}

// FetchMonthlySales sums monthly sale readings by purchase point and month
func (r *GormReadingRepository) FetchMonthlySales(ctx context.Context, filter balance.Filter) ([]balance.MonthlySale, error) {
	var results []saleResult
	if err := r.saleQuery(ctx, reading.BillingMonthly, "s.period_start", filter).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("query monthly sales: %w", err)
	}

	sales := make([]balance.MonthlySale, len(results))
	for i, res := range results {
		sales[i] = balance.MonthlySale{
			PurchasePointID: res.PurchasePointID,
			PeriodMonth:     res.Period,
			EnergyKwh:       res.EnergyKwh,
			Amount:          res.Amount,
		}
	}
	return sales, nil
}

// FetchBimestralSales sums bimestral sale readings overlapping the window by
// purchase point and billing cycle
func (r *GormReadingRepository) FetchBimestralSales(ctx context.Context, filter balance.Filter) ([]balance.BimestralSale, error) {
	var results []saleResult
	if err := r.saleQuery(ctx, reading.BillingBimestral, "s.period_bimestre", filter).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("query bimestral sales: %w", err)
	}

	sales := make([]balance.BimestralSale, len(results))
	for i, res := range results {
		sales[i] = balance.BimestralSale{
			PurchasePointID: res.PurchasePointID,
			PeriodBimestre:  res.Period,
			EnergyKwh:       res.EnergyKwh,
			Amount:          res.Amount,
		}
	}
	return sales, nil
}

// UpsertPurchases inserts purchase readings, replacing the figures of any
// existing reading for the same purchase point and month
func (r *GormReadingRepository) UpsertPurchases(ctx context.Context, purchases []reading.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]models.PurchaseReadingModel, len(purchases))
	for i, p := range purchases {
		rows[i] = models.PurchaseReadingModel{
			PurchasePointID: p.PurchasePointID,
			PeriodMonth:     p.Month.String(),
			EnergyKwh:       p.EnergyKwh,
			Amount:          p.Amount,
			PowerFactorAvg:  p.PowerFactorAvg,
			PeakDemandKw:    p.PeakDemandKw,
			Notes:           p.Notes,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "purchase_point_id"}, {Name: "period_month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"energy_kwh", "amount", "power_factor_avg", "peak_demand_kw", "notes", "updated_at",
		}),
	}).CreateInBatches(&rows, insertBatchSize).Error
	if err != nil {
		return fmt.Errorf("upsert purchase readings: %w", err)
	}
	return nil
}

// InsertSales stores sale readings, one row per reading
func (r *GormReadingRepository) InsertSales(ctx context.Context, sales []reading.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	rows := make([]models.SaleReadingModel, len(sales))
	for i := range sales {
		s := &sales[i]
		row := models.SaleReadingModel{
			PurchasePointID: s.PurchasePointID,
			CustomerID:      s.CustomerID,
			BillingType:     string(s.BillingType),
			PeriodStart:     s.FirstMonth().String(),
			PeriodEnd:       s.LastMonth().String(),
			EnergyKwh:       s.EnergyKwh,
			Amount:          s.Amount,
			ReadingStart:    s.ReadingStart,
			ReadingEnd:      s.ReadingEnd,
		}
		if s.BillingType == reading.BillingBimestral {
			b := s.Bimestre.String()
			row.PeriodBimestre = &b
		} else {
			m := s.Month.String()
			row.PeriodMonth = &m
		}
		rows[i] = row
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert sale readings: %w", err)
	}
	return nil
}
