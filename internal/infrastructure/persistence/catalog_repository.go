package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/coopelec/backend/internal/domain/hierarchy"
	"github.com/coopelec/backend/internal/domain/shared"
	"github.com/coopelec/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// customerOfPoint is the membership rule shared by counts, summaries and the
// tree: an active customer belongs to the point it is tied to, or else to the
// point feeding its distributor while that distributor is active. It expects
// customers as c left joined with distributors as d.
func customerOfPoint(point string) string {
	return fmt.Sprintf(
		"c.active AND (c.purchase_point_id = %[1]s OR (c.purchase_point_id IS NULL AND d.active AND d.purchase_point_id = %[1]s))",
		point)
}

// GormCatalogRepository reads purchase points, distributors and customers using GORM
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// CountActiveCustomers counts active customers tied to a purchase point,
// directly or through an active distributor
func (r *GormCatalogRepository) CountActiveCustomers(ctx context.Context, purchasePointID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("customers c").
		Joins("LEFT JOIN distributors d ON d.id = c.distributor_id").
		Where(customerOfPoint("?"), purchasePointID, purchasePointID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active customers: %w", err)
	}
	return count, nil
}

// PurchasePointNames maps the given ids to their names. Unknown ids are left out.
func (r *GormCatalogRepository) PurchasePointNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var points []models.PurchasePointModel
	err := r.db.WithContext(ctx).
		Select("id", "name").
		Where("id IN ?", ids).
		Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("query purchase point names: %w", err)
	}
	for _, p := range points {
		names[p.ID] = p.Name
	}
	return names, nil
}

// FindPurchasePoint finds a purchase point by ID
func (r *GormCatalogRepository) FindPurchasePoint(ctx context.Context, id int64) (*hierarchy.PurchasePoint, error) {
	var model models.PurchasePointModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("purchase point %d not found", id))
		}
		return nil, fmt.Errorf("find purchase point: %w", err)
	}
	point := toPurchasePoint(model)
	return &point, nil
}

// DistributorsOf lists the active distributors fed by a purchase point
func (r *GormCatalogRepository) DistributorsOf(ctx context.Context, purchasePointID int64) ([]hierarchy.Distributor, error) {
	var rows []models.DistributorModel
	err := r.db.WithContext(ctx).
		Where("purchase_point_id = ? AND active = ?", purchasePointID, true).
		Order("name, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query distributors: %w", err)
	}

	distributors := make([]hierarchy.Distributor, len(rows))
	for i, d := range rows {
		distributors[i] = hierarchy.Distributor{
			ID:              d.ID,
			Name:            d.Name,
			Location:        d.Location,
			Latitude:        d.Latitude,
			Longitude:       d.Longitude,
			PurchasePointID: d.PurchasePointID,
		}
	}
	return distributors, nil
}

// CustomersOf lists the active customers of the given distributors with
// their segment and line names resolved. Customers tied to a purchase point
// of their own are left to DirectCustomersOf.
func (r *GormCatalogRepository) CustomersOf(ctx context.Context, distributorIDs []int64) ([]hierarchy.Customer, error) {
	if len(distributorIDs) == 0 {
		return []hierarchy.Customer{}, nil
	}
	return r.findCustomers(ctx, "c.distributor_id IN ? AND c.purchase_point_id IS NULL", distributorIDs)
}

// DirectCustomersOf lists the active customers supplied straight from a
// purchase point
func (r *GormCatalogRepository) DirectCustomersOf(ctx context.Context, purchasePointID int64) ([]hierarchy.Customer, error) {
	return r.findCustomers(ctx, "c.purchase_point_id = ?", purchasePointID)
}

func (r *GormCatalogRepository) findCustomers(ctx context.Context, where string, args ...any) ([]hierarchy.Customer, error) {
	type customerResult struct {
		ID            int64
		SupplyNumber  string
		Name          string
		Address       string
		SegmentID     *int64
		SegmentName   string
		LineID        *int64
		LineName      string
		DistributorID *int64
		Active        bool
		Latitude      *float64
		Longitude     *float64
		PostalCode    string
	}

	var results []customerResult
	err := r.db.WithContext(ctx).Table("customers c").
		Select(`
			c.id, c.supply_number, c.name, c.address,
			c.segment_id, COALESCE(ts.name, '') as segment_name,
			c.line_id, COALESCE(l.name, '') as line_name,
			c.distributor_id, c.active, c.latitude, c.longitude, c.postal_code
		`).
		Joins("LEFT JOIN tariff_segments ts ON ts.id = c.segment_id").
		Joins("LEFT JOIN lines l ON l.id = c.line_id").
		Where(where, args...).
		Where("c.active = ?", true).
		Order("c.distributor_id, c.name, c.id").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}

	customers := make([]hierarchy.Customer, len(results))
	for i, c := range results {
		var distributorID int64
		if c.DistributorID != nil {
			distributorID = *c.DistributorID
		}
		customers[i] = hierarchy.Customer{
			ID:            c.ID,
			SupplyNumber:  c.SupplyNumber,
			Name:          c.Name,
			Address:       c.Address,
			SegmentID:     c.SegmentID,
			SegmentName:   c.SegmentName,
			LineID:        c.LineID,
			LineName:      c.LineName,
			DistributorID: distributorID,
			Active:        c.Active,
			Latitude:      c.Latitude,
			Longitude:     c.Longitude,
			PostalCode:    c.PostalCode,
		}
	}
	return customers, nil
}

// Summaries lists every active purchase point with its active distributor
// count and the customer count of CountActiveCustomers
func (r *GormCatalogRepository) Summaries(ctx context.Context) ([]hierarchy.Summary, error) {
	type summaryResult struct {
		models.PurchasePointModel
		TotalDistributors int
		TotalCustomers    int
	}

	var results []summaryResult
	err := r.db.WithContext(ctx).Table("purchase_points pp").
		Select(`
			pp.*,
			(SELECT COUNT(*) FROM distributors d
				WHERE d.purchase_point_id = pp.id AND d.active = ?) as total_distributors,
			(SELECT COUNT(*) FROM customers c
				LEFT JOIN distributors d ON d.id = c.distributor_id
				WHERE `+customerOfPoint("pp.id")+`) as total_customers
		`, true).
		Where("pp.active = ?", true).
		Order("pp.id").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("query hierarchy summaries: %w", err)
	}

	summaries := make([]hierarchy.Summary, len(results))
	for i, res := range results {
		summaries[i] = hierarchy.Summary{
			PurchasePoint:     toPurchasePoint(res.PurchasePointModel),
			TotalDistributors: res.TotalDistributors,
			TotalCustomers:    res.TotalCustomers,
		}
	}
	return summaries, nil
}

func toPurchasePoint(m models.PurchasePointModel) hierarchy.PurchasePoint {
	return hierarchy.PurchasePoint{
		ID:        m.ID,
		Name:      m.Name,
		Provider:  m.Provider,
		Active:    m.Active,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
	}
}
