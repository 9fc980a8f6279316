package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchasePointModel is the persistence model for purchase_points
type PurchasePointModel struct {
	ID        int64    `gorm:"primaryKey;autoIncrement"`
	Name      string   `gorm:"type:varchar(120);not null"`
	Provider  string   `gorm:"type:varchar(120);not null;default:''"`
	Active    bool     `gorm:"not null"`
	Latitude  *float64 `gorm:"type:decimal(10,7)"`
	Longitude *float64 `gorm:"type:decimal(10,7)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name
func (PurchasePointModel) TableName() string {
	return "purchase_points"
}

// TariffSegmentModel is the persistence model for tariff_segments
type TariffSegmentModel struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	Code   string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(120);not null"`
	Active bool   `gorm:"not null"`
}

// TableName returns the table name
func (TariffSegmentModel) TableName() string {
	return "tariff_segments"
}

// LineModel is the persistence model for lines (feeders)
type LineModel struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	Name    string `gorm:"type:varchar(120);not null"`
	Voltage string `gorm:"type:varchar(20);not null;default:''"`
	Zone    string `gorm:"type:varchar(60);not null;default:''"`
	Active  bool   `gorm:"not null"`
}

// TableName returns the table name
func (LineModel) TableName() string {
	return "lines"
}

// DistributorModel is the persistence model for distributors
type DistributorModel struct {
	ID              int64    `gorm:"primaryKey;autoIncrement"`
	Name            string   `gorm:"type:varchar(120);not null"`
	Location        string   `gorm:"type:varchar(200);not null;default:''"`
	Latitude        *float64 `gorm:"type:decimal(10,7)"`
	Longitude       *float64 `gorm:"type:decimal(10,7)"`
	PurchasePointID int64    `gorm:"not null;index"`
	Active          bool     `gorm:"not null"`
}

// TableName returns the table name
func (DistributorModel) TableName() string {
	return "distributors"
}

// CustomerModel is the persistence model for customers. A customer is tied to
// a purchase point directly or through its distributor.
type CustomerModel struct {
	ID              int64    `gorm:"primaryKey;autoIncrement"`
	SupplyNumber    string   `gorm:"type:varchar(30);not null;uniqueIndex"`
	Name            string   `gorm:"type:varchar(200);not null"`
	Address         string   `gorm:"type:varchar(250);not null;default:''"`
	SegmentID       *int64   `gorm:"index"`
	LineID          *int64   `gorm:"index"`
	DistributorID   *int64   `gorm:"index"`
	PurchasePointID *int64   `gorm:"index"`
	Active          bool     `gorm:"not null"`
	Latitude        *float64 `gorm:"type:decimal(10,7)"`
	Longitude       *float64 `gorm:"type:decimal(10,7)"`
	PostalCode      string   `gorm:"type:varchar(10);not null;default:''"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the table name
func (CustomerModel) TableName() string {
	return "customers"
}

// PurchaseReadingModel is the persistence model for purchase_readings
type PurchaseReadingModel struct {
	ID              int64            `gorm:"primaryKey;autoIncrement"`
	PurchasePointID int64            `gorm:"not null;uniqueIndex:uq_purchase_readings_point_month"`
	PeriodMonth     string           `gorm:"type:varchar(7);not null;uniqueIndex:uq_purchase_readings_point_month"`
	EnergyKwh       decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Amount          decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	PowerFactorAvg  *decimal.Decimal `gorm:"type:decimal(5,4)"`
	PeakDemandKw    *decimal.Decimal `gorm:"type:decimal(18,2)"`
	Notes           string           `gorm:"type:text;not null;default:''"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the table name
func (PurchaseReadingModel) TableName() string {
	return "purchase_readings"
}

// SaleReadingModel is the persistence model for sale_readings. PeriodStart
// and PeriodEnd hold the first and last month covered, equal for monthly rows.
type SaleReadingModel struct {
	ID              int64            `gorm:"primaryKey;autoIncrement"`
	PurchasePointID *int64           `gorm:"index"`
	CustomerID      *int64           `gorm:"index"`
	BillingType     string           `gorm:"type:varchar(10);not null"`
	PeriodMonth     *string          `gorm:"type:varchar(7)"`
	PeriodBimestre  *string          `gorm:"type:varchar(15)"`
	PeriodStart     string           `gorm:"type:varchar(7);not null;index:idx_sale_readings_period"`
	PeriodEnd       string           `gorm:"type:varchar(7);not null;index:idx_sale_readings_period"`
	EnergyKwh       decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Amount          decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	ReadingStart    *decimal.Decimal `gorm:"type:decimal(18,2)"`
	ReadingEnd      *decimal.Decimal `gorm:"type:decimal(18,2)"`
	CreatedAt       time.Time
}

// TableName returns the table name
func (SaleReadingModel) TableName() string {
	return "sale_readings"
}

// All lists every model, in dependency order, for AutoMigrate in tests.
func All() []any {
	return []any{
		&PurchasePointModel{},
		&TariffSegmentModel{},
		&LineModel{},
		&DistributorModel{},
		&CustomerModel{},
		&PurchaseReadingModel{},
		&SaleReadingModel{},
	}
}
