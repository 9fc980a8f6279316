// Package ingest validates and stores the purchase and sale readings the
// analytics use cases read.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/coopelec/backend/internal/domain/reading"
	"github.com/coopelec/backend/internal/domain/shared"
	"github.com/coopelec/backend/internal/infrastructure/logger"
	"github.com/coopelec/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Recorder receives operation timings
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, time.Duration, error) {}

// Service validates whole batches before writing any of them
type Service struct {
	writer   reading.Writer
	bounds   period.Bounds
	recorder Recorder
	logger   *zap.Logger
}

// NewService creates a new ingest Service
func NewService(writer reading.Writer, bounds period.Bounds, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		writer:   writer,
		bounds:   bounds,
		recorder: nopRecorder{},
		logger:   logger,
	}
}

// WithRecorder sets the metrics recorder
func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

type purchaseKey struct {
	pointID int64
	month   period.Month
}

// UpsertPurchases stores purchase readings, replacing any stored reading for
// the same purchase point and month
func (s *Service) UpsertPurchases(ctx context.Context, req PurchaseBatchRequest) (resp *IngestResponse, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "ingest", "upsert_purchases",
		attribute.Int("readings.received", len(req.Readings)))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		s.recorder.RecordOperation("ingest_purchases", time.Since(start), err)
	}()

	purchases := make([]reading.Purchase, 0, len(req.Readings))
	position := make(map[purchaseKey]int, len(req.Readings))
	for i, r := range req.Readings {
		p, err := reading.NewPurchase(s.bounds, reading.PurchaseInput{
			PurchasePointID: r.PurchasePointID,
			PeriodMonth:     r.PeriodMonth,
			EnergyKwh:       r.EnergyKwh,
			Amount:          r.Amount,
			PowerFactorAvg:  r.PowerFactorAvg,
			PeakDemandKw:    r.PeakDemandKw,
			Notes:           r.Notes,
		})
		if err != nil {
			return nil, atIndex(i, err)
		}
		// A single upsert statement cannot touch the same row twice.
		key := purchaseKey{pointID: p.PurchasePointID, month: p.Month}
		if at, seen := position[key]; seen {
			purchases[at] = *p
			continue
		}
		position[key] = len(purchases)
		purchases = append(purchases, *p)
	}

	if err := s.writer.UpsertPurchases(ctx, purchases); err != nil {
		return nil, err
	}

	resp = &IngestResponse{
		Received: len(req.Readings),
		Stored:   len(purchases),
		Replaced: len(req.Readings) - len(purchases),
	}
	logger.Enrich(ctx, s.logger).Info("Purchase readings stored",
		zap.Int("received", resp.Received),
		zap.Int("stored", resp.Stored),
		zap.Int("replaced", resp.Replaced),
	)
	return resp, nil
}

// InsertSales stores sale readings. Monthly and bimestral readings may be
// mixed in one batch.
func (s *Service) InsertSales(ctx context.Context, req SaleBatchRequest) (resp *IngestResponse, err error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "ingest", "insert_sales",
		attribute.Int("readings.received", len(req.Readings)))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		s.recorder.RecordOperation("ingest_sales", time.Since(start), err)
	}()

	sales := make([]reading.Sale, 0, len(req.Readings))
	bimestral := 0
	for i, r := range req.Readings {
		sale, err := reading.NewSale(s.bounds, reading.SaleInput{
			PurchasePointID: r.PurchasePointID,
			CustomerID:      r.CustomerID,
			PeriodMonth:     r.PeriodMonth,
			PeriodBimestre:  r.PeriodBimestre,
			EnergyKwh:       r.EnergyKwh,
			Amount:          r.Amount,
			ReadingStart:    r.ReadingStart,
			ReadingEnd:      r.ReadingEnd,
		})
		if err != nil {
			return nil, atIndex(i, err)
		}
		if sale.BillingType == reading.BillingBimestral {
			bimestral++
		}
		sales = append(sales, *sale)
	}

	if err := s.writer.InsertSales(ctx, sales); err != nil {
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("Sale readings stored",
		zap.Int("monthly", len(sales)-bimestral),
		zap.Int("bimestral", bimestral),
	)
	return &IngestResponse{Received: len(req.Readings), Stored: len(sales)}, nil
}

// atIndex prefixes a validation error with the offending position, keeping
// its code.
func atIndex(i int, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.WithMessage(fmt.Sprintf("readings[%d]: %s", i, de.Message))
	}
	return fmt.Errorf("readings[%d]: %w", i, err)
}
