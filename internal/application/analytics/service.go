// Package analytics exposes the energy balance and loss analysis use cases.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/coopelec/backend/internal/domain/balance"
	"github.com/coopelec/backend/internal/domain/hierarchy"
	"github.com/coopelec/backend/internal/domain/period"
	"github.com/coopelec/backend/internal/domain/shared"
	"github.com/coopelec/backend/internal/infrastructure/logger"
	"github.com/coopelec/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Recorder receives analytics measurements. The zero Service uses a no-op.
type Recorder interface {
	RecordOperation(operation string, duration time.Duration, err error)
	RecordBalanceEntries(operation string, count int)
	RecordAlerts(stats balance.AlertStats)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, time.Duration, error) {}
func (nopRecorder) RecordBalanceEntries(string, int)             {}
func (nopRecorder) RecordAlerts(balance.AlertStats)              {}

// Config holds the tunable rules of the service
type Config struct {
	Bounds     period.Bounds
	AlertRules balance.AlertRules
}

// DefaultConfig returns the production rules
func DefaultConfig() Config {
	return Config{
		Bounds:     period.DefaultBounds,
		AlertRules: balance.DefaultAlertRules(),
	}
}

// Service computes balances, losses, alerts and hierarchies. It holds no
// state between calls; every result is derived from the repositories.
type Service struct {
	readings   balance.ReadingRepository
	catalog    balance.CatalogRepository
	tree       hierarchy.Repository
	reconciler *balance.Reconciler
	cfg        Config
	recorder   Recorder
	now        func() time.Time
	logger     *zap.Logger
}

// NewService creates a new analytics Service
func NewService(
	readings balance.ReadingRepository,
	catalog balance.CatalogRepository,
	tree hierarchy.Repository,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		readings:   readings,
		catalog:    catalog,
		tree:       tree,
		reconciler: balance.NewReconciler(cfg.Bounds),
		cfg:        cfg,
		recorder:   nopRecorder{},
		now:        time.Now,
		logger:     logger,
	}
}

// WithRecorder sets the metrics recorder
func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithClock sets the clock used to stamp alerts
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) observe(operation string, start time.Time, err error) {
	s.recorder.RecordOperation(operation, time.Since(start), err)
}

// ===================== Proration =====================

// ProrateBimestralSale splits a bimestral sale into its two months
func (s *Service) ProrateBimestralSale(ctx context.Context, req ProrateRequest) (resp *ProrateResponse, err error) {
	start := time.Now()
	defer func() { s.observe("prorate", start, err) }()

	b, err := s.cfg.Bounds.ParseBimestre(req.PeriodBimestre)
	if err != nil {
		return nil, err
	}
	if req.EnergySoldKwh == nil {
		return nil, shared.ErrInvalidInput.WithMessage("energy_sold_kwh is required")
	}
	energy := decimal.NewFromFloat(*req.EnergySoldKwh)
	amount := decimal.Zero
	if req.AmountSold != nil {
		amount = decimal.NewFromFloat(*req.AmountSold)
	}

	parts, err := balance.Prorate(b, energy, amount)
	if err != nil {
		return nil, err
	}

	resp = &ProrateResponse{
		PeriodBimestre: b.String(),
		EnergySoldKwh:  toFloat64(energy),
		AmountSold:     toFloat64(amount),
		Months:         make([]MonthlyContributionResponse, 0, len(parts)),
	}
	for _, p := range parts {
		resp.Months = append(resp.Months, MonthlyContributionResponse{
			PeriodMonth:         p.Month.String(),
			EnergySoldKwh:       toFloat64(p.EnergyKwh),
			AmountSold:          toFloat64(p.Amount),
			Days:                p.Days,
			DistributionPercent: toFloat64(p.DistributionPercent),
		})
	}
	return resp, nil
}

// ===================== Balance =====================

type readings struct {
	purchases []balance.PurchaseTotal
	monthly   []balance.MonthlySale
	bimestral []balance.BimestralSale
}

// fetch loads the three reading sets concurrently.
func (s *Service) fetch(ctx context.Context, filter balance.Filter, purchases, sales bool) (_ *readings, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "analytics", "fetch_readings",
		attribute.String("period_from", filter.From.String()),
		attribute.String("period_to", filter.To.String()),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	var r readings
	g, gctx := errgroup.WithContext(ctx)
	if purchases {
		g.Go(func() error {
			var err error
			r.purchases, err = s.readings.FetchPurchaseTotals(gctx, filter)
			if err != nil {
				return fmt.Errorf("fetch purchase totals: %w", err)
			}
			return nil
		})
	}
	if sales {
		g.Go(func() error {
			var err error
			r.monthly, err = s.readings.FetchMonthlySales(gctx, filter)
			if err != nil {
				return fmt.Errorf("fetch monthly sales: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			r.bimestral, err = s.readings.FetchBimestralSales(gctx, filter)
			if err != nil {
				return fmt.Errorf("fetch bimestral sales: %w", err)
			}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) window(from, to string) (balance.Window, error) {
	return balance.NewWindow(s.cfg.Bounds, from, to)
}

func filterFor(pointID *int64, w balance.Window) balance.Filter {
	return balance.Filter{PurchasePointID: pointID, From: w.From, To: w.To}
}

func (s *Service) reconcile(ctx context.Context, pointID *int64, w balance.Window) ([]balance.Entry, error) {
	r, err := s.fetch(ctx, filterFor(pointID, w), true, true)
	if err != nil {
		return nil, err
	}
	res := s.reconciler.Reconcile(w, r.purchases, r.monthly, r.bimestral)
	s.logSkipped(ctx, res.Skipped)
	return res.Entries, nil
}

func (s *Service) logSkipped(ctx context.Context, skipped []balance.Skipped) {
	if len(skipped) == 0 {
		return
	}
	log := logger.Enrich(ctx, s.logger)
	for _, sk := range skipped {
		log.Warn("Skipping malformed reading",
			zap.Int64("purchase_point_id", sk.PurchasePointID),
			zap.String("period", sk.Period),
			zap.String("reason", sk.Reason),
		)
	}
}

// GetBalance reconciles purchases and sales for a window
func (s *Service) GetBalance(ctx context.Context, q BalanceQuery) (resp []BalanceEntryResponse, err error) {
	start := time.Now()
	defer func() { s.observe("balance", start, err) }()

	w, err := s.window(q.PeriodFrom, q.PeriodTo)
	if err != nil {
		return nil, err
	}
	entries, err := s.reconcile(ctx, q.PurchasePointID, w)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordBalanceEntries("balance", len(entries))

	resp = make([]BalanceEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toBalanceEntryResponse(e))
	}
	return resp, nil
}

// GetPurchaseBalance lists the energy bought per point and month with load factors
func (s *Service) GetPurchaseBalance(ctx context.Context, q BalanceQuery) (resp *PurchaseBalanceResponse, err error) {
	start := time.Now()
	defer func() { s.observe("purchase_balance", start, err) }()

	w, err := s.window(q.PeriodFrom, q.PeriodTo)
	if err != nil {
		return nil, err
	}
	r, err := s.fetch(ctx, filterFor(q.PurchasePointID, w), true, false)
	if err != nil {
		return nil, err
	}

	peaks := s.peakDemands(r.purchases)

	totals, skipped := s.reconciler.Purchases(w, r.purchases)
	s.logSkipped(ctx, skipped)

	resp = &PurchaseBalanceResponse{
		Lines:          make([]PurchaseLineResponse, 0, len(totals)),
		TotalRecords:   len(totals),
		SkippedRecords: len(skipped),
	}
	energy, amount := decimal.Zero, decimal.Zero
	for _, t := range totals {
		peak := peaks[pointMonth{t.PurchasePointID, t.Month}]
		resp.Lines = append(resp.Lines, PurchaseLineResponse{
			PurchasePointID: t.PurchasePointID,
			PeriodMonth:     t.Month.String(),
			EnergyBoughtKwh: toFloat64(t.EnergyKwh),
			AmountBought:    toFloat64(t.Amount),
			PeakDemandKw:    toFloat64(peak),
			LoadFactor:      toFloat64(balance.LoadFactor(t.EnergyKwh, peak, t.Month.Days())),
		})
		energy = energy.Add(t.EnergyKwh)
		amount = amount.Add(t.Amount)
	}
	resp.TotalEnergyKwh = toFloat64(energy)
	resp.TotalAmount = toFloat64(amount)
	return resp, nil
}

type pointMonth struct {
	purchasePointID int64
	month           period.Month
}

// peakDemands keeps the highest peak demand per point and month. Rows whose
// month does not parse are left to the reconciler to report.
func (s *Service) peakDemands(purchases []balance.PurchaseTotal) map[pointMonth]decimal.Decimal {
	peaks := make(map[pointMonth]decimal.Decimal, len(purchases))
	for _, p := range purchases {
		m, err := s.cfg.Bounds.ParseMonth(p.PeriodMonth)
		if err != nil {
			continue
		}
		key := pointMonth{p.PurchasePointID, m}
		peaks[key] = decimal.Max(peaks[key], p.PeakDemandKw)
	}
	return peaks
}

// GetSaleBalance lists the energy sold per point and month, prorating bimestral sales
func (s *Service) GetSaleBalance(ctx context.Context, q BalanceQuery) (resp *SaleBalanceResponse, err error) {
	start := time.Now()
	defer func() { s.observe("sale_balance", start, err) }()

	w, err := s.window(q.PeriodFrom, q.PeriodTo)
	if err != nil {
		return nil, err
	}
	r, err := s.fetch(ctx, filterFor(q.PurchasePointID, w), false, true)
	if err != nil {
		return nil, err
	}

	totals, skipped := s.reconciler.Sales(w, r.monthly, r.bimestral)
	s.logSkipped(ctx, skipped)

	resp = &SaleBalanceResponse{
		Lines:          make([]SaleLineResponse, 0, len(totals)),
		TotalRecords:   len(totals),
		SkippedRecords: len(skipped),
	}
	energy, amount := decimal.Zero, decimal.Zero
	for _, t := range totals {
		resp.Lines = append(resp.Lines, SaleLineResponse{
			PurchasePointID: t.PurchasePointID,
			PeriodMonth:     t.Month.String(),
			EnergySoldKwh:   toFloat64(t.EnergyKwh),
			AmountSold:      toFloat64(t.Amount),
		})
		energy = energy.Add(t.EnergyKwh)
		amount = amount.Add(t.Amount)
	}
	resp.TotalEnergyKwh = toFloat64(energy)
	resp.TotalAmount = toFloat64(amount)
	return resp, nil
}

// GetLossAnalysis extends the balance with customer counts and statistics
func (s *Service) GetLossAnalysis(ctx context.Context, q BalanceQuery) (resp *LossAnalysisResponse, err error) {
	start := time.Now()
	defer func() { s.observe("loss_analysis", start, err) }()

	w, err := s.window(q.PeriodFrom, q.PeriodTo)
	if err != nil {
		return nil, err
	}
	entries, err := s.reconcile(ctx, q.PurchasePointID, w)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int64)
	resp = &LossAnalysisResponse{Entries: make([]LossAnalysisEntryResponse, 0, len(entries))}
	for _, e := range entries {
		n, ok := counts[e.PurchasePointID]
		if !ok {
			n, err = s.catalog.CountActiveCustomers(ctx, e.PurchasePointID)
			if err != nil {
				return nil, fmt.Errorf("count active customers: %w", err)
			}
			counts[e.PurchasePointID] = n
		}
		a := balance.Analyze(e, n)
		resp.Entries = append(resp.Entries, LossAnalysisEntryResponse{
			BalanceEntryResponse: toBalanceEntryResponse(a.Entry),
			CustomerCount:        a.CustomerCount,
			KwhPerCustomer:       toFloat64(a.KwhPerCustomer),
			LoadFactor:           toFloat64(a.LoadFactor),
			AverageDemandKw:      toFloat64(a.AverageDemandKw),
		})
	}

	st := balance.ComputeStatistics(entries)
	resp.Statistics = StatisticsResponse{
		Count:              st.Count,
		AverageLossPercent: toFloat64(st.AverageLossPercent),
		MaxLossPercent:     toFloat64(st.MaxLossPercent),
		MinLossPercent:     toFloat64(st.MinLossPercent),
		TierDistribution:   tierCounts(st.TierDistribution),
	}
	return resp, nil
}

// ===================== Period Reports =====================

func (s *Service) monthEntries(ctx context.Context, month string) (period.Month, []balance.Entry, error) {
	m, err := s.cfg.Bounds.ParseMonth(month)
	if err != nil {
		return period.Month{}, nil, err
	}
	entries, err := s.reconcile(ctx, nil, balance.SingleMonth(m))
	if err != nil {
		return period.Month{}, nil, err
	}
	return m, entries, nil
}

// GetPeriodSummary totals one month across all purchase points
func (s *Service) GetPeriodSummary(ctx context.Context, month string) (resp *PeriodSummaryResponse, err error) {
	start := time.Now()
	defer func() { s.observe("period_summary", start, err) }()

	m, entries, err := s.monthEntries(ctx, month)
	if err != nil {
		return nil, err
	}
	sum := balance.Summarize(m, entries)

	return &PeriodSummaryResponse{
		PeriodMonth:       sum.Month.String(),
		TotalBoughtKwh:    toFloat64(sum.TotalBoughtKwh),
		TotalSoldKwh:      toFloat64(sum.TotalSoldKwh),
		TotalAmountBought: toFloat64(sum.TotalAmountBought),
		TotalAmountSold:   toFloat64(sum.TotalAmountSold),
		TotalLossKwh:      toFloat64(sum.TotalLossKwh),
		LossPercent:       toFloat64(sum.LossPercent),
		SeverityCounts:    tierCounts(sum.TierCounts),
		TotalPoints:       sum.TotalPoints,
	}, nil
}

// GetTopLosses ranks the purchase points of a month by loss percentage
func (s *Service) GetTopLosses(ctx context.Context, month string, limit int) (resp []TopLossResponse, err error) {
	start := time.Now()
	defer func() { s.observe("top_losses", start, err) }()

	_, entries, err := s.monthEntries(ctx, month)
	if err != nil {
		return nil, err
	}
	top := balance.TopLosses(entries, limit)

	names, err := s.names(ctx, top)
	if err != nil {
		return nil, err
	}

	resp = make([]TopLossResponse, 0, len(top))
	for _, r := range balance.Rank(top, names) {
		resp = append(resp, TopLossResponse{
			Rank:              r.Rank,
			PurchasePointID:   r.PurchasePointID,
			PurchasePointName: r.PurchasePointName,
			PeriodMonth:       r.Month.String(),
			EnergyBoughtKwh:   toFloat64(r.EnergyBoughtKwh),
			EnergySoldKwh:     toFloat64(r.EnergySoldKwh),
			LossKwh:           toFloat64(r.LossKwh),
			LossPercent:       toFloat64(r.LossPercent),
			SeverityTier:      string(r.Tier),
		})
	}
	return resp, nil
}

func (s *Service) names(ctx context.Context, entries []balance.Entry) (map[int64]string, error) {
	if len(entries) == 0 {
		return map[int64]string{}, nil
	}
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.PurchasePointID]; ok {
			continue
		}
		seen[e.PurchasePointID] = struct{}{}
		ids = append(ids, e.PurchasePointID)
	}
	names, err := s.catalog.PurchasePointNames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve purchase point names: %w", err)
	}
	return names, nil
}

// GenerateAlerts scans one month for loss alerts
func (s *Service) GenerateAlerts(ctx context.Context, month string) (resp *AlertsResponse, err error) {
	start := time.Now()
	defer func() { s.observe("alerts", start, err) }()

	m, entries, err := s.monthEntries(ctx, month)
	if err != nil {
		return nil, err
	}

	var previous []balance.Entry
	if s.cfg.AlertRules.SuddenIncrease.IsPositive() {
		previous, err = s.reconcile(ctx, nil, balance.SingleMonth(m.Previous()))
		if err != nil {
			return nil, err
		}
	}

	alerts := balance.GenerateAlerts(m, entries, previous, s.cfg.AlertRules, s.now())

	flagged := make([]balance.Entry, 0, len(alerts))
	for _, a := range alerts {
		flagged = append(flagged, balance.Entry{PurchasePointID: a.PurchasePointID})
	}
	names, err := s.names(ctx, flagged)
	if err != nil {
		return nil, err
	}

	stats := balance.CountAlerts(alerts)
	s.recorder.RecordAlerts(stats)
	logger.Enrich(ctx, s.logger).Info("Loss alerts generated",
		zap.String("period_month", m.String()),
		zap.Int("entries", len(entries)),
		zap.Int("alerts", stats.Total),
	)

	resp = &AlertsResponse{
		PeriodMonth: m.String(),
		Alerts:      make([]AlertResponse, 0, len(alerts)),
		Stats:       toAlertStatsResponse(stats),
	}
	for _, a := range alerts {
		a.PurchasePointName = names[a.PurchasePointID]
		resp.Alerts = append(resp.Alerts, toAlertResponse(a))
	}
	return resp, nil
}

// ===================== Hierarchy =====================

// GetHierarchy returns the distributor and customer tree of a purchase point
func (s *Service) GetHierarchy(ctx context.Context, purchasePointID int64) (resp *HierarchyResponse, err error) {
	start := time.Now()
	defer func() { s.observe("hierarchy", start, err) }()

	point, err := s.tree.FindPurchasePoint(ctx, purchasePointID)
	if err != nil {
		return nil, err
	}
	distributors, err := s.tree.DistributorsOf(ctx, purchasePointID)
	if err != nil {
		return nil, err
	}
	var customers []hierarchy.Customer
	if len(distributors) > 0 {
		customers, err = s.tree.CustomersOf(ctx, hierarchy.DistributorIDs(distributors))
		if err != nil {
			return nil, err
		}
	}
	direct, err := s.tree.DirectCustomersOf(ctx, purchasePointID)
	if err != nil {
		return nil, err
	}

	return toHierarchyResponse(hierarchy.Build(*point, distributors, customers, direct)), nil
}

// GetAllHierarchySummaries lists every purchase point with its counts
func (s *Service) GetAllHierarchySummaries(ctx context.Context) (resp *HierarchySummaryListResponse, err error) {
	start := time.Now()
	defer func() { s.observe("hierarchy_summaries", start, err) }()

	summaries, err := s.tree.Summaries(ctx)
	if err != nil {
		return nil, err
	}
	hierarchy.SortSummaries(summaries)

	resp = &HierarchySummaryListResponse{
		PurchasePoints:      make([]HierarchySummaryResponse, 0, len(summaries)),
		TotalPurchasePoints: len(summaries),
	}
	for _, sm := range summaries {
		resp.PurchasePoints = append(resp.PurchasePoints, HierarchySummaryResponse{
			ID:                sm.ID,
			Name:              sm.Name,
			Provider:          sm.Provider,
			Active:            sm.Active,
			Latitude:          sm.Latitude,
			Longitude:         sm.Longitude,
			TotalDistributors: sm.TotalDistributors,
			TotalCustomers:    sm.TotalCustomers,
		})
		resp.TotalDistributors += sm.TotalDistributors
		resp.TotalCustomers += sm.TotalCustomers
	}
	return resp, nil
}
