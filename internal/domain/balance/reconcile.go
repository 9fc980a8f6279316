package balance

import (
	"sort"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/shopspring/decimal"
)

// PurchaseTotal is the energy bought at a purchase point for one month.
type PurchaseTotal struct {
	PurchasePointID int64
	PeriodMonth     string
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
	PeakDemandKw    decimal.Decimal
}

// MonthlySale is energy sold under a purchase point for one month.
type MonthlySale struct {
	PurchasePointID int64
	PeriodMonth     string
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
}

// BimestralSale is energy sold under a purchase point for a two-month cycle.
// It is prorated into months on read.
type BimestralSale struct {
	PurchasePointID int64
	PeriodBimestre  string
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
}

// Total is one side of the balance for a purchase point and month.
type Total struct {
	PurchasePointID int64
	Month           period.Month
	EnergyKwh       decimal.Decimal
	Amount          decimal.Decimal
}

// Entry is the reconciled balance of a purchase point for one month.
type Entry struct {
	PurchasePointID int64
	Month           period.Month
	EnergyBoughtKwh decimal.Decimal
	EnergySoldKwh   decimal.Decimal
	AmountBought    decimal.Decimal
	AmountSold      decimal.Decimal
	LossKwh         decimal.Decimal
	LossPercent     decimal.Decimal
	Tier            Tier
	Description     string
}

// Skipped describes a stored record left out of a reconciliation.
type Skipped struct {
	PurchasePointID int64
	Period          string
	Reason          string
}

// Window is an inclusive month range.
type Window struct {
	From period.Month
	To   period.Month
}

// NewWindow parses both ends of a query window.
func NewWindow(bounds period.Bounds, from, to string) (Window, error) {
	f, err := bounds.ParseMonth(from)
	if err != nil {
		return Window{}, err
	}
	t, err := bounds.ParseMonth(to)
	if err != nil {
		return Window{}, err
	}
	return Window{From: f, To: t}, nil
}

// SingleMonth returns a window covering only m.
func SingleMonth(m period.Month) Window {
	return Window{From: m, To: m}
}

// Contains reports whether m is inside the window.
func (w Window) Contains(m period.Month) bool {
	return !m.Before(w.From) && !m.After(w.To)
}

// Reconciler joins purchase and sale figures into balance entries.
type Reconciler struct {
	bounds period.Bounds
}

// NewReconciler creates a reconciler that parses stored periods with bounds.
func NewReconciler(bounds period.Bounds) *Reconciler {
	return &Reconciler{bounds: bounds}
}

// Result holds the entries of a reconciliation and the records it ignored.
type Result struct {
	Entries []Entry
	Skipped []Skipped
}

type pointMonth struct {
	id    int64
	month period.Month
}

type bucket struct {
	energy decimal.Decimal
	amount decimal.Decimal
}

func (b *bucket) add(energy, amount decimal.Decimal) {
	b.energy = b.energy.Add(energy)
	b.amount = b.amount.Add(amount)
}

// Purchases sums purchase totals by point and month inside w.
func (r *Reconciler) Purchases(w Window, purchases []PurchaseTotal) ([]Total, []Skipped) {
	buckets, skipped := r.sumPurchases(w, purchases)
	return flatten(buckets), skipped
}

// Sales sums monthly sales and prorated bimestral sales by point and month
// inside w. Overlapping contributions to the same month accumulate.
func (r *Reconciler) Sales(w Window, monthly []MonthlySale, bimestral []BimestralSale) ([]Total, []Skipped) {
	buckets, skipped := r.sumSales(w, monthly, bimestral)
	return flatten(buckets), skipped
}

// Reconcile outer-joins purchases and sales on (purchase point, month) and
// returns the entries ordered by purchase point then month.
func (r *Reconciler) Reconcile(w Window, purchases []PurchaseTotal, monthly []MonthlySale, bimestral []BimestralSale) Result {
	bought, skippedPurchases := r.sumPurchases(w, purchases)
	sold, skippedSales := r.sumSales(w, monthly, bimestral)

	entries := make([]Entry, 0, len(bought)+len(sold))
	for key, p := range bought {
		s, hasSale := sold[key]
		entries = append(entries, buildEntry(key, p, s, true, hasSale))
	}
	for key, s := range sold {
		if _, ok := bought[key]; ok {
			continue
		}
		entries = append(entries, buildEntry(key, nil, s, false, true))
	}
	SortEntries(entries)

	return Result{
		Entries: entries,
		Skipped: append(skippedPurchases, skippedSales...),
	}
}

func buildEntry(key pointMonth, p, s *bucket, hasPurchase, hasSale bool) Entry {
	e := Entry{
		PurchasePointID: key.id,
		Month:           key.month,
		EnergyBoughtKwh: decimal.Zero,
		EnergySoldKwh:   decimal.Zero,
		AmountBought:    decimal.Zero,
		AmountSold:      decimal.Zero,
	}
	if hasPurchase {
		e.EnergyBoughtKwh = p.energy
		e.AmountBought = p.amount
	}
	if hasSale {
		e.EnergySoldKwh = s.energy
		e.AmountSold = s.amount
	}
	e.LossKwh = e.EnergyBoughtKwh.Sub(e.EnergySoldKwh).Round(2)

	switch {
	case !hasSale && e.EnergyBoughtKwh.IsPositive():
		e.LossPercent = hundred
		e.Tier = TierCritical
		e.Description = DescNoSales
	case !hasPurchase:
		e.LossPercent = hundred.Neg()
		e.Tier = TierNormal
		e.Description = DescNoPurchase
	default:
		e.LossPercent = LossPercent(e.EnergyBoughtKwh, e.EnergySoldKwh)
		c := Classify(e.LossPercent)
		e.Tier = c.Tier
		e.Description = c.Description
	}
	return e
}

func (r *Reconciler) sumPurchases(w Window, purchases []PurchaseTotal) (map[pointMonth]*bucket, []Skipped) {
	out := make(map[pointMonth]*bucket)
	var skipped []Skipped
	for _, p := range purchases {
		m, err := r.bounds.ParseMonth(p.PeriodMonth)
		if err != nil {
			skipped = append(skipped, Skipped{p.PurchasePointID, p.PeriodMonth, err.Error()})
			continue
		}
		if !w.Contains(m) {
			continue
		}
		bucketFor(out, pointMonth{p.PurchasePointID, m}).add(p.EnergyKwh, p.Amount)
	}
	return out, skipped
}

func (r *Reconciler) sumSales(w Window, monthly []MonthlySale, bimestral []BimestralSale) (map[pointMonth]*bucket, []Skipped) {
	out := make(map[pointMonth]*bucket)
	var skipped []Skipped
	for _, s := range monthly {
		m, err := r.bounds.ParseMonth(s.PeriodMonth)
		if err != nil {
			skipped = append(skipped, Skipped{s.PurchasePointID, s.PeriodMonth, err.Error()})
			continue
		}
		if !w.Contains(m) {
			continue
		}
		bucketFor(out, pointMonth{s.PurchasePointID, m}).add(s.EnergyKwh, s.Amount)
	}
	for _, s := range bimestral {
		b, err := r.bounds.ParseBimestre(s.PeriodBimestre)
		if err != nil {
			skipped = append(skipped, Skipped{s.PurchasePointID, s.PeriodBimestre, err.Error()})
			continue
		}
		parts, err := Prorate(b, s.EnergyKwh, s.Amount)
		if err != nil {
			skipped = append(skipped, Skipped{s.PurchasePointID, s.PeriodBimestre, err.Error()})
			continue
		}
		for _, part := range parts {
			if !w.Contains(part.Month) {
				continue
			}
			bucketFor(out, pointMonth{s.PurchasePointID, part.Month}).add(part.EnergyKwh, part.Amount)
		}
	}
	return out, skipped
}

func bucketFor(m map[pointMonth]*bucket, key pointMonth) *bucket {
	b, ok := m[key]
	if !ok {
		b = &bucket{energy: decimal.Zero, amount: decimal.Zero}
		m[key] = b
	}
	return b
}

func flatten(m map[pointMonth]*bucket) []Total {
	totals := make([]Total, 0, len(m))
	for key, b := range m {
		totals = append(totals, Total{
			PurchasePointID: key.id,
			Month:           key.month,
			EnergyKwh:       b.energy,
			Amount:          b.amount,
		})
	}
	sort.Slice(totals, func(i, j int) bool {
		return less(totals[i].PurchasePointID, totals[i].Month, totals[j].PurchasePointID, totals[j].Month)
	})
	return totals
}

// SortEntries orders entries by purchase point id, then month ascending.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return less(entries[i].PurchasePointID, entries[i].Month, entries[j].PurchasePointID, entries[j].Month)
	})
}

func less(idA int64, mA period.Month, idB int64, mB period.Month) bool {
	if idA != idB {
		return idA < idB
	}
	return mA.Before(mB)
}
