package balance

import (
	"testing"

	"github.com/coopelec/backend/internal/domain/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	m := period.Month{Year: 2024, Month: 5}
	entries := []Entry{
		{PurchasePointID: 1, Month: m, EnergyBoughtKwh: d("1000"), EnergySoldKwh: d("980"), AmountBought: d("10"), AmountSold: d("12"), LossKwh: d("20"), LossPercent: d("2"), Tier: TierNormal},
		{PurchasePointID: 2, Month: m, EnergyBoughtKwh: d("1000"), EnergySoldKwh: d("700"), AmountBought: d("10"), AmountSold: d("8"), LossKwh: d("300"), LossPercent: d("30"), Tier: TierCritical},
		{PurchasePointID: 3, Month: m.Next(), EnergyBoughtKwh: d("500"), LossKwh: d("500"), LossPercent: d("100"), Tier: TierCritical},
	}

	s := Summarize(m, entries)
	assert.Equal(t, "2000.00", s.TotalBoughtKwh.StringFixed(2))
	assert.Equal(t, "1680.00", s.TotalSoldKwh.StringFixed(2))
	assert.Equal(t, "320.00", s.TotalLossKwh.StringFixed(2))
	assert.Equal(t, "20.00", s.TotalAmountSold.StringFixed(2))
	// (2000-1680)/2000, not the mean of 2 and 30
	assert.Equal(t, "16.00", s.LossPercent.StringFixed(2))
	assert.Equal(t, 2, s.TotalPoints)
	assert.Equal(t, 1, s.TierCounts[TierNormal])
	assert.Equal(t, 1, s.TierCounts[TierCritical])
	assert.Equal(t, 0, s.TierCounts[TierHigh])
	assert.Len(t, s.TierCounts, 4)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(period.Month{Year: 2024, Month: 5}, nil)
	assert.True(t, s.LossPercent.IsZero())
	assert.True(t, s.TotalBoughtKwh.IsZero())
	assert.Equal(t, 0, s.TotalPoints)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultTopLimit, ClampLimit(0))
	assert.Equal(t, DefaultTopLimit, ClampLimit(-3))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 100, ClampLimit(100))
	assert.Equal(t, 100, ClampLimit(500))
}

func TestTopLosses_TieBreakIsDeterministic(t *testing.T) {
	m := period.Month{Year: 2024, Month: 5}
	entries := []Entry{
		entry(7, m, "12"),
		entry(3, m, "40"),
		entry(9, m, "12"),
		entry(1, m, "12"),
		entry(4, m, "-3"),
	}

	first := TopLosses(entries, 4)
	require.Len(t, first, 4)
	var ids []int64
	for _, e := range first {
		ids = append(ids, e.PurchasePointID)
	}
	assert.Equal(t, []int64{3, 1, 7, 9}, ids)

	for i := 0; i < 5; i++ {
		assert.Equal(t, first, TopLosses(entries, 4))
	}
	// input untouched
	assert.Equal(t, int64(7), entries[0].PurchasePointID)
}

func TestRank(t *testing.T) {
	m := period.Month{Year: 2024, Month: 5}
	ranked := Rank([]Entry{entry(3, m, "40"), entry(1, m, "12")}, map[int64]string{3: "Estación Norte"})

	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "Estación Norte", ranked[0].PurchasePointName)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Empty(t, ranked[1].PurchasePointName)
}

func TestAnalyze(t *testing.T) {
	e := Entry{EnergySoldKwh: d("1000")}

	a := Analyze(e, 3)
	assert.Equal(t, "333.33", a.KwhPerCustomer.StringFixed(2))
	assert.True(t, a.LoadFactor.IsZero())
	assert.True(t, a.AverageDemandKw.IsZero())

	assert.True(t, Analyze(e, 0).KwhPerCustomer.IsZero())
}

func TestComputeStatistics(t *testing.T) {
	m := period.Month{Year: 2024, Month: 5}
	st := ComputeStatistics([]Entry{entry(1, m, "2"), entry(2, m, "30"), entry(3, m, "-4")})

	assert.Equal(t, 3, st.Count)
	assert.Equal(t, "9.33", st.AverageLossPercent.StringFixed(2))
	assert.Equal(t, "30.00", st.MaxLossPercent.StringFixed(2))
	assert.Equal(t, "-4.00", st.MinLossPercent.StringFixed(2))
	assert.Equal(t, 2, st.TierDistribution[TierNormal])
	assert.Equal(t, 1, st.TierDistribution[TierCritical])

	empty := ComputeStatistics(nil)
	assert.True(t, empty.AverageLossPercent.IsZero())
	assert.Equal(t, 0, empty.Count)
}

func TestLoadFactor(t *testing.T) {
	// 30 days at 100 kW peak can deliver 72000 kWh
	assert.Equal(t, "50.00", LoadFactor(d("36000"), d("100"), 30).StringFixed(2))
	assert.True(t, LoadFactor(d("36000"), decimal.Zero, 30).IsZero())
	assert.True(t, LoadFactor(d("36000"), d("100"), 0).IsZero())
}

func TestNormalizeMeasurement(t *testing.T) {
	assert.True(t, NormalizeMeasurement(d("-3.2"), 2).IsZero())
	assert.Equal(t, "12.35", NormalizeMeasurement(d("12.345"), 2).String())
}
