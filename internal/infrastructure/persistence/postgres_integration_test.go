//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/coopelec/backend/internal/infrastructure/migration"
	"github.com/coopelec/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newPostgresDB starts PostgreSQL, applies the embedded migrations and
// returns a GORM handle over it.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("coop_energy_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	status, err := m.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(2), status.Version)
	assert.False(t, status.Dirty)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db
}

func TestPostgres_Repositories(t *testing.T) {
	db := newPostgresDB(t)
	seedCatalog(t, db)

	readings := NewGormReadingRepository(db)
	seedReadings(t, readings)
	catalog := NewGormCatalogRepository(db)
	ctx := context.Background()

	t.Run("purchase totals", func(t *testing.T) {
		totals, err := readings.FetchPurchaseTotals(ctx, window(t, "2024-01", "2024-02"))
		require.NoError(t, err)
		require.Len(t, totals, 3)
		assert.Equal(t, "1000.00", totals[0].EnergyKwh.StringFixed(2))
	})

	t.Run("monthly sales resolve purchase point", func(t *testing.T) {
		sales, err := readings.FetchMonthlySales(ctx, window(t, "2024-01", "2024-02"))
		require.NoError(t, err)
		require.Len(t, sales, 2)
		assert.Equal(t, "500.50", sales[0].EnergyKwh.StringFixed(2))
		assert.Equal(t, int64(2), sales[1].PurchasePointID)
	})

	t.Run("bimestral sales overlap the window", func(t *testing.T) {
		sales, err := readings.FetchBimestralSales(ctx, window(t, "2024-01", "2024-02"))
		require.NoError(t, err)
		require.Len(t, sales, 2)
		assert.Equal(t, "2023-12_2024-01", sales[0].PeriodBimestre)
	})

	t.Run("upsert replaces the month", func(t *testing.T) {
		err := readings.UpsertPurchases(ctx, seedPurchaseCorrection(t))
		require.NoError(t, err)

		totals, err := readings.FetchPurchaseTotals(ctx, window(t, "2024-01", "2024-01"))
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, "1200.00", totals[0].EnergyKwh.StringFixed(2))
	})

	t.Run("catalog", func(t *testing.T) {
		count, err := catalog.CountActiveCustomers(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		summaries, err := catalog.Summaries(ctx)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, 2, summaries[0].TotalCustomers)
		assert.Equal(t, 2, summaries[1].TotalCustomers)

		customers, err := catalog.CustomersOf(ctx, []int64{10})
		require.NoError(t, err)
		require.Len(t, customers, 2)
		assert.Equal(t, "Residencial", customers[1].SegmentName)
	})
}
