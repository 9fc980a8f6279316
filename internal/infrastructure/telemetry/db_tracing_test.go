package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedReading struct {
	ID          uint `gorm:"primaryKey"`
	PeriodMonth string
}

func setupTracedDB(t *testing.T, cfg DBTracingConfig) (*gorm.DB, *tracetest.SpanRecorder) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&tracedReading{}))

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	require.NoError(t, RegisterDBTracing(db, cfg, zap.NewNop(), otelgorm.WithTracerProvider(provider)))
	return db, recorder
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	db, recorder := setupTracedDB(t, DBTracingConfig{Enabled: false})

	require.NoError(t, db.Create(&tracedReading{PeriodMonth: "2024-01"}).Error)
	assert.Empty(t, recorder.Ended())
}

func TestRegisterDBTracing_RecordsSpans(t *testing.T) {
	db, recorder := setupTracedDB(t, DBTracingConfig{Enabled: true, DBName: "coop"})

	require.NoError(t, db.Create(&tracedReading{PeriodMonth: "2024-01"}).Error)
	var rows []tracedReading
	require.NoError(t, db.Where("period_month = ?", "2024-01").Find(&rows).Error)

	assert.GreaterOrEqual(t, len(recorder.Ended()), 2)
}

func TestRegisterDBTracing_MarksSlowQueries(t *testing.T) {
	db, recorder := setupTracedDB(t, DBTracingConfig{Enabled: true, DBName: "coop", SlowQuery: time.Nanosecond})

	var rows []tracedReading
	require.NoError(t, db.Find(&rows).Error)

	var slow bool
	for _, span := range recorder.Ended() {
		for _, attr := range span.Attributes() {
			if attr == attribute.Bool("db.slow_query", true) {
				slow = true
			}
		}
	}
	assert.True(t, slow)
}
