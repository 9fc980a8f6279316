package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing configuration.
type DBTracingConfig struct {
	Enabled    bool
	LogFullSQL bool          // include query variables in spans; never in production
	SlowQuery  time.Duration // zero disables slow query marking
	DBName     string
}

type queryStartKey struct{}

// RegisterDBTracing installs the otelgorm plugin on db and marks slow and
// failed statements on the active span. Extra options go to otelgorm, e.g.
// otelgorm.WithTracerProvider in tests.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger, extra ...otelgorm.Option) error {
	if !cfg.Enabled {
		return nil
	}

	// Registered first so the after hooks run while the otelgorm span is
	// still recording.
	if cfg.SlowQuery > 0 {
		if err := registerSlowQueryCallbacks(db, cfg.SlowQuery); err != nil {
			return fmt.Errorf("register slow query callbacks: %w", err)
		}
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(append(opts, extra...)...)); err != nil {
		return fmt.Errorf("register otelgorm: %w", err)
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query", cfg.SlowQuery),
	)
	return nil
}

func registerSlowQueryCallbacks(db *gorm.DB, threshold time.Duration) error {
	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { markSpan(tx, threshold) }

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("coop:timing_before_create", before),
		cb.Create().After("gorm:create").Register("coop:timing_after_create", after),
		cb.Query().Before("gorm:query").Register("coop:timing_before_query", before),
		cb.Query().After("gorm:query").Register("coop:timing_after_query", after),
		cb.Row().Before("gorm:row").Register("coop:timing_before_row", before),
		cb.Row().After("gorm:row").Register("coop:timing_after_row", after),
		cb.Raw().Before("gorm:raw").Register("coop:timing_before_raw", before),
		cb.Raw().After("gorm:raw").Register("coop:timing_after_raw", after),
	)
}

// markSpan annotates the statement span with its row count, failure and
// slowness. Record-not-found is not a failure.
func markSpan(tx *gorm.DB, threshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.RecordError(tx.Error)
		span.SetStatus(codes.Error, tx.Error.Error())
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
