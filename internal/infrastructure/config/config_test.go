package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "coop-energy-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "coop_energy", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQuery)
		assert.Equal(t, "memory", cfg.RateLimit.Store)
		assert.Equal(t, 100, cfg.RateLimit.Requests)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, 2020, cfg.Analytics.MinYear)
		assert.Equal(t, 2030, cfg.Analytics.MaxYear)
		assert.Equal(t, -5.0, cfg.Analytics.NegativeLossThreshold)
		assert.Zero(t, cfg.Analytics.SuddenIncreaseThreshold)
		assert.True(t, cfg.Telemetry.MetricsEnabled)
		assert.Equal(t, cfg.App.Name, cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with COOP prefix", func(t *testing.T) {
		t.Setenv("COOP_APP_NAME", "test-app")
		t.Setenv("COOP_APP_PORT", "9000")
		t.Setenv("COOP_DATABASE_HOST", "testdb.local")
		t.Setenv("COOP_DATABASE_PORT", "5433")
		t.Setenv("COOP_DATABASE_PASSWORD", "testpass")
		t.Setenv("COOP_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("COOP_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("COOP_RATELIMIT_STORE", "redis")
		t.Setenv("COOP_RATELIMIT_WINDOW", "30s")
		t.Setenv("COOP_ANALYTICS_MAX_YEAR", "2035")
		t.Setenv("COOP_ANALYTICS_NEGATIVE_LOSS_THRESHOLD", "-2.5")
		t.Setenv("COOP_ANALYTICS_SUDDEN_INCREASE_THRESHOLD", "10")
		t.Setenv("COOP_TELEMETRY_METRICS_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "redis", cfg.RateLimit.Store)
		assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
		assert.Equal(t, 2035, cfg.Analytics.MaxYear)
		assert.Equal(t, -2.5, cfg.Analytics.NegativeLossThreshold)
		assert.Equal(t, 10.0, cfg.Analytics.SuddenIncreaseThreshold)
		assert.False(t, cfg.Telemetry.MetricsEnabled)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("COOP_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("COOP_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		t.Setenv("COOP_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("rejects inverted year bounds", func(t *testing.T) {
		t.Setenv("COOP_ANALYTICS_MIN_YEAR", "2031")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "analytics.min_year")
	})

	t.Run("rejects unknown rate limit store", func(t *testing.T) {
		t.Setenv("COOP_RATELIMIT_STORE", "memcached")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ratelimit.store")
	})

	t.Run("rejects negative sudden increase threshold", func(t *testing.T) {
		t.Setenv("COOP_ANALYTICS_SUDDEN_INCREASE_THRESHOLD", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sudden_increase_threshold")
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		t.Setenv("COOP_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("COOP_APP_ENV", "production")
		t.Setenv("COOP_DATABASE_PASSWORD", "secure-password")
		t.Setenv("COOP_DATABASE_SSLMODE", "require")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("COOP_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("COOP_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects full SQL in traces in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("COOP_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestValidate_WildcardCORSInProduction(t *testing.T) {
	cfg := &Config{App: AppConfig{Env: "production"}}
	applyDefaults(cfg)
	cfg.Database.Password = "secret"
	cfg.Database.SSLMode = "require"
	cfg.HTTP.CORSAllowOrigins = []string{"https://coop.example", "*"}

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cors_allow_origins")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache.local:6380", RedisConfig{Host: "cache.local", Port: 6380}.Addr())
}
