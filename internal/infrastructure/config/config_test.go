package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerEnvKeys = []string{
	"LEDGER_APP_NAME",
	"LEDGER_APP_ENV",
	"LEDGER_DATABASE_DRIVER",
	"LEDGER_DATABASE_PATH",
	"LEDGER_DATABASE_HOST",
	"LEDGER_DATABASE_PORT",
	"LEDGER_DATABASE_USER",
	"LEDGER_DATABASE_PASSWORD",
	"LEDGER_DATABASE_DBNAME",
	"LEDGER_DATABASE_SSLMODE",
	"LEDGER_DATABASE_MAX_OPEN_CONNS",
	"LEDGER_DATABASE_MAX_IDLE_CONNS",
	"LEDGER_REDIS_ENABLED",
	"LEDGER_REDIS_TTL",
	"LEDGER_EXPORT_BUCKET",
	"LEDGER_EXPORT_ACCESS_KEY",
	"LEDGER_EXPORT_SECRET_KEY",
	"LEDGER_REPORT_DEFAULT_GROUP_BY",
	"LEDGER_REPORT_MAX_RANGE_DAYS",
	"LEDGER_TELEMETRY_DB_LOG_FULL_SQL",
}

// clearEnv blanks every ledger variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range ledgerEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "lotledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "lotledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
		assert.Equal(t, "day", cfg.Report.DefaultGroupBy)
		assert.Equal(t, 366, cfg.Report.MaxRangeDays)
		assert.False(t, cfg.Export.UploadEnabled())
		assert.Equal(t, "reports", cfg.Export.Prefix)
	})

	t.Run("loads values from environment variables with LEDGER prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_APP_NAME", "ledger-test")
		t.Setenv("LEDGER_DATABASE_HOST", "testdb.local")
		t.Setenv("LEDGER_DATABASE_PORT", "5433")
		t.Setenv("LEDGER_DATABASE_PASSWORD", "testpass")
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("LEDGER_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("LEDGER_REDIS_ENABLED", "true")
		t.Setenv("LEDGER_REDIS_TTL", "2h")
		t.Setenv("LEDGER_REPORT_DEFAULT_GROUP_BY", "month")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "ledger-test", cfg.App.Name)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 2*time.Hour, cfg.Redis.TTL)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, "month", cfg.Report.DefaultGroupBy)
	})

	t.Run("sqlite driver gets a default path", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_DATABASE_DRIVER", "sqlite")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "lotledger.db", cfg.Database.Path)
		assert.Equal(t, "lotledger.db", cfg.Database.DSN())
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("LEDGER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown group_by", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_REPORT_DEFAULT_GROUP_BY", "week")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "report.default_group_by")
	})

	t.Run("export bucket requires credentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_EXPORT_BUCKET", "exports")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "export.access_key")

		t.Setenv("LEDGER_EXPORT_ACCESS_KEY", "key")
		t.Setenv("LEDGER_EXPORT_SECRET_KEY", "secret")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Export.UploadEnabled())
	})
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ledger.toml")
	content := `
[database]
driver = "sqlite"
path = "/tmp/ledger-test.db"

[report]
max_range_days = 31
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/ledger-test.db", cfg.Database.Path)
	assert.Equal(t, 31, cfg.Report.MaxRangeDays)

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("LEDGER_REPORT_MAX_RANGE_DAYS", "7")
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Report.MaxRangeDays)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
		require.Error(t, err)
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_DATABASE_PASSWORD", "secure-password")
		t.Setenv("LEDGER_DATABASE_SSLMODE", "require")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("LEDGER_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sqlite is not supported in production")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_TELEMETRY_DB_LOG_FULL_SQL", "true")

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

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   DriverPostgres,
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
			Driver:   DriverPostgres,
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
