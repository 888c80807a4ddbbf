package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  host: localhost
  user: locar
  database: locar
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "./uploads", cfg.Storage.UploadDir)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL())
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	assert.Equal(t, 3, cfg.Billing.UpcomingWindowDays)
	assert.Equal(t, "R$", cfg.Billing.MoneyFormat().Symbol)
	assert.Equal(t, "Segunda-feira", cfg.Billing.Names()[0])
	assert.Equal(t, time.UTC, cfg.Billing.Location())

	assert.Equal(t, "0 0 8 * * *", cfg.Scheduler.InstallmentReminders)
	assert.Equal(t, "0 */5 * * * *", cfg.Scheduler.RefreshMetrics)
	assert.Equal(t, "postgres://locar:@localhost:5432/locar?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestParse_BillingOverrides(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + `
billing:
  upcoming_window_days: 5
  currency_symbol: "$"
  decimal_separator: "."
  thousand_separator: ","
  weekday_names: [Mon, Tue, Wed, Thu, Fri, Sat, Sun]
`))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Billing.UpcomingWindowDays)
	f := cfg.Billing.MoneyFormat()
	assert.Equal(t, ".", f.DecimalSeparator)
	assert.Equal(t, ",", f.ThousandSeparator)
	assert.Equal(t, "Sun", cfg.Billing.Names()[6])
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing database", "server:\n  port: 80\n"},
		{"bad port", minimalYAML + "server:\n  port: 70000\n"},
		{"smtp without from", minimalYAML + "smtp:\n  host: mail\n  port: 25\n"},
		{"same separators", minimalYAML + "billing:\n  decimal_separator: \".\"\n  thousand_separator: \".\"\n"},
		{"short weekday list", minimalYAML + "billing:\n  weekday_names: [a, b]\n"},
		{"unknown timezone", minimalYAML + "billing:\n  timezone: Mars/Olympus\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "cache", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
