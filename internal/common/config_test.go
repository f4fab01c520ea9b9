package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwane019/board-report-generator/internal/models"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Thresholds, len(models.AllKPINames()))
	assert.Equal(t, 1, cfg.Project.FiscalYearStartMonth)
}

func TestLoadFromFilesLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boardgen.toml")
	content := `
environment = "production"

[project]
company_name = "Test Corp"

[scheduler]
schedule = "30 6 1 * *"

[thresholds.churn_rate]
green = 0.08
amber = 0.12
direction = "lower_is_better"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "Test Corp", cfg.Project.CompanyName)
	assert.Equal(t, "30 6 1 * *", cfg.Scheduler.Schedule)
	// Overridden threshold applies while the others keep their defaults.
	assert.Equal(t, 0.08, cfg.Thresholds[models.KPIChurnRate].Green)
	assert.Equal(t, 0.97, cfg.Thresholds[models.KPIRevenueVsBudget].Green)
	// File-less fields keep defaults.
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
}

func TestLoadFromFilesSkipsMissing(t *testing.T) {
	cfg, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadFromFilesRejectsInvalidThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	content := `
[thresholds.revenue_vs_budget]
green = 0.90
amber = 0.95
direction = "higher_is_better"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "revenue_vs_budget")
}

func TestLoadFromFilesRejectsBadSchedule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	content := `
[scheduler]
schedule = "not a cron"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cron")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOARDGEN_LOG_LEVEL", "debug")
	t.Setenv("BOARDGEN_OUTPUT_DIR", "/tmp/boardgen-out")
	t.Setenv("BOARDGEN_SEED", "99")
	t.Setenv("BOARDGEN_EMAIL_RECIPIENTS", "ceo@example.com, cfo@example.com")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/boardgen-out", cfg.Paths.OutputDir)
	assert.Equal(t, int64(99), cfg.Simulation.Seed)
	assert.Equal(t, []string{"ceo@example.com", "cfo@example.com"}, cfg.Distribution.EmailRecipients)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 7 1 * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule(""))
	assert.Error(t, ValidateSchedule("61 7 1 * *"))
	assert.Error(t, ValidateSchedule("0 7 1 *"))
}

func TestRetryDelayDuration(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Scheduler.RetryDelay = "90s"
	assert.Equal(t, "1m30s", cfg.RetryDelayDuration().String())

	cfg.Scheduler.RetryDelay = ""
	assert.Equal(t, "5m0s", cfg.RetryDelayDuration().String())
}
