package narrative

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

func samplePackage(overall models.RAGStatus) *models.MetricsPackage {
	return &models.MetricsPackage{
		RunID:   "test-run",
		Period:  "2025-06",
		Company: "Test Corp",
		Financial: models.FinancialMetrics{
			RevenueActual: 940_000, RevenueBudget: 1_000_000,
			RevenueVsBudget: 0.94, RevenueYoYGrowth: 0.15,
			EBITDA: 130_000, EBITDAMargin: 0.138, GrossMargin: 0.69,
			YTDRevenueActual: 5_600_000, YTDRevenueBudget: 5_800_000,
			YTDRevenueVsBudget: 0.9655,
		},
		Commercial: models.CommercialMetrics{
			OpenPipeline: 8_400_000, PipelineCoverage: 2.8,
			WinRateActual: 0.22, WinRateBudget: 0.24,
		},
		Customer: models.CustomerMetrics{
			ARR: 8_600_000, ARRGrowthYoY: 0.14, Trailing12Churn: 0.11, NPS: 42,
		},
		Headcount: models.HeadcountMetrics{
			HeadcountActual: 75, HeadcountBudget: 77, HeadcountVsPlan: 0.974,
		},
		KPIs: map[models.KPIName]models.KPIResult{
			models.KPIRevenueVsBudget:  {Name: models.KPIRevenueVsBudget, Status: overall},
			models.KPIPipelineCoverage: {Name: models.KPIPipelineCoverage, Status: overall, Value: 2.8},
		},
	}
}

func TestBuildSelectsVariantByOverallStatus(t *testing.T) {
	svc := NewService(common.NewDefaultConfig())

	amber, err := svc.Build(samplePackage(models.StatusAmber))
	require.NoError(t, err)
	assert.Contains(t, amber.ExecutiveSummary, "slightly behind plan")

	red, err := svc.Build(samplePackage(models.StatusRed))
	require.NoError(t, err)
	assert.Contains(t, red.ExecutiveSummary, "materially missed plan")

	green, err := svc.Build(samplePackage(models.StatusGreen))
	require.NoError(t, err)
	assert.Contains(t, green.ExecutiveSummary, "strong")
}

func TestBuildInterpolatesFigures(t *testing.T) {
	svc := NewService(common.NewDefaultConfig())

	out, err := svc.Build(samplePackage(models.StatusAmber))
	require.NoError(t, err)

	assert.Contains(t, out.ExecutiveSummary, "Test Corp")
	assert.Contains(t, out.ExecutiveSummary, "June 2025")
	assert.Contains(t, out.ExecutiveSummary, "£940k")
	assert.Contains(t, out.Financial, "£1.0m")
	assert.Contains(t, out.Financial, "15.0%")
	assert.Contains(t, out.Commercial, "2.8x")
	assert.Contains(t, out.Customer, "£8.6m")
	assert.Contains(t, out.Operational, "75")
	assert.NotEmpty(t, out.Outlook)
	assert.Len(t, out.Risks, 3)
}

func TestBuildYTDSentenceUsesCumulativeRatio(t *testing.T) {
	svc := NewService(common.NewDefaultConfig())

	// Latest month ahead of budget while the cumulative position is
	// behind; the year-to-date sentence follows the cumulative ratio.
	pkg := samplePackage(models.StatusAmber)
	pkg.Financial.RevenueVsBudget = 1.08
	pkg.Financial.YTDRevenueVsBudget = 0.965

	out, err := svc.Build(pkg)
	require.NoError(t, err)
	assert.Contains(t, out.Financial, "3.5% below the cumulative budget")
}

func TestBuildPipelineVariant(t *testing.T) {
	svc := NewService(common.NewDefaultConfig())

	pkg := samplePackage(models.StatusGreen)
	pkg.KPIs[models.KPIPipelineCoverage] = models.KPIResult{Status: models.StatusGreen, Value: 3.4}
	pkg.Commercial.PipelineCoverage = 3.4

	out, err := svc.Build(pkg)
	require.NoError(t, err)
	assert.Contains(t, out.Commercial, "comfortably above")

	pkg.KPIs[models.KPIPipelineCoverage] = models.KPIResult{Status: models.StatusRed, Value: 1.9}
	pkg.Commercial.PipelineCoverage = 1.9
	out, err = svc.Build(pkg)
	require.NoError(t, err)
	assert.Contains(t, out.Commercial, "top commercial priority")
}

func TestBuildARRVariant(t *testing.T) {
	svc := NewService(common.NewDefaultConfig())

	pkg := samplePackage(models.StatusAmber)
	pkg.Customer.ARRGrowthYoY = -0.03

	out, err := svc.Build(pkg)
	require.NoError(t, err)
	assert.Contains(t, out.Customer, "down year on year")
}

func TestBuildUsesTemplatesDirOverride(t *testing.T) {
	dir := t.TempDir()
	custom := "executive_summary:\n  amber: \"Custom summary for {{.Company}}\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "narrative.yaml"), []byte(custom), 0o644))

	cfg := common.NewDefaultConfig()
	cfg.Paths.TemplatesDir = dir

	out, err := NewService(cfg).Build(samplePackage(models.StatusAmber))
	require.NoError(t, err)
	assert.Equal(t, "Custom summary for Test Corp", out.ExecutiveSummary)
}

func TestFormattingHelpers(t *testing.T) {
	assert.Equal(t, "£9.0m", GBP(9_000_000))
	assert.Equal(t, "£450k", GBP(450_000))
	assert.Equal(t, "£120", GBP(120))
	assert.Equal(t, "£-1.2m", GBP(-1_200_000))

	assert.Equal(t, "97.3%", Percent(0.973))
	assert.Equal(t, "+1.2pp", PercentagePoints(0.012))
	assert.Equal(t, "-0.8pp", PercentagePoints(-0.008))

	assert.Equal(t, "2.7% below", AboveBelow(0.973))
	assert.Equal(t, "4.0% above", AboveBelow(1.04))
}
