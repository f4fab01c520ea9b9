package dashboard

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

func testPackage() *models.MetricsPackage {
	return &models.MetricsPackage{
		RunID:   "test-run",
		Period:  "2025-06",
		Company: "Test Corp",
		KPIs: map[models.KPIName]models.KPIResult{
			models.KPIRevenueVsBudget: {Name: models.KPIRevenueVsBudget, Status: models.StatusAmber, Display: "94.0%"},
			models.KPINPS:             {Name: models.KPINPS, Status: models.StatusGreen, Display: "42"},
		},
		Commercial: models.CommercialMetrics{
			OpenPipeline: 8_400_000, PipelineCoverage: 2.8,
			WinRateActual: 0.22, WinRateBudget: 0.24,
			DealCount: 45, AvgDealSize: 186_667,
			PipelineByStage: []models.StagePipeline{
				{Stage: "Negotiation", Value: 1_700_000},
				{Stage: "Proposal", Value: 2_500_000},
				{Stage: "Qualified", Value: 4_200_000},
			},
		},
		Customer: models.CustomerMetrics{
			ARR: 8_600_000, NPS: 42,
			NewARR: 210_000, ChurnedARR: 84_000, NetARRMovement: 126_000,
			NewCustomers: 6, ChurnedCustomers: 2,
		},
		Headcount: models.HeadcountMetrics{
			HeadcountActual: 75, HeadcountBudget: 77,
			CostPerHeadActual: 6_100, CostPerHeadBudget: 6_000,
			ByDepartment: []models.DepartmentHeadcount{
				{Department: "Engineering", Actual: 33, Budget: 34, Variance: -1},
				{Department: "Sales", Actual: 20, Budget: 21, Variance: -1},
			},
		},
		RevenueTrend: []models.TrendPoint{
			{Period: "2025-05", Actual: 900000, Budget: 950000},
			{Period: "2025-06", Actual: 940000, Budget: 1000000},
		},
		ARRTrend:    []models.TrendPoint{{Period: "2025-06", Actual: 8600000, Budget: 8800000}},
		EBITDATrend: []models.TrendPoint{{Period: "2025-06", Actual: 130000, Budget: 150000}},
	}
}

func testNarrative() *models.NarrativePackage {
	return &models.NarrativePackage{
		ExecutiveSummary: "Slightly behind plan.",
		Financial:        "Revenue was below budget.",
		Outlook:          "Steady.",
		Risks: []models.RiskEntry{
			{Risk: "Pipeline shortfall", Likelihood: "Medium", Impact: "Revenue miss", Mitigation: "Outbound"},
		},
	}
}

func TestRenderDashboard(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Paths.OutputDir = t.TempDir()

	path, err := NewService(cfg).Render(testPackage(), testNarrative())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "dashboard_2025-06.html"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "Test Corp")
	assert.Contains(t, html, "94.0%")
	assert.Contains(t, html, "Revenue vs Budget")
	// KPIs without results still render a tile.
	assert.Contains(t, html, "not available")
	assert.Contains(t, html, "Pipeline shortfall")
	assert.Contains(t, html, "plotly")
	assert.Contains(t, html, `"periods":["2025-05","2025-06"]`)
}

func TestRenderDashboardDetailSections(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Paths.OutputDir = t.TempDir()

	path, err := NewService(cfg).Render(testPackage(), testNarrative())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(data)

	assert.Contains(t, html, "Pipeline Detail")
	assert.Contains(t, html, "22.0%")
	assert.Contains(t, html, "ARR Movement")
	assert.Contains(t, html, "Net movement")
	assert.Contains(t, html, "Headcount by Department")
	assert.Contains(t, html, "Engineering")
	assert.Contains(t, html, "pipeline-stage-chart")
	assert.Contains(t, html, `"stages":["Negotiation","Proposal","Qualified"]`)
}

func TestRenderDashboardOverallStatus(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Paths.OutputDir = t.TempDir()

	pkg := testPackage()
	pkg.KPIs[models.KPIChurnRate] = models.KPIResult{Name: models.KPIChurnRate, Status: models.StatusRed, Display: "16.2%"}

	path, err := NewService(cfg).Render(pkg, testNarrative())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Overall: Red")
}
