package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
	"github.com/marwane019/board-report-generator/internal/services/simulator"
)

func simulatedDatasets(t *testing.T) *models.Datasets {
	t.Helper()
	cfg := common.NewDefaultConfig()
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	datasets, err := simulator.NewServiceAt(cfg, end).Generate()
	require.NoError(t, err)
	return datasets
}

func TestAggregateBuildsOrderedSeries(t *testing.T) {
	datasets := simulatedDatasets(t)

	records, err := aggregate(datasets)
	require.NoError(t, err)
	require.Len(t, records, 36)

	for i := 1; i < len(records); i++ {
		assert.Less(t, records[i-1].Period, records[i].Period)
	}
	for _, r := range records {
		assert.Greater(t, r.RevenueActual, 0.0, r.Period)
		assert.Greater(t, r.GrossProfit, 0.0, r.Period)
		assert.Greater(t, r.PipelineOpen, 0.0, r.Period)
		assert.Greater(t, r.ARR, 0.0, r.Period)
		assert.Greater(t, r.HeadcountActual, 0, r.Period)
	}
	assert.Equal(t, "2025-06", records[len(records)-1].Period)
}

func TestAggregateRejectsMissingCustomerData(t *testing.T) {
	datasets := simulatedDatasets(t)
	datasets.Customers = datasets.Customers[:len(datasets.Customers)-1]

	_, err := aggregate(datasets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2025-06")
}

func TestAggregateRejectsEmptyFinancials(t *testing.T) {
	_, err := aggregate(&models.Datasets{})
	assert.Error(t, err)
}

func TestAggregateRejectsUnknownLineType(t *testing.T) {
	datasets := simulatedDatasets(t)
	datasets.Financials[0].LineType = "CapEx"

	_, err := aggregate(datasets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CapEx")
}

func TestComputePackage(t *testing.T) {
	cfg := common.NewDefaultConfig()
	svc := NewService(cfg)

	pkg, err := svc.Compute(simulatedDatasets(t))
	require.NoError(t, err)

	assert.NotEmpty(t, pkg.RunID)
	assert.Equal(t, "2025-06", pkg.Period)
	assert.Equal(t, cfg.Project.CompanyName, pkg.Company)

	// Full history means every KPI is present.
	assert.Len(t, pkg.KPIs, len(models.AllKPINames()))
	for name, r := range pkg.KPIs {
		assert.Equal(t, name, r.Name)
		if !r.NotComputable {
			assert.Contains(t, []models.RAGStatus{models.StatusGreen, models.StatusAmber, models.StatusRed}, r.Status)
			assert.NotEmpty(t, r.Display)
		}
	}

	assert.Greater(t, pkg.Financial.RevenueActual, 0.0)
	assert.Greater(t, pkg.Financial.YTDRevenueActual, pkg.Financial.RevenueActual)
	assert.Greater(t, pkg.Commercial.OpenPipeline, 0.0)
	assert.Greater(t, pkg.Customer.ARR, 0.0)
	assert.Greater(t, pkg.Headcount.HeadcountActual, 0)

	assert.Len(t, pkg.RevenueTrend, 12)
	assert.Len(t, pkg.ARRTrend, 12)
	assert.Len(t, pkg.EBITDATrend, 12)
	assert.Equal(t, "2025-06", pkg.RevenueTrend[11].Period)
}

func TestComputePackageDetailMetrics(t *testing.T) {
	cfg := common.NewDefaultConfig()
	pkg, err := NewService(cfg).Compute(simulatedDatasets(t))
	require.NoError(t, err)

	// Stage breakdown comes from the same snapshot as the open pipeline
	// figure, so the stage values sum back to it.
	require.NotEmpty(t, pkg.Commercial.PipelineByStage)
	stageTotal := 0.0
	for i, stage := range pkg.Commercial.PipelineByStage {
		assert.Greater(t, stage.Value, 0.0, stage.Stage)
		stageTotal += stage.Value
		if i > 0 {
			assert.Less(t, pkg.Commercial.PipelineByStage[i-1].Stage, stage.Stage)
		}
	}
	assert.InDelta(t, pkg.Commercial.OpenPipeline, stageTotal, 0.01)
	require.Greater(t, pkg.Commercial.DealCount, 0)
	assert.InDelta(t, stageTotal/float64(pkg.Commercial.DealCount), pkg.Commercial.AvgDealSize, 0.01)

	assert.Greater(t, pkg.Customer.NewARR, 0.0)
	assert.InDelta(t, pkg.Customer.NewARR-pkg.Customer.ChurnedARR, pkg.Customer.NetARRMovement, 0.001)

	require.NotEmpty(t, pkg.Headcount.ByDepartment)
	totalActual := 0
	for i, dept := range pkg.Headcount.ByDepartment {
		totalActual += dept.Actual
		assert.Equal(t, dept.Actual-dept.Budget, dept.Variance, dept.Department)
		if i > 0 {
			assert.Less(t, pkg.Headcount.ByDepartment[i-1].Department, dept.Department)
		}
	}
	assert.Equal(t, pkg.Headcount.HeadcountActual, totalActual)
	assert.Greater(t, pkg.Headcount.TotalCostActual, 0.0)
	assert.Greater(t, pkg.Headcount.CostPerHeadActual, 0.0)
	assert.Greater(t, pkg.Headcount.CostPerHeadBudget, 0.0)

	assert.InDelta(t, pkg.Financial.YTDRevenueActual/pkg.Financial.YTDRevenueBudget, pkg.Financial.YTDRevenueVsBudget, 1e-9)
}

func TestComputePackageShortHistory(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Simulation.MonthsHistory = 6
	end := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	datasets, err := simulator.NewServiceAt(cfg, end).Generate()
	require.NoError(t, err)

	pkg, err := NewService(cfg).Compute(datasets)
	require.NoError(t, err)

	assert.NotContains(t, pkg.KPIs, models.KPIARRGrowth)
	assert.NotContains(t, pkg.KPIs, models.KPIChurnRate)
	assert.Contains(t, pkg.KPIs, models.KPIRevenueVsBudget)
	assert.Len(t, pkg.RevenueTrend, 6)
}
