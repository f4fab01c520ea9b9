package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwane019/board-report-generator/internal/models"
)

func testThresholds() models.Thresholds {
	return models.Thresholds{
		models.KPIRevenueVsBudget:   {Green: 0.98, Amber: 0.93, Direction: models.HigherIsBetter},
		models.KPIEBITDAMargin:      {Green: 0.15, Amber: 0.10, Direction: models.HigherIsBetter},
		models.KPIGrossMargin:       {Green: 0.68, Amber: 0.62, Direction: models.HigherIsBetter},
		models.KPIPipelineCoverage:  {Green: 3.0, Amber: 2.2, Direction: models.HigherIsBetter},
		models.KPIARRGrowth:         {Green: 0.15, Amber: 0.08, Direction: models.HigherIsBetter},
		models.KPIChurnRate:         {Green: 0.05, Amber: 0.08, Direction: models.LowerIsBetter},
		models.KPIHeadcountVsBudget: {Green: 1.05, Amber: 1.10, Direction: models.LowerIsBetter},
		models.KPINPS:               {Green: 40, Amber: 25, Direction: models.HigherIsBetter},
	}
}

// makeRecords builds n months ending December, with benign defaults that
// keep every KPI computable.
func makeRecords(n int) []models.PeriodRecord {
	records := make([]models.PeriodRecord, n)
	for i := 0; i < n; i++ {
		monthsBack := n - 1 - i
		year := 2025
		month := 12 - monthsBack
		for month < 1 {
			month += 12
			year--
		}
		records[i] = models.PeriodRecord{
			Year: year, Month: month,
			RevenueActual: 1_000_000, RevenueBudget: 1_000_000,
			GrossProfit: 700_000, EBITDA: 150_000,
			PipelineOpen: 7_000_000,
			ARR:          10_000_000, ChurnedARR: 40_000,
			HeadcountActual: 77, HeadcountBudget: 77,
			NPS: 45,
		}
	}
	return records
}

func TestClassifyHigherIsBetterBoundaries(t *testing.T) {
	th := models.Threshold{Green: 0.98, Amber: 0.93, Direction: models.HigherIsBetter}

	assert.Equal(t, models.StatusGreen, Classify(0.98, th), "value on green boundary")
	assert.Equal(t, models.StatusGreen, Classify(0.99, th))
	assert.Equal(t, models.StatusAmber, Classify(0.93, th), "value on amber boundary")
	assert.Equal(t, models.StatusAmber, Classify(0.95, th))
	assert.Equal(t, models.StatusRed, Classify(0.9299, th))
}

func TestClassifyLowerIsBetterBoundaries(t *testing.T) {
	th := models.Threshold{Green: 0.05, Amber: 0.08, Direction: models.LowerIsBetter}

	assert.Equal(t, models.StatusGreen, Classify(0.05, th), "value on green boundary")
	assert.Equal(t, models.StatusGreen, Classify(0.04, th))
	assert.Equal(t, models.StatusAmber, Classify(0.08, th), "value on amber boundary")
	assert.Equal(t, models.StatusAmber, Classify(0.06, th))
	assert.Equal(t, models.StatusRed, Classify(0.0801, th))
}

func TestClassifyBoundaryMonotonicity(t *testing.T) {
	value := 0.95
	th := models.Threshold{Green: 0.94, Amber: 0.90, Direction: models.HigherIsBetter}
	require.Equal(t, models.StatusGreen, Classify(value, th))

	// Raising the green boundary past the value demotes it one step.
	th.Green = 0.96
	assert.Equal(t, models.StatusAmber, Classify(value, th))

	// Only raising amber past the value as well can make it red.
	th.Amber = 0.96
	assert.Equal(t, models.StatusRed, Classify(value, th))
}

func TestComputeIsIdempotent(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(24)

	first, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)
	second, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeZeroBudgetNotComputable(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(13)
	for i := range records {
		records[i].RevenueBudget = 0
	}

	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)

	r := results[models.KPIRevenueVsBudget]
	assert.True(t, r.NotComputable)
	assert.Equal(t, models.StatusUnknown, r.Status)
	assert.Equal(t, "n/a", r.Display)
}

func TestComputeZeroOpeningARRNotComputable(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(12)
	for i := range records {
		records[i].ARR = 0
	}

	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)

	assert.True(t, results[models.KPIChurnRate].NotComputable)
	assert.Equal(t, models.StatusUnknown, results[models.KPIChurnRate].Status)
}

func TestComputeScenarioYTDRevenueAmber(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(1)
	records[0].Month = 1
	records[0].RevenueActual = 9_000_000
	records[0].RevenueBudget = 9_250_000

	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)

	r := results[models.KPIRevenueVsBudget]
	assert.InDelta(t, 0.9730, r.Value, 0.0001)
	assert.Equal(t, models.StatusAmber, r.Status)
	assert.Equal(t, "97.3%", r.Display)
}

func TestComputeScenarioEBITDAMarginGreen(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(1)
	records[0].RevenueActual = 9_000_000
	records[0].RevenueBudget = 9_000_000
	records[0].EBITDA = 1_656_000

	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)

	r := results[models.KPIEBITDAMargin]
	assert.InDelta(t, 0.184, r.Value, 0.0001)
	assert.Equal(t, models.StatusGreen, r.Status)
}

func TestComputeScenarioChurnAmber(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(12)
	for i := range records {
		records[i].ARR = 1_000_000
		records[i].ChurnedARR = 62_000.0 / 12
	}

	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)

	r := results[models.KPIChurnRate]
	assert.InDelta(t, 0.062, r.Value, 0.0001)
	assert.Equal(t, models.StatusAmber, r.Status)
}

func TestComputeScenarioPipelineCoverageInclusiveBoundary(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(1)
	records[0].RevenueBudget = 1_000_000
	records[0].RevenueActual = 1_000_000
	records[0].PipelineOpen = 9_000_000

	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)

	r := results[models.KPIPipelineCoverage]
	assert.Equal(t, 3.0, r.Value)
	assert.Equal(t, models.StatusGreen, r.Status)
	assert.Equal(t, "3.0x", r.Display)
}

func TestComputeScenarioShortHistoryOmitsTrailingKPIs(t *testing.T) {
	engine := NewEngine(1)

	results, err := engine.Compute(makeRecords(12), testThresholds())
	require.NoError(t, err)

	// Twelve periods satisfy trailing churn but not year-over-year growth.
	assert.NotContains(t, results, models.KPIARRGrowth)
	assert.Contains(t, results, models.KPIChurnRate)
	for _, name := range []models.KPIName{
		models.KPIRevenueVsBudget, models.KPIEBITDAMargin, models.KPIGrossMargin,
		models.KPIPipelineCoverage, models.KPIHeadcountVsBudget, models.KPINPS,
	} {
		assert.Contains(t, results, name)
	}

	results, err = engine.Compute(makeRecords(11), testThresholds())
	require.NoError(t, err)
	assert.NotContains(t, results, models.KPIARRGrowth)
	assert.NotContains(t, results, models.KPIChurnRate)
}

func TestComputeARRGrowth(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(13)
	records[0].ARR = 10_000_000
	records[12].ARR = 11_600_000

	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)

	r := results[models.KPIARRGrowth]
	assert.InDelta(t, 0.16, r.Value, 0.0001)
	assert.Equal(t, models.StatusGreen, r.Status)
}

func TestComputeNPSUsesAbsoluteThresholds(t *testing.T) {
	engine := NewEngine(1)
	records := makeRecords(1)

	records[0].NPS = 40
	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)
	assert.Equal(t, models.StatusGreen, results[models.KPINPS].Status)
	assert.Equal(t, "40", results[models.KPINPS].Display)

	records[0].NPS = 24
	results, err = engine.Compute(records, testThresholds())
	require.NoError(t, err)
	assert.Equal(t, models.StatusRed, results[models.KPINPS].Status)
}

func TestComputeEmptyRecords(t *testing.T) {
	engine := NewEngine(1)
	_, err := engine.Compute(nil, testThresholds())
	assert.ErrorIs(t, err, ErrNoPeriods)
}

func TestComputeInvalidThresholds(t *testing.T) {
	engine := NewEngine(1)
	th := testThresholds()
	th[models.KPIChurnRate] = models.Threshold{Green: 0.08, Amber: 0.05, Direction: models.LowerIsBetter}

	_, err := engine.Compute(makeRecords(1), th)
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

func TestComputeMissingThreshold(t *testing.T) {
	engine := NewEngine(1)
	th := testThresholds()
	delete(th, models.KPINPS)

	_, err := engine.Compute(makeRecords(1), th)
	require.ErrorIs(t, err, ErrInvalidThresholds)
	assert.Contains(t, err.Error(), "nps")
}

func TestComputeFiscalYearWindow(t *testing.T) {
	// Fiscal year starting April: only April onwards counts toward YTD.
	engine := NewEngine(4)
	records := makeRecords(12) // January through December
	for i := range records {
		records[i].RevenueActual = 100
		records[i].RevenueBudget = 200
	}
	// Months before April would drag the ratio down if wrongly included.
	for i := 0; i < 3; i++ {
		records[i].RevenueActual = 0
	}

	results, err := engine.Compute(records, testThresholds())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, results[models.KPIRevenueVsBudget].Value, 1e-9)
}
