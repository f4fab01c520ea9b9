package metrics

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

const trendMonths = 12

// Service aggregates raw datasets and runs the KPI engine to produce the
// metrics package every downstream renderer consumes.
type Service struct {
	cfg    *common.Config
	engine *Engine
	logger arbor.ILogger
}

func NewService(cfg *common.Config) *Service {
	return &Service{
		cfg:    cfg,
		engine: NewEngine(cfg.Project.FiscalYearStartMonth),
		logger: common.GetLogger(),
	}
}

// Compute builds the full metrics package for the latest period in the
// datasets.
func (s *Service) Compute(datasets *models.Datasets) (*models.MetricsPackage, error) {
	records, err := aggregate(datasets)
	if err != nil {
		return nil, fmt.Errorf("aggregating datasets: %w", err)
	}

	kpis, err := s.engine.Compute(records, s.cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("computing KPIs: %w", err)
	}

	latest := records[len(records)-1]
	pkg := &models.MetricsPackage{
		RunID:      uuid.New().String(),
		Period:     latest.Period,
		Company:    s.cfg.Project.CompanyName,
		Financial:  s.financialMetrics(records),
		Commercial: s.commercialMetrics(latest, kpis, datasets.Pipeline),
		Customer:   s.customerMetrics(latest, kpis, datasets.Customers),
		Headcount:  s.headcountMetrics(latest, kpis, datasets.Headcount),
		KPIs:       kpis,
	}
	pkg.RevenueTrend = trend(records, func(r models.PeriodRecord) (float64, float64) {
		return r.RevenueActual, r.RevenueBudget
	})
	pkg.ARRTrend = trend(records, func(r models.PeriodRecord) (float64, float64) {
		return r.ARR, r.ARRBudget
	})
	pkg.EBITDATrend = trend(records, func(r models.PeriodRecord) (float64, float64) {
		return r.EBITDA, r.EBITDABudget
	})

	s.logger.Info().
		Str("run_id", pkg.RunID).
		Str("period", pkg.Period).
		Str("overall", string(pkg.OverallStatus())).
		Int("kpis", len(kpis)).
		Msg("Metrics package computed")
	return pkg, nil
}

func (s *Service) financialMetrics(records []models.PeriodRecord) models.FinancialMetrics {
	latest := records[len(records)-1]
	m := models.FinancialMetrics{
		Period:           latest.Period,
		RevenueActual:    latest.RevenueActual,
		RevenueBudget:    latest.RevenueBudget,
		RevenuePriorYear: latest.RevenuePriorYr,
		GrossProfit:      latest.GrossProfit,
		EBITDA:           latest.EBITDA,
	}
	if latest.RevenueBudget > minDenominator {
		m.RevenueVsBudget = latest.RevenueActual / latest.RevenueBudget
	}
	if latest.RevenuePriorYr > minDenominator {
		m.RevenueYoYGrowth = (latest.RevenueActual - latest.RevenuePriorYr) / latest.RevenuePriorYr
	}
	if latest.RevenueActual > minDenominator {
		m.GrossMargin = latest.GrossProfit / latest.RevenueActual
		m.EBITDAMargin = latest.EBITDA / latest.RevenueActual
	}

	// YTD accumulates from the fiscal-year start containing the
	// reporting period.
	start := s.fiscalYearStartIndex(records)
	for _, r := range records[start:] {
		m.YTDRevenueActual += r.RevenueActual
		m.YTDRevenueBudget += r.RevenueBudget
	}
	m.YTDRevenueVariance = m.YTDRevenueActual - m.YTDRevenueBudget
	if m.YTDRevenueBudget > minDenominator {
		m.YTDRevenueVsBudget = m.YTDRevenueActual / m.YTDRevenueBudget
	}
	return m
}

// fiscalYearStartIndex finds the most recent record whose month is the
// configured fiscal-year start, at or before the reporting period.
func (s *Service) fiscalYearStartIndex(records []models.PeriodRecord) int {
	fyMonth := s.cfg.Project.FiscalYearStartMonth
	if fyMonth < 1 || fyMonth > 12 {
		fyMonth = 1
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Month == fyMonth {
			return i
		}
	}
	return 0
}

func (s *Service) commercialMetrics(latest models.PeriodRecord, kpis map[models.KPIName]models.KPIResult, pipeline []models.PipelineRow) models.CommercialMetrics {
	m := models.CommercialMetrics{
		OpenPipeline:    latest.PipelineOpen,
		QuarterlyTarget: latest.RevenueBudget * 3,
		WinRateActual:   latest.WinRateActual,
		WinRateBudget:   latest.WinRateBudget,
	}
	if r, ok := kpis[models.KPIPipelineCoverage]; ok && !r.NotComputable {
		m.PipelineCoverage = r.Value
	}

	// Stage breakdown and deal sizing come from the latest weekly
	// snapshot, the same one the open-pipeline figure is taken from.
	latestWeek := ""
	for _, row := range pipeline {
		if row.WeekStart > latestWeek {
			latestWeek = row.WeekStart
		}
	}
	byStage := make(map[string]float64)
	totalValue := 0.0
	for _, row := range pipeline {
		if row.WeekStart != latestWeek {
			continue
		}
		byStage[row.Stage] += row.PipelineValueGBP
		totalValue += row.PipelineValueGBP
		m.DealCount += row.DealCount
	}
	stages := make([]string, 0, len(byStage))
	for stage := range byStage {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		m.PipelineByStage = append(m.PipelineByStage, models.StagePipeline{Stage: stage, Value: byStage[stage]})
	}
	if m.DealCount > 0 {
		m.AvgDealSize = totalValue / float64(m.DealCount)
	}
	return m
}

func (s *Service) customerMetrics(latest models.PeriodRecord, kpis map[models.KPIName]models.KPIResult, customers []models.CustomerRow) models.CustomerMetrics {
	m := models.CustomerMetrics{
		ARR:       latest.ARR,
		ARRBudget: latest.ARRBudget,
		NPS:       latest.NPS,
	}
	if r, ok := kpis[models.KPIARRGrowth]; ok && !r.NotComputable {
		m.ARRGrowthYoY = r.Value
	}
	if r, ok := kpis[models.KPIChurnRate]; ok && !r.NotComputable {
		m.Trailing12Churn = r.Value
	}
	for _, row := range customers {
		if row.Period != latest.Period {
			continue
		}
		m.NewARR = row.NewARRGBP
		m.ChurnedARR = row.ChurnedARRGBP
		m.NetARRMovement = row.NewARRGBP - row.ChurnedARRGBP
		m.NewCustomers = row.NewCustomers
		m.ChurnedCustomers = row.ChurnedCustomers
	}
	return m
}

func (s *Service) headcountMetrics(latest models.PeriodRecord, kpis map[models.KPIName]models.KPIResult, headcount []models.HeadcountRow) models.HeadcountMetrics {
	m := models.HeadcountMetrics{
		HeadcountActual: latest.HeadcountActual,
		HeadcountBudget: latest.HeadcountBudget,
	}
	if r, ok := kpis[models.KPIHeadcountVsBudget]; ok && !r.NotComputable {
		m.HeadcountVsPlan = r.Value
	}
	for _, row := range headcount {
		if row.Period != latest.Period {
			continue
		}
		m.TotalCostActual += row.CostActualGBP
		m.TotalCostBudget += row.CostBudgetGBP
		m.ByDepartment = append(m.ByDepartment, models.DepartmentHeadcount{
			Department: row.Department,
			Actual:     row.HeadcountActual,
			Budget:     row.HeadcountBudget,
			Variance:   row.HeadcountActual - row.HeadcountBudget,
		})
	}
	sort.Slice(m.ByDepartment, func(i, j int) bool {
		return m.ByDepartment[i].Department < m.ByDepartment[j].Department
	})
	if m.HeadcountActual > 0 {
		m.CostPerHeadActual = m.TotalCostActual / float64(m.HeadcountActual)
	}
	if m.HeadcountBudget > 0 {
		m.CostPerHeadBudget = m.TotalCostBudget / float64(m.HeadcountBudget)
	}
	return m
}

func trend(records []models.PeriodRecord, pick func(models.PeriodRecord) (float64, float64)) []models.TrendPoint {
	start := 0
	if len(records) > trendMonths {
		start = len(records) - trendMonths
	}
	points := make([]models.TrendPoint, 0, len(records)-start)
	for _, r := range records[start:] {
		actual, budget := pick(r)
		points = append(points, models.TrendPoint{Period: r.Period, Actual: actual, Budget: budget})
	}
	return points
}
