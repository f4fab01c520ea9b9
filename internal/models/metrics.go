package models

// FinancialMetrics covers revenue, margin and YTD performance for the
// reporting period.
type FinancialMetrics struct {
	Period             string  `json:"period"`
	RevenueActual      float64 `json:"revenue_actual"`
	RevenueBudget      float64 `json:"revenue_budget"`
	RevenuePriorYear   float64 `json:"revenue_prior_year"`
	RevenueVsBudget    float64 `json:"revenue_vs_budget"`
	RevenueYoYGrowth   float64 `json:"revenue_yoy_growth"`
	GrossProfit        float64 `json:"gross_profit"`
	GrossMargin        float64 `json:"gross_margin"`
	EBITDA             float64 `json:"ebitda"`
	EBITDAMargin       float64 `json:"ebitda_margin"`
	YTDRevenueActual   float64 `json:"ytd_revenue_actual"`
	YTDRevenueBudget   float64 `json:"ytd_revenue_budget"`
	YTDRevenueVariance float64 `json:"ytd_revenue_variance"`
	YTDRevenueVsBudget float64 `json:"ytd_revenue_vs_budget"`
}

// StagePipeline is the open pipeline value in one funnel stage at the
// latest snapshot.
type StagePipeline struct {
	Stage string  `json:"stage"`
	Value float64 `json:"value"`
}

// CommercialMetrics covers sales pipeline health.
type CommercialMetrics struct {
	OpenPipeline     float64         `json:"open_pipeline"`
	PipelineCoverage float64         `json:"pipeline_coverage"`
	QuarterlyTarget  float64         `json:"quarterly_target"`
	WinRateActual    float64         `json:"win_rate_actual"`
	WinRateBudget    float64         `json:"win_rate_budget"`
	PipelineByStage  []StagePipeline `json:"pipeline_by_stage"`
	DealCount        int             `json:"deal_count"`
	AvgDealSize      float64         `json:"avg_deal_size"`
}

// CustomerMetrics covers ARR, churn and NPS.
type CustomerMetrics struct {
	ARR              float64 `json:"arr"`
	ARRBudget        float64 `json:"arr_budget"`
	ARRGrowthYoY     float64 `json:"arr_growth_yoy"`
	Trailing12Churn  float64 `json:"trailing_12_churn"`
	NPS              int     `json:"nps"`
	NewARR           float64 `json:"new_arr"`
	ChurnedARR       float64 `json:"churned_arr"`
	NetARRMovement   float64 `json:"net_arr_movement"`
	NewCustomers     int     `json:"new_customers"`
	ChurnedCustomers int     `json:"churned_customers"`
}

// DepartmentHeadcount is one department's position against plan for the
// reporting period.
type DepartmentHeadcount struct {
	Department string `json:"department"`
	Actual     int    `json:"actual"`
	Budget     int    `json:"budget"`
	Variance   int    `json:"variance"`
}

// HeadcountMetrics covers people numbers and cost against plan.
type HeadcountMetrics struct {
	HeadcountActual   int                   `json:"headcount_actual"`
	HeadcountBudget   int                   `json:"headcount_budget"`
	HeadcountVsPlan   float64               `json:"headcount_vs_plan"`
	TotalCostActual   float64               `json:"total_cost_actual"`
	TotalCostBudget   float64               `json:"total_cost_budget"`
	CostPerHeadActual float64               `json:"cost_per_head_actual"`
	CostPerHeadBudget float64               `json:"cost_per_head_budget"`
	ByDepartment      []DepartmentHeadcount `json:"by_department"`
}

// TrendPoint is one month of a charted series.
type TrendPoint struct {
	Period string  `json:"period"`
	Actual float64 `json:"actual"`
	Budget float64 `json:"budget"`
}

// MetricsPackage is the complete computed output for one reporting period.
// Everything downstream (narrative, PDF, Excel, dashboard, distribution)
// consumes this structure and nothing else.
type MetricsPackage struct {
	RunID      string                `json:"run_id"`
	Period     string                `json:"period"`
	Company    string                `json:"company"`
	Financial  FinancialMetrics      `json:"financial"`
	Commercial CommercialMetrics     `json:"commercial"`
	Customer   CustomerMetrics       `json:"customer"`
	Headcount  HeadcountMetrics      `json:"headcount"`
	KPIs       map[KPIName]KPIResult `json:"kpis"`

	RevenueTrend []TrendPoint `json:"revenue_trend"`
	ARRTrend     []TrendPoint `json:"arr_trend"`
	EBITDATrend  []TrendPoint `json:"ebitda_trend"`
}

// OverallStatus is the worst KPI status in the package, used for the
// executive summary tone. Unknown statuses are ignored; with no computable
// KPIs the overall status is Unknown.
func (m *MetricsPackage) OverallStatus() RAGStatus {
	overall := StatusUnknown
	rank := func(s RAGStatus) int {
		switch s {
		case StatusGreen:
			return 0
		case StatusAmber:
			return 1
		case StatusRed:
			return 2
		}
		return -1
	}
	for _, r := range m.KPIs {
		if rank(r.Status) > rank(overall) {
			overall = r.Status
		}
	}
	return overall
}
