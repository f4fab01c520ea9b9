package models

// FinancialRow is one month of one P&L line (Revenue, COGS or OpEx).
type FinancialRow struct {
	Period       string  `csv:"period"` // YYYY-MM
	Year         int     `csv:"year"`
	Month        int     `csv:"month"`
	LineType     string  `csv:"line_type"` // "Revenue", "COGS", "OpEx"
	LineName     string  `csv:"line_name"`
	BudgetGBP    float64 `csv:"budget_gbp"`
	ActualGBP    float64 `csv:"actual_gbp"`
	PriorYearGBP float64 `csv:"prior_year_gbp"`
}

// PipelineRow is one weekly sales-pipeline snapshot for one stage.
type PipelineRow struct {
	WeekStart         string  `csv:"week_start"` // YYYY-MM-DD
	Stage             string  `csv:"stage"`
	PipelineValueGBP  float64 `csv:"pipeline_value_gbp"`
	BudgetPipelineGBP float64 `csv:"budget_pipeline_gbp"`
	DealCount         int     `csv:"deal_count"`
	WinRateActual     float64 `csv:"win_rate_actual"`
	WinRateBudget     float64 `csv:"win_rate_budget"`
}

// HeadcountRow is one month of headcount and people cost for one department.
type HeadcountRow struct {
	Period             string  `csv:"period"`
	Year               int     `csv:"year"`
	Month              int     `csv:"month"`
	Department         string  `csv:"department"`
	HeadcountBudget    int     `csv:"headcount_budget"`
	HeadcountActual    int     `csv:"headcount_actual"`
	HeadcountPriorYear int     `csv:"headcount_prior_year"`
	CostBudgetGBP      float64 `csv:"cost_budget_gbp"`
	CostActualGBP      float64 `csv:"cost_actual_gbp"`
}

// CustomerRow is one month of ARR waterfall, churn and NPS data.
type CustomerRow struct {
	Period           string  `csv:"period"`
	Year             int     `csv:"year"`
	Month            int     `csv:"month"`
	ARRGBP           float64 `csv:"arr_gbp"`
	ARRBudgetGBP     float64 `csv:"arr_budget_gbp"`
	NewARRGBP        float64 `csv:"new_arr_gbp"`
	ChurnedARRGBP    float64 `csv:"churned_arr_gbp"`
	ChurnRateActual  float64 `csv:"churn_rate_actual"`
	ChurnRateBudget  float64 `csv:"churn_rate_budget"`
	NPSActual        int     `csv:"nps_actual"`
	NPSBudget        int     `csv:"nps_budget"`
	NewCustomers     int     `csv:"new_customers"`
	ChurnedCustomers int     `csv:"churned_customers"`
}

// Datasets bundles the four raw datasets that feed the KPI engine.
type Datasets struct {
	Financials []FinancialRow
	Pipeline   []PipelineRow
	Headcount  []HeadcountRow
	Customers  []CustomerRow
}

// TotalRows returns the combined row count across all four datasets.
func (d *Datasets) TotalRows() int {
	return len(d.Financials) + len(d.Pipeline) + len(d.Headcount) + len(d.Customers)
}
