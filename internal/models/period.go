package models

// PeriodRecord is one calendar month of the pre-aggregated series the KPI
// engine consumes. Records are ordered oldest first; the last element is
// the reporting period.
type PeriodRecord struct {
	Period          string  `json:"period"` // YYYY-MM
	Year            int     `json:"year"`
	Month           int     `json:"month"`
	RevenueActual   float64 `json:"revenue_actual"`
	RevenueBudget   float64 `json:"revenue_budget"`
	RevenuePriorYr  float64 `json:"revenue_prior_year"`
	GrossProfit     float64 `json:"gross_profit"`
	EBITDA          float64 `json:"ebitda"`
	EBITDABudget    float64 `json:"ebitda_budget"`
	PipelineOpen    float64 `json:"pipeline_open"`
	WinRateActual   float64 `json:"win_rate_actual"`
	WinRateBudget   float64 `json:"win_rate_budget"`
	ARR             float64 `json:"arr"`
	ARRBudget       float64 `json:"arr_budget"`
	ChurnedARR      float64 `json:"churned_arr"`
	HeadcountActual int     `json:"headcount_actual"`
	HeadcountBudget int     `json:"headcount_budget"`
	NPS             int     `json:"nps"`
}
