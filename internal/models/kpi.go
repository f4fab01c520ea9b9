package models

import "fmt"

// KPIName identifies one of the board-pack KPIs.
type KPIName string

const (
	KPIRevenueVsBudget   KPIName = "revenue_vs_budget"
	KPIEBITDAMargin      KPIName = "ebitda_margin"
	KPIGrossMargin       KPIName = "gross_margin"
	KPIPipelineCoverage  KPIName = "pipeline_coverage"
	KPIARRGrowth         KPIName = "arr_growth"
	KPIChurnRate         KPIName = "churn_rate"
	KPIHeadcountVsBudget KPIName = "headcount_vs_budget"
	KPINPS               KPIName = "nps"
)

// AllKPINames lists every KPI in board-pack display order.
func AllKPINames() []KPIName {
	return []KPIName{
		KPIRevenueVsBudget,
		KPIEBITDAMargin,
		KPIGrossMargin,
		KPIPipelineCoverage,
		KPIARRGrowth,
		KPIChurnRate,
		KPIHeadcountVsBudget,
		KPINPS,
	}
}

// Title returns the human-readable KPI name used in reports.
func (n KPIName) Title() string {
	switch n {
	case KPIRevenueVsBudget:
		return "Revenue vs Budget"
	case KPIEBITDAMargin:
		return "EBITDA Margin"
	case KPIGrossMargin:
		return "Gross Margin"
	case KPIPipelineCoverage:
		return "Pipeline Coverage"
	case KPIARRGrowth:
		return "ARR Growth"
	case KPIChurnRate:
		return "Churn Rate"
	case KPIHeadcountVsBudget:
		return "Headcount vs Budget"
	case KPINPS:
		return "NPS"
	default:
		return string(n)
	}
}

// RAGStatus is the red/amber/green classification of a KPI value.
type RAGStatus string

const (
	StatusGreen   RAGStatus = "Green"
	StatusAmber   RAGStatus = "Amber"
	StatusRed     RAGStatus = "Red"
	StatusUnknown RAGStatus = "Unknown"
)

// Direction states whether larger KPI values are better or worse.
type Direction string

const (
	HigherIsBetter Direction = "higher_is_better"
	LowerIsBetter  Direction = "lower_is_better"
)

// Threshold holds the green and amber boundaries for one KPI.
type Threshold struct {
	Green     float64   `toml:"green" json:"green"`
	Amber     float64   `toml:"amber" json:"amber"`
	Direction Direction `toml:"direction" json:"direction"`
}

// Validate checks the boundary ordering invariant for the direction:
// higher_is_better requires green >= amber, lower_is_better the reverse.
func (t Threshold) Validate() error {
	switch t.Direction {
	case HigherIsBetter:
		if t.Green < t.Amber {
			return fmt.Errorf("higher_is_better requires green (%.4f) >= amber (%.4f)", t.Green, t.Amber)
		}
	case LowerIsBetter:
		if t.Green > t.Amber {
			return fmt.Errorf("lower_is_better requires green (%.4f) <= amber (%.4f)", t.Green, t.Amber)
		}
	default:
		return fmt.Errorf("unknown direction %q", t.Direction)
	}
	return nil
}

// Thresholds maps each KPI to its classification boundaries.
type Thresholds map[KPIName]Threshold

// Validate checks every threshold and reports the first invalid one.
func (ts Thresholds) Validate() error {
	for _, name := range AllKPINames() {
		t, ok := ts[name]
		if !ok {
			continue
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("threshold %s: %w", name, err)
		}
	}
	return nil
}

// KPIResult is the classified outcome for one KPI in one reporting period.
type KPIResult struct {
	Name          KPIName   `json:"name"`
	Value         float64   `json:"value"`
	Status        RAGStatus `json:"status"`
	Green         float64   `json:"green"`
	Amber         float64   `json:"amber"`
	Direction     Direction `json:"direction"`
	NotComputable bool      `json:"not_computable"`
	Display       string    `json:"display"`
}
