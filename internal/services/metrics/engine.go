package metrics

import (
	"errors"
	"fmt"

	"github.com/marwane019/board-report-generator/internal/models"
)

var (
	// ErrNoPeriods is returned when the engine is given an empty series.
	ErrNoPeriods = errors.New("no period records")
	// ErrInvalidThresholds wraps threshold ordering or coverage failures.
	ErrInvalidThresholds = errors.New("invalid thresholds")
)

// minDenominator guards ratio KPIs against division by values that are
// zero or negligibly close to it.
const minDenominator = 1e-9

// History requirements for trailing KPIs. ARR growth compares against the
// record twelve months earlier; trailing churn sums twelve months of
// churned ARR against the window's opening ARR.
const (
	arrGrowthMinPeriods = 13
	churnMinPeriods     = 12
)

// Engine classifies KPIs from an ordered monthly series. It performs no
// I/O; given the same records and thresholds it always produces the same
// results.
type Engine struct {
	fyStartMonth int
}

// NewEngine creates a KPI engine. The fiscal-year start month anchors the
// year-to-date revenue window; values outside 1..12 fall back to January.
func NewEngine(fiscalYearStartMonth int) *Engine {
	if fiscalYearStartMonth < 1 || fiscalYearStartMonth > 12 {
		fiscalYearStartMonth = 1
	}
	return &Engine{fyStartMonth: fiscalYearStartMonth}
}

// Compute evaluates every KPI with enough history and classifies each
// against its thresholds. Records must be ordered oldest first; the last
// record is the reporting period. KPIs lacking history are omitted from
// the result; KPIs with a vanishing denominator are present but flagged
// not computable with Unknown status.
func (e *Engine) Compute(records []models.PeriodRecord, thresholds models.Thresholds) (map[models.KPIName]models.KPIResult, error) {
	if len(records) == 0 {
		return nil, ErrNoPeriods
	}
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThresholds, err)
	}
	for _, name := range models.AllKPINames() {
		if _, ok := thresholds[name]; !ok {
			return nil, fmt.Errorf("%w: missing threshold for %s", ErrInvalidThresholds, name)
		}
	}

	latest := records[len(records)-1]
	results := make(map[models.KPIName]models.KPIResult)

	add := func(name models.KPIName, value float64, computable bool, display string) {
		t := thresholds[name]
		r := models.KPIResult{
			Name:      name,
			Value:     value,
			Green:     t.Green,
			Amber:     t.Amber,
			Direction: t.Direction,
			Display:   display,
		}
		if computable {
			r.Status = Classify(value, t)
		} else {
			r.Status = models.StatusUnknown
			r.NotComputable = true
			r.Value = 0
			r.Display = "n/a"
		}
		results[name] = r
	}

	// Revenue performance is measured year to date, from the fiscal-year
	// start through the reporting period.
	var ytdActual, ytdBudget float64
	for _, r := range records[e.ytdStartIndex(records):] {
		ytdActual += r.RevenueActual
		ytdBudget += r.RevenueBudget
	}
	if ytdBudget > minDenominator {
		v := ytdActual / ytdBudget
		add(models.KPIRevenueVsBudget, v, true, percentDisplay(v))
	} else {
		add(models.KPIRevenueVsBudget, 0, false, "")
	}

	if latest.RevenueActual > minDenominator {
		margin := latest.EBITDA / latest.RevenueActual
		add(models.KPIEBITDAMargin, margin, true, percentDisplay(margin))
		gross := latest.GrossProfit / latest.RevenueActual
		add(models.KPIGrossMargin, gross, true, percentDisplay(gross))
	} else {
		add(models.KPIEBITDAMargin, 0, false, "")
		add(models.KPIGrossMargin, 0, false, "")
	}

	// Coverage is open pipeline against one quarter of budgeted revenue,
	// taken as three times the reporting month's budget.
	quarterTarget := latest.RevenueBudget * 3
	if quarterTarget > minDenominator {
		v := latest.PipelineOpen / quarterTarget
		add(models.KPIPipelineCoverage, v, true, fmt.Sprintf("%.1fx", v))
	} else {
		add(models.KPIPipelineCoverage, 0, false, "")
	}

	if len(records) >= arrGrowthMinPeriods {
		base := records[len(records)-arrGrowthMinPeriods].ARR
		if base > minDenominator {
			v := (latest.ARR - base) / base
			add(models.KPIARRGrowth, v, true, percentDisplay(v))
		} else {
			add(models.KPIARRGrowth, 0, false, "")
		}
	}

	if len(records) >= churnMinPeriods {
		window := records[len(records)-churnMinPeriods:]
		opening := window[0].ARR
		var churned float64
		for _, r := range window {
			churned += r.ChurnedARR
		}
		if opening > minDenominator {
			v := churned / opening
			add(models.KPIChurnRate, v, true, percentDisplay(v))
		} else {
			add(models.KPIChurnRate, 0, false, "")
		}
	}

	if latest.HeadcountBudget > 0 {
		v := float64(latest.HeadcountActual) / float64(latest.HeadcountBudget)
		add(models.KPIHeadcountVsBudget, v, true, percentDisplay(v))
	} else {
		add(models.KPIHeadcountVsBudget, 0, false, "")
	}

	nps := float64(latest.NPS)
	add(models.KPINPS, nps, true, fmt.Sprintf("%d", latest.NPS))

	return results, nil
}

// ytdStartIndex locates the most recent record whose calendar month is
// the fiscal-year start, at or before the reporting period.
func (e *Engine) ytdStartIndex(records []models.PeriodRecord) int {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Month == e.fyStartMonth {
			return i
		}
	}
	return 0
}

func percentDisplay(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
