package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/marwane019/board-report-generator/internal/models"
)

// periodAccumulator collects one month's figures while rows are folded in.
type periodAccumulator struct {
	record        models.PeriodRecord
	cogsActual    float64
	cogsBudget    float64
	opexActual    float64
	opexBudget    float64
	winRateWeight float64
	winRateSum    float64
	winRateBudget float64
	latestWeek    string
	haveFinancial bool
	haveCustomer  bool
	haveHeadcount bool
}

// aggregate folds the four raw datasets into one ordered monthly series.
// Every month present in the financials must also appear in the customer
// and headcount datasets.
func aggregate(datasets *models.Datasets) ([]models.PeriodRecord, error) {
	if datasets == nil || len(datasets.Financials) == 0 {
		return nil, fmt.Errorf("financial dataset is empty")
	}

	byPeriod := make(map[string]*periodAccumulator)
	acc := func(period string, year, month int) *periodAccumulator {
		a, ok := byPeriod[period]
		if !ok {
			a = &periodAccumulator{record: models.PeriodRecord{Period: period, Year: year, Month: month}}
			byPeriod[period] = a
		}
		return a
	}

	for _, row := range datasets.Financials {
		a := acc(row.Period, row.Year, row.Month)
		a.haveFinancial = true
		switch row.LineType {
		case "Revenue":
			a.record.RevenueActual += row.ActualGBP
			a.record.RevenueBudget += row.BudgetGBP
			a.record.RevenuePriorYr += row.PriorYearGBP
		case "COGS":
			a.cogsActual += row.ActualGBP
			a.cogsBudget += row.BudgetGBP
		case "OpEx":
			a.opexActual += row.ActualGBP
			a.opexBudget += row.BudgetGBP
		default:
			return nil, fmt.Errorf("financials: unknown line_type %q in %s", row.LineType, row.Period)
		}
	}

	// Open pipeline for a month is the latest weekly snapshot inside it,
	// summed across stages. Win rates are value-weighted over that week.
	for _, row := range datasets.Pipeline {
		period := row.WeekStart
		if len(period) >= 7 {
			period = period[:7]
		}
		a, ok := byPeriod[period]
		if !ok {
			continue
		}
		switch {
		case row.WeekStart > a.latestWeek:
			a.latestWeek = row.WeekStart
			a.record.PipelineOpen = row.PipelineValueGBP
			a.winRateWeight = row.PipelineValueGBP
			a.winRateSum = row.WinRateActual * row.PipelineValueGBP
			a.winRateBudget = row.WinRateBudget
		case row.WeekStart == a.latestWeek:
			a.record.PipelineOpen += row.PipelineValueGBP
			a.winRateWeight += row.PipelineValueGBP
			a.winRateSum += row.WinRateActual * row.PipelineValueGBP
		}
	}

	for _, row := range datasets.Customers {
		a, ok := byPeriod[row.Period]
		if !ok {
			continue
		}
		a.haveCustomer = true
		a.record.ARR = row.ARRGBP
		a.record.ARRBudget = row.ARRBudgetGBP
		a.record.ChurnedARR = row.ChurnedARRGBP
		a.record.NPS = row.NPSActual
	}

	for _, row := range datasets.Headcount {
		a, ok := byPeriod[row.Period]
		if !ok {
			continue
		}
		a.haveHeadcount = true
		a.record.HeadcountActual += row.HeadcountActual
		a.record.HeadcountBudget += row.HeadcountBudget
	}

	periods := make([]string, 0, len(byPeriod))
	for p := range byPeriod {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	var missing []string
	records := make([]models.PeriodRecord, 0, len(periods))
	for _, p := range periods {
		a := byPeriod[p]
		if !a.haveCustomer || !a.haveHeadcount {
			missing = append(missing, p)
			continue
		}
		a.record.GrossProfit = a.record.RevenueActual - a.cogsActual
		a.record.EBITDA = a.record.GrossProfit - a.opexActual
		a.record.EBITDABudget = a.record.RevenueBudget - a.cogsBudget - a.opexBudget
		if a.winRateWeight > minDenominator {
			a.record.WinRateActual = a.winRateSum / a.winRateWeight
		}
		a.record.WinRateBudget = a.winRateBudget
		records = append(records, a.record)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("periods missing customer or headcount data: %s", strings.Join(missing, ", "))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no complete periods after aggregation")
	}
	return records, nil
}
