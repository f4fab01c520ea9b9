package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

// pipelineStages in funnel order, with the approximate share of open
// pipeline value sitting in each stage.
var pipelineStages = []struct {
	name  string
	share float64
}{
	{"Qualified", 0.40},
	{"Proposal", 0.30},
	{"Negotiation", 0.20},
	{"Contracting", 0.10},
}

// Service generates synthetic company datasets from a seeded RNG. The
// same seed and end date always produce identical output.
type Service struct {
	cfg    *common.Config
	end    time.Time
	logger arbor.ILogger
}

// NewService creates a simulator whose history ends at the last complete
// calendar month.
func NewService(cfg *common.Config) *Service {
	now := time.Now()
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return NewServiceAt(cfg, end)
}

// NewServiceAt creates a simulator whose history ends at the given month.
func NewServiceAt(cfg *common.Config, end time.Time) *Service {
	return &Service{
		cfg:    cfg,
		end:    time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC),
		logger: common.GetLogger(),
	}
}

// Generate produces all four datasets. A weak quarter is injected into
// the recent past so downstream classification exercises amber and red
// paths on realistic data.
func (s *Service) Generate() (*models.Datasets, error) {
	sim := s.cfg.Simulation
	if sim.MonthsHistory < 1 {
		return nil, fmt.Errorf("months_history must be at least 1, got %d", sim.MonthsHistory)
	}

	rng := rand.New(rand.NewSource(sim.Seed))
	months := s.monthRange(sim.MonthsHistory)

	// Three soft months ending three months before the reporting period.
	weakStart := len(months) - 6
	weakEnd := len(months) - 4
	isWeak := func(i int) bool { return weakStart >= 0 && i >= weakStart && i <= weakEnd }

	datasets := &models.Datasets{
		Financials: s.generateFinancials(rng, months, isWeak),
		Pipeline:   s.generatePipeline(rng, months, isWeak),
		Headcount:  s.generateHeadcount(rng, months),
		Customers:  s.generateCustomers(rng, months, isWeak),
	}

	s.logger.Info().
		Int("months", len(months)).
		Str("first_period", months[0].Format("2006-01")).
		Str("last_period", months[len(months)-1].Format("2006-01")).
		Int("rows", datasets.TotalRows()).
		Msg("Synthetic datasets generated")
	return datasets, nil
}

func (s *Service) monthRange(count int) []time.Time {
	months := make([]time.Time, count)
	for i := 0; i < count; i++ {
		months[i] = s.end.AddDate(0, i-(count-1), 0)
	}
	return months
}

// monthlyRevenueBudget applies annual growth compounded monthly and the
// seasonality curve for the calendar month.
func (s *Service) monthlyRevenueBudget(monthIndex int, month time.Month) float64 {
	sim := s.cfg.Simulation
	base := sim.AnnualRevenueBudget / 12.0
	growth := math.Pow(1+sim.AnnualRevenueGrowthRate, float64(monthIndex)/12.0)
	return base * growth * sim.Seasonality[int(month)-1]
}

func (s *Service) generateFinancials(rng *rand.Rand, months []time.Time, isWeak func(int) bool) []models.FinancialRow {
	sim := s.cfg.Simulation
	streams := sortedKeys(sim.RevenueMix)
	opexLines := sortedKeys(sim.OpexBudgetPct)

	var rows []models.FinancialRow
	for i, m := range months {
		totalBudget := s.monthlyRevenueBudget(i, m.Month())
		period := m.Format("2006-01")

		performance := 1 + rng.NormFloat64()*0.04
		if isWeak(i) {
			performance *= 0.88
		}

		for _, stream := range streams {
			streamBudget := totalBudget * sim.RevenueMix[stream]
			streamActual := streamBudget * performance * (1 + rng.NormFloat64()*0.02)
			priorYear := streamBudget / (1 + sim.AnnualRevenueGrowthRate) * (1 + rng.NormFloat64()*0.03)

			rows = append(rows, models.FinancialRow{
				Period: period, Year: m.Year(), Month: int(m.Month()),
				LineType: "Revenue", LineName: stream,
				BudgetGBP: round2(streamBudget), ActualGBP: round2(streamActual), PriorYearGBP: round2(priorYear),
			})

			cogsRate := sim.COGSRates[stream]
			rows = append(rows, models.FinancialRow{
				Period: period, Year: m.Year(), Month: int(m.Month()),
				LineType: "COGS", LineName: stream,
				BudgetGBP:    round2(streamBudget * cogsRate),
				ActualGBP:    round2(streamActual * cogsRate * (1 + rng.NormFloat64()*0.02)),
				PriorYearGBP: round2(priorYear * cogsRate),
			})
		}

		for _, line := range opexLines {
			lineBudget := totalBudget * sim.OpexBudgetPct[line]
			rows = append(rows, models.FinancialRow{
				Period: period, Year: m.Year(), Month: int(m.Month()),
				LineType: "OpEx", LineName: line,
				BudgetGBP:    round2(lineBudget),
				ActualGBP:    round2(lineBudget * (1 + rng.NormFloat64()*0.03)),
				PriorYearGBP: round2(lineBudget / (1 + sim.AnnualRevenueGrowthRate)),
			})
		}
	}
	return rows
}

func (s *Service) generatePipeline(rng *rand.Rand, months []time.Time, isWeak func(int) bool) []models.PipelineRow {
	sim := s.cfg.Simulation

	var rows []models.PipelineRow
	for i, m := range months {
		// Open pipeline roughly tracks three months of budgeted revenue.
		targetOpen := s.monthlyRevenueBudget(i, m.Month()) * 3

		for _, week := range mondaysIn(m) {
			weekFactor := 1 + rng.NormFloat64()*0.06
			if isWeak(i) {
				weekFactor *= 0.78
			}
			for _, stage := range pipelineStages {
				value := targetOpen * stage.share * weekFactor * (1 + rng.NormFloat64()*0.04)
				deals := int(math.Max(1, math.Round(value/sim.AvgDealSizeBudget)))
				rows = append(rows, models.PipelineRow{
					WeekStart:         week.Format("2006-01-02"),
					Stage:             stage.name,
					PipelineValueGBP:  round2(value),
					BudgetPipelineGBP: round2(targetOpen * stage.share),
					DealCount:         deals,
					WinRateActual:     round4(clamp(sim.PipelineWinRateBudget*(1+rng.NormFloat64()*0.12), 0.05, 0.60)),
					WinRateBudget:     round4(sim.PipelineWinRateBudget),
				})
			}
		}
	}
	return rows
}

func (s *Service) generateHeadcount(rng *rand.Rand, months []time.Time) []models.HeadcountRow {
	sim := s.cfg.Simulation
	departments := sortedKeys(sim.HeadcountBudget)

	var rows []models.HeadcountRow
	for i, m := range months {
		// Teams ramp toward plan over the history window.
		ramp := 0.75 + 0.25*float64(i)/float64(len(months))
		for _, dept := range departments {
			budget := sim.HeadcountBudget[dept]
			actual := int(math.Round(float64(budget)*ramp + rng.NormFloat64()*1.2))
			if actual < 1 {
				actual = 1
			}
			priorYear := int(math.Round(float64(actual) * 0.85))
			if priorYear < 1 {
				priorYear = 1
			}

			salary := sim.AvgSalaryByDept[dept]
			monthlyCostBudget := float64(budget) * salary / 12.0
			rows = append(rows, models.HeadcountRow{
				Period: m.Format("2006-01"), Year: m.Year(), Month: int(m.Month()),
				Department:         dept,
				HeadcountBudget:    budget,
				HeadcountActual:    actual,
				HeadcountPriorYear: priorYear,
				CostBudgetGBP:      round2(monthlyCostBudget),
				CostActualGBP:      round2(float64(actual) * salary / 12.0 * (1 + rng.NormFloat64()*0.02)),
			})
		}
	}
	return rows
}

func (s *Service) generateCustomers(rng *rand.Rand, months []time.Time, isWeak func(int) bool) []models.CustomerRow {
	sim := s.cfg.Simulation

	// Walk ARR back so the latest month lands near starting_arr scaled
	// forward by budget growth over the window.
	monthlyGrowth := math.Pow(1+sim.AnnualRevenueGrowthRate, 1.0/12.0)
	arr := sim.StartingARR / math.Pow(monthlyGrowth, float64(len(months)))
	arrBudget := arr

	var rows []models.CustomerRow
	for i, m := range months {
		churnRate := sim.MonthlyChurnRateBudget * (1 + rng.NormFloat64()*0.15)
		newARR := sim.MonthlyNewARRBudget * (1 + rng.NormFloat64()*0.10)
		if isWeak(i) {
			churnRate *= 1.6
			newARR *= 0.70
		}
		churnRate = clamp(churnRate, 0, 0.10)

		churned := arr * churnRate
		arr = arr + newARR - churned
		arrBudget = arrBudget + sim.MonthlyNewARRBudget - arrBudget*sim.MonthlyChurnRateBudget

		nps := sim.NPSTarget + int(math.Round(rng.NormFloat64()*4))
		if isWeak(i) {
			nps -= 8
		}

		avgDeal := math.Max(sim.AvgDealSizeBudget, 1)
		rows = append(rows, models.CustomerRow{
			Period: m.Format("2006-01"), Year: m.Year(), Month: int(m.Month()),
			ARRGBP:           round2(arr),
			ARRBudgetGBP:     round2(arrBudget),
			NewARRGBP:        round2(newARR),
			ChurnedARRGBP:    round2(churned),
			ChurnRateActual:  round4(churnRate),
			ChurnRateBudget:  round4(sim.MonthlyChurnRateBudget),
			NPSActual:        nps,
			NPSBudget:        sim.NPSTarget,
			NewCustomers:     int(math.Max(1, math.Round(newARR/avgDeal))),
			ChurnedCustomers: int(math.Round(churned / avgDeal)),
		})
	}
	return rows
}

// mondaysIn lists every Monday falling inside the given month.
func mondaysIn(month time.Time) []time.Time {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	d := first
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	var mondays []time.Time
	for d.Month() == month.Month() {
		mondays = append(mondays, d)
		d = d.AddDate(0, 0, 7)
	}
	return mondays
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
