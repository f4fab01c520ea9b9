package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

const (
	financialsFile = "financials.csv"
	pipelineFile   = "pipeline.csv"
	headcountFile  = "headcount.csv"
	customersFile  = "customers.csv"
)

var (
	financialsHeader = []string{"period", "year", "month", "line_type", "line_name", "budget_gbp", "actual_gbp", "prior_year_gbp"}
	pipelineHeader   = []string{"week_start", "stage", "pipeline_value_gbp", "budget_pipeline_gbp", "deal_count", "win_rate_actual", "win_rate_budget"}
	headcountHeader  = []string{"period", "year", "month", "department", "headcount_budget", "headcount_actual", "headcount_prior_year", "cost_budget_gbp", "cost_actual_gbp"}
	customersHeader  = []string{"period", "year", "month", "arr_gbp", "arr_budget_gbp", "new_arr_gbp", "churned_arr_gbp", "churn_rate_actual", "churn_rate_budget", "nps_actual", "nps_budget", "new_customers", "churned_customers"}
)

// Store reads and writes the four raw datasets as CSV files in a single
// data directory.
type Store struct {
	dir    string
	logger arbor.ILogger
}

// NewStore creates a CSV store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir:    dir,
		logger: common.GetLogger(),
	}
}

// Save writes all four datasets, creating the data directory if needed.
func (s *Store) Save(datasets *models.Datasets) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	if err := s.saveFinancials(datasets.Financials); err != nil {
		return err
	}
	if err := s.savePipeline(datasets.Pipeline); err != nil {
		return err
	}
	if err := s.saveHeadcount(datasets.Headcount); err != nil {
		return err
	}
	if err := s.saveCustomers(datasets.Customers); err != nil {
		return err
	}

	s.logger.Info().
		Str("dir", s.dir).
		Int("rows", datasets.TotalRows()).
		Msg("Datasets saved")
	return nil
}

// Load reads all four datasets. A missing file fails the load; the
// pipeline requires every dataset to be present.
func (s *Store) Load() (*models.Datasets, error) {
	financials, err := s.loadFinancials()
	if err != nil {
		return nil, err
	}
	pipeline, err := s.loadPipeline()
	if err != nil {
		return nil, err
	}
	headcount, err := s.loadHeadcount()
	if err != nil {
		return nil, err
	}
	customers, err := s.loadCustomers()
	if err != nil {
		return nil, err
	}

	datasets := &models.Datasets{
		Financials: financials,
		Pipeline:   pipeline,
		Headcount:  headcount,
		Customers:  customers,
	}
	s.logger.Debug().
		Str("dir", s.dir).
		Int("rows", datasets.TotalRows()).
		Msg("Datasets loaded")
	return datasets, nil
}

func (s *Store) writeCSV(name string, header []string, rows [][]string) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing %s header: %w", name, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing %s row: %w", name, err)
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) readCSV(name string, header []string) ([][]string, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	for i, want := range header {
		if records[0][i] != want {
			return nil, fmt.Errorf("%s: unexpected header column %d: got %q, want %q", name, i+1, records[0][i], want)
		}
	}
	return records[1:], nil
}

func (s *Store) saveFinancials(rows []models.FinancialRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Period, strconv.Itoa(r.Year), strconv.Itoa(r.Month),
			r.LineType, r.LineName,
			formatFloat(r.BudgetGBP), formatFloat(r.ActualGBP), formatFloat(r.PriorYearGBP),
		})
	}
	return s.writeCSV(financialsFile, financialsHeader, out)
}

func (s *Store) loadFinancials() ([]models.FinancialRow, error) {
	records, err := s.readCSV(financialsFile, financialsHeader)
	if err != nil {
		return nil, err
	}
	rows := make([]models.FinancialRow, 0, len(records))
	for i, rec := range records {
		row := models.FinancialRow{Period: rec[0], LineType: rec[3], LineName: rec[4]}
		if row.Year, err = strconv.Atoi(rec[1]); err != nil {
			return nil, parseErr(financialsFile, i, "year", err)
		}
		if row.Month, err = strconv.Atoi(rec[2]); err != nil {
			return nil, parseErr(financialsFile, i, "month", err)
		}
		if row.BudgetGBP, err = strconv.ParseFloat(rec[5], 64); err != nil {
			return nil, parseErr(financialsFile, i, "budget_gbp", err)
		}
		if row.ActualGBP, err = strconv.ParseFloat(rec[6], 64); err != nil {
			return nil, parseErr(financialsFile, i, "actual_gbp", err)
		}
		if row.PriorYearGBP, err = strconv.ParseFloat(rec[7], 64); err != nil {
			return nil, parseErr(financialsFile, i, "prior_year_gbp", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) savePipeline(rows []models.PipelineRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.WeekStart, r.Stage,
			formatFloat(r.PipelineValueGBP), formatFloat(r.BudgetPipelineGBP),
			strconv.Itoa(r.DealCount),
			formatRate(r.WinRateActual), formatRate(r.WinRateBudget),
		})
	}
	return s.writeCSV(pipelineFile, pipelineHeader, out)
}

func (s *Store) loadPipeline() ([]models.PipelineRow, error) {
	records, err := s.readCSV(pipelineFile, pipelineHeader)
	if err != nil {
		return nil, err
	}
	rows := make([]models.PipelineRow, 0, len(records))
	for i, rec := range records {
		row := models.PipelineRow{WeekStart: rec[0], Stage: rec[1]}
		if row.PipelineValueGBP, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, parseErr(pipelineFile, i, "pipeline_value_gbp", err)
		}
		if row.BudgetPipelineGBP, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, parseErr(pipelineFile, i, "budget_pipeline_gbp", err)
		}
		if row.DealCount, err = strconv.Atoi(rec[4]); err != nil {
			return nil, parseErr(pipelineFile, i, "deal_count", err)
		}
		if row.WinRateActual, err = strconv.ParseFloat(rec[5], 64); err != nil {
			return nil, parseErr(pipelineFile, i, "win_rate_actual", err)
		}
		if row.WinRateBudget, err = strconv.ParseFloat(rec[6], 64); err != nil {
			return nil, parseErr(pipelineFile, i, "win_rate_budget", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) saveHeadcount(rows []models.HeadcountRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Period, strconv.Itoa(r.Year), strconv.Itoa(r.Month), r.Department,
			strconv.Itoa(r.HeadcountBudget), strconv.Itoa(r.HeadcountActual), strconv.Itoa(r.HeadcountPriorYear),
			formatFloat(r.CostBudgetGBP), formatFloat(r.CostActualGBP),
		})
	}
	return s.writeCSV(headcountFile, headcountHeader, out)
}

func (s *Store) loadHeadcount() ([]models.HeadcountRow, error) {
	records, err := s.readCSV(headcountFile, headcountHeader)
	if err != nil {
		return nil, err
	}
	rows := make([]models.HeadcountRow, 0, len(records))
	for i, rec := range records {
		row := models.HeadcountRow{Period: rec[0], Department: rec[3]}
		if row.Year, err = strconv.Atoi(rec[1]); err != nil {
			return nil, parseErr(headcountFile, i, "year", err)
		}
		if row.Month, err = strconv.Atoi(rec[2]); err != nil {
			return nil, parseErr(headcountFile, i, "month", err)
		}
		if row.HeadcountBudget, err = strconv.Atoi(rec[4]); err != nil {
			return nil, parseErr(headcountFile, i, "headcount_budget", err)
		}
		if row.HeadcountActual, err = strconv.Atoi(rec[5]); err != nil {
			return nil, parseErr(headcountFile, i, "headcount_actual", err)
		}
		if row.HeadcountPriorYear, err = strconv.Atoi(rec[6]); err != nil {
			return nil, parseErr(headcountFile, i, "headcount_prior_year", err)
		}
		if row.CostBudgetGBP, err = strconv.ParseFloat(rec[7], 64); err != nil {
			return nil, parseErr(headcountFile, i, "cost_budget_gbp", err)
		}
		if row.CostActualGBP, err = strconv.ParseFloat(rec[8], 64); err != nil {
			return nil, parseErr(headcountFile, i, "cost_actual_gbp", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) saveCustomers(rows []models.CustomerRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Period, strconv.Itoa(r.Year), strconv.Itoa(r.Month),
			formatFloat(r.ARRGBP), formatFloat(r.ARRBudgetGBP),
			formatFloat(r.NewARRGBP), formatFloat(r.ChurnedARRGBP),
			formatRate(r.ChurnRateActual), formatRate(r.ChurnRateBudget),
			strconv.Itoa(r.NPSActual), strconv.Itoa(r.NPSBudget),
			strconv.Itoa(r.NewCustomers), strconv.Itoa(r.ChurnedCustomers),
		})
	}
	return s.writeCSV(customersFile, customersHeader, out)
}

func (s *Store) loadCustomers() ([]models.CustomerRow, error) {
	records, err := s.readCSV(customersFile, customersHeader)
	if err != nil {
		return nil, err
	}
	rows := make([]models.CustomerRow, 0, len(records))
	for i, rec := range records {
		row := models.CustomerRow{Period: rec[0]}
		if row.Year, err = strconv.Atoi(rec[1]); err != nil {
			return nil, parseErr(customersFile, i, "year", err)
		}
		if row.Month, err = strconv.Atoi(rec[2]); err != nil {
			return nil, parseErr(customersFile, i, "month", err)
		}
		if row.ARRGBP, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, parseErr(customersFile, i, "arr_gbp", err)
		}
		if row.ARRBudgetGBP, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return nil, parseErr(customersFile, i, "arr_budget_gbp", err)
		}
		if row.NewARRGBP, err = strconv.ParseFloat(rec[5], 64); err != nil {
			return nil, parseErr(customersFile, i, "new_arr_gbp", err)
		}
		if row.ChurnedARRGBP, err = strconv.ParseFloat(rec[6], 64); err != nil {
			return nil, parseErr(customersFile, i, "churned_arr_gbp", err)
		}
		if row.ChurnRateActual, err = strconv.ParseFloat(rec[7], 64); err != nil {
			return nil, parseErr(customersFile, i, "churn_rate_actual", err)
		}
		if row.ChurnRateBudget, err = strconv.ParseFloat(rec[8], 64); err != nil {
			return nil, parseErr(customersFile, i, "churn_rate_budget", err)
		}
		if row.NPSActual, err = strconv.Atoi(rec[9]); err != nil {
			return nil, parseErr(customersFile, i, "nps_actual", err)
		}
		if row.NPSBudget, err = strconv.Atoi(rec[10]); err != nil {
			return nil, parseErr(customersFile, i, "nps_budget", err)
		}
		if row.NewCustomers, err = strconv.Atoi(rec[11]); err != nil {
			return nil, parseErr(customersFile, i, "new_customers", err)
		}
		if row.ChurnedCustomers, err = strconv.Atoi(rec[12]); err != nil {
			return nil, parseErr(customersFile, i, "churned_customers", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatRate keeps four decimal places so percentage rates survive the
// round trip without drift.
func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func parseErr(file string, row int, field string, err error) error {
	return fmt.Errorf("%s row %d: parsing %s: %w", file, row+1, field, err)
}
