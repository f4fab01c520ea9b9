package excel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/interfaces"
	"github.com/marwane019/board-report-generator/internal/models"
)

const (
	sheetSummary    = "Summary"
	sheetPL         = "P&L"
	sheetPipeline   = "Pipeline"
	sheetCustomers  = "Customers"
	sheetHeadcount  = "Headcount"
	sheetDictionary = "Data Dictionary"
)

// Service renders the board pack workbook: a KPI summary sheet plus the
// raw datasets behind it and a data dictionary.
type Service struct {
	cfg    *common.Config
	store  interfaces.DatasetStore
	logger arbor.ILogger
}

func NewService(cfg *common.Config, store interfaces.DatasetStore) *Service {
	return &Service{cfg: cfg, store: store, logger: common.GetLogger()}
}

// Render writes the workbook and returns its path. Raw data sheets come
// from the dataset store so the workbook always matches the inputs the
// KPIs were computed from.
func (s *Service) Render(pkg *models.MetricsPackage, _ *models.NarrativePackage) (string, error) {
	datasets, err := s.store.Load()
	if err != nil {
		return "", fmt.Errorf("loading datasets for workbook: %w", err)
	}

	if err := os.MkdirAll(s.cfg.Paths.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeSummary(f, pkg); err != nil {
		return "", err
	}
	if err := s.writePL(f, datasets.Financials); err != nil {
		return "", err
	}
	if err := s.writePipeline(f, datasets.Pipeline); err != nil {
		return "", err
	}
	if err := s.writeCustomers(f, datasets.Customers); err != nil {
		return "", err
	}
	if err := s.writeHeadcount(f, datasets.Headcount); err != nil {
		return "", err
	}
	if err := s.writeDictionary(f); err != nil {
		return "", err
	}

	// The default sheet is replaced by Summary.
	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex(sheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}

	path := filepath.Join(s.cfg.Paths.OutputDir, fmt.Sprintf("board_pack_%s.xlsx", pkg.Period))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving workbook: %w", err)
	}

	s.logger.Info().
		Str("run_id", pkg.RunID).
		Str("path", path).
		Msg("Board pack workbook rendered")
	return path, nil
}

func (s *Service) statusFill(f *excelize.File, status models.RAGStatus) (int, error) {
	brand := s.cfg.Report.Brand
	color := "787878"
	switch status {
	case models.StatusGreen:
		color = stripHash(brand.Green)
	case models.StatusAmber:
		color = stripHash(brand.Amber)
	case models.StatusRed:
		color = stripHash(brand.Red)
	}
	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
	})
}

func (s *Service) writeSummary(f *excelize.File, pkg *models.MetricsPackage) error {
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	f.SetCellValue(sheetSummary, "A1", fmt.Sprintf("%s - %s - %s", pkg.Company, s.cfg.Report.Title, pkg.Period))
	f.SetCellStyle(sheetSummary, "A1", "A1", titleStyle)
	f.SetCellValue(sheetSummary, "A2", fmt.Sprintf("Overall status: %s", pkg.OverallStatus()))

	headers := []string{"KPI", "Value", "Status", "Green boundary", "Amber boundary", "Direction"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(sheetSummary, cell, h)
	}

	row := 5
	for _, name := range models.AllKPINames() {
		result, ok := pkg.KPIs[name]
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), name.Title())
		if !ok {
			f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), "not available")
			row++
			continue
		}
		if result.NotComputable {
			f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), "n/a")
		} else {
			f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), result.Display)
		}

		statusCell := fmt.Sprintf("C%d", row)
		f.SetCellValue(sheetSummary, statusCell, string(result.Status))
		if style, err := s.statusFill(f, result.Status); err == nil {
			f.SetCellStyle(sheetSummary, statusCell, statusCell, style)
		}

		f.SetCellValue(sheetSummary, fmt.Sprintf("D%d", row), result.Green)
		f.SetCellValue(sheetSummary, fmt.Sprintf("E%d", row), result.Amber)
		f.SetCellValue(sheetSummary, fmt.Sprintf("F%d", row), string(result.Direction))
		row++
	}

	headingStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 11}})
	if err != nil {
		return err
	}
	heading := func(text string) {
		row += 2
		cell := fmt.Sprintf("A%d", row)
		f.SetCellValue(sheetSummary, cell, text)
		f.SetCellStyle(sheetSummary, cell, cell, headingStyle)
		row++
	}
	line := func(label string, value interface{}) {
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), label)
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), value)
		row++
	}

	heading("Pipeline by Stage")
	for _, stage := range pkg.Commercial.PipelineByStage {
		line(stage.Stage, stage.Value)
	}
	line("Open deals", pkg.Commercial.DealCount)
	line("Average deal size", pkg.Commercial.AvgDealSize)

	heading("ARR Movement")
	line("New ARR", pkg.Customer.NewARR)
	line("Churned ARR", pkg.Customer.ChurnedARR)
	line("Net ARR movement", pkg.Customer.NetARRMovement)
	line("New customers", pkg.Customer.NewCustomers)
	line("Churned customers", pkg.Customer.ChurnedCustomers)

	heading("Headcount by Department")
	f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), "Department")
	f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), "Actual")
	f.SetCellValue(sheetSummary, fmt.Sprintf("C%d", row), "Budget")
	f.SetCellValue(sheetSummary, fmt.Sprintf("D%d", row), "Variance")
	row++
	for _, dept := range pkg.Headcount.ByDepartment {
		f.SetCellValue(sheetSummary, fmt.Sprintf("A%d", row), dept.Department)
		f.SetCellValue(sheetSummary, fmt.Sprintf("B%d", row), dept.Actual)
		f.SetCellValue(sheetSummary, fmt.Sprintf("C%d", row), dept.Budget)
		f.SetCellValue(sheetSummary, fmt.Sprintf("D%d", row), dept.Variance)
		row++
	}
	line("People cost (actual)", pkg.Headcount.TotalCostActual)
	line("People cost (budget)", pkg.Headcount.TotalCostBudget)
	line("Cost per head (actual)", pkg.Headcount.CostPerHeadActual)
	line("Cost per head (budget)", pkg.Headcount.CostPerHeadBudget)

	f.SetColWidth(sheetSummary, "A", "A", 24)
	f.SetColWidth(sheetSummary, "B", "F", 16)
	return nil
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating %s sheet: %w", sheet, err)
	}
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writePL(f *excelize.File, rows []models.FinancialRow) error {
	headers := []string{"Period", "Year", "Month", "Line Type", "Line Name", "Budget GBP", "Actual GBP", "Prior Year GBP"}
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		data = append(data, []interface{}{r.Period, r.Year, r.Month, r.LineType, r.LineName, r.BudgetGBP, r.ActualGBP, r.PriorYearGBP})
	}
	return writeRows(f, sheetPL, headers, data)
}

func (s *Service) writePipeline(f *excelize.File, rows []models.PipelineRow) error {
	headers := []string{"Week Start", "Stage", "Pipeline Value GBP", "Budget Pipeline GBP", "Deal Count", "Win Rate Actual", "Win Rate Budget"}
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		data = append(data, []interface{}{r.WeekStart, r.Stage, r.PipelineValueGBP, r.BudgetPipelineGBP, r.DealCount, r.WinRateActual, r.WinRateBudget})
	}
	return writeRows(f, sheetPipeline, headers, data)
}

func (s *Service) writeCustomers(f *excelize.File, rows []models.CustomerRow) error {
	headers := []string{"Period", "Year", "Month", "ARR GBP", "ARR Budget GBP", "New ARR GBP", "Churned ARR GBP", "Churn Rate Actual", "Churn Rate Budget", "NPS Actual", "NPS Budget", "New Customers", "Churned Customers"}
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		data = append(data, []interface{}{r.Period, r.Year, r.Month, r.ARRGBP, r.ARRBudgetGBP, r.NewARRGBP, r.ChurnedARRGBP, r.ChurnRateActual, r.ChurnRateBudget, r.NPSActual, r.NPSBudget, r.NewCustomers, r.ChurnedCustomers})
	}
	return writeRows(f, sheetCustomers, headers, data)
}

func (s *Service) writeHeadcount(f *excelize.File, rows []models.HeadcountRow) error {
	headers := []string{"Period", "Year", "Month", "Department", "Headcount Budget", "Headcount Actual", "Headcount Prior Year", "Cost Budget GBP", "Cost Actual GBP"}
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		data = append(data, []interface{}{r.Period, r.Year, r.Month, r.Department, r.HeadcountBudget, r.HeadcountActual, r.HeadcountPriorYear, r.CostBudgetGBP, r.CostActualGBP})
	}
	return writeRows(f, sheetHeadcount, headers, data)
}

func (s *Service) writeDictionary(f *excelize.File) error {
	entries := [][]interface{}{
		{sheetPL, "period", "Reporting month, YYYY-MM"},
		{sheetPL, "line_type", "Revenue, COGS or OpEx"},
		{sheetPL, "line_name", "Revenue stream or cost line"},
		{sheetPL, "budget_gbp / actual_gbp / prior_year_gbp", "Monthly value in GBP"},
		{sheetPipeline, "week_start", "Monday of the snapshot week, YYYY-MM-DD"},
		{sheetPipeline, "stage", "Funnel stage of the open pipeline"},
		{sheetPipeline, "pipeline_value_gbp", "Open pipeline value in the stage at the snapshot"},
		{sheetPipeline, "win_rate_actual / win_rate_budget", "Expected win rate as a ratio"},
		{sheetCustomers, "arr_gbp", "Closing annual recurring revenue for the month"},
		{sheetCustomers, "churned_arr_gbp", "ARR lost to churn during the month"},
		{sheetCustomers, "churn_rate_actual", "Monthly churned ARR over opening ARR"},
		{sheetCustomers, "nps_actual", "Net promoter score for the month"},
		{sheetHeadcount, "department", "Organisational department"},
		{sheetHeadcount, "headcount_budget / headcount_actual", "Full-time equivalents"},
		{sheetHeadcount, "cost_budget_gbp / cost_actual_gbp", "Monthly people cost in GBP"},
	}
	return writeRows(f, sheetDictionary, []string{"Sheet", "Column", "Description"}, entries)
}

func stripHash(hex string) string {
	if len(hex) > 0 && hex[0] == '#' {
		return hex[1:]
	}
	return hex
}
