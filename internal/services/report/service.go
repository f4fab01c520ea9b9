package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

// Service renders the board pack PDF: a branded cover, the RAG dashboard
// and the narrative body.
type Service struct {
	cfg    *common.Config
	logger arbor.ILogger
}

func NewService(cfg *common.Config) *Service {
	return &Service{cfg: cfg, logger: common.GetLogger()}
}

// Render writes the PDF for the given metrics and narrative and returns
// its path.
func (s *Service) Render(pkg *models.MetricsPackage, narrative *models.NarrativePackage) (string, error) {
	if err := os.MkdirAll(s.cfg.Paths.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)

	s.renderCover(pdf, pkg)
	s.renderDashboard(pdf, pkg)

	body := buildMarkdown(pkg, narrative)
	if err := renderMarkdown(pdf, body); err != nil {
		return "", fmt.Errorf("rendering narrative body: %w", err)
	}

	path := filepath.Join(s.cfg.Paths.OutputDir, fmt.Sprintf("board_pack_%s.pdf", pkg.Period))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := pdf.Output(f); err != nil {
		return "", fmt.Errorf("writing PDF: %w", err)
	}

	s.logger.Info().
		Str("run_id", pkg.RunID).
		Str("path", path).
		Msg("Board pack PDF rendered")
	return path, nil
}

func (s *Service) renderCover(pdf *fpdf.Fpdf, pkg *models.MetricsPackage) {
	brand := s.cfg.Report.Brand
	pdf.AddPage()

	pr, pg, pb := hexToRGB(brand.Primary)
	pdf.SetFillColor(pr, pg, pb)
	pdf.Rect(0, 0, 210, 60, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 26)
	pdf.SetXY(15, 20)
	pdf.CellFormat(180, 12, s.cfg.Report.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 14)
	pdf.SetX(15)
	pdf.CellFormat(180, 10, fmt.Sprintf("%s - %s", pkg.Company, pkg.Period), "", 1, "L", false, 0, "")

	// Overall status band under the header.
	sr, sg, sb := s.statusRGB(pkg.OverallStatus())
	pdf.SetFillColor(sr, sg, sb)
	pdf.Rect(0, 60, 210, 8, "F")
	pdf.SetFont("Arial", "B", 10)
	pdf.SetXY(15, 61)
	pdf.CellFormat(180, 6, fmt.Sprintf("Overall status: %s", pkg.OverallStatus()), "", 1, "L", false, 0, "")

	pdf.SetTextColor(hexToRGB(brand.Text))
	pdf.SetY(80)
}

// renderDashboard draws the KPI grid, one colored tile per KPI in
// board-pack order.
func (s *Service) renderDashboard(pdf *fpdf.Fpdf, pkg *models.MetricsPackage) {
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "KPI Dashboard", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	const (
		cols       = 2
		tileWidth  = 87.0
		tileHeight = 22.0
		gap        = 6.0
	)

	col := 0
	startX := pdf.GetX()
	for _, name := range models.AllKPINames() {
		result, ok := pkg.KPIs[name]
		display := "not available"
		status := models.StatusUnknown
		if ok {
			status = result.Status
			if result.Display != "" {
				display = result.Display
			}
		}

		x := startX + float64(col)*(tileWidth+gap)
		y := pdf.GetY()

		r, g, b := s.statusRGB(status)
		pdf.SetFillColor(r, g, b)
		pdf.Rect(x, y, tileWidth, tileHeight, "F")

		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 10)
		pdf.SetXY(x+3, y+3)
		pdf.CellFormat(tileWidth-6, 5, name.Title(), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "B", 14)
		pdf.SetXY(x+3, y+9)
		pdf.CellFormat(tileWidth-6, 7, display, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.SetXY(x+3, y+16)
		pdf.CellFormat(tileWidth-6, 4, string(status), "", 1, "L", false, 0, "")

		col++
		if col == cols {
			col = 0
			pdf.SetXY(startX, y+tileHeight+gap)
		} else {
			pdf.SetXY(startX, y)
		}
	}
	if col != 0 {
		pdf.SetXY(startX, pdf.GetY()+tileHeight+gap)
	}

	pdf.SetTextColor(hexToRGB(s.cfg.Report.Brand.Text))
	pdf.Ln(4)
}

func (s *Service) statusRGB(status models.RAGStatus) (int, int, int) {
	brand := s.cfg.Report.Brand
	switch status {
	case models.StatusGreen:
		return hexToRGB(brand.Green)
	case models.StatusAmber:
		return hexToRGB(brand.Amber)
	case models.StatusRed:
		return hexToRGB(brand.Red)
	default:
		return 120, 120, 120
	}
}

// hexToRGB parses "#RRGGBB"; malformed values come back mid-grey.
func hexToRGB(hex string) (int, int, int) {
	if len(hex) == 7 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 120, 120, 120
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 120, 120, 120
	}
	return int(v >> 16), int(v >> 8 & 0xFF), int(v & 0xFF)
}
