package dashboard

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

//go:embed dashboard.html
var dashboardTemplate string

// Service renders the self-contained HTML dashboard. Charts are drawn
// client side with Plotly; trend data is inlined as JSON.
type Service struct {
	cfg    *common.Config
	logger arbor.ILogger
}

func NewService(cfg *common.Config) *Service {
	return &Service{cfg: cfg, logger: common.GetLogger()}
}

type kpiTile struct {
	Title   string
	Display string
	Status  string
	Color   string
}

type trendSeries struct {
	Periods []string  `json:"periods"`
	Actual  []float64 `json:"actual"`
	Budget  []float64 `json:"budget"`
}

type stageSeries struct {
	Stages []string  `json:"stages"`
	Values []float64 `json:"values"`
}

type viewData struct {
	Company    string
	Period     string
	Title      string
	Overall    string
	Brand      common.BrandConfig
	Tiles      []kpiTile
	Commercial models.CommercialMetrics
	Customer   models.CustomerMetrics
	Headcount  models.HeadcountMetrics
	Narrative  *models.NarrativePackage
	Trends     template.JS
	Pipeline   template.JS
}

// Render writes the dashboard HTML and returns its path.
func (s *Service) Render(pkg *models.MetricsPackage, narrative *models.NarrativePackage) (string, error) {
	if err := os.MkdirAll(s.cfg.Paths.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	trends, err := json.Marshal(map[string]trendSeries{
		"revenue": toSeries(pkg.RevenueTrend),
		"arr":     toSeries(pkg.ARRTrend),
		"ebitda":  toSeries(pkg.EBITDATrend),
	})
	if err != nil {
		return "", fmt.Errorf("encoding trend data: %w", err)
	}

	stages := stageSeries{}
	for _, stage := range pkg.Commercial.PipelineByStage {
		stages.Stages = append(stages.Stages, stage.Stage)
		stages.Values = append(stages.Values, stage.Value)
	}
	pipeline, err := json.Marshal(stages)
	if err != nil {
		return "", fmt.Errorf("encoding pipeline stage data: %w", err)
	}

	data := viewData{
		Company:    pkg.Company,
		Period:     pkg.Period,
		Title:      s.cfg.Report.Title,
		Overall:    string(pkg.OverallStatus()),
		Brand:      s.cfg.Report.Brand,
		Tiles:      s.tiles(pkg),
		Commercial: pkg.Commercial,
		Customer:   pkg.Customer,
		Headcount:  pkg.Headcount,
		Narrative:  narrative,
		Trends:     template.JS(trends),
		Pipeline:   template.JS(pipeline),
	}

	funcs := template.FuncMap{
		"pct": func(ratio float64) string { return fmt.Sprintf("%.1f%%", ratio*100) },
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).Parse(dashboardTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing dashboard template: %w", err)
	}

	path := filepath.Join(s.cfg.Paths.OutputDir, fmt.Sprintf("dashboard_%s.html", pkg.Period))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("rendering dashboard: %w", err)
	}

	s.logger.Info().
		Str("run_id", pkg.RunID).
		Str("path", path).
		Msg("Dashboard rendered")
	return path, nil
}

func (s *Service) tiles(pkg *models.MetricsPackage) []kpiTile {
	brand := s.cfg.Report.Brand
	statusColor := func(status models.RAGStatus) string {
		switch status {
		case models.StatusGreen:
			return brand.Green
		case models.StatusAmber:
			return brand.Amber
		case models.StatusRed:
			return brand.Red
		default:
			return "#787878"
		}
	}

	tiles := make([]kpiTile, 0, len(models.AllKPINames()))
	for _, name := range models.AllKPINames() {
		tile := kpiTile{Title: name.Title(), Display: "not available", Status: string(models.StatusUnknown), Color: "#787878"}
		if result, ok := pkg.KPIs[name]; ok {
			tile.Status = string(result.Status)
			tile.Color = statusColor(result.Status)
			if result.Display != "" {
				tile.Display = result.Display
			}
		}
		tiles = append(tiles, tile)
	}
	return tiles
}

func toSeries(points []models.TrendPoint) trendSeries {
	s := trendSeries{
		Periods: make([]string, 0, len(points)),
		Actual:  make([]float64, 0, len(points)),
		Budget:  make([]float64, 0, len(points)),
	}
	for _, p := range points {
		s.Periods = append(s.Periods, p.Period)
		s.Actual = append(s.Actual, p.Actual)
		s.Budget = append(s.Budget, p.Budget)
	}
	return s
}
