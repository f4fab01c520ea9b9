package narrative

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/models"
)

//go:embed narrative.yaml
var defaultTemplates []byte

// templateSet mirrors the structure of narrative.yaml.
type templateSet struct {
	ExecutiveSummary struct {
		Green   string `yaml:"green"`
		Amber   string `yaml:"amber"`
		Red     string `yaml:"red"`
		Unknown string `yaml:"unknown"`
	} `yaml:"executive_summary"`
	Financial struct {
		Revenue string `yaml:"revenue"`
		EBITDA  string `yaml:"ebitda"`
		YTD     string `yaml:"ytd"`
	} `yaml:"financial"`
	Commercial struct {
		PipelineStrong string `yaml:"pipeline_strong"`
		PipelineWeak   string `yaml:"pipeline_weak"`
	} `yaml:"commercial"`
	Customer struct {
		ARRGrowing   string `yaml:"arr_growing"`
		ARRDeclining string `yaml:"arr_declining"`
	} `yaml:"customer"`
	Operational struct {
		Headcount string `yaml:"headcount"`
	} `yaml:"operational"`
	Outlook struct {
		Standard string `yaml:"standard"`
	} `yaml:"outlook"`
	RiskRegister []models.RiskEntry `yaml:"risk_register"`
}

// templateData is the context every narrative template renders against.
type templateData struct {
	Company     string
	PeriodLabel string
	Financial   models.FinancialMetrics
	Commercial  models.CommercialMetrics
	Customer    models.CustomerMetrics
	Headcount   models.HeadcountMetrics
	KPIs        map[models.KPIName]models.KPIResult
	Overall     models.RAGStatus
}

// Service renders templated board commentary from computed metrics.
// Templates come from narrative.yaml in the configured templates
// directory, falling back to the embedded defaults.
type Service struct {
	cfg    *common.Config
	logger arbor.ILogger
}

func NewService(cfg *common.Config) *Service {
	return &Service{cfg: cfg, logger: common.GetLogger()}
}

// Build renders every commentary section for the metrics package.
func (s *Service) Build(pkg *models.MetricsPackage) (*models.NarrativePackage, error) {
	set, err := s.loadTemplates()
	if err != nil {
		return nil, err
	}

	data := templateData{
		Company:     pkg.Company,
		PeriodLabel: periodLabel(pkg.Period),
		Financial:   pkg.Financial,
		Commercial:  pkg.Commercial,
		Customer:    pkg.Customer,
		Headcount:   pkg.Headcount,
		KPIs:        pkg.KPIs,
		Overall:     pkg.OverallStatus(),
	}

	out := &models.NarrativePackage{Risks: set.RiskRegister}

	summaryTmpl := set.ExecutiveSummary.Unknown
	switch data.Overall {
	case models.StatusGreen:
		summaryTmpl = set.ExecutiveSummary.Green
	case models.StatusAmber:
		summaryTmpl = set.ExecutiveSummary.Amber
	case models.StatusRed:
		summaryTmpl = set.ExecutiveSummary.Red
	}
	if out.ExecutiveSummary, err = render("executive_summary", summaryTmpl, data); err != nil {
		return nil, err
	}

	financial := []string{set.Financial.Revenue, set.Financial.EBITDA, set.Financial.YTD}
	if out.Financial, err = renderJoined("financial", financial, data); err != nil {
		return nil, err
	}

	pipelineTmpl := set.Commercial.PipelineWeak
	if coverage, ok := pkg.KPIs[models.KPIPipelineCoverage]; ok && coverage.Status == models.StatusGreen {
		pipelineTmpl = set.Commercial.PipelineStrong
	}
	if out.Commercial, err = render("commercial", pipelineTmpl, data); err != nil {
		return nil, err
	}

	customerTmpl := set.Customer.ARRDeclining
	if pkg.Customer.ARRGrowthYoY >= 0 {
		customerTmpl = set.Customer.ARRGrowing
	}
	if out.Customer, err = render("customer", customerTmpl, data); err != nil {
		return nil, err
	}

	if out.Operational, err = render("operational", set.Operational.Headcount, data); err != nil {
		return nil, err
	}
	if out.Outlook, err = render("outlook", set.Outlook.Standard, data); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("run_id", pkg.RunID).
		Str("overall", string(data.Overall)).
		Int("risks", len(out.Risks)).
		Msg("Narrative package built")
	return out, nil
}

func (s *Service) loadTemplates() (*templateSet, error) {
	raw := defaultTemplates
	if s.cfg.Paths.TemplatesDir != "" {
		path := filepath.Join(s.cfg.Paths.TemplatesDir, "narrative.yaml")
		if data, err := os.ReadFile(path); err == nil {
			raw = data
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading narrative templates: %w", err)
		}
	}

	var set templateSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parsing narrative templates: %w", err)
	}
	return &set, nil
}

func render(name, text string, data templateData) (string, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs()).Parse(strings.TrimSpace(text))
	if err != nil {
		return "", fmt.Errorf("parsing %s template: %w", name, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return b.String(), nil
}

func renderJoined(name string, texts []string, data templateData) (string, error) {
	parts := make([]string, 0, len(texts))
	for i, text := range texts {
		part, err := render(fmt.Sprintf("%s_%d", name, i), text, data)
		if err != nil {
			return "", err
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " "), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"gbp":        GBP,
		"pct":        Percent,
		"pp":         PercentagePoints,
		"aboveBelow": AboveBelow,
	}
}

// GBP formats a sterling amount with a scale suffix.
func GBP(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("£%.1fm", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("£%.0fk", v/1_000)
	default:
		return fmt.Sprintf("£%.0f", v)
	}
}

// Percent formats a ratio as a one-decimal percentage.
func Percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// PercentagePoints formats a signed ratio delta in percentage points.
func PercentagePoints(delta float64) string {
	return fmt.Sprintf("%+.1fpp", delta*100)
}

// AboveBelow describes a ratio against parity, e.g. "2.7% below".
func AboveBelow(ratio float64) string {
	diff := (ratio - 1) * 100
	if diff >= 0 {
		return fmt.Sprintf("%.1f%% above", diff)
	}
	return fmt.Sprintf("%.1f%% below", -diff)
}

// periodLabel turns "2025-06" into "June 2025".
func periodLabel(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return period
	}
	return t.Format("January 2006")
}
