package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/interfaces"
	"github.com/marwane019/board-report-generator/internal/models"
	"github.com/marwane019/board-report-generator/internal/services/dashboard"
	"github.com/marwane019/board-report-generator/internal/services/distributor"
	"github.com/marwane019/board-report-generator/internal/services/excel"
	"github.com/marwane019/board-report-generator/internal/services/metrics"
	"github.com/marwane019/board-report-generator/internal/services/narrative"
	"github.com/marwane019/board-report-generator/internal/services/report"
	"github.com/marwane019/board-report-generator/internal/services/simulator"
	"github.com/marwane019/board-report-generator/internal/storage/csvstore"
)

// Pipeline wires the services together and runs them in stage order:
// data generation, metrics, narrative, rendering, distribution. Each
// stage persists its output before the next begins.
type Pipeline struct {
	cfg         *common.Config
	store       interfaces.DatasetStore
	simulator   interfaces.SimulatorService
	metrics     interfaces.MetricsService
	narrative   interfaces.NarrativeService
	pdf         interfaces.ReportRenderer
	excel       interfaces.ReportRenderer
	dashboard   interfaces.ReportRenderer
	distributor interfaces.DistributorService
	logger      arbor.ILogger
}

func NewPipeline(cfg *common.Config) *Pipeline {
	store := csvstore.NewStore(cfg.Paths.DataDir)
	return &Pipeline{
		cfg:         cfg,
		store:       store,
		simulator:   simulator.NewService(cfg),
		metrics:     metrics.NewService(cfg),
		narrative:   narrative.NewService(cfg),
		pdf:         report.NewService(cfg),
		excel:       excel.NewService(cfg, store),
		dashboard:   dashboard.NewService(cfg),
		distributor: distributor.NewService(cfg),
		logger:      common.GetLogger(),
	}
}

// GenerateData runs the simulator and persists the datasets.
func (p *Pipeline) GenerateData() error {
	datasets, err := p.simulator.Generate()
	if err != nil {
		return fmt.Errorf("generating datasets: %w", err)
	}
	if err := p.store.Save(datasets); err != nil {
		return fmt.Errorf("saving datasets: %w", err)
	}
	return nil
}

// compute loads the persisted datasets and produces metrics and
// narrative for the latest period.
func (p *Pipeline) compute() (*models.MetricsPackage, *models.NarrativePackage, error) {
	datasets, err := p.store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading datasets: %w", err)
	}
	pkg, err := p.metrics.Compute(datasets)
	if err != nil {
		return nil, nil, err
	}
	narr, err := p.narrative.Build(pkg)
	if err != nil {
		return nil, nil, fmt.Errorf("building narrative: %w", err)
	}
	return pkg, narr, nil
}

// RenderReport produces the PDF board pack from the persisted datasets.
func (p *Pipeline) RenderReport() (string, error) {
	pkg, narr, err := p.compute()
	if err != nil {
		return "", err
	}
	return p.pdf.Render(pkg, narr)
}

// RenderExcel produces the workbook from the persisted datasets.
func (p *Pipeline) RenderExcel() (string, error) {
	pkg, narr, err := p.compute()
	if err != nil {
		return "", err
	}
	return p.excel.Render(pkg, narr)
}

// RenderDashboard produces the HTML dashboard from the persisted datasets.
func (p *Pipeline) RenderDashboard() (string, error) {
	pkg, narr, err := p.compute()
	if err != nil {
		return "", err
	}
	return p.dashboard.Render(pkg, narr)
}

// Distribute renders nothing; it recomputes the packages and sends the
// given artifact paths over the configured channels.
func (p *Pipeline) Distribute(ctx context.Context, attachments []string) error {
	pkg, narr, err := p.compute()
	if err != nil {
		return err
	}
	return p.distributor.Distribute(ctx, pkg, narr, attachments)
}

// FullRun executes every stage in order and distributes the artifacts.
func (p *Pipeline) FullRun(ctx context.Context) error {
	started := time.Now()
	p.logger.Info().Msg("Pipeline run started")

	if err := p.GenerateData(); err != nil {
		return err
	}

	pkg, narr, err := p.compute()
	if err != nil {
		return err
	}

	var attachments []string
	for _, renderer := range []struct {
		name string
		r    interfaces.ReportRenderer
	}{
		{"pdf", p.pdf},
		{"excel", p.excel},
		{"dashboard", p.dashboard},
	} {
		path, err := renderer.r.Render(pkg, narr)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", renderer.name, err)
		}
		attachments = append(attachments, path)
	}

	if err := p.distributor.Distribute(ctx, pkg, narr, attachments); err != nil {
		return fmt.Errorf("distributing: %w", err)
	}

	p.logger.Info().
		Str("run_id", pkg.RunID).
		Str("period", pkg.Period).
		Str("overall", string(pkg.OverallStatus())).
		Dur("duration", time.Since(started)).
		Msg("Pipeline run complete")
	return nil
}
