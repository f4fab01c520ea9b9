package interfaces

import (
	"context"

	"github.com/marwane019/board-report-generator/internal/models"
)

// SimulatorService generates the synthetic company datasets.
type SimulatorService interface {
	Generate() (*models.Datasets, error)
}

// DatasetStore persists and loads the raw datasets.
type DatasetStore interface {
	Save(datasets *models.Datasets) error
	Load() (*models.Datasets, error)
}

// MetricsService aggregates raw datasets into the computed metrics
// package, including RAG-classified KPIs.
type MetricsService interface {
	Compute(datasets *models.Datasets) (*models.MetricsPackage, error)
}

// NarrativeService renders templated commentary from computed metrics.
type NarrativeService interface {
	Build(pkg *models.MetricsPackage) (*models.NarrativePackage, error)
}

// ReportRenderer produces one output artifact (PDF, Excel or HTML) and
// returns the path it wrote.
type ReportRenderer interface {
	Render(pkg *models.MetricsPackage, narrative *models.NarrativePackage) (string, error)
}

// DistributorService sends a finished report to its recipients.
type DistributorService interface {
	Distribute(ctx context.Context, pkg *models.MetricsPackage, narrative *models.NarrativePackage, attachments []string) error
}

// SchedulerService runs the pipeline on a cron schedule.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
}
