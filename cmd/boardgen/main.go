package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/marwane019/board-report-generator/internal/app"
	"github.com/marwane019/board-report-generator/internal/common"
	"github.com/marwane019/board-report-generator/internal/services/scheduler"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths

	generateData = flag.Bool("generate-data", false, "Generate synthetic datasets and exit")
	renderReport = flag.Bool("report", false, "Render the PDF board pack")
	renderExcel  = flag.Bool("excel", false, "Render the Excel workbook")
	renderDash   = flag.Bool("dashboard", false, "Render the HTML dashboard")
	distribute   = flag.Bool("distribute", false, "Distribute previously rendered artifacts")
	fullRun      = flag.Bool("full-run", false, "Run every pipeline stage once and exit")
	schedule     = flag.Bool("schedule", false, "Run on the configured cron schedule")
	runNow       = flag.Bool("run-now", false, "With -schedule, run once immediately at startup")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	common.LoadVersionFromFile()

	if *showVersion || *showVersionV {
		fmt.Printf("Boardgen version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup order: config, logger, banner.
	if len(configFiles) == 0 {
		if _, err := os.Stat("boardgen.toml"); err == nil {
			configFiles = append(configFiles, "boardgen.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner()
	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Str("company", config.Project.CompanyName).
		Msg("Boardgen starting")

	pipeline := app.NewPipeline(config)

	if *schedule {
		runScheduled(pipeline)
		return
	}

	if err := runStages(pipeline); err != nil {
		logger.Fatal().Err(err).Msg("Pipeline failed")
	}
}

// runStages executes the stages selected by flags. With no stage flags
// at all, a full run is performed.
func runStages(pipeline *app.Pipeline) error {
	ctx := context.Background()

	anyStage := *generateData || *renderReport || *renderExcel || *renderDash || *distribute
	if *fullRun || !anyStage {
		return pipeline.FullRun(ctx)
	}

	if *generateData {
		if err := pipeline.GenerateData(); err != nil {
			return err
		}
	}

	var attachments []string
	if *renderReport {
		path, err := pipeline.RenderReport()
		if err != nil {
			return err
		}
		attachments = append(attachments, path)
	}
	if *renderExcel {
		path, err := pipeline.RenderExcel()
		if err != nil {
			return err
		}
		attachments = append(attachments, path)
	}
	if *renderDash {
		path, err := pipeline.RenderDashboard()
		if err != nil {
			return err
		}
		attachments = append(attachments, path)
	}

	if *distribute {
		return pipeline.Distribute(ctx, attachments)
	}
	return nil
}

// runScheduled blocks on the cron scheduler until interrupted.
func runScheduled(pipeline *app.Pipeline) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	svc := scheduler.NewService(config, pipeline.FullRun)

	if *runNow {
		if err := pipeline.FullRun(ctx); err != nil {
			logger.Error().Err(err).Msg("Initial run failed")
		}
	}

	if err := svc.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Scheduler failed")
	}
}
