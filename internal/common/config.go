package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/marwane019/board-report-generator/internal/models"
)

// Config is the full application configuration, loaded from TOML files
// with BOARDGEN_* environment overrides applied on top.
type Config struct {
	Environment  string             `toml:"environment"`
	Project      ProjectConfig      `toml:"project"`
	Paths        PathsConfig        `toml:"paths"`
	Simulation   SimulationConfig   `toml:"simulation"`
	Thresholds   models.Thresholds  `toml:"thresholds"`
	Report       ReportConfig       `toml:"report"`
	Distribution DistributionConfig `toml:"distribution"`
	Scheduler    SchedulerConfig    `toml:"scheduler"`
	Logging      LoggingConfig      `toml:"logging"`
}

type ProjectConfig struct {
	CompanyName          string `toml:"company_name" validate:"required"`
	FiscalYearStartMonth int    `toml:"fiscal_year_start_month" validate:"gte=1,lte=12"`
}

type PathsConfig struct {
	DataDir      string `toml:"data_dir" validate:"required"`
	OutputDir    string `toml:"output_dir" validate:"required"`
	TemplatesDir string `toml:"templates_dir" validate:"required"`
	LogDir       string `toml:"log_dir"`
}

// SimulationConfig drives the synthetic data generator. Budget parameters
// here are also the source of budget columns in the generated datasets.
type SimulationConfig struct {
	Seed                    int64              `toml:"seed"`
	MonthsHistory           int                `toml:"months_history" validate:"gte=1"`
	AnnualRevenueBudget     float64            `toml:"annual_revenue_budget" validate:"gt=0"`
	AnnualRevenueGrowthRate float64            `toml:"annual_revenue_growth_rate"`
	RevenueMix              map[string]float64 `toml:"revenue_mix" validate:"required"`
	COGSRates               map[string]float64 `toml:"cogs_rates" validate:"required"`
	OpexBudgetPct           map[string]float64 `toml:"opex_budget_pct" validate:"required"`
	Seasonality             []float64          `toml:"seasonality" validate:"len=12"`
	WeeklyNewPipelineBudget float64            `toml:"weekly_new_pipeline_budget"`
	PipelineWinRateBudget   float64            `toml:"pipeline_win_rate_budget"`
	AvgDealSizeBudget       float64            `toml:"avg_deal_size_budget"`
	HeadcountBudget         map[string]int     `toml:"headcount_budget" validate:"required"`
	AvgSalaryByDept         map[string]float64 `toml:"avg_salary_by_dept"`
	StartingARR             float64            `toml:"starting_arr" validate:"gt=0"`
	MonthlyChurnRateBudget  float64            `toml:"monthly_churn_rate_budget"`
	MonthlyNewARRBudget     float64            `toml:"monthly_new_arr_budget"`
	NPSTarget               int                `toml:"nps_target"`
}

type BrandConfig struct {
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
	Green     string `toml:"green"`
	Amber     string `toml:"amber"`
	Red       string `toml:"red"`
	Text      string `toml:"text"`
}

type ReportConfig struct {
	Title string      `toml:"title"`
	Brand BrandConfig `toml:"brand"`
}

type DistributionConfig struct {
	EmailRecipients []string `toml:"email_recipients"`
	EmailSubject    string   `toml:"email_subject"`
	SlackChannel    string   `toml:"slack_channel"`
	SlackUsername   string   `toml:"slack_username"`
	SlackIconEmoji  string   `toml:"slack_icon_emoji"`
}

type SchedulerConfig struct {
	Schedule   string `toml:"schedule" validate:"required"`
	Timezone   string `toml:"timezone"`
	MaxRetries int    `toml:"max_retries" validate:"gte=0"`
	RetryDelay string `toml:"retry_delay"`
	HealthPort int    `toml:"health_port" validate:"gte=0,lte=65535"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

// NewDefaultConfig returns a configuration with workable defaults so the
// binary runs without any config file present.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Project: ProjectConfig{
			CompanyName:          "Meridian Analytics Ltd",
			FiscalYearStartMonth: 1,
		},
		Paths: PathsConfig{
			DataDir:      "data",
			OutputDir:    "output",
			TemplatesDir: "templates",
			LogDir:       "logs",
		},
		Simulation: SimulationConfig{
			Seed:                    42,
			MonthsHistory:           36,
			AnnualRevenueBudget:     12_000_000,
			AnnualRevenueGrowthRate: 0.18,
			RevenueMix: map[string]float64{
				"Subscription":          0.62,
				"Professional Services": 0.28,
				"Other":                 0.10,
			},
			COGSRates: map[string]float64{
				"Subscription":          0.18,
				"Professional Services": 0.55,
				"Other":                 0.35,
			},
			OpexBudgetPct: map[string]float64{
				"Sales & Marketing": 0.24,
				"R&D":               0.18,
				"G&A":               0.12,
			},
			Seasonality: []float64{
				0.92, 0.94, 1.02, 0.98, 1.00, 1.05,
				0.96, 0.90, 1.04, 1.06, 1.03, 1.10,
			},
			WeeklyNewPipelineBudget: 450_000,
			PipelineWinRateBudget:   0.24,
			AvgDealSizeBudget:       38_000,
			HeadcountBudget: map[string]int{
				"Engineering":       34,
				"Sales & Marketing": 22,
				"Customer Success":  12,
				"G&A":               9,
			},
			AvgSalaryByDept: map[string]float64{
				"Engineering":       78_000,
				"Sales & Marketing": 64_000,
				"Customer Success":  52_000,
				"G&A":               58_000,
			},
			StartingARR:            7_800_000,
			MonthlyChurnRateBudget: 0.010,
			MonthlyNewARRBudget:    220_000,
			NPSTarget:              45,
		},
		Thresholds: models.Thresholds{
			models.KPIRevenueVsBudget:   {Green: 0.97, Amber: 0.92, Direction: models.HigherIsBetter},
			models.KPIEBITDAMargin:      {Green: 0.12, Amber: 0.08, Direction: models.HigherIsBetter},
			models.KPIGrossMargin:       {Green: 0.68, Amber: 0.62, Direction: models.HigherIsBetter},
			models.KPIPipelineCoverage:  {Green: 3.0, Amber: 2.2, Direction: models.HigherIsBetter},
			models.KPIARRGrowth:         {Green: 0.15, Amber: 0.08, Direction: models.HigherIsBetter},
			models.KPIChurnRate:         {Green: 0.10, Amber: 0.15, Direction: models.LowerIsBetter},
			models.KPIHeadcountVsBudget: {Green: 1.05, Amber: 1.10, Direction: models.LowerIsBetter},
			models.KPINPS:               {Green: 40, Amber: 25, Direction: models.HigherIsBetter},
		},
		Report: ReportConfig{
			Title: "Monthly Board Pack",
			Brand: BrandConfig{
				Primary:   "#1F3A5F",
				Secondary: "#4F6D8F",
				Green:     "#2E7D32",
				Amber:     "#F9A825",
				Red:       "#C62828",
				Text:      "#212121",
			},
		},
		Distribution: DistributionConfig{
			EmailSubject:   "Monthly Board Pack",
			SlackChannel:   "#board-reports",
			SlackUsername:  "Boardgen",
			SlackIconEmoji: ":bar_chart:",
		},
		Scheduler: SchedulerConfig{
			Schedule:   "0 7 1 * *",
			Timezone:   "Europe/London",
			MaxRetries: 3,
			RetryDelay: "5m",
			HealthPort: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
	}
}

// LoadFromFiles loads configuration by layering TOML files over the
// defaults in order, then applying environment overrides. Missing files
// are skipped; unreadable or invalid files fail the load.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps BOARDGEN_* environment variables onto config
// fields so container deployments can adjust settings without a file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BOARDGEN_ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("BOARDGEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BOARDGEN_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("BOARDGEN_OUTPUT_DIR"); v != "" {
		c.Paths.OutputDir = v
	}
	if v := os.Getenv("BOARDGEN_TEMPLATES_DIR"); v != "" {
		c.Paths.TemplatesDir = v
	}
	if v := os.Getenv("BOARDGEN_SCHEDULE"); v != "" {
		c.Scheduler.Schedule = v
	}
	if v := os.Getenv("BOARDGEN_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Scheduler.HealthPort = port
		}
	}
	if v := os.Getenv("BOARDGEN_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Simulation.Seed = seed
		}
	}
	if v := os.Getenv("BOARDGEN_EMAIL_RECIPIENTS"); v != "" {
		parts := strings.Split(v, ",")
		recipients := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				recipients = append(recipients, p)
			}
		}
		c.Distribution.EmailRecipients = recipients
	}
}

// Validate checks structural constraints, threshold ordering and the
// cron schedule.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, name := range models.AllKPINames() {
		if _, ok := c.Thresholds[name]; !ok {
			return fmt.Errorf("invalid configuration: missing threshold for %s", name)
		}
	}

	if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Scheduler.RetryDelay != "" {
		if _, err := time.ParseDuration(c.Scheduler.RetryDelay); err != nil {
			return fmt.Errorf("invalid configuration: retry_delay: %w", err)
		}
	}

	var mixTotal float64
	for _, share := range c.Simulation.RevenueMix {
		mixTotal += share
	}
	if mixTotal < 0.999 || mixTotal > 1.001 {
		return fmt.Errorf("invalid configuration: revenue_mix shares sum to %.4f, want 1.0", mixTotal)
	}

	return nil
}

// RetryDelayDuration parses the scheduler retry delay, defaulting to five
// minutes when unset.
func (c *Config) RetryDelayDuration() time.Duration {
	if c.Scheduler.RetryDelay == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(c.Scheduler.RetryDelay)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("schedule is empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}
