package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marwane019/board-report-generator/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Paths.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Paths.OutputDir = filepath.Join(t.TempDir(), "output")
	cfg.Paths.TemplatesDir = ""
	cfg.Paths.LogDir = ""
	return cfg
}

func TestFullRunProducesAllArtifacts(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SLACK_WEBHOOK_URL", "")

	cfg := testConfig(t)
	pipeline := NewPipeline(cfg)

	require.NoError(t, pipeline.FullRun(context.Background()))

	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, " ")
	assert.Contains(t, joined, ".pdf")
	assert.Contains(t, joined, ".xlsx")
	assert.Contains(t, joined, ".html")

	// Raw datasets persisted before rendering.
	for _, f := range []string{"financials.csv", "pipeline.csv", "headcount.csv", "customers.csv"} {
		_, err := os.Stat(filepath.Join(cfg.Paths.DataDir, f))
		assert.NoError(t, err, f)
	}
}

func TestStagesRequireGeneratedData(t *testing.T) {
	cfg := testConfig(t)
	pipeline := NewPipeline(cfg)

	_, err := pipeline.RenderReport()
	assert.Error(t, err)

	require.NoError(t, pipeline.GenerateData())

	path, err := pipeline.RenderReport()
	require.NoError(t, err)
	assert.FileExists(t, path)
}
