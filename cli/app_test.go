package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dashboard = `
adapters: [term]
log:
  level: error
charts:
  - id: visits
    type: line
    data:
      "2021-01-01": 3
      "2021-01-02": 5
  - id: share
    type: pie
    url: share.csv
`

func writeDashboard(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "share.csv"), []byte("label,value\nweb,3\napp,1\n"), 0o600))
	return dir, path
}

func run(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = New().WithOutput(&out, &errOut).ExecuteWithArgs(ctx, args)
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "chartkit version")
}

func TestHelpListsCommands(t *testing.T) {
	out, _, err := run(t, context.Background(), "--help")
	require.NoError(t, err)
	for _, want := range []string{"render", "watch", "validate", "adapters"} {
		assert.Contains(t, out, want)
	}
}

func TestAdapters(t *testing.T) {
	out, _, err := run(t, context.Background(), "adapters")
	require.NoError(t, err)
	assert.Contains(t, out, "gviz")
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, "term     LineChart, PieChart")
	assert.Contains(t, out, "xlsx")
}

func TestValidate(t *testing.T) {
	_, path := writeDashboard(t, dashboard)

	out, _, err := run(t, context.Background(), "validate", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Dashboard is valid: 2 charts")

	_, bad := writeDashboard(t, "adapters: [plotly]\ncharts:\n  - type: line\n    data: []\n")
	_, _, err = run(t, context.Background(), "validate", "-c", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adapter")

	_, _, err = run(t, context.Background(), "validate")
	assert.Error(t, err)
}

func TestRenderWritesFiles(t *testing.T) {
	dir, path := writeDashboard(t, dashboard)
	out := filepath.Join(dir, "out")

	_, _, err := run(t, context.Background(), "render", "-c", path, "-o", out)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "visits.txt"))
	share, err := os.ReadFile(filepath.Join(out, "share.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(share), "75.0%")
}

func TestRenderReportsFailures(t *testing.T) {
	dir, path := writeDashboard(t, dashboard+`  - id: plan
    type: timeline
    data: [["a", "2021-01-01", "2021-01-02"]]
`)
	out := filepath.Join(dir, "out")

	_, _, err := run(t, context.Background(), "render", "-c", path, "-o", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter found for Timeline")

	assert.FileExists(t, filepath.Join(out, "visits.txt"))
	msg, err := os.ReadFile(filepath.Join(out, "plan.error.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(msg), "Error Loading Chart")
}

func TestRenderToStdout(t *testing.T) {
	_, path := writeDashboard(t, dashboard)

	out, _, err := run(t, context.Background(), "render", "-c", path, "--stdout")
	require.NoError(t, err)
	assert.Contains(t, out, "visits")
	assert.Contains(t, out, "share")
	assert.Contains(t, out, "(term)")
}

func TestWatchStopsOnCancel(t *testing.T) {
	dir, path := writeDashboard(t, dashboard)
	out := filepath.Join(dir, "out")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, _, err := run(t, ctx, "watch", "-c", path, "-o", out, "--interval", "20ms")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "share.txt"))

	_, _, err = run(t, context.Background(), "watch", "-c", path, "--interval", "0s")
	assert.Error(t, err)
}
