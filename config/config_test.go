package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
)

const dashboard = `
output:
  dir: out
adapters: [echarts, term]
fetch:
  timeout: 5s
charts:
  - id: visits
    type: line
    data:
      "2021-01-02": 3
      "2021-01-01": 1
    options:
      ytitle: Visits
      library:
        title: Daily
  - type: PieChart
    url: ${DATA_HOST:-http://localhost:8080}/pie.json
`

func TestLoadDashboard(t *testing.T) {
	d, err := NewLoader().LoadString(dashboard)
	require.NoError(t, err)

	assert.Equal(t, "out", d.Output.Dir)
	assert.Equal(t, []string{"echarts", "term"}, d.Adapters)
	assert.Equal(t, 5*time.Second, d.Fetch.Timeout)
	assert.Equal(t, 5, d.Fetch.BreakerThreshold)
	assert.Equal(t, "info", d.Log.Level)
	require.Len(t, d.Charts, 2)

	visits := d.Charts[0]
	typ, err := visits.ChartType()
	require.NoError(t, err)
	assert.Equal(t, engine.LineChart, typ)

	data, err := visits.Value()
	require.NoError(t, err)
	m, ok := data.(*coerce.Map)
	require.True(t, ok)
	assert.Equal(t, []string{"2021-01-02", "2021-01-01"}, m.Keys(), "mapping order is kept")
	assert.Equal(t, []string{"ytitle", "library"}, visits.Options.Keys())

	pie := d.Charts[1]
	assert.True(t, strings.HasPrefix(pie.ID, "chart-"), pie.ID)
	assert.Equal(t, "http://localhost:8080/pie.json", pie.URL)
	assert.False(t, pie.HasData())
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("DATA_HOST", "https://example.test")

	d, err := NewLoader().LoadString(dashboard)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/pie.json", d.Charts[1].URL)

	d, err = NewLoader(WithEnvExpansion(false), WithValidation(false)).LoadString(dashboard)
	require.NoError(t, err)
	assert.Equal(t, "${DATA_HOST:-http://localhost:8080}/pie.json", d.Charts[1].URL)
}

func TestEnvExpander(t *testing.T) {
	t.Setenv("CHARTKIT_SET", "yes")
	t.Setenv("CHARTKIT_EMPTY", "")

	tests := []struct {
		name    string
		strict  bool
		input   string
		want    string
		wantErr bool
	}{
		{name: "set", input: "a ${CHARTKIT_SET} b", want: "a yes b"},
		{name: "unset is empty", input: "[${CHARTKIT_UNSET}]", want: "[]"},
		{name: "unset strict", strict: true, input: "${CHARTKIT_UNSET}", wantErr: true},
		{name: "default", input: "${CHARTKIT_EMPTY:-x}", want: "x"},
		{name: "required", input: "${CHARTKIT_UNSET:?needed}", wantErr: true},
		{name: "bare dollar kept", input: "$5 and $CHARTKIT_SET", want: "$5 and $CHARTKIT_SET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := (&envExpander{strict: tt.strict}).Expand(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingEnvVar)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidation(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadString(`
log:
  level: loud
adapters: [gviz, gviz]
charts:
  - id: a
    type: radar
    data: [[1, 2]]
  - id: a
    type: line
    data: [[1, 2]]
    url: http://example.test
  - id: b
    type: bar
  - id: c
    type: bar
    data: []
    options:
      refresh: never
`)
	require.ErrorIs(t, err, ErrValidationFailed)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	msg := err.Error()
	for _, want := range []string{
		"log.level: unknown level",
		"adapters[1]: duplicate adapter",
		"charts[0].type",
		"charts[1].id: duplicate id",
		"charts[1]: data and url are mutually exclusive",
		"charts[2]: one of data or url is required",
		"charts[3].options",
	} {
		assert.Contains(t, msg, want)
	}
	assert.Len(t, errs, 7)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "dash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dashboard), 0o600))

	d, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, dir, d.Fetch.Root)

	_, err = NewLoader().LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	toml := filepath.Join(dir, "dash.toml")
	require.NoError(t, os.WriteFile(toml, []byte(""), 0o600))
	_, err = NewLoader().LoadFile(toml)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = NewLoader().LoadFile(dir)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("charts: [\n"), 0o600))
	_, err = NewLoader().LoadFile(broken)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
