// Package config loads dashboard files: the charts to build, where their
// data lives, and how the backends and fetchers are set up.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/logging"
)

var (
	// ErrConfigNotFound indicates the configuration file was not found.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidFormat indicates the file is not valid YAML or JSON.
	ErrInvalidFormat = errors.New("invalid configuration format")

	// ErrUnsupportedFormat indicates the file extension is not supported.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")

	// ErrValidationFailed indicates configuration validation failed.
	ErrValidationFailed = errors.New("configuration validation failed")

	// ErrMissingEnvVar indicates a required environment variable is not set.
	ErrMissingEnvVar = errors.New("required environment variable not set")
)

// DefaultAdapters is the backend priority order when a dashboard names none.
var DefaultAdapters = []string{"gviz", "echarts", "term", "xlsx"}

// Dashboard is a set of charts plus the settings to build them with.
type Dashboard struct {
	// Output configures where rendered charts are written.
	Output OutputConfig `yaml:"output" json:"output"`

	// Adapters lists backend names in priority order.
	Adapters []string `yaml:"adapters" json:"adapters"`

	// Fetch configures remote data acquisition.
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Log configures logging.
	Log LogConfig `yaml:"log" json:"log"`

	// Charts are built in order.
	Charts []ChartConfig `yaml:"charts" json:"charts"`
}

// OutputConfig configures rendered output.
type OutputConfig struct {
	// Dir receives one file per chart.
	Dir string `yaml:"dir" json:"dir"`
}

// FetchConfig configures the data fetchers.
type FetchConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// BreakerThreshold is consecutive failures before a host is skipped.
	BreakerThreshold int `yaml:"breaker_threshold" json:"breaker_threshold"`

	// BreakerTimeout is how long a failing host is skipped.
	BreakerTimeout time.Duration `yaml:"breaker_timeout" json:"breaker_timeout"`

	// Root resolves relative file paths. Defaults to the dashboard's directory.
	Root string `yaml:"root" json:"root"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// ChartConfig describes one chart. Exactly one of Data and URL is set.
type ChartConfig struct {
	// ID names the chart and its output file. Generated when empty.
	ID string `yaml:"id" json:"id"`

	// Type is a chart type name such as "line" or "LineChart".
	Type string `yaml:"type" json:"type"`

	// Data is literal chart data. Mapping keys keep their file order.
	Data yaml.Node `yaml:"data" json:"-"`

	// URL is a remote or file locator for the data.
	URL string `yaml:"url" json:"url"`

	// Options are the chart options, in file order.
	Options *coerce.Map `yaml:"options" json:"options"`
}

// HasData reports whether the chart carries literal data.
func (c *ChartConfig) HasData() bool {
	return c.Data.Kind != 0
}

// Value decodes the literal data.
func (c *ChartConfig) Value() (any, error) {
	if !c.HasData() {
		return nil, nil
	}
	return coerce.FromYAML(&c.Data)
}

// ChartType parses Type.
func (c *ChartConfig) ChartType() (engine.ChartType, error) {
	return engine.ParseChartType(c.Type)
}

// ApplyDefaults fills unset settings and generates missing chart ids.
func (d *Dashboard) ApplyDefaults() {
	if d.Output.Dir == "" {
		d.Output.Dir = "charts"
	}
	if len(d.Adapters) == 0 {
		d.Adapters = append([]string(nil), DefaultAdapters...)
	}
	if d.Fetch.Timeout <= 0 {
		d.Fetch.Timeout = 30 * time.Second
	}
	if d.Fetch.BreakerThreshold <= 0 {
		d.Fetch.BreakerThreshold = 5
	}
	if d.Fetch.BreakerTimeout <= 0 {
		d.Fetch.BreakerTimeout = 30 * time.Second
	}
	if d.Log.Level == "" {
		d.Log.Level = "info"
	}
	if d.Log.Format == "" {
		d.Log.Format = "console"
	}
	for i := range d.Charts {
		if d.Charts[i].ID == "" {
			d.Charts[i].ID = "chart-" + uuid.NewString()
		}
	}
}

// ============================================================================
// VALIDATION
// ============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// Validate checks a dashboard after defaults are applied.
func (d *Dashboard) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if !logging.ValidLevel(d.Log.Level) {
		add("log.level", "unknown level %q", d.Log.Level)
	}
	if d.Log.Format != "json" && d.Log.Format != "console" {
		add("log.format", "must be json or console, got %q", d.Log.Format)
	}

	seenAdapter := make(map[string]bool)
	for i, name := range d.Adapters {
		if seenAdapter[name] {
			add(fmt.Sprintf("adapters[%d]", i), "duplicate adapter %q", name)
		}
		seenAdapter[name] = true
	}

	if len(d.Charts) == 0 {
		add("charts", "at least one chart is required")
	}
	seenID := make(map[string]bool)
	for i := range d.Charts {
		c := &d.Charts[i]
		path := fmt.Sprintf("charts[%d]", i)
		if seenID[c.ID] {
			add(path+".id", "duplicate id %q", c.ID)
		}
		seenID[c.ID] = true

		if _, err := c.ChartType(); err != nil {
			add(path+".type", "%v", err)
		}
		switch {
		case c.HasData() && c.URL != "":
			add(path, "data and url are mutually exclusive")
		case !c.HasData() && c.URL == "":
			add(path, "one of data or url is required")
		}
		if _, err := c.Value(); err != nil {
			add(path+".data", "%v", err)
		}
		if _, err := engine.ParseOptions(c.Options); err != nil {
			add(path+".options", "%v", err)
		}
	}
	return errs
}
