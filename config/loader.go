package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads dashboards from files.
type Loader struct {
	// ExpandEnv enables environment variable expansion.
	ExpandEnv bool
	// StrictEnv fails if referenced env vars are missing.
	StrictEnv bool
	// Validate enables configuration validation.
	Validate bool
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithEnvExpansion enables or disables environment variable expansion.
func WithEnvExpansion(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.ExpandEnv = enabled
	}
}

// WithStrictEnv enables strict environment variable checking.
func WithStrictEnv(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.StrictEnv = enabled
	}
}

// WithValidation enables or disables configuration validation.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.Validate = enabled
	}
}

// NewLoader creates a loader that expands env vars and validates.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{ExpandEnv: true, Validate: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile loads a .yaml, .yml or .json dashboard. Relative file
// locators resolve against the file's directory unless fetch.root is set.
func (l *Loader) LoadFile(path string) (*Dashboard, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to access config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidFormat, path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	d, err := l.Load(f)
	if err != nil {
		return nil, err
	}
	if d.Fetch.Root == "" {
		d.Fetch.Root = filepath.Dir(path)
	}
	return d, nil
}

// Load reads a dashboard from r. JSON is accepted as YAML.
func (l *Loader) Load(r io.Reader) (*Dashboard, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if l.ExpandEnv {
		expanded, err := (&envExpander{strict: l.StrictEnv}).Expand(string(data))
		if err != nil {
			return nil, err
		}
		data = []byte(expanded)
	}

	d := &Dashboard{}
	if err := yaml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	d.ApplyDefaults()

	if l.Validate {
		if errs := d.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
		}
	}
	return d, nil
}

// LoadString loads a dashboard from a string.
func (l *Loader) LoadString(content string) (*Dashboard, error) {
	return l.Load(strings.NewReader(content))
}
