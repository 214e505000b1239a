package charts

import "github.com/spektr-org/chartkit/coerce"

// DataSource is where a chart's data comes from: a value held in memory or
// a locator fetched on every build.
type DataSource struct {
	literal any
	url     string
	remote  bool
}

// Literal returns a source holding v.
func Literal(v any) DataSource {
	return DataSource{literal: v}
}

// Remote returns a source fetched from url: an http(s) URL, a file:// URL
// or a path.
func Remote(url string) DataSource {
	return DataSource{url: url, remote: true}
}

// IsRemote reports whether the source is fetched.
func (s DataSource) IsRemote() bool { return s.remote }

// URL returns the locator of a remote source.
func (s DataSource) URL() string { return s.url }

// Value returns the data of a literal source.
func (s DataSource) Value() any { return s.literal }

// Update is what an UpdateAllCharts callback returns to change a chart.
// A nil Source keeps the stored one; Options are merged onto the stored
// options.
type Update struct {
	Source  *DataSource
	Options *coerce.Map
}
