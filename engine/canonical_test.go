package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/chartkit/coerce"
)

// testCanonicalizer mimics a backend that keeps axis settings under
// "vAxis" and "hAxis".
func testCanonicalizer() Canonicalizer {
	return Canonicalizer{
		Defaults: coerce.NewMap(
			"legend", coerce.NewMap("position", "right", "textStyle", coerce.NewMap("fontSize", 12)),
			"vAxis", coerce.NewMap("viewWindow", coerce.NewMap()),
			"hAxis", coerce.NewMap("viewWindow", coerce.NewMap()),
		),
		HideLegend: func(o *coerce.Map) { o.SetPath("none", "legend", "position") },
		SetMin:     func(o *coerce.Map, v float64) { o.SetPath(v, "vAxis", "viewWindow", "min") },
		SetMax:     func(o *coerce.Map, v float64) { o.SetPath(v, "vAxis", "viewWindow", "max") },
		SetStacked: func(o *coerce.Map) { o.Set("isStacked", true) },
		SetXTitle:  func(o *coerce.Map, s string) { o.SetPath(s, "hAxis", "title") },
		SetYTitle:  func(o *coerce.Map, s string) { o.SetPath(s, "vAxis", "title") },
	}
}

func dataset(values ...float64) *Dataset {
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{Key: TimeKey(time.Unix(int64(i)*86400, 0)), Value: v}
	}
	return &Dataset{Series: []Series{{Name: "Value", Points: points}}}
}

func path(t *testing.T, m *coerce.Map, keys ...string) any {
	t.Helper()
	v, ok := m.Path(keys...)
	require.True(t, ok, "missing %v in %s", keys, m)
	return v
}

func TestCanonicalizerDefaultMinZero(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer()
	out := c.Build(dataset(1, 2, 3), Options{}, nil)
	assert.Equal(t, 0.0, path(t, out, "vAxis", "viewWindow", "min"))

	out = c.Build(dataset(1, -2, 3), Options{}, nil)
	_, ok := out.Path("vAxis", "viewWindow", "min")
	assert.False(t, ok, "negative data must not get a default minimum")

	lo := -10.0
	out = c.Build(dataset(1, -2, 3), Options{Min: &lo}, nil)
	assert.Equal(t, -10.0, path(t, out, "vAxis", "viewWindow", "min"))
}

func TestCanonicalizerSteps(t *testing.T) {
	t.Parallel()

	hi := 100.0
	ds := dataset(5, 6)
	ds.HideLegend = true
	opts := Options{
		Max:        &hi,
		Stacked:    true,
		Colors:     []string{"#b00", "#666"},
		DateFormat: "MMM y",
		XTitle:     "Day",
		YTitle:     "Visits",
		Library:    coerce.NewMap("isStacked", false, "legend", coerce.NewMap("alignment", "start")),
	}
	overrides := coerce.NewMap("pointSize", 0)

	out := testCanonicalizer().Build(ds, opts, overrides)

	assert.Equal(t, "none", path(t, out, "legend", "position"))
	assert.Equal(t, 12, path(t, out, "legend", "textStyle", "fontSize"))
	assert.Equal(t, "start", path(t, out, "legend", "alignment"))
	assert.Equal(t, 100.0, path(t, out, "vAxis", "viewWindow", "max"))
	assert.Equal(t, []any{"#b00", "#666"}, out.Get("colors"))
	assert.Equal(t, "MMM y", out.Get("dateFormat"))
	assert.Equal(t, "Day", path(t, out, "hAxis", "title"))
	assert.Equal(t, "Visits", path(t, out, "vAxis", "title"))
	assert.Equal(t, 0, out.Get("pointSize"))
	// library wins over computed stacking
	assert.Equal(t, false, out.Get("isStacked"))
}

func TestCanonicalizerIsPure(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer()
	defaultsBefore := c.Defaults.String()
	overrides := coerce.NewMap("legend", coerce.NewMap("alignment", "center"))
	library := coerce.NewMap("vAxis", coerce.NewMap("title", "lib"))
	ds := dataset(1)
	ds.HideLegend = true

	first := c.Build(ds, Options{Library: library, XTitle: "x"}, overrides)
	second := c.Build(ds, Options{Library: library, XTitle: "x"}, overrides)

	assert.Equal(t, first, second)
	assert.Equal(t, defaultsBefore, c.Defaults.String())
	assert.Equal(t, `{"legend":{"alignment":"center"}}`, overrides.String())
	assert.Equal(t, `{"vAxis":{"title":"lib"}}`, library.String())
}

func TestCanonicalizerNilHooks(t *testing.T) {
	t.Parallel()

	c := Canonicalizer{Defaults: coerce.NewMap("a", 1)}
	ds := dataset(1)
	ds.HideLegend = true
	lo := 3.0
	out := c.Build(ds, Options{Min: &lo, Stacked: true, XTitle: "x"}, nil)
	assert.Equal(t, `{"a":1}`, out.String())
}

func TestCanonicalizerSimple(t *testing.T) {
	t.Parallel()

	c := testCanonicalizer()
	out := c.Simple(Options{Library: coerce.NewMap("pieHole", 0.4)}, coerce.NewMap("legend", "none"))
	assert.Equal(t, "none", out.Get("legend"))
	assert.Equal(t, 0.4, out.Get("pieHole"))
	_, ok := out.Path("vAxis", "viewWindow", "min")
	assert.False(t, ok)
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	raw := coerce.NewMap(
		"min", 0,
		"max", "50",
		"stacked", true,
		"discrete", false,
		"colors", []any{"#f00", "#0f0"},
		"xtitle", "Time",
		"groupBy", "weekdays",
		"adapter", "gviz",
		"refresh", 30,
		"maxMarkerPoints", 5,
		"library", map[string]any{"curveType": "none"},
		"custom", "kept",
	)
	opts, err := ParseOptions(raw)
	require.NoError(t, err)

	require.NotNil(t, opts.Min)
	assert.Equal(t, 0.0, *opts.Min)
	require.NotNil(t, opts.Max)
	assert.Equal(t, 50.0, *opts.Max)
	assert.True(t, opts.Stacked)
	assert.False(t, opts.Discrete)
	assert.Equal(t, []string{"#f00", "#0f0"}, opts.Colors)
	assert.Equal(t, "Time", opts.XTitle)
	assert.Equal(t, GroupByWeekdays, opts.GroupBy)
	assert.Equal(t, "gviz", opts.Adapter)
	assert.Equal(t, 30*time.Second, opts.Refresh)
	assert.Equal(t, 5, opts.MaxMarkerPoints)
	assert.Equal(t, "none", opts.Library.Get("curveType"))
	assert.Equal(t, "kept", opts.Raw.Get("custom"))
}

func TestParseOptionsErrors(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]*coerce.Map{
		"min":     coerce.NewMap("min", "low"),
		"max":     coerce.NewMap("max", "1e999"),
		"groupBy": coerce.NewMap("groupBy", "hours"),
		"colors":  coerce.NewMap("colors", "#f00"),
		"library": coerce.NewMap("library", "oops"),
		"refresh": coerce.NewMap("refresh", "soon"),
	} {
		_, err := ParseOptions(raw)
		assert.ErrorIs(t, err, ErrInvalidOption, name)
	}
}

func TestParseRefresh(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want time.Duration
	}{
		{nil, 0},
		{5, 5 * time.Second},
		{1.5, 1500 * time.Millisecond},
		{"2m", 2 * time.Minute},
		{"10", 10 * time.Second},
		{"", 0},
		{false, 0},
	}
	for _, tt := range tests {
		got, err := ParseRefresh(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	_, err := ParseRefresh(-1)
	assert.ErrorIs(t, err, ErrInvalidOption)
}
