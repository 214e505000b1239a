package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/logging"
)

func newFetcher(cfg HTTPConfig) *HTTPFetcher {
	return NewHTTPFetcher(WithHTTPConfig(cfg), WithHTTPLogger(logging.Discard()))
}

func TestHTTPFetcherKeepsKeyOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{"z": 1, "a": 2, "m": 3}`)
	}))
	defer srv.Close()

	got, err := newFetcher(HTTPConfig{}).Fetch(context.Background(), srv.URL+"/data.json")
	require.NoError(t, err)

	m, ok := got.(*coerce.Map)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
}

func TestHTTPFetcherBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newFetcher(HTTPConfig{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.Contains(t, err.Error(), "nope")
}

func TestHTTPFetcherInvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"a": `)
	}))
	defer srv.Close()

	_, err := newFetcher(HTTPConfig{}).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "decode")
}

func TestHTTPFetcherBreakerOpensWithoutRetrying(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newFetcher(HTTPConfig{BreakerThreshold: 2, BreakerTimeout: time.Minute})
	for range 4 {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	assert.NotEqual(t, "unknown", f.BreakerState(u.Host))
	assert.Equal(t, "unknown", f.BreakerState("elsewhere:1"))
}

func TestHTTPFetcherRejectsNonHTTP(t *testing.T) {
	t.Parallel()

	_, err := newFetcher(HTTPConfig{}).Fetch(context.Background(), "ftp://example.com/x")
	assert.ErrorIs(t, err, ErrUnsupportedLocator)
}

func TestIsHTTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		locator string
		want    bool
	}{
		{"http://example.com/a.json", true},
		{"HTTPS://example.com", true},
		{"file:///tmp/a.json", false},
		{"data/a.json", false},
		{"http://", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsHTTP(tt.locator), tt.locator)
	}
}

func TestTableData(t *testing.T) {
	t.Parallel()

	t.Run("single value column is a bare series", func(t *testing.T) {
		got, err := TableData([][]string{{"day", "visits"}, {"2021-01-01", "3"}, {"2021-01-02", ""}})
		require.NoError(t, err)
		assert.Equal(t, []any{[]any{"2021-01-01", 3.0}}, got)
	})

	t.Run("several columns become named series", func(t *testing.T) {
		got, err := TableData([][]string{{"x", " A ", "B"}, {"1", "2", "n/a"}, {"2", "4"}})
		require.NoError(t, err)

		series, ok := got.([]any)
		require.True(t, ok)
		require.Len(t, series, 2)
		a := series[0].(*coerce.Map)
		assert.Equal(t, "A", a.Get("name"))
		assert.Equal(t, []any{[]any{1.0, 2.0}, []any{2.0, 4.0}}, a.Get("data"))
		b := series[1].(*coerce.Map)
		assert.Equal(t, []any{[]any{1.0, "n/a"}}, b.Get("data"))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := TableData(nil)
		assert.ErrorIs(t, err, ErrEmptyTable)
	})
}

func TestFileFetcherFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	write("data.json", `[["b", 1], ["a", 2]]`)
	write("data.csv", "label,value\nTea,3\nCoffee,1\n")

	book := excelize.NewFile()
	require.NoError(t, book.SetSheetRow("Sheet1", "A1", &[]any{"k", "v"}))
	require.NoError(t, book.SetSheetRow("Sheet1", "A2", &[]any{"x", 7}))
	require.NoError(t, book.SaveAs(filepath.Join(dir, "data.xlsx")))
	require.NoError(t, book.Close())

	f := &FileFetcher{Root: dir}
	ctx := context.Background()

	got, err := f.Fetch(ctx, "data.json")
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"b", 1.0}, []any{"a", 2.0}}, got)

	got, err = f.Fetch(ctx, "file://"+filepath.Join(dir, "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"Tea", 3.0}, []any{"Coffee", 1.0}}, got)

	got, err = f.Fetch(ctx, "data.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"x", 7.0}}, got)

	_, err = f.Fetch(ctx, "missing.json")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRouter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[1]`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(`[2]`), 0o600))

	r := &Router{HTTP: newFetcher(HTTPConfig{}), File: &FileFetcher{Root: dir}}
	got, err := r.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0}, got)

	got, err = r.Fetch(context.Background(), "a.json")
	require.NoError(t, err)
	assert.Equal(t, []any{2.0}, got)

	_, err = (&Router{}).Fetch(context.Background(), "a.json")
	assert.ErrorIs(t, err, ErrUnsupportedLocator)
}
