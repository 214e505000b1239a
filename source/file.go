package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spektr-org/chartkit/coerce"
)

// FileFetcher reads local files. The extension picks the format: .csv,
// .xlsx, anything else is JSON. Locators may be plain paths or file:// URLs.
type FileFetcher struct {
	// Root, when set, resolves relative paths against it.
	Root string
}

// NewFileFetcher returns a FileFetcher resolving paths from the working
// directory.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch implements Fetcher.
func (f *FileFetcher) Fetch(ctx context.Context, locator string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}
	path, err := f.path(locator)
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: err}
	}

	var out any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		out, err = ParseCSV(data)
	case ".xlsx":
		out, err = ParseSheet(bytes.NewReader(data))
	default:
		out, err = coerce.DecodeJSON(bytes.NewReader(data))
	}
	if err != nil {
		return nil, &FetchError{Locator: locator, Err: fmt.Errorf("decode: %w", err)}
	}
	return out, nil
}

func (f *FileFetcher) path(locator string) (string, error) {
	if strings.HasPrefix(locator, "file://") {
		u, err := url.Parse(locator)
		if err != nil {
			return "", err
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", fmt.Errorf("%w: remote file host %q", ErrUnsupportedLocator, u.Host)
		}
		locator = u.Path
	}
	if locator == "" {
		return "", errors.New("empty path")
	}
	if f.Root != "" && !filepath.IsAbs(locator) {
		locator = filepath.Join(f.Root, locator)
	}
	return locator, nil
}
