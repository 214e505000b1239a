package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/spektr-org/chartkit/coerce"
)

// ============================================================================
// TABLES — CSV and sheet rows into chart data
// ============================================================================
// The first row is the header. The first column holds point keys and every
// other column is one series named by its header cell. A table with a
// single value column becomes a bare [key, value] list, so the chart gets
// the default series name and no legend. Empty cells are skipped; cells
// that parse as numbers become float64, the rest stay strings.
// ============================================================================

// ParseCSV parses CSV bytes into chart data.
func ParseCSV(data []byte) (any, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return TableData(rows)
}

// ParseSheet reads the first sheet of an xlsx workbook into chart data.
func ParseSheet(r io.Reader) (any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return TableData(rows)
}

// TableData converts header-first rows into chart data.
func TableData(rows [][]string) (any, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyTable
	}
	header := rows[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	body := rows[1:]

	if len(header) <= 2 {
		return column(body, 1), nil
	}

	series := make([]any, 0, len(header)-1)
	for col := 1; col < len(header); col++ {
		series = append(series, coerce.NewMap(
			"name", header[col],
			"data", column(body, col),
		))
	}
	return series, nil
}

// column returns the [key, value] points of column col.
func column(rows [][]string, col int) []any {
	points := make([]any, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || col >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[col])
		if val == "" {
			continue
		}
		points = append(points, []any{cellValue(row[0]), cellValue(val)})
	}
	return points
}

func cellValue(s string) any {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
