package gviz

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spektr-org/chartkit/engine"
)

// ============================================================================
// DATA TABLE — Google Visualization DataTable JSON literal
// ============================================================================

// DataTable is the JSON literal form accepted by google.visualization.DataTable.
type DataTable struct {
	Cols []Column `json:"cols"`
	Rows []Row    `json:"rows"`
}

// Column describes one DataTable column.
type Column struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Row is one DataTable row. Nil cells encode as null.
type Row struct {
	C []*Cell `json:"c"`
}

// Cell is one DataTable value with an optional formatted form.
type Cell struct {
	V any    `json:"v"`
	F string `json:"f,omitempty"`
}

// Column types.
const (
	TypeString   = "string"
	TypeNumber   = "number"
	TypeDate     = "date"
	TypeDateTime = "datetime"
)

// columnType maps a key type to a DataTable column type.
func columnType(kt engine.KeyType) string {
	switch kt {
	case engine.KeyDateTime:
		return TypeDateTime
	case engine.KeyNumber:
		return TypeNumber
	default:
		return TypeString
	}
}

// dateLiteral renders t in the DataTable "Date(y,m,d,...)" form, months
// counted from zero.
func dateLiteral(t time.Time, withTime bool) string {
	t = t.UTC()
	if !withTime {
		return fmt.Sprintf("Date(%d,%d,%d)", t.Year(), int(t.Month())-1, t.Day())
	}
	return fmt.Sprintf("Date(%d,%d,%d,%d,%d,%d,%d)",
		t.Year(), int(t.Month())-1, t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(time.Millisecond))
}

func numberCell(v float64) *Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &Cell{V: v}
}

func keyCell(k engine.Key) *Cell {
	switch k.Type {
	case engine.KeyDateTime:
		return &Cell{V: dateLiteral(k.Time, true)}
	case engine.KeyNumber:
		return numberCell(k.Number)
	default:
		return &Cell{V: k.Text}
	}
}

func rowKey(k engine.Key) string {
	switch k.Type {
	case engine.KeyDateTime:
		return strconv.FormatInt(k.Time.UnixMilli(), 10)
	case engine.KeyNumber:
		return strconv.FormatFloat(k.Number, 'g', -1, 64)
	default:
		return k.Text
	}
}

// seriesTable merges series into one table: the first column holds the
// keys, then one number column per series. Rows appear in order of first
// appearance, sorted by time for datetime keys. A series with no value for
// a key leaves a null cell.
func seriesTable(ds *engine.Dataset, colType string) DataTable {
	table := DataTable{Cols: []Column{{Label: "", Type: colType}}}
	for _, s := range ds.Series {
		table.Cols = append(table.Cols, Column{Label: s.Name, Type: TypeNumber})
	}

	type acc struct {
		key  engine.Key
		vals []*Cell
	}
	index := make(map[string]int)
	var rows []*acc
	for i, s := range ds.Series {
		for _, p := range s.Points {
			k := rowKey(p.Key)
			pos, ok := index[k]
			if !ok {
				pos = len(rows)
				index[k] = pos
				rows = append(rows, &acc{key: p.Key, vals: make([]*Cell, len(ds.Series))})
			}
			rows[pos].vals[i] = numberCell(p.Value)
		}
	}

	if colType == TypeDateTime {
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].key.Time.Before(rows[b].key.Time)
		})
	}

	table.Rows = make([]Row, len(rows))
	for i, r := range rows {
		first := keyCell(r.key)
		if colType == TypeString && r.key.Type != engine.KeyString {
			first = &Cell{V: r.key.String()}
		}
		table.Rows[i] = Row{C: append([]*Cell{first}, r.vals...)}
	}
	return table
}

// sliceTable builds a two-column label/value table.
func sliceTable(slices []engine.Slice, labelCol, valueCol Column) DataTable {
	table := DataTable{Cols: []Column{labelCol, valueCol}, Rows: make([]Row, len(slices))}
	for i, s := range slices {
		table.Rows[i] = Row{C: []*Cell{{V: s.Label}, numberCell(s.Value)}}
	}
	return table
}

// formatMoney renders v like the "$###,###" number pattern.
func formatMoney(v float64) string {
	neg := v < 0
	digits := strconv.FormatFloat(math.Round(math.Abs(v)), 'f', 0, 64)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

// formatPercentage renders v like the "###%" number pattern.
func formatPercentage(v float64) string {
	return strconv.FormatFloat(math.Round(v*100), 'f', 0, 64) + "%"
}
