package echarts

import (
	"math"
	"sort"
	"strconv"

	"github.com/spektr-org/chartkit/engine"
)

// grid aligns every series on the union of their keys. Keys keep their
// first appearance order; datetime keys are sorted. Missing values are nil
// so the chart shows a gap.
type grid struct {
	labels []string
	values [][]any
}

func alignSeries(ds *engine.Dataset) grid {
	type row struct {
		key  engine.Key
		vals []any
	}
	index := make(map[string]int)
	var rows []*row
	for i, s := range ds.Series {
		for _, p := range s.Points {
			id := keyID(p.Key)
			pos, ok := index[id]
			if !ok {
				pos = len(rows)
				index[id] = pos
				rows = append(rows, &row{key: p.Key, vals: make([]any, len(ds.Series))})
			}
			rows[pos].vals[i] = finite(p.Value)
		}
	}
	if ds.KeyType == engine.KeyDateTime {
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].key.Time.Before(rows[b].key.Time)
		})
	}

	g := grid{labels: make([]string, len(rows)), values: make([][]any, len(ds.Series))}
	for i := range ds.Series {
		g.values[i] = make([]any, len(rows))
	}
	for r, row := range rows {
		g.labels[r] = row.key.Format("")
		for i, v := range row.vals {
			g.values[i][r] = v
		}
	}
	return g
}

func keyID(k engine.Key) string {
	switch k.Type {
	case engine.KeyDateTime:
		return strconv.FormatInt(k.Time.UnixMilli(), 10)
	case engine.KeyNumber:
		return strconv.FormatFloat(k.Number, 'g', -1, 64)
	default:
		return k.Text
	}
}

// finite returns v, or nil for NaN and infinities which JSON cannot carry.
func finite(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
