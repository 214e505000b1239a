package chartkit_test

import (
	"context"
	"fmt"

	"github.com/spektr-org/chartkit"
	"github.com/spektr-org/chartkit/charts"
	"github.com/spektr-org/chartkit/engine"
	"github.com/spektr-org/chartkit/logging"
)

type sale struct {
	Channel string
	Amount  float64
}

func ExampleGrouper() {
	sales := []sale{
		{"web", 10},
		{"app", 4},
		{"web", 6},
		{"app", 8},
		{"store", 1},
	}

	byChannel := chartkit.NewGrouper[sale]().
		Key(func(s sale) any { return s.Channel }).
		Measure(func(s sale) float64 { return s.Amount }).
		Where(func(s sale) bool { return s.Amount > 1 }).
		Sort(engine.ByValueDesc)

	data := byChannel.Bind(sales)
	fmt.Println(data)

	reg, err := chartkit.NewRegistry([]string{"term"}, logging.Discard())
	if err != nil {
		fmt.Println(err)
		return
	}
	m := charts.NewManager(charts.WithRegistry(reg), charts.WithLogger(logging.Discard()))
	defer m.Close()

	st, err := m.PieChart(context.Background(), charts.NewMemoryElement("sales"), charts.Literal(data), nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(st.Handle.Adapter)
	// Output:
	// [[web 16] [app 12]]
	// term
}
