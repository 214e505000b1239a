package charts

import (
	"errors"
	"fmt"
)

var (
	// ErrChartNotFound is returned when an id names no chart.
	ErrChartNotFound = errors.New("no chart found")

	// ErrNoElement is returned when a chart is constructed without an element.
	ErrNoElement = errors.New("chart needs an element with an id")

	// ErrClosed is returned by a Manager after Close.
	ErrClosed = errors.New("chart manager closed")
)

// Stage names the pipeline step a chart failed in.
type Stage string

// Pipeline stages.
const (
	StageAcquire   Stage = "acquire"
	StageNormalize Stage = "normalize"
	StageDispatch  Stage = "dispatch"
	StageRender    Stage = "render"
)

// ChartError is a failure while building one chart.
type ChartError struct {
	ChartID string
	Stage   Stage
	Err     error
}

func (e *ChartError) Error() string {
	return fmt.Sprintf("chart %s: %s: %v", e.ChartID, e.Stage, e.Err)
}

func (e *ChartError) Unwrap() error {
	return e.Err
}

// ErrorMessage is the text shown in an element when its chart fails.
func ErrorMessage(err error) string {
	var ce *ChartError
	if errors.As(err, &ce) {
		err = ce.Err
	}
	return "Error Loading Chart: " + err.Error()
}

func notFound(id string) error {
	return fmt.Errorf("%w with id: %s", ErrChartNotFound, id)
}
