package engine

import "errors"

var (
	// ErrUnknownChartType is returned for chart type names outside ChartTypes.
	ErrUnknownChartType = errors.New("unknown chart type")

	// ErrMalformedPoint is returned when a raw point is not a [key, value, ...] list.
	ErrMalformedPoint = errors.New("malformed point")

	// ErrMalformedSeries is returned when an explicit series list mixes
	// series objects with other shapes.
	ErrMalformedSeries = errors.New("malformed series")

	// ErrInvalidOption is returned when a recognized option has the wrong shape.
	ErrInvalidOption = errors.New("invalid option")
)
