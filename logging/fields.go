package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// ChartID adds a chart identifier field.
func ChartID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("chart_id", id)
	}
}

// ChartType adds a chart type field.
func ChartType(t string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("chart_type", t)
	}
}

// Adapter adds a rendering backend name field.
func Adapter(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("adapter", name)
	}
}

// URL adds a data source locator field.
func URL(u string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("url", u)
	}
}

// Stage adds a pipeline stage field (acquire, normalize, dispatch, render).
func Stage(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("stage", s)
	}
}

// Dropped adds the number of points discarded during coercion.
func Dropped(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("dropped", n)
	}
}

// Count adds a generic count field.
func Count(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("count", n)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Refresh adds a refresh interval field in milliseconds.
func Refresh(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("refresh_ms", d.Milliseconds())
	}
}

// Remote adds whether the chart reads from a remote source.
func Remote(remote bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("remote", remote)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
