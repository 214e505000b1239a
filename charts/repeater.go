package charts

import (
	"sync"
	"time"
)

// Repeater calls a function on a fixed interval until stopped. Calls never
// overlap: a tick that comes due while the previous call runs is dropped.
type Repeater struct {
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewRepeater starts calling fn every interval. wg, when not nil, tracks
// the repeater goroutine.
func NewRepeater(interval time.Duration, fn func(), wg *sync.WaitGroup) *Repeater {
	r := &Repeater{interval: interval, stop: make(chan struct{})}
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				select {
				case <-r.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
	return r
}

// Interval returns the time between calls.
func (r *Repeater) Interval() time.Duration {
	return r.interval
}

// Stop ends the repeater. A call in progress finishes. Stop is idempotent.
func (r *Repeater) Stop() {
	r.once.Do(func() { close(r.stop) })
}
