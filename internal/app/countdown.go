package app

import (
	"sync"
	"time"
)

// Ticker runs fn every interval until the returned stop function is called.
// Stop must not block on fn, since fn may itself call stop.
type Ticker interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// ClockTicker is the wall-clock Ticker used outside tests.
type ClockTicker struct{}

func (ClockTicker) Every(interval time.Duration, fn func()) func() {
	t := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer t.Stop()
		for {
			select {
			case <-t.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// countdown is the timer owned by a served question. gen identifies it so
// that a tick racing a stop can recognise itself as stale.
type countdown struct {
	gen  uint64
	stop func()
}

func (c *countdown) cancel() {
	if c == nil || c.stop == nil {
		return
	}
	c.stop()
	c.stop = nil
}
