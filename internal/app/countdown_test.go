package app_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizrush/internal/app"
)

func TestClockTickerFiresUntilStopped(t *testing.T) {
	var calls atomic.Int32
	fired := make(chan struct{}, 16)
	stop := app.ClockTicker{}.Every(5*time.Millisecond, func() {
		calls.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("ticker fired %d times, want 3", i)
		}
	}

	stopped := make(chan struct{})
	go func() {
		stop()
		stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop blocked")
	}

	// at most one tick may already have passed the done check
	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, calls.Load(), after+1)
}

func TestClockTickerStopFromCallback(t *testing.T) {
	var (
		mu    sync.Mutex
		stop  func()
		calls atomic.Int32
		once  sync.Once
	)
	done := make(chan struct{})

	mu.Lock()
	stop = app.ClockTicker{}.Every(5*time.Millisecond, func() {
		mu.Lock()
		s := stop
		mu.Unlock()
		calls.Add(1)
		if s == nil {
			return
		}
		s()
		once.Do(func() { close(done) })
	})
	mu.Unlock()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop from inside the callback blocked or never ran")
	}

	n := calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, n, calls.Load())
}
