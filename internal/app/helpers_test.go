package app_test

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizrush/internal/app"
	"quizrush/internal/domain"
)

// manualTicker hands control of the countdown to the test.
type manualTicker struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (m *manualTicker) Every(_ time.Duration, fn func()) func() {
	t := &manualTimer{fn: fn}
	m.mu.Lock()
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		t.stopped = true
		m.mu.Unlock()
	}
}

// fire ticks the most recent timer n times, stopping early once it is cancelled.
func (m *manualTicker) fire(n int) {
	for i := 0; i < n; i++ {
		m.mu.Lock()
		if len(m.timers) == 0 {
			m.mu.Unlock()
			return
		}
		t := m.timers[len(m.timers)-1]
		stopped := t.stopped
		m.mu.Unlock()
		if stopped {
			return
		}
		t.fn()
	}
}

func (m *manualTicker) running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *manualTicker) timer(i int) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[i]
}

func newTestSession(t *testing.T, ticker *manualTicker, players ...string) *app.Session {
	t.Helper()
	s := app.NewSession("game-1",
		app.WithSessionTicker(ticker),
		app.WithSessionRand(rand.New(rand.NewSource(7))),
		app.WithSessionClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }),
	)
	for _, name := range players {
		_, err := s.AddPlayer(name)
		require.NoError(t, err)
	}
	return s
}

// makePool builds n questions with unique prompts; the correct option rotates.
func makePool(prefix string, n int) []domain.Question {
	pool := make([]domain.Question, n)
	for i := range pool {
		pool[i] = domain.Question{
			Prompt:       fmt.Sprintf("%s question %d", prefix, i),
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
		}
	}
	return pool
}

func correctIndexOf(catalog domain.Catalog, prompt string) int {
	for _, questions := range catalog {
		for _, q := range questions {
			if q.Prompt == prompt {
				return q.CorrectIndex
			}
		}
	}
	return -1
}

// answer selects the correct (or a wrong) option of the active question and submits.
func answer(t *testing.T, s *app.Session, catalog domain.Catalog, correct bool) domain.Snapshot {
	t.Helper()
	snap := s.Snapshot()
	require.Equal(t, domain.PhaseAwaitingAnswer, snap.Phase)
	require.NotNil(t, snap.Question)

	idx := correctIndexOf(catalog, snap.Question.Prompt)
	require.GreaterOrEqual(t, idx, 0)
	if !correct {
		idx = (idx + 1) % len(snap.Question.Options)
	}
	require.NoError(t, s.SelectAnswer(idx))
	require.NoError(t, s.SubmitAnswer())
	return s.Snapshot()
}
