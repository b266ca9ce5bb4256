package app

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"quizrush/internal/domain"
)

// Metrics receives game events for instrumentation.
type Metrics interface {
	GameStarted(subject string)
	AnswerSubmitted(correct, expired bool)
	RoundFinished()
	CatalogLoaded(err error)
}

type nopMetrics struct{}

func (nopMetrics) GameStarted(string)         {}
func (nopMetrics) AnswerSubmitted(bool, bool) {}
func (nopMetrics) RoundFinished()             {}
func (nopMetrics) CatalogLoaded(error)        {}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithSessionTicker replaces the wall-clock countdown ticker.
func WithSessionTicker(t Ticker) SessionOption {
	return func(s *Session) { s.ticker = t }
}

// WithSessionRand sets the source used for colors and Mixed shuffles.
func WithSessionRand(rnd *rand.Rand) SessionOption {
	return func(s *Session) { s.rnd = rnd }
}

// WithSessionClock is used by tests for deterministic timestamps.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func WithSessionMetrics(m Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

func WithSessionLogger(log *zap.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// Session is one game played in one browser tab. All mutations happen under
// mu; the countdown goroutine re-enters through tick.
type Session struct {
	id      string
	now     func() time.Time
	rnd     *rand.Rand
	ticker  Ticker
	metrics Metrics
	log     *zap.Logger

	mu          sync.Mutex
	phase       domain.Phase
	players     []domain.Player
	scores      *Scoreboard
	subject     string
	difficulty  int
	assignment  domain.Assignment
	current     int
	active      int
	selected    int
	remaining   int
	timer       *countdown
	timerGen    uint64
	closed      bool
	subscribers map[chan domain.Snapshot]struct{}
}

func NewSession(id string, opts ...SessionOption) *Session {
	s := &Session{
		id:          id,
		now:         time.Now,
		ticker:      ClockTicker{},
		metrics:     nopMetrics{},
		log:         zap.NewNop(),
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.resetLocked()
	return s
}

// AddPlayer registers name with a random color and a zero score.
func (s *Session) AddPlayer(name string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	switch {
	case s.phase != domain.PhaseRegistration:
		return domain.Player{}, domain.ErrGameInProgress
	case name == "":
		return domain.Player{}, domain.ErrEmptyPlayerName
	case len(s.players) >= domain.MaxPlayers:
		return domain.Player{}, domain.ErrRosterFull
	}
	for _, p := range s.players {
		if p.Name == name {
			return domain.Player{}, fmt.Errorf("%w: %q", domain.ErrDuplicatePlayer, name)
		}
	}

	player := domain.Player{Name: name, Color: s.randomColorLocked()}
	s.players = append(s.players, player)
	s.scores.Register(name)
	s.assignment[name] = nil
	s.log.Debug("player added", zap.String("game", s.id), zap.String("player", name))
	s.broadcastLocked()
	return player, nil
}

// SetDifficulty changes the requested questions per player before the game starts.
func (s *Session) SetDifficulty(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRegistration {
		return domain.ErrGameInProgress
	}
	if n < 1 {
		return domain.ErrInvalidDifficulty
	}
	s.difficulty = n
	s.broadcastLocked()
	return nil
}

// CanStart reports whether Start would be accepted by the roster alone.
func (s *Session) CanStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canStartLocked()
}

func (s *Session) canStartLocked() error {
	if s.phase != domain.PhaseRegistration {
		return domain.ErrGameInProgress
	}
	if len(s.players) == 0 {
		return domain.ErrNoPlayers
	}
	return nil
}

// Start distributes subject's pool and serves the first question. On error
// the session stays in registration.
func (s *Session) Start(catalog domain.Catalog, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.canStartLocked(); err != nil {
		return err
	}
	pool, err := ResolvePool(catalog, subject, s.rnd)
	if err != nil {
		return err
	}

	s.subject = subject
	s.assignment = Distribute(s.players, pool, s.difficulty)
	s.current = 0
	s.log.Info("game started",
		zap.String("game", s.id),
		zap.String("subject", subject),
		zap.Int("players", len(s.players)),
		zap.Int("per_player", QuestionsPerPlayer(len(pool), len(s.players), s.difficulty)),
	)
	s.metrics.GameStarted(subject)

	s.serveNextLocked()
	s.broadcastLocked()
	return nil
}

// SelectAnswer records a pending, unsubmitted choice.
func (s *Session) SelectAnswer(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseAwaitingAnswer {
		return domain.ErrNotAwaitingAnswer
	}
	q := s.activeLocked()
	if index < 0 || index >= len(q.Options) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidSelection, index)
	}
	s.selected = index
	s.broadcastLocked()
	return nil
}

// SubmitAnswer stores the pending choice on the active question and passes the turn.
func (s *Session) SubmitAnswer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseAwaitingAnswer {
		return domain.ErrNotAwaitingAnswer
	}
	s.submitLocked(false)
	s.broadcastLocked()
	return nil
}

// Reset cancels the countdown and returns to an empty registration screen.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.broadcastLocked()
}

// Close stops the countdown and ends every subscription.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimerLocked()
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Review lists a player's questions with the correct and the chosen option.
func (s *Session) Review(player string) (domain.PlayerReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRoundOver {
		return domain.PlayerReview{}, domain.ErrRoundInProgress
	}
	idx := s.playerIndexLocked(player)
	if idx < 0 {
		return domain.PlayerReview{}, fmt.Errorf("%w: %q", domain.ErrUnknownPlayer, player)
	}

	questions := s.assignment[player]
	review := domain.PlayerReview{
		Player:  player,
		Color:   s.players[idx].Color,
		Entries: make([]domain.ReviewEntry, 0, len(questions)),
	}
	for _, q := range questions {
		entry := domain.ReviewEntry{
			Prompt:        q.Prompt,
			CorrectOption: q.Options[q.CorrectIndex],
			ChosenOption:  domain.NoAnswerMarker,
			Correct:       q.Correct(),
		}
		if q.Answered && q.Selected != domain.NoSelection {
			entry.ChosenOption = q.Options[q.Selected]
			entry.Answered = true
		}
		review.Entries = append(review.Entries, entry)
	}
	return review, nil
}

// Snapshot returns the current read-only view.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsIdle reports whether nobody is watching the session.
func (s *Session) IsIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0
}

// Subscribe returns a channel of snapshots, primed with the current one.
// The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// serveNextLocked serves the current player's first pending question,
// skipping players whose queue is exhausted, or ends the round.
func (s *Session) serveNextLocked() {
	s.stopTimerLocked()

	for {
		name := s.players[s.current].Name
		if idx := firstPending(s.assignment[name]); idx >= 0 {
			s.phase = domain.PhaseAwaitingAnswer
			s.active = idx
			s.selected = domain.NoSelection
			s.remaining = domain.QuestionTimeout
			s.startTimerLocked()
			return
		}

		s.current = (s.current + 1) % len(s.players)
		if s.allAnsweredLocked() {
			s.phase = domain.PhaseRoundOver
			s.active = -1
			s.selected = domain.NoSelection
			s.remaining = 0
			s.log.Info("round over",
				zap.String("game", s.id),
				zap.Strings("winners", s.scores.Winners()),
			)
			s.metrics.RoundFinished()
			return
		}
	}
}

func (s *Session) submitLocked(expired bool) {
	s.stopTimerLocked()

	name := s.players[s.current].Name
	q := &s.assignment[name][s.active]
	q.Answered = true
	q.Selected = s.selected

	correct := q.Correct()
	if correct {
		s.scores.Award(name, domain.ScoreAward)
	}
	s.log.Debug("answer submitted",
		zap.String("game", s.id),
		zap.String("player", name),
		zap.Int("selected", q.Selected),
		zap.Bool("correct", correct),
		zap.Bool("expired", expired),
	)
	s.metrics.AnswerSubmitted(correct, expired)

	s.current = (s.current + 1) % len(s.players)
	s.serveNextLocked()
}

func (s *Session) startTimerLocked() {
	s.timerGen++
	gen := s.timerGen
	s.timer = &countdown{gen: gen}
	s.timer.stop = s.ticker.Every(time.Second, func() { s.tick(gen) })
}

func (s *Session) stopTimerLocked() {
	if s.timer == nil {
		return
	}
	s.timer.cancel()
	s.timer = nil
	s.timerGen++
}

// tick is the countdown callback. Ticks from a stopped timer are ignored.
func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer == nil || s.timer.gen != gen || s.phase != domain.PhaseAwaitingAnswer {
		return
	}
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		s.submitLocked(true)
	}
	s.broadcastLocked()
}

func (s *Session) resetLocked() {
	s.stopTimerLocked()
	s.phase = domain.PhaseRegistration
	s.players = nil
	s.scores = NewScoreboard()
	s.subject = ""
	s.difficulty = domain.DefaultDifficulty
	s.assignment = make(domain.Assignment)
	s.current = 0
	s.active = -1
	s.selected = domain.NoSelection
	s.remaining = 0
}

func (s *Session) activeLocked() domain.AssignedQuestion {
	return s.assignment[s.players[s.current].Name][s.active]
}

func (s *Session) allAnsweredLocked() bool {
	for _, p := range s.players {
		if firstPending(s.assignment[p.Name]) >= 0 {
			return false
		}
	}
	return true
}

func (s *Session) playerIndexLocked(name string) int {
	for i, p := range s.players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (s *Session) randomColorLocked() string {
	return fmt.Sprintf("#%06X", s.rnd.Intn(1<<24))
}

func firstPending(questions []domain.AssignedQuestion) int {
	for i, q := range questions {
		if !q.Answered {
			return i
		}
	}
	return -1
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest snapshot so a slow reader never blocks the game.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		GameID:             s.id,
		Phase:              s.phase,
		Players:            make([]domain.PlayerView, 0, len(s.players)),
		Subject:            s.subject,
		Difficulty:         s.difficulty,
		CurrentPlayerIndex: s.current,
		Selected:           s.selected,
		TimeRemaining:      s.remaining,
		UpdatedAt:          s.now(),
	}
	for _, p := range s.players {
		remaining := 0
		for _, q := range s.assignment[p.Name] {
			if !q.Answered {
				remaining++
			}
		}
		snap.Players = append(snap.Players, domain.PlayerView{
			Name:      p.Name,
			Color:     p.Color,
			Score:     s.scores.Score(p.Name),
			Remaining: remaining,
		})
	}

	switch s.phase {
	case domain.PhaseAwaitingAnswer:
		name := s.players[s.current].Name
		q := s.activeLocked()
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		snap.CurrentPlayer = name
		snap.Question = &domain.QuestionView{
			Prompt:  q.Prompt,
			Options: options,
			Number:  s.active + 1,
			Total:   len(s.assignment[name]),
		}
	case domain.PhaseRoundOver:
		snap.Results = s.scores.Results()
		snap.Winners = s.scores.Winners()
	}
	return snap
}
