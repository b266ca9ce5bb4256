package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"quizrush/internal/domain"
)

// SessionRepository abstracts where live game sessions are kept (in-memory, Redis-marked, etc).
type SessionRepository interface {
	GetOrCreate(gameID string, create func(gameID string) *Session) *Session
	Get(gameID string) (*Session, bool)
	DeleteIfIdle(gameID string)
}

// CatalogRepository loads the question catalog once and serves it from cache.
type CatalogRepository interface {
	Catalog(ctx context.Context) (domain.Catalog, error)
}

// Option configures a GameService.
type Option func(*GameService)

// WithTicker replaces the countdown ticker of every new session.
func WithTicker(t Ticker) Option {
	return func(s *GameService) { s.ticker = t }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *GameService) { s.log = log }
}

func WithMetrics(m Metrics) Option {
	return func(s *GameService) { s.metrics = m }
}

// WithRandSeed makes colors and Mixed shuffles reproducible.
func WithRandSeed(seed int64) Option {
	return func(s *GameService) {
		s.seed = func() int64 { return seed }
	}
}

// GameService maps presentation intents onto game sessions.
type GameService struct {
	sessions SessionRepository
	catalog  CatalogRepository
	ticker   Ticker
	metrics  Metrics
	log      *zap.Logger

	seedMu sync.Mutex
	seed   func() int64
}

func NewGameService(sessions SessionRepository, catalog CatalogRepository, opts ...Option) *GameService {
	s := &GameService{
		sessions: sessions,
		catalog:  catalog,
		ticker:   ClockTicker{},
		metrics:  nopMetrics{},
		log:      zap.NewNop(),
		seed:     func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns the session for gameID, creating it on first use.
func (s *GameService) Open(gameID string) *Session {
	return s.sessions.GetOrCreate(gameID, s.newSession)
}

func (s *GameService) newSession(gameID string) *Session {
	s.seedMu.Lock()
	seed := s.seed()
	s.seedMu.Unlock()

	s.log.Info("game opened", zap.String("game", gameID))
	return NewSession(gameID,
		WithSessionTicker(s.ticker),
		WithSessionRand(rand.New(rand.NewSource(seed))),
		WithSessionMetrics(s.metrics),
		WithSessionLogger(s.log),
	)
}

// AddPlayer handles onPlayerAdded.
func (s *GameService) AddPlayer(_ context.Context, gameID, name string) (domain.Snapshot, error) {
	session, err := s.get(gameID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if _, err := session.AddPlayer(name); err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// SetDifficulty changes the requested questions per player.
func (s *GameService) SetDifficulty(_ context.Context, gameID string, difficulty int) (domain.Snapshot, error) {
	session, err := s.get(gameID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := session.SetDifficulty(difficulty); err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// ChooseSubject handles onSubjectChosen: the catalog is loaded before any
// distribution, and a failed load leaves the session in registration.
func (s *GameService) ChooseSubject(ctx context.Context, gameID, subject string) (domain.Snapshot, error) {
	session, err := s.get(gameID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := session.CanStart(); err != nil {
		return domain.Snapshot{}, err
	}

	catalog, err := s.catalog.Catalog(ctx)
	s.metrics.CatalogLoaded(err)
	if err != nil {
		s.log.Error("question catalog unavailable", zap.String("game", gameID), zap.Error(err))
		return domain.Snapshot{}, domain.NewLoadError("", err)
	}

	if err := session.Start(catalog, subject); err != nil {
		s.log.Warn("game not started", zap.String("game", gameID), zap.String("subject", subject), zap.Error(err))
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// SelectOption handles onOptionSelected.
func (s *GameService) SelectOption(_ context.Context, gameID string, index int) (domain.Snapshot, error) {
	session, err := s.get(gameID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := session.SelectAnswer(index); err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Submit handles onSubmitClicked.
func (s *GameService) Submit(_ context.Context, gameID string) (domain.Snapshot, error) {
	session, err := s.get(gameID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := session.SubmitAnswer(); err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// NewGame handles onNewGameRequested.
func (s *GameService) NewGame(_ context.Context, gameID string) (domain.Snapshot, error) {
	session, err := s.get(gameID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	session.Reset()
	s.log.Info("game reset", zap.String("game", gameID))
	return session.Snapshot(), nil
}

// Review returns a player's answers after the round.
func (s *GameService) Review(_ context.Context, gameID, player string) (domain.PlayerReview, error) {
	session, err := s.get(gameID)
	if err != nil {
		return domain.PlayerReview{}, err
	}
	return session.Review(player)
}

// Snapshot returns the current view of a session.
func (s *GameService) Snapshot(gameID string) (domain.Snapshot, error) {
	session, err := s.get(gameID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives a snapshot after every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, gameID string) (<-chan domain.Snapshot, func(), error) {
	session, err := s.get(gameID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Subjects lists the selectable subjects, loading the catalog if needed.
func (s *GameService) Subjects(ctx context.Context) ([]string, error) {
	catalog, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, domain.NewLoadError("", err)
	}
	return catalog.Subjects(), nil
}

// Leave drops the session once nobody is watching it.
func (s *GameService) Leave(_ context.Context, gameID string) {
	s.sessions.DeleteIfIdle(gameID)
}

func (s *GameService) get(gameID string) (*Session, error) {
	session, ok := s.sessions.Get(gameID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
