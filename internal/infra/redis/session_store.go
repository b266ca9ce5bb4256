package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizrush/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Sessions live in process; Redis only carries a liveness marker per game
// so that operators can see which games are open. Player intents never wait
// on Redis: markers are written on open, dropped on close, and refreshed by Run.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(gameID string, create func(gameID string) *app.Session) *app.Session {
	s.mu.Lock()
	session, ok := s.sessions[gameID]
	if !ok {
		session = create(gameID)
		s.sessions[gameID] = session
	}
	s.mu.Unlock()

	if !ok {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		_ = s.client.Set(ctx, s.key(gameID), "1", s.ttl).Err()
	}
	return session
}

func (s *SessionStore) Get(gameID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[gameID]
	return session, ok
}

func (s *SessionStore) DeleteIfIdle(gameID string) {
	s.mu.Lock()
	session, ok := s.sessions[gameID]
	if !ok || !session.IsIdle() {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, gameID)
	s.mu.Unlock()

	session.Close()
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_ = s.client.Del(ctx, s.key(gameID)).Err()
}

// Refresh pushes the TTL of every open game's marker forward in one pipeline.
func (s *SessionStore) Refresh(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Set(ctx, s.key(id), "1", s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Run refreshes markers every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = s.Refresh(ctx)
		}
	}
}

func (s *SessionStore) key(gameID string) string {
	return "quizrush:session:" + gameID
}
