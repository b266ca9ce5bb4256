package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"quizrush/internal/app"
	"quizrush/internal/domain"
	"quizrush/internal/infra/memory"
)

func TestChooseSubjectStartsGame(t *testing.T) {
	ctx := context.Background()
	ticker := &manualTicker{}
	service, loader := newTestService(ticker, testCatalog())

	service.Open("game-1")
	_, err := service.AddPlayer(ctx, "game-1", "Ana")
	require.NoError(t, err)
	_, err = service.AddPlayer(ctx, "game-1", "Ben")
	require.NoError(t, err)
	_, err = service.SetDifficulty(ctx, "game-1", 2)
	require.NoError(t, err)

	snap, err := service.ChooseSubject(ctx, "game-1", "HTML")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingAnswer, snap.Phase)
	require.Equal(t, "Ana", snap.CurrentPlayer)
	require.Equal(t, int32(1), loader.calls.Load())

	for snap.Phase == domain.PhaseAwaitingAnswer {
		idx := correctIndexOf(testCatalog(), snap.Question.Prompt)
		_, err = service.SelectOption(ctx, "game-1", idx)
		require.NoError(t, err)
		snap, err = service.Submit(ctx, "game-1")
		require.NoError(t, err)
	}
	require.Equal(t, []string{"Ana", "Ben"}, snap.Winners)

	review, err := service.Review(ctx, "game-1", "Ben")
	require.NoError(t, err)
	require.Len(t, review.Entries, 2)

	snap, err = service.NewGame(ctx, "game-1")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseRegistration, snap.Phase)
	require.Empty(t, snap.Players)
}

func TestCatalogIsLoadedOnceAcrossGames(t *testing.T) {
	ctx := context.Background()
	service, loader := newTestService(&manualTicker{}, testCatalog())

	for _, id := range []string{"game-1", "game-2"} {
		service.Open(id)
		_, err := service.AddPlayer(ctx, id, "Ana")
		require.NoError(t, err)
		_, err = service.ChooseSubject(ctx, id, domain.MixedSubject)
		require.NoError(t, err)
	}
	subjects, err := service.Subjects(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"CSS", "HTML", domain.MixedSubject}, subjects)
	require.Equal(t, int32(1), loader.calls.Load())
}

func TestChooseSubjectWithoutPlayersSkipsLoad(t *testing.T) {
	ctx := context.Background()
	service, loader := newTestService(&manualTicker{}, testCatalog())
	service.Open("game-1")

	_, err := service.ChooseSubject(ctx, "game-1", "HTML")
	require.ErrorIs(t, err, domain.ErrNoPlayers)
	require.Zero(t, loader.calls.Load())
}

func TestLoadFailureLeavesRegistration(t *testing.T) {
	ctx := context.Background()
	ticker := &manualTicker{}
	repo := memory.NewCatalogRepository(failingLoader{}, "questions.json", 0)
	service := app.NewGameService(memory.NewSessionStore(), repo, app.WithTicker(ticker))

	service.Open("game-1")
	_, err := service.AddPlayer(ctx, "game-1", "Ana")
	require.NoError(t, err)

	_, err = service.ChooseSubject(ctx, "game-1", "HTML")
	var le *domain.LoadError
	require.True(t, errors.As(err, &le), "got %v", err)
	require.Equal(t, "questions.json", le.Source)

	snap, err := service.Snapshot("game-1")
	require.NoError(t, err)
	require.Equal(t, domain.PhaseRegistration, snap.Phase)
	require.Len(t, snap.Players, 1)
	require.Zero(t, ticker.running())
}

func TestInvalidSubjectDoesNotStart(t *testing.T) {
	ctx := context.Background()
	ticker := &manualTicker{}
	service, _ := newTestService(ticker, testCatalog())
	service.Open("game-1")
	_, err := service.AddPlayer(ctx, "game-1", "Ana")
	require.NoError(t, err)

	_, err = service.ChooseSubject(ctx, "game-1", "JS")
	require.ErrorIs(t, err, domain.ErrInvalidSubject)

	snap, _ := service.Snapshot("game-1")
	require.Equal(t, domain.PhaseRegistration, snap.Phase)
	require.Zero(t, ticker.running())
}

func TestUnknownGame(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(&manualTicker{}, testCatalog())

	_, err := service.AddPlayer(ctx, "missing", "Ana")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, _, err = service.Subscribe(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = service.Submit(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestLeaveDropsIdleSession(t *testing.T) {
	ctx := context.Background()
	ticker := &manualTicker{}
	service, _ := newTestService(ticker, testCatalog())
	service.Open("game-1")
	_, err := service.AddPlayer(ctx, "game-1", "Ana")
	require.NoError(t, err)

	ch, cancel, err := service.Subscribe(ctx, "game-1")
	require.NoError(t, err)
	<-ch
	_, err = service.ChooseSubject(ctx, "game-1", "CSS")
	require.NoError(t, err)

	cancel()
	service.Leave(ctx, "game-1")

	_, err = service.Snapshot("game-1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.Zero(t, ticker.running())
}

type countingLoader struct {
	catalog domain.Catalog
	calls   atomic.Int32
}

func (l *countingLoader) LoadCatalog(context.Context) (domain.Catalog, error) {
	l.calls.Add(1)
	return l.catalog, nil
}

type failingLoader struct{}

func (failingLoader) LoadCatalog(context.Context) (domain.Catalog, error) {
	return nil, errors.New("connection refused")
}

func newTestService(ticker app.Ticker, catalog domain.Catalog) (*app.GameService, *countingLoader) {
	loader := &countingLoader{catalog: catalog}
	repo := memory.NewCatalogRepository(loader, "test", 0)
	service := app.NewGameService(memory.NewSessionStore(), repo,
		app.WithTicker(ticker),
		app.WithRandSeed(42),
	)
	return service, loader
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		"HTML": makePool("html", 4),
		"CSS":  makePool("css", 4),
	}
}
