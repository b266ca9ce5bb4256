package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"quizrush/internal/app"
	"quizrush/internal/infra/memory"
	"quizrush/internal/metrics"
)

func TestRootRedirectsToNewGame(t *testing.T) {
	server := newTestServer(t, sampleCatalog())
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(server.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/games/"), loc)
	require.Len(t, strings.TrimPrefix(loc, "/games/"), 36)
}

func TestGamePageServed(t *testing.T) {
	server := newTestServer(t, sampleCatalog())

	resp, err := http.Get(server.URL + "/games/abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestSubjectsEndpoint(t *testing.T) {
	server := newTestServer(t, sampleCatalog())

	resp, err := http.Get(server.URL + "/subjects")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Subjects []string `json:"subjects"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, []string{"CSS", "HTML", "Mixed"}, body.Subjects)
}

func TestHealthAndMetrics(t *testing.T) {
	repo := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(sampleCatalog()), "test", 0)
	rec := metrics.New("quizrush")
	service := app.NewGameService(memory.NewSessionStore(), repo, app.WithMetrics(rec))
	server := httptest.NewServer(NewRouter(service, nil, rec))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
