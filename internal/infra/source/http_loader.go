package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"quizrush/internal/domain"
	"quizrush/internal/infra/memory"
)

// maxCatalogBytes bounds the fetched document.
const maxCatalogBytes = 4 << 20

// HTTPLoader fetches the JSON catalog from a URL.
type HTTPLoader struct {
	url    string
	client *http.Client
}

func NewHTTPLoader(url string, client *http.Client) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPLoader{url: url, client: client}
}

func (l *HTTPLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return memory.DecodeCatalog(data)
}
