package memory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"quizrush/internal/domain"
)

//go:embed questions.json
var bundledQuestions []byte

// EmbeddedCatalogLoader serves the catalog compiled into the binary.
type EmbeddedCatalogLoader struct{}

func NewEmbeddedCatalogLoader() EmbeddedCatalogLoader {
	return EmbeddedCatalogLoader{}
}

func (EmbeddedCatalogLoader) LoadCatalog(_ context.Context) (domain.Catalog, error) {
	return DecodeCatalog(bundledQuestions)
}

// DecodeCatalog parses the JSON catalog format shared by every loader.
func DecodeCatalog(data []byte) (domain.Catalog, error) {
	var catalog domain.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	return catalog, nil
}
