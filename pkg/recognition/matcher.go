package recognition

import (
	"context"
	"strings"

	"Pantry-Pipeline-Backend/entities"

	"github.com/google/uuid"
)

// ProductCatalog is the slice of the product store the matcher needs.
type ProductCatalog interface {
	SearchProductsByName(ctx context.Context, name string, limit int) ([]*entities.Product, error)
}

// Matcher resolves the worker's name suggestions against the product catalog
// into ranked candidate matches. Worker order is preserved; suggestions with
// no catalog hit are dropped, so an item can legitimately end up with zero
// candidates.
type Matcher struct {
	catalog ProductCatalog
}

func NewMatcher(catalog ProductCatalog) *Matcher {
	return &Matcher{catalog: catalog}
}

func (m *Matcher) BuildCandidates(ctx context.Context, lineItemID uuid.UUID, item RawItem) ([]*entities.CandidateMatch, error) {
	candidates := make([]*entities.CandidateMatch, 0, len(item.Suggestions))
	seen := make(map[uuid.UUID]bool)

	for _, suggestion := range item.Suggestions {
		name := strings.TrimSpace(suggestion.Name)
		if name == "" {
			continue
		}

		products, err := m.catalog.SearchProductsByName(ctx, name, 3)
		if err != nil {
			return nil, err
		}

		for _, product := range products {
			if seen[product.ID] {
				continue
			}
			seen[product.ID] = true

			candidates = append(candidates, &entities.CandidateMatch{
				ID:          uuid.New(),
				LineItemID:  lineItemID,
				ProductID:   product.ID,
				DisplayName: product.Name,
				Confidence:  suggestion.Confidence,
				ImageURL:    product.ImageURL,
				Rank:        len(candidates),
			})
		}
	}

	return candidates, nil
}
