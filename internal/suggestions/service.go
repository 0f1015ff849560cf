package suggestion

import (
	"context"
	"strings"

	"github.com/dariomedina/shelfrival-backend/internal/extraction"
	"github.com/dariomedina/shelfrival-backend/pkg/enums"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

// Searcher is the keyword-search slice of the upstream client.
type Searcher interface {
	Search(ctx context.Context, term, amazonDomain string) ([]rainforest.SearchResult, error)
}

// Suggestion is one candidate competitor with its provenance.
type Suggestion struct {
	ASIN     string             `json:"asin"`
	Title    string             `json:"title,omitempty"`
	Relation enums.RelationType `json:"relation"`
}

// Service produces competitor candidates for a just-imported product.
type Service interface {
	SuggestedCompetitors(ctx context.Context, canonical extraction.CanonicalProduct, limit int) ([]Suggestion, error)
}

const searchTermMaxWords = 6

type service struct {
	searcher Searcher
	logg     *logger.Logger
}

// NewService wires the suggestion service.
func NewService(searcher Searcher, logg *logger.Logger) Service {
	return &service{searcher: searcher, logg: logg}
}

// SuggestedCompetitors flattens the payload's embedded related blocks into a
// deduplicated candidate list. When the payload embeds nothing, one keyword
// search derived from the product's title and brand fills in, tagged as
// "search". The result is capped at limit; an empty list is a valid answer.
func (s *service) SuggestedCompetitors(ctx context.Context, canonical extraction.CanonicalProduct, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}

	suggestions := fromRelatedBlocks(canonical)
	if len(suggestions) == 0 {
		fallback, err := s.searchFallback(ctx, canonical)
		if err != nil {
			return nil, err
		}
		suggestions = fallback
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func fromRelatedBlocks(canonical extraction.CanonicalProduct) []Suggestion {
	var suggestions []Suggestion
	seen := map[string]bool{canonical.ASIN: true}
	for _, related := range canonical.Related {
		if seen[related.ASIN] {
			continue
		}
		seen[related.ASIN] = true
		suggestions = append(suggestions, Suggestion{
			ASIN:     related.ASIN,
			Title:    related.Title,
			Relation: related.Relation,
		})
	}
	return suggestions
}

func (s *service) searchFallback(ctx context.Context, canonical extraction.CanonicalProduct) ([]Suggestion, error) {
	if s.searcher == nil {
		return nil, nil
	}
	term := deriveSearchTerm(canonical)
	if term == "" {
		return nil, nil
	}

	results, err := s.searcher.Search(ctx, term, canonical.Marketplace)
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	seen := map[string]bool{canonical.ASIN: true}
	for _, result := range results {
		asin := strings.TrimSpace(result.ASIN)
		if asin == "" || seen[asin] {
			continue
		}
		seen[asin] = true
		suggestions = append(suggestions, Suggestion{
			ASIN:     asin,
			Title:    strings.TrimSpace(result.Title),
			Relation: enums.RelationSearch,
		})
	}
	return suggestions, nil
}

// deriveSearchTerm builds a short query from the leading title words, with
// the brand as a fallback for near-empty titles.
func deriveSearchTerm(canonical extraction.CanonicalProduct) string {
	words := strings.Fields(canonical.Title)
	if len(words) > searchTermMaxWords {
		words = words[:searchTermMaxWords]
	}
	term := strings.Join(words, " ")
	if term == "" && canonical.Brand != nil {
		term = *canonical.Brand
	}
	return term
}
