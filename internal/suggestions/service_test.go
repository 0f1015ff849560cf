package suggestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dariomedina/shelfrival-backend/internal/extraction"
	"github.com/dariomedina/shelfrival-backend/pkg/enums"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

type stubSearcher struct {
	term    string
	domain  string
	calls   int
	results []rainforest.SearchResult
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, term, amazonDomain string) ([]rainforest.SearchResult, error) {
	s.calls++
	s.term = term
	s.domain = amazonDomain
	return s.results, s.err
}

func TestSuggestedCompetitorsFromRelatedBlocks(t *testing.T) {
	searcher := &stubSearcher{}
	svc := NewService(searcher, nil)

	canonical := extraction.CanonicalProduct{
		ASIN:        "B00X",
		Marketplace: "amazon.com",
		Related: []extraction.RelatedCandidate{
			{ASIN: "B001", Title: "Rival One", Relation: enums.RelationAlsoViewed},
			{ASIN: "B002", Relation: enums.RelationAlsoBought},
			{ASIN: "B001", Relation: enums.RelationAlsoBought},
			{ASIN: "B00X", Relation: enums.RelationSimilarToConsider},
		},
	}

	suggestions, err := svc.SuggestedCompetitors(context.Background(), canonical, 8)
	require.NoError(t, err)
	require.Len(t, suggestions, 2, "dedupe by asin, exclude the product itself")
	assert.Equal(t, "B001", suggestions[0].ASIN)
	assert.Equal(t, enums.RelationAlsoViewed, suggestions[0].Relation, "first relation wins")
	assert.Zero(t, searcher.calls, "no search when the payload embeds candidates")
}

func TestSuggestedCompetitorsSearchFallback(t *testing.T) {
	searcher := &stubSearcher{results: []rainforest.SearchResult{
		{ASIN: "B010", Title: "Search One"},
		{ASIN: "B00X", Title: "The product itself"},
		{ASIN: "B011", Title: "Search Two"},
	}}
	svc := NewService(searcher, nil)

	canonical := extraction.CanonicalProduct{
		ASIN:        "B00X",
		Marketplace: "amazon.com",
		Title:       "Wireless Earbuds with Noise Cancelling and Long Battery Life",
	}

	suggestions, err := svc.SuggestedCompetitors(context.Background(), canonical, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.calls, "exactly one fallback search")
	assert.Equal(t, "Wireless Earbuds with Noise Cancelling and", searcher.term)
	assert.Equal(t, "amazon.com", searcher.domain)

	require.Len(t, suggestions, 2)
	for _, suggestion := range suggestions {
		assert.Equal(t, enums.RelationSearch, suggestion.Relation)
		assert.NotEqual(t, "B00X", suggestion.ASIN)
	}
}

func TestSuggestedCompetitorsCappedAtLimit(t *testing.T) {
	svc := NewService(&stubSearcher{}, nil)

	canonical := extraction.CanonicalProduct{ASIN: "B00X"}
	for _, asin := range []string{"B1", "B2", "B3", "B4", "B5"} {
		canonical.Related = append(canonical.Related, extraction.RelatedCandidate{ASIN: asin, Relation: enums.RelationAlsoViewed})
	}

	suggestions, err := svc.SuggestedCompetitors(context.Background(), canonical, 3)
	require.NoError(t, err)
	assert.Len(t, suggestions, 3)
}

func TestSuggestedCompetitorsZeroResultsIsValid(t *testing.T) {
	searcher := &stubSearcher{}
	svc := NewService(searcher, nil)

	suggestions, err := svc.SuggestedCompetitors(context.Background(), extraction.CanonicalProduct{
		ASIN:  "B00X",
		Title: "Widget",
	}, 8)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
	assert.Equal(t, 1, searcher.calls)
}

func TestSuggestedCompetitorsInvalidLimit(t *testing.T) {
	svc := NewService(&stubSearcher{}, nil)
	_, err := svc.SuggestedCompetitors(context.Background(), extraction.CanonicalProduct{}, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
