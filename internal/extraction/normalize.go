package extraction

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dariomedina/shelfrival-backend/pkg/enums"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

// CanonicalProduct is the typed, normalized view of one listing. Everything
// downstream (persistence, suggestions, API responses) works from this shape;
// payload coercion happens exactly once, here.
type CanonicalProduct struct {
	ASIN        string
	Marketplace string
	Title       string
	Brand       *string
	Link        *string

	PriceAmount     *decimal.Decimal
	Currency        *string
	PriceRaw        *string
	DiscountPercent *float64
	CouponText      *string

	Rating          *float64
	RatingsTotal    *int
	RatingBreakdown []byte

	Categories         []string
	BestsellerRank     *int
	BestsellerCategory *string

	Images ImageSet
	Videos []Video

	FeatureBullets []string
	Description    *string
	Specifications []byte

	InStock         *bool
	AvailabilityRaw *string
	SellerName      *string

	HasAplus     bool
	AplusPayload []byte

	RawPayload  []byte
	DataQuality enums.DataQuality

	Related []RelatedCandidate
}

// RelatedCandidate is one embedded related-product reference, tagged with the
// payload block it came from.
type RelatedCandidate struct {
	ASIN     string
	Title    string
	Relation enums.RelationType
}

// Normalize coerces one raw payload into the canonical product for the given
// marketplace. It never fails: absent or malformed optional fields simply
// come out unset.
func Normalize(raw *rainforest.RawProduct, marketplace string) CanonicalProduct {
	canonical := CanonicalProduct{
		Marketplace: marketplace,
		DataQuality: enums.DataQualityFull,
	}
	if raw == nil {
		return canonical
	}

	canonical.ASIN = strings.TrimSpace(raw.ASIN)
	canonical.Title = strings.TrimSpace(raw.Title)
	canonical.Brand = optionalString(raw.Brand)
	canonical.Link = optionalString(raw.Link)

	if raw.Rating != nil {
		rating := raw.Rating.Float64()
		canonical.Rating = &rating
	}
	if raw.RatingsTotal != nil {
		total := raw.RatingsTotal.Int()
		canonical.RatingsTotal = &total
	}
	canonical.RatingBreakdown = rawJSON(raw.RatingBreakdown)

	for _, cat := range raw.Categories {
		if name := strings.TrimSpace(cat.Name); name != "" {
			canonical.Categories = append(canonical.Categories, name)
		}
	}
	if len(raw.BestsellersRank) > 0 {
		top := raw.BestsellersRank[0]
		if top.Rank != nil {
			rank := top.Rank.Int()
			canonical.BestsellerRank = &rank
		}
		canonical.BestsellerCategory = optionalString(top.Category)
	}

	normalizeBuybox(&canonical, raw.BuyboxWinner)

	canonical.Images = ExtractImages(raw)
	canonical.Videos = ExtractVideos(raw)

	canonical.FeatureBullets = trimmedNonEmpty(raw.FeatureBullets)
	canonical.Description = optionalString(raw.Description)
	if len(raw.Specifications) > 0 {
		if data, err := json.Marshal(raw.Specifications); err == nil {
			canonical.Specifications = data
		}
	}

	if raw.APlusContent != nil && raw.APlusContent.HasAplusContent {
		canonical.HasAplus = true
		canonical.AplusPayload = rawJSON(raw.APlusContent.Body)
	}

	if data, err := json.Marshal(raw); err == nil {
		canonical.RawPayload = data
	}

	canonical.Related = relatedCandidates(raw)
	return canonical
}

func normalizeBuybox(canonical *CanonicalProduct, buybox *rainforest.RawBuybox) {
	if buybox == nil {
		return
	}
	if buybox.Price != nil {
		if buybox.Price.Value != nil {
			amount := decimal.NewFromFloat(buybox.Price.Value.Float64())
			canonical.PriceAmount = &amount
		}
		canonical.Currency = optionalString(buybox.Price.Currency)
		canonical.PriceRaw = optionalString(buybox.Price.Raw)
	}
	if buybox.SavingsPercent != nil {
		savings := buybox.SavingsPercent.Float64()
		canonical.DiscountPercent = &savings
	}
	if buybox.Coupon != nil {
		canonical.CouponText = optionalString(buybox.Coupon.Text)
	}
	if buybox.Availability != nil {
		canonical.InStock = buybox.Availability.InStock
		canonical.AvailabilityRaw = optionalString(buybox.Availability.Raw)
	}
	canonical.SellerName = optionalString(buybox.SellerName)
}

func relatedCandidates(raw *rainforest.RawProduct) []RelatedCandidate {
	var candidates []RelatedCandidate

	appendBlock := func(products []rainforest.RawRelatedProduct, relation enums.RelationType) {
		for _, p := range products {
			asin := strings.TrimSpace(p.ASIN)
			if asin == "" {
				continue
			}
			candidates = append(candidates, RelatedCandidate{
				ASIN:     asin,
				Title:    strings.TrimSpace(p.Title),
				Relation: relation,
			})
		}
	}

	appendBlock(raw.AlsoViewed, enums.RelationAlsoViewed)
	appendBlock(raw.AlsoBought, enums.RelationAlsoBought)
	if raw.FrequentlyBoughtTogether != nil {
		appendBlock(raw.FrequentlyBoughtTogether.Products, enums.RelationFrequentlyBought)
	}
	if raw.SimilarToConsider != nil {
		appendBlock(raw.SimilarToConsider.Products, enums.RelationSimilarToConsider)
	}
	return candidates
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func rawJSON(message json.RawMessage) []byte {
	if len(message) == 0 {
		return nil
	}
	return []byte(message)
}

func trimmedNonEmpty(values []string) []string {
	var out []string
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
