package enums

import "fmt"

// DataQuality distinguishes records hydrated from the upstream API from
// hand-entered ones.
type DataQuality string

const (
	DataQualityFull   DataQuality = "full"
	DataQualityManual DataQuality = "manual"
)

// String implements fmt.Stringer.
func (q DataQuality) String() string {
	return string(q)
}

// IsValid reports whether the value is a known DataQuality.
func (q DataQuality) IsValid() bool {
	return q == DataQualityFull || q == DataQualityManual
}

// RelationType tags where a suggested competitor came from.
type RelationType string

const (
	RelationAlsoViewed        RelationType = "also_viewed"
	RelationAlsoBought        RelationType = "also_bought"
	RelationFrequentlyBought  RelationType = "frequently_bought_together"
	RelationSimilarToConsider RelationType = "similar_to_consider"
	RelationSearch            RelationType = "search"
)

// String implements fmt.Stringer.
func (r RelationType) String() string {
	return string(r)
}

// ParseRelationType converts raw input into a RelationType.
func ParseRelationType(value string) (RelationType, error) {
	switch RelationType(value) {
	case RelationAlsoViewed, RelationAlsoBought, RelationFrequentlyBought, RelationSimilarToConsider, RelationSearch:
		return RelationType(value), nil
	}
	return "", fmt.Errorf("invalid relation type %q", value)
}
