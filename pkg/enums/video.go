package enums

// VideoCreatorType identifies who produced a product video.
type VideoCreatorType string

const (
	VideoCreatorBrand    VideoCreatorType = "brand"
	VideoCreatorCustomer VideoCreatorType = "customer"
)

// String implements fmt.Stringer.
func (c VideoCreatorType) String() string {
	return string(c)
}

// VideoKind distinguishes hero videos from review videos.
type VideoKind string

const (
	VideoKindHero   VideoKind = "hero"
	VideoKindReview VideoKind = "review"
)

// String implements fmt.Stringer.
func (k VideoKind) String() string {
	return string(k)
}

// VideoSourceField records which upstream payload field a video came from.
// The API exposes videos under two differently named keys depending on the
// response shape; overlap between them is resolved at insert time.
type VideoSourceField string

const (
	VideoSourceVideos           VideoSourceField = "videos"
	VideoSourceVideosAdditional VideoSourceField = "videos_additional"
)

// String implements fmt.Stringer.
func (s VideoSourceField) String() string {
	return string(s)
}
