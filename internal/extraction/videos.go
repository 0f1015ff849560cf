package extraction

import (
	"strconv"
	"strings"

	"github.com/dariomedina/shelfrival-backend/pkg/enums"
	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

// Video is one playable video normalized from either payload location.
type Video struct {
	ExternalID      string
	Title           *string
	URL             string
	ThumbnailURL    *string
	DurationSeconds *int
	CreatorType     enums.VideoCreatorType
	CreatorName     *string
	Kind            enums.VideoKind
	Captions        *string
	SourceField     enums.VideoSourceField
}

// ExtractVideos collects videos from both payload locations, tagging each
// with the field it came from. Entries without a playable URL are dropped.
// No cross-source dedupe happens here; the storage layer's unique index
// resolves overlap between the two fields. Missing both fields yields an
// empty slice.
func ExtractVideos(raw *rainforest.RawProduct) []Video {
	if raw == nil {
		return nil
	}

	videos := make([]Video, 0, len(raw.Videos)+len(raw.VideosAdditional))
	for _, rv := range raw.Videos {
		if v, ok := normalizeVideo(rv, enums.VideoSourceVideos); ok {
			videos = append(videos, v)
		}
	}
	for _, rv := range raw.VideosAdditional {
		if v, ok := normalizeVideo(rv, enums.VideoSourceVideosAdditional); ok {
			videos = append(videos, v)
		}
	}
	return videos
}

func normalizeVideo(rv rainforest.RawVideo, source enums.VideoSourceField) (Video, bool) {
	url := strings.TrimSpace(rv.VideoURL)
	if url == "" {
		url = strings.TrimSpace(rv.URL)
	}
	if url == "" {
		return Video{}, false
	}

	externalID := strings.TrimSpace(rv.ID)
	if externalID == "" {
		externalID = url
	}

	video := Video{
		ExternalID:      externalID,
		URL:             url,
		DurationSeconds: ParseDuration(rv.Duration),
		SourceField:     source,
		CreatorType:     enums.VideoCreatorBrand,
		Kind:            enums.VideoKindHero,
	}
	if source == enums.VideoSourceVideosAdditional {
		video.Kind = enums.VideoKindReview
	}

	if title := strings.TrimSpace(rv.Title); title != "" {
		video.Title = &title
	}
	if thumb := strings.TrimSpace(rv.VideoImageURL); thumb != "" {
		video.ThumbnailURL = &thumb
	} else if thumb := strings.TrimSpace(rv.Thumbnail); thumb != "" {
		video.ThumbnailURL = &thumb
	}
	if captions := strings.TrimSpace(rv.Captions); captions != "" {
		video.Captions = &captions
	}

	// Customer uploads carry a public_name; brand videos a vendor_name.
	if name := strings.TrimSpace(rv.PublicName); name != "" {
		video.CreatorType = enums.VideoCreatorCustomer
		video.CreatorName = &name
	} else if name := strings.TrimSpace(rv.VendorName); name != "" {
		video.CreatorName = &name
	}

	return video, true
}

// ParseDuration converts the payload's "M:SS" (or "H:MM:SS") duration string
// into whole seconds. Malformed or empty input returns nil rather than an
// error; durations are display metadata, not required data.
func ParseDuration(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil
		}
		total = total*60 + n
	}
	return &total
}
