package extraction

import (
	"strings"

	"github.com/dariomedina/shelfrival-backend/pkg/rainforest"
)

// Image is one gallery entry with whatever sizing metadata the payload carried.
type Image struct {
	URL     string
	Variant string
	Width   *int
	Height  *int
}

// ImageSet is the normalized gallery for one product. Entries are ordered
// with the main image first; MainImageURL is always Entries[0].URL when any
// image exists.
type ImageSet struct {
	MainImageURL *string
	Entries      []Image
	Count        int
}

// URLs returns the ordered gallery URLs.
func (s ImageSet) URLs() []string {
	urls := make([]string, 0, len(s.Entries))
	for _, entry := range s.Entries {
		urls = append(urls, entry.URL)
	}
	return urls
}

// ExtractImages normalizes the three image shapes a payload can carry: a
// dedicated main image, a structured gallery list, and a legacy flat
// comma-separated string. The main image leads; a gallery entry with the same
// URL is not repeated. The flat string is only consulted when the structured
// gallery list is empty, even if a main image exists; when no main image was
// found either, the first flat entry is promoted to main. Empty input
// produces an empty set, never an error.
func ExtractImages(raw *rainforest.RawProduct) ImageSet {
	if raw == nil {
		return ImageSet{}
	}

	var entries []Image
	seen := map[string]bool{}

	appendEntry := func(img Image) {
		img.URL = strings.TrimSpace(img.URL)
		if img.URL == "" || seen[img.URL] {
			return
		}
		seen[img.URL] = true
		entries = append(entries, img)
	}

	if raw.MainImage != nil {
		appendEntry(Image{URL: raw.MainImage.Link, Variant: raw.MainImage.Variant, Width: raw.MainImage.Width, Height: raw.MainImage.Height})
	}
	for _, img := range raw.Images {
		appendEntry(Image{URL: img.Link, Variant: img.Variant, Width: img.Width, Height: img.Height})
	}

	if len(raw.Images) == 0 {
		for _, part := range strings.Split(raw.ImagesFlat, ",") {
			appendEntry(Image{URL: part})
		}
	}

	set := ImageSet{Entries: entries, Count: len(entries)}
	if len(entries) > 0 {
		main := entries[0].URL
		set.MainImageURL = &main
	}
	return set
}
