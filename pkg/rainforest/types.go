package rainforest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// RawProduct mirrors the upstream product payload. Every field is optional;
// the extraction layer owns turning this into a typed canonical product, so
// nothing here should be trusted beyond "it parsed".
type RawProduct struct {
	ASIN  string `json:"asin"`
	Title string `json:"title"`
	Brand string `json:"brand"`
	Link  string `json:"link"`

	MainImage   *RawImage  `json:"main_image,omitempty"`
	Images      []RawImage `json:"images,omitempty"`
	ImagesCount int        `json:"images_count,omitempty"`
	ImagesFlat  string     `json:"images_flat,omitempty"`

	// The API exposes videos under two keys depending on response shape.
	Videos           []RawVideo `json:"videos,omitempty"`
	VideosAdditional []RawVideo `json:"videos_additional,omitempty"`

	FeatureBullets []string           `json:"feature_bullets,omitempty"`
	Description    string             `json:"description,omitempty"`
	Specifications []RawSpecification `json:"specifications,omitempty"`

	Rating          *FlexFloat      `json:"rating,omitempty"`
	RatingsTotal    *FlexInt        `json:"ratings_total,omitempty"`
	RatingBreakdown json.RawMessage `json:"rating_breakdown,omitempty"`

	Categories      []RawCategory       `json:"categories,omitempty"`
	BestsellersRank []RawBestsellerRank `json:"bestsellers_rank,omitempty"`

	BuyboxWinner *RawBuybox `json:"buybox_winner,omitempty"`

	APlusContent *RawAplusContent `json:"a_plus_content,omitempty"`

	AlsoViewed               []RawRelatedProduct `json:"also_viewed,omitempty"`
	AlsoBought               []RawRelatedProduct `json:"also_bought,omitempty"`
	FrequentlyBoughtTogether *RawRelatedGroup    `json:"frequently_bought_together,omitempty"`
	SimilarToConsider        *RawRelatedGroup    `json:"similar_to_consider,omitempty"`
}

type RawImage struct {
	Link    string `json:"link"`
	Variant string `json:"variant,omitempty"`
	Width   *int   `json:"width,omitempty"`
	Height  *int   `json:"height,omitempty"`
}

// RawVideo carries the overlapping-but-inconsistent field names the two video
// payload locations use (id/video_url/url, video_image_url/thumbnail, etc).
type RawVideo struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title,omitempty"`
	VideoURL      string `json:"video_url,omitempty"`
	URL           string `json:"url,omitempty"`
	VideoImageURL string `json:"video_image_url,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	Duration      string `json:"duration,omitempty"`
	VendorName    string `json:"vendor_name,omitempty"`
	PublicName    string `json:"public_name,omitempty"`
	GroupType     string `json:"group_type,omitempty"`
	Captions      string `json:"closed_captions,omitempty"`
}

type RawSpecification struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type RawCategory struct {
	Name string `json:"name"`
}

type RawBestsellerRank struct {
	Category string   `json:"category"`
	Rank     *FlexInt `json:"rank"`
}

type RawBuybox struct {
	Price          *RawPrice        `json:"price,omitempty"`
	RRP            *RawPrice        `json:"rrp,omitempty"`
	SavingsPercent *FlexFloat       `json:"savings_percent,omitempty"`
	Coupon         *RawCoupon       `json:"coupon,omitempty"`
	Availability   *RawAvailability `json:"availability,omitempty"`
	SellerName     string           `json:"seller_name,omitempty"`
}

type RawPrice struct {
	Value    *FlexFloat `json:"value,omitempty"`
	Currency string     `json:"currency,omitempty"`
	Raw      string     `json:"raw,omitempty"`
}

type RawCoupon struct {
	Text string `json:"text,omitempty"`
}

type RawAvailability struct {
	InStock *bool  `json:"in_stock,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

type RawAplusContent struct {
	HasAplusContent bool            `json:"has_a_plus_content"`
	Body            json.RawMessage `json:"body,omitempty"`
}

type RawRelatedProduct struct {
	ASIN   string     `json:"asin"`
	Title  string     `json:"title,omitempty"`
	Link   string     `json:"link,omitempty"`
	Image  string     `json:"image,omitempty"`
	Price  *RawPrice  `json:"price,omitempty"`
	Rating *FlexFloat `json:"rating,omitempty"`
}

type RawRelatedGroup struct {
	Products []RawRelatedProduct `json:"products,omitempty"`
}

// SearchResult is the lightweight summary returned by type=search requests.
type SearchResult struct {
	ASIN         string     `json:"asin"`
	Title        string     `json:"title,omitempty"`
	Brand        string     `json:"brand,omitempty"`
	Link         string     `json:"link,omitempty"`
	Image        string     `json:"image,omitempty"`
	Price        *RawPrice  `json:"price,omitempty"`
	Rating       *FlexFloat `json:"rating,omitempty"`
	RatingsTotal *FlexInt   `json:"ratings_total,omitempty"`
}

type productResponse struct {
	Product *RawProduct `json:"product,omitempty"`
}

type searchResponse struct {
	SearchResults []SearchResult `json:"search_results,omitempty"`
}

// FlexFloat tolerates numbers arriving as JSON numbers or numeric strings.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Not a number at all; treat like absent rather than failing
			// the whole payload.
			return nil
		}
		*f = FlexFloat(parsed)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// Float64 returns the underlying value.
func (f *FlexFloat) Float64() float64 {
	if f == nil {
		return 0
	}
	return float64(*f)
}

// FlexInt tolerates integers arriving as JSON numbers or numeric strings.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	var f FlexFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = FlexInt(int(f))
	return nil
}

// Int returns the underlying value.
func (i *FlexInt) Int() int {
	if i == nil {
		return 0
	}
	return int(*i)
}
