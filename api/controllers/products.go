package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dariomedina/shelfrival-backend/api/responses"
	"github.com/dariomedina/shelfrival-backend/api/validators"
	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	"github.com/dariomedina/shelfrival-backend/internal/ingest"
	suggestion "github.com/dariomedina/shelfrival-backend/internal/suggestions"
	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
)

// FetchProduct handles the single-ASIN import flow.
func FetchProduct(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		var payload fetchProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		folderID, err := parseUUIDField(payload.FolderID, "folder_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.FetchProduct(r.Context(), ingest.FetchInput{
			ASIN:        payload.ASIN,
			Marketplace: payload.Marketplace,
			FolderID:    folderID,
			FolderName:  payload.FolderName,
			SkipRelated: payload.SkipRelated,
			RequestedBy: payload.RequestedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, fetchProductResponse{
			Product:     productPayload(result.Product),
			Comparison:  comparisonPayload(result.Comparison),
			Suggestions: result.Suggestions,
			Videos:      videoResultPayload(result.Videos),
		})
	}
}

// FetchMulti handles the multi-ASIN import flow.
func FetchMulti(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		var payload fetchMultiRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		folderID, err := parseUUIDField(payload.FolderID, "folder_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.FetchMulti(r.Context(), ingest.FetchMultiInput{
			ASINs:       payload.ASINs,
			Marketplace: payload.Marketplace,
			FolderID:    folderID,
			FolderName:  payload.FolderName,
			RequestedBy: payload.RequestedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		competitors := make([]*productResponse, 0, len(result.Competitors))
		for i := range result.Competitors {
			competitors = append(competitors, productPayload(&result.Competitors[i]))
		}

		responses.WriteSuccess(w, fetchMultiResponse{
			Comparison:  comparisonPayload(result.Comparison),
			MyProduct:   productPayload(result.MyProduct),
			Competitors: competitors,
			Errors:      result.Errors,
		})
	}
}

// ManualEntry handles hand-entered products.
func ManualEntry(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		var payload manualEntryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		folderID, err := parseUUIDField(payload.FolderID, "folder_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(strings.TrimSpace(payload.PriceAmount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price_amount"))
			return
		}

		result, err := svc.ManualEntry(r.Context(), ingest.ManualInput{
			ASIN:        payload.ASIN,
			Marketplace: payload.Marketplace,
			Title:       payload.Title,
			Brand:       payload.Brand,
			PriceAmount: price,
			Currency:    payload.Currency,
			Link:        payload.Link,
			ImageURL:    payload.ImageURL,
			FolderID:    folderID,
			FolderName:  payload.FolderName,
			RequestedBy: payload.RequestedBy,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, manualEntryResponse{
			Product:    productPayload(result.Product),
			Comparison: comparisonPayload(result.Comparison),
		})
	}
}

// ProductSearch handles the keyword search import flow.
func ProductSearch(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		var payload searchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.Search(r.Context(), payload.Term, payload.Marketplace)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"results": results})
	}
}

type fetchProductRequest struct {
	ASIN        string  `json:"asin" validate:"required"`
	Marketplace string  `json:"marketplace" validate:"required"`
	FolderID    string  `json:"folder_id" validate:"required,uuid"`
	FolderName  string  `json:"folder_name,omitempty"`
	SkipRelated bool    `json:"skip_related,omitempty"`
	RequestedBy *string `json:"requested_by,omitempty"`
}

type fetchMultiRequest struct {
	ASINs       []string `json:"asins" validate:"required,min=1,dive,required"`
	Marketplace string   `json:"marketplace" validate:"required"`
	FolderID    string   `json:"folder_id" validate:"required,uuid"`
	FolderName  string   `json:"folder_name,omitempty"`
	RequestedBy *string  `json:"requested_by,omitempty"`
}

type manualEntryRequest struct {
	ASIN        string  `json:"asin" validate:"required"`
	Marketplace string  `json:"marketplace" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Brand       string  `json:"brand" validate:"required"`
	PriceAmount string  `json:"price_amount" validate:"required"`
	Currency    string  `json:"currency" validate:"required"`
	Link        string  `json:"link" validate:"required"`
	ImageURL    string  `json:"image_url" validate:"required"`
	FolderID    string  `json:"folder_id" validate:"required,uuid"`
	FolderName  string  `json:"folder_name,omitempty"`
	RequestedBy *string `json:"requested_by,omitempty"`
}

type searchRequest struct {
	Term        string `json:"term" validate:"required"`
	Marketplace string `json:"marketplace" validate:"required"`
}

type fetchProductResponse struct {
	Product     *productResponse        `json:"product"`
	Comparison  *comparisonResponse     `json:"comparison"`
	Suggestions []suggestion.Suggestion `json:"suggestions,omitempty"`
	Videos      videoResultResponse     `json:"videos"`
}

type fetchMultiResponse struct {
	Comparison  *comparisonResponse `json:"comparison"`
	MyProduct   *productResponse    `json:"my_product"`
	Competitors []*productResponse  `json:"competitors"`
	Errors      []ingest.ItemError  `json:"errors,omitempty"`
}

type manualEntryResponse struct {
	Product    *productResponse    `json:"product"`
	Comparison *comparisonResponse `json:"comparison"`
}

type productResponse struct {
	ID           uuid.UUID        `json:"id"`
	ASIN         string           `json:"asin"`
	Marketplace  string           `json:"marketplace"`
	Title        string           `json:"title"`
	Brand        *string          `json:"brand,omitempty"`
	PriceAmount  *decimal.Decimal `json:"price_amount,omitempty"`
	Currency     *string          `json:"currency,omitempty"`
	Rating       *float64         `json:"rating,omitempty"`
	RatingsTotal *int             `json:"ratings_total,omitempty"`
	MainImageURL *string          `json:"main_image_url,omitempty"`
	ImageURLs    []string         `json:"image_urls,omitempty"`
	ImagesCount  int              `json:"images_count"`
	HasVideo     bool             `json:"has_video"`
	DataQuality  string           `json:"data_quality"`
	IsMyProduct  bool             `json:"is_my_product"`
	ComparisonID *uuid.UUID       `json:"comparison_id,omitempty"`
	FetchedAt    time.Time        `json:"fetched_at"`
}

type comparisonResponse struct {
	ID            uuid.UUID `json:"id"`
	FolderID      uuid.UUID `json:"folder_id"`
	Name          string    `json:"name"`
	Marketplace   string    `json:"marketplace"`
	MyProductASIN *string   `json:"my_product_asin,omitempty"`
	Status        string    `json:"status"`
}

type videoResultResponse struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func productPayload(product *models.Product) *productResponse {
	if product == nil {
		return nil
	}
	return &productResponse{
		ID:           product.ID,
		ASIN:         product.ASIN,
		Marketplace:  product.Marketplace,
		Title:        product.Title,
		Brand:        product.Brand,
		PriceAmount:  product.PriceAmount,
		Currency:     product.Currency,
		Rating:       product.Rating,
		RatingsTotal: product.RatingsTotal,
		MainImageURL: product.MainImageURL,
		ImageURLs:    product.ImageURLs,
		ImagesCount:  product.ImagesCount,
		HasVideo:     product.HasVideo,
		DataQuality:  string(product.DataQuality),
		IsMyProduct:  product.IsMyProduct,
		ComparisonID: product.ComparisonID,
		FetchedAt:    product.FetchedAt,
	}
}

func comparisonPayload(comparison *models.Comparison) *comparisonResponse {
	if comparison == nil {
		return nil
	}
	return &comparisonResponse{
		ID:            comparison.ID,
		FolderID:      comparison.FolderID,
		Name:          comparison.Name,
		Marketplace:   comparison.Marketplace,
		MyProductASIN: comparison.MyProductASIN,
		Status:        string(comparison.Status),
	}
}

func videoResultPayload(videos catalog.VideoResult) videoResultResponse {
	return videoResultResponse{
		Inserted: videos.Inserted,
		Skipped:  videos.Skipped,
		Failed:   videos.Failed,
	}
}

func parseUUIDField(raw, field string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return parsed, nil
}
