package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dariomedina/shelfrival-backend/api/responses"
	"github.com/dariomedina/shelfrival-backend/api/validators"
	"github.com/dariomedina/shelfrival-backend/internal/catalog"
	comparison "github.com/dariomedina/shelfrival-backend/internal/comparisons"
	"github.com/dariomedina/shelfrival-backend/internal/ingest"
	"github.com/dariomedina/shelfrival-backend/pkg/db/models"
	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/logger"
)

// ComparisonDetail returns one comparison with its products and ordered
// competitor links for the dashboard view.
func ComparisonDetail(comparisonSvc comparison.Service, catalogSvc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if comparisonSvc == nil || catalogSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "comparison service unavailable"))
			return
		}

		comparisonID, err := parseUUIDField(chi.URLParam(r, "comparisonId"), "comparison id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := comparisonSvc.GetDetail(r.Context(), comparisonID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := catalogSvc.ListByComparison(r.Context(), comparisonID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := comparisonDetailResponse{
			Comparison: comparisonPayload(detail.Comparison),
			Links:      make([]competitorLinkResponse, 0, len(detail.Links)),
			Products:   make([]*productResponse, 0, len(products)),
		}
		for _, link := range detail.Links {
			payload.Links = append(payload.Links, linkPayload(link))
		}
		for i := range products {
			payload.Products = append(payload.Products, productPayload(&products[i]))
		}

		responses.WriteSuccess(w, payload)
	}
}

// AppendCompetitors adds ASINs to a comparison and hydrates their product
// data, inline or through the background queue.
func AppendCompetitors(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		comparisonID, err := parseUUIDField(chi.URLParam(r, "comparisonId"), "comparison id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload appendCompetitorsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		metadata := make([]ingest.CompetitorMetadata, 0, len(payload.Metadata))
		for _, meta := range payload.Metadata {
			metadata = append(metadata, ingest.CompetitorMetadata{ASIN: meta.ASIN, MatchScore: meta.MatchScore})
		}

		outcome, err := svc.AppendCompetitors(r.Context(), ingest.AppendInput{
			ComparisonID:      comparisonID,
			ASINs:             payload.ASINs,
			Metadata:          metadata,
			AddedBy:           payload.AddedBy,
			FetchInBackground: payload.FetchInBackground,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, appendCompetitorsResponse{
			Added:             outcome.Added,
			ExistingCount:     outcome.Existing,
			DuplicatesSkipped: outcome.DuplicatesSkipped,
			Hydrated:          outcome.Hydrated,
			Enqueued:          outcome.Enqueued,
			Errors:            outcome.Errors,
		})
	}
}

type appendCompetitorsRequest struct {
	ASINs             []string                    `json:"asins" validate:"required,min=1,dive,required"`
	Metadata          []competitorMetadataRequest `json:"competitor_metadata,omitempty" validate:"omitempty,dive"`
	AddedBy           *string                     `json:"added_by,omitempty"`
	FetchInBackground bool                        `json:"fetch_in_background,omitempty"`
}

type competitorMetadataRequest struct {
	ASIN       string   `json:"asin" validate:"required"`
	MatchScore *float64 `json:"match_score,omitempty"`
}

type appendCompetitorsResponse struct {
	Added             int                `json:"added"`
	ExistingCount     int                `json:"existing_count"`
	DuplicatesSkipped int                `json:"duplicates_skipped"`
	Hydrated          int                `json:"hydrated"`
	Enqueued          int                `json:"enqueued"`
	Errors            []ingest.ItemError `json:"errors,omitempty"`
}

type comparisonDetailResponse struct {
	Comparison *comparisonResponse      `json:"comparison"`
	Links      []competitorLinkResponse `json:"links"`
	Products   []*productResponse       `json:"products"`
}

type competitorLinkResponse struct {
	ID         uuid.UUID `json:"id"`
	ASIN       string    `json:"asin"`
	Position   int       `json:"position"`
	Visible    bool      `json:"visible"`
	MatchScore *float64  `json:"match_score,omitempty"`
	AddedBy    *string   `json:"added_by,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

func linkPayload(link models.CompetitorLink) competitorLinkResponse {
	return competitorLinkResponse{
		ID:         link.ID,
		ASIN:       link.ASIN,
		Position:   link.Position,
		Visible:    link.Visible,
		MatchScore: link.MatchScore,
		AddedBy:    link.AddedBy,
		AddedAt:    link.AddedAt,
	}
}
