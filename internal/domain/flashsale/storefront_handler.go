package flashsale

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bazaar/bazaar-api/internal/pkg/response"
)

// StorefrontHandler serves the public, unauthenticated flash sale surface.
// It only ever exposes effectively visible campaigns.
type StorefrontHandler struct {
	service *Service
}

// NewStorefrontHandler creates the public flash sale handler
func NewStorefrontHandler(service *Service) *StorefrontHandler {
	return &StorefrontHandler{service: service}
}

// List handles GET /storefront/flash-sales
func (h *StorefrontHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}
	limit := 20
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	campaigns, total, err := h.service.ListVisible(r.Context(), page, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list visible flash sales")
		response.InternalError(w)
		return
	}

	now := h.service.now()
	items := make([]*CampaignResponse, 0, len(campaigns))
	for i := range campaigns {
		items = append(items, campaigns[i].ToResponse(now))
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// GetBySlug handles GET /storefront/flash-sales/{campaign}
func (h *StorefrontHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "campaign")

	campaign, err := h.service.GetVisibleBySlug(r.Context(), slug)
	if err != nil {
		response.NotFound(w, "Flash sale not found")
		return
	}

	response.OK(w, campaign.ToResponse(h.service.now()))
}

// RecordView handles POST /storefront/flash-sales/{campaign}/views
func (h *StorefrontHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	h.recordTraffic(w, r, h.service.RecordView)
}

// RecordClick handles POST /storefront/flash-sales/{campaign}/clicks
func (h *StorefrontHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	h.recordTraffic(w, r, h.service.RecordClick)
}

// recordTraffic accepts the campaign ID or, for page-embedded clients that
// only know the public URL, its slug.
func (h *StorefrontHandler) recordTraffic(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) error) {
	param := chi.URLParam(r, "campaign")

	id, err := uuid.Parse(param)
	if err != nil {
		campaign, err := h.service.GetVisibleBySlug(r.Context(), param)
		if err != nil {
			response.NotFound(w, "Flash sale not found")
			return
		}
		id = campaign.ID
	}

	if err := fn(r.Context(), id); err != nil {
		// Counting must never break the storefront; log and accept
		log.Warn().Err(err).Str("campaign_id", id.String()).Msg("Failed to record storefront traffic")
	}

	response.NoContent(w)
}
