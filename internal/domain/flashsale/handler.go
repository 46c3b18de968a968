package flashsale

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bazaar/bazaar-api/internal/middleware"
	"github.com/bazaar/bazaar-api/internal/pkg/response"
	"github.com/bazaar/bazaar-api/internal/pkg/validator"
)

// Handler handles flash sale admin HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates flash sale handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /flash-sales
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	shopID := middleware.GetActorID(r.Context())
	campaign, err := h.service.Create(r.Context(), shopID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSchedule):
			response.BadRequest(w, "starts_at must be before ends_at")
		case errors.Is(err, ErrDuplicateSlug):
			response.Conflict(w, "DUPLICATE_SLUG", "A campaign with this slug already exists")
		case errors.Is(err, ErrDuplicateAllocation):
			response.Conflict(w, "DUPLICATE_PRODUCT", "The same product appears more than once")
		case errors.Is(err, ErrProductNotFound):
			response.BadRequest(w, "Product not found in catalog")
		case errors.Is(err, ErrInvalidPrice):
			response.BadRequest(w, "Sale price must be positive and below the catalog price")
		case errors.Is(err, ErrInvalidStockLimit):
			response.BadRequest(w, "Stock limit must be positive and within available stock")
		default:
			log.Error().Err(err).Msg("Failed to create flash sale campaign")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, campaign.ToResponse(h.service.now()))
}

// List handles GET /flash-sales
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)

	campaigns, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list flash sale campaigns")
		response.InternalError(w)
		return
	}

	now := h.service.now()
	items := make([]*CampaignResponse, 0, len(campaigns))
	for i := range campaigns {
		items = append(items, campaigns[i].ToResponse(now))
	}

	response.WithMeta(w, items, response.NewMeta(total, filter.Page, filter.Limit))
}

// GetByID handles GET /flash-sales/{id}
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid campaign ID")
		return
	}

	campaign, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondCampaignError(w, err)
		return
	}

	response.OK(w, campaign.ToResponse(h.service.now()))
}

// Delete handles DELETE /flash-sales/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid campaign ID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondCampaignError(w, err)
		return
	}

	response.NoContent(w)
}

// Approve handles POST /flash-sales/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Approve)
}

// Reject handles POST /flash-sales/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

// Stats handles GET /flash-sales/{id}/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid campaign ID")
		return
	}

	stats, err := h.service.Stats(r.Context(), id)
	if err != nil {
		h.respondCampaignError(w, err)
		return
	}

	response.OK(w, StatsResponse{
		TotalViews:     stats.TotalViews,
		TotalClicks:    stats.TotalClicks,
		TotalPurchases: stats.TotalPurchases,
		TotalRevenue:   stats.TotalRevenue,
	})
}

// AddProducts handles POST /flash-sales/{id}/products
func (h *Handler) AddProducts(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid campaign ID")
		return
	}

	var req AddProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	campaign, err := h.service.AddProducts(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			response.NotFound(w, "Campaign not found")
		case errors.Is(err, ErrDuplicateAllocation):
			response.Conflict(w, "DUPLICATE_PRODUCT", "Product is already part of this campaign")
		case errors.Is(err, ErrProductNotFound):
			response.BadRequest(w, "Product not found in catalog")
		case errors.Is(err, ErrInvalidPrice):
			response.BadRequest(w, "Sale price must be positive and below the catalog price")
		case errors.Is(err, ErrInvalidStockLimit):
			response.BadRequest(w, "Stock limit must be positive and within available stock")
		default:
			log.Error().Err(err).Str("campaign_id", id.String()).Msg("Failed to add products to campaign")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, campaign.ToResponse(h.service.now()))
}

// RemoveProduct handles DELETE /flash-sales/{id}/products/{productID}
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id, productID, ok := allocationParams(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveProduct(r.Context(), id, productID); err != nil {
		h.respondAllocationError(w, err)
		return
	}

	response.NoContent(w)
}

// UpdateAllocation handles PATCH /flash-sales/{id}/products/{productID}
func (h *Handler) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	id, productID, ok := allocationParams(w, r)
	if !ok {
		return
	}

	var req UpdateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}
	if req.SalePrice == nil && req.StockLimit == nil {
		response.BadRequest(w, "Nothing to update")
		return
	}

	allocation, err := h.service.UpdateAllocation(r.Context(), id, productID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			response.NotFound(w, "Campaign not found")
		case errors.Is(err, ErrAllocationNotFound):
			response.NotFound(w, "Product is not part of this campaign")
		case errors.Is(err, ErrCampaignLocked):
			response.Conflict(w, "CAMPAIGN_LOCKED", "Allocations cannot change once the campaign has started")
		case errors.Is(err, ErrProductNotFound):
			response.BadRequest(w, "Product not found in catalog")
		case errors.Is(err, ErrInvalidPrice):
			response.BadRequest(w, "Sale price must be positive and below the catalog price")
		case errors.Is(err, ErrInvalidStockLimit):
			response.BadRequest(w, "Stock limit must be positive and within available stock")
		default:
			log.Error().Err(err).Str("campaign_id", id.String()).Msg("Failed to update allocation")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, AllocationResponse{
		ProductID:  allocation.ProductID,
		SalePrice:  allocation.SalePrice,
		StockLimit: allocation.StockLimit,
		SoldCount:  allocation.SoldCount,
		Remaining:  allocation.Remaining(),
	})
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, reviewerID uuid.UUID) error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid campaign ID")
		return
	}

	reviewerID := middleware.GetActorID(r.Context())
	if err := fn(r.Context(), id, reviewerID); err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			response.NotFound(w, "Campaign not found")
		case errors.Is(err, ErrInvalidStateTransition):
			response.Conflict(w, "ALREADY_REVIEWED", "Campaign has already been reviewed")
		default:
			log.Error().Err(err).Str("campaign_id", id.String()).Msg("Failed to review campaign")
			response.InternalError(w)
		}
		return
	}

	campaign, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondCampaignError(w, err)
		return
	}
	response.OK(w, campaign.ToResponse(h.service.now()))
}

func (h *Handler) respondCampaignError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrCampaignNotFound) {
		response.NotFound(w, "Campaign not found")
		return
	}
	log.Error().Err(err).Msg("Flash sale campaign operation failed")
	response.InternalError(w)
}

func (h *Handler) respondAllocationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCampaignNotFound):
		response.NotFound(w, "Campaign not found")
	case errors.Is(err, ErrAllocationNotFound):
		response.NotFound(w, "Product is not part of this campaign")
	default:
		log.Error().Err(err).Msg("Flash sale allocation operation failed")
		response.InternalError(w)
	}
}

func allocationParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid campaign ID")
		return uuid.Nil, uuid.Nil, false
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		response.BadRequest(w, "Invalid product ID")
		return uuid.Nil, uuid.Nil, false
	}
	return id, productID, true
}

func parseListFilter(r *http.Request) ListFilter {
	q := r.URL.Query()

	filter := ListFilter{Page: 1, Limit: 20}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}

	switch status := ApprovalStatus(q.Get("approval_status")); status {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		filter.ApprovalStatus = status
	}
	switch state := TemporalState(q.Get("state")); state {
	case StateUpcoming, StateActive, StateEnded:
		filter.State = state
	}
	if featured := q.Get("featured"); featured != "" {
		v := featured == "true"
		filter.Featured = &v
	}

	return filter
}
