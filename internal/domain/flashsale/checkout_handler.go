package flashsale

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/bazaar/bazaar-api/internal/pkg/response"
	"github.com/bazaar/bazaar-api/internal/pkg/validator"
)

// CheckoutHandler serves the service-to-service surface used by the
// checkout pipeline to record confirmed discounted purchases
type CheckoutHandler struct {
	service *Service
}

// NewCheckoutHandler creates the checkout-facing handler
func NewCheckoutHandler(service *Service) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// RecordSale handles POST /internal/checkout/sales
func (h *CheckoutHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req RecordSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	receipt, err := h.service.RecordSale(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrCampaignNotFound):
			response.NotFound(w, "Campaign not found")
		case errors.Is(err, ErrAllocationNotFound):
			response.NotFound(w, "Product is not part of this campaign")
		case errors.Is(err, ErrCampaignNotActive):
			response.Conflict(w, "CAMPAIGN_NOT_ACTIVE", "Campaign is not currently running")
		case errors.Is(err, ErrInsufficientAllocation):
			response.Conflict(w, "SOLD_OUT", "Not enough discounted stock remaining")
		case errors.Is(err, ErrSaleReferenceConflict):
			response.Conflict(w, "IDEMPOTENCY_CONFLICT", "Idempotency key was already used with a different sale")
		default:
			log.Error().Err(err).
				Str("campaign_id", req.CampaignID.String()).
				Str("idempotency_key", req.IdempotencyKey).
				Msg("Failed to record sale")
			response.InternalError(w)
		}
		return
	}

	if receipt.Replayed {
		response.OK(w, receipt.ToSaleResponse())
		return
	}
	response.Created(w, receipt.ToSaleResponse())
}
