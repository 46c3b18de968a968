package flashsale

import "errors"

var (
	// Lookup errors
	ErrCampaignNotFound   = errors.New("campaign not found")
	ErrAllocationNotFound = errors.New("product is not part of this campaign")
	ErrProductNotFound    = errors.New("product not found in catalog")

	// Creation and edit errors
	ErrInvalidSchedule     = errors.New("campaign start time must be before end time")
	ErrDuplicateSlug       = errors.New("campaign slug already in use")
	ErrDuplicateAllocation = errors.New("product already allocated in this campaign")
	ErrInvalidPrice        = errors.New("sale price must be positive and below the catalog price")
	ErrInvalidStockLimit   = errors.New("stock limit must be positive and within catalog stock")
	ErrCampaignLocked      = errors.New("campaign has started, allocations can no longer be edited")

	// Moderation errors
	ErrInvalidStateTransition = errors.New("campaign is not pending approval")

	// Sale recording errors
	ErrCampaignNotActive      = errors.New("campaign is not approved and active")
	ErrInsufficientAllocation = errors.New("not enough discounted units remaining")
	ErrSaleReferenceConflict  = errors.New("idempotency key was used with a different sale")
)
