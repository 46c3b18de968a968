package flashsale

import (
	"time"

	"github.com/google/uuid"
)

// AllocationInput describes one product joining a campaign
type AllocationInput struct {
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	SalePrice  int64     `json:"sale_price" validate:"required,gt=0"`
	StockLimit int       `json:"stock_limit" validate:"required,gt=0"`
}

// CreateCampaignRequest represents a request to create a flash sale
type CreateCampaignRequest struct {
	Name        string            `json:"name" validate:"required,min=3,max=160"`
	Description string            `json:"description,omitempty" validate:"max=2000"`
	Slug        string            `json:"slug" validate:"required,slug,max=120"`
	BannerURL   string            `json:"banner_url,omitempty" validate:"omitempty,url"`
	BannerType  string            `json:"banner_type,omitempty" validate:"omitempty,banner_type"`
	StartsAt    time.Time         `json:"starts_at" validate:"required"`
	EndsAt      time.Time         `json:"ends_at" validate:"required"`
	IsFeatured  bool              `json:"is_featured,omitempty"`
	Products    []AllocationInput `json:"products,omitempty" validate:"omitempty,dive"`
}

// AddProductsRequest represents a request to add products to a campaign
type AddProductsRequest struct {
	Products []AllocationInput `json:"products" validate:"required,min=1,dive"`
}

// UpdateAllocationRequest adjusts price and/or cap of one allocation.
// Only valid while the campaign has not started.
type UpdateAllocationRequest struct {
	SalePrice  *int64 `json:"sale_price,omitempty" validate:"omitempty,gt=0"`
	StockLimit *int   `json:"stock_limit,omitempty" validate:"omitempty,gt=0"`
}

// RecordSaleRequest is sent by the checkout pipeline when a discounted
// order line is confirmed
type RecordSaleRequest struct {
	CampaignID     uuid.UUID `json:"campaign_id" validate:"required"`
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"required,gt=0"`
	IdempotencyKey string    `json:"idempotency_key" validate:"required,max=128"`
}

// ListFilter filters the admin campaign listing
type ListFilter struct {
	ApprovalStatus ApprovalStatus
	State          TemporalState
	Featured       *bool
	Page           int
	Limit          int
}

// AllocationResponse represents one allocation in API responses
type AllocationResponse struct {
	ProductID  uuid.UUID `json:"product_id"`
	SalePrice  int64     `json:"sale_price"`
	StockLimit int       `json:"stock_limit"`
	SoldCount  int       `json:"sold_count"`
	Remaining  int       `json:"remaining"`
}

// StatsResponse represents campaign counters in API responses
type StatsResponse struct {
	TotalViews     int64 `json:"total_views"`
	TotalClicks    int64 `json:"total_clicks"`
	TotalPurchases int64 `json:"total_purchases"`
	TotalRevenue   int64 `json:"total_revenue"`
}

// CampaignResponse represents a campaign with its derived lifecycle fields
type CampaignResponse struct {
	ID             uuid.UUID            `json:"id"`
	ShopID         uuid.UUID            `json:"shop_id"`
	Name           string               `json:"name"`
	Description    string               `json:"description,omitempty"`
	Slug           string               `json:"slug"`
	BannerURL      string               `json:"banner_url,omitempty"`
	BannerType     BannerType           `json:"banner_type"`
	StartsAt       time.Time            `json:"starts_at"`
	EndsAt         time.Time            `json:"ends_at"`
	ApprovalStatus ApprovalStatus       `json:"approval_status"`
	TemporalState  TemporalState        `json:"temporal_state"`
	Visible        bool                 `json:"visible"`
	IsFeatured     bool                 `json:"is_featured"`
	Allocations    []AllocationResponse `json:"allocations"`
	Stats          StatsResponse        `json:"stats"`
	CreatedAt      time.Time            `json:"created_at"`
}

// SaleResponse is returned to the checkout pipeline after a recorded sale
type SaleResponse struct {
	OrderID    uuid.UUID `json:"order_id"`
	CampaignID uuid.UUID `json:"campaign_id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  int64     `json:"unit_price"`
	Replayed   bool      `json:"replayed"`
}

// ToResponse converts a campaign to its API representation, deriving the
// temporal state and visibility at the given instant
func (c *Campaign) ToResponse(now time.Time) *CampaignResponse {
	allocations := make([]AllocationResponse, 0, len(c.Allocations))
	for i := range c.Allocations {
		a := &c.Allocations[i]
		allocations = append(allocations, AllocationResponse{
			ProductID:  a.ProductID,
			SalePrice:  a.SalePrice,
			StockLimit: a.StockLimit,
			SoldCount:  a.SoldCount,
			Remaining:  a.Remaining(),
		})
	}

	return &CampaignResponse{
		ID:             c.ID,
		ShopID:         c.ShopID,
		Name:           c.Name,
		Description:    c.Description.String,
		Slug:           c.Slug,
		BannerURL:      c.BannerURL.String,
		BannerType:     c.BannerType,
		StartsAt:       c.StartsAt,
		EndsAt:         c.EndsAt,
		ApprovalStatus: c.ApprovalStatus,
		TemporalState:  c.TemporalStateAt(now),
		Visible:        c.Visible(now),
		IsFeatured:     c.IsFeatured,
		Allocations:    allocations,
		Stats: StatsResponse{
			TotalViews:     c.TotalViews,
			TotalClicks:    c.TotalClicks,
			TotalPurchases: c.TotalPurchases,
			TotalRevenue:   c.TotalRevenue,
		},
		CreatedAt: c.CreatedAt,
	}
}

// ToSaleResponse converts a receipt to its API representation
func (r *SaleReceipt) ToSaleResponse() *SaleResponse {
	return &SaleResponse{
		OrderID:    r.OrderID,
		CampaignID: r.CampaignID,
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		UnitPrice:  r.UnitPrice,
		Replayed:   r.Replayed,
	}
}
