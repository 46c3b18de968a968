package flashsale

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus represents the moderation state of a campaign
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// TemporalState represents where a campaign sits relative to its schedule
type TemporalState string

const (
	StateUpcoming TemporalState = "upcoming"
	StateActive   TemporalState = "active"
	StateEnded    TemporalState = "ended"
)

// BannerType represents the media type of a campaign banner
type BannerType string

const (
	BannerImage BannerType = "image"
	BannerVideo BannerType = "video"
)

// Campaign represents a flash sale: a time-boxed promotional event bundling
// discounted product allocations. Deleting a campaign removes the whole
// aggregate (allocations, order ledger, stats, banner object).
type Campaign struct {
	ID     uuid.UUID `db:"id"`
	ShopID uuid.UUID `db:"shop_id"`

	// Display metadata
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Slug        string         `db:"slug"`
	BannerURL   sql.NullString `db:"banner_url"`
	BannerType  BannerType     `db:"banner_type"`
	IsFeatured  bool           `db:"is_featured"`

	// Schedule, immutable after creation
	StartsAt time.Time `db:"starts_at"`
	EndsAt   time.Time `db:"ends_at"`

	// Moderation
	ApprovalStatus ApprovalStatus `db:"approval_status"`
	ReviewedBy     uuid.NullUUID  `db:"reviewed_by"`
	ReviewedAt     sql.NullTime   `db:"reviewed_at"`

	Stats

	Allocations []Allocation `db:"-"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Allocation binds one product to one campaign with a capped, depleting
// discount inventory. A product appears at most once per campaign.
type Allocation struct {
	ID         uuid.UUID `db:"id"`
	CampaignID uuid.UUID `db:"campaign_id"`
	ProductID  uuid.UUID `db:"product_id"`
	SalePrice  int64     `db:"sale_price"` // cents
	StockLimit int       `db:"stock_limit"`
	SoldCount  int       `db:"sold_count"`
	Position   int       `db:"position"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Remaining returns the depletable discount inventory left on the allocation
func (a *Allocation) Remaining() int {
	if a.SoldCount >= a.StockLimit {
		return 0
	}
	return a.StockLimit - a.SoldCount
}

// Stats holds the campaign's monotonic counters. Purchases and revenue are
// committed in the same transaction as the allocation depletion; views and
// clicks may lag behind while buffered.
type Stats struct {
	TotalViews     int64 `db:"total_views"`
	TotalClicks    int64 `db:"total_clicks"`
	TotalPurchases int64 `db:"total_purchases"`
	TotalRevenue   int64 `db:"total_revenue"` // cents
}

// SaleReceipt is the committed outcome of a recorded sale. Replayed is set
// when the idempotency key matched a previously recorded sale.
type SaleReceipt struct {
	OrderID    uuid.UUID `db:"id"`
	CampaignID uuid.UUID `db:"campaign_id"`
	ProductID  uuid.UUID `db:"product_id"`
	Quantity   int       `db:"quantity"`
	UnitPrice  int64     `db:"unit_price"`
	Replayed   bool      `db:"-"`
	CreatedAt  time.Time `db:"created_at"`
}
