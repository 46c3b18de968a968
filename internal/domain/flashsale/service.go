package flashsale

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bazaar/bazaar-api/internal/pkg/metrics"
)

// CampaignRepository is the persistence surface the service depends on
type CampaignRepository interface {
	Create(ctx context.Context, c *Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	GetBySlug(ctx context.Context, slug string) (*Campaign, error)
	List(ctx context.Context, filter ListFilter) ([]Campaign, int, error)
	ListVisible(ctx context.Context, page, limit int) ([]Campaign, int, error)
	UpdateApproval(ctx context.Context, id uuid.UUID, status ApprovalStatus, reviewerID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) (string, error)
	AddAllocations(ctx context.Context, campaignID uuid.UUID, allocations []Allocation) error
	GetAllocation(ctx context.Context, campaignID, productID uuid.UUID) (*Allocation, error)
	UpdateAllocation(ctx context.Context, campaignID, productID uuid.UUID, salePrice *int64, stockLimit *int) error
	DeleteAllocation(ctx context.Context, campaignID, productID uuid.UUID) error
	RecordSale(ctx context.Context, campaignID, productID uuid.UUID, quantity int, idempotencyKey string) (*SaleReceipt, error)
	IncrementTraffic(ctx context.Context, id uuid.UUID, views, clicks int64) error
}

// ProductInfo is the catalog snapshot used to validate an allocation at
// creation time. Later catalog drift is not re-validated.
type ProductInfo struct {
	Price int64
	Stock int
}

// ProductCatalog supplies product snapshots from the external catalog
type ProductCatalog interface {
	ProductSnapshot(ctx context.Context, productID uuid.UUID) (*ProductInfo, error)
}

// MediaStore removes banner objects owned by deleted campaigns
type MediaStore interface {
	Remove(ctx context.Context, publicURL string) error
}

// TrafficCounter accumulates view/click counters, possibly buffered
type TrafficCounter interface {
	AddView(ctx context.Context, campaignID uuid.UUID) error
	AddClick(ctx context.Context, campaignID uuid.UUID) error
}

// Service implements the flash sale lifecycle: campaign creation, the
// moderation workflow, allocation management and sale recording.
type Service struct {
	repo    CampaignRepository
	catalog ProductCatalog
	media   MediaStore
	traffic TrafficCounter
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates a flash sale service. media, traffic and m may be nil.
func NewService(repo CampaignRepository, catalog ProductCatalog, media MediaStore, traffic TrafficCounter, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		media:   media,
		traffic: traffic,
		metrics: m,
		now:     time.Now,
	}
}

// Create validates and stores a new campaign. It starts life pending
// moderation; the schedule is immutable from here on.
func (s *Service) Create(ctx context.Context, shopID uuid.UUID, req *CreateCampaignRequest) (*Campaign, error) {
	if !req.StartsAt.Before(req.EndsAt) {
		return nil, ErrInvalidSchedule
	}

	allocations, err := s.buildAllocations(ctx, req.Products, nil)
	if err != nil {
		return nil, err
	}

	bannerType := BannerImage
	if req.BannerType != "" {
		bannerType = BannerType(req.BannerType)
	}

	now := s.now().UTC()
	campaign := &Campaign{
		ID:             uuid.New(),
		ShopID:         shopID,
		Name:           req.Name,
		Description:    sql.NullString{String: req.Description, Valid: req.Description != ""},
		Slug:           req.Slug,
		BannerURL:      sql.NullString{String: req.BannerURL, Valid: req.BannerURL != ""},
		BannerType:     bannerType,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		ApprovalStatus: ApprovalPending,
		IsFeatured:     req.IsFeatured,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for i := range allocations {
		allocations[i].CampaignID = campaign.ID
		allocations[i].Position = i
	}
	campaign.Allocations = allocations

	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Get returns a campaign by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns campaigns matching the admin filter
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Campaign, int, error) {
	return s.repo.List(ctx, filter)
}

// ListVisible returns campaigns exposable on the storefront
func (s *Service) ListVisible(ctx context.Context, page, limit int) ([]Campaign, int, error) {
	campaigns, total, err := s.repo.ListVisible(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	// The SQL window filter uses database time; re-derive visibility so a
	// campaign sliding out of its window between query and response is
	// never exposed.
	now := s.now()
	visible := campaigns[:0]
	for i := range campaigns {
		if campaigns[i].Visible(now) {
			visible = append(visible, campaigns[i])
		}
	}
	return visible, total, nil
}

// GetVisibleBySlug returns a storefront campaign by slug. Campaigns that are
// not effectively visible are reported as absent, not as forbidden.
func (s *Service) GetVisibleBySlug(ctx context.Context, slug string) (*Campaign, error) {
	campaign, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !campaign.Visible(s.now()) {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

// Approve moves a pending campaign to approved
func (s *Service) Approve(ctx context.Context, id, reviewerID uuid.UUID) error {
	return s.repo.UpdateApproval(ctx, id, ApprovalApproved, reviewerID)
}

// Reject moves a pending campaign to rejected. Rejecting an already
// rejected campaign is an error, not a no-op.
func (s *Service) Reject(ctx context.Context, id, reviewerID uuid.UUID) error {
	return s.repo.UpdateApproval(ctx, id, ApprovalRejected, reviewerID)
}

// Delete irreversibly removes the campaign aggregate in any approval state,
// then cleans up its banner object
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	bannerURL, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if s.media != nil && bannerURL != "" {
		if err := s.media.Remove(ctx, bannerURL); err != nil {
			log.Warn().Err(err).Str("campaign_id", id.String()).Msg("Failed to remove campaign banner")
		}
	}
	return nil
}

// AddProducts validates and appends allocations to a campaign
func (s *Service) AddProducts(ctx context.Context, campaignID uuid.UUID, req *AddProductsRequest) (*Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	allocations, err := s.buildAllocations(ctx, req.Products, campaign.Allocations)
	if err != nil {
		return nil, err
	}

	for i := range allocations {
		allocations[i].CampaignID = campaignID
	}
	if err := s.repo.AddAllocations(ctx, campaignID, allocations); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, campaignID)
}

// RemoveProduct removes one product's allocation from a campaign
func (s *Service) RemoveProduct(ctx context.Context, campaignID, productID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, campaignID); err != nil {
		return err
	}
	return s.repo.DeleteAllocation(ctx, campaignID, productID)
}

// UpdateAllocation adjusts the cap and/or price of one allocation.
// Checks run in a fixed order so callers can tell error classes apart:
// campaign existence, allocation existence, then the schedule lock, then
// the new values against a fresh catalog snapshot.
func (s *Service) UpdateAllocation(ctx context.Context, campaignID, productID uuid.UUID, req *UpdateAllocationRequest) (*Allocation, error) {
	campaign, err := s.repo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetAllocation(ctx, campaignID, productID); err != nil {
		return nil, err
	}

	if campaign.Locked(s.now()) {
		return nil, ErrCampaignLocked
	}

	if req.SalePrice != nil || req.StockLimit != nil {
		product, err := s.productSnapshot(ctx, productID)
		if err != nil {
			return nil, err
		}
		if req.SalePrice != nil {
			if err := validateSalePrice(*req.SalePrice, product); err != nil {
				return nil, err
			}
		}
		if req.StockLimit != nil {
			if err := validateStockLimit(*req.StockLimit, product); err != nil {
				return nil, err
			}
		}
	}

	if err := s.repo.UpdateAllocation(ctx, campaignID, productID, req.SalePrice, req.StockLimit); err != nil {
		return nil, err
	}
	return s.repo.GetAllocation(ctx, campaignID, productID)
}

// RecordSale depletes discounted inventory when the checkout pipeline
// confirms a purchase. Checks run in order: campaign existence, effective
// visibility, then remaining capacity inside the atomic depletion.
func (s *Service) RecordSale(ctx context.Context, req *RecordSaleRequest) (*SaleReceipt, error) {
	campaign, err := s.repo.GetByID(ctx, req.CampaignID)
	if err != nil {
		s.countSale("error")
		return nil, err
	}
	if !campaign.Visible(s.now()) {
		s.countSale("rejected")
		return nil, ErrCampaignNotActive
	}

	receipt, err := s.repo.RecordSale(ctx, req.CampaignID, req.ProductID, req.Quantity, req.IdempotencyKey)
	if err != nil {
		if err == ErrInsufficientAllocation {
			s.countSale("insufficient")
		} else {
			s.countSale("error")
		}
		return nil, err
	}

	if receipt.Replayed {
		s.countSale("replayed")
		return receipt, nil
	}

	s.countSale("recorded")
	if s.metrics != nil {
		s.metrics.UnitsSold.Add(float64(receipt.Quantity))
		s.metrics.Revenue.Add(float64(receipt.UnitPrice * int64(receipt.Quantity)))
	}
	return receipt, nil
}

// Stats returns the engagement counters of a campaign
func (s *Service) Stats(ctx context.Context, id uuid.UUID) (*Stats, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &campaign.Stats, nil
}

// RecordView logs a storefront view. Views are accepted regardless of
// approval or schedule; reads racing a transition still count.
func (s *Service) RecordView(ctx context.Context, campaignID uuid.UUID) error {
	if s.metrics != nil {
		s.metrics.Views.Inc()
	}
	if s.traffic != nil {
		return s.traffic.AddView(ctx, campaignID)
	}
	return s.repo.IncrementTraffic(ctx, campaignID, 1, 0)
}

// RecordClick logs a storefront click
func (s *Service) RecordClick(ctx context.Context, campaignID uuid.UUID) error {
	if s.metrics != nil {
		s.metrics.Clicks.Inc()
	}
	if s.traffic != nil {
		return s.traffic.AddClick(ctx, campaignID)
	}
	return s.repo.IncrementTraffic(ctx, campaignID, 0, 1)
}

func (s *Service) buildAllocations(ctx context.Context, inputs []AllocationInput, existing []Allocation) ([]Allocation, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	seen := make(map[uuid.UUID]bool, len(existing)+len(inputs))
	for i := range existing {
		seen[existing[i].ProductID] = true
	}

	now := s.now().UTC()
	allocations := make([]Allocation, 0, len(inputs))
	for _, input := range inputs {
		if seen[input.ProductID] {
			return nil, ErrDuplicateAllocation
		}
		seen[input.ProductID] = true

		product, err := s.productSnapshot(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
		if err := validateSalePrice(input.SalePrice, product); err != nil {
			return nil, err
		}
		if err := validateStockLimit(input.StockLimit, product); err != nil {
			return nil, err
		}

		allocations = append(allocations, Allocation{
			ID:         uuid.New(),
			ProductID:  input.ProductID,
			SalePrice:  input.SalePrice,
			StockLimit: input.StockLimit,
			SoldCount:  0,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return allocations, nil
}

func (s *Service) productSnapshot(ctx context.Context, productID uuid.UUID) (*ProductInfo, error) {
	product, err := s.catalog.ProductSnapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *Service) countSale(result string) {
	if s.metrics != nil {
		s.metrics.SaleResults.WithLabelValues(result).Inc()
	}
}

func validateSalePrice(salePrice int64, product *ProductInfo) error {
	if salePrice <= 0 || salePrice >= product.Price {
		return ErrInvalidPrice
	}
	return nil
}

func validateStockLimit(stockLimit int, product *ProductInfo) error {
	if stockLimit <= 0 || stockLimit > product.Stock {
		return ErrInvalidStockLimit
	}
	return nil
}
