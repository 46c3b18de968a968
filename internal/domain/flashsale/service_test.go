package flashsale_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bazaar/bazaar-api/internal/domain/flashsale"
)

/* =========================
   In-memory stubs
   ========================= */

type stubRepo struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*flashsale.Campaign
	orders    map[string]*flashsale.SaleReceipt
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		campaigns: make(map[uuid.UUID]*flashsale.Campaign),
		orders:    make(map[string]*flashsale.SaleReceipt),
	}
}

func (r *stubRepo) Create(_ context.Context, c *flashsale.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.campaigns {
		if existing.Slug == c.Slug {
			return flashsale.ErrDuplicateSlug
		}
	}
	clone := *c
	r.campaigns[c.ID] = &clone
	return nil
}

func (r *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*flashsale.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, flashsale.ErrCampaignNotFound
	}
	clone := *c
	clone.Allocations = append([]flashsale.Allocation(nil), c.Allocations...)
	return &clone, nil
}

func (r *stubRepo) GetBySlug(_ context.Context, slug string) (*flashsale.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.campaigns {
		if c.Slug == slug {
			clone := *c
			return &clone, nil
		}
	}
	return nil, flashsale.ErrCampaignNotFound
}

func (r *stubRepo) List(_ context.Context, _ flashsale.ListFilter) ([]flashsale.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]flashsale.Campaign, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *stubRepo) ListVisible(_ context.Context, _, _ int) ([]flashsale.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	out := make([]flashsale.Campaign, 0)
	for _, c := range r.campaigns {
		if c.Visible(now) {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (r *stubRepo) UpdateApproval(_ context.Context, id uuid.UUID, status flashsale.ApprovalStatus, reviewerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return flashsale.ErrCampaignNotFound
	}
	if c.ApprovalStatus != flashsale.ApprovalPending {
		return flashsale.ErrInvalidStateTransition
	}
	c.ApprovalStatus = status
	c.ReviewedBy = uuid.NullUUID{UUID: reviewerID, Valid: true}
	return nil
}

func (r *stubRepo) Delete(_ context.Context, id uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return "", flashsale.ErrCampaignNotFound
	}
	delete(r.campaigns, id)
	return c.BannerURL.String, nil
}

func (r *stubRepo) AddAllocations(_ context.Context, campaignID uuid.UUID, allocations []flashsale.Allocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return flashsale.ErrCampaignNotFound
	}
	for _, a := range allocations {
		for _, existing := range c.Allocations {
			if existing.ProductID == a.ProductID {
				return flashsale.ErrDuplicateAllocation
			}
		}
		c.Allocations = append(c.Allocations, a)
	}
	return nil
}

func (r *stubRepo) GetAllocation(_ context.Context, campaignID, productID uuid.UUID) (*flashsale.Allocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.findAllocation(campaignID, productID)
	if err != nil {
		return nil, err
	}
	clone := *a
	return &clone, nil
}

func (r *stubRepo) UpdateAllocation(_ context.Context, campaignID, productID uuid.UUID, salePrice *int64, stockLimit *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.findAllocation(campaignID, productID)
	if err != nil {
		return err
	}
	if salePrice != nil {
		a.SalePrice = *salePrice
	}
	if stockLimit != nil {
		a.StockLimit = *stockLimit
	}
	return nil
}

func (r *stubRepo) DeleteAllocation(_ context.Context, campaignID, productID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[campaignID]
	if !ok {
		return flashsale.ErrCampaignNotFound
	}
	for i := range c.Allocations {
		if c.Allocations[i].ProductID == productID {
			c.Allocations = append(c.Allocations[:i], c.Allocations[i+1:]...)
			return nil
		}
	}
	return flashsale.ErrAllocationNotFound
}

func (r *stubRepo) RecordSale(_ context.Context, campaignID, productID uuid.UUID, quantity int, idempotencyKey string) (*flashsale.SaleReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.orders[idempotencyKey]; ok {
		if prior.CampaignID != campaignID || prior.ProductID != productID || prior.Quantity != quantity {
			return nil, flashsale.ErrSaleReferenceConflict
		}
		replay := *prior
		replay.Replayed = true
		return &replay, nil
	}

	a, err := r.findAllocation(campaignID, productID)
	if err != nil {
		return nil, err
	}
	if a.SoldCount+quantity > a.StockLimit {
		return nil, flashsale.ErrInsufficientAllocation
	}
	a.SoldCount += quantity

	c := r.campaigns[campaignID]
	c.TotalPurchases += int64(quantity)
	c.TotalRevenue += a.SalePrice * int64(quantity)

	receipt := &flashsale.SaleReceipt{
		OrderID:    uuid.New(),
		CampaignID: campaignID,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  a.SalePrice,
		CreatedAt:  time.Now(),
	}
	r.orders[idempotencyKey] = receipt
	clone := *receipt
	return &clone, nil
}

func (r *stubRepo) IncrementTraffic(_ context.Context, id uuid.UUID, views, clicks int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return flashsale.ErrCampaignNotFound
	}
	c.TotalViews += views
	c.TotalClicks += clicks
	return nil
}

func (r *stubRepo) findAllocation(campaignID, productID uuid.UUID) (*flashsale.Allocation, error) {
	c, ok := r.campaigns[campaignID]
	if !ok {
		return nil, flashsale.ErrCampaignNotFound
	}
	for i := range c.Allocations {
		if c.Allocations[i].ProductID == productID {
			return &c.Allocations[i], nil
		}
	}
	return nil, flashsale.ErrAllocationNotFound
}

type stubCatalog struct {
	products map[uuid.UUID]flashsale.ProductInfo
}

func (c *stubCatalog) ProductSnapshot(_ context.Context, productID uuid.UUID) (*flashsale.ProductInfo, error) {
	p, ok := c.products[productID]
	if !ok {
		return nil, flashsale.ErrProductNotFound
	}
	return &p, nil
}

type stubMedia struct {
	mu      sync.Mutex
	removed []string
}

func (m *stubMedia) Remove(_ context.Context, publicURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, publicURL)
	return nil
}

/* =========================
   Fixtures
   ========================= */

func newTestService(repo *stubRepo, catalog *stubCatalog) *flashsale.Service {
	return flashsale.NewService(repo, catalog, nil, nil, nil)
}

func seedCampaign(t *testing.T, repo *stubRepo, status flashsale.ApprovalStatus, start, end time.Time, allocations ...flashsale.Allocation) *flashsale.Campaign {
	t.Helper()
	c := &flashsale.Campaign{
		ID:             uuid.New(),
		ShopID:         uuid.New(),
		Name:           "Weekend Tech Deals",
		Slug:           fmt.Sprintf("weekend-tech-%s", uuid.NewString()[:8]),
		StartsAt:       start,
		EndsAt:         end,
		ApprovalStatus: status,
	}
	for i := range allocations {
		allocations[i].CampaignID = c.ID
	}
	c.Allocations = allocations
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return c
}

/* =========================
   Creation
   ========================= */

func TestCreateRejectsInvertedSchedule(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubCatalog{})

	now := time.Now()
	_, err := svc.Create(context.Background(), uuid.New(), &flashsale.CreateCampaignRequest{
		Name:     "Backwards",
		Slug:     "backwards",
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(time.Hour),
	})
	if !errors.Is(err, flashsale.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule for starts_at == ends_at, got %v", err)
	}

	_, err = svc.Create(context.Background(), uuid.New(), &flashsale.CreateCampaignRequest{
		Name:     "Backwards",
		Slug:     "backwards",
		StartsAt: now.Add(2 * time.Hour),
		EndsAt:   now.Add(time.Hour),
	})
	if !errors.Is(err, flashsale.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule for starts_at > ends_at, got %v", err)
	}
}

func TestCreateValidatesAllocationsAgainstCatalog(t *testing.T) {
	productID := uuid.New()
	catalog := &stubCatalog{products: map[uuid.UUID]flashsale.ProductInfo{
		productID: {Price: 10000, Stock: 50},
	}}
	svc := newTestService(newStubRepo(), catalog)

	now := time.Now()
	base := flashsale.CreateCampaignRequest{
		Name:     "Deals",
		Slug:     "deals",
		StartsAt: now.Add(time.Hour),
		EndsAt:   now.Add(2 * time.Hour),
	}

	cases := []struct {
		name  string
		input flashsale.AllocationInput
		want  error
	}{
		{"unknown product", flashsale.AllocationInput{ProductID: uuid.New(), SalePrice: 5000, StockLimit: 5}, flashsale.ErrProductNotFound},
		{"price at catalog price", flashsale.AllocationInput{ProductID: productID, SalePrice: 10000, StockLimit: 5}, flashsale.ErrInvalidPrice},
		{"price above catalog price", flashsale.AllocationInput{ProductID: productID, SalePrice: 12000, StockLimit: 5}, flashsale.ErrInvalidPrice},
		{"limit above stock", flashsale.AllocationInput{ProductID: productID, SalePrice: 5000, StockLimit: 51}, flashsale.ErrInvalidStockLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			req.Products = []flashsale.AllocationInput{tc.input}
			_, err := svc.Create(context.Background(), uuid.New(), &req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	req := base
	req.Products = []flashsale.AllocationInput{
		{ProductID: productID, SalePrice: 5000, StockLimit: 5},
		{ProductID: productID, SalePrice: 4000, StockLimit: 3},
	}
	if _, err := svc.Create(context.Background(), uuid.New(), &req); !errors.Is(err, flashsale.ErrDuplicateAllocation) {
		t.Fatalf("expected ErrDuplicateAllocation for repeated product, got %v", err)
	}
}

func TestCreateStartsPending(t *testing.T) {
	productID := uuid.New()
	catalog := &stubCatalog{products: map[uuid.UUID]flashsale.ProductInfo{
		productID: {Price: 10000, Stock: 50},
	}}
	repo := newStubRepo()
	svc := newTestService(repo, catalog)

	now := time.Now()
	campaign, err := svc.Create(context.Background(), uuid.New(), &flashsale.CreateCampaignRequest{
		Name:     "Deals",
		Slug:     "deals",
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
		Products: []flashsale.AllocationInput{{ProductID: productID, SalePrice: 5000, StockLimit: 10}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if campaign.ApprovalStatus != flashsale.ApprovalPending {
		t.Fatalf("new campaign must start pending, got %s", campaign.ApprovalStatus)
	}

	// Pending campaigns are invisible to the storefront even mid-window
	if _, err := svc.GetVisibleBySlug(context.Background(), "deals"); !errors.Is(err, flashsale.ErrCampaignNotFound) {
		t.Fatalf("pending campaign must not be visible, got %v", err)
	}
}

/* =========================
   Moderation
   ========================= */

func TestApprovalTransitions(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubCatalog{})
	now := time.Now()

	campaign := seedCampaign(t, repo, flashsale.ApprovalPending, now.Add(time.Hour), now.Add(2*time.Hour))
	reviewer := uuid.New()

	if err := svc.Approve(context.Background(), campaign.ID, reviewer); err != nil {
		t.Fatalf("approve pending failed: %v", err)
	}
	if err := svc.Approve(context.Background(), campaign.ID, reviewer); !errors.Is(err, flashsale.ErrInvalidStateTransition) {
		t.Fatalf("re-approve must fail with ErrInvalidStateTransition, got %v", err)
	}
	if err := svc.Reject(context.Background(), campaign.ID, reviewer); !errors.Is(err, flashsale.ErrInvalidStateTransition) {
		t.Fatalf("reject after approve must fail with ErrInvalidStateTransition, got %v", err)
	}

	if err := svc.Approve(context.Background(), uuid.New(), reviewer); !errors.Is(err, flashsale.ErrCampaignNotFound) {
		t.Fatalf("approve of missing campaign must fail with ErrCampaignNotFound, got %v", err)
	}
}

/* =========================
   Allocation management
   ========================= */

func TestUpdateAllocationCheckOrdering(t *testing.T) {
	productID := uuid.New()
	catalog := &stubCatalog{products: map[uuid.UUID]flashsale.ProductInfo{
		productID: {Price: 10000, Stock: 50},
	}}
	repo := newStubRepo()
	svc := newTestService(repo, catalog)
	now := time.Now()

	// Already started, so allocation edits are locked
	locked := seedCampaign(t, repo, flashsale.ApprovalApproved, now.Add(-time.Hour), now.Add(time.Hour),
		flashsale.Allocation{ID: uuid.New(), ProductID: productID, SalePrice: 5000, StockLimit: 10})

	newPrice := int64(4000)
	req := &flashsale.UpdateAllocationRequest{SalePrice: &newPrice}

	// Missing campaign wins over everything
	if _, err := svc.UpdateAllocation(context.Background(), uuid.New(), productID, req); !errors.Is(err, flashsale.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
	// Missing allocation wins over the schedule lock
	if _, err := svc.UpdateAllocation(context.Background(), locked.ID, uuid.New(), req); !errors.Is(err, flashsale.ErrAllocationNotFound) {
		t.Fatalf("expected ErrAllocationNotFound before lock check, got %v", err)
	}
	// The lock wins over value validation
	badPrice := int64(99999)
	if _, err := svc.UpdateAllocation(context.Background(), locked.ID, productID, &flashsale.UpdateAllocationRequest{SalePrice: &badPrice}); !errors.Is(err, flashsale.ErrCampaignLocked) {
		t.Fatalf("expected ErrCampaignLocked before price check, got %v", err)
	}
}

func TestUpdateAllocationBeforeStart(t *testing.T) {
	productID := uuid.New()
	catalog := &stubCatalog{products: map[uuid.UUID]flashsale.ProductInfo{
		productID: {Price: 10000, Stock: 50},
	}}
	repo := newStubRepo()
	svc := newTestService(repo, catalog)
	now := time.Now()

	campaign := seedCampaign(t, repo, flashsale.ApprovalPending, now.Add(time.Hour), now.Add(2*time.Hour),
		flashsale.Allocation{ID: uuid.New(), ProductID: productID, SalePrice: 5000, StockLimit: 10})

	newPrice := int64(4000)
	newLimit := 20
	allocation, err := svc.UpdateAllocation(context.Background(), campaign.ID, productID, &flashsale.UpdateAllocationRequest{
		SalePrice:  &newPrice,
		StockLimit: &newLimit,
	})
	if err != nil {
		t.Fatalf("update before start failed: %v", err)
	}
	if allocation.SalePrice != newPrice || allocation.StockLimit != newLimit {
		t.Fatalf("allocation not updated: price=%d limit=%d", allocation.SalePrice, allocation.StockLimit)
	}

	badLimit := 51
	if _, err := svc.UpdateAllocation(context.Background(), campaign.ID, productID, &flashsale.UpdateAllocationRequest{StockLimit: &badLimit}); !errors.Is(err, flashsale.ErrInvalidStockLimit) {
		t.Fatalf("expected ErrInvalidStockLimit, got %v", err)
	}
}

func TestAddAndRemoveProducts(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	catalog := &stubCatalog{products: map[uuid.UUID]flashsale.ProductInfo{
		first:  {Price: 10000, Stock: 50},
		second: {Price: 8000, Stock: 30},
	}}
	repo := newStubRepo()
	svc := newTestService(repo, catalog)
	now := time.Now()

	campaign := seedCampaign(t, repo, flashsale.ApprovalPending, now.Add(time.Hour), now.Add(2*time.Hour),
		flashsale.Allocation{ID: uuid.New(), ProductID: first, SalePrice: 5000, StockLimit: 10})

	updated, err := svc.AddProducts(context.Background(), campaign.ID, &flashsale.AddProductsRequest{
		Products: []flashsale.AllocationInput{{ProductID: second, SalePrice: 4000, StockLimit: 5}},
	})
	if err != nil {
		t.Fatalf("add products failed: %v", err)
	}
	if len(updated.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(updated.Allocations))
	}

	// Adding a product already in the campaign is rejected
	_, err = svc.AddProducts(context.Background(), campaign.ID, &flashsale.AddProductsRequest{
		Products: []flashsale.AllocationInput{{ProductID: second, SalePrice: 3000, StockLimit: 2}},
	})
	if !errors.Is(err, flashsale.ErrDuplicateAllocation) {
		t.Fatalf("expected ErrDuplicateAllocation, got %v", err)
	}

	if err := svc.RemoveProduct(context.Background(), campaign.ID, second); err != nil {
		t.Fatalf("remove product failed: %v", err)
	}
	if err := svc.RemoveProduct(context.Background(), campaign.ID, second); !errors.Is(err, flashsale.ErrAllocationNotFound) {
		t.Fatalf("expected ErrAllocationNotFound on second removal, got %v", err)
	}
}

/* =========================
   Sale recording
   ========================= */

func TestRecordSaleConcurrentDepletion(t *testing.T) {
	productID := uuid.New()
	repo := newStubRepo()
	svc := newTestService(repo, &stubCatalog{})
	now := time.Now()

	campaign := seedCampaign(t, repo, flashsale.ApprovalApproved, now.Add(-time.Hour), now.Add(time.Hour),
		flashsale.Allocation{ID: uuid.New(), ProductID: productID, SalePrice: 5000, StockLimit: 5})

	const buyers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	success := 0

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.RecordSale(context.Background(), &flashsale.RecordSaleRequest{
				CampaignID:     campaign.ID,
				ProductID:      productID,
				Quantity:       1,
				IdempotencyKey: fmt.Sprintf("order-%d", i),
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			if !errors.Is(err, flashsale.ErrInsufficientAllocation) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 5 {
		t.Fatalf("expected exactly 5 recorded sales, got %d", success)
	}

	got, err := repo.GetAllocation(context.Background(), campaign.ID, productID)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if got.SoldCount != 5 || got.Remaining() != 0 {
		t.Fatalf("expected sold=5 remaining=0, got sold=%d remaining=%d", got.SoldCount, got.Remaining())
	}

	stats, err := svc.Stats(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPurchases != 5 || stats.TotalRevenue != 25000 {
		t.Fatalf("expected purchases=5 revenue=25000, got purchases=%d revenue=%d", stats.TotalPurchases, stats.TotalRevenue)
	}
}

func TestRecordSaleIdempotentReplay(t *testing.T) {
	productID := uuid.New()
	repo := newStubRepo()
	svc := newTestService(repo, &stubCatalog{})
	now := time.Now()

	campaign := seedCampaign(t, repo, flashsale.ApprovalApproved, now.Add(-time.Hour), now.Add(time.Hour),
		flashsale.Allocation{ID: uuid.New(), ProductID: productID, SalePrice: 5000, StockLimit: 10})

	req := &flashsale.RecordSaleRequest{
		CampaignID:     campaign.ID,
		ProductID:      productID,
		Quantity:       3,
		IdempotencyKey: "checkout-42",
	}

	first, err := svc.RecordSale(context.Background(), req)
	if err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if first.Replayed {
		t.Fatal("first record must not be a replay")
	}

	second, err := svc.RecordSale(context.Background(), req)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !second.Replayed {
		t.Fatal("retry must be reported as a replay")
	}
	if second.OrderID != first.OrderID {
		t.Fatalf("replay must return the original order, got %s and %s", first.OrderID, second.OrderID)
	}

	got, err := repo.GetAllocation(context.Background(), campaign.ID, productID)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if got.SoldCount != 3 {
		t.Fatalf("replay must not deplete again, sold=%d", got.SoldCount)
	}

	// Same key with a different payload is a conflict, not a replay
	conflicting := *req
	conflicting.Quantity = 5
	if _, err := svc.RecordSale(context.Background(), &conflicting); !errors.Is(err, flashsale.ErrSaleReferenceConflict) {
		t.Fatalf("expected ErrSaleReferenceConflict, got %v", err)
	}
}

func TestRecordSaleRequiresVisibleCampaign(t *testing.T) {
	productID := uuid.New()
	repo := newStubRepo()
	svc := newTestService(repo, &stubCatalog{})
	now := time.Now()

	cases := []struct {
		name   string
		status flashsale.ApprovalStatus
		start  time.Time
		end    time.Time
	}{
		{"pending mid-window", flashsale.ApprovalPending, now.Add(-time.Hour), now.Add(time.Hour)},
		{"rejected mid-window", flashsale.ApprovalRejected, now.Add(-time.Hour), now.Add(time.Hour)},
		{"approved but upcoming", flashsale.ApprovalApproved, now.Add(time.Hour), now.Add(2 * time.Hour)},
		{"approved but ended", flashsale.ApprovalApproved, now.Add(-2 * time.Hour), now.Add(-time.Hour)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			campaign := seedCampaign(t, repo, tc.status, tc.start, tc.end,
				flashsale.Allocation{ID: uuid.New(), ProductID: productID, SalePrice: 5000, StockLimit: 10})

			_, err := svc.RecordSale(context.Background(), &flashsale.RecordSaleRequest{
				CampaignID:     campaign.ID,
				ProductID:      productID,
				Quantity:       1,
				IdempotencyKey: uuid.NewString(),
			})
			if !errors.Is(err, flashsale.ErrCampaignNotActive) {
				t.Fatalf("expected ErrCampaignNotActive, got %v", err)
			}
		})
	}
}

func TestRecordSaleUnknownProduct(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubCatalog{})
	now := time.Now()

	campaign := seedCampaign(t, repo, flashsale.ApprovalApproved, now.Add(-time.Hour), now.Add(time.Hour))

	_, err := svc.RecordSale(context.Background(), &flashsale.RecordSaleRequest{
		CampaignID:     campaign.ID,
		ProductID:      uuid.New(),
		Quantity:       1,
		IdempotencyKey: uuid.NewString(),
	})
	if !errors.Is(err, flashsale.ErrAllocationNotFound) {
		t.Fatalf("expected ErrAllocationNotFound, got %v", err)
	}
}

/* =========================
   Deletion
   ========================= */

func TestDeleteRemovesBannerObject(t *testing.T) {
	repo := newStubRepo()
	media := &stubMedia{}
	svc := flashsale.NewService(repo, &stubCatalog{}, media, nil, nil)
	now := time.Now()

	campaign := seedCampaign(t, repo, flashsale.ApprovalApproved, now.Add(-time.Hour), now.Add(time.Hour))
	campaign.BannerURL.String = "https://cdn.example.com/banners/weekend.jpg"
	campaign.BannerURL.Valid = true
	repo.campaigns[campaign.ID].BannerURL = campaign.BannerURL

	if err := svc.Delete(context.Background(), campaign.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), campaign.ID); !errors.Is(err, flashsale.ErrCampaignNotFound) {
		t.Fatalf("campaign must be gone, got %v", err)
	}

	if len(media.removed) != 1 || media.removed[0] != "https://cdn.example.com/banners/weekend.jpg" {
		t.Fatalf("banner object not removed: %v", media.removed)
	}

	if err := svc.Delete(context.Background(), campaign.ID); !errors.Is(err, flashsale.ErrCampaignNotFound) {
		t.Fatalf("second delete must fail with ErrCampaignNotFound, got %v", err)
	}
}

/* =========================
   Traffic counters
   ========================= */

func TestTrafficFallsBackToRepository(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubCatalog{})
	now := time.Now()

	campaign := seedCampaign(t, repo, flashsale.ApprovalApproved, now.Add(-time.Hour), now.Add(time.Hour))

	for i := 0; i < 3; i++ {
		if err := svc.RecordView(context.Background(), campaign.ID); err != nil {
			t.Fatalf("record view: %v", err)
		}
	}
	if err := svc.RecordClick(context.Background(), campaign.ID); err != nil {
		t.Fatalf("record click: %v", err)
	}

	stats, err := svc.Stats(context.Background(), campaign.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalViews != 3 || stats.TotalClicks != 1 {
		t.Fatalf("expected views=3 clicks=1, got views=%d clicks=%d", stats.TotalViews, stats.TotalClicks)
	}
}
