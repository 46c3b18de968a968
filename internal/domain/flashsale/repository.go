package flashsale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const campaignColumns = `id, shop_id, name, description, slug, banner_url, banner_type,
	starts_at, ends_at, approval_status, reviewed_by, reviewed_at, is_featured,
	total_views, total_clicks, total_purchases, total_revenue, created_at, updated_at`

const allocationColumns = `id, campaign_id, product_id, sale_price, stock_limit,
	sold_count, position, created_at, updated_at`

// Repository handles flash sale database operations. It owns both the
// campaign records and the per-product allocation ledger.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new flash sale repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new campaign together with its initial allocations
func (r *Repository) Create(ctx context.Context, c *Campaign) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flash_sale_campaigns (
			id, shop_id, name, description, slug, banner_url, banner_type,
			starts_at, ends_at, approval_status, is_featured, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		c.ID,
		c.ShopID,
		c.Name,
		c.Description,
		c.Slug,
		c.BannerURL,
		c.BannerType,
		c.StartsAt,
		c.EndsAt,
		c.ApprovalStatus,
		c.IsFeatured,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "flash_sale_campaigns_slug_key") {
			return ErrDuplicateSlug
		}
		return err
	}

	if err := insertAllocations(ctx, tx, c.Allocations); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID returns a campaign with its allocations
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetBySlug returns a campaign with its allocations by its unique slug
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Campaign, error) {
	return r.getBy(ctx, "slug = $1", slug)
}

func (r *Repository) getBy(ctx context.Context, where string, arg interface{}) (*Campaign, error) {
	var c Campaign
	err := r.db.GetContext(ctx, &c, fmt.Sprintf(`
		SELECT %s FROM flash_sale_campaigns WHERE %s
	`, campaignColumns, where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.SelectContext(ctx, &c.Allocations, fmt.Sprintf(`
		SELECT %s FROM flash_sale_allocations
		WHERE campaign_id = $1
		ORDER BY position, created_at
	`, allocationColumns), c.ID); err != nil {
		return nil, err
	}

	return &c, nil
}

// List returns campaigns matching the filter, newest first, with the total
// count for pagination. Allocations are not loaded for listings.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Campaign, int, error) {
	where, args := buildListWhere(filter, time.Now().UTC())

	var total int
	countQuery := "SELECT COUNT(*) FROM flash_sale_campaigns" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	query := fmt.Sprintf(`
		SELECT %s FROM flash_sale_campaigns%s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d
	`, campaignColumns, where, limit, (page-1)*limit)

	var campaigns []Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ListVisible returns approved campaigns currently inside their sale window,
// featured ones first, with their allocations loaded.
func (r *Repository) ListVisible(ctx context.Context, page, limit int) ([]Campaign, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	const visibleWhere = ` WHERE approval_status = 'approved' AND now() BETWEEN starts_at AND ends_at`

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM flash_sale_campaigns"+visibleWhere); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM flash_sale_campaigns%s
		ORDER BY is_featured DESC, starts_at
		LIMIT %d OFFSET %d
	`, campaignColumns, visibleWhere, limit, (page-1)*limit)

	var campaigns []Campaign
	if err := r.db.SelectContext(ctx, &campaigns, query); err != nil {
		return nil, 0, err
	}

	for i := range campaigns {
		if err := r.db.SelectContext(ctx, &campaigns[i].Allocations, fmt.Sprintf(`
			SELECT %s FROM flash_sale_allocations
			WHERE campaign_id = $1
			ORDER BY position, created_at
		`, allocationColumns), campaigns[i].ID); err != nil {
			return nil, 0, err
		}
	}

	return campaigns, total, nil
}

// UpdateApproval moves a pending campaign to approved or rejected, recording
// the moderator. Non-pending campaigns fail with ErrInvalidStateTransition.
func (r *Repository) UpdateApproval(ctx context.Context, id uuid.UUID, status ApprovalStatus, reviewerID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE flash_sale_campaigns
		SET approval_status = $2, reviewed_by = $3, reviewed_at = now(), updated_at = now()
		WHERE id = $1 AND approval_status = 'pending'
	`, id, status, reviewerID)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	// Distinguish a missing campaign from one already moderated
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM flash_sale_campaigns WHERE id = $1)`, id); err != nil {
		return err
	}
	if !exists {
		return ErrCampaignNotFound
	}
	return ErrInvalidStateTransition
}

// Delete irreversibly removes the campaign aggregate. Allocations and the
// order ledger go with it via ON DELETE CASCADE. Returns the banner URL so
// the caller can clean up the media object.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	var bannerURL sql.NullString
	err := r.db.QueryRowContext(ctx, `
		DELETE FROM flash_sale_campaigns WHERE id = $1 RETURNING banner_url
	`, id).Scan(&bannerURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrCampaignNotFound
	}
	if err != nil {
		return "", err
	}
	return bannerURL.String, nil
}

// IncrementTraffic adds buffered view/click counts to a campaign.
// Counts for campaigns deleted since buffering are dropped silently.
func (r *Repository) IncrementTraffic(ctx context.Context, id uuid.UUID, views, clicks int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE flash_sale_campaigns
		SET total_views = total_views + $2,
			total_clicks = total_clicks + $3,
			updated_at = now()
		WHERE id = $1
	`, id, views, clicks)
	return err
}

func buildListWhere(filter ListFilter, now time.Time) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ApprovalStatus != "" {
		conditions = append(conditions, "approval_status = "+arg(filter.ApprovalStatus))
	}
	if filter.Featured != nil {
		conditions = append(conditions, "is_featured = "+arg(*filter.Featured))
	}
	switch filter.State {
	case StateUpcoming:
		conditions = append(conditions, arg(now)+" < starts_at")
	case StateActive:
		conditions = append(conditions, arg(now)+" BETWEEN starts_at AND ends_at")
	case StateEnded:
		conditions = append(conditions, arg(now)+" > ends_at")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
