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
)

// AddAllocations appends allocations to an existing campaign
func (r *Repository) AddAllocations(ctx context.Context, campaignID uuid.UUID, allocations []Allocation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var nextPosition int
	if err := tx.GetContext(ctx, &nextPosition, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM flash_sale_allocations WHERE campaign_id = $1
	`, campaignID); err != nil {
		return err
	}

	for i := range allocations {
		allocations[i].Position = nextPosition + i
	}
	if err := insertAllocations(ctx, tx, allocations); err != nil {
		return err
	}

	return tx.Commit()
}

func insertAllocations(ctx context.Context, tx *sqlx.Tx, allocations []Allocation) error {
	for i := range allocations {
		a := &allocations[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flash_sale_allocations (
				id, campaign_id, product_id, sale_price, stock_limit,
				sold_count, position, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			a.ID,
			a.CampaignID,
			a.ProductID,
			a.SalePrice,
			a.StockLimit,
			a.SoldCount,
			a.Position,
			a.CreatedAt,
			a.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "flash_sale_allocations_campaign_product_key") {
				return ErrDuplicateAllocation
			}
			return err
		}
	}
	return nil
}

// GetAllocation returns one allocation by campaign and product
func (r *Repository) GetAllocation(ctx context.Context, campaignID, productID uuid.UUID) (*Allocation, error) {
	var a Allocation
	err := r.db.GetContext(ctx, &a, fmt.Sprintf(`
		SELECT %s FROM flash_sale_allocations
		WHERE campaign_id = $1 AND product_id = $2
	`, allocationColumns), campaignID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAllocationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAllocation adjusts the sale price and/or stock limit of one allocation
func (r *Repository) UpdateAllocation(ctx context.Context, campaignID, productID uuid.UUID, salePrice *int64, stockLimit *int) error {
	sets := []string{"updated_at = now()"}
	args := []interface{}{campaignID, productID}

	if salePrice != nil {
		args = append(args, *salePrice)
		sets = append(sets, fmt.Sprintf("sale_price = $%d", len(args)))
	}
	if stockLimit != nil {
		args = append(args, *stockLimit)
		sets = append(sets, fmt.Sprintf("stock_limit = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE flash_sale_allocations SET %s
		WHERE campaign_id = $1 AND product_id = $2
	`, strings.Join(sets, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAllocationNotFound
	}
	return nil
}

// DeleteAllocation removes one product from a campaign. Its depletion
// history is discarded with it.
func (r *Repository) DeleteAllocation(ctx context.Context, campaignID, productID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM flash_sale_allocations
		WHERE campaign_id = $1 AND product_id = $2
	`, campaignID, productID)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrAllocationNotFound
	}
	return nil
}

// RecordSale depletes discounted units and books the purchase into the
// campaign stats as one transaction. The depletion is a conditional update:
// it only commits when the requested quantity still fits under the stock
// limit, so concurrent sales of the last units serialize on the row lock and
// exactly one of two competing requests for the final unit wins.
//
// The idempotency key makes retries safe: a key seen before replays the
// recorded receipt instead of depleting again.
func (r *Repository) RecordSale(ctx context.Context, campaignID, productID uuid.UUID, quantity int, idempotencyKey string) (*SaleReceipt, error) {
	receipt, err := r.recordSale(ctx, campaignID, productID, quantity, idempotencyKey)
	if err == nil {
		return receipt, nil
	}

	// A concurrent request with the same key can win the unique-index race
	// on flash_sale_orders; our transaction rolls back and the committed
	// row becomes the answer.
	if isUniqueViolation(err, "flash_sale_orders_idempotency_key_key") {
		return r.replaySale(ctx, campaignID, productID, quantity, idempotencyKey)
	}
	return nil, err
}

func (r *Repository) recordSale(ctx context.Context, campaignID, productID uuid.UUID, quantity int, idempotencyKey string) (*SaleReceipt, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Replay check for retried requests
	var existing SaleReceipt
	err = tx.GetContext(ctx, &existing, `
		SELECT id, campaign_id, product_id, quantity, unit_price, created_at
		FROM flash_sale_orders
		WHERE idempotency_key = $1
	`, idempotencyKey)
	if err == nil {
		if existing.CampaignID != campaignID || existing.ProductID != productID || existing.Quantity != quantity {
			return nil, ErrSaleReferenceConflict
		}
		existing.Replayed = true
		return &existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// Conditional depletion, the only place sold_count moves
	var unitPrice int64
	err = tx.QueryRowContext(ctx, `
		UPDATE flash_sale_allocations
		SET sold_count = sold_count + $3, updated_at = now()
		WHERE campaign_id = $1 AND product_id = $2 AND sold_count + $3 <= stock_limit
		RETURNING sale_price
	`, campaignID, productID, quantity).Scan(&unitPrice)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `
			SELECT EXISTS (
				SELECT 1 FROM flash_sale_allocations
				WHERE campaign_id = $1 AND product_id = $2
			)
		`, campaignID, productID); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrAllocationNotFound
		}
		return nil, ErrInsufficientAllocation
	}
	if err != nil {
		return nil, err
	}

	receipt := &SaleReceipt{
		OrderID:    uuid.New(),
		CampaignID: campaignID,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		CreatedAt:  time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO flash_sale_orders (id, campaign_id, product_id, quantity, unit_price, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		receipt.OrderID,
		receipt.CampaignID,
		receipt.ProductID,
		receipt.Quantity,
		receipt.UnitPrice,
		idempotencyKey,
		receipt.CreatedAt,
	); err != nil {
		return nil, err
	}

	// Purchases and revenue commit with the depletion
	if _, err := tx.ExecContext(ctx, `
		UPDATE flash_sale_campaigns
		SET total_purchases = total_purchases + $2,
			total_revenue = total_revenue + $3,
			updated_at = now()
		WHERE id = $1
	`, campaignID, quantity, unitPrice*int64(quantity)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (r *Repository) replaySale(ctx context.Context, campaignID, productID uuid.UUID, quantity int, idempotencyKey string) (*SaleReceipt, error) {
	var existing SaleReceipt
	err := r.db.GetContext(ctx, &existing, `
		SELECT id, campaign_id, product_id, quantity, unit_price, created_at
		FROM flash_sale_orders
		WHERE idempotency_key = $1
	`, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing.CampaignID != campaignID || existing.ProductID != productID || existing.Quantity != quantity {
		return nil, ErrSaleReferenceConflict
	}
	existing.Replayed = true
	return &existing, nil
}
