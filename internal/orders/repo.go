package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/distribridge/pkg/db"
	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/angelmondragon/distribridge/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	claimConstraint = "ux_supplier_orders_claim"
	defaultLimit    = 500
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Claim inserts a pending ledger row. The unique key on
// (shop, storefront_order_id, distributor_id) is the forwarding lock: the
// insert itself decides ownership, so concurrent deliveries of the same
// webhook cannot both win. Callers must never look the row up first.
func (r *repository) Claim(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, claimConstraint) {
			return ErrAlreadyClaimed
		}
		return err
	}
	return nil
}

func (r *repository) RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error {
	return r.update(ctx, id, []string{"status", "deal_id", "error_message", "updated_at"}, &models.Order{
		Status:       outcome.Status,
		DealID:       outcome.DealID,
		ErrorMessage: outcome.ErrorMessage,
	})
}

// DeleteClaim releases a claim that produced nothing to submit.
func (r *repository) DeleteClaim(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByStatuses returns orders in any of statuses, least recently checked first.
func (r *repository) ListByStatuses(ctx context.Context, statuses []enums.OrderStatus, limit int) ([]models.Order, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("last_status_check_at IS NOT NULL").
		Order("last_status_check_at ASC").
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListByShop returns a shop's ledger rows, newest first.
func (r *repository) ListByShop(ctx context.Context, shop string, filter ListFilter) ([]models.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	q := r.db.WithContext(ctx).Where("shop = ?", shop)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var orders []models.Order
	if err := q.Order("created_at DESC").Order("own_order_id ASC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) error {
	checked := update.CheckedAt
	if checked.IsZero() {
		checked = time.Now().UTC()
	}
	return r.update(ctx, id, []string{"status", "tracking_number", "serial_numbers", "last_status_check_at", "updated_at"}, &models.Order{
		Status:            update.Status,
		TrackingNumber:    update.TrackingNumber,
		SerialNumbers:     update.SerialNumbers,
		LastStatusCheckAt: &checked,
	})
}

// update writes the selected columns, zero values included.
func (r *repository) update(ctx context.Context, id uuid.UUID, columns []string, values *models.Order) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Select(columns).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
