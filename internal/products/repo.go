package products

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines persistence operations for tracked products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.TrackedProduct, error)
	FindActiveBySKU(ctx context.Context, shop, sku string) (*models.TrackedProduct, error)
	FindActiveByStorefrontProductIDs(ctx context.Context, shop string, productIDs []string) ([]models.TrackedProduct, error)
	ListActiveByShop(ctx context.Context, shop string) ([]models.TrackedProduct, error)
	ListActiveShops(ctx context.Context) ([]string, error)
	CreateReplacingInactive(ctx context.Context, product *models.TrackedProduct) error
	UpdateSync(ctx context.Context, id uuid.UUID, update SyncUpdate) error
	SetContractID(ctx context.Context, id uuid.UUID, contractID *string) error
	DismissAlert(ctx context.Context, id uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// SyncUpdate carries the values one reconciliation pass writes back.
type SyncUpdate struct {
	Stock      *int
	Price      *decimal.Decimal
	PriceAlert bool
	SyncedAt   time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a tracked-product repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TrackedProduct, error) {
	var product models.TrackedProduct
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindActiveBySKU(ctx context.Context, shop, sku string) (*models.TrackedProduct, error) {
	var product models.TrackedProduct
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND supplier_sku = ? AND active = ?", shop, sku, true).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindActiveByStorefrontProductIDs(ctx context.Context, shop string, productIDs []string) ([]models.TrackedProduct, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var products []models.TrackedProduct
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND active = ? AND storefront_product_id IN ?", shop, true, productIDs).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListActiveByShop(ctx context.Context, shop string) ([]models.TrackedProduct, error) {
	var products []models.TrackedProduct
	if err := r.db.WithContext(ctx).
		Where("shop = ? AND active = ?", shop, true).
		Order("supplier_sku ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) ListActiveShops(ctx context.Context) ([]string, error) {
	var shops []string
	if err := r.db.WithContext(ctx).
		Model(&models.TrackedProduct{}).
		Distinct("shop").
		Where("active = ?", true).
		Order("shop ASC").
		Pluck("shop", &shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

// CreateReplacingInactive physically removes a soft-deleted row for the same
// (shop, supplier_sku) before inserting, so re-imports never collide with
// history. An active duplicate still fails on the partial unique index.
func (r *repository) CreateReplacingInactive(ctx context.Context, product *models.TrackedProduct) error {
	if product == nil {
		return fmt.Errorf("product is required")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("shop = ? AND supplier_sku = ? AND active = ?", product.Shop, product.SupplierSKU, false).
			Delete(&models.TrackedProduct{}).Error; err != nil {
			return err
		}
		return tx.Create(product).Error
	})
}

func (r *repository) UpdateSync(ctx context.Context, id uuid.UUID, update SyncUpdate) error {
	return r.updates(ctx, id, map[string]any{
		"last_stock":   update.Stock,
		"last_price":   update.Price,
		"price_alert":  update.PriceAlert,
		"last_sync_at": update.SyncedAt,
	})
}

func (r *repository) SetContractID(ctx context.Context, id uuid.UUID, contractID *string) error {
	return r.updates(ctx, id, map[string]any{"contract_id": contractID})
}

func (r *repository) DismissAlert(ctx context.Context, id uuid.UUID) error {
	return r.updates(ctx, id, map[string]any{"price_alert": false})
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.updates(ctx, id, map[string]any{"active": false})
}

func (r *repository) updates(ctx context.Context, id uuid.UUID, values map[string]any) error {
	values["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.TrackedProduct{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
