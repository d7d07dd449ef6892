package shops

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/distribridge/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles shop persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to shop operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert inserts the shop or refreshes the stored session and merchant data
// for an existing domain. A reinstall clears uninstalled_at.
func (r *Repository) Upsert(ctx context.Context, shop *models.Shop) error {
	if shop == nil {
		return fmt.Errorf("shop is required")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "domain"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "default_location_id", "supplier_customer_number",
			"company_name", "contact_name", "street", "postal_code", "city",
			"country_code", "email", "phone", "uninstalled_at", "updated_at",
		}),
	}).Create(shop).Error
}

// FindByDomain loads a shop by its normalized domain.
func (r *Repository) FindByDomain(ctx context.Context, domain string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("domain = ?", domain).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// ListActive returns every installed shop ordered by domain.
func (r *Repository) ListActive(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	if err := r.db.WithContext(ctx).
		Where("uninstalled_at IS NULL").
		Order("domain ASC").
		Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

// SetDefaultLocation caches the resolved stock location for a shop.
func (r *Repository) SetDefaultLocation(ctx context.Context, domain, locationID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("domain = ?", domain).
		Updates(map[string]any{"default_location_id": locationID, "updated_at": time.Now().UTC()}).Error
}

// MarkUninstalled hides a shop from the reconciliation loops.
func (r *Repository) MarkUninstalled(ctx context.Context, domain string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("domain = ?", domain).
		Updates(map[string]any{"uninstalled_at": at, "updated_at": at}).Error
}
