package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/distribridge/pkg/enums"
)

// TrackedProduct mirrors one supplier SKU as one storefront product/variant for a shop.
// At most one active row exists per (shop, supplier_sku).
type TrackedProduct struct {
	ID                        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Shop                      string                `gorm:"column:shop;not null"`
	SupplierSKU               string                `gorm:"column:supplier_sku;not null"`
	SupplierProductID         string                `gorm:"column:supplier_product_id;not null"`
	Title                     string                `gorm:"column:title;not null;default:''"`
	StorefrontProductID       string                `gorm:"column:storefront_product_id;not null"`
	StorefrontVariantID       string                `gorm:"column:storefront_variant_id;not null;default:''"`
	StorefrontInventoryItemID string                `gorm:"column:storefront_inventory_item_id;not null;default:''"`
	DistributorID             string                `gorm:"column:distributor_id;not null"`
	DistributorName           string                `gorm:"column:distributor_name;not null;default:''"`
	Category                  enums.ProductCategory `gorm:"column:category;type:text;not null;default:'physical'"`
	ShippingMode              enums.ShippingMode    `gorm:"column:shipping_mode;type:text;not null;default:'warehouse'"`
	ContractID                *string               `gorm:"column:contract_id"`
	ImportPrice               *decimal.Decimal      `gorm:"column:import_price;type:numeric(12,2)"`
	LastStock                 *int                  `gorm:"column:last_stock"`
	LastPrice                 *decimal.Decimal      `gorm:"column:last_price;type:numeric(12,2)"`
	LastSyncAt                *time.Time            `gorm:"column:last_sync_at"`
	PriceAlert                bool                  `gorm:"column:price_alert;not null;default:false"`
	Active                    bool                  `gorm:"column:active;not null;default:true"`
	CreatedAt                 time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                 time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// ReferencePrice is the baseline a new supplier price is compared against:
// the import price when known, else the last observed price, else zero.
func (p TrackedProduct) ReferencePrice() decimal.Decimal {
	if p.ImportPrice != nil {
		return *p.ImportPrice
	}
	if p.LastPrice != nil {
		return *p.LastPrice
	}
	return decimal.Zero
}

// IsDropship reports whether the distributor ships straight to the end customer.
func (p TrackedProduct) IsDropship() bool {
	return p.ShippingMode == enums.ShippingModeDropship
}
