package products

import (
	"time"

	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrackedProductDTO is the admin API view of a tracked product.
type TrackedProductDTO struct {
	ID                  uuid.UUID        `json:"id"`
	Shop                string           `json:"shop"`
	SupplierSKU         string           `json:"supplier_sku"`
	SupplierProductID   string           `json:"supplier_product_id"`
	Title               string           `json:"title"`
	StorefrontProductID string           `json:"storefront_product_id"`
	StorefrontVariantID string           `json:"storefront_variant_id"`
	DistributorID       string           `json:"distributor_id"`
	DistributorName     string           `json:"distributor_name"`
	Category            string           `json:"category"`
	ShippingMode        string           `json:"shipping_mode"`
	ContractID          *string          `json:"contract_id,omitempty"`
	ImportPrice         *decimal.Decimal `json:"import_price,omitempty"`
	LastStock           *int             `json:"last_stock,omitempty"`
	LastPrice           *decimal.Decimal `json:"last_price,omitempty"`
	LastSyncAt          *time.Time       `json:"last_sync_at,omitempty"`
	PriceAlert          bool             `json:"price_alert"`
	CreatedAt           time.Time        `json:"created_at"`
}

// FromModel maps a tracked product row to its DTO.
func FromModel(p models.TrackedProduct) TrackedProductDTO {
	return TrackedProductDTO{
		ID:                  p.ID,
		Shop:                p.Shop,
		SupplierSKU:         p.SupplierSKU,
		SupplierProductID:   p.SupplierProductID,
		Title:               p.Title,
		StorefrontProductID: p.StorefrontProductID,
		StorefrontVariantID: p.StorefrontVariantID,
		DistributorID:       p.DistributorID,
		DistributorName:     p.DistributorName,
		Category:            p.Category.String(),
		ShippingMode:        p.ShippingMode.String(),
		ContractID:          p.ContractID,
		ImportPrice:         p.ImportPrice,
		LastStock:           p.LastStock,
		LastPrice:           p.LastPrice,
		LastSyncAt:          p.LastSyncAt,
		PriceAlert:          p.PriceAlert,
		CreatedAt:           p.CreatedAt,
	}
}
