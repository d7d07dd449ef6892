package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for local SQLite runs and
// repository tests. Keep both in step.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS shops (
  id TEXT PRIMARY KEY,
  domain TEXT NOT NULL,
  access_token TEXT NOT NULL,
  default_location_id TEXT,
  supplier_customer_number TEXT,
  company_name TEXT NOT NULL DEFAULT '',
  contact_name TEXT NOT NULL DEFAULT '',
  street TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  country_code TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  uninstalled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_shops_domain ON shops (domain)`,
	`CREATE TABLE IF NOT EXISTS tracked_products (
  id TEXT PRIMARY KEY,
  shop TEXT NOT NULL,
  supplier_sku TEXT NOT NULL,
  supplier_product_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  storefront_product_id TEXT NOT NULL,
  storefront_variant_id TEXT NOT NULL DEFAULT '',
  storefront_inventory_item_id TEXT NOT NULL DEFAULT '',
  distributor_id TEXT NOT NULL,
  distributor_name TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT 'physical',
  shipping_mode TEXT NOT NULL DEFAULT 'warehouse',
  contract_id TEXT,
  import_price TEXT,
  last_stock INTEGER,
  last_price TEXT,
  last_sync_at DATETIME,
  price_alert INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_tracked_products_active_sku
  ON tracked_products (shop, supplier_sku) WHERE active = 1`,
	`CREATE TABLE IF NOT EXISTS supplier_orders (
  id TEXT PRIMARY KEY,
  shop TEXT NOT NULL,
  storefront_order_id INTEGER NOT NULL,
  storefront_order_number TEXT NOT NULL DEFAULT '',
  distributor_id TEXT NOT NULL,
  distributor_name TEXT NOT NULL DEFAULT '',
  own_order_id TEXT NOT NULL,
  deal_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  error_message TEXT,
  tracking_number TEXT,
  serial_numbers TEXT,
  dropship INTEGER NOT NULL DEFAULT 0,
  last_status_check_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_supplier_orders_claim UNIQUE (shop, storefront_order_id, distributor_id)
)`,
}

// ApplySQLite creates the schema on a SQLite connection. It is idempotent.
func ApplySQLite(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
