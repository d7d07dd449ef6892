package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/distribridge/pkg/enums"
)

// Order is one purchase order forwarded to one distributor for one storefront order.
// The (shop, storefront_order_id, distributor_id) unique key doubles as the
// forwarding lock.
type Order struct {
	ID                    uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Shop                  string            `gorm:"column:shop;not null"`
	StorefrontOrderID     int64             `gorm:"column:storefront_order_id;not null"`
	StorefrontOrderNumber string            `gorm:"column:storefront_order_number;not null;default:''"`
	DistributorID         string            `gorm:"column:distributor_id;not null"`
	DistributorName       string            `gorm:"column:distributor_name;not null;default:''"`
	OwnOrderID            string            `gorm:"column:own_order_id;type:varchar(18);not null"`
	DealID                *string           `gorm:"column:deal_id"`
	Status                enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ErrorMessage          *string           `gorm:"column:error_message;type:varchar(255)"`
	TrackingNumber        *string           `gorm:"column:tracking_number"`
	SerialNumbers         []string          `gorm:"column:serial_numbers;type:jsonb;serializer:json"`
	Dropship              bool              `gorm:"column:dropship;not null;default:false"`
	LastStatusCheckAt     *time.Time        `gorm:"column:last_status_check_at"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the ledger table name.
func (Order) TableName() string {
	return "supplier_orders"
}

// LookupID is the identifier the supplier knows this order by: the deal id once
// assigned, else the connector's own order id.
func (o Order) LookupID() string {
	if o.DealID != nil && *o.DealID != "" {
		return *o.DealID
	}
	return o.OwnOrderID
}
