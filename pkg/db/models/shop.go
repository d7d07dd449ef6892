package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop stores the storefront session and merchant identity used when the
// connector acts on behalf of one installed shop.
type Shop struct {
	ID                     uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Domain                 string     `gorm:"column:domain;not null"`
	AccessToken            string     `gorm:"column:access_token;not null"`
	DefaultLocationID      *string    `gorm:"column:default_location_id"`
	SupplierCustomerNumber *string    `gorm:"column:supplier_customer_number"`
	CompanyName            string     `gorm:"column:company_name;not null;default:''"`
	ContactName            string     `gorm:"column:contact_name;not null;default:''"`
	Street                 string     `gorm:"column:street;not null;default:''"`
	PostalCode             string     `gorm:"column:postal_code;not null;default:''"`
	City                   string     `gorm:"column:city;not null;default:''"`
	CountryCode            string     `gorm:"column:country_code;not null;default:''"`
	Email                  string     `gorm:"column:email;not null;default:''"`
	Phone                  string     `gorm:"column:phone;not null;default:''"`
	UninstalledAt          *time.Time `gorm:"column:uninstalled_at"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
