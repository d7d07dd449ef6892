package orders

import (
	"time"

	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/google/uuid"
)

// OrderDTO is the admin API view of a ledger row.
type OrderDTO struct {
	ID                    uuid.UUID  `json:"id"`
	StorefrontOrderID     int64      `json:"storefront_order_id"`
	StorefrontOrderNumber string     `json:"storefront_order_number"`
	DistributorID         string     `json:"distributor_id"`
	DistributorName       string     `json:"distributor_name"`
	OwnOrderID            string     `json:"own_order_id"`
	DealID                *string    `json:"deal_id,omitempty"`
	Status                string     `json:"status"`
	ErrorMessage          *string    `json:"error_message,omitempty"`
	TrackingNumber        *string    `json:"tracking_number,omitempty"`
	SerialNumbers         []string   `json:"serial_numbers,omitempty"`
	Dropship              bool       `json:"dropship"`
	LastStatusCheckAt     *time.Time `json:"last_status_check_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func toDTO(o models.Order) OrderDTO {
	return OrderDTO{
		ID:                    o.ID,
		StorefrontOrderID:     o.StorefrontOrderID,
		StorefrontOrderNumber: o.StorefrontOrderNumber,
		DistributorID:         o.DistributorID,
		DistributorName:       o.DistributorName,
		OwnOrderID:            o.OwnOrderID,
		DealID:                o.DealID,
		Status:                o.Status.String(),
		ErrorMessage:          o.ErrorMessage,
		TrackingNumber:        o.TrackingNumber,
		SerialNumbers:         o.SerialNumbers,
		Dropship:              o.Dropship,
		LastStatusCheckAt:     o.LastStatusCheckAt,
		CreatedAt:             o.CreatedAt,
	}
}
