package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/angelmondragon/distribridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAlreadyClaimed is returned by Claim when another delivery already owns
// the (shop, storefront order, distributor) slot.
var ErrAlreadyClaimed = pkgerrors.New(pkgerrors.CodeConflict, "order already claimed for distributor")

// Repository defines persistence operations for the forwarded-order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Claim(ctx context.Context, order *models.Order) error
	RecordOutcome(ctx context.Context, id uuid.UUID, outcome Outcome) error
	DeleteClaim(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByStatuses(ctx context.Context, statuses []enums.OrderStatus, limit int) ([]models.Order, error)
	ListByShop(ctx context.Context, shop string, filter ListFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) error
}

// Outcome is the result of submitting a claimed order to the supplier.
type Outcome struct {
	Status       enums.OrderStatus
	DealID       *string
	ErrorMessage *string
}

// StatusUpdate is written after each status poll, whether or not the status moved.
type StatusUpdate struct {
	Status         enums.OrderStatus
	TrackingNumber *string
	SerialNumbers  []string
	CheckedAt      time.Time
}

// ListFilter narrows ListByShop.
type ListFilter struct {
	Status *enums.OrderStatus
	Limit  int
}
