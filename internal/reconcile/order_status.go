package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/distribridge/internal/orders"
	"github.com/angelmondragon/distribridge/internal/storefront"
	"github.com/angelmondragon/distribridge/internal/supplier"
	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/angelmondragon/distribridge/pkg/enums"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/google/uuid"
)

type orderLedger interface {
	ListByStatuses(ctx context.Context, statuses []enums.OrderStatus, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, update orders.StatusUpdate) error
}

type sessionResolver interface {
	Resolve(ctx context.Context, shop string) (storefront.Session, error)
}

type statusSource interface {
	GetStatus(ctx context.Context, lookupID string) (*supplier.OrderStatus, error)
	FetchDispatchDocument(ctx context.Context, ref string) (supplier.DispatchDocument, error)
}

type fulfiller interface {
	FulfillmentOrders(ctx context.Context, sess storefront.Session, orderID string) ([]storefront.FulfillmentOrder, error)
	CreateFulfillment(ctx context.Context, sess storefront.Session, in storefront.FulfillmentInput) error
	AnnotateOrder(ctx context.Context, sess storefront.Session, orderID, note string) error
}

// OrderStatusParams wires the OrderStatus loop.
type OrderStatusParams struct {
	Ledger          orderLedger
	Sessions        sessionResolver
	Supplier        statusSource
	Storefront      fulfiller
	Statuses        []enums.OrderStatus
	BatchLimit      int
	NotifyCustomer  bool
	ShopConcurrency int
	Logger          *logger.Logger
}

// OrderStatus polls the supplier for forwarded orders and fulfils storefront
// orders once their shipment leaves the distributor.
type OrderStatus struct {
	ledger      orderLedger
	sessions    sessionResolver
	supplier    statusSource
	storefront  fulfiller
	statuses    []enums.OrderStatus
	limit       int
	notify      bool
	concurrency int
	logg        *logger.Logger
	now         func() time.Time
}

// NewOrderStatus validates params and builds the loop.
func NewOrderStatus(params OrderStatusParams) (*OrderStatus, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session resolver required")
	}
	if params.Supplier == nil {
		return nil, fmt.Errorf("supplier client required")
	}
	if params.Storefront == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	statuses := params.Statuses
	if len(statuses) == 0 {
		statuses = []enums.OrderStatus{enums.OrderStatusSent, enums.OrderStatusConfirmed, enums.OrderStatusShipped}
	}
	for _, st := range statuses {
		if st.IsTerminal() || st == enums.OrderStatusPending {
			return nil, fmt.Errorf("status %q cannot be polled", st)
		}
	}
	return &OrderStatus{
		ledger:      params.Ledger,
		sessions:    params.Sessions,
		supplier:    params.Supplier,
		storefront:  params.Storefront,
		statuses:    statuses,
		limit:       params.BatchLimit,
		notify:      params.NotifyCustomer,
		concurrency: params.ShopConcurrency,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// Run polls every order in a polled status once.
func (o *OrderStatus) Run(ctx context.Context) (Result, error) {
	rows, err := o.ledger.ListByStatuses(ctx, o.statuses, o.limit)
	if err != nil {
		return Result{}, fmt.Errorf("list orders: %w", err)
	}
	byShop := map[string][]models.Order{}
	for _, row := range rows {
		byShop[row.Shop] = append(byShop[row.Shop], row)
	}
	shops := make([]string, 0, len(byShop))
	for shop := range byShop {
		shops = append(shops, shop)
	}
	sort.Strings(shops)

	t := &tally{}
	eachShop(ctx, shops, o.concurrency, func(ctx context.Context, shop string) {
		o.syncShop(o.logg.WithShop(ctx, shop), shop, byShop[shop], t)
	})
	return t.result(), nil
}

func (o *OrderStatus) syncShop(ctx context.Context, shop string, rows []models.Order, t *tally) {
	sess, err := o.sessions.Resolve(ctx, shop)
	if err != nil {
		o.logg.Error(ctx, "shop session unavailable; skipping shop", err)
		t.failed(len(rows))
		return
	}
	for _, row := range rows {
		if ctx.Err() != nil {
			return
		}
		itemCtx := o.logg.WithFields(ctx, map[string]any{
			"own_order_id":   row.OwnOrderID,
			"distributor_id": row.DistributorID,
			"status":         row.Status.String(),
		})
		changed, err := o.syncOrder(itemCtx, sess, row)
		if err != nil {
			o.logg.Error(itemCtx, "order status sync failed", err)
			t.failed(1)
			continue
		}
		if changed {
			t.updated()
		}
	}
}

// syncOrder reports whether the ledger row was written.
func (o *OrderStatus) syncOrder(ctx context.Context, sess storefront.Session, row models.Order) (bool, error) {
	status, err := o.supplier.GetStatus(ctx, row.LookupID())
	if err != nil {
		return false, err
	}
	if status == nil {
		return false, nil
	}

	next := row.Status
	if status.Known && row.Status.CanReach(status.Status) {
		next = status.Status
	} else if status.Known && status.Status != row.Status {
		o.logg.Warn(ctx, fmt.Sprintf("ignoring supplier status %q for %s order", status.Text, row.Status))
	}

	tracking := deref(row.TrackingNumber)
	serials := row.SerialNumbers
	if status.DispatchDocumentURL != "" {
		doc, err := o.supplier.FetchDispatchDocument(ctx, status.DispatchDocumentURL)
		if err != nil {
			return false, fmt.Errorf("fetch dispatch document: %w", err)
		}
		if tn := doc.TrackingNumber(); tn != "" {
			tracking = tn
		}
		if len(doc.SerialNumbers) > 0 {
			serials = doc.SerialNumbers
		}
	}

	if next.IsShippedOrLater() && !row.Status.IsShippedOrLater() && tracking != "" {
		if err := o.fulfil(ctx, sess, row, tracking, serials); err != nil {
			return false, err
		}
	}

	update := orders.StatusUpdate{
		Status:        next,
		SerialNumbers: serials,
		CheckedAt:     o.now().UTC(),
	}
	if tracking != "" {
		update.TrackingNumber = &tracking
	}
	if err := o.ledger.UpdateStatus(ctx, row.ID, update); err != nil {
		return false, fmt.Errorf("persist status: %w", err)
	}
	if next != row.Status {
		o.logg.Info(o.logg.WithField(ctx, "new_status", next.String()), "order status advanced")
	}
	return true, nil
}

func (o *OrderStatus) fulfil(ctx context.Context, sess storefront.Session, row models.Order, tracking string, serials []string) error {
	orderGID := storefront.OrderGID(row.StorefrontOrderID)
	open, err := o.storefront.FulfillmentOrders(ctx, sess, orderGID)
	if err != nil {
		return fmt.Errorf("load fulfillment orders: %w", err)
	}
	created := 0
	for _, fo := range open {
		if fo.Remaining() == 0 {
			continue
		}
		if err := o.storefront.CreateFulfillment(ctx, sess, storefront.FulfillmentInput{
			FulfillmentOrderID: fo.ID,
			LineItems:          fo.LineItems,
			TrackingNumber:     tracking,
			NotifyCustomer:     o.notify,
		}); err != nil {
			return fmt.Errorf("create fulfillment: %w", err)
		}
		created++
	}
	o.logg.Info(o.logg.WithField(ctx, "fulfillments", created), "storefront order fulfilled")

	if len(serials) > 0 {
		note := fmt.Sprintf("Serial numbers (%s): %s", row.OwnOrderID, strings.Join(serials, ", "))
		if err := o.storefront.AnnotateOrder(ctx, sess, orderGID, note); err != nil {
			o.logg.Warn(ctx, "annotate serial numbers failed: "+err.Error())
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
