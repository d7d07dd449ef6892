package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/distribridge/internal/orders"
	"github.com/angelmondragon/distribridge/internal/storefront"
	"github.com/angelmondragon/distribridge/internal/supplier"
	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/angelmondragon/distribridge/pkg/enums"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

// memOrders applies status updates so consecutive runs observe them.
type memOrders struct {
	mu      sync.Mutex
	rows    []*models.Order
	updates int
}

func (m *memOrders) ListByStatuses(_ context.Context, statuses []enums.OrderStatus, _ int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, row := range m.rows {
		for _, st := range statuses {
			if row.Status == st {
				out = append(out, *row)
				break
			}
		}
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(_ context.Context, id uuid.UUID, u orders.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			row.Status = u.Status
			row.TrackingNumber = u.TrackingNumber
			row.SerialNumbers = u.SerialNumbers
			checked := u.CheckedAt
			row.LastStatusCheckAt = &checked
			m.updates++
			return nil
		}
	}
	return errors.New("missing row")
}

type stubStatus struct {
	statuses map[string]*supplier.OrderStatus
	docs     map[string]supplier.DispatchDocument
	lookups  []string
}

func (s *stubStatus) GetStatus(_ context.Context, lookupID string) (*supplier.OrderStatus, error) {
	s.lookups = append(s.lookups, lookupID)
	return s.statuses[lookupID], nil
}

func (s *stubStatus) FetchDispatchDocument(_ context.Context, ref string) (supplier.DispatchDocument, error) {
	doc, ok := s.docs[ref]
	if !ok {
		return supplier.DispatchDocument{}, errors.New("not found")
	}
	return doc, nil
}

type stubFulfiller struct {
	open         []storefront.FulfillmentOrder
	fulfillments []storefront.FulfillmentInput
	notes        []string
}

func (s *stubFulfiller) FulfillmentOrders(context.Context, storefront.Session, string) ([]storefront.FulfillmentOrder, error) {
	return s.open, nil
}

func (s *stubFulfiller) CreateFulfillment(_ context.Context, _ storefront.Session, in storefront.FulfillmentInput) error {
	s.fulfillments = append(s.fulfillments, in)
	return nil
}

func (s *stubFulfiller) AnnotateOrder(_ context.Context, _ storefront.Session, _ string, note string) error {
	s.notes = append(s.notes, note)
	return nil
}

func sentOrder(shop, ownID string, deal *string) *models.Order {
	return &models.Order{
		ID:                uuid.New(),
		Shop:              shop,
		StorefrontOrderID: 5001,
		DistributorID:     "D1",
		OwnOrderID:        ownID,
		DealID:            deal,
		Status:            enums.OrderStatusSent,
	}
}

func shipped(doc string) *supplier.OrderStatus {
	return &supplier.OrderStatus{Text: "SHIPPED", Status: enums.OrderStatusShipped, Known: true, DispatchDocumentURL: doc}
}

func newOrderStatus(t *testing.T, ledger *memOrders, sessions stubSessions, src *stubStatus, sf *stubFulfiller) *OrderStatus {
	t.Helper()
	loop, err := NewOrderStatus(OrderStatusParams{
		Ledger:         ledger,
		Sessions:       sessions,
		Supplier:       src,
		Storefront:     sf,
		NotifyCustomer: true,
		Logger:         logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	return loop
}

func TestNewOrderStatusRejectsTerminalStatuses(t *testing.T) {
	_, err := NewOrderStatus(OrderStatusParams{
		Ledger: &memOrders{}, Sessions: stubSessions{}, Supplier: &stubStatus{}, Storefront: &stubFulfiller{},
		Statuses: []enums.OrderStatus{enums.OrderStatusDelivered}, Logger: logger.Nop(),
	})
	if err == nil {
		t.Fatal("expected error for terminal polled status")
	}
}

func TestFulfillmentCreatedOnceAcrossPasses(t *testing.T) {
	deal := "DEAL-1"
	ledger := &memOrders{rows: []*models.Order{sentOrder("a.myshopify.com", "SH1001", &deal)}}
	src := &stubStatus{
		statuses: map[string]*supplier.OrderStatus{"DEAL-1": shipped("https://supplier/dispatch/1")},
		docs:     map[string]supplier.DispatchDocument{"https://supplier/dispatch/1": {TrackingNumbers: []string{"1Z999"}, SerialNumbers: []string{"SN1", "SN2"}}},
	}
	sf := &stubFulfiller{open: []storefront.FulfillmentOrder{
		{ID: "fo-1", LineItems: []storefront.FulfillmentLine{{ID: "li-1", Quantity: 2}}},
		{ID: "fo-2"},
	}}
	loop := newOrderStatus(t, ledger, sessionsFor("a.myshopify.com"), src, sf)

	for pass := 0; pass < 2; pass++ {
		res, err := loop.Run(context.Background())
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if res != (Result{Updated: 1}) {
			t.Fatalf("pass %d: unexpected result %+v", pass, res)
		}
	}

	if len(sf.fulfillments) != 1 {
		t.Fatalf("expected exactly one fulfillment, got %d", len(sf.fulfillments))
	}
	f := sf.fulfillments[0]
	if f.FulfillmentOrderID != "fo-1" || f.TrackingNumber != "1Z999" || !f.NotifyCustomer {
		t.Fatalf("unexpected fulfillment %+v", f)
	}
	if len(sf.notes) != 1 || sf.notes[0] != "Serial numbers (SH1001): SN1, SN2" {
		t.Fatalf("unexpected notes %v", sf.notes)
	}
	row := ledger.rows[0]
	if row.Status != enums.OrderStatusShipped || *row.TrackingNumber != "1Z999" || len(row.SerialNumbers) != 2 {
		t.Fatalf("unexpected row %+v", row)
	}
	if src.lookups[0] != "DEAL-1" {
		t.Fatalf("expected lookup by deal id, got %v", src.lookups)
	}
}

func TestShippedWithoutTrackingPersistsWithoutFulfillment(t *testing.T) {
	ledger := &memOrders{rows: []*models.Order{sentOrder("a.myshopify.com", "SH1", nil)}}
	src := &stubStatus{statuses: map[string]*supplier.OrderStatus{"SH1": shipped("")}}
	sf := &stubFulfiller{open: []storefront.FulfillmentOrder{{ID: "fo-1", LineItems: []storefront.FulfillmentLine{{ID: "li", Quantity: 1}}}}}

	res, err := newOrderStatus(t, ledger, sessionsFor("a.myshopify.com"), src, sf).Run(context.Background())
	if err != nil || res != (Result{Updated: 1}) {
		t.Fatalf("unexpected %+v %v", res, err)
	}
	if len(sf.fulfillments) != 0 {
		t.Fatal("no fulfillment without tracking number")
	}
	if ledger.rows[0].Status != enums.OrderStatusShipped || ledger.rows[0].LastStatusCheckAt == nil {
		t.Fatalf("status must still be persisted: %+v", ledger.rows[0])
	}
}

func TestMissingOrUnknownStatusLeavesOrderUnchanged(t *testing.T) {
	ledger := &memOrders{rows: []*models.Order{
		sentOrder("a.myshopify.com", "SH1", nil),
		sentOrder("a.myshopify.com", "SH2", nil),
	}}
	src := &stubStatus{statuses: map[string]*supplier.OrderStatus{
		"SH2": {Text: "IN REVIEW"},
	}}
	res, err := newOrderStatus(t, ledger, sessionsFor("a.myshopify.com"), src, &stubFulfiller{}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res != (Result{Updated: 1}) || ledger.updates != 1 {
		t.Fatalf("unexpected result %+v updates %d", res, ledger.updates)
	}
	for _, row := range ledger.rows {
		if row.Status != enums.OrderStatusSent {
			t.Fatalf("status must stay sent, got %s", row.Status)
		}
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	row := sentOrder("a.myshopify.com", "SH1", nil)
	row.Status = enums.OrderStatusShipped
	ledger := &memOrders{rows: []*models.Order{row}}
	src := &stubStatus{statuses: map[string]*supplier.OrderStatus{
		"SH1": {Text: "CONFIRMED", Status: enums.OrderStatusConfirmed, Known: true},
	}}
	if _, err := newOrderStatus(t, ledger, sessionsFor("a.myshopify.com"), src, &stubFulfiller{}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ledger.rows[0].Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", ledger.rows[0].Status)
	}
}

func TestDeliveredJumpStillFulfils(t *testing.T) {
	ledger := &memOrders{rows: []*models.Order{sentOrder("a.myshopify.com", "SH1", nil)}}
	src := &stubStatus{
		statuses: map[string]*supplier.OrderStatus{"SH1": {Text: "DELIVERED", Status: enums.OrderStatusDelivered, Known: true, DispatchDocumentURL: "doc"}},
		docs:     map[string]supplier.DispatchDocument{"doc": {TrackingNumbers: []string{"TN"}}},
	}
	sf := &stubFulfiller{open: []storefront.FulfillmentOrder{{ID: "fo-1", LineItems: []storefront.FulfillmentLine{{ID: "li", Quantity: 1}}}}}
	if _, err := newOrderStatus(t, ledger, sessionsFor("a.myshopify.com"), src, sf).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ledger.rows[0].Status != enums.OrderStatusDelivered || len(sf.fulfillments) != 1 {
		t.Fatalf("unexpected state %+v fulfillments %d", ledger.rows[0], len(sf.fulfillments))
	}
	if len(sf.notes) != 0 {
		t.Fatal("no serial note without serials")
	}
}

func TestOrderStatusErrorsAreIsolated(t *testing.T) {
	ledger := &memOrders{rows: []*models.Order{
		sentOrder("a.myshopify.com", "SH1", nil),
		sentOrder("a.myshopify.com", "SH2", nil),
		sentOrder("gone.myshopify.com", "SH3", nil),
	}}
	src := &stubStatus{statuses: map[string]*supplier.OrderStatus{
		"SH1": shipped("missing-doc"),
		"SH2": {Text: "CONFIRMED", Status: enums.OrderStatusConfirmed, Known: true},
	}}
	res, err := newOrderStatus(t, ledger, sessionsFor("a.myshopify.com"), src, &stubFulfiller{}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res != (Result{Updated: 1, Errors: 2}) {
		t.Fatalf("unexpected result %+v", res)
	}
	if ledger.rows[0].Status != enums.OrderStatusSent || ledger.rows[1].Status != enums.OrderStatusConfirmed {
		t.Fatalf("unexpected statuses %s %s", ledger.rows[0].Status, ledger.rows[1].Status)
	}
}
