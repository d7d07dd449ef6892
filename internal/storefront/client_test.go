package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/angelmondragon/distribridge/pkg/config"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/shopspring/decimal"
)

type recordedCall struct {
	Query     string
	Variables map[string]any
}

// fakeAdmin answers GraphQL calls by matching an operation keyword in the query.
type fakeAdmin struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]string
	status    int
}

func (f *fakeAdmin) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Shopify-Access-Token"); got != "tok" {
			t.Errorf("access token = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "/admin/api/2025-01/graphql.json") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var req graphQLRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Query: req.Query, Variables: req.Variables})
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"errors":"nope"}`))
			return
		}
		for key, body := range f.responses {
			if strings.Contains(req.Query, key) {
				_, _ = w.Write([]byte(body))
				return
			}
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	}
}

func (f *fakeAdmin) callsMatching(key string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if strings.Contains(c.Query, key) {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, fake *fakeAdmin) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	c, err := NewClient(ClientParams{
		Config:  config.StorefrontConfig{APIVersion: "2025-01", BreakerFailures: 3},
		Logger:  logger.Nop(),
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

var testSession = Session{Shop: "demo.myshopify.com", AccessToken: "tok"}

func TestNewClientRequiresLogger(t *testing.T) {
	if _, err := NewClient(ClientParams{Config: config.StorefrontConfig{APIVersion: "2025-01"}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewClient(ClientParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected error without api version")
	}
}

func TestExecuteRequiresSession(t *testing.T) {
	c := newTestClient(t, &fakeAdmin{})
	err := c.Execute(context.Background(), Session{Shop: "x"}, "query{}", nil, nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestExecuteSurfacesGraphQLErrors(t *testing.T) {
	fake := &fakeAdmin{responses: map[string]string{
		"locations": `{"errors":[{"message":"Access denied"}]}`,
	}}
	c := newTestClient(t, fake)
	_, err := c.ResolveDefaultLocation(context.Background(), testSession)
	if err == nil || !strings.Contains(err.Error(), "Access denied") {
		t.Fatalf("expected graphql error, got %v", err)
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestExecuteClientErrorDoesNotTripBreaker(t *testing.T) {
	fake := &fakeAdmin{status: http.StatusUnauthorized}
	c := newTestClient(t, fake)
	for i := 0; i < 5; i++ {
		if err := c.Execute(context.Background(), testSession, "query{shop{id}}", nil, nil); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := len(fake.callsMatching("shop")); got != 5 {
		t.Fatalf("expected every call to reach the server, got %d", got)
	}
}

func TestSetInventoryActivatesThenSets(t *testing.T) {
	fake := &fakeAdmin{responses: map[string]string{
		"inventoryActivate":      `{"data":{"inventoryActivate":{"userErrors":[{"field":["inventoryItemId"],"message":"already active"}]}}}`,
		"inventorySetQuantities": `{"data":{"inventorySetQuantities":{"userErrors":[]}}}`,
	}}
	c := newTestClient(t, fake)

	err := c.SetInventory(context.Background(), testSession, "gid://shopify/InventoryItem/1", "gid://shopify/Location/9", 7)
	if err != nil {
		t.Fatalf("set inventory: %v", err)
	}
	if got := len(fake.callsMatching("mutation inventoryActivate")); got != 1 {
		t.Fatalf("expected one activation, got %d", got)
	}
	sets := fake.callsMatching("mutation inventorySetQuantities")
	if len(sets) != 1 {
		t.Fatalf("expected one set call, got %d", len(sets))
	}
	input := sets[0].Variables["input"].(map[string]any)
	if input["name"] != "available" || input["reason"] != "correction" || input["ignoreCompareQuantity"] != true {
		t.Fatalf("unexpected input %+v", input)
	}
	qty := input["quantities"].([]any)[0].(map[string]any)
	if qty["quantity"].(float64) != 7 {
		t.Fatalf("unexpected quantity %+v", qty)
	}
}

func TestSetInventoryReturnsUserErrors(t *testing.T) {
	fake := &fakeAdmin{responses: map[string]string{
		"inventorySetQuantities": `{"data":{"inventorySetQuantities":{"userErrors":[{"field":["input"],"message":"bad location"}]}}}`,
	}}
	c := newTestClient(t, fake)

	err := c.SetInventory(context.Background(), testSession, "gid://shopify/InventoryItem/1", "gid://shopify/Location/9", 1)
	var ue UserErrors
	if !errors.As(err, &ue) || !strings.Contains(err.Error(), "bad location") {
		t.Fatalf("expected user errors, got %v", err)
	}
}

func TestResolveDefaultLocationPrefersOnlineFulfilment(t *testing.T) {
	fake := &fakeAdmin{responses: map[string]string{
		"locations": `{"data":{"locations":{"nodes":[
			{"id":"gid://shopify/Location/1","isActive":false,"fulfillsOnlineOrders":true},
			{"id":"gid://shopify/Location/2","isActive":true,"fulfillsOnlineOrders":false},
			{"id":"gid://shopify/Location/3","isActive":true,"fulfillsOnlineOrders":true}
		]}}}`,
	}}
	c := newTestClient(t, fake)
	loc, err := c.ResolveDefaultLocation(context.Background(), testSession)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if loc != "gid://shopify/Location/3" {
		t.Fatalf("unexpected location %s", loc)
	}
}

func TestFulfillmentOrdersSkipsClosedAndEmptyLines(t *testing.T) {
	fake := &fakeAdmin{responses: map[string]string{
		"fulfillmentOrders": `{"data":{"order":{"id":"gid://shopify/Order/5","fulfillmentOrders":{"nodes":[
			{"id":"fo-1","status":"OPEN","lineItems":{"nodes":[{"id":"li-1","remainingQuantity":2},{"id":"li-2","remainingQuantity":0}]}},
			{"id":"fo-2","status":"CLOSED","lineItems":{"nodes":[{"id":"li-3","remainingQuantity":1}]}}
		]}}}}`,
	}}
	c := newTestClient(t, fake)
	orders, err := c.FulfillmentOrders(context.Background(), testSession, OrderGID(5))
	if err != nil {
		t.Fatalf("fulfillment orders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "fo-1" {
		t.Fatalf("unexpected orders %+v", orders)
	}
	if len(orders[0].LineItems) != 1 || orders[0].Remaining() != 2 {
		t.Fatalf("unexpected lines %+v", orders[0].LineItems)
	}
}

func TestCreateFulfillmentSendsTracking(t *testing.T) {
	fake := &fakeAdmin{responses: map[string]string{
		"fulfillmentCreate": `{"data":{"fulfillmentCreate":{"fulfillment":{"id":"f-1"},"userErrors":[]}}}`,
	}}
	c := newTestClient(t, fake)
	err := c.CreateFulfillment(context.Background(), testSession, FulfillmentInput{
		FulfillmentOrderID: "fo-1",
		LineItems:          []FulfillmentLine{{ID: "li-1", Quantity: 2}},
		TrackingNumber:     "1Z999",
		NotifyCustomer:     true,
	})
	if err != nil {
		t.Fatalf("create fulfillment: %v", err)
	}
	calls := fake.callsMatching("fulfillmentCreate")
	f := calls[0].Variables["fulfillment"].(map[string]any)
	if f["trackingInfo"].(map[string]any)["number"] != "1Z999" || f["notifyCustomer"] != true {
		t.Fatalf("unexpected fulfillment input %+v", f)
	}
}

func TestAnnotateOrderAppendsToExistingNote(t *testing.T) {
	fake := &fakeAdmin{responses: map[string]string{
		"orderNote":   `{"data":{"order":{"id":"gid://shopify/Order/5","note":"gift wrap"}}}`,
		"orderUpdate": `{"data":{"orderUpdate":{"order":{"id":"gid://shopify/Order/5"},"userErrors":[]}}}`,
	}}
	c := newTestClient(t, fake)
	if err := c.AnnotateOrder(context.Background(), testSession, OrderGID(5), "Serial numbers: A1, B2"); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	calls := fake.callsMatching("mutation orderUpdate")
	input := calls[0].Variables["input"].(map[string]any)
	if input["note"] != "gift wrap\n\nSerial numbers: A1, B2" {
		t.Fatalf("unexpected note %q", input["note"])
	}
}

func TestAnnotateOrderSkipsEmptyNote(t *testing.T) {
	fake := &fakeAdmin{}
	c := newTestClient(t, fake)
	if err := c.AnnotateOrder(context.Background(), testSession, OrderGID(5), "  "); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(fake.calls))
	}
}

func TestCreateProductReturnsIDs(t *testing.T) {
	fake := &fakeAdmin{responses: map[string]string{
		"mutation productCreate":             `{"data":{"productCreate":{"product":{"id":"gid://shopify/Product/10","variants":{"nodes":[{"id":"gid://shopify/ProductVariant/11","inventoryItem":{"id":"gid://shopify/InventoryItem/12"}}]}},"userErrors":[]}}}`,
		"mutation productVariantsBulkUpdate": `{"data":{"productVariantsBulkUpdate":{"productVariants":[{"id":"gid://shopify/ProductVariant/11"}],"userErrors":[]}}}`,
	}}
	c := newTestClient(t, fake)
	created, err := c.CreateProduct(context.Background(), testSession, ProductInput{
		Title:   "Laptop",
		SKU:     "LT-1",
		Price:   decimal.RequireFromString("999.5"),
		Tracked: true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.ProductID != "gid://shopify/Product/10" || created.InventoryItemID != "gid://shopify/InventoryItem/12" {
		t.Fatalf("unexpected ids %+v", created)
	}
	calls := fake.callsMatching("mutation productVariantsBulkUpdate")
	variant := calls[0].Variables["variants"].([]any)[0].(map[string]any)
	if variant["price"] != "999.50" {
		t.Fatalf("unexpected price %v", variant["price"])
	}
}

func TestNumericID(t *testing.T) {
	id, err := NumericID("gid://shopify/Product/123")
	if err != nil || id != 123 {
		t.Fatalf("got %d, %v", id, err)
	}
	if id, _ := NumericID("456"); id != 456 {
		t.Fatalf("plain number: got %d", id)
	}
	if _, err := NumericID("gid://shopify/Product/abc"); err == nil {
		t.Fatal("expected error")
	}
}
