package supplier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/distribridge/pkg/config"
	"github.com/angelmondragon/distribridge/pkg/enums"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/angelmondragon/distribridge/pkg/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "acct-1" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientParams{
		Config: config.SupplierConfig{
			BaseURL:         srv.URL + "/2.1",
			AccountID:       "acct-1",
			APIKey:          "secret",
			Language:        "de",
			Charset:         "windows-1252",
			Timeout:         5 * time.Second,
			BreakerFailures: 3,
		},
		Logger: logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientValidatesParams(t *testing.T) {
	if _, err := NewClient(ClientParams{Config: config.SupplierConfig{BaseURL: "http://x", AccountID: "a", APIKey: "b"}}); err == nil {
		t.Fatal("expected missing logger error")
	}
	if _, err := NewClient(ClientParams{Config: config.SupplierConfig{BaseURL: "http://x"}, Logger: logger.Nop()}); err == nil {
		t.Fatal("expected missing credentials error")
	}
}

const searchResponse = `<?xml version="1.0" encoding="UTF-8"?>
<PRODUCTS>
  <Product>
    <PUID>9001</PUID>
    <manufacturerSKU>AB-123</manufacturerSKU>
    <productName>Notebook 14&quot;</productName>
    <manufacturerName>Acme</manufacturerName>
    <supplierItems>
      <supplierItem>
        <supplierId>20</supplierId>
        <supplierName>Beta Distribution</supplierName>
        <price>105,50</price>
        <stock>0</stock>
        <stockAvailable>false</stockAvailable>
      </supplierItem>
      <supplierItem>
        <SUPPLIERID>10</SUPPLIERID>
        <SUPPLIERNAME>Alpha IT</SUPPLIERNAME>
        <PRICE>110.00</PRICE>
        <STOCK>12</STOCK>
        <projectPrices>
          <projectPrice><projectId>PRJ-7</projectId><price>95.00</price></projectPrice>
        </projectPrices>
      </supplierItem>
      <supplierItem>
        <supplierId>30</supplierId>
        <supplierName>Gamma</supplierName>
        <price>99.90</price>
        <stock>4</stock>
        <condition>Refurbished</condition>
      </supplierItem>
    </supplierItems>
  </Product>
</PRODUCTS>`

func TestSearchBySKUNormalizesAndSortsOffers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2.1/products/search/sku=AB-123/offers.xml" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Accept-Language") != "de" {
			t.Errorf("missing language header")
		}
		_, _ = io.WriteString(w, searchResponse)
	})

	product, err := client.SearchBySKU(context.Background(), "AB-123")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if product == nil {
		t.Fatal("expected product")
	}
	if product.ID != "9001" || product.Name != `Notebook 14"` || product.Manufacturer != "Acme" {
		t.Fatalf("unexpected product %+v", product)
	}
	if product.Category != enums.ProductCategoryPhysical {
		t.Fatalf("unexpected category %s", product.Category)
	}
	if len(product.Offers) != 3 {
		t.Fatalf("expected 3 offers, got %d", len(product.Offers))
	}
	order := []string{product.Offers[0].DistributorID, product.Offers[1].DistributorID, product.Offers[2].DistributorID}
	if strings.Join(order, ",") != "30,10,20" {
		t.Fatalf("expected available-first then price order, got %v", order)
	}
	if product.Offers[2].Available {
		t.Fatal("explicit stockAvailable=false must win")
	}
	if !product.Offers[2].Price.Equal(mustDecimal(t, "105.50")) {
		t.Fatalf("comma decimal not parsed: %s", product.Offers[2].Price)
	}
	if product.Offers[0].Condition != "refurbished" || product.Offers[1].Condition != "new" {
		t.Fatalf("unexpected conditions %q %q", product.Offers[0].Condition, product.Offers[1].Condition)
	}
	alpha := product.Offers[1]
	if len(alpha.ContractPrices) != 1 || alpha.ContractPrices[0].ContractID != "PRJ-7" {
		t.Fatalf("unexpected contract prices %+v", alpha.ContractPrices)
	}
	if !alpha.PriceFor("PRJ-7").Equal(mustDecimal(t, "95")) || !alpha.PriceFor("other").Equal(mustDecimal(t, "110")) {
		t.Fatal("contract price resolution mismatch")
	}
}

func TestSearchBySKUNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	product, err := client.SearchBySKU(context.Background(), "missing")
	if err != nil || product != nil {
		t.Fatalf("expected nil product without error, got %+v %v", product, err)
	}
}

func TestGetStockHandlesSingleOfferGroup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2.1/products/id/9001/offers.xml" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `<products><product><puid>9001</puid>
			<offers><offer><distributorId>10</distributorId><netPrice>12.5</netPrice><quantity>3</quantity></offer></offers>
			</product></products>`)
	})
	offers, err := client.GetStock(context.Background(), "9001")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if len(offers) != 1 || offers[0].DistributorID != "10" || offers[0].Stock != 3 || !offers[0].Available {
		t.Fatalf("unexpected offers %+v", offers)
	}
}

func TestSubmitOrderOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantOK   bool
		wantDeal string
		wantErr  bool
		wantMsg  string
	}{
		{name: "accepted", status: 200, body: `<orderResponse><success>true</success><dealId>D-77</dealId></orderResponse>`, wantOK: true, wantDeal: "D-77"},
		{name: "deal id implies success", status: 200, body: `<ORDERRESPONSE><DEAL_ID>D-78</DEAL_ID></ORDERRESPONSE>`, wantOK: true, wantDeal: "D-78"},
		{name: "rejected", status: 200, body: `<orderResponse><success>false</success><message>distributor closed</message></orderResponse>`, wantMsg: "distributor closed"},
		{name: "client error", status: 422, body: `<error><message>invalid zip</message></error>`, wantMsg: "supplier returned 422: invalid zip"},
		{name: "server error", status: 502, body: `bad gateway`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/2.1/orders/supplier/10/order.xml" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				payload, _ := io.ReadAll(r.Body)
				if string(payload) != "<ORDER/>" {
					t.Errorf("unexpected body %q", payload)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			result, err := client.SubmitOrder(context.Background(), "10", []byte("<ORDER/>"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected transport error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Success != tt.wantOK || result.DealID != tt.wantDeal {
				t.Fatalf("unexpected result %+v", result)
			}
			if tt.wantMsg != "" && result.Error != tt.wantMsg {
				t.Fatalf("expected message %q, got %q", tt.wantMsg, result.Error)
			}
		})
	}
}

func TestGetStatusMapsTextAndDispatchReference(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2.1/orders/status/D-77.xml":
			_, _ = io.WriteString(w, `<response><orderStatus><STATUS>Partially SHIPPED</STATUS>
				<dispatchNotification href="/2.1/dispatch/555.xml"/></orderStatus></response>`)
		case "/2.1/orders/status/blank.xml":
			_, _ = io.WriteString(w, `<orderStatus></orderStatus>`)
		case "/2.1/orders/status/odd.xml":
			_, _ = io.WriteString(w, `<orderStatus><status>on hold</status></orderStatus>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	status, err := client.GetStatus(ctx, "D-77")
	if err != nil || status == nil {
		t.Fatalf("expected status, got %+v %v", status, err)
	}
	if !status.Known || status.Status != enums.OrderStatusShipped || status.Text != "Partially SHIPPED" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.DispatchDocumentURL != "/2.1/dispatch/555.xml" {
		t.Fatalf("unexpected dispatch url %q", status.DispatchDocumentURL)
	}

	if status, err := client.GetStatus(ctx, "blank"); err != nil || status != nil {
		t.Fatalf("blank status should be nil, got %+v %v", status, err)
	}
	if status, err := client.GetStatus(ctx, "unknown"); err != nil || status != nil {
		t.Fatalf("404 should be nil, got %+v %v", status, err)
	}
	status, err = client.GetStatus(ctx, "odd")
	if err != nil || status == nil || status.Known {
		t.Fatalf("unmatched text should be returned unknown, got %+v %v", status, err)
	}
}

func TestFetchDispatchDocumentExtractsNumbers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<DISPATCHNOTIFICATION>
			<DISPATCHNOTIFICATION_HEADER><SHIPMENT_ID>1Z999</SHIPMENT_ID></DISPATCHNOTIFICATION_HEADER>
			<DISPATCHNOTIFICATION_ITEM_LIST>
			  <DISPATCHNOTIFICATION_ITEM><SERIAL_NUMBER>SN-1</SERIAL_NUMBER><SERIAL_NUMBER>SN-2</SERIAL_NUMBER></DISPATCHNOTIFICATION_ITEM>
			  <DISPATCHNOTIFICATION_ITEM><serialNumber>SN-2</serialNumber><SHIPMENT_ID>1Z999</SHIPMENT_ID></DISPATCHNOTIFICATION_ITEM>
			</DISPATCHNOTIFICATION_ITEM_LIST>
		</DISPATCHNOTIFICATION>`)
	})
	doc, err := client.FetchDispatchDocument(context.Background(), "/2.1/dispatch/555.xml")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if doc.TrackingNumber() != "1Z999" || len(doc.TrackingNumbers) != 1 {
		t.Fatalf("unexpected tracking %+v", doc.TrackingNumbers)
	}
	if strings.Join(doc.SerialNumbers, ",") != "SN-1,SN-2" {
		t.Fatalf("unexpected serials %+v", doc.SerialNumbers)
	}
}

func TestFetchDispatchDocumentRefusesForeignHost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("foreign host must not be requested through the supplier client")
	})
	if _, err := client.FetchDispatchDocument(context.Background(), "https://evil.example.com/doc.xml"); err == nil {
		t.Fatal("expected foreign host error")
	}
}

func TestServerErrorsTripBreaker(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.GetStock(ctx, "1"); err == nil {
			t.Fatal("expected error")
		}
	}
	_, err := client.GetStock(ctx, "1")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", calls)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		text  string
		want  enums.OrderStatus
		known bool
	}{
		{"CONFIRMED", enums.OrderStatusConfirmed, true},
		{"Order advised", enums.OrderStatusConfirmed, true},
		{"shipped", enums.OrderStatusShipped, true},
		{"Dispatched to carrier", enums.OrderStatusShipped, true},
		{"DELIVERED", enums.OrderStatusDelivered, true},
		{"completed", enums.OrderStatusDelivered, true},
		{"in progress", "", false},
		{"", "", false},
		{"Undelivered", "", false},
		{"not yet shipped", "", false},
		{"unconfirmed", "", false},
		{"Not delivered, shipped 02.03.", enums.OrderStatusShipped, true},
	}
	for _, tt := range tests {
		got, known := MapStatus(tt.text)
		if got != tt.want || known != tt.known {
			t.Errorf("MapStatus(%q) = %q,%v want %q,%v", tt.text, got, known, tt.want, tt.known)
		}
	}
}
