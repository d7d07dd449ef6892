package storefront

import (
	"encoding/json"
	"testing"
)

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"id":1}`)
	sig := SignBody("secret", body)
	if !VerifyHMAC("secret", body, sig) {
		t.Fatal("expected valid signature")
	}
	if VerifyHMAC("other", body, sig) {
		t.Fatal("expected wrong secret to fail")
	}
	if VerifyHMAC("secret", []byte(`{"id":2}`), sig) {
		t.Fatal("expected tampered body to fail")
	}
	if VerifyHMAC("secret", body, "not base64!") || VerifyHMAC("", body, sig) {
		t.Fatal("expected malformed input to fail")
	}
}

func TestOrderCreatedEventDecode(t *testing.T) {
	raw := `{"id":820982911946154508,"order_number":1234,"name":"#1234","email":"a@b.c",
		"line_items":[{"id":1,"product_id":632910392,"variant_id":808950810,"quantity":2,"title":"Ipod","sku":"IPOD-1"}],
		"shipping_address":{"first_name":"Jane","last_name":"Doe","address1":"Main 1","zip":"A-1090","city":"Wien","country_code":"AT"}}`
	var evt OrderCreatedEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Number() != "1234" || len(evt.LineItems) != 1 || *evt.LineItems[0].ProductID != 632910392 {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.ShippingAddress.FullName() != "Jane Doe" {
		t.Fatalf("unexpected name %q", evt.ShippingAddress.FullName())
	}
	if evt.BillingAddress.FullName() != "" {
		t.Fatal("nil address should yield empty name")
	}
}

func TestOrderNumberFallsBackToName(t *testing.T) {
	evt := OrderCreatedEvent{Name: "#1001"}
	if evt.Number() != "1001" {
		t.Fatalf("got %q", evt.Number())
	}
}
