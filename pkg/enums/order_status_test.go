package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusSent, true},
		{OrderStatusPending, OrderStatusError, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusSent, OrderStatusConfirmed, true},
		{OrderStatusSent, OrderStatusShipped, true},
		{OrderStatusSent, OrderStatusError, true},
		{OrderStatusConfirmed, OrderStatusShipped, true},
		{OrderStatusConfirmed, OrderStatusSent, false},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusConfirmed, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
		{OrderStatusError, OrderStatusSent, false},
		{OrderStatusShipped, OrderStatusShipped, true},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.ok, got)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, status := range validOrderStatuses {
		want := status == OrderStatusDelivered || status == OrderStatusError
		if status.IsTerminal() != want {
			t.Errorf("%s: expected terminal=%v", status, want)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("confirmed")
	if err != nil || status != OrderStatusConfirmed {
		t.Fatalf("unexpected parse result %q %v", status, err)
	}
	if _, err := ParseOrderStatus("CONFIRMED"); err == nil {
		t.Fatal("expected case-sensitive parse to reject upper case")
	}
}

func TestParseShippingMode(t *testing.T) {
	mode, err := ParseShippingMode(" DropShip ")
	if err != nil || mode != ShippingModeDropship {
		t.Fatalf("unexpected parse result %q %v", mode, err)
	}
	if _, err := ParseShippingMode("teleport"); err == nil {
		t.Fatal("expected invalid mode to fail")
	}
	if !ProductCategoryPhysical.IsInventoried() || ProductCategoryService.IsInventoried() {
		t.Fatal("unexpected inventoried flags")
	}
}

func TestOrderStatusCanReach(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusSent, OrderStatusDelivered, true},
		{OrderStatusConfirmed, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusConfirmed, false},
		{OrderStatusConfirmed, OrderStatusError, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanReach(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
