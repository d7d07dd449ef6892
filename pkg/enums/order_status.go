package enums

import "fmt"

// OrderStatus tracks a purchase order forwarded to one distributor.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusError     OrderStatus = "error"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusSent,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusError,
}

var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusSent, OrderStatusError},
	OrderStatusSent:      {OrderStatusConfirmed, OrderStatusShipped, OrderStatusError},
	OrderStatusConfirmed: {OrderStatusShipped},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status reconciliation never revisits the order.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusError
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Staying in the same state is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, candidate := range orderStatusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CanReach reports whether target lies on some forward path from s. Status
// polls may skip intermediate states (sent straight to delivered).
func (s OrderStatus) CanReach(target OrderStatus) bool {
	seen := map[OrderStatus]bool{}
	queue := []OrderStatus{s}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		queue = append(queue, orderStatusTransitions[cur]...)
	}
	return false
}

// IsShippedOrLater reports whether goods have left the distributor.
func (s OrderStatus) IsShippedOrLater() bool {
	return s == OrderStatusShipped || s == OrderStatusDelivered
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
