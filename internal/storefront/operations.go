package storefront

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SetInventory sets the available quantity of an inventory item at a location.
// The item is activated at the location first; activation errors are logged
// and ignored because an already-stocked item reports one.
func (c *Client) SetInventory(ctx context.Context, sess Session, inventoryItemID, locationID string, quantity int) error {
	if inventoryItemID == "" || locationID == "" {
		return fmt.Errorf("inventory item and location required")
	}
	if quantity < 0 {
		quantity = 0
	}

	var activated struct {
		InventoryActivate struct {
			UserErrors UserErrors `json:"userErrors"`
		} `json:"inventoryActivate"`
	}
	err := c.Execute(ctx, sess, inventoryActivateMutation, map[string]any{
		"inventoryItemId": inventoryItemID,
		"locationId":      locationID,
	}, &activated)
	if err == nil {
		err = activated.InventoryActivate.UserErrors.orNil()
	}
	if err != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{"inventory_item_id": inventoryItemID, "location_id": locationID})
		c.logg.Warn(logCtx, "inventory activation failed; continuing: "+err.Error())
	}

	var set struct {
		InventorySetQuantities struct {
			UserErrors UserErrors `json:"userErrors"`
		} `json:"inventorySetQuantities"`
	}
	if err := c.Execute(ctx, sess, inventorySetQuantitiesMutation, map[string]any{
		"input": map[string]any{
			"name":                  "available",
			"reason":                "correction",
			"ignoreCompareQuantity": true,
			"quantities": []map[string]any{{
				"inventoryItemId": inventoryItemID,
				"locationId":      locationID,
				"quantity":        quantity,
			}},
		},
	}, &set); err != nil {
		return err
	}
	return set.InventorySetQuantities.UserErrors.orNil()
}

// ResolveDefaultLocation returns the first active location that fulfils
// online orders, else the first active one. It returns "" when the shop has none.
func (c *Client) ResolveDefaultLocation(ctx context.Context, sess Session) (string, error) {
	var out struct {
		Locations struct {
			Nodes []struct {
				ID                   string `json:"id"`
				IsActive             bool   `json:"isActive"`
				FulfillsOnlineOrders bool   `json:"fulfillsOnlineOrders"`
			} `json:"nodes"`
		} `json:"locations"`
	}
	if err := c.Execute(ctx, sess, locationsQuery, nil, &out); err != nil {
		return "", err
	}
	fallback := ""
	for _, loc := range out.Locations.Nodes {
		if !loc.IsActive {
			continue
		}
		if loc.FulfillsOnlineOrders {
			return loc.ID, nil
		}
		if fallback == "" {
			fallback = loc.ID
		}
	}
	return fallback, nil
}

// FulfillmentOrder is an open unit of unshipped line items.
type FulfillmentOrder struct {
	ID        string
	Status    string
	LineItems []FulfillmentLine
}

// FulfillmentLine is one fulfillment order line with its remaining quantity.
type FulfillmentLine struct {
	ID       string
	Quantity int
}

// Remaining sums the unfulfilled quantity.
func (f FulfillmentOrder) Remaining() int {
	total := 0
	for _, l := range f.LineItems {
		total += l.Quantity
	}
	return total
}

// FulfillmentOrders lists the open fulfillment orders of an order.
func (c *Client) FulfillmentOrders(ctx context.Context, sess Session, orderID string) ([]FulfillmentOrder, error) {
	var out struct {
		Order *struct {
			FulfillmentOrders struct {
				Nodes []struct {
					ID        string `json:"id"`
					Status    string `json:"status"`
					LineItems struct {
						Nodes []struct {
							ID                string `json:"id"`
							RemainingQuantity int    `json:"remainingQuantity"`
						} `json:"nodes"`
					} `json:"lineItems"`
				} `json:"nodes"`
			} `json:"fulfillmentOrders"`
		} `json:"order"`
	}
	if err := c.Execute(ctx, sess, fulfillmentOrdersQuery, map[string]any{"id": orderID}, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, nil
	}
	var result []FulfillmentOrder
	for _, fo := range out.Order.FulfillmentOrders.Nodes {
		status := strings.ToUpper(fo.Status)
		if status != "OPEN" && status != "IN_PROGRESS" {
			continue
		}
		item := FulfillmentOrder{ID: fo.ID, Status: status}
		for _, li := range fo.LineItems.Nodes {
			if li.RemainingQuantity <= 0 {
				continue
			}
			item.LineItems = append(item.LineItems, FulfillmentLine{ID: li.ID, Quantity: li.RemainingQuantity})
		}
		result = append(result, item)
	}
	return result, nil
}

// FulfillmentInput describes one fulfillment to create.
type FulfillmentInput struct {
	FulfillmentOrderID string
	LineItems          []FulfillmentLine
	TrackingNumber     string
	TrackingCompany    string
	NotifyCustomer     bool
}

// CreateFulfillment ships the given fulfillment order lines with tracking info.
func (c *Client) CreateFulfillment(ctx context.Context, sess Session, in FulfillmentInput) error {
	if in.FulfillmentOrderID == "" {
		return fmt.Errorf("fulfillment order id required")
	}
	lines := make([]map[string]any, 0, len(in.LineItems))
	for _, l := range in.LineItems {
		lines = append(lines, map[string]any{"id": l.ID, "quantity": l.Quantity})
	}
	byOrder := map[string]any{"fulfillmentOrderId": in.FulfillmentOrderID}
	if len(lines) > 0 {
		byOrder["fulfillmentOrderLineItems"] = lines
	}
	tracking := map[string]any{"number": in.TrackingNumber}
	if in.TrackingCompany != "" {
		tracking["company"] = in.TrackingCompany
	}

	var out struct {
		FulfillmentCreate struct {
			UserErrors UserErrors `json:"userErrors"`
		} `json:"fulfillmentCreate"`
	}
	if err := c.Execute(ctx, sess, fulfillmentCreateMutation, map[string]any{
		"fulfillment": map[string]any{
			"lineItemsByFulfillmentOrder": []map[string]any{byOrder},
			"trackingInfo":                tracking,
			"notifyCustomer":              in.NotifyCustomer,
		},
	}, &out); err != nil {
		return err
	}
	return out.FulfillmentCreate.UserErrors.orNil()
}

// AnnotateOrder appends note to the order's existing note.
func (c *Client) AnnotateOrder(ctx context.Context, sess Session, orderID, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	var current struct {
		Order *struct {
			Note *string `json:"note"`
		} `json:"order"`
	}
	if err := c.Execute(ctx, sess, orderNoteQuery, map[string]any{"id": orderID}, &current); err != nil {
		return err
	}
	if current.Order == nil {
		return fmt.Errorf("order %s not found", orderID)
	}
	combined := note
	if current.Order.Note != nil && strings.TrimSpace(*current.Order.Note) != "" {
		combined = strings.TrimRight(*current.Order.Note, "\n") + "\n\n" + note
	}

	var out struct {
		OrderUpdate struct {
			UserErrors UserErrors `json:"userErrors"`
		} `json:"orderUpdate"`
	}
	if err := c.Execute(ctx, sess, orderUpdateMutation, map[string]any{
		"input": map[string]any{"id": orderID, "note": combined},
	}, &out); err != nil {
		return err
	}
	return out.OrderUpdate.UserErrors.orNil()
}

// ProductInput describes a product to create for an imported SKU.
type ProductInput struct {
	Title   string
	Vendor  string
	SKU     string
	Barcode string
	Price   decimal.Decimal
	// Tracked enables inventory tracking; services stay untracked.
	Tracked bool
}

// CreatedProduct holds the ids of a newly created product.
type CreatedProduct struct {
	ProductID       string
	VariantID       string
	InventoryItemID string
}

// CreateProduct creates a draft product and prices its default variant.
func (c *Client) CreateProduct(ctx context.Context, sess Session, in ProductInput) (CreatedProduct, error) {
	if strings.TrimSpace(in.Title) == "" {
		return CreatedProduct{}, fmt.Errorf("product title required")
	}
	var created struct {
		ProductCreate struct {
			Product *struct {
				ID       string `json:"id"`
				Variants struct {
					Nodes []struct {
						ID            string `json:"id"`
						InventoryItem struct {
							ID string `json:"id"`
						} `json:"inventoryItem"`
					} `json:"nodes"`
				} `json:"variants"`
			} `json:"product"`
			UserErrors UserErrors `json:"userErrors"`
		} `json:"productCreate"`
	}
	product := map[string]any{"title": in.Title, "status": "DRAFT"}
	if in.Vendor != "" {
		product["vendor"] = in.Vendor
	}
	if err := c.Execute(ctx, sess, productCreateMutation, map[string]any{"product": product}, &created); err != nil {
		return CreatedProduct{}, err
	}
	if err := created.ProductCreate.UserErrors.orNil(); err != nil {
		return CreatedProduct{}, err
	}
	p := created.ProductCreate.Product
	if p == nil || len(p.Variants.Nodes) == 0 {
		return CreatedProduct{}, fmt.Errorf("product create returned no variant")
	}
	result := CreatedProduct{
		ProductID:       p.ID,
		VariantID:       p.Variants.Nodes[0].ID,
		InventoryItemID: p.Variants.Nodes[0].InventoryItem.ID,
	}

	variant := map[string]any{
		"id":    result.VariantID,
		"price": in.Price.StringFixed(2),
		"inventoryItem": map[string]any{
			"sku":     in.SKU,
			"tracked": in.Tracked,
		},
	}
	if in.Barcode != "" {
		variant["barcode"] = in.Barcode
	}
	var updated struct {
		ProductVariantsBulkUpdate struct {
			UserErrors UserErrors `json:"userErrors"`
		} `json:"productVariantsBulkUpdate"`
	}
	if err := c.Execute(ctx, sess, productVariantsBulkUpdateMutation, map[string]any{
		"productId": result.ProductID,
		"variants":  []map[string]any{variant},
	}, &updated); err != nil {
		return result, err
	}
	return result, updated.ProductVariantsBulkUpdate.UserErrors.orNil()
}
