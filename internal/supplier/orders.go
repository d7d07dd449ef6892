package supplier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/angelmondragon/distribridge/pkg/enums"
	"github.com/angelmondragon/distribridge/pkg/resilience"
)

// MaxOwnOrderIDLength is the longest order reference the supplier accepts.
const MaxOwnOrderIDLength = 18

// SubmitOrder posts a rendered order document for one distributor. A business
// rejection comes back as SubmitResult{Success: false}; transport failures as error.
func (c *Client) SubmitOrder(ctx context.Context, distributorID string, document []byte) (SubmitResult, error) {
	if distributorID == "" {
		return SubmitResult{}, fmt.Errorf("distributor id required")
	}
	if len(document) == 0 {
		return SubmitResult{}, fmt.Errorf("order document required")
	}
	body, err := c.do(ctx, "POST", c.endpoint("/orders/supplier/"+url.PathEscape(distributorID)+"/order.xml"), document)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && resilience.IsPermanent(err) {
			return SubmitResult{Success: false, Error: httpErr.Error()}, nil
		}
		return SubmitResult{}, dependencyError(err, "submit supplier order")
	}
	root, err := parseXML(body, c.charset)
	if err != nil {
		return SubmitResult{}, dependencyError(err, "parse order response")
	}
	return parseSubmitResult(root), nil
}

func parseSubmitResult(root *node) SubmitResult {
	dealID := root.str("dealId", "dealID", "DEAL_ID", "supplierOrderId", "orderId")
	message := root.str("message", "errorMessage", "error", "MESSAGE")
	success, known := root.boolean("success", "SUCCESS", "accepted")
	if !known {
		success = dealID != ""
	}
	if success && dealID == "" {
		// accepted without an id; the status loop falls back to the own order id
		return SubmitResult{Success: true}
	}
	if !success && message == "" {
		message = "order rejected by supplier"
	}
	if !success {
		return SubmitResult{Success: false, Error: message}
	}
	return SubmitResult{Success: true, DealID: dealID}
}

// GetStatus looks up a forwarded order by deal id or own order id. It returns
// nil when the supplier has no status for lookupID.
func (c *Client) GetStatus(ctx context.Context, lookupID string) (*OrderStatus, error) {
	if lookupID == "" {
		return nil, fmt.Errorf("lookup id required")
	}
	body, err := c.do(ctx, "GET", c.endpoint("/orders/status/"+url.PathEscape(lookupID)+".xml"), nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, dependencyError(err, "fetch supplier order status")
	}
	root, err := parseXML(body, c.charset)
	if err != nil {
		return nil, dependencyError(err, "parse order status")
	}
	statusNode := root
	if nested := root.first("orderStatus", "order", "deal"); nested != nil {
		statusNode = nested
	}
	text := statusNode.str("status", "state", "orderState", "statusText")
	if text == "" {
		return nil, nil
	}
	mapped, known := MapStatus(text)
	return &OrderStatus{
		Text:                text,
		Status:              mapped,
		Known:               known,
		DispatchDocumentURL: dispatchURL(statusNode),
	}, nil
}

func dispatchURL(n *node) string {
	if u := n.str("dispatchDocumentUrl", "dispatchNotificationUrl", "deliveryNoteUrl"); u != "" {
		return u
	}
	for _, doc := range n.find("dispatchDocument", "dispatchNotification", "deliveryNote") {
		if u := doc.attr("href"); u != "" {
			return u
		}
		if u := doc.str("url", "href", "link"); u != "" {
			return u
		}
		if u := doc.value(); strings.HasPrefix(u, "http") || strings.HasPrefix(u, "/") {
			return u
		}
	}
	return ""
}

// MapStatus translates supplier status text into a local status using
// case-insensitive keyword matching. The most advanced match wins. Negated
// keywords ("undelivered", "not yet shipped") do not count.
func MapStatus(text string) (enums.OrderStatus, bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	switch {
	case mentions(words, "delivered", "completed"):
		return enums.OrderStatusDelivered, true
	case mentions(words, "shipped", "dispatched"):
		return enums.OrderStatusShipped, true
	case mentions(words, "confirmed", "advised"):
		return enums.OrderStatusConfirmed, true
	}
	return "", false
}

var negations = map[string]bool{"not": true, "no": true, "never": true}

// mentions reports whether a keyword appears in words without a negation in
// the two preceding words. Words merely containing the keyword ("undelivered")
// do not match.
func mentions(words []string, keywords ...string) bool {
	for i, w := range words {
		for _, kw := range keywords {
			if w != kw {
				continue
			}
			negated := false
			for j := i - 1; j >= 0 && j >= i-2; j-- {
				if negations[words[j]] {
					negated = true
				}
			}
			if !negated {
				return true
			}
		}
	}
	return false
}

// FetchDispatchDocument downloads a dispatch notification and extracts
// tracking and serial numbers. Missing sections yield empty lists.
func (c *Client) FetchDispatchDocument(ctx context.Context, ref string) (DispatchDocument, error) {
	if ref == "" {
		return DispatchDocument{}, fmt.Errorf("dispatch document url required")
	}
	target, err := c.reference(ref)
	if err != nil {
		return DispatchDocument{}, err
	}
	body, err := c.do(ctx, "GET", target, nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return DispatchDocument{}, nil
		}
		return DispatchDocument{}, dependencyError(err, "fetch dispatch document")
	}
	root, err := parseXML(body, c.charset)
	if err != nil {
		return DispatchDocument{}, dependencyError(err, "parse dispatch document")
	}
	return DispatchDocument{
		TrackingNumbers: collect(root, "TRACKING_TRACING_NUMBER", "SHIPMENT_ID", "trackingNumber", "trackingId", "PACKAGE_ID"),
		SerialNumbers:   collect(root, "SERIAL_NUMBER", "serialNumber", "serial"),
	}, nil
}

// collect returns the distinct non-empty texts of all descendants named names.
func collect(root *node, names ...string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, n := range root.find(names...) {
		v := n.value()
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
