package storefront

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Webhook headers sent with every delivery.
const (
	HeaderHmac      = "X-Shopify-Hmac-Sha256"
	HeaderShop      = "X-Shopify-Shop-Domain"
	HeaderTopic     = "X-Shopify-Topic"
	HeaderWebhookID = "X-Shopify-Webhook-Id"

	TopicOrdersCreate = "orders/create"
)

// VerifyHMAC reports whether header is the base64 HMAC-SHA256 of body under secret.
func VerifyHMAC(secret string, body []byte, header string) bool {
	if secret == "" || strings.TrimSpace(header) == "" {
		return false
	}
	given, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}

// SignBody computes the signature header value for body.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// OrderCreatedEvent is the orders/create webhook payload.
type OrderCreatedEvent struct {
	ID              int64        `json:"id" validate:"required"`
	OrderNumber     int64        `json:"order_number"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone"`
	Note            string       `json:"note"`
	LineItems       []LineItem   `json:"line_items" validate:"dive"`
	ShippingAddress *MailAddress `json:"shipping_address"`
	BillingAddress  *MailAddress `json:"billing_address"`
	Customer        *Customer    `json:"customer"`
}

// Number returns the human order number, falling back to the name without "#".
func (e OrderCreatedEvent) Number() string {
	if e.OrderNumber > 0 {
		return formatInt(e.OrderNumber)
	}
	return strings.TrimPrefix(strings.TrimSpace(e.Name), "#")
}

// LineItem is one purchased line of an order.
type LineItem struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	Title     string `json:"title"`
	Name      string `json:"name"`
	Vendor    string `json:"vendor"`
	SKU       string `json:"sku"`
}

// MailAddress is a postal address in a webhook payload.
type MailAddress struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	Zip         string `json:"zip"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone"`
}

// FullName joins first and last name, else returns Name.
func (a *MailAddress) FullName() string {
	if a == nil {
		return ""
	}
	full := strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
	if full != "" {
		return full
	}
	return strings.TrimSpace(a.Name)
}

// Customer is the buyer attached to an order.
type Customer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}
