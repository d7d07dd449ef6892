package supplier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	buyerPartyID    = "BUYER"
	deliveryPartyID = "DELIVERY"
	licenseePartyID = "ENDCUSTOMER"
)

// Address is a party address as it appears on the order document.
type Address struct {
	Company     string
	Name        string
	Street      string
	Street2     string
	PostalCode  string
	City        string
	CountryCode string
	Email       string
	Phone       string
}

// OrderLine is one position of a purchase order.
type OrderLine struct {
	SKU               string
	SupplierProductID string
	Quantity          int
	Description       string
	ContractID        string
	UnitPrice         *decimal.Decimal
	// ServiceType marks non-inventoried items (warranties, licences) that need
	// an end-customer reference.
	ServiceType string
}

// OrderDocument is everything needed to render a purchase order.
type OrderDocument struct {
	OwnOrderID     string
	OrderDate      time.Time
	DistributorID  string
	CustomerNumber string
	// Buyer is the merchant's registered address.
	Buyer Address
	// Shipping is the storefront order's shipping address, used for delivery
	// when Dropship is set.
	Shipping Address
	Dropship bool
	// Licensee is the end customer, emitted only when a line carries ServiceType.
	Licensee Address
	Lines    []OrderLine
	Remarks  string
}

func (d OrderDocument) hasServiceLine() bool {
	for _, l := range d.Lines {
		if l.ServiceType != "" {
			return true
		}
	}
	return false
}

// DeliveryAddress is the shipping address for drop-shipped orders and the
// merchant's own address otherwise.
func (d OrderDocument) DeliveryAddress() Address {
	if d.Dropship {
		return d.Shipping
	}
	return d.Buyer
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escape also drops characters XML 1.0 does not allow, such as control
// characters pasted into webhook addresses.
func escape(s string) string {
	return xmlEscaper.Replace(strings.Map(xmlChar, s))
}

func xmlChar(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return r
	case r < 0x20, r == 0xFFFE, r == 0xFFFF:
		return -1
	case r >= 0xD800 && r <= 0xDFFF:
		return -1
	}
	return r
}

var postalPrefix = regexp.MustCompile(`^\s*[A-Za-z]{1,3}\s*-\s*`)

// StripPostalPrefix removes a leading country-letter prefix ("A-1090" -> "1090").
func StripPostalPrefix(code string) string {
	return strings.TrimSpace(postalPrefix.ReplaceAllString(code, ""))
}

// BuildOrderDocument renders the purchase order XML. It performs no I/O.
func BuildOrderDocument(doc OrderDocument) ([]byte, error) {
	if doc.OwnOrderID == "" {
		return nil, fmt.Errorf("order id required")
	}
	if len(doc.OwnOrderID) > MaxOwnOrderIDLength {
		return nil, fmt.Errorf("order id %q exceeds %d characters", doc.OwnOrderID, MaxOwnOrderIDLength)
	}
	if doc.DistributorID == "" {
		return nil, fmt.Errorf("distributor id required")
	}
	if len(doc.Lines) == 0 {
		return nil, fmt.Errorf("order has no lines")
	}
	for i, l := range doc.Lines {
		if l.SKU == "" && l.SupplierProductID == "" {
			return nil, fmt.Errorf("line %d has no product reference", i+1)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("line %d has non-positive quantity %d", i+1, l.Quantity)
		}
	}

	withLicensee := doc.hasServiceLine()
	date := doc.OrderDate
	if date.IsZero() {
		date = time.Unix(0, 0)
	}

	w := &docWriter{}
	w.raw(`<?xml version="1.0" encoding="UTF-8"?>`)
	w.open(`ORDER version="2.1" type="standard"`)
	w.open("ORDER_HEADER")
	w.open("ORDER_INFO")
	w.elem("ORDER_ID", doc.OwnOrderID)
	w.elem("ORDER_DATE", date.UTC().Format(time.RFC3339))

	w.open("PARTIES")
	w.party(buyerPartyID, doc.CustomerNumber, "buyer", doc.Buyer, false)
	w.party(doc.DistributorID, "", "supplier", Address{}, false)
	w.party(deliveryPartyID, "", "delivery", doc.DeliveryAddress(), true)
	if withLicensee {
		w.party(licenseePartyID, "", "end_customer", doc.Licensee, false)
	}
	w.close("PARTIES")

	w.open("ORDER_PARTIES_REFERENCE")
	w.elem("BUYER_IDREF", buyerPartyID)
	w.elem("SUPPLIER_IDREF", doc.DistributorID)
	w.open("SHIPMENT_PARTIES_REFERENCE")
	w.elem("DELIVERY_IDREF", deliveryPartyID)
	w.close("SHIPMENT_PARTIES_REFERENCE")
	w.close("ORDER_PARTIES_REFERENCE")

	w.elem("PARTIAL_SHIPMENT_ALLOWED", "true")
	if doc.Remarks != "" {
		w.elem("REMARKS", doc.Remarks)
	}
	w.close("ORDER_INFO")
	w.close("ORDER_HEADER")

	w.open("ORDER_ITEM_LIST")
	for i, l := range doc.Lines {
		w.open("ORDER_ITEM")
		w.elem("LINE_ITEM_ID", strconv.Itoa(i+1))
		w.open("PRODUCT_ID")
		if l.SKU != "" {
			w.elem("SUPPLIER_PID", l.SKU)
		}
		if l.SupplierProductID != "" {
			w.elem("BUYER_PID", l.SupplierProductID)
		}
		w.elem("DESCRIPTION_SHORT", l.Description)
		w.close("PRODUCT_ID")
		w.elem("QUANTITY", strconv.Itoa(l.Quantity))
		w.elem("ORDER_UNIT", "C62")
		if l.UnitPrice != nil {
			w.open("PRODUCT_PRICE_FIX")
			w.elem("PRICE_AMOUNT", l.UnitPrice.StringFixed(2))
			w.close("PRODUCT_PRICE_FIX")
			w.elem("PRICE_LINE_AMOUNT", l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).StringFixed(2))
		}
		if l.ContractID != "" {
			w.elem(`SPECIAL_TREATMENT_CLASS type="project"`, l.ContractID)
		}
		if l.ServiceType != "" {
			w.elem(`SPECIAL_TREATMENT_CLASS type="service"`, l.ServiceType)
			w.open("ITEM_PARTIES_REFERENCE")
			w.elem("END_CUSTOMER_IDREF", licenseePartyID)
			w.close("ITEM_PARTIES_REFERENCE")
		}
		w.close("ORDER_ITEM")
	}
	w.close("ORDER_ITEM_LIST")

	w.open("ORDER_SUMMARY")
	w.elem("TOTAL_ITEM_NUM", strconv.Itoa(len(doc.Lines)))
	w.close("ORDER_SUMMARY")
	w.close("ORDER")

	return []byte(w.String()), nil
}

type docWriter struct {
	strings.Builder
	depth int
}

func (w *docWriter) raw(s string) {
	w.WriteString(s)
	w.WriteByte('\n')
}

func (w *docWriter) indent() {
	w.WriteString(strings.Repeat("  ", w.depth))
}

// open writes a start tag; tag may carry literal attributes.
func (w *docWriter) open(tag string) {
	w.indent()
	w.WriteString("<" + tag + ">\n")
	w.depth++
}

func (w *docWriter) close(name string) {
	w.depth--
	w.indent()
	w.WriteString("</" + name + ">\n")
}

// elem writes a text element; value is escaped, tag is trusted.
func (w *docWriter) elem(tag, value string) {
	name := tag
	if i := strings.IndexByte(tag, ' '); i > 0 {
		name = tag[:i]
	}
	w.indent()
	w.WriteString("<" + tag + ">" + escape(value) + "</" + name + ">\n")
}

func (w *docWriter) party(id, supplierID, role string, addr Address, delivery bool) {
	w.open("PARTY")
	w.elem(`PARTY_ID type="buyer_specific"`, id)
	if supplierID != "" {
		w.elem(`PARTY_ID type="supplier_specific"`, supplierID)
	}
	w.elem("PARTY_ROLE", role)
	if role != "supplier" {
		postal := addr.PostalCode
		if delivery {
			postal = StripPostalPrefix(postal)
		}
		w.open("ADDRESS")
		w.elem("NAME", addr.Company)
		w.elem("NAME2", addr.Name)
		w.elem("STREET", addr.Street)
		if addr.Street2 != "" {
			w.elem("ADDRESS_REMARKS", addr.Street2)
		}
		w.elem("ZIP", postal)
		w.elem("CITY", addr.City)
		w.elem("COUNTRY_CODED", addr.CountryCode)
		w.elem("EMAIL", addr.Email)
		w.elem("PHONE", addr.Phone)
		w.close("ADDRESS")
	}
	w.close("PARTY")
}
