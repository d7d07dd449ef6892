package supplier

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/distribridge/pkg/enums"
)

// Product is catalog metadata plus every distributor offer for it.
type Product struct {
	ID           string
	SKU          string
	Name         string
	Manufacturer string
	EAN          string
	Category     enums.ProductCategory
	Offers       []Offer
}

// Offer is one distributor's price/stock quote at query time. It is never persisted.
type Offer struct {
	DistributorID   string
	DistributorName string
	Price           decimal.Decimal
	Stock           int
	Available       bool
	Condition       string
	ContractPrices  []ContractPrice
}

// ContractPrice is a negotiated price bound to a contract/project identifier.
type ContractPrice struct {
	ContractID string
	Price      decimal.Decimal
}

// PriceFor resolves the effective price: the contract entry matching contractID
// when one exists, otherwise the standard offer price.
func (o Offer) PriceFor(contractID string) decimal.Decimal {
	if contractID != "" {
		for _, cp := range o.ContractPrices {
			if cp.ContractID == contractID {
				return cp.Price
			}
		}
	}
	return o.Price
}

// OfferFrom returns the offer of the given distributor.
func (p Product) OfferFrom(distributorID string) (Offer, bool) {
	for _, o := range p.Offers {
		if o.DistributorID == distributorID {
			return o, true
		}
	}
	return Offer{}, false
}

// SubmitResult is the supplier's answer to an order submission.
type SubmitResult struct {
	Success bool
	DealID  string
	Error   string
}

// OrderStatus is the supplier's view of a forwarded order.
type OrderStatus struct {
	// Text is the raw supplier status, kept for logging.
	Text string
	// Status is the mapped local status; Known is false when Text matched nothing.
	Status              enums.OrderStatus
	Known               bool
	DispatchDocumentURL string
}

// DispatchDocument holds shipment details extracted from a dispatch notification.
type DispatchDocument struct {
	TrackingNumbers []string
	SerialNumbers   []string
}

// TrackingNumber returns the first tracking number, if any.
func (d DispatchDocument) TrackingNumber() string {
	if len(d.TrackingNumbers) == 0 {
		return ""
	}
	return d.TrackingNumbers[0]
}
