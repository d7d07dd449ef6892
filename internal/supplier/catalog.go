package supplier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/angelmondragon/distribridge/pkg/enums"
)

var (
	productWrappers = []string{"products", "productList", "items"}
	productTags     = []string{"product", "item"}
	offerWrappers   = []string{"supplierItems", "offers", "supplierItemList"}
	offerTags       = []string{"supplierItem", "offer"}
	contractWrapper = []string{"projectPrices", "contractPrices", "specialPrices"}
	contractTags    = []string{"projectPrice", "contractPrice", "specialPrice"}
)

// SearchBySKU returns the product matching sku with all distributor offers,
// available offers first and then by ascending price. It returns nil when the
// catalog has no match.
func (c *Client) SearchBySKU(ctx context.Context, sku string) (*Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, fmt.Errorf("sku required")
	}
	body, err := c.do(ctx, "GET", c.endpoint("/products/search/sku="+url.PathEscape(sku)+"/offers.xml"), nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, dependencyError(err, "search supplier catalog")
	}
	root, err := parseXML(body, c.charset)
	if err != nil {
		return nil, dependencyError(err, "parse search response")
	}
	products := parseProducts(root)
	if len(products) == 0 {
		return nil, nil
	}
	// exact SKU match wins over fuzzy catalog hits
	for i := range products {
		if strings.EqualFold(products[i].SKU, sku) {
			return &products[i], nil
		}
	}
	return &products[0], nil
}

// GetStock refreshes the offers of a known product.
func (c *Client) GetStock(ctx context.Context, productID string) ([]Offer, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id required")
	}
	body, err := c.do(ctx, "GET", c.endpoint("/products/id/"+url.PathEscape(productID)+"/offers.xml"), nil)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, dependencyError(err, "fetch supplier stock")
	}
	root, err := parseXML(body, c.charset)
	if err != nil {
		return nil, dependencyError(err, "parse stock response")
	}
	if products := parseProducts(root); len(products) > 0 {
		return products[0].Offers, nil
	}
	// some endpoints answer with a bare offer list
	offers := parseOffers(root)
	sortOffers(offers)
	return offers, nil
}

func parseProducts(root *node) []Product {
	var nodes []*node
	if matches(root, productTags) {
		nodes = []*node{root}
	} else {
		nodes = root.group(productWrappers, productTags...)
	}
	products := make([]Product, 0, len(nodes))
	for _, n := range nodes {
		p := Product{
			ID:           n.str("puid", "productId", "id"),
			SKU:          n.str("manufacturerSKU", "sku", "hstpid", "supplierPid"),
			Name:         n.str("productName", "shortDescription", "name", "title"),
			Manufacturer: n.str("manufacturerName", "manufacturer", "brand"),
			EAN:          n.str("ean", "gtin", "internationalPid"),
			Category:     mapCategory(n.str("productType", "type", "productTypeName")),
			Offers:       parseOffers(n),
		}
		sortOffers(p.Offers)
		products = append(products, p)
	}
	return products
}

func parseOffers(n *node) []Offer {
	nodes := n.group(offerWrappers, offerTags...)
	offers := make([]Offer, 0, len(nodes))
	for _, o := range nodes {
		offer := Offer{
			DistributorID:   o.str("supplierId", "distributorId", "supplierID"),
			DistributorName: o.str("supplierName", "distributorName", "name"),
			Price:           o.amount("price", "netPrice", "priceNet", "purchasePrice"),
			Stock:           o.integer("stock", "stockQuantity", "availableStock", "quantity"),
			Condition:       strings.ToLower(o.str("condition", "conditionName")),
		}
		if available, ok := o.boolean("stockAvailable", "available", "availability"); ok {
			offer.Available = available
		} else {
			offer.Available = offer.Stock > 0
		}
		if offer.Condition == "" {
			offer.Condition = "new"
		}
		for _, cp := range o.group(contractWrapper, contractTags...) {
			id := cp.str("projectId", "contractId", "id")
			if id == "" {
				continue
			}
			offer.ContractPrices = append(offer.ContractPrices, ContractPrice{
				ContractID: id,
				Price:      cp.amount("price", "netPrice"),
			})
		}
		if offer.DistributorID == "" {
			continue
		}
		offers = append(offers, offer)
	}
	return offers
}

// sortOffers orders available offers first, then by ascending price.
func sortOffers(offers []Offer) {
	sort.SliceStable(offers, func(i, j int) bool {
		if offers[i].Available != offers[j].Available {
			return offers[i].Available
		}
		return offers[i].Price.LessThan(offers[j].Price)
	})
}

// mapCategory folds the supplier's product type vocabulary into a category.
func mapCategory(raw string) enums.ProductCategory {
	lower := strings.ToLower(raw)
	for _, marker := range []string{"service", "warranty", "garantie", "carepack", "care pack", "licen", "support"} {
		if strings.Contains(lower, marker) {
			return enums.ProductCategoryService
		}
	}
	return enums.ProductCategoryPhysical
}

// BestOffer picks the cheapest available offer, else the first offer.
func BestOffer(offers []Offer) (Offer, bool) {
	if len(offers) == 0 {
		return Offer{}, false
	}
	best := offers[0]
	for _, o := range offers {
		if o.Available && (!best.Available || o.Price.LessThan(best.Price)) {
			best = o
		}
	}
	return best, true
}
