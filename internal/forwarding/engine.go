// Package forwarding turns storefront orders into one supplier purchase order
// per distributor, at most once per (shop, order, distributor).
package forwarding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/distribridge/internal/orders"
	"github.com/angelmondragon/distribridge/internal/storefront"
	"github.com/angelmondragon/distribridge/internal/supplier"
	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/angelmondragon/distribridge/pkg/enums"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/angelmondragon/distribridge/pkg/metrics"
	"github.com/google/uuid"
)

const maxErrorMessageLength = 255

type productMatcher interface {
	FindActiveByStorefrontProductIDs(ctx context.Context, shop string, productIDs []string) ([]models.TrackedProduct, error)
}

type ledger interface {
	Claim(ctx context.Context, order *models.Order) error
	RecordOutcome(ctx context.Context, id uuid.UUID, outcome orders.Outcome) error
	DeleteClaim(ctx context.Context, id uuid.UUID) error
}

type orderSubmitter interface {
	SubmitOrder(ctx context.Context, distributorID string, document []byte) (supplier.SubmitResult, error)
}

type orderAnnotator interface {
	AnnotateOrder(ctx context.Context, sess storefront.Session, orderID, note string) error
}

type shopLookup interface {
	Lookup(ctx context.Context, shop string) (*models.Shop, error)
}

// Params wires the Engine.
type Params struct {
	Products   productMatcher
	Ledger     ledger
	Supplier   orderSubmitter
	Storefront orderAnnotator
	Shops      shopLookup
	Metrics    *metrics.ForwardingMetrics
	Logger     *logger.Logger
}

// Engine forwards storefront orders to the supplier.
type Engine struct {
	products   productMatcher
	ledger     ledger
	supplier   orderSubmitter
	storefront orderAnnotator
	shops      shopLookup
	metrics    *metrics.ForwardingMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewEngine validates params and builds an Engine.
func NewEngine(params Params) (*Engine, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("product matcher required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if params.Supplier == nil {
		return nil, fmt.Errorf("supplier client required")
	}
	if params.Storefront == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{
		products:   params.Products,
		ledger:     params.Ledger,
		supplier:   params.Supplier,
		storefront: params.Storefront,
		shops:      params.Shops,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// GroupResult reports what happened to one distributor group.
type GroupResult struct {
	DistributorID string
	OwnOrderID    string
	Outcome       string
	DealID        string
	Error         string
}

// Result summarizes one Forward call.
type Result struct {
	Groups []GroupResult
}

// Count returns how many groups ended with outcome.
func (r Result) Count(outcome string) int {
	n := 0
	for _, g := range r.Groups {
		if g.Outcome == outcome {
			n++
		}
	}
	return n
}

type group struct {
	distributorID   string
	distributorName string
	items           []groupItem
}

type groupItem struct {
	product models.TrackedProduct
	line    storefront.LineItem
}

func (g group) dropship() bool {
	for _, it := range g.items {
		if it.product.IsDropship() {
			return true
		}
	}
	return false
}

// Forward splits the order by distributor and submits each group once.
// Supplier failures are recorded on the group's ledger row and never abort
// the remaining groups. An error is returned only when nothing could be
// attempted (unknown shop, product lookup failure).
func (e *Engine) Forward(ctx context.Context, shop string, evt storefront.OrderCreatedEvent) (Result, error) {
	shop = storefront.NormalizeShop(shop)
	ctx = e.logg.WithFields(e.logg.WithShop(ctx, shop), map[string]any{
		"storefront_order_id": evt.ID,
		"order_number":        evt.Number(),
	})

	groups, err := e.group(ctx, shop, evt)
	if err != nil {
		return Result{}, err
	}
	if len(groups) == 0 {
		e.logg.Debug(ctx, "order has no supplier-managed items")
		return Result{}, nil
	}

	merchant, err := e.shops.Lookup(ctx, shop)
	if err != nil {
		return Result{}, fmt.Errorf("load shop: %w", err)
	}
	sess := storefront.Session{Shop: merchant.Domain, AccessToken: merchant.AccessToken}

	ids := AssignOwnOrderIDs(evt.Number(), len(groups))
	result := Result{Groups: make([]GroupResult, 0, len(groups))}
	for i, g := range groups {
		res := e.forwardGroup(ctx, merchant, sess, evt, g, ids[i])
		e.metrics.IncOutcome(res.Outcome)
		result.Groups = append(result.Groups, res)
	}

	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"groups":     len(groups),
		"sent":       result.Count(metrics.OutcomeSent),
		"failed":     result.Count(metrics.OutcomeFailed),
		"duplicates": result.Count(metrics.OutcomeDuplicate),
	}), "order forwarded")
	return result, nil
}

// group maps line items to tracked products and buckets them by distributor,
// ordered by distributor id so own order ids are stable across deliveries.
func (e *Engine) group(ctx context.Context, shop string, evt storefront.OrderCreatedEvent) ([]group, error) {
	var productIDs []string
	seen := map[string]bool{}
	for _, li := range evt.LineItems {
		if li.ProductID == nil {
			continue
		}
		gid := storefront.ProductGID(*li.ProductID)
		if !seen[gid] {
			seen[gid] = true
			productIDs = append(productIDs, gid)
		}
	}
	if len(productIDs) == 0 {
		return nil, nil
	}

	tracked, err := e.products.FindActiveByStorefrontProductIDs(ctx, shop, productIDs)
	if err != nil {
		return nil, fmt.Errorf("match tracked products: %w", err)
	}
	byProduct := make(map[string]models.TrackedProduct, len(tracked))
	for _, p := range tracked {
		byProduct[p.StorefrontProductID] = p
	}

	byDistributor := map[string]*group{}
	for _, li := range evt.LineItems {
		if li.ProductID == nil {
			continue
		}
		p, ok := byProduct[storefront.ProductGID(*li.ProductID)]
		if !ok {
			continue
		}
		g, ok := byDistributor[p.DistributorID]
		if !ok {
			g = &group{distributorID: p.DistributorID, distributorName: p.DistributorName}
			byDistributor[p.DistributorID] = g
		}
		g.items = append(g.items, groupItem{product: p, line: li})
	}

	out := make([]group, 0, len(byDistributor))
	for _, g := range byDistributor {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].distributorID < out[j].distributorID })
	return out, nil
}

func (e *Engine) forwardGroup(ctx context.Context, merchant *models.Shop, sess storefront.Session, evt storefront.OrderCreatedEvent, g group, ownID string) GroupResult {
	res := GroupResult{DistributorID: g.distributorID, OwnOrderID: ownID}
	ctx = e.logg.WithFields(ctx, map[string]any{"distributor_id": g.distributorID, "own_order_id": ownID})

	claim := &models.Order{
		Shop:                  merchant.Domain,
		StorefrontOrderID:     evt.ID,
		StorefrontOrderNumber: evt.Number(),
		DistributorID:         g.distributorID,
		DistributorName:       g.distributorName,
		OwnOrderID:            ownID,
		Status:                enums.OrderStatusPending,
		Dropship:              g.dropship(),
	}
	if err := e.ledger.Claim(ctx, claim); err != nil {
		if errors.Is(err, orders.ErrAlreadyClaimed) {
			e.logg.Debug(ctx, "distributor group already claimed")
			res.Outcome = metrics.OutcomeDuplicate
			return res
		}
		e.logg.Error(ctx, "claim order failed", err)
		res.Outcome = metrics.OutcomeFailed
		res.Error = err.Error()
		return res
	}

	lines := buildLines(g)
	if len(lines) == 0 {
		if err := e.ledger.DeleteClaim(ctx, claim.ID); err != nil {
			e.logg.Error(ctx, "release empty claim failed", err)
		}
		res.Outcome = metrics.OutcomeEmpty
		return res
	}

	doc := supplier.OrderDocument{
		OwnOrderID:     ownID,
		OrderDate:      e.now().UTC(),
		DistributorID:  g.distributorID,
		CustomerNumber: deref(merchant.SupplierCustomerNumber),
		Buyer:          merchantAddress(merchant),
		Shipping:       shippingAddress(evt),
		Dropship:       claim.Dropship,
		Lines:          lines,
		Remarks:        "Storefront order " + orderLabel(evt),
	}
	if hasService(lines) {
		doc.Licensee = licenseeAddress(evt)
	}

	outcome := e.submit(ctx, doc)
	if err := e.ledger.RecordOutcome(ctx, claim.ID, outcome); err != nil {
		e.logg.Error(ctx, "record order outcome failed", err)
	}

	if outcome.Status == enums.OrderStatusSent {
		res.Outcome = metrics.OutcomeSent
		res.DealID = deref(outcome.DealID)
		e.logg.Info(ctx, "supplier order sent")
	} else {
		res.Outcome = metrics.OutcomeFailed
		res.Error = deref(outcome.ErrorMessage)
		e.logg.Warn(ctx, "supplier order failed: "+res.Error)
	}

	note := orderNote(g, ownID, outcome)
	if err := e.storefront.AnnotateOrder(ctx, sess, storefront.OrderGID(evt.ID), note); err != nil {
		e.logg.Warn(ctx, "annotate storefront order failed: "+err.Error())
	}
	return res
}

func (e *Engine) submit(ctx context.Context, doc supplier.OrderDocument) orders.Outcome {
	body, err := supplier.BuildOrderDocument(doc)
	if err != nil {
		return failed(err.Error())
	}
	submitted, err := e.supplier.SubmitOrder(ctx, doc.DistributorID, body)
	if err != nil {
		return failed(err.Error())
	}
	if !submitted.Success {
		msg := submitted.Error
		if msg == "" {
			msg = "supplier rejected order"
		}
		return failed(msg)
	}
	out := orders.Outcome{Status: enums.OrderStatusSent}
	if submitted.DealID != "" {
		deal := submitted.DealID
		out.DealID = &deal
	}
	return out
}

func failed(msg string) orders.Outcome {
	msg = TruncateMessage(msg)
	return orders.Outcome{Status: enums.OrderStatusError, ErrorMessage: &msg}
}

// TruncateMessage caps an error message at the ledger column width without
// splitting a multi-byte character.
func TruncateMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= maxErrorMessageLength {
		return msg
	}
	cut := maxErrorMessageLength
	for cut > 0 && !isRuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func buildLines(g group) []supplier.OrderLine {
	lines := make([]supplier.OrderLine, 0, len(g.items))
	for _, it := range g.items {
		if it.line.Quantity <= 0 {
			continue
		}
		line := supplier.OrderLine{
			SKU:               it.product.SupplierSKU,
			SupplierProductID: it.product.SupplierProductID,
			Quantity:          it.line.Quantity,
			Description:       firstNonEmpty(it.line.Title, it.line.Name, it.product.Title),
		}
		if it.product.ContractID != nil && *it.product.ContractID != "" {
			line.ContractID = *it.product.ContractID
			// The recorded price is already contract-resolved by the sync loop.
			if it.product.LastPrice != nil {
				price := *it.product.LastPrice
				line.UnitPrice = &price
			}
		}
		if !it.product.Category.IsInventoried() {
			line.ServiceType = enums.ProductCategoryService.String()
		}
		lines = append(lines, line)
	}
	return lines
}

func hasService(lines []supplier.OrderLine) bool {
	for _, l := range lines {
		if l.ServiceType != "" {
			return true
		}
	}
	return false
}

func merchantAddress(s *models.Shop) supplier.Address {
	return supplier.Address{
		Company:     s.CompanyName,
		Name:        s.ContactName,
		Street:      s.Street,
		PostalCode:  s.PostalCode,
		City:        s.City,
		CountryCode: s.CountryCode,
		Email:       s.Email,
		Phone:       s.Phone,
	}
}

func shippingAddress(evt storefront.OrderCreatedEvent) supplier.Address {
	return fromMailAddress(evt.ShippingAddress, contactEmail(evt), firstNonEmpty(evt.Phone, customerPhone(evt)))
}

// licenseeAddress is the billing contact, falling back to the shipping address.
func licenseeAddress(evt storefront.OrderCreatedEvent) supplier.Address {
	addr := evt.BillingAddress
	if addr == nil {
		addr = evt.ShippingAddress
	}
	return fromMailAddress(addr, contactEmail(evt), firstNonEmpty(evt.Phone, customerPhone(evt)))
}

func fromMailAddress(a *storefront.MailAddress, email, phone string) supplier.Address {
	if a == nil {
		return supplier.Address{Email: email, Phone: phone}
	}
	return supplier.Address{
		Company:     strings.TrimSpace(a.Company),
		Name:        a.FullName(),
		Street:      strings.TrimSpace(a.Address1),
		Street2:     strings.TrimSpace(a.Address2),
		PostalCode:  strings.TrimSpace(a.Zip),
		City:        strings.TrimSpace(a.City),
		CountryCode: strings.TrimSpace(a.CountryCode),
		Email:       email,
		Phone:       firstNonEmpty(a.Phone, phone),
	}
}

func contactEmail(evt storefront.OrderCreatedEvent) string {
	if evt.Email != "" {
		return evt.Email
	}
	if evt.Customer != nil {
		return evt.Customer.Email
	}
	return ""
}

func customerPhone(evt storefront.OrderCreatedEvent) string {
	if evt.Customer != nil {
		return evt.Customer.Phone
	}
	return ""
}

func orderLabel(evt storefront.OrderCreatedEvent) string {
	if evt.Name != "" {
		return evt.Name
	}
	return "#" + evt.Number()
}

func orderNote(g group, ownID string, outcome orders.Outcome) string {
	skus := make([]string, 0, len(g.items))
	for _, it := range g.items {
		skus = append(skus, it.product.SupplierSKU)
	}
	distributor := firstNonEmpty(g.distributorName, g.distributorID)
	if outcome.Status == enums.OrderStatusSent {
		note := fmt.Sprintf("Supplier order %s sent to %s (%s).", ownID, distributor, strings.Join(skus, ", "))
		if outcome.DealID != nil {
			note += " Deal " + *outcome.DealID + "."
		}
		return note
	}
	return fmt.Sprintf("Supplier order %s to %s failed (%s): %s", ownID, distributor, strings.Join(skus, ", "), deref(outcome.ErrorMessage))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
