package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/distribridge/internal/products"
	"github.com/angelmondragon/distribridge/internal/storefront"
	"github.com/angelmondragon/distribridge/internal/supplier"
	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/google/uuid"
)

type trackedStore interface {
	ListActiveShops(ctx context.Context) ([]string, error)
	ListActiveByShop(ctx context.Context, shop string) ([]models.TrackedProduct, error)
	UpdateSync(ctx context.Context, id uuid.UUID, update products.SyncUpdate) error
}

type shopSessions interface {
	Lookup(ctx context.Context, shop string) (*models.Shop, error)
	DefaultLocation(ctx context.Context, row *models.Shop) (string, error)
}

type stockSource interface {
	GetStock(ctx context.Context, productID string) ([]supplier.Offer, error)
}

type inventorySetter interface {
	SetInventory(ctx context.Context, sess storefront.Session, inventoryItemID, locationID string, quantity int) error
}

// StockPriceParams wires the StockPrice loop.
type StockPriceParams struct {
	Products        trackedStore
	Shops           shopSessions
	Supplier        stockSource
	Storefront      inventorySetter
	ShopConcurrency int
	Logger          *logger.Logger
}

// StockPrice mirrors supplier stock into storefront inventory and records
// price movements on tracked products.
type StockPrice struct {
	products    trackedStore
	shops       shopSessions
	supplier    stockSource
	storefront  inventorySetter
	concurrency int
	logg        *logger.Logger
	now         func() time.Time
}

// NewStockPrice validates params and builds the loop.
func NewStockPrice(params StockPriceParams) (*StockPrice, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Shops == nil {
		return nil, fmt.Errorf("shop sessions required")
	}
	if params.Supplier == nil {
		return nil, fmt.Errorf("supplier client required")
	}
	if params.Storefront == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &StockPrice{
		products:    params.Products,
		shops:       params.Shops,
		supplier:    params.Supplier,
		storefront:  params.Storefront,
		concurrency: params.ShopConcurrency,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// Run performs one full pass over every shop with active tracked products.
func (s *StockPrice) Run(ctx context.Context) (Result, error) {
	shops, err := s.products.ListActiveShops(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list shops: %w", err)
	}
	t := &tally{}
	eachShop(ctx, shops, s.concurrency, func(ctx context.Context, shop string) {
		s.syncShop(s.logg.WithShop(ctx, shop), shop, t)
	})
	return t.result(), nil
}

func (s *StockPrice) syncShop(ctx context.Context, shop string, t *tally) {
	items, err := s.products.ListActiveByShop(ctx, shop)
	if err != nil {
		s.logg.Error(ctx, "list tracked products failed", err)
		t.failed(1)
		return
	}
	var inventoried []models.TrackedProduct
	for _, p := range items {
		if p.Category.IsInventoried() {
			inventoried = append(inventoried, p)
		}
	}
	if len(inventoried) == 0 {
		return
	}

	row, err := s.shops.Lookup(ctx, shop)
	if err != nil {
		s.logg.Error(ctx, "shop session unavailable; skipping shop", err)
		t.failed(len(inventoried))
		return
	}
	location, err := s.shops.DefaultLocation(ctx, row)
	if err != nil {
		s.logg.Error(ctx, "stock location unavailable; skipping shop", err)
		t.failed(len(inventoried))
		return
	}
	sess := storefront.Session{Shop: row.Domain, AccessToken: row.AccessToken}

	for _, p := range inventoried {
		if ctx.Err() != nil {
			return
		}
		itemCtx := s.logg.WithFields(ctx, map[string]any{"sku": p.SupplierSKU, "distributor_id": p.DistributorID})
		if err := s.syncProduct(itemCtx, sess, location, p); err != nil {
			s.logg.Error(itemCtx, "stock/price sync failed", err)
			t.failed(1)
			continue
		}
		t.updated()
	}
}

func (s *StockPrice) syncProduct(ctx context.Context, sess storefront.Session, location string, p models.TrackedProduct) error {
	offers, err := s.supplier.GetStock(ctx, p.SupplierProductID)
	if err != nil {
		return err
	}

	update := products.SyncUpdate{PriceAlert: p.PriceAlert, SyncedAt: s.now().UTC(), Price: p.LastPrice}
	stock := 0
	if offer, ok := offerFor(offers, p.DistributorID); ok {
		contractID := ""
		if p.ContractID != nil {
			contractID = *p.ContractID
		}
		price := offer.PriceFor(contractID)
		if price.GreaterThan(p.ReferencePrice()) {
			update.PriceAlert = true
		}
		update.Price = &price
		stock = offer.Stock
		if stock < 0 {
			stock = 0
		}
	} else {
		s.logg.Warn(ctx, "distributor no longer offers product; stock set to zero")
	}
	update.Stock = &stock

	if p.StorefrontInventoryItemID != "" {
		if err := s.storefront.SetInventory(ctx, sess, p.StorefrontInventoryItemID, location, stock); err != nil {
			return fmt.Errorf("set inventory: %w", err)
		}
	}
	if err := s.products.UpdateSync(ctx, p.ID, update); err != nil {
		return fmt.Errorf("persist sync: %w", err)
	}
	return nil
}

func offerFor(offers []supplier.Offer, distributorID string) (supplier.Offer, bool) {
	for _, o := range offers {
		if o.DistributorID == distributorID {
			return o, true
		}
	}
	return supplier.Offer{}, false
}
