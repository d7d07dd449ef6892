package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/distribridge/internal/storefront"
	"github.com/angelmondragon/distribridge/internal/supplier"
	"github.com/angelmondragon/distribridge/pkg/db"
	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/angelmondragon/distribridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/google/uuid"
)

type catalog interface {
	SearchBySKU(ctx context.Context, sku string) (*supplier.Product, error)
}

type productCreator interface {
	CreateProduct(ctx context.Context, sess storefront.Session, in storefront.ProductInput) (storefront.CreatedProduct, error)
}

type sessionResolver interface {
	Resolve(ctx context.Context, shop string) (storefront.Session, error)
}

// ImportInput selects a supplier SKU to mirror into a shop.
type ImportInput struct {
	Shop          string
	SKU           string
	DistributorID string
	ShippingMode  enums.ShippingMode
	ContractID    string
	Title         string
}

// Service manages the tracked products of each shop.
type Service struct {
	repo       Repository
	catalog    catalog
	storefront productCreator
	sessions   sessionResolver
	logg       *logger.Logger
	now        func() time.Time
}

// ServiceParams wires Service.
type ServiceParams struct {
	Repo       Repository
	Catalog    catalog
	Storefront productCreator
	Sessions   sessionResolver
	Logger     *logger.Logger
}

// NewService validates params and builds a Service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("supplier catalog required")
	}
	if params.Storefront == nil {
		return nil, fmt.Errorf("storefront client required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session resolver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:       params.Repo,
		catalog:    params.Catalog,
		storefront: params.Storefront,
		sessions:   params.Sessions,
		logg:       params.Logger,
		now:        time.Now,
	}, nil
}

// Import looks the SKU up at the supplier, creates the storefront product and
// starts tracking it. A soft-deleted row for the same SKU is replaced.
func (s *Service) Import(ctx context.Context, in ImportInput) (*TrackedProductDTO, error) {
	shop := storefront.NormalizeShop(in.Shop)
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	mode := in.ShippingMode
	if mode == "" {
		mode = enums.ShippingModeWarehouse
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping mode")
	}

	sess, err := s.sessions.Resolve(ctx, shop)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(s.logg.WithShop(ctx, shop), map[string]any{"sku": sku})

	if _, err := s.repo.FindActiveBySKU(ctx, shop, sku); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already tracked")
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check tracked sku")
	}

	found, err := s.catalog.SearchBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found at supplier")
	}

	var offer supplier.Offer
	var ok bool
	if in.DistributorID != "" {
		offer, ok = found.OfferFrom(in.DistributorID)
	} else {
		offer, ok = supplier.BestOffer(found.Offers)
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no offer for requested distributor")
	}
	contractID := strings.TrimSpace(in.ContractID)
	price := offer.PriceFor(contractID)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = found.Name
	}
	if title == "" {
		title = sku
	}
	category := found.Category
	if category == "" {
		category = enums.ProductCategoryPhysical
	}

	created, err := s.storefront.CreateProduct(ctx, sess, storefront.ProductInput{
		Title:   title,
		Vendor:  found.Manufacturer,
		SKU:     sku,
		Barcode: found.EAN,
		Price:   price,
		Tracked: category.IsInventoried(),
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	stock := offer.Stock
	product := &models.TrackedProduct{
		Shop:                      shop,
		SupplierSKU:               sku,
		SupplierProductID:         found.ID,
		Title:                     title,
		StorefrontProductID:       created.ProductID,
		StorefrontVariantID:       created.VariantID,
		StorefrontInventoryItemID: created.InventoryItemID,
		DistributorID:             offer.DistributorID,
		DistributorName:           offer.DistributorName,
		Category:                  category,
		ShippingMode:              mode,
		ImportPrice:               &price,
		LastPrice:                 &price,
		LastStock:                 &stock,
		LastSyncAt:                &now,
		Active:                    true,
	}
	if contractID != "" {
		product.ContractID = &contractID
	}
	if err := s.repo.CreateReplacingInactive(ctx, product); err != nil {
		if db.IsUniqueViolation(err, "ux_tracked_products_active_sku") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already tracked")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save tracked product")
	}
	s.logg.Info(ctx, "product imported")

	dto := FromModel(*product)
	return &dto, nil
}

// List returns the shop's active tracked products.
func (s *Service) List(ctx context.Context, shop string) ([]TrackedProductDTO, error) {
	rows, err := s.repo.ListActiveByShop(ctx, storefront.NormalizeShop(shop))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tracked products")
	}
	out := make([]TrackedProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

// SetContractID sets or, with an empty id, clears the contract used for pricing.
func (s *Service) SetContractID(ctx context.Context, shop string, id uuid.UUID, contractID string) (*TrackedProductDTO, error) {
	if _, err := s.owned(ctx, shop, id); err != nil {
		return nil, err
	}
	var value *string
	if trimmed := strings.TrimSpace(contractID); trimmed != "" {
		value = &trimmed
	}
	if err := s.repo.SetContractID(ctx, id, value); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set contract id")
	}
	return s.reload(ctx, id)
}

// DismissAlert clears the sticky price alert.
func (s *Service) DismissAlert(ctx context.Context, shop string, id uuid.UUID) (*TrackedProductDTO, error) {
	if _, err := s.owned(ctx, shop, id); err != nil {
		return nil, err
	}
	if err := s.repo.DismissAlert(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "dismiss price alert")
	}
	return s.reload(ctx, id)
}

// Remove stops tracking a product. The storefront product is left untouched.
func (s *Service) Remove(ctx context.Context, shop string, id uuid.UUID) error {
	if _, err := s.owned(ctx, shop, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove tracked product")
	}
	return nil
}

func (s *Service) owned(ctx context.Context, shop string, id uuid.UUID) (*models.TrackedProduct, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tracked product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load tracked product")
	}
	if row.Shop != storefront.NormalizeShop(shop) || !row.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tracked product not found")
	}
	return row, nil
}

func (s *Service) reload(ctx context.Context, id uuid.UUID) (*TrackedProductDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload tracked product")
	}
	dto := FromModel(*row)
	return &dto, nil
}
