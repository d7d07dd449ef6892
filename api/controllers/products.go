package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/distribridge/api/responses"
	"github.com/angelmondragon/distribridge/api/validators"
	"github.com/angelmondragon/distribridge/internal/products"
	"github.com/angelmondragon/distribridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

// ProductService manages the tracked products of a shop.
type ProductService interface {
	Import(ctx context.Context, in products.ImportInput) (*products.TrackedProductDTO, error)
	List(ctx context.Context, shop string) ([]products.TrackedProductDTO, error)
	SetContractID(ctx context.Context, shop string, id uuid.UUID, contractID string) (*products.TrackedProductDTO, error)
	DismissAlert(ctx context.Context, shop string, id uuid.UUID) (*products.TrackedProductDTO, error)
	Remove(ctx context.Context, shop string, id uuid.UUID) error
}

type importProductRequest struct {
	SKU           string `json:"sku" validate:"required,max=64"`
	DistributorID string `json:"distributor_id" validate:"omitempty,max=64"`
	ShippingMode  string `json:"shipping_mode" validate:"omitempty,oneof=warehouse dropship"`
	ContractID    string `json:"contract_id" validate:"omitempty,max=64"`
	Title         string `json:"title" validate:"omitempty,max=255"`
}

type contractRequest struct {
	ContractID string `json:"contract_id" validate:"max=64"`
}

// ImportProduct creates a storefront product for a supplier SKU and starts tracking it.
func ImportProduct(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		var payload importProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Import(r.Context(), products.ImportInput{
			Shop:          chi.URLParam(r, "shop"),
			SKU:           validators.SanitizeString(payload.SKU, 64),
			DistributorID: strings.TrimSpace(payload.DistributorID),
			ShippingMode:  enums.ShippingMode(strings.TrimSpace(payload.ShippingMode)),
			ContractID:    strings.TrimSpace(payload.ContractID),
			Title:         validators.SanitizeString(payload.Title, 255),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ListProducts(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		items, err := svc.List(r.Context(), chi.URLParam(r, "shop"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// SetProductContract sets or, with an empty contract id, clears the contract used for pricing and orders.
func SetProductContract(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload contractRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.SetContractID(r.Context(), chi.URLParam(r, "shop"), id, strings.TrimSpace(payload.ContractID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DismissProductAlert(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.DismissAlert(r.Context(), chi.URLParam(r, "shop"), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// RemoveProduct stops tracking a product. The storefront product is left untouched.
func RemoveProduct(svc ProductService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), chi.URLParam(r, "shop"), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseProductID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "productId")))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	return id, nil
}
