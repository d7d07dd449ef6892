package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/distribridge/api/responses"
	"github.com/angelmondragon/distribridge/api/validators"
	"github.com/angelmondragon/distribridge/internal/shops"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

// ShopService manages connector installs per shop.
type ShopService interface {
	Install(ctx context.Context, in shops.InstallInput) (*shops.ShopDTO, error)
	List(ctx context.Context) ([]shops.ShopDTO, error)
	Uninstall(ctx context.Context, shop string) error
}

type installShopRequest struct {
	AccessToken            string `json:"access_token" validate:"required,max=255"`
	SupplierCustomerNumber string `json:"supplier_customer_number" validate:"omitempty,max=64"`
	CompanyName            string `json:"company_name" validate:"omitempty,max=255"`
	ContactName            string `json:"contact_name" validate:"omitempty,max=255"`
	Street                 string `json:"street" validate:"omitempty,max=255"`
	PostalCode             string `json:"postal_code" validate:"omitempty,max=32"`
	City                   string `json:"city" validate:"omitempty,max=128"`
	CountryCode            string `json:"country_code" validate:"omitempty,len=2"`
	Email                  string `json:"email" validate:"omitempty,email"`
	Phone                  string `json:"phone" validate:"omitempty,max=64"`
}

// InstallShop stores the admin API session and merchant address of a shop.
func InstallShop(svc ShopService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		var payload installShopRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shop, err := svc.Install(r.Context(), shops.InstallInput{
			Shop:                   chi.URLParam(r, "shop"),
			AccessToken:            strings.TrimSpace(payload.AccessToken),
			SupplierCustomerNumber: strings.TrimSpace(payload.SupplierCustomerNumber),
			CompanyName:            validators.SanitizeString(payload.CompanyName, 255),
			ContactName:            validators.SanitizeString(payload.ContactName, 255),
			Street:                 validators.SanitizeString(payload.Street, 255),
			PostalCode:             validators.SanitizeString(payload.PostalCode, 32),
			City:                   validators.SanitizeString(payload.City, 128),
			CountryCode:            strings.TrimSpace(payload.CountryCode),
			Email:                  strings.TrimSpace(payload.Email),
			Phone:                  validators.SanitizeString(payload.Phone, 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

func ListShops(svc ShopService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// UninstallShop stops forwarding and syncing for a shop. Ledger and tracked
// product rows are kept.
func UninstallShop(svc ShopService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shop service unavailable"))
			return
		}
		if err := svc.Uninstall(r.Context(), chi.URLParam(r, "shop")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
