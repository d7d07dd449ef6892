package shops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/distribridge/internal/storefront"
	"github.com/angelmondragon/distribridge/pkg/db"
	"github.com/angelmondragon/distribridge/pkg/db/models"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
)

type adminStore interface {
	Upsert(ctx context.Context, shop *models.Shop) error
	FindByDomain(ctx context.Context, domain string) (*models.Shop, error)
	ListActive(ctx context.Context) ([]models.Shop, error)
	MarkUninstalled(ctx context.Context, domain string, at time.Time) error
}

// InstallInput carries the session and merchant identity recorded when a
// shop installs the connector.
type InstallInput struct {
	Shop                   string
	AccessToken            string
	SupplierCustomerNumber string
	CompanyName            string
	ContactName            string
	Street                 string
	PostalCode             string
	City                   string
	CountryCode            string
	Email                  string
	Phone                  string
}

// ShopDTO is the admin view of an installed shop. The access token is never exposed.
type ShopDTO struct {
	Domain                 string     `json:"domain"`
	DefaultLocationID      *string    `json:"default_location_id,omitempty"`
	SupplierCustomerNumber *string    `json:"supplier_customer_number,omitempty"`
	CompanyName            string     `json:"company_name"`
	City                   string     `json:"city"`
	CountryCode            string     `json:"country_code"`
	UninstalledAt          *time.Time `json:"uninstalled_at,omitempty"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func toDTO(s models.Shop) ShopDTO {
	return ShopDTO{
		Domain:                 s.Domain,
		DefaultLocationID:      s.DefaultLocationID,
		SupplierCustomerNumber: s.SupplierCustomerNumber,
		CompanyName:            s.CompanyName,
		City:                   s.City,
		CountryCode:            s.CountryCode,
		UninstalledAt:          s.UninstalledAt,
		UpdatedAt:              s.UpdatedAt,
	}
}

// Service manages shop installs for operators.
type Service struct {
	repo adminStore
	now  func() time.Time
}

// NewService builds a shop admin Service.
func NewService(repo adminStore) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// Install records or refreshes a shop session. A reinstall clears the
// uninstall marker and the cached stock location.
func (s *Service) Install(ctx context.Context, in InstallInput) (*ShopDTO, error) {
	domain := storefront.NormalizeShop(in.Shop)
	if domain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop domain required")
	}
	token := strings.TrimSpace(in.AccessToken)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access token required")
	}
	row := &models.Shop{
		Domain:      domain,
		AccessToken: token,
		CompanyName: in.CompanyName,
		ContactName: in.ContactName,
		Street:      in.Street,
		PostalCode:  in.PostalCode,
		City:        in.City,
		CountryCode: strings.ToUpper(in.CountryCode),
		Email:       in.Email,
		Phone:       in.Phone,
	}
	if cn := strings.TrimSpace(in.SupplierCustomerNumber); cn != "" {
		row.SupplierCustomerNumber = &cn
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save shop")
	}
	saved, err := s.repo.FindByDomain(ctx, domain)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload shop")
	}
	dto := toDTO(*saved)
	return &dto, nil
}

// List returns every installed shop.
func (s *Service) List(ctx context.Context) ([]ShopDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shops")
	}
	out := make([]ShopDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

// Uninstall hides a shop from forwarding and reconciliation. Its session
// lookups yield ErrNoSession afterwards.
func (s *Service) Uninstall(ctx context.Context, shop string) error {
	domain := storefront.NormalizeShop(shop)
	if _, err := s.repo.FindByDomain(ctx, domain); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}
	if err := s.repo.MarkUninstalled(ctx, domain, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "uninstall shop")
	}
	return nil
}
