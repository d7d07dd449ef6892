package shops

import (
	"context"
	"fmt"

	"github.com/angelmondragon/distribridge/internal/storefront"
	"github.com/angelmondragon/distribridge/pkg/db"
	"github.com/angelmondragon/distribridge/pkg/db/models"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

// ErrNoSession is returned when a shop has no usable admin API session.
var ErrNoSession = pkgerrors.New(pkgerrors.CodeUnauthorized, "no storefront session for shop")

type shopStore interface {
	FindByDomain(ctx context.Context, domain string) (*models.Shop, error)
	SetDefaultLocation(ctx context.Context, domain, locationID string) error
}

type locationResolver interface {
	ResolveDefaultLocation(ctx context.Context, sess storefront.Session) (string, error)
}

// Sessions resolves storefront sessions and merchant data per shop.
type Sessions struct {
	repo      shopStore
	locations locationResolver
	logg      *logger.Logger
}

// SessionsParams wires Sessions.
type SessionsParams struct {
	Repo      shopStore
	Locations locationResolver
	Logger    *logger.Logger
}

// NewSessions validates params and builds Sessions.
func NewSessions(params SessionsParams) (*Sessions, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Sessions{repo: params.Repo, locations: params.Locations, logg: params.Logger}, nil
}

// Lookup loads the shop row behind a session. Uninstalled or token-less
// shops yield ErrNoSession.
func (s *Sessions) Lookup(ctx context.Context, shop string) (*models.Shop, error) {
	domain := storefront.NormalizeShop(shop)
	if domain == "" {
		return nil, ErrNoSession
	}
	row, err := s.repo.FindByDomain(ctx, domain)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrNoSession
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load shop")
	}
	if row.UninstalledAt != nil || row.AccessToken == "" {
		return nil, ErrNoSession
	}
	return row, nil
}

// Resolve returns the admin API session for shop.
func (s *Sessions) Resolve(ctx context.Context, shop string) (storefront.Session, error) {
	row, err := s.Lookup(ctx, shop)
	if err != nil {
		return storefront.Session{}, err
	}
	return storefront.Session{Shop: row.Domain, AccessToken: row.AccessToken}, nil
}

// DefaultLocation returns the shop's cached stock location, resolving and
// caching it on first use.
func (s *Sessions) DefaultLocation(ctx context.Context, row *models.Shop) (string, error) {
	if row == nil {
		return "", ErrNoSession
	}
	if row.DefaultLocationID != nil && *row.DefaultLocationID != "" {
		return *row.DefaultLocationID, nil
	}
	if s.locations == nil {
		return "", fmt.Errorf("no location resolver configured")
	}
	sess := storefront.Session{Shop: row.Domain, AccessToken: row.AccessToken}
	loc, err := s.locations.ResolveDefaultLocation(ctx, sess)
	if err != nil {
		return "", err
	}
	if loc == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "shop has no active location")
	}
	row.DefaultLocationID = &loc
	if err := s.repo.SetDefaultLocation(ctx, row.Domain, loc); err != nil {
		s.logg.Warn(s.logg.WithShop(ctx, row.Domain), "cache default location failed: "+err.Error())
	}
	return loc, nil
}
