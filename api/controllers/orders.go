package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/distribridge/api/responses"
	"github.com/angelmondragon/distribridge/api/validators"
	"github.com/angelmondragon/distribridge/internal/orders"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

const (
	defaultOrderLimit = 100
	maxOrderLimit     = 500
)

// OrderLister reads a shop's forwarded supplier orders.
type OrderLister interface {
	List(ctx context.Context, shop, status string, limit int) ([]orders.OrderDTO, error)
}

// ListOrders returns forwarded orders for a shop, optionally filtered by ?status=.
func ListOrders(svc OrderLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultOrderLimit, 1, maxOrderLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		items, err := svc.List(r.Context(), chi.URLParam(r, "shop"), status, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
