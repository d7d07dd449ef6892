package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/distribridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
)

const maxListLimit = 500

// Service exposes read access to the ledger for manual follow-up.
type Service struct {
	repo Repository
}

// NewService builds a ledger Service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	return &Service{repo: repo}, nil
}

// List returns a shop's forwarded orders, optionally filtered by status.
func (s *Service) List(ctx context.Context, shop, status string, limit int) ([]OrderDTO, error) {
	filter := ListFilter{Limit: limit}
	if limit <= 0 || limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if status = strings.TrimSpace(status); status != "" {
		parsed, err := enums.ParseOrderStatus(status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = &parsed
	}
	rows, err := s.repo.ListByShop(ctx, shop, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}
