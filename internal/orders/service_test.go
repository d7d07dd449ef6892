package orders

import (
	"context"
	"testing"

	"github.com/angelmondragon/distribridge/pkg/db/models"
	"github.com/angelmondragon/distribridge/pkg/enums"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
)

type stubListRepo struct {
	Repository
	filter ListFilter
	rows   []models.Order
}

func (s *stubListRepo) ListByShop(_ context.Context, _ string, filter ListFilter) ([]models.Order, error) {
	s.filter = filter
	return s.rows, nil
}

func TestServiceListParsesStatus(t *testing.T) {
	repo := &stubListRepo{rows: []models.Order{{OwnOrderID: "SH1", Status: enums.OrderStatusError}}}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	out, err := svc.List(context.Background(), "a.myshopify.com", "error", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].Status != "error" {
		t.Fatalf("unexpected output %+v", out)
	}
	if repo.filter.Status == nil || *repo.filter.Status != enums.OrderStatusError || repo.filter.Limit != maxListLimit {
		t.Fatalf("unexpected filter %+v", repo.filter)
	}

	if _, err := svc.List(context.Background(), "a.myshopify.com", "lost", 10); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error")
	}
}
