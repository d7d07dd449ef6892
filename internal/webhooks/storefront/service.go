// Package storefrontwebhook decodes storefront webhook deliveries and hands
// new orders to the forwarding engine.
package storefrontwebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/distribridge/internal/forwarding"
	"github.com/angelmondragon/distribridge/internal/storefront"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/go-playground/validator/v10"
)

type forwarder interface {
	Forward(ctx context.Context, shop string, evt storefront.OrderCreatedEvent) (forwarding.Result, error)
}

// Delivery is one verified webhook request.
type Delivery struct {
	Shop      string
	Topic     string
	WebhookID string
	Body      []byte
}

// ServiceParams wires the webhook Service.
type ServiceParams struct {
	Engine forwarder
	Logger *logger.Logger
}

// Service routes webhook deliveries by topic.
type Service struct {
	engine   forwarder
	logg     *logger.Logger
	validate *validator.Validate
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Engine == nil {
		return nil, fmt.Errorf("forwarding engine required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		engine:   params.Engine,
		logg:     params.Logger,
		validate: validator.New(),
	}, nil
}

// Handle processes one delivery. Topics other than orders/create are ignored.
func (s *Service) Handle(ctx context.Context, d Delivery) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"shop":       d.Shop,
		"topic":      d.Topic,
		"webhook_id": d.WebhookID,
	})
	if d.Topic != storefront.TopicOrdersCreate {
		s.logg.Debug(ctx, "ignoring webhook topic")
		return nil
	}
	if d.Shop == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shop domain missing")
	}

	var evt storefront.OrderCreatedEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode order payload")
	}
	if err := s.validate.Struct(evt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order payload")
	}

	if _, err := s.engine.Forward(ctx, d.Shop, evt); err != nil {
		return err
	}
	return nil
}
