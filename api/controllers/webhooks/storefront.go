package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/distribridge/api/responses"
	"github.com/angelmondragon/distribridge/internal/storefront"
	storefrontwebhook "github.com/angelmondragon/distribridge/internal/webhooks/storefront"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

const maxWebhookBody = 5 << 20

type StorefrontWebhookService interface {
	Handle(ctx context.Context, d storefrontwebhook.Delivery) error
}

type StorefrontWebhookGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// StorefrontWebhook receives storefront deliveries. Once the signature checks
// out it always answers 200. Processing failures are logged and drop the guard
// mark so a redelivery is processed again. A nil guard disables the short-circuit.
func StorefrontWebhook(svc StorefrontWebhookService, secret string, guard StorefrontWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if !storefront.VerifyHMAC(secret, body, r.Header.Get(storefront.HeaderHmac)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		delivery := storefrontwebhook.Delivery{
			Shop:      storefront.NormalizeShop(r.Header.Get(storefront.HeaderShop)),
			Topic:     strings.TrimSpace(r.Header.Get(storefront.HeaderTopic)),
			WebhookID: strings.TrimSpace(r.Header.Get(storefront.HeaderWebhookID)),
			Body:      body,
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"webhook_id": delivery.WebhookID, "topic": delivery.Topic})
		}

		marked := false
		if guard != nil && delivery.WebhookID != "" {
			seen, err := guard.CheckAndMark(ctx, delivery.WebhookID)
			switch {
			case err != nil:
				// the ledger claim still deduplicates; keep going without the guard
				if logg != nil {
					logg.Warn(ctx, "webhook guard unavailable: "+err.Error())
				}
			case seen:
				responses.WriteSuccess(w, map[string]string{"status": "duplicate"})
				return
			default:
				marked = true
			}
		}

		if err := svc.Handle(ctx, delivery); err != nil {
			if marked {
				if delErr := guard.Delete(context.WithoutCancel(ctx), delivery.WebhookID); delErr != nil && logg != nil {
					logg.Error(ctx, "failed to clear webhook guard", delErr)
				}
			}
			if logg != nil {
				logg.Error(ctx, "webhook processing failed", err)
			}
			responses.WriteSuccess(w, map[string]string{"status": "failed"})
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
