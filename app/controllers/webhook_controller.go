package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/internal/pkg/payments"
)

// HandlePaymentWebhook ingests one payment provider delivery. The provider
// name comes from the route, the signature from the X-Webhook-Signature
// header. Durable failures return 200 so the provider stops redelivering;
// transient ones return 500 to trigger a retry.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	provider := strings.ToLower(strings.TrimSpace(c.Params("provider")))
	if provider == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Provider missing")
	}

	payload := c.Body()
	signature := c.Get("X-Webhook-Signature")

	event, err := getPayments().HandleWebhook(c.Context(), provider, payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrInvalidSignature):
			return jsonError(c, fiber.StatusUnauthorized, "invalid_signature", "Signature verification failed")
		case errors.Is(err, payments.ErrMalformedPayload):
			// The payload will never parse on a retry either.
			return c.JSON(fiber.Map{"received": true, "processed": false, "error": "malformed_payload"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			log.Warnf("[Webhook] Event %s/%s references unknown records: %v", provider, eventID(event), err)
			return c.JSON(fiber.Map{"received": true, "processed": false, "error": "unknown_reference"})
		default:
			log.Errorf("[Webhook] Processing failed for %s/%s: %v", provider, eventID(event), err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Processing failed")
		}
	}

	return c.JSON(fiber.Map{"received": true, "processed": true})
}

func eventID(event *models.PaymentWebhookEvent) string {
	if event == nil {
		return "?"
	}
	return event.ProviderEventID
}
