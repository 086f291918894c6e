package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/internal/pkg/env"
	"github.com/JonasWehrle/StagePass/internal/pkg/grants"
)

var (
	// ErrInvalidSignature means the webhook body did not match its signature
	// header. The delivery is recorded but never dispatched.
	ErrInvalidSignature = errors.New("webhook signature verification failed")

	// ErrMalformedPayload means the body could not be parsed into a purchase
	// event.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// Service turns payment provider webhooks into ledger operations. Every
// delivery is persisted first; the unique (provider, event id) index plus the
// processed_at marker make redeliveries harmless.
type Service struct {
	repo   Repository
	ledger *grants.Service
	secret string
}

// NewService creates a payment intake service.
func NewService(repo Repository, ledger *grants.Service, webhookSecret string) *Service {
	return &Service{repo: repo, ledger: ledger, secret: webhookSecret}
}

// NewServiceFromDB creates a payment intake service from a GORM DB handle,
// reading the webhook secret from the environment.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), grants.NewServiceFromDB(db), env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""))
}

// HandleWebhook verifies, records and dispatches one webhook delivery. It
// returns the stored event row together with the processing outcome. A
// redelivered event that was already processed successfully is a no-op.
func (s *Service) HandleWebhook(ctx context.Context, provider string, payload []byte, signatureHeader string) (*models.PaymentWebhookEvent, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		return nil, errors.New("provider is required")
	}

	sigValid := VerifyWebhookSignature(payload, signatureHeader, s.secret)

	ev, parseErr := ParsePurchaseEvent(payload)
	eventID := ""
	eventType := ""
	if ev != nil {
		eventID = ev.EventID
		eventType = ev.EventType
	}
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	created, stored, err := s.repo.CreateEventIfNotExists(&models.PaymentWebhookEvent{
		Provider:        p,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(payload),
		SignatureValid:  sigValid,
	})
	if err != nil {
		return nil, err
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		log.Debugf("[Payments] Skipping already processed event %s/%s", p, eventID)
		return stored, nil
	}

	procErr := s.process(ctx, p, ev, sigValid, parseErr)
	errMsg := ""
	if procErr != nil {
		errMsg = procErr.Error()
	}
	if err := s.repo.MarkEventProcessed(stored.ID, errMsg); err != nil {
		log.Errorf("[Payments] Failed to mark event %d processed: %v", stored.ID, err)
	}
	return stored, procErr
}

func (s *Service) process(ctx context.Context, provider string, ev *PurchaseEvent, sigValid bool, parseErr error) error {
	if !sigValid {
		return ErrInvalidSignature
	}
	if parseErr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, parseErr)
	}

	switch ev.EventType {
	case EventPurchaseCompleted:
		return s.completePurchase(ctx, provider, ev)
	case EventPurchaseRefunded:
		return s.closePurchase(ctx, provider, ev, models.GrantStatusRefunded)
	case EventPurchaseCancelled:
		return s.closePurchase(ctx, provider, ev, models.GrantStatusCancelled)
	default:
		return fmt.Errorf("unsupported webhook event type: %s", ev.EventType)
	}
}

// completePurchase issues a grant for the purchased pass and records the
// financial transaction. The grant targets the pass's space, so it covers
// every experience the space contains.
func (s *Service) completePurchase(ctx context.Context, provider string, ev *PurchaseEvent) error {
	if ev.UserID == 0 || ev.AccessPassID == 0 {
		return errors.New("purchase event missing user_id or access_pass_id")
	}

	pass, err := s.repo.AccessPassWithSpace(ev.AccessPassID)
	if err != nil {
		return fmt.Errorf("access pass %d: %w", ev.AccessPassID, err)
	}

	var expiresAt *time.Time
	if d := pass.GrantDuration(); d > 0 {
		t := time.Now().Add(d)
		expiresAt = &t
	}

	grant, err := s.ledger.GrantAccess(ctx, ev.UserID, pass.Space.Ref(), pass.Space.TeamID, expiresAt)
	if err != nil {
		if !errors.Is(err, grants.ErrDuplicateActiveGrant) {
			return err
		}
		// The existing active grant already covers the purchase.
		log.Infof("[Payments] Reusing active grant %s for user %d", grant.UUID, ev.UserID)
	}

	now := time.Now()
	created, _, err := s.repo.CreatePurchaseIfNotExists(&models.Purchase{
		UserID:            ev.UserID,
		TeamID:            pass.Space.TeamID,
		AccessGrantID:     &grant.ID,
		PurchasableKind:   models.PurchasableSpace,
		PurchasableID:     pass.SpaceID,
		AmountCents:       ev.AmountCents,
		Currency:          ev.Currency,
		Provider:          provider,
		ProviderPaymentID: ev.ProviderPaymentID,
		Status:            models.PurchaseStatusCompleted,
		CompletedAt:       &now,
	})
	if err != nil {
		return err
	}
	if !created {
		log.Debugf("[Payments] Purchase %s/%s already recorded", provider, ev.ProviderPaymentID)
	}
	return nil
}

// closePurchase cancels or refunds the grant a purchase produced. Refunds
// additionally flip the purchase status.
func (s *Service) closePurchase(ctx context.Context, provider string, ev *PurchaseEvent, grantTarget string) error {
	purchase, err := s.repo.PurchaseByProviderRef(provider, ev.ProviderPaymentID)
	if err != nil {
		return fmt.Errorf("purchase %s/%s: %w", provider, ev.ProviderPaymentID, err)
	}

	if purchase.AccessGrantID != nil {
		grant, err := s.repo.GrantByID(*purchase.AccessGrantID)
		if err != nil {
			return err
		}
		switch grantTarget {
		case models.GrantStatusRefunded:
			err = s.ledger.Refund(ctx, grant)
		default:
			err = s.ledger.Cancel(ctx, grant)
		}
		if err != nil {
			return err
		}
	}

	if grantTarget == models.GrantStatusRefunded {
		return s.repo.UpdatePurchase(purchase.ID, map[string]interface{}{
			"status": models.PurchaseStatusRefunded,
		})
	}
	return nil
}
