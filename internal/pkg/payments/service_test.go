package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JonasWehrle/StagePass/app/models"
	"github.com/JonasWehrle/StagePass/internal/pkg/grants"
)

const testSecret = "whsec_test"

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// fakeLedgerRepo is an in-memory grants.Repository.
type fakeLedgerRepo struct {
	grants      map[uint]*models.AccessGrant
	memberships map[[2]uint]*models.Membership
	nextID      uint
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		grants:      make(map[uint]*models.AccessGrant),
		memberships: make(map[[2]uint]*models.Membership),
	}
}

func (r *fakeLedgerRepo) Transaction(fn func(tx grants.Repository) error) error { return fn(r) }

func (r *fakeLedgerRepo) GrantByUUID(uuid string) (*models.AccessGrant, error) {
	for _, g := range r.grants {
		if g.UUID == uuid {
			return g, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLedgerRepo) ActiveGrantForUpdate(userID uint, ref models.PurchasableRef) (*models.AccessGrant, error) {
	for _, g := range r.grants {
		if g.UserID == userID && g.PurchasableKind == ref.Kind && g.PurchasableID == ref.ID && g.Status == models.GrantStatusActive {
			return g, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLedgerRepo) CreateGrant(g *models.AccessGrant) error {
	r.nextID++
	g.ID = r.nextID
	g.UUID = fmt.Sprintf("grant-%d", g.ID)
	r.grants[g.ID] = g
	return nil
}

func (r *fakeLedgerRepo) UpdateGrantStatusIf(grantID uint, from, to string) (bool, error) {
	g, ok := r.grants[grantID]
	if !ok || g.Status != from {
		return false, nil
	}
	g.Status = to
	return true, nil
}

func (r *fakeLedgerRepo) ExpiredActiveGrants(now time.Time, limit int) ([]models.AccessGrant, error) {
	return nil, nil
}

func (r *fakeLedgerRepo) MembershipForUpdate(userID, teamID uint) (*models.Membership, error) {
	if m, ok := r.memberships[[2]uint{userID, teamID}]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLedgerRepo) CreateMembership(m *models.Membership) error {
	r.memberships[[2]uint{m.UserID, m.TeamID}] = m
	return nil
}

func (r *fakeLedgerRepo) SaveMembership(m *models.Membership) error {
	r.memberships[[2]uint{m.UserID, m.TeamID}] = m
	return nil
}

// fakePayRepo is an in-memory payments.Repository sharing grant state with
// the ledger fake.
type fakePayRepo struct {
	ledger    *fakeLedgerRepo
	events    map[string]*models.PaymentWebhookEvent
	purchases map[string]*models.Purchase
	passes    map[uint]*models.AccessPass
	nextID    uint
}

func newFakePayRepo(ledger *fakeLedgerRepo) *fakePayRepo {
	return &fakePayRepo{
		ledger:    ledger,
		events:    make(map[string]*models.PaymentWebhookEvent),
		purchases: make(map[string]*models.Purchase),
		passes:    make(map[uint]*models.AccessPass),
	}
}

func (r *fakePayRepo) CreateEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	key := event.Provider + "|" + event.ProviderEventID
	if stored, ok := r.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	r.nextID++
	event.ID = r.nextID
	r.events[key] = event
	cp := *event
	return true, &cp, nil
}

func (r *fakePayRepo) MarkEventProcessed(id uint, processingError string) error {
	for _, ev := range r.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakePayRepo) AccessPassWithSpace(id uint) (*models.AccessPass, error) {
	if p, ok := r.passes[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePayRepo) CreatePurchaseIfNotExists(purchase *models.Purchase) (bool, *models.Purchase, error) {
	key := purchase.Provider + "|" + purchase.ProviderPaymentID
	if stored, ok := r.purchases[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	r.nextID++
	purchase.ID = r.nextID
	r.purchases[key] = purchase
	cp := *purchase
	return true, &cp, nil
}

func (r *fakePayRepo) PurchaseByProviderRef(provider, providerPaymentID string) (*models.Purchase, error) {
	if p, ok := r.purchases[provider+"|"+providerPaymentID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePayRepo) UpdatePurchase(id uint, updates map[string]interface{}) error {
	for _, p := range r.purchases {
		if p.ID == id {
			if status, ok := updates["status"].(string); ok {
				p.Status = status
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakePayRepo) GrantByID(id uint) (*models.AccessGrant, error) {
	if g, ok := r.ledger.grants[id]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestService(t *testing.T) (*Service, *fakePayRepo, *fakeLedgerRepo) {
	t.Helper()
	ledgerRepo := newFakeLedgerRepo()
	payRepo := newFakePayRepo(ledgerRepo)
	payRepo.passes[7] = &models.AccessPass{
		ID:         7,
		SpaceID:    3,
		Name:       "Backstage Pass",
		Pricing:    models.PassPricingMonthly,
		PriceCents: 1500,
		Space:      models.Space{ID: 3, TeamID: 9, Name: "Backstage"},
	}
	ledger := grants.NewService(ledgerRepo, nil, grants.DefaultPolicy())
	return NewService(payRepo, ledger, testSecret), payRepo, ledgerRepo
}

func completedPayload(eventID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":"purchase.completed","data":{"payment_id":%q,"user_id":42,"access_pass_id":7,"amount_cents":1500,"currency":"EUR"}}`,
		eventID, paymentID))
}

func TestHandleWebhookCompletedPurchase(t *testing.T) {
	svc, payRepo, ledgerRepo := newTestService(t)
	payload := completedPayload("evt_1", "pay_1")

	ev, err := svc.HandleWebhook(context.Background(), "stripe", payload, sign(payload))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.True(t, ev.SignatureValid)

	// One grant on the pass's space, expiring because the pass is monthly.
	require.Len(t, ledgerRepo.grants, 1)
	var grant *models.AccessGrant
	for _, g := range ledgerRepo.grants {
		grant = g
	}
	assert.Equal(t, models.GrantStatusActive, grant.Status)
	assert.Equal(t, models.PurchasableSpace, grant.PurchasableKind)
	assert.Equal(t, uint(3), grant.PurchasableID)
	assert.Equal(t, uint(9), grant.TeamID)
	require.NotNil(t, grant.ExpiresAt)

	// The buyer gained a membership.
	m, err := ledgerRepo.MembershipForUpdate(42, 9)
	require.NoError(t, err)
	assert.True(t, m.HasRole(models.RoleBuyer))

	// The purchase row links to the grant.
	p, err := payRepo.PurchaseByProviderRef("stripe", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCompleted, p.Status)
	require.NotNil(t, p.AccessGrantID)
	assert.Equal(t, grant.ID, *p.AccessGrantID)
}

func TestHandleWebhookRedeliveryIsNoop(t *testing.T) {
	svc, _, ledgerRepo := newTestService(t)
	payload := completedPayload("evt_1", "pay_1")

	_, err := svc.HandleWebhook(context.Background(), "stripe", payload, sign(payload))
	require.NoError(t, err)
	require.Len(t, ledgerRepo.grants, 1)

	// Redelivered event is recorded once and dispatched once.
	_, err = svc.HandleWebhook(context.Background(), "stripe", payload, sign(payload))
	require.NoError(t, err)
	assert.Len(t, ledgerRepo.grants, 1)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	svc, payRepo, ledgerRepo := newTestService(t)
	payload := completedPayload("evt_1", "pay_1")

	ev, err := svc.HandleWebhook(context.Background(), "stripe", payload, "deadbeef")
	require.ErrorIs(t, err, ErrInvalidSignature)

	// The delivery is still recorded for audit, but nothing is granted.
	require.NotNil(t, ev)
	assert.False(t, ev.SignatureValid)
	assert.Empty(t, ledgerRepo.grants)
	_, err = payRepo.PurchaseByProviderRef("stripe", "pay_1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestHandleWebhookMalformedPayload(t *testing.T) {
	svc, payRepo, _ := newTestService(t)
	payload := []byte(`{"type":"purchase.completed"}`)

	_, err := svc.HandleWebhook(context.Background(), "stripe", payload, sign(payload))
	require.ErrorIs(t, err, ErrMalformedPayload)

	// Recorded under a payload hash since the envelope had no event id.
	require.Len(t, payRepo.events, 1)
	for key := range payRepo.events {
		assert.Contains(t, key, "stripe|hash:")
	}
}

func TestHandleWebhookRefund(t *testing.T) {
	svc, payRepo, ledgerRepo := newTestService(t)
	payload := completedPayload("evt_1", "pay_1")
	_, err := svc.HandleWebhook(context.Background(), "stripe", payload, sign(payload))
	require.NoError(t, err)

	refund := []byte(`{"id":"evt_2","type":"purchase.refunded","data":{"payment_id":"pay_1"}}`)
	_, err = svc.HandleWebhook(context.Background(), "stripe", refund, sign(refund))
	require.NoError(t, err)

	for _, g := range ledgerRepo.grants {
		assert.Equal(t, models.GrantStatusRefunded, g.Status)
	}
	p, err := payRepo.PurchaseByProviderRef("stripe", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusRefunded, p.Status)
}

func TestHandleWebhookCancellation(t *testing.T) {
	svc, payRepo, ledgerRepo := newTestService(t)
	payload := completedPayload("evt_1", "pay_1")
	_, err := svc.HandleWebhook(context.Background(), "stripe", payload, sign(payload))
	require.NoError(t, err)

	cancel := []byte(`{"id":"evt_2","type":"purchase.cancelled","data":{"payment_id":"pay_1"}}`)
	_, err = svc.HandleWebhook(context.Background(), "stripe", cancel, sign(cancel))
	require.NoError(t, err)

	for _, g := range ledgerRepo.grants {
		assert.Equal(t, models.GrantStatusCancelled, g.Status)
	}
	// The money was not returned, so the purchase record stays completed.
	p, err := payRepo.PurchaseByProviderRef("stripe", "pay_1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCompleted, p.Status)
}

func TestHandleWebhookUnknownPurchase(t *testing.T) {
	svc, _, _ := newTestService(t)
	refund := []byte(`{"id":"evt_1","type":"purchase.refunded","data":{"payment_id":"pay_missing"}}`)

	_, err := svc.HandleWebhook(context.Background(), "stripe", refund, sign(refund))
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
