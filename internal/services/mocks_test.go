package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/locks"
	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"github.com/ArowuTest/rifamania-backend/internal/repositories/memory"
	"github.com/ArowuTest/rifamania-backend/pkg/pixgateway"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockGateway implements pixgateway.Gateway for testing
type MockGateway struct {
	mu               sync.Mutex
	GatewayName      string
	CreateChargeFunc func(ctx context.Context, creds pixgateway.Credentials, req pixgateway.ChargeRequest) (*pixgateway.Charge, error)
	Requests         []pixgateway.ChargeRequest
	seq              int
}

func NewMockGateway(name string) *MockGateway {
	return &MockGateway{GatewayName: name}
}

func (m *MockGateway) Name() string { return m.GatewayName }

func (m *MockGateway) CreateCharge(ctx context.Context, creds pixgateway.Credentials, req pixgateway.ChargeRequest) (*pixgateway.Charge, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	if m.CreateChargeFunc != nil {
		return m.CreateChargeFunc(ctx, creds, req)
	}
	return &pixgateway.Charge{
		Gateway:       m.GatewayName,
		ExternalID:    fmt.Sprintf("%s-tx-%d", m.GatewayName, seq),
		PayableCode:   "00020126pix-" + req.IdempotencyKey,
		QRImageBase64: "cXI=",
	}, nil
}

func (m *MockGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockPublisher records published routing keys
type MockPublisher struct {
	mu     sync.Mutex
	Events []string
}

func (p *MockPublisher) PublishJSON(_ context.Context, key string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, key)
	return nil
}

func (p *MockPublisher) Close() error { return nil }

func (p *MockPublisher) Count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.Events {
		if e == key {
			n++
		}
	}
	return n
}

// harness wires the services over memory repositories
type harness struct {
	store       *memory.Store
	sync        *MockGateway
	mp          *MockGateway
	publisher   *MockPublisher
	pool        *PoolServiceImpl
	selector    *GatewaySelector
	trigger     *PublicationTrigger
	purchases   *PurchaseServiceImpl
	publication *PublicationServiceImpl
	reconciler  *ReconcilerImpl
	sweeper     *ExpirySweeper
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     memory.NewStore(),
		sync:      NewMockGateway(pixgateway.SyncPayments),
		mp:        NewMockGateway(pixgateway.MercadoPago),
		publisher: &MockPublisher{},
	}
	h.pool = NewPoolService(h.store.Pools, locks.NewLocalLocker())
	h.selector = NewGatewaySelector(func(gw string) string { return "https://api.test/webhooks/" + gw }, h.sync, h.mp)
	h.trigger = NewPublicationTrigger(h.store.Raffles, h.publisher)
	h.purchases = NewPurchaseService(h.store.Raffles, h.store.Profiles, h.store.Reservations, h.store.Transactions,
		h.pool, h.selector, 30*time.Minute)
	h.publication = NewPublicationService(h.store.Raffles, h.store.Transactions, pricing.MustDefault(), h.selector, h.trigger,
		models.GatewayCredentials{MercadoPagoAccessToken: "platform-token"})
	h.reconciler = NewReconciler(h.store.Transactions, h.store.Reservations, h.store.Raffles, h.store.WebhookEvents,
		h.pool, h.trigger, h.publisher)
	h.sweeper = NewExpirySweeper(h.store.Reservations, h.store.Pools, h.pool, h.reconciler, 100)
	return h
}

// seedRaffle stores a raffle and its owner's profile
func (h *harness) seedRaffle(total int, status models.RaffleStatus, creds models.GatewayCredentials) *models.Raffle {
	raffle := &models.Raffle{
		ID:                  primitive.NewObjectID(),
		OwnerID:             "seller-1",
		Name:                "Moto 0km",
		TotalNumbers:        total,
		PricePerNumberCents: 500,
		Status:              status,
	}
	h.store.Raffles.Put(raffle)
	h.store.Profiles.Put(&models.SellerProfile{OwnerID: raffle.OwnerID, Credentials: creds})
	return raffle
}

func bothGateways() models.GatewayCredentials {
	return models.GatewayCredentials{
		SyncPaymentsClientID:     "cid",
		SyncPaymentsClientSecret: "secret",
		MercadoPagoAccessToken:   "mp-token",
	}
}

var testBuyer = models.BuyerContact{Name: "Ana Souza", Phone: "11999990000", Email: "ana@example.com"}
