package handlers

import (
	"context"
	"sync"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"github.com/ArowuTest/rifamania-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockPurchaseService implements services.PurchaseService for testing
type MockPurchaseService struct {
	ReserveNumbersFunc       func(ctx context.Context, raffleID primitive.ObjectID, quantity int, buyer models.BuyerContact) (*models.PurchaseReservation, error)
	CreatePurchaseChargeFunc func(ctx context.Context, reservationID primitive.ObjectID) (*services.ChargeResult, error)
	PurchaseFunc             func(ctx context.Context, raffleID primitive.ObjectID, quantity int, buyer models.BuyerContact) (*services.PurchaseResult, error)
	CheckPurchaseStatusFunc  func(ctx context.Context, reservationID primitive.ObjectID) (*services.PurchaseStatus, error)
	AvailabilityFunc         func(ctx context.Context, raffleID primitive.ObjectID) (*models.PoolAvailability, error)
}

func (m *MockPurchaseService) ReserveNumbers(ctx context.Context, raffleID primitive.ObjectID, quantity int, buyer models.BuyerContact) (*models.PurchaseReservation, error) {
	return m.ReserveNumbersFunc(ctx, raffleID, quantity, buyer)
}

func (m *MockPurchaseService) CreatePurchaseCharge(ctx context.Context, reservationID primitive.ObjectID) (*services.ChargeResult, error) {
	return m.CreatePurchaseChargeFunc(ctx, reservationID)
}

func (m *MockPurchaseService) Purchase(ctx context.Context, raffleID primitive.ObjectID, quantity int, buyer models.BuyerContact) (*services.PurchaseResult, error) {
	return m.PurchaseFunc(ctx, raffleID, quantity, buyer)
}

func (m *MockPurchaseService) CheckPurchaseStatus(ctx context.Context, reservationID primitive.ObjectID) (*services.PurchaseStatus, error) {
	return m.CheckPurchaseStatusFunc(ctx, reservationID)
}

func (m *MockPurchaseService) Availability(ctx context.Context, raffleID primitive.ObjectID) (*models.PoolAvailability, error) {
	return m.AvailabilityFunc(ctx, raffleID)
}

// MockPublicationService implements services.PublicationService for testing
type MockPublicationService struct {
	QuoteFunc                   func(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*pricing.Quote, error)
	CreatePublicationChargeFunc func(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*services.ChargeResult, error)
	CheckPublicationStatusFunc  func(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*services.PublicationStatus, error)
}

func (m *MockPublicationService) Quote(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*pricing.Quote, error) {
	return m.QuoteFunc(ctx, ownerID, raffleID)
}

func (m *MockPublicationService) CreatePublicationCharge(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*services.ChargeResult, error) {
	return m.CreatePublicationChargeFunc(ctx, ownerID, raffleID)
}

func (m *MockPublicationService) CheckPublicationStatus(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*services.PublicationStatus, error) {
	return m.CheckPublicationStatusFunc(ctx, ownerID, raffleID)
}

// MockReconciler records received notifications
type MockReconciler struct {
	mu       sync.Mutex
	Received []services.Notification
	Outcome  services.Outcome
}

func (m *MockReconciler) Reconcile(_ context.Context, n services.Notification) (*services.ReconcileResult, error) {
	return m.Receive(context.Background(), n), nil
}

func (m *MockReconciler) Receive(_ context.Context, n services.Notification) *services.ReconcileResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Received = append(m.Received, n)
	outcome := m.Outcome
	if outcome == "" {
		outcome = services.OutcomeApplied
	}
	return &services.ReconcileResult{Outcome: outcome, Status: services.ParseStatus(n.Gateway, n.RawStatus)}
}

func (m *MockReconciler) ReprocessInbox(context.Context, int) (int, error) { return 0, nil }
