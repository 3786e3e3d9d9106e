package services

import (
	"context"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PoolService is the Number Pool Manager: the only writer of a raffle's claim state
type PoolService interface {
	// Reserve atomically claims quantity distinct random numbers for a reservation
	Reserve(ctx context.Context, raffleID primitive.ObjectID, totalNumbers int, reservationID string, quantity int) ([]int, error)

	// Release returns a reservation's numbers to the pool. Releasing twice is a no-op.
	Release(ctx context.Context, raffleID primitive.ObjectID, reservationID string) (bool, error)

	// Commit makes a reservation's numbers permanently sold
	Commit(ctx context.Context, raffleID primitive.ObjectID, reservationID string, numbers []int) (bool, error)

	// Availability summarizes sold, held and free numbers
	Availability(ctx context.Context, raffleID primitive.ObjectID, totalNumbers int) (*models.PoolAvailability, error)
}

// PurchaseService exposes the buyer-facing purchase flow
type PurchaseService interface {
	// ReserveNumbers holds numbers for a buyer and creates a pending reservation
	ReserveNumbers(ctx context.Context, raffleID primitive.ObjectID, quantity int, buyer models.BuyerContact) (*models.PurchaseReservation, error)

	// CreatePurchaseCharge creates (or returns the pending) PIX charge for a reservation
	CreatePurchaseCharge(ctx context.Context, reservationID primitive.ObjectID) (*ChargeResult, error)

	// Purchase reserves and charges in one call
	Purchase(ctx context.Context, raffleID primitive.ObjectID, quantity int, buyer models.BuyerContact) (*PurchaseResult, error)

	// CheckPurchaseStatus returns the reservation and its latest charge
	CheckPurchaseStatus(ctx context.Context, reservationID primitive.ObjectID) (*PurchaseStatus, error)

	// Availability returns the pool summary of a published raffle
	Availability(ctx context.Context, raffleID primitive.ObjectID) (*models.PoolAvailability, error)
}

// PublicationService exposes the seller-facing publication fee flow
type PublicationService interface {
	Quote(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*pricing.Quote, error)
	CreatePublicationCharge(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*ChargeResult, error)
	CheckPublicationStatus(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*PublicationStatus, error)
}

// Reconciler applies provider notifications to the ledger
type Reconciler interface {
	// Reconcile applies one notification. Errors are infrastructure failures only.
	Reconcile(ctx context.Context, n Notification) (*ReconcileResult, error)

	// Receive reconciles and parks the notification in the inbox on failure. It never fails.
	Receive(ctx context.Context, n Notification) *ReconcileResult

	// ReprocessInbox replays stored notifications and returns how many succeeded
	ReprocessInbox(ctx context.Context, limit int) (int, error)
}

// ChargeResult is what a buyer or seller needs to pay a charge
type ChargeResult struct {
	TransactionID string               `json:"transactionId"`
	ReservationID string               `json:"reservationId,omitempty"`
	RaffleID      string               `json:"raffleId"`
	Type          models.PaymentType   `json:"type"`
	Gateway       string               `json:"gateway"`
	PayableCode   string               `json:"payableCode"`
	QRImage       string               `json:"qrImage,omitempty"`
	AmountCents   int64                `json:"amountCents"`
	Amount        string               `json:"amount"`
	Status        models.PaymentStatus `json:"status"`
	ExpiresAt     *time.Time           `json:"expiresAt,omitempty"`
}

// PurchaseResult is the answer of the combined reserve and charge call
type PurchaseResult struct {
	Reservation *models.PurchaseReservation `json:"reservation"`
	Charge      *ChargeResult               `json:"charge"`
}

// PurchaseStatus is what a buyer polls while paying
type PurchaseStatus struct {
	Reservation *models.PurchaseReservation `json:"reservation"`
	Transaction *models.PaymentTransaction  `json:"transaction,omitempty"`
}

// PublicationStatus is what a seller polls while paying the publication fee
type PublicationStatus struct {
	RaffleID      string               `json:"raffleId"`
	RaffleStatus  models.RaffleStatus  `json:"raffleStatus"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus,omitempty"`
	TransactionID string               `json:"transactionId,omitempty"`
	// HasPayment is false when no publication fee was ever charged
	HasPayment bool `json:"hasPayment"`
}
