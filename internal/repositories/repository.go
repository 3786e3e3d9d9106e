package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key already exists
	ErrDuplicate = errors.New("duplicate key")
	// ErrVersionConflict is returned when a compare-and-swap lost the race
	ErrVersionConflict = errors.New("version conflict")
)

// RaffleRepository reads raffle records. Writes are limited to the publication
// flip and the sales counters.
type RaffleRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error)
	// MarkPublished flips a draft/pending_payment raffle to published. It returns
	// false when the raffle was already published.
	MarkPublished(ctx context.Context, id primitive.ObjectID) (bool, error)
	// IncrementSales adds a confirmed reservation to the counters once. It returns
	// false when that reservation was already counted.
	IncrementSales(ctx context.Context, id primitive.ObjectID, reservationID string, quantity int, amountCents int64) (bool, error)
}

// SellerProfileRepository reads seller gateway configuration
type SellerProfileRepository interface {
	FindByOwnerID(ctx context.Context, ownerID string) (*models.SellerProfile, error)
}

// PoolRepository persists the claim state of raffle pools
type PoolRepository interface {
	// Ensure creates the pool for a raffle if it does not exist yet.
	Ensure(ctx context.Context, raffleID primitive.ObjectID, totalNumbers int) (*models.RafflePool, error)
	FindByRaffleID(ctx context.Context, raffleID primitive.ObjectID) (*models.RafflePool, error)
	// Hold stores numbers for a reservation, only if the pool is still at expectedVersion.
	Hold(ctx context.Context, raffleID primitive.ObjectID, reservationID string, numbers []int, expectedVersion int64) error
	// Release drops a reservation's hold. Returns false when there was nothing to release.
	Release(ctx context.Context, raffleID primitive.ObjectID, reservationID string) (bool, error)
	// Commit moves a reservation's hold into the sold set. Returns false when the
	// hold no longer exists (already committed or released).
	Commit(ctx context.Context, raffleID primitive.ObjectID, reservationID string, numbers []int) (bool, error)
	// FindHeld lists pools that still carry at least one hold, least recently changed first.
	FindHeld(ctx context.Context, limit int) ([]*models.RafflePool, error)
}

// ReservationRepository persists purchase reservations
type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.PurchaseReservation) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.PurchaseReservation, error)
	// TransitionStatus moves a reservation from -> to and reports whether this call made the change.
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReservationStatus) (bool, error)
	AttachTransaction(ctx context.Context, id primitive.ObjectID, externalID string) error
	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.PurchaseReservation, error)
}

// TransactionRepository is the payment ledger, keyed by the gateway's external id
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.PaymentTransaction) error
	FindByExternalID(ctx context.Context, externalID string) (*models.PaymentTransaction, error)
	// TransitionStatus applies pending -> to and appends the change to the history.
	// Returns false when the transaction was no longer pending.
	TransitionStatus(ctx context.Context, externalID string, to models.PaymentStatus, change models.StatusChange) (bool, error)
	FindLatestByReservation(ctx context.Context, reservationID primitive.ObjectID) (*models.PaymentTransaction, error)
	FindLatestByRaffle(ctx context.Context, raffleID primitive.ObjectID, paymentType models.PaymentType) (*models.PaymentTransaction, error)
}

// WebhookEventRepository is the inbox of notifications awaiting replay
type WebhookEventRepository interface {
	Create(ctx context.Context, event *models.WebhookEvent) error
	// FindUnprocessed lists open events replayed fewer than maxAttempts times,
	// least attempted first, then oldest. maxAttempts <= 0 means no cap.
	FindUnprocessed(ctx context.Context, maxAttempts, limit int) ([]*models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id primitive.ObjectID, processingError string) error
}
