package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository keeps the payment ledger in insertion order
type TransactionRepository struct {
	base
	byExternalID map[string]int
	entries      []models.PaymentTransaction
}

// NewTransactionRepository creates an empty TransactionRepository
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{byExternalID: make(map[string]int)}
}

func (r *TransactionRepository) Create(_ context.Context, tx *models.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byExternalID[tx.ExternalID]; exists {
		return repositories.ErrDuplicate
	}
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if tx.Status == "" {
		tx.Status = models.PaymentStatusPending
	}
	if len(tx.History) == 0 {
		tx.History = []models.StatusChange{{Status: tx.Status, Source: "charge", At: now}}
	}
	r.byExternalID[tx.ExternalID] = len(r.entries)
	r.entries = append(r.entries, cloneTx(tx))
	r.wrote()
	return nil
}

func (r *TransactionRepository) FindByExternalID(_ context.Context, externalID string) (*models.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byExternalID[externalID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	tx := cloneTx(&r.entries[idx])
	return &tx, nil
}

func (r *TransactionRepository) TransitionStatus(_ context.Context, externalID string, to models.PaymentStatus, change models.StatusChange) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byExternalID[externalID]
	if !ok {
		return false, nil
	}
	tx := &r.entries[idx]
	if !tx.Status.CanTransition(to) {
		return false, nil
	}
	if change.At.IsZero() {
		change.At = time.Now()
	}
	change.Status = to
	tx.Status = to
	tx.UpdatedAt = change.At
	tx.History = append(tx.History, change)
	r.wrote()
	return true, nil
}

func (r *TransactionRepository) FindLatestByReservation(_ context.Context, reservationID primitive.ObjectID) (*models.PaymentTransaction, error) {
	return r.findLatest(func(tx *models.PaymentTransaction) bool {
		return tx.ReservationID != nil && *tx.ReservationID == reservationID
	})
}

func (r *TransactionRepository) FindLatestByRaffle(_ context.Context, raffleID primitive.ObjectID, paymentType models.PaymentType) (*models.PaymentTransaction, error) {
	return r.findLatest(func(tx *models.PaymentTransaction) bool {
		return tx.RaffleID == raffleID && tx.Type == paymentType
	})
}

// All returns a copy of the ledger, oldest first.
func (r *TransactionRepository) All() []models.PaymentTransaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.PaymentTransaction, 0, len(r.entries))
	for i := range r.entries {
		out = append(out, cloneTx(&r.entries[i]))
	}
	return out
}

func (r *TransactionRepository) findLatest(match func(*models.PaymentTransaction) bool) (*models.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if match(&r.entries[i]) {
			tx := cloneTx(&r.entries[i])
			return &tx, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func cloneTx(tx *models.PaymentTransaction) models.PaymentTransaction {
	out := *tx
	out.History = append([]models.StatusChange(nil), tx.History...)
	if tx.ReservationID != nil {
		id := *tx.ReservationID
		out.ReservationID = &id
	}
	return out
}
