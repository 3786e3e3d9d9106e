package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure TransactionRepository implements the interface
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository implements the payment ledger on MongoDB
type TransactionRepository struct {
	collection *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection(transactionsCollection),
	}
}

// Create inserts a new ledger entry. A second entry with the same external id
// fails with repositories.ErrDuplicate (unique index).
func (r *TransactionRepository) Create(ctx context.Context, tx *models.PaymentTransaction) error {
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
	_, err := r.collection.InsertOne(ctx, tx)
	return mapError(err)
}

// FindByExternalID finds a ledger entry by the gateway transaction id
func (r *TransactionRepository) FindByExternalID(ctx context.Context, externalID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	if err := r.collection.FindOne(ctx, bson.M{"externalId": externalID}).Decode(&tx); err != nil {
		return nil, mapError(err)
	}
	return &tx, nil
}

// TransitionStatus moves a pending entry to a terminal status and appends history
func (r *TransactionRepository) TransitionStatus(ctx context.Context, externalID string, to models.PaymentStatus, change models.StatusChange) (bool, error) {
	if !models.PaymentStatusPending.CanTransition(to) {
		return false, nil
	}
	if change.At.IsZero() {
		change.At = time.Now()
	}
	change.Status = to
	filter := bson.M{"externalId": externalID, "status": models.PaymentStatusPending}
	update := bson.M{
		"$set":  bson.M{"status": to, "updatedAt": change.At},
		"$push": bson.M{"history": change},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// FindLatestByReservation finds the most recent charge of a reservation
func (r *TransactionRepository) FindLatestByReservation(ctx context.Context, reservationID primitive.ObjectID) (*models.PaymentTransaction, error) {
	return r.findLatest(ctx, bson.M{"reservationId": reservationID})
}

// FindLatestByRaffle finds the most recent charge of a given type for a raffle
func (r *TransactionRepository) FindLatestByRaffle(ctx context.Context, raffleID primitive.ObjectID, paymentType models.PaymentType) (*models.PaymentTransaction, error) {
	return r.findLatest(ctx, bson.M{"raffleId": raffleID, "type": paymentType})
}

func (r *TransactionRepository) findLatest(ctx context.Context, filter bson.M) (*models.PaymentTransaction, error) {
	opts := options.FindOne().SetSort(bson.M{"createdAt": -1})
	var tx models.PaymentTransaction
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&tx); err != nil {
		return nil, mapError(err)
	}
	return &tx, nil
}
