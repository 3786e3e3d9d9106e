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

// Compile-time check to ensure ReservationRepository implements the interface
var _ repositories.ReservationRepository = (*ReservationRepository)(nil)

// ReservationRepository implements repositories.ReservationRepository
type ReservationRepository struct {
	collection *mongo.Collection
}

// NewReservationRepository creates a new ReservationRepository
func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{
		collection: db.Collection(reservationsCollection),
	}
}

// Create inserts a new reservation
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.PurchaseReservation) error {
	if reservation.ID.IsZero() {
		reservation.ID = primitive.NewObjectID()
	}
	now := time.Now()
	reservation.CreatedAt = now
	reservation.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, reservation)
	return mapError(err)
}

// FindByID finds a reservation by ID
func (r *ReservationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.PurchaseReservation, error) {
	var reservation models.PurchaseReservation
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation); err != nil {
		return nil, mapError(err)
	}
	return &reservation, nil
}

// TransitionStatus applies from -> to only while the reservation is still in from
func (r *ReservationRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReservationStatus) (bool, error) {
	if !from.CanTransition(to) {
		return false, nil
	}
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// AttachTransaction records the latest gateway transaction for a reservation
func (r *ReservationRepository) AttachTransaction(ctx context.Context, id primitive.ObjectID, externalID string) error {
	update := bson.M{"$set": bson.M{"externalTransactionId": externalID, "updatedAt": time.Now()}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// FindExpiredPending lists pending reservations whose hold window has passed
func (r *ReservationRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*models.PurchaseReservation, error) {
	filter := bson.M{
		"status":    models.ReservationStatusPending,
		"expiresAt": bson.M{"$lte": now},
	}
	opts := options.Find().SetSort(bson.M{"expiresAt": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reservations []*models.PurchaseReservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, err
	}
	if reservations == nil {
		reservations = []*models.PurchaseReservation{}
	}
	return reservations, nil
}
