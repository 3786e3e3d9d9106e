package mongodb

import (
	"context"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Compile-time check to ensure RaffleRepository implements the interface
var _ repositories.RaffleRepository = (*RaffleRepository)(nil)

// RaffleRepository implements repositories.RaffleRepository
type RaffleRepository struct {
	collection *mongo.Collection
}

// NewRaffleRepository creates a new RaffleRepository
func NewRaffleRepository(db *mongo.Database) *RaffleRepository {
	return &RaffleRepository{
		collection: db.Collection(rafflesCollection),
	}
}

// FindByID finds a raffle by ID
func (r *RaffleRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&raffle)
	if err != nil {
		return nil, mapError(err)
	}
	return &raffle, nil
}

// MarkPublished flips the raffle to published unless it already is
func (r *RaffleRepository) MarkPublished(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": []models.RaffleStatus{models.RaffleStatusDraft, models.RaffleStatusPendingPayment}},
	}
	update := bson.M{
		"$set": bson.M{
			"status":      models.RaffleStatusPublished,
			"publishedAt": now,
			"updatedAt":   now,
		},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	// Distinguish "already published" from "no such raffle"
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// IncrementSales adds a confirmed purchase to the raffle counters. The reservation
// id is recorded in the same update so a replay never counts it twice.
func (r *RaffleRepository) IncrementSales(ctx context.Context, id primitive.ObjectID, reservationID string, quantity int, amountCents int64) (bool, error) {
	filter := bson.M{
		"_id":                 id,
		"countedReservations": bson.M{"$ne": reservationID},
	}
	update := bson.M{
		"$inc": bson.M{
			"numbersSold":      quantity,
			"totalEarnedCents": amountCents,
		},
		"$addToSet": bson.M{"countedReservations": reservationID},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	// Already counted, or no such raffle
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
