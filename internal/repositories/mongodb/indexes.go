package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	rafflesCollection       = "raffles"
	profilesCollection      = "seller_profiles"
	poolsCollection         = "raffle_pools"
	reservationsCollection  = "purchase_reservations"
	transactionsCollection  = "payment_transactions"
	webhookEventsCollection = "webhook_events"
)

// EnsureIndexes creates the indexes the payment core relies on. The unique
// externalId index is what keeps the ledger keyed by gateway transaction id.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		transactionsCollection: {
			{Keys: bson.D{{Key: "externalId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "reservationId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "raffleId", Value: 1}, {Key: "type", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		reservationsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
			{Keys: bson.D{{Key: "raffleId", Value: 1}}},
		},
		webhookEventsCollection: {
			{Keys: bson.D{{Key: "processedAt", Value: 1}, {Key: "attempts", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
