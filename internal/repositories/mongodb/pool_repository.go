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

// Compile-time check to ensure PoolRepository implements the interface
var _ repositories.PoolRepository = (*PoolRepository)(nil)

// PoolRepository stores one document per raffle with its sold numbers and the
// holds of pending reservations. Holds are written with a version compare-and-swap
// so two writers can never claim from the same snapshot.
type PoolRepository struct {
	collection *mongo.Collection
}

// NewPoolRepository creates a new PoolRepository
func NewPoolRepository(db *mongo.Database) *PoolRepository {
	return &PoolRepository{
		collection: db.Collection(poolsCollection),
	}
}

func holdField(reservationID string) string {
	return "holds." + reservationID
}

// Ensure upserts the pool document for a raffle
func (r *PoolRepository) Ensure(ctx context.Context, raffleID primitive.ObjectID, totalNumbers int) (*models.RafflePool, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"totalNumbers": totalNumbers,
			"sold":         []int{},
			"holds":        bson.M{},
			"version":      int64(0),
			"createdAt":    now,
			"updatedAt":    now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var pool models.RafflePool
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": raffleID}, update, opts).Decode(&pool)
	if err != nil {
		// Two concurrent upserts can race on _id; the loser just reads
		if mongo.IsDuplicateKeyError(err) {
			return r.FindByRaffleID(ctx, raffleID)
		}
		return nil, mapError(err)
	}
	normalizePool(&pool)
	return &pool, nil
}

// FindByRaffleID finds the pool of a raffle
func (r *PoolRepository) FindByRaffleID(ctx context.Context, raffleID primitive.ObjectID) (*models.RafflePool, error) {
	var pool models.RafflePool
	if err := r.collection.FindOne(ctx, bson.M{"_id": raffleID}).Decode(&pool); err != nil {
		return nil, mapError(err)
	}
	normalizePool(&pool)
	return &pool, nil
}

// Hold records numbers for a reservation if nobody changed the pool since expectedVersion
func (r *PoolRepository) Hold(ctx context.Context, raffleID primitive.ObjectID, reservationID string, numbers []int, expectedVersion int64) error {
	filter := bson.M{
		"_id":     raffleID,
		"version": expectedVersion,
	}
	update := bson.M{
		"$set": bson.M{
			holdField(reservationID): numbers,
			"updatedAt":              time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrVersionConflict
	}
	return nil
}

// Release removes the hold of a reservation, if still present
func (r *PoolRepository) Release(ctx context.Context, raffleID primitive.ObjectID, reservationID string) (bool, error) {
	filter := bson.M{
		"_id":                    raffleID,
		holdField(reservationID): bson.M{"$exists": true},
	}
	update := bson.M{
		"$unset": bson.M{holdField(reservationID): ""},
		"$set":   bson.M{"updatedAt": time.Now()},
		"$inc":   bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Commit moves a reservation's hold into the sold set in a single update
func (r *PoolRepository) Commit(ctx context.Context, raffleID primitive.ObjectID, reservationID string, numbers []int) (bool, error) {
	filter := bson.M{
		"_id":                    raffleID,
		holdField(reservationID): bson.M{"$exists": true},
	}
	update := bson.M{
		"$unset": bson.M{holdField(reservationID): ""},
		"$push":  bson.M{"sold": bson.M{"$each": numbers}},
		"$set":   bson.M{"updatedAt": time.Now()},
		"$inc":   bson.M{"version": 1},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	// Not held: already committed or released. Surface a missing pool though.
	if _, err := r.FindByRaffleID(ctx, raffleID); err != nil {
		return false, err
	}
	return false, nil
}

// FindHeld lists pools with at least one hold, least recently changed first
func (r *PoolRepository) FindHeld(ctx context.Context, limit int) ([]*models.RafflePool, error) {
	filter := bson.M{"holds": bson.M{"$exists": true, "$ne": bson.M{}}}
	opts := options.Find().SetSort(bson.M{"updatedAt": 1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pools []*models.RafflePool
	if err := cursor.All(ctx, &pools); err != nil {
		return nil, err
	}
	for _, pool := range pools {
		normalizePool(pool)
	}
	return pools, nil
}

func normalizePool(pool *models.RafflePool) {
	if pool.Holds == nil {
		pool.Holds = map[string][]int{}
	}
	if pool.Sold == nil {
		pool.Sold = []int{}
	}
}
