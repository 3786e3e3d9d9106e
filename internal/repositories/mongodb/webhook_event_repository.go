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

// WebhookEventRepository implements repositories.WebhookEventRepository
type WebhookEventRepository struct {
	collection *mongo.Collection
}

// NewWebhookEventRepository creates a new WebhookEventRepository
func NewWebhookEventRepository(db *mongo.Database) repositories.WebhookEventRepository {
	return &WebhookEventRepository{
		collection: db.Collection(webhookEventsCollection),
	}
}

// Create stores a notification for later replay
func (r *WebhookEventRepository) Create(ctx context.Context, event *models.WebhookEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, event)
	return mapError(err)
}

// FindUnprocessed lists stored notifications not yet replayed successfully,
// least attempted first, then oldest
func (r *WebhookEventRepository) FindUnprocessed(ctx context.Context, maxAttempts, limit int) ([]*models.WebhookEvent, error) {
	filter := bson.M{"processedAt": bson.M{"$exists": false}}
	if maxAttempts > 0 {
		filter["attempts"] = bson.M{"$lt": maxAttempts}
	}
	opts := options.Find().SetSort(bson.D{{Key: "attempts", Value: 1}, {Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*models.WebhookEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// MarkProcessed records a replay attempt. An empty processingError closes the event.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id primitive.ObjectID, processingError string) error {
	now := time.Now()
	set := bson.M{"updatedAt": now, "processingError": processingError}
	if processingError == "" {
		set["processedAt"] = now
	}
	update := bson.M{"$set": set, "$inc": bson.M{"attempts": 1}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
