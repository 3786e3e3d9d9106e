package mongodb

import (
	"context"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SellerProfileRepository implements repositories.SellerProfileRepository
type SellerProfileRepository struct {
	collection *mongo.Collection
}

// NewSellerProfileRepository creates a new SellerProfileRepository
func NewSellerProfileRepository(db *mongo.Database) repositories.SellerProfileRepository {
	return &SellerProfileRepository{
		collection: db.Collection(profilesCollection),
	}
}

// FindByOwnerID finds the profile of a raffle owner
func (r *SellerProfileRepository) FindByOwnerID(ctx context.Context, ownerID string) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	if err := r.collection.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&profile); err != nil {
		return nil, mapError(err)
	}
	return &profile, nil
}
