package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.RaffleRepository = (*RaffleRepository)(nil)

// RaffleRepository keeps raffles in a map
type RaffleRepository struct {
	base
	raffles map[primitive.ObjectID]models.Raffle
}

// NewRaffleRepository creates an empty RaffleRepository
func NewRaffleRepository() *RaffleRepository {
	return &RaffleRepository{raffles: make(map[primitive.ObjectID]models.Raffle)}
}

// Put stores a raffle as-is. It is how the CRUD layer's records get seeded.
func (r *RaffleRepository) Put(raffle *models.Raffle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if raffle.ID.IsZero() {
		raffle.ID = primitive.NewObjectID()
	}
	r.raffles[raffle.ID] = *raffle
}

func (r *RaffleRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.Raffle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raffle, ok := r.raffles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &raffle, nil
}

func (r *RaffleRepository) MarkPublished(_ context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raffle, ok := r.raffles[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if raffle.IsPublished() {
		return false, nil
	}
	now := time.Now()
	raffle.Status = models.RaffleStatusPublished
	raffle.PublishedAt = now
	raffle.UpdatedAt = now
	r.raffles[id] = raffle
	r.wrote()
	return true, nil
}

func (r *RaffleRepository) IncrementSales(_ context.Context, id primitive.ObjectID, reservationID string, quantity int, amountCents int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raffle, ok := r.raffles[id]
	if !ok {
		return false, repositories.ErrNotFound
	}
	for _, counted := range raffle.CountedReservations {
		if counted == reservationID {
			return false, nil
		}
	}
	raffle.CountedReservations = append(append([]string(nil), raffle.CountedReservations...), reservationID)
	raffle.NumbersSold += quantity
	raffle.TotalEarnedCents += amountCents
	raffle.UpdatedAt = time.Now()
	r.raffles[id] = raffle
	r.wrote()
	return true, nil
}

var _ repositories.SellerProfileRepository = (*SellerProfileRepository)(nil)

// SellerProfileRepository keeps seller profiles in a map
type SellerProfileRepository struct {
	base
	profiles map[string]models.SellerProfile
}

// NewSellerProfileRepository creates an empty SellerProfileRepository
func NewSellerProfileRepository() *SellerProfileRepository {
	return &SellerProfileRepository{profiles: make(map[string]models.SellerProfile)}
}

// Put stores a profile as-is
func (r *SellerProfileRepository) Put(profile *models.SellerProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.OwnerID] = *profile
}

func (r *SellerProfileRepository) FindByOwnerID(_ context.Context, ownerID string) (*models.SellerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[ownerID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &profile, nil
}
