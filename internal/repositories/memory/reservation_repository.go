package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.ReservationRepository = (*ReservationRepository)(nil)

// ReservationRepository keeps reservations in a map
type ReservationRepository struct {
	base
	reservations map[primitive.ObjectID]models.PurchaseReservation
}

// NewReservationRepository creates an empty ReservationRepository
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{reservations: make(map[primitive.ObjectID]models.PurchaseReservation)}
}

func (r *ReservationRepository) Create(_ context.Context, reservation *models.PurchaseReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reservation.ID.IsZero() {
		reservation.ID = primitive.NewObjectID()
	}
	if _, exists := r.reservations[reservation.ID]; exists {
		return repositories.ErrDuplicate
	}
	now := time.Now()
	reservation.CreatedAt = now
	reservation.UpdatedAt = now
	stored := *reservation
	stored.Numbers = cloneInts(reservation.Numbers)
	r.reservations[reservation.ID] = stored
	r.wrote()
	return nil
}

func (r *ReservationRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.PurchaseReservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reservation, ok := r.reservations[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	reservation.Numbers = cloneInts(reservation.Numbers)
	return &reservation, nil
}

func (r *ReservationRepository) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.ReservationStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reservation, ok := r.reservations[id]
	if !ok || reservation.Status != from || !from.CanTransition(to) {
		return false, nil
	}
	reservation.Status = to
	reservation.UpdatedAt = time.Now()
	r.reservations[id] = reservation
	r.wrote()
	return true, nil
}

func (r *ReservationRepository) AttachTransaction(_ context.Context, id primitive.ObjectID, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reservation, ok := r.reservations[id]
	if !ok {
		return repositories.ErrNotFound
	}
	reservation.ExternalTransactionID = externalID
	reservation.UpdatedAt = time.Now()
	r.reservations[id] = reservation
	r.wrote()
	return nil
}

func (r *ReservationRepository) FindExpiredPending(_ context.Context, now time.Time, limit int) ([]*models.PurchaseReservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*models.PurchaseReservation{}
	for _, reservation := range r.reservations {
		if reservation.Status != models.ReservationStatusPending || reservation.ExpiresAt.After(now) {
			continue
		}
		res := reservation
		res.Numbers = cloneInts(reservation.Numbers)
		out = append(out, &res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
