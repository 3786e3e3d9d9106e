package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.PoolRepository = (*PoolRepository)(nil)

// PoolRepository keeps raffle pools in a map with the same version
// compare-and-swap semantics as the MongoDB implementation
type PoolRepository struct {
	base
	pools map[primitive.ObjectID]*models.RafflePool
}

// NewPoolRepository creates an empty PoolRepository
func NewPoolRepository() *PoolRepository {
	return &PoolRepository{pools: make(map[primitive.ObjectID]*models.RafflePool)}
}

func (r *PoolRepository) Ensure(_ context.Context, raffleID primitive.ObjectID, totalNumbers int) (*models.RafflePool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[raffleID]
	if !ok {
		now := time.Now()
		pool = &models.RafflePool{
			RaffleID:     raffleID,
			TotalNumbers: totalNumbers,
			Sold:         []int{},
			Holds:        map[string][]int{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		r.pools[raffleID] = pool
		r.wrote()
	}
	return clonePool(pool), nil
}

func (r *PoolRepository) FindByRaffleID(_ context.Context, raffleID primitive.ObjectID) (*models.RafflePool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool, ok := r.pools[raffleID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return clonePool(pool), nil
}

func (r *PoolRepository) Hold(_ context.Context, raffleID primitive.ObjectID, reservationID string, numbers []int, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[raffleID]
	if !ok || pool.Version != expectedVersion {
		return repositories.ErrVersionConflict
	}
	pool.Holds[reservationID] = cloneInts(numbers)
	pool.Version++
	pool.UpdatedAt = time.Now()
	r.wrote()
	return nil
}

func (r *PoolRepository) Release(_ context.Context, raffleID primitive.ObjectID, reservationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[raffleID]
	if !ok {
		return false, nil
	}
	if _, held := pool.Holds[reservationID]; !held {
		return false, nil
	}
	delete(pool.Holds, reservationID)
	pool.Version++
	pool.UpdatedAt = time.Now()
	r.wrote()
	return true, nil
}

func (r *PoolRepository) Commit(_ context.Context, raffleID primitive.ObjectID, reservationID string, numbers []int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[raffleID]
	if !ok {
		return false, repositories.ErrNotFound
	}
	if _, held := pool.Holds[reservationID]; !held {
		return false, nil
	}
	delete(pool.Holds, reservationID)
	pool.Sold = append(pool.Sold, numbers...)
	pool.Version++
	pool.UpdatedAt = time.Now()
	r.wrote()
	return true, nil
}

func (r *PoolRepository) FindHeld(_ context.Context, limit int) ([]*models.RafflePool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.RafflePool
	for _, pool := range r.pools {
		if len(pool.Holds) > 0 {
			out = append(out, clonePool(pool))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clonePool(p *models.RafflePool) *models.RafflePool {
	out := *p
	out.Sold = cloneInts(p.Sold)
	out.Holds = make(map[string][]int, len(p.Holds))
	for k, v := range p.Holds {
		out.Holds[k] = cloneInts(v)
	}
	return &out
}
