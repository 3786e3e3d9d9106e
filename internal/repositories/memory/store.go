// Package memory holds in-process implementations of the repositories. They back
// the "memory" storage driver and the service tests.
package memory

import (
	"sync"
	"sync/atomic"
)

// writeCounter counts mutating calls that changed state
type writeCounter struct {
	n atomic.Int64
}

func (w *writeCounter) wrote() {
	w.n.Add(1)
}

// Writes returns how many state changes the repository has applied.
func (w *writeCounter) Writes() int64 {
	return w.n.Load()
}

// Store groups one instance of every memory repository
type Store struct {
	Raffles       *RaffleRepository
	Profiles      *SellerProfileRepository
	Pools         *PoolRepository
	Reservations  *ReservationRepository
	Transactions  *TransactionRepository
	WebhookEvents *WebhookEventRepository
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		Raffles:       NewRaffleRepository(),
		Profiles:      NewSellerProfileRepository(),
		Pools:         NewPoolRepository(),
		Reservations:  NewReservationRepository(),
		Transactions:  NewTransactionRepository(),
		WebhookEvents: NewWebhookEventRepository(),
	}
}

// Writes sums the state changes across all repositories.
func (s *Store) Writes() int64 {
	return s.Raffles.Writes() + s.Profiles.Writes() + s.Pools.Writes() +
		s.Reservations.Writes() + s.Transactions.Writes() + s.WebhookEvents.Writes()
}

type base struct {
	mu sync.RWMutex
	writeCounter
}

func cloneInts(in []int) []int {
	if in == nil {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	return out
}
