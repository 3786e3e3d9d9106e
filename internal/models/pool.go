package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RafflePool is the authoritative claim state of a raffle's numbers 1..TotalNumbers.
// Holds maps a reservation id (hex) to the numbers it holds while pending; Sold
// contains numbers of confirmed reservations. Version increments on every claim change.
type RafflePool struct {
	RaffleID     primitive.ObjectID `bson:"_id" json:"raffleId"`
	TotalNumbers int                `bson:"totalNumbers" json:"totalNumbers"`
	Sold         []int              `bson:"sold" json:"sold"`
	Holds        map[string][]int   `bson:"holds" json:"holds"`
	Version      int64              `bson:"version" json:"version"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HeldCount returns how many numbers are held by pending reservations.
func (p *RafflePool) HeldCount() int {
	n := 0
	for _, nums := range p.Holds {
		n += len(nums)
	}
	return n
}

// Available returns how many numbers are neither sold nor held.
func (p *RafflePool) Available() int {
	return p.TotalNumbers - len(p.Sold) - p.HeldCount()
}

// Claimed returns the set of sold or held numbers.
func (p *RafflePool) Claimed() map[int]struct{} {
	claimed := make(map[int]struct{}, len(p.Sold)+p.HeldCount())
	for _, n := range p.Sold {
		claimed[n] = struct{}{}
	}
	for _, nums := range p.Holds {
		for _, n := range nums {
			claimed[n] = struct{}{}
		}
	}
	return claimed
}

// PoolAvailability is a read-only summary of a pool
type PoolAvailability struct {
	RaffleID  primitive.ObjectID `json:"raffleId"`
	Total     int                `json:"total"`
	Sold      int                `json:"sold"`
	Held      int                `json:"held"`
	Available int                `json:"available"`
}
