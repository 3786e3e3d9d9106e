package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleStatus is the publication state of a raffle
type RaffleStatus string

const (
	RaffleStatusDraft          RaffleStatus = "draft"
	RaffleStatusPendingPayment RaffleStatus = "pending_payment"
	RaffleStatusPublished      RaffleStatus = "published"
)

// Valid reports whether s is one of the known raffle statuses.
func (s RaffleStatus) Valid() bool {
	switch s {
	case RaffleStatusDraft, RaffleStatusPendingPayment, RaffleStatusPublished:
		return true
	}
	return false
}

// Raffle is the raffle record owned by the CRUD layer. The core only reads it,
// except for the published flip and the sold/earned counters.
type Raffle struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID             string             `bson:"ownerId" json:"ownerId"`
	Name                string             `bson:"name" json:"name"`
	TotalNumbers        int                `bson:"totalNumbers" json:"totalNumbers"`
	PricePerNumberCents int64              `bson:"pricePerNumberCents" json:"pricePerNumberCents"`
	Status              RaffleStatus       `bson:"status" json:"status"`
	NumbersSold         int                `bson:"numbersSold" json:"numbersSold"`
	TotalEarnedCents    int64              `bson:"totalEarnedCents" json:"totalEarnedCents"`
	CountedReservations []string           `bson:"countedReservations,omitempty" json:"-"`
	PublishedAt         time.Time          `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsPublished reports whether buyers can purchase numbers.
func (r *Raffle) IsPublished() bool {
	return r.Status == RaffleStatusPublished
}
