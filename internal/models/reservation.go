package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReservationStatus is the lifecycle state of a purchase reservation
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusFailed    ReservationStatus = "failed"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationStatusConfirmed, ReservationStatusFailed, ReservationStatusExpired:
		return true
	case ReservationStatusPending:
		return false
	}
	return false
}

// CanTransition reports whether s -> to is a valid reservation transition.
// Only pending reservations move, and only to a terminal state.
func (s ReservationStatus) CanTransition(to ReservationStatus) bool {
	return s == ReservationStatusPending && to.Terminal()
}

// BuyerContact identifies the buyer of a reservation
type BuyerContact struct {
	Name  string `bson:"name" json:"name" binding:"required"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone" json:"phone" binding:"required"`
}

// PurchaseReservation binds a buyer, a quantity and a set of reserved numbers to
// the payment that settles them. Numbers never change once assigned.
type PurchaseReservation struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	RaffleID              primitive.ObjectID `bson:"raffleId" json:"raffleId"`
	Buyer                 BuyerContact       `bson:"buyer" json:"buyer"`
	Quantity              int                `bson:"quantity" json:"quantity"`
	Numbers               []int              `bson:"numbers" json:"numbers"`
	UnitPriceCents        int64              `bson:"unitPriceCents" json:"unitPriceCents"`
	TotalAmountCents      int64              `bson:"totalAmountCents" json:"totalAmountCents"`
	Status                ReservationStatus  `bson:"status" json:"status"`
	ExternalTransactionID string             `bson:"externalTransactionId,omitempty" json:"externalTransactionId,omitempty"`
	ExpiresAt             time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt             time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AmountConsistent checks the total equals numbers times unit price.
func (r *PurchaseReservation) AmountConsistent() bool {
	return r.TotalAmountCents == int64(len(r.Numbers))*r.UnitPriceCents && len(r.Numbers) == r.Quantity
}
