package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the canonical status of a payment transaction
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether the status is final.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusConfirmed, PaymentStatusFailed:
		return true
	case PaymentStatusPending:
		return false
	}
	return false
}

// CanTransition reports whether s -> to is allowed: pending -> confirmed|failed.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	return s == PaymentStatusPending && to.Terminal()
}

// PaymentType tells what a transaction pays for
type PaymentType string

const (
	PaymentTypeRafflePurchase PaymentType = "raffle_purchase"
	PaymentTypePublicationFee PaymentType = "publication_fee"
)

// StatusChange is one entry of a transaction's append-only history
type StatusChange struct {
	Status    PaymentStatus `bson:"status" json:"status"`
	RawStatus string        `bson:"rawStatus,omitempty" json:"rawStatus,omitempty"`
	Source    string        `bson:"source" json:"source"`
	At        time.Time     `bson:"at" json:"at"`
}

// PaymentTransaction is the ledger record of one charge created with a gateway.
// ExternalID is assigned by the gateway and is unique within the ledger.
type PaymentTransaction struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	ExternalID    string              `bson:"externalId" json:"externalId"`
	Type          PaymentType         `bson:"type" json:"type"`
	RaffleID      primitive.ObjectID  `bson:"raffleId" json:"raffleId"`
	ReservationID *primitive.ObjectID `bson:"reservationId,omitempty" json:"reservationId,omitempty"`
	AmountCents   int64               `bson:"amountCents" json:"amountCents"`
	Gateway       string              `bson:"gateway" json:"gateway"`
	PayableCode   string              `bson:"payableCode" json:"payableCode"`
	QRImage       string              `bson:"qrImage,omitempty" json:"qrImage,omitempty"`
	Status        PaymentStatus       `bson:"status" json:"status"`
	History       []StatusChange      `bson:"history" json:"history"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}
