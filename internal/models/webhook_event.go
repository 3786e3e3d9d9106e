package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebhookEvent stores a notification whose reconciliation hit an infrastructure
// error, so it can be replayed later.
type WebhookEvent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Gateway         string             `bson:"gateway" json:"gateway"`
	TransactionID   string             `bson:"transactionId" json:"transactionId"`
	RawStatus       string             `bson:"rawStatus" json:"rawStatus"`
	Metadata        map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Attempts        int                `bson:"attempts" json:"attempts"`
	ProcessingError string             `bson:"processingError,omitempty" json:"processingError,omitempty"`
	ProcessedAt     *time.Time         `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
