package models

import "time"

// GatewayCredentials holds the PIX provider credentials configured by a seller
// (or by the platform, for publication fees). Empty fields mean "not configured".
type GatewayCredentials struct {
	SyncPaymentsClientID     string `bson:"syncPaymentsClientId,omitempty" json:"-"`
	SyncPaymentsClientSecret string `bson:"syncPaymentsClientSecret,omitempty" json:"-"`
	MercadoPagoAccessToken   string `bson:"mercadoPagoAccessToken,omitempty" json:"-"`
}

// HasSyncPayments reports whether both SyncPayments credentials are present.
func (c GatewayCredentials) HasSyncPayments() bool {
	return c.SyncPaymentsClientID != "" && c.SyncPaymentsClientSecret != ""
}

// HasMercadoPago reports whether a Mercado Pago access token is present.
func (c GatewayCredentials) HasMercadoPago() bool {
	return c.MercadoPagoAccessToken != ""
}

// Configured reports whether at least one provider can be used.
func (c GatewayCredentials) Configured() bool {
	return c.HasSyncPayments() || c.HasMercadoPago()
}

// SellerProfile is the raffle owner's profile as seen by the payment core
type SellerProfile struct {
	OwnerID     string             `bson:"_id" json:"ownerId"`
	DisplayName string             `bson:"displayName" json:"displayName"`
	Credentials GatewayCredentials `bson:"credentials" json:"-"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
