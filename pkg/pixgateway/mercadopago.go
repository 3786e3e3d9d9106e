package pixgateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	mercadoPagoPaymentsPath = "/v1/payments"
	mercadoPagoTimeLayout   = "2006-01-02T15:04:05.000-07:00"
)

var _ Gateway = (*MercadoPagoGateway)(nil)

// MercadoPagoGateway creates PIX payments through Mercado Pago using the
// seller's access token.
type MercadoPagoGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewMercadoPagoGateway creates a new MercadoPagoGateway
func NewMercadoPagoGateway(baseURL string, timeout time.Duration) *MercadoPagoGateway {
	return &MercadoPagoGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *MercadoPagoGateway) Name() string {
	return MercadoPago
}

type mpIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type mpPayer struct {
	Email          string           `json:"email"`
	FirstName      string           `json:"first_name"`
	LastName       string           `json:"last_name"`
	Identification mpIdentification `json:"identification"`
}

type mpPaymentRequest struct {
	TransactionAmount json.Number       `json:"transaction_amount"`
	Description       string            `json:"description"`
	PaymentMethodID   string            `json:"payment_method_id"`
	Payer             mpPayer           `json:"payer"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url,omitempty"`
	DateOfExpiration  string            `json:"date_of_expiration,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

type mpPaymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreateCharge creates a PIX payment. The idempotency key doubles as the
// external reference.
func (g *MercadoPagoGateway) CreateCharge(ctx context.Context, creds Credentials, req ChargeRequest) (*Charge, error) {
	if creds.AccessToken == "" {
		return nil, rejected(MercadoPago, 0, errors.New("missing access token"))
	}

	first, last := splitName(orDefault(req.Payer.Name, "Cliente Rifa"))
	body := mpPaymentRequest{
		TransactionAmount: Reais(req.AmountCents),
		Description:       req.Description,
		PaymentMethodID:   "pix",
		Payer: mpPayer{
			Email:          orDefault(req.Payer.Email, placeholderEmail),
			FirstName:      first,
			LastName:       last,
			Identification: mpIdentification{Type: "CPF", Number: placeholderDocument},
		},
		ExternalReference: req.IdempotencyKey,
		NotificationURL:   req.CallbackURL,
		Metadata:          req.Metadata,
	}
	if !req.ExpiresAt.IsZero() {
		body.DateOfExpiration = req.ExpiresAt.Format(mercadoPagoTimeLayout)
	}

	headers := map[string]string{
		"Authorization":     "Bearer " + creds.AccessToken,
		"X-Idempotency-Key": req.IdempotencyKey,
	}
	var resp mpPaymentResponse
	if err := doJSON(ctx, g.httpClient, MercadoPago, http.MethodPost, g.baseURL+mercadoPagoPaymentsPath, headers, body, &resp); err != nil {
		return nil, err
	}

	data := resp.PointOfInteraction.TransactionData
	if resp.ID.String() == "" || data.QRCode == "" {
		return nil, unavailable(MercadoPago, 0, errors.New("payment response without id or qr_code"))
	}

	return &Charge{
		Gateway:       MercadoPago,
		ExternalID:    resp.ID.String(),
		PayableCode:   data.QRCode,
		QRImageBase64: data.QRCodeBase64,
	}, nil
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "Cliente", "Rifa"
	case 1:
		return parts[0], "Rifa"
	}
	return parts[0], strings.Join(parts[1:], " ")
}
