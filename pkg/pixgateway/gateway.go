// Package pixgateway talks to the PIX payment providers. Every provider sits
// behind the same Gateway contract so callers can fall back from one to another.
package pixgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Provider names, as stored on ledger entries
const (
	SyncPayments = "syncpayments"
	MercadoPago  = "mercadopago"
)

var (
	// ErrGatewayUnavailable covers network failures, timeouts and provider 5xx responses
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected covers well-formed provider refusals (bad credentials, invalid amount)
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
)

// GatewayError carries the provider and HTTP status of a failed call.
// It matches ErrGatewayUnavailable or ErrGatewayRejected through errors.Is.
type GatewayError struct {
	Gateway    string
	StatusCode int
	Kind       error
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (status %d): %v", e.Gateway, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Gateway, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Credentials are the seller's (or platform's) secrets for one provider
type Credentials struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
}

// Payer is the buyer data sent along with a charge
type Payer struct {
	Name  string
	Email string
	Phone string
}

// ChargeRequest describes one PIX charge. IdempotencyKey is the reservation id
// for purchases and the raffle id for publication fees.
type ChargeRequest struct {
	AmountCents    int64
	Description    string
	IdempotencyKey string
	Payer          Payer
	Metadata       map[string]string
	CallbackURL    string
	ExpiresAt      time.Time
}

// Charge is the provider's answer to a created charge
type Charge struct {
	Gateway       string `json:"gateway"`
	ExternalID    string `json:"externalId"`
	PayableCode   string `json:"payableCode"`
	QRImageBase64 string `json:"qrImageBase64,omitempty"`
}

// Gateway is implemented by every PIX provider adapter
type Gateway interface {
	Name() string
	CreateCharge(ctx context.Context, creds Credentials, req ChargeRequest) (*Charge, error)
}

// Reais converts cents into the decimal amount providers expect (e.g. 1050 -> 10.50)
func Reais(cents int64) json.Number {
	return json.Number(decimal.New(cents, -2).StringFixed(2))
}

func unavailable(gateway string, status int, err error) error {
	return &GatewayError{Gateway: gateway, StatusCode: status, Kind: ErrGatewayUnavailable, Err: err}
}

func rejected(gateway string, status int, err error) error {
	return &GatewayError{Gateway: gateway, StatusCode: status, Kind: ErrGatewayRejected, Err: err}
}

// doJSON sends a JSON request and decodes a 2xx JSON response into out.
// Non-2xx responses are classified: 408, 429 and 5xx are unavailable, other 4xx rejected.
func doJSON(ctx context.Context, client *http.Client, gateway, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return rejected(gateway, 0, fmt.Errorf("failed to marshal request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return rejected(gateway, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return unavailable(gateway, 0, fmt.Errorf("request timed out: %w", err))
		}
		return unavailable(gateway, 0, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return unavailable(gateway, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusRequestTimeout:
		return unavailable(gateway, resp.StatusCode, fmt.Errorf("request failed: %s", truncate(respBody)))
	default:
		return rejected(gateway, resp.StatusCode, fmt.Errorf("request failed: %s", truncate(respBody)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return unavailable(gateway, resp.StatusCode, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
