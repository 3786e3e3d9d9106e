package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/pkg/pixgateway"
	"golang.org/x/exp/slog"
)

// GatewaySelector tries the configured providers in a fixed priority order and
// falls back to the next one when a provider is unavailable or rejects the charge.
type GatewaySelector struct {
	gateways    []pixgateway.Gateway
	callbackURL func(gateway string) string
}

// NewGatewaySelector creates a selector. Gateways are tried in the order given.
func NewGatewaySelector(callbackURL func(gateway string) string, gateways ...pixgateway.Gateway) *GatewaySelector {
	return &GatewaySelector{
		gateways:    gateways,
		callbackURL: callbackURL,
	}
}

func credentialsFor(gateway string, creds models.GatewayCredentials) (pixgateway.Credentials, bool) {
	switch gateway {
	case pixgateway.SyncPayments:
		if creds.HasSyncPayments() {
			return pixgateway.Credentials{
				ClientID:     creds.SyncPaymentsClientID,
				ClientSecret: creds.SyncPaymentsClientSecret,
			}, true
		}
	case pixgateway.MercadoPago:
		if creds.HasMercadoPago() {
			return pixgateway.Credentials{AccessToken: creds.MercadoPagoAccessToken}, true
		}
	}
	return pixgateway.Credentials{}, false
}

// Configured lists, in priority order, the gateways usable with creds
func (s *GatewaySelector) Configured(creds models.GatewayCredentials) []string {
	var names []string
	for _, g := range s.gateways {
		if _, ok := credentialsFor(g.Name(), creds); ok {
			names = append(names, g.Name())
		}
	}
	return names
}

// CreateCharge returns the first successful charge. It fails with
// ErrNoPaymentMethodConfigured when no gateway matches creds and with
// ErrPaymentInitiationFailed when every configured gateway failed.
func (s *GatewaySelector) CreateCharge(ctx context.Context, creds models.GatewayCredentials, req pixgateway.ChargeRequest) (*pixgateway.Charge, error) {
	var errs []error
	tried := 0
	for _, g := range s.gateways {
		gwCreds, ok := credentialsFor(g.Name(), creds)
		if !ok {
			continue
		}
		tried++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		attempt := req
		if s.callbackURL != nil {
			attempt.CallbackURL = s.callbackURL(g.Name())
		}
		charge, err := g.CreateCharge(ctx, gwCreds, attempt)
		if err == nil {
			if tried > 1 {
				slog.Info("Charge created on fallback gateway", "gateway", g.Name(), "idempotencyKey", req.IdempotencyKey)
			}
			return charge, nil
		}

		slog.Warn("Gateway failed to create charge", "gateway", g.Name(), "idempotencyKey", req.IdempotencyKey,
			"unavailable", errors.Is(err, pixgateway.ErrGatewayUnavailable), "error", err)
		errs = append(errs, err)
	}

	if tried == 0 {
		return nil, ErrNoPaymentMethodConfigured
	}
	return nil, fmt.Errorf("%w: %w", ErrPaymentInitiationFailed, errors.Join(errs...))
}
