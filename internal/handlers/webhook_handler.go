package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ArowuTest/rifamania-backend/internal/services"
	"github.com/ArowuTest/rifamania-backend/pkg/pixgateway"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// maxWebhookBody bounds what a provider may post
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment notifications from the PIX providers
type WebhookHandler struct {
	reconciler services.Reconciler
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(reconciler services.Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandlePayment handles POST /webhooks/payments and /webhooks/payments/:gateway.
// Any well-formed payload is acknowledged with 200 so providers stop retrying;
// only a body without a transaction id is rejected.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	gateway := strings.ToLower(c.Param("gateway"))
	if gateway == "" {
		gateway = pixgateway.SyncPayments
	}

	var payload map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	n, ok := parseNotification(gateway, payload)
	if !ok {
		slog.Warn("Webhook without transaction id", "gateway", gateway)
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction id is required"})
		return
	}

	result := h.reconciler.Receive(c.Request.Context(), n)
	slog.Info("Webhook processed", "gateway", gateway, "transactionId", n.TransactionID,
		"rawStatus", n.RawStatus, "outcome", result.Outcome)
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": result.Outcome, "status": result.Status})
}

// parseNotification pulls the transaction id, status and metadata out of the
// payload shapes the providers send.
func parseNotification(gateway string, payload map[string]any) (services.Notification, bool) {
	n := services.Notification{Gateway: gateway}

	// Mercado Pago puts the payment id in data.id; its top-level id names the notification
	if gateway == pixgateway.MercadoPago {
		n.TransactionID = dataID(payload)
	}
	for _, key := range []string{"idTransaction", "transactionId", "transaction_id", "id"} {
		if n.TransactionID != "" {
			break
		}
		n.TransactionID = scalarString(payload[key])
	}
	if n.TransactionID == "" {
		n.TransactionID = dataID(payload)
	}
	if n.TransactionID == "" {
		return n, false
	}

	for _, key := range []string{"status_transaction", "status"} {
		if s := scalarString(payload[key]); s != "" {
			n.RawStatus = s
			break
		}
	}
	if meta, ok := payload["metadata"].(map[string]any); ok {
		n.Metadata = meta
	}
	return n, true
}

func dataID(payload map[string]any) string {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return ""
	}
	return scalarString(data["id"])
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	}
	return ""
}
