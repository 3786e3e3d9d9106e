package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ArowuTest/rifamania-backend/internal/middleware"
	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"github.com/ArowuTest/rifamania-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newPurchaseRouter(svc services.PurchaseService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPurchaseHandler(svc)
	r.GET("/raffles/:id/availability", h.GetAvailability)
	r.POST("/raffles/:id/reservations", h.ReserveNumbers)
	r.POST("/raffles/:id/purchases", h.Purchase)
	r.POST("/reservations/:id/charge", h.CreateCharge)
	r.GET("/reservations/:id", h.GetPurchaseStatus)
	return r
}

func TestPurchaseHandler_Purchase(t *testing.T) {
	raffleID := primitive.NewObjectID()
	var gotQuantity int
	svc := &MockPurchaseService{
		PurchaseFunc: func(_ context.Context, id primitive.ObjectID, quantity int, buyer models.BuyerContact) (*services.PurchaseResult, error) {
			if id != raffleID || buyer.Phone != "11999990000" {
				return nil, fmt.Errorf("unexpected input %s %+v", id.Hex(), buyer)
			}
			gotQuantity = quantity
			return &services.PurchaseResult{
				Reservation: &models.PurchaseReservation{RaffleID: id, Quantity: quantity, Numbers: []int{4, 9}},
				Charge:      &services.ChargeResult{TransactionID: "sp-1", PayableCode: "000201"},
			}, nil
		},
	}

	w := httptest.NewRecorder()
	body := `{"quantity":2,"buyer":{"name":"Ana","phone":"11999990000"}}`
	req := httptest.NewRequest(http.MethodPost, "/raffles/"+raffleID.Hex()+"/purchases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newPurchaseRouter(svc).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if gotQuantity != 2 || !strings.Contains(w.Body.String(), `"payableCode":"000201"`) {
		t.Fatalf("unexpected response %s", w.Body.String())
	}
}

func TestPurchaseHandler_ValidatesInput(t *testing.T) {
	svc := &MockPurchaseService{}
	raffleID := primitive.NewObjectID().Hex()
	cases := []struct {
		path string
		body string
	}{
		{"/raffles/not-an-id/reservations", `{"quantity":1,"buyer":{"name":"Ana","phone":"1"}}`},
		{"/raffles/" + raffleID + "/reservations", `{"quantity":0,"buyer":{"name":"Ana","phone":"1"}}`},
		{"/raffles/" + raffleID + "/reservations", `{"quantity":1,"buyer":{"name":"Ana"}}`},
		{"/raffles/" + raffleID + "/purchases", `{`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		newPurchaseRouter(svc).ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d", tc.path, tc.body, w.Code)
		}
	}
}

func TestRespondError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{services.ErrInvalidQuantity, http.StatusBadRequest},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrRaffleNotFound, http.StatusNotFound},
		{services.ErrReservationNotFound, http.StatusNotFound},
		{services.ErrInsufficientSupply, http.StatusConflict},
		{services.ErrReservationNotPending, http.StatusConflict},
		{services.ErrNoPaymentMethodConfigured, http.StatusUnprocessableEntity},
		{services.ErrManualApprovalRequired, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", services.ErrPaymentInitiationFailed, errors.New("gateway 500")), http.StatusBadGateway},
		{fmt.Errorf("reserve: %w", services.ErrPoolBusy), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &MockPurchaseService{
			AvailabilityFunc: func(context.Context, primitive.ObjectID) (*models.PoolAvailability, error) {
				return nil, tc.err
			},
		}
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/raffles/"+primitive.NewObjectID().Hex()+"/availability", nil)
		newPurchaseRouter(svc).ServeHTTP(w, req)
		if w.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, w.Code)
		}
		if tc.code == http.StatusBadGateway && strings.Contains(w.Body.String(), "gateway 500") {
			t.Fatalf("gateway details leaked: %s", w.Body.String())
		}
	}
}

func TestPublicationHandler_PassesOwner(t *testing.T) {
	var gotOwner string
	svc := &MockPublicationService{
		QuoteFunc: func(_ context.Context, ownerID string, _ primitive.ObjectID) (*pricing.Quote, error) {
			gotOwner = ownerID
			return &pricing.Quote{PoolSize: 100, FeeCents: 9700, Fee: "R$ 97,00"}, nil
		},
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.OwnerIDKey, "seller-9") })
	h := NewPublicationHandler(svc)
	r.GET("/raffles/:id/publication/quote", h.GetQuote)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/raffles/"+primitive.NewObjectID().Hex()+"/publication/quote", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || gotOwner != "seller-9" {
		t.Fatalf("unexpected result %d owner=%q", w.Code, gotOwner)
	}
}
