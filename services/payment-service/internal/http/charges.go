package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omise/omise-go"

	"github.com/you/padel-booking/pkg/middlewares"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/payment-service/internal/booking"
	"github.com/you/padel-booking/services/payment-service/internal/service"
)

// Charger is implemented by *service.PaymentSvc.
type Charger interface {
	CreateCharge(ctx context.Context, in service.ChargeInput) (*omise.Charge, error)
	GetCharge(ctx context.Context, id string) (*omise.Charge, error)
}

// Bookings is implemented by *booking.Client.
type Bookings interface {
	Lookup(ctx context.Context, authorization, id string) (*booking.Booking, error)
}

type ChargeHandler struct {
	svc      Charger
	bookings Bookings
	log      *slog.Logger
}

func NewChargeHandler(svc Charger, bookings Bookings, logger *slog.Logger) *ChargeHandler {
	if logger == nil {
		logger = obs.Discard()
	}
	return &ChargeHandler{svc: svc, bookings: bookings, log: logger.With("component", "charges")}
}

type chargeResp struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	BookingID string `json:"booking_id"`
	// AuthorizeURI is set for sources and 3-D Secure cards that need a redirect.
	AuthorizeURI string `json:"authorize_uri,omitempty"`
}

func toResp(ch *omise.Charge) chargeResp {
	bookingID, _ := ch.Metadata["booking_id"].(string)
	return chargeResp{
		ID:           ch.ID,
		Status:       string(ch.Status),
		Amount:       ch.Amount,
		Currency:     ch.Currency,
		BookingID:    bookingID,
		AuthorizeURI: ch.AuthorizeURI,
	}
}

func (h *ChargeHandler) create(c *gin.Context, in service.ChargeInput) {
	in.UserID = middlewares.Subject(c)

	// Only the owner of a live pending hold may pay for it.
	b, err := h.bookings.Lookup(c.Request.Context(), c.GetHeader("Authorization"), in.BookingID)
	switch {
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	case err != nil:
		h.log.Error("booking lookup failed", "booking_id", in.BookingID, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "booking service unavailable"})
		return
	case b.UserID != in.UserID:
		c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		return
	case b.Status != booking.StatusPending:
		c.JSON(http.StatusConflict, gin.H{"error": "booking is already " + b.Status})
		return
	}

	ch, err := h.svc.CreateCharge(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, service.ErrInvalidParams) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("create charge failed", "booking_id", in.BookingID, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider error"})
		return
	}
	c.JSON(http.StatusCreated, toResp(ch))
}

// POST /v1/payments/charges/card
func (h *ChargeHandler) CreateCardCharge(c *gin.Context) {
	var in struct {
		BookingID string `json:"booking_id" binding:"required"`
		CardToken string `json:"card_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.create(c, service.ChargeInput{BookingID: in.BookingID, CardToken: in.CardToken})
}

// POST /v1/payments/charges/source
func (h *ChargeHandler) CreateSourceCharge(c *gin.Context) {
	var in struct {
		BookingID string `json:"booking_id" binding:"required"`
		SourceID  string `json:"source_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.create(c, service.ChargeInput{BookingID: in.BookingID, SourceID: in.SourceID})
}

// GET /v1/payments/charges/:id
func (h *ChargeHandler) GetCharge(c *gin.Context) {
	ch, err := h.svc.GetCharge(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Warn("retrieve charge failed", "charge_id", c.Param("id"), "err", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "charge not found"})
		return
	}
	if owner, _ := ch.Metadata["user_id"].(string); owner != middlewares.Subject(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "charge not found"})
		return
	}
	c.JSON(http.StatusOK, toResp(ch))
}
