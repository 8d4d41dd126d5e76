package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/padel-booking/pkg/middlewares"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

// Ledger is implemented by *service.Ledger.
type Ledger interface {
	Reserve(ctx context.Context, slot domain.Slot, who domain.Identity) (*domain.Reservation, error)
	Confirm(ctx context.Context, id, userID string) error
	Get(ctx context.Context, id, userID string) (*domain.ReservationView, error)
	AdminConfirm(ctx context.Context, id string) error
	AdminCancel(ctx context.Context, id string) error
	ListOccupied(ctx context.Context, courtID, date string) ([]string, error)
	ListForUser(ctx context.Context, userID string) ([]domain.ReservationView, error)
	ListAll(ctx context.Context) ([]domain.ReservationView, error)
}

// Catalog is implemented by *service.CourtSvc.
type Catalog interface {
	List(ctx context.Context, city string) ([]domain.Court, error)
	Get(ctx context.Context, id string) (*domain.Court, error)
}

type Handler struct {
	ledger  Ledger
	catalog Catalog
	log     *slog.Logger
}

func NewHandler(ledger Ledger, catalog Catalog, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = obs.Discard()
	}
	return &Handler{ledger: ledger, catalog: catalog, log: logger.With("component", "http")}
}

func identity(c *gin.Context) domain.Identity {
	return domain.Identity{
		UserID: c.GetString(middlewares.KeySub),
		Email:  c.GetString(middlewares.KeyEmail),
		Name:   c.GetString(middlewares.KeyName),
		Role:   c.GetString(middlewares.KeyRole),
	}
}

// GET /v1/courts?city=
func (h *Handler) ListCourts(c *gin.Context) {
	courts, err := h.catalog.List(c.Request.Context(), c.Query("city"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, courts)
}

// GET /v1/courts/:id
func (h *Handler) GetCourt(c *gin.Context) {
	court, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, court)
}

// GET /v1/bookings?court_id=&date=
func (h *Handler) Occupied(c *gin.Context) {
	times, err := h.ledger.ListOccupied(c.Request.Context(), c.Query("court_id"), c.Query("date"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"court_id": c.Query("court_id"), "date": c.Query("date"), "times": times})
}

// GET /v1/my-bookings
func (h *Handler) MyBookings(c *gin.Context) {
	views, err := h.ledger.ListForUser(c.Request.Context(), middlewares.Subject(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// POST /v1/bookings
func (h *Handler) Reserve(c *gin.Context) {
	var in struct {
		CourtID string `json:"court_id" binding:"required"`
		Date    string `json:"date" binding:"required"`
		Time    string `json:"time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.ledger.Reserve(c.Request.Context(), domain.Slot{CourtID: in.CourtID, Date: in.Date, Time: in.Time}, identity(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": res.ID, "status": res.Status})
}

// GET /v1/bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	view, err := h.ledger.Get(c.Request.Context(), c.Param("id"), middlewares.Subject(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PUT /v1/bookings/:id/confirm
func (h *Handler) Confirm(c *gin.Context) {
	if err := h.ledger.Confirm(c.Request.Context(), c.Param("id"), middlewares.Subject(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": domain.StatusConfirmed})
}

// GET /v1/admin/bookings
func (h *Handler) AdminList(c *gin.Context) {
	views, err := h.ledger.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// PUT /v1/admin/bookings/:id/confirm
func (h *Handler) AdminConfirm(c *gin.Context) {
	if err := h.ledger.AdminConfirm(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": domain.StatusConfirmed})
}

// PUT /v1/admin/bookings/:id/cancel
func (h *Handler) AdminCancel(c *gin.Context) {
	if err := h.ledger.AdminCancel(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "cancelled": true})
}
