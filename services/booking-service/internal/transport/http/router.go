package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/padel-booking/pkg/auth"
	"github.com/you/padel-booking/pkg/middlewares"
)

func NewRouter(h *Handler, v *auth.Verifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	v1 := r.Group("/v1")
	{
		v1.GET("/courts", h.ListCourts)
		v1.GET("/courts/:id", h.GetCourt)
		v1.GET("/bookings", h.Occupied)

		secured := v1.Group("")
		secured.Use(middlewares.JWTAuth(v))
		{
			secured.GET("/my-bookings", h.MyBookings)
			secured.POST("/bookings", h.Reserve)
			secured.GET("/bookings/:id", h.GetBooking)
			secured.PUT("/bookings/:id/confirm", h.Confirm)
		}

		admin := v1.Group("/admin")
		admin.Use(middlewares.JWTAuth(v), middlewares.RequireRole(auth.RoleAdmin))
		{
			admin.GET("/bookings", h.AdminList)
			admin.PUT("/bookings/:id/confirm", h.AdminConfirm)
			admin.PUT("/bookings/:id/cancel", h.AdminCancel)
		}
	}
	return r
}
