package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/padel-booking/pkg/auth"
	"github.com/you/padel-booking/pkg/middlewares"
)

func NewRouter(ch *ChargeHandler, wh *WebhookServer, v *auth.Verifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/webhooks/omise", wh.Handle)

	pay := r.Group("/v1/payments")
	pay.Use(middlewares.JWTAuth(v))
	{
		pay.POST("/charges/card", ch.CreateCardCharge)
		pay.POST("/charges/source", ch.CreateSourceCharge)
		pay.GET("/charges/:id", ch.GetCharge)
	}
	return r
}
