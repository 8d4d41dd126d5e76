package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/omise/omise-go"

	"github.com/you/padel-booking/pkg/obs"
)

// EventSource re-reads webhook events from the provider.
type EventSource interface {
	RetrieveEvent(id string) (*omise.Event, error)
}

// OutcomePublisher is implemented by *service.PaymentSvc.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, ch *omise.Charge)
}

type WebhookServer struct {
	src EventSource
	out OutcomePublisher
	log *slog.Logger
}

func NewWebhookServer(src EventSource, out OutcomePublisher, logger *slog.Logger) *WebhookServer {
	if logger == nil {
		logger = obs.Discard()
	}
	return &WebhookServer{src: src, out: out, log: logger.With("component", "webhook")}
}

type incomingEvent struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// Handle serves POST /webhooks/omise. Only the event id is taken from the
// body; an id Omise does not know is answered 401.
func (s *WebhookServer) Handle(c *gin.Context) {
	var inc incomingEvent
	if err := c.ShouldBindJSON(&inc); err != nil || inc.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ev, err := s.src.RetrieveEvent(inc.ID)
	if err != nil {
		s.log.Warn("retrieve event failed", "event_id", inc.ID, "err", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown event"})
		return
	}

	switch ev.Key {
	case "charge.complete":
		raw, err := json.Marshal(ev.Data)
		if err != nil {
			s.log.Error("marshal event data", "event_id", inc.ID, "err", err)
			break
		}
		var ch omise.Charge
		if err := json.Unmarshal(raw, &ch); err != nil {
			s.log.Error("decode charge", "event_id", inc.ID, "err", err)
			break
		}
		s.log.Info("charge completed", "charge_id", ch.ID, "status", string(ch.Status))
		s.out.PublishOutcome(c.Request.Context(), &ch)
	default:
		s.log.Debug("event ignored", "event_id", inc.ID, "key", ev.Key)
	}
	c.Status(http.StatusOK)
}
