package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/padel-booking/pkg/auth"
	"github.com/you/padel-booking/pkg/config"
	"github.com/you/padel-booking/pkg/mq"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/payment-service/internal/booking"
	httpx "github.com/you/padel-booking/services/payment-service/internal/http"
	omisecli "github.com/you/padel-booking/services/payment-service/internal/omise"
	paysvc "github.com/you/padel-booking/services/payment-service/internal/service"
)

type Cfg struct {
	config.JWT
	config.Rabbit
	config.Telemetry

	HTTPAddr string `envconfig:"PAYMENT_HTTP_ADDR" default:":8081"`
	OmisePub string `envconfig:"OMISE_PUBLIC_KEY" required:"true"`
	OmiseSec string `envconfig:"OMISE_SECRET_KEY" required:"true"`
	// Flat service fee per booking, in minor units of FeeCurrency.
	Fee         int64  `envconfig:"SERVICE_FEE" default:"2500"`
	FeeCurrency string `envconfig:"SERVICE_FEE_CURRENCY" default:"thb"`

	BookingURL     string        `envconfig:"BOOKING_API_URL" default:"http://booking-service:8080"`
	BookingTimeout time.Duration `envconfig:"BOOKING_API_TIMEOUT" default:"5s"`
}

var log = obs.NewLogger("payment-service")

func must[T any](v T, err error) T {
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	return v
}

func main() {
	var cfg Cfg
	must(0, config.Load(&cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := must(obs.InitTracer(ctx, "payment-service", cfg.OTLPEndpoint, cfg.Env))
	defer func() { _ = shutdownTracer(context.Background()) }()

	omc := must(omisecli.NewOmiseClient(cfg.OmisePub, cfg.OmiseSec))

	pub := must(mq.NewPublisher(cfg.Rabbit.URL, cfg.PaymentExchange))
	defer pub.Close()

	svc := paysvc.NewPaymentSvc(omc, pub, cfg.Fee, cfg.FeeCurrency, log)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpx.NewRouter(
			httpx.NewChargeHandler(svc, booking.NewClient(cfg.BookingURL, cfg.BookingTimeout), log),
			httpx.NewWebhookServer(omc, svc, log),
			auth.NewVerifier(cfg.Secret),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("stopped")
}
