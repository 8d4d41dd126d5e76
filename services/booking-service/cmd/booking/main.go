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
	"github.com/you/padel-booking/pkg/clock"
	"github.com/you/padel-booking/pkg/db"
	"github.com/you/padel-booking/pkg/events"
	"github.com/you/padel-booking/pkg/mq"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/booking-service/internal/app"
	"github.com/you/padel-booking/services/booking-service/internal/cache"
	cons "github.com/you/padel-booking/services/booking-service/internal/consumer"
	"github.com/you/padel-booking/services/booking-service/internal/service"
	httpx "github.com/you/padel-booking/services/booking-service/internal/transport/http"
)

var log = obs.NewLogger("booking-service")

func must[T any](v T, err error) T {
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	return v
}

func main() {
	cfg := must(app.LoadConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer := must(obs.InitTracer(ctx, "booking-service", cfg.OTLPEndpoint, cfg.Env))
	defer func() { _ = shutdownTracer(context.Background()) }()

	// DB
	gdb := must(db.Open(cfg.DSN))
	defer func() { _ = db.Close(gdb) }()

	// Publisher for booking.* events
	bookingPub := must(mq.NewPublisher(cfg.Rabbit.URL, cfg.BookingExchange))
	defer bookingPub.Close()

	var courtCache service.CourtCache
	if cfg.Redis.Enabled() {
		rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.CourtTTL)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, court cache disabled", "addr", cfg.Redis.Addr, "err", err)
			_ = rc.Close()
		} else {
			defer rc.Close()
			courtCache = rc
		}
	}

	a := app.New(gdb, cfg, clock.Real(), bookingPub, courtCache, log)
	must(0, a.Store.Migrate())
	if cfg.SeedCourts {
		if n := must(a.Courts.SeedDefaults(ctx)); n > 0 {
			log.Info("seeded default courts", "count", n)
		}
	}

	// Consumer for payment.paid
	paymentCons := must(mq.NewConsumer(mq.ConsumerConfig{
		URL:       cfg.Rabbit.URL,
		Exchanges: []string{cfg.PaymentExchange},
		Queue:     cfg.PaymentQueue,
		Keys:      []string{events.RKPaymentPaid},
		DLX:       cfg.PaymentDLX,
		Name:      "booking-service",
	}))
	defer paymentCons.Close()
	pc := cons.NewPaymentConsumer(a.Ledger, paymentCons, log)
	go func() {
		if err := pc.Run(ctx); err != nil {
			log.Error("payment consumer stopped", "err", err)
			stop()
		}
	}()
	log.Info("consumer started", "queue", cfg.PaymentQueue, "key", events.RKPaymentPaid)

	if cfg.SweepInterval > 0 {
		go a.Sweeper.Run(ctx, cfg.SweepInterval)
		log.Info("background sweep enabled", "interval", cfg.SweepInterval)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(httpx.NewHandler(a.Ledger, a.Courts, log), auth.NewVerifier(cfg.Secret)),
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
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	log.Info("stopped")
}
