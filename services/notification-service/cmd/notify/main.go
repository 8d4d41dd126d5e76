package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/you/padel-booking/pkg/config"
	"github.com/you/padel-booking/pkg/mq"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/notification-service/internal/notifier"
	"github.com/you/padel-booking/services/notification-service/internal/worker"
)

type Cfg struct {
	config.Rabbit

	Queue    string   `envconfig:"NOTIFY_QUEUE" default:"notification.q"`
	Bindings []string `envconfig:"NOTIFY_BINDINGS" default:"booking.*,payment.*"`
	DLX      string   `envconfig:"NOTIFY_DLX" default:"notification.dlx"`
	Prefetch int      `envconfig:"NOTIFY_PREFETCH" default:"16"`

	TelegramToken  string `envconfig:"TELEGRAM_TOKEN" default:""`
	TelegramChatID int64  `envconfig:"TELEGRAM_CHAT_ID" default:"0"`
}

func main() {
	log := obs.NewLogger("notification-service")

	var cfg Cfg
	if err := config.Load(&cfg); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n := notifier.Multi{notifier.NewConsole(log)}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notifier.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn("telegram disabled", "err", err)
		} else {
			n = append(n, tg)
		}
	}

	ccfg := mq.ConsumerConfig{
		URL:       cfg.Rabbit.URL,
		Exchanges: []string{cfg.BookingExchange, cfg.PaymentExchange},
		Queue:     cfg.Queue,
		Keys:      cfg.Bindings,
		Prefetch:  cfg.Prefetch,
		DLX:       cfg.DLX,
		Name:      "notification-service",
	}
	var cons *mq.Consumer
	for {
		var err error
		if cons, err = mq.NewConsumer(ccfg); err == nil {
			break
		}
		log.Warn("connect failed, retrying", "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
	defer cons.Close()

	log.Info("started", "queue", cfg.Queue, "exchanges", ccfg.Exchanges, "bindings", cfg.Bindings, "notifiers", len(n))
	if err := worker.New(n, log).Run(ctx, cons); err != nil {
		log.Error("worker stopped", "err", err)
	}
}
