package notifier

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/you/padel-booking/pkg/obs"
)

// Notifier delivers one human-readable message.
type Notifier interface {
	Notify(subject, message string) error
}

// ConsoleNotifier writes notifications to the service log.
type ConsoleNotifier struct {
	log *slog.Logger
}

func NewConsole(logger *slog.Logger) *ConsoleNotifier {
	if logger == nil {
		logger = obs.Discard()
	}
	return &ConsoleNotifier{log: logger}
}

func (c *ConsoleNotifier) Notify(subject, message string) error {
	c.log.Info("notify", "subject", subject, "message", message)
	return nil
}

// botSender is the part of *tgbotapi.BotAPI used here.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts notifications to one chat, usually the club's
// staff group.
type TelegramNotifier struct {
	bot    botSender
	chatID int64
}

func NewTelegram(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (t *TelegramNotifier) Notify(subject, message string) error {
	msg := tgbotapi.NewMessage(t.chatID, subject+"\n"+message)
	_, err := t.bot.Send(msg)
	return err
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(subject, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(subject, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HumanSlot renders a slot date and time for messages, e.g. "Sun 01 Jun 2025 18:30".
func HumanSlot(date, clock string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date + " " + clock
	}
	return d.Format("Mon 02 Jan 2006") + " " + clock
}
