// Package notify — telegram.go отправляет уведомления в чат дежурных.
// Вызовы Bot API идут через circuit breaker.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"serotonyl.ru/qa-forum/internal/metrics"
)

const (
	breakerFailures = 3
	breakerTimeout  = 30 * time.Second
	sendTimeout     = 10 * time.Second
)

// TelegramNotifier — Notifier поверх Telegram Bot API.
type TelegramNotifier struct {
	breaker *gobreaker.CircuitBreaker[struct{}]
	send    func(ctx context.Context, text string) error
}

// NewTelegram создаёт уведомитель для чата chatID.
func NewTelegram(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}

	return newBreakerNotifier(func(ctx context.Context, text string) error {
		_, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
		return err
	}), nil
}

func newBreakerNotifier(send func(ctx context.Context, text string) error) *TelegramNotifier {
	settings := gobreaker.Settings{
		Name:    "telegram-notify",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker уведомлений сменил состояние")
		},
	}

	return &TelegramNotifier{
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		send:    send,
	}
}

// Notify отправляет сообщение. Ошибка отправки считается и возвращается,
// вызывающий сам решает, критична ли она.
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := n.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, n.send(ctx, text)
	})
	if err != nil {
		metrics.NotifyFailures.Inc()
		return fmt.Errorf("ошибка отправки уведомления: %w", err)
	}
	return nil
}

// State возвращает состояние circuit breaker (closed, half-open, open).
func (n *TelegramNotifier) State() string {
	return n.breaker.State().String()
}
