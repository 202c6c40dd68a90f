// Package notify отправляет служебные уведомления дежурным:
// осиротевший контент после неудачной компенсации, «мёртвые» начисления outbox,
// итоги недельного рейтинга.
package notify

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/config"
)

// Notifier доставляет текстовое уведомление.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// LogNotifier пишет уведомления в лог. Используется, когда Telegram не настроен.
type LogNotifier struct{}

// Notify пишет уведомление в лог.
func (LogNotifier) Notify(_ context.Context, text string) error {
	log.WithField("notify", "log").Warn(text)
	return nil
}

// New выбирает реализацию по конфигурации: Telegram, если задан токен, иначе лог.
func New(cfg *config.Config) (Notifier, error) {
	if cfg.TelegramBotToken == "" {
		log.Info("TELEGRAM_BOT_TOKEN не задан, уведомления пишутся в лог")
		return LogNotifier{}, nil
	}
	return NewTelegram(cfg.TelegramBotToken, cfg.TelegramOpsChatID)
}
