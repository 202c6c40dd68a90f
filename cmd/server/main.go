// Package main — точка входа сервиса.
// Команды: serve (по умолчанию) — HTTP-API с воркером outbox и планировщиком,
// reconcile — однократная сверка для внешнего cron, hash-admin-key — хеш ключа админки.
// serve поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	// Настраиваем логирование
	setupLogging()

	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Fatal("Команда завершилась с ошибкой")
	}
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
