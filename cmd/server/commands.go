package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"serotonyl.ru/qa-forum/internal/app"
	"serotonyl.ru/qa-forum/internal/config"
	"serotonyl.ru/qa-forum/internal/features/admin"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "qa-forum",
		Short:         "Геймификация Q&A-форума: баллы, стрики, рейтинг",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newReconcileCommand(), newHashKeyCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-API, воркер outbox и планировщик",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func newReconcileCommand() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Однократно обнулить неактивные стрики и снять недельный рейтинг",
		Long: `Выполняет проход сверки и завершается. Нужен, когда встроенный
планировщик выключен (SCHEDULER_ENABLED=false) и сверку запускает внешний cron.

Пример:
  qa-forum reconcile
  qa-forum reconcile --at 2026-10-19T00:05:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = t.UTC()
			}
			return reconcile(cmd, now)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "момент сверки в RFC3339 (по умолчанию — сейчас)")
	return cmd
}

func newHashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-admin-key <ключ>",
		Short: "Сгенерировать Argon2id-хеш для ADMIN_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := admin.HashKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// loadConfig загружает конфигурацию и применяет уровень логирования.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}
	return cfg, nil
}

func serve(parent context.Context) error {
	log.Info("=== Сервис запускается ===")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	// Отмена по Ctrl+C или docker stop
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать приложение: %w", err)
	}
	defer application.Close()

	log.Info("=== Сервис готов к работе ===")
	return application.Run(ctx)
}

func reconcile(cmd *cobra.Command, now time.Time) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать приложение: %w", err)
	}
	defer application.Close()

	n, err := application.Reconciler.RunReconciliationPass(ctx, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Сверка выполнена, затронуто записей: %d\n", n)
	return nil
}
