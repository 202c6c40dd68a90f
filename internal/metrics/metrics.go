// Package metrics объявляет метрики Prometheus сервиса.
// Все метрики регистрируются в глобальном реестре через promauto
// и отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Журнал баллов
	LedgerEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_total",
			Help: "Записи, добавленные в журнал баллов",
		},
		[]string{"action", "direction"},
	)

	LedgerDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_duplicates_total",
			Help: "Отклонённые дубликаты (ежедневный вход, повтор по ключу идемпотентности)",
		},
		[]string{"action"},
	)

	// Стрики
	StreakTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_transitions_total",
			Help: "Переходы автомата стриков",
		},
		[]string{"transition"},
	)

	StreakConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streak_version_conflicts_total",
			Help: "Повторы записи стрика из-за несовпадения версии",
		},
	)

	// Саги
	SagaCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_compensations_total",
			Help: "Компенсирующие удаления контента после сбоя стрика или outbox",
		},
		[]string{"kind", "result"},
	)

	// Outbox начислений
	OutboxProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "point_outbox_processed_total",
			Help: "Обработанные элементы outbox по итогу",
		},
		[]string{"result"},
	)

	OutboxEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "point_outbox_enqueued_total",
			Help: "Начисления, поставленные в outbox",
		},
	)

	// Сверка
	StreaksReset = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_streaks_reset_total",
			Help: "Обнулённые стрики неактивных пользователей",
		},
	)

	LeaderboardRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leaderboard_snapshot_rows_total",
			Help: "Строки, записанные в снимки лидерборда",
		},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Запуски фоновых задач",
		},
		[]string{"job", "result"},
	)

	// Уведомления
	NotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_failures_total",
			Help: "Неотправленные уведомления дежурным",
		},
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
