// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт хранилища (PostgreSQL или память), сервисы,
// координатор, воркер outbox, сверку и HTTP-роутер.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/qa-forum/internal/config"
	"serotonyl.ru/qa-forum/internal/db/postgres"
	"serotonyl.ru/qa-forum/internal/features/admin"
	"serotonyl.ru/qa-forum/internal/features/content"
	"serotonyl.ru/qa-forum/internal/features/economy"
	"serotonyl.ru/qa-forum/internal/features/gamification"
	"serotonyl.ru/qa-forum/internal/features/leaderboard"
	"serotonyl.ru/qa-forum/internal/features/streak"
	"serotonyl.ru/qa-forum/internal/features/votes"
	"serotonyl.ru/qa-forum/internal/jobs"
	"serotonyl.ru/qa-forum/internal/notify"
	"serotonyl.ru/qa-forum/internal/server"
)

// App содержит все компоненты приложения.
type App struct {
	cfg *config.Config

	DB          *pgxpool.Pool // nil при STORAGE_DRIVER=memory
	Coordinator *gamification.Coordinator
	Worker      *gamification.OutboxWorker
	Reconciler  *gamification.Reconciler
	Scheduler   *jobs.Scheduler
	Handler     http.Handler

	limiter *server.RateLimiter
}

// stores — реализации хранилищ одного драйвера.
type stores struct {
	economy     economy.Store
	streaks     streak.Store
	content     content.Store
	votes       votes.Store
	leaderboard leaderboard.Store
	outbox      gamification.OutboxStore
	runs        jobs.RunStore
	attempts    admin.AttemptStore
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		economy:     economy.NewRepository(pool),
		streaks:     streak.NewRepository(pool),
		content:     content.NewRepository(pool),
		votes:       votes.NewRepository(pool),
		leaderboard: leaderboard.NewRepository(pool),
		outbox:      gamification.NewOutboxRepository(pool),
		runs:        jobs.NewRunRepository(pool),
		attempts:    admin.NewRepository(pool),
	}
}

func memoryStores() stores {
	return stores{
		economy:     economy.NewMemoryRepository(),
		streaks:     streak.NewMemoryRepository(),
		content:     content.NewMemoryRepository(),
		votes:       votes.NewMemoryRepository(),
		leaderboard: leaderboard.NewMemoryRepository(),
		outbox:      gamification.NewMemoryOutbox(),
		runs:        jobs.NewMemoryRunStore(),
		attempts:    admin.NewMemoryAttempts(),
	}
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	// === 1. Хранилища ===
	var st stores
	if cfg.UsesPostgres() {
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool, postgres.Migrations); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		a.DB = pool
		st = postgresStores(pool)
	} else {
		log.Warn("STORAGE_DRIVER=memory: данные живут до перезапуска процесса")
		st = memoryStores()
	}

	// === 2. Уведомления ===
	notifier, err := notify.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка создания уведомлений: %w", err)
	}

	// === 3. Сервисы ===
	ledger := economy.NewLedger(st.economy)
	balances := economy.NewBalanceStore(st.economy)
	tracker := streak.NewTracker(st.streaks, cfg)
	contentService := content.NewService(st.content)
	voteService := votes.NewService(st.votes)
	snapshots := leaderboard.NewService(st.leaderboard)
	adminService := admin.NewService(st.attempts, ledger, cfg.AdminKeyHash)

	// === 4. Координатор, воркер, сверка ===
	a.Worker = gamification.NewOutboxWorker(st.outbox, ledger, notifier, cfg)
	a.Coordinator = gamification.NewCoordinator(gamification.Dependencies{
		Content:  contentService,
		Streaks:  tracker,
		Ledger:   ledger,
		Balances: balances,
		Votes:    voteService,
		Outbox:   st.outbox,
		Notifier: notifier,
		Wake:     a.Worker.Kick,
	}, cfg)
	a.Reconciler = gamification.NewReconciler(tracker, balances, snapshots, st.runs, notifier, cfg)
	a.Scheduler = jobs.NewScheduler(a.Reconciler, cfg)

	// === 5. HTTP ===
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	a.limiter = server.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	deps := server.Dependencies{
		Gamification: gamification.NewHandler(a.Coordinator),
		Economy:      economy.NewHandler(ledger, balances, cfg.LeaderboardSize),
		Streak:       streak.NewHandler(tracker),
		Leaderboard:  leaderboard.NewHandler(snapshots),
		Content:      content.NewHandler(contentService, voteService),
		Limiter:      a.limiter,
		AllowOrigins: cfg.CORSAllowOrigins,
	}
	if adminService.Enabled() {
		deps.Admin = admin.NewHandler(adminService)
	}
	if a.DB != nil {
		deps.Ping = a.DB.Ping
	}
	a.Handler = server.NewRouter(deps)

	return a, nil
}

// Run запускает воркер outbox, планировщик (если включён) и HTTP-сервер.
// Блокирует до отмены ctx, затем корректно останавливает всё.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Worker.Run(ctx)
	}()

	if a.cfg.SchedulerEnabled {
		if err := a.Scheduler.Start(ctx); err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("ошибка запуска планировщика: %w", err)
		}
		defer a.Scheduler.Stop()
	} else {
		log.Info("Планировщик выключен, сверку запускает внешний cron")
	}

	srv := &http.Server{
		Addr:    a.cfg.HTTPAddress,
		Handler: a.Handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP-сервер запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("ошибка HTTP-сервера: %w", err)
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTPShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP-сервер остановлен некорректно")
	}

	cancel()
	wg.Wait()
	log.Info("Сервис остановлен")
	return runErr
}

// Close освобождает ресурсы: пул БД и фоновую очистку rate limiter.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
