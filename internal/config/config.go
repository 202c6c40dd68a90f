// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

// Драйверы хранилища
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"forum"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"qa_forum"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// postgres — боевой режим, memory — всё в памяти процесса (локальная разработка)
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	InstanceID    string `envconfig:"INSTANCE_ID" default:"qa-forum"`

	// --- HTTP ---
	HTTPAddress         string        `envconfig:"HTTP_ADDRESS" default:":8080"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSAllowOriginsRaw string        `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	CORSAllowOrigins    []string      `envconfig:"-"` // заполним вручную

	// --- Points (StarDust) ---
	PointsQuestion   int64 `envconfig:"POINTS_QUESTION" default:"2"`
	PointsAnswer     int64 `envconfig:"POINTS_ANSWER" default:"3"`
	PointsUpvote     int64 `envconfig:"POINTS_UPVOTE" default:"1"`
	PointsDailyLogin int64 `envconfig:"POINTS_DAILY_LOGIN" default:"1"`

	// --- Streak ---
	// Смещение часового пояса приходит от клиента, поэтому зажимаем его в реальный диапазон UTC-12..UTC+14
	StreakMinOffsetMinutes int `envconfig:"STREAK_MIN_OFFSET_MINUTES" default:"-720"`
	StreakMaxOffsetMinutes int `envconfig:"STREAK_MAX_OFFSET_MINUTES" default:"840"`
	StreakMaxRetries       int `envconfig:"STREAK_MAX_RETRIES" default:"3"`

	// --- Outbox ---
	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	OutboxMaxAttempts  int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"5"`
	OutboxRetryDelay   time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"30s"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxLease        time.Duration `envconfig:"OUTBOX_LEASE" default:"1m"`

	// --- Scheduler ---
	// false — внутренний cron выключен, сверку запускает внешний планировщик командой reconcile
	SchedulerEnabled         bool   `envconfig:"SCHEDULER_ENABLED" default:"true"`
	ScheduleStreakReset      string `envconfig:"SCHEDULE_STREAK_RESET" default:"5 0 * * *"`
	ScheduleLeaderboard      string `envconfig:"SCHEDULE_LEADERBOARD" default:"0 0 * * 1"`
	LeaderboardSize          int    `envconfig:"LEADERBOARD_SIZE" default:"100"`
	LeaderboardNotifyTopSize int    `envconfig:"LEADERBOARD_NOTIFY_TOP" default:"3"`

	// --- Admin ---
	// Пустой хеш отключает /admin
	AdminKeyHash string `envconfig:"ADMIN_KEY_HASH"`

	// --- Telegram (уведомления для дежурных) ---
	TelegramBotToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramOpsChatID int64  `envconfig:"TELEGRAM_OPS_CHAT_ID"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// UsesPostgres сообщает, выбран ли драйвер PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.StorageDriver == StorageDriverPostgres
}

// Validate проверяет согласованность настроек после загрузки.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для STORAGE_DRIVER=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("неизвестный STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.PointsQuestion <= 0 || c.PointsAnswer <= 0 || c.PointsUpvote <= 0 || c.PointsDailyLogin <= 0 {
		return fmt.Errorf("POINTS_* должны быть > 0")
	}
	if c.StreakMinOffsetMinutes > c.StreakMaxOffsetMinutes {
		return fmt.Errorf("STREAK_MIN_OFFSET_MINUTES больше STREAK_MAX_OFFSET_MINUTES")
	}
	if c.StreakMaxRetries <= 0 {
		return fmt.Errorf("STREAK_MAX_RETRIES должен быть > 0")
	}
	if c.OutboxBatchSize <= 0 || c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE и OUTBOX_MAX_ATTEMPTS должны быть > 0")
	}
	if c.OutboxPollInterval <= 0 || c.OutboxLease <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL и OUTBOX_LEASE должны быть > 0")
	}
	if c.LeaderboardSize <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE должен быть > 0")
	}
	if _, err := cron.ParseStandard(c.ScheduleStreakReset); err != nil {
		return fmt.Errorf("SCHEDULE_STREAK_RESET: %w", err)
	}
	if _, err := cron.ParseStandard(c.ScheduleLeaderboard); err != nil {
		return fmt.Errorf("SCHEDULE_LEADERBOARD: %w", err)
	}
	if c.TelegramBotToken != "" && c.TelegramOpsChatID == 0 {
		return fmt.Errorf("TELEGRAM_OPS_CHAT_ID не задан при заданном TELEGRAM_BOT_TOKEN")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS и RATE_LIMIT_WINDOW должны быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	cfg.CORSAllowOrigins = parseCSV(cfg.CORSAllowOriginsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
