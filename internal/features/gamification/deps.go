// Package gamification связывает контент, стрики и баллы в согласованные операции:
// сагу создания контента, списание баллов при удалении, переключение голоса,
// отложенные начисления и периодическую сверку.
package gamification

import (
	"context"
	"time"

	"serotonyl.ru/qa-forum/internal/features/content"
	"serotonyl.ru/qa-forum/internal/features/economy"
	"serotonyl.ru/qa-forum/internal/features/leaderboard"
	"serotonyl.ru/qa-forum/internal/features/streak"
	"serotonyl.ru/qa-forum/internal/features/votes"
)

// ContentService — коллаборатор, владеющий вопросами и ответами.
type ContentService interface {
	CreateQuestion(ctx context.Context, in content.NewQuestion) (*content.Question, error)
	CreateAnswer(ctx context.Context, in content.NewAnswer) (*content.Answer, error)
	GetQuestion(ctx context.Context, id string) (*content.Question, error)
	GetAnswer(ctx context.Context, id string) (*content.Answer, error)
	DeleteQuestion(ctx context.Context, id string) error
	DeleteAnswer(ctx context.Context, id string) error
}

// StreakTracker ведёт стрики.
type StreakTracker interface {
	RecordActivity(ctx context.Context, userID int64, offsetMinutes int, now time.Time) (*streak.Result, error)
	Get(ctx context.Context, userID int64) (*streak.State, error)
	ResetInactive(ctx context.Context, before time.Time) (int, error)
}

// PointLedger — журнал баллов.
type PointLedger interface {
	Append(ctx context.Context, req economy.AppendRequest) (*economy.AppendResult, error)
	CreditDailyLogin(ctx context.Context, userID int64, points int64, now time.Time) (bool, error)
}

// BalanceReader читает балансы.
type BalanceReader interface {
	Read(ctx context.Context, userID int64) (int64, error)
	Top(ctx context.Context, limit int) ([]*economy.Balance, error)
}

// VoteToggler переключает голоса.
type VoteToggler interface {
	Toggle(ctx context.Context, contentID string, userID int64) (*votes.Result, error)
	Purge(ctx context.Context, contentID string) error
}

// SnapshotRecorder записывает снимки рейтинга.
type SnapshotRecorder interface {
	Record(ctx context.Context, period string, takenAt time.Time, standings []leaderboard.Standing) (int, error)
}
