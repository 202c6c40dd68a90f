// Package streak управляет ежедневными стриками (сериями) активности.
// models.go описывает состояние стрика и результат регистрации активности.
package streak

import "time"

// ActivityKind — вид активности, засчитываемой в стрик.
type ActivityKind string

const (
	ActivityLogin    ActivityKind = "login"
	ActivityQuestion ActivityKind = "postQuestion"
	ActivityAnswer   ActivityKind = "postAnswer"
)

// Valid сообщает, известен ли вид активности.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityLogin, ActivityQuestion, ActivityAnswer:
		return true
	}
	return false
}

// State — запись стрика пользователя.
// LongestStreak >= CurrentStreak всегда. Version растёт при каждой записи.
type State struct {
	UserID             int64      `db:"user_id" json:"userId"`
	CurrentStreak      int        `db:"current_streak" json:"currentStreak"`
	LongestStreak      int        `db:"longest_streak" json:"longestStreak"`
	LastActivityAt     *time.Time `db:"last_activity_at" json:"lastActivityAt"`
	LastStreakUpdateAt *time.Time `db:"last_streak_update_at" json:"lastStreakUpdateAt"`
	Version            int64      `db:"version" json:"-"`
	CreatedAt          time.Time  `db:"created_at" json:"-"`
	UpdatedAt          time.Time  `db:"updated_at" json:"-"`
}

// Result — итог RecordActivity.
// Updated=false означает, что день уже засчитан (или событие пришло задним числом).
type Result struct {
	Updated bool  `json:"updated"`
	State   State `json:"streak"`
}
