// Package leaderboard хранит еженедельные снимки рейтинга.
// Снимок неизменяем: строки только добавляются, по одной на пользователя за период.
package leaderboard

import "time"

// Entry — строка снимка.
type Entry struct {
	Period  string    `json:"period" db:"period"` // ISO-неделя, например "2026-W42"
	Rank    int       `json:"rank" db:"rank"`
	UserID  int64     `json:"userId" db:"user_id"`
	Balance int64     `json:"balance" db:"balance"`
	TakenAt time.Time `json:"takenAt" db:"taken_at"`
}

// Standing — место пользователя в живом рейтинге, вход для снимка.
type Standing struct {
	UserID  int64
	Balance int64
}
