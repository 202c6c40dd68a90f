// Package streak — transition.go содержит автомат переходов стрика.
// Чистая функция без хранилища: сравнивает локальный день «сейчас»
// с локальным днём последней активности.
package streak

import (
	"time"

	"serotonyl.ru/qa-forum/internal/common"
)

// Transition — какой переход выполнил автомат.
type Transition string

const (
	TransitionStart     Transition = "start"     // первой активности не было
	TransitionSameDay   Transition = "same_day"  // день уже засчитан
	TransitionContinue  Transition = "continue"  // вчера была активность
	TransitionReset     Transition = "reset"     // пропуск дня и больше
	TransitionBackdated Transition = "backdated" // событие раньше последней активности
)

// Changes сообщает, меняет ли переход сохранённое состояние.
func (t Transition) Changes() bool {
	return t != TransitionSameDay
}

// Advance вычисляет следующее состояние стрика.
//
// Таблица переходов (today — локальный день now, lastDay — локальный день LastActivityAt):
//
//	lastDay нет           → current = 1
//	today == lastDay      → без изменений
//	today == lastDay + 1  → current += 1
//	today >  lastDay + 1  → current = 1
//	today <  lastDay      → current = 1, как при пропуске
//
// prev может быть nil (стрика ещё нет). Возвращённое состояние — копия.
func Advance(prev *State, userID int64, offsetMinutes int, now time.Time) (State, Transition) {
	var next State
	if prev != nil {
		next = *prev
	}
	next.UserID = userID

	today := common.LocalDay(now, offsetMinutes)
	transition := TransitionStart
	if prev != nil && prev.LastActivityAt != nil {
		lastDay := common.LocalDay(*prev.LastActivityAt, offsetMinutes)
		switch {
		case today.Equal(lastDay):
			transition = TransitionSameDay
		case today.Before(lastDay):
			transition = TransitionBackdated
		case today.Equal(lastDay.AddDate(0, 0, 1)):
			transition = TransitionContinue
		default:
			transition = TransitionReset
		}
	}

	switch transition {
	case TransitionSameDay:
		return next, transition
	case TransitionContinue:
		next.CurrentStreak++
	default:
		next.CurrentStreak = 1
	}

	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)
	at := now
	next.LastActivityAt = &at
	next.LastStreakUpdateAt = &at
	return next, transition
}
