// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: работа с календарными днями и смещениями часовых поясов,
// ключи периодов, русская плюрализация.
package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ContextUserID — ключ gin-контекста, под которым лежит ID пользователя.
const ContextUserID = "user_id"

// DayStart возвращает начало календарного дня (00:00:00 UTC) для момента t.
// Так нормализуется occurredOn записей журнала.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// LocalDay возвращает локальный календарный день момента instant
// при смещении offsetMinutes от UTC. Результат — полночь этого дня в UTC,
// поэтому дни можно сравнивать через Equal/Before.
//
// Пример:
//
//	LocalDay(2026-10-19 22:30 UTC, +180) → 2026-10-20
func LocalDay(instant time.Time, offsetMinutes int) time.Time {
	return DayStart(instant.Add(time.Duration(offsetMinutes) * time.Minute))
}

// ClampOffset ограничивает смещение часового пояса диапазоном [min, max].
func ClampOffset(offset, min, max int) int {
	if offset < min {
		return min
	}
	if offset > max {
		return max
	}
	return offset
}

// ParseOffset разбирает смещение, пришедшее от клиента.
// Всё, что не является целым числом, превращается в 0.
func ParseOffset(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}

// ISOWeekKey возвращает ключ ISO-недели вида "2026-W42".
// Используется как период снимков лидерборда.
func ISOWeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
//
// Правила:
//   - 1, 21, 31 → "день"
//   - 2-4, 22-24 → "дня"
//   - 5-20, 25-30 → "дней"
func PluralizeDays(n int) string {
	return pluralize(int64(n), "день", "дня", "дней")
}

// PluralizePoints возвращает правильную форму слова «балл» для числа n.
//
// Примеры:
//
//	PluralizePoints(1)  → "балл"
//	PluralizePoints(3)  → "балла"
//	PluralizePoints(11) → "баллов"
func PluralizePoints(n int64) string {
	return pluralize(n, "балл", "балла", "баллов")
}

func pluralize(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}
