// Package common — pluralize.go содержит форматирование сумм баллов
// для уведомлений и ответов API.
package common

import "fmt"

// FormatPointsAmount создаёт строку вида "+3 балла" или "-2 балла".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatPointsAmount(3)  → "+3 балла"
//	FormatPointsAmount(-2) → "-2 балла"
//	FormatPointsAmount(1)  → "+1 балл"
func FormatPointsAmount(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%d %s", amount, PluralizePoints(amount))
	}
	return fmt.Sprintf("%d %s", amount, PluralizePoints(amount))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
