// Package common — pluralize.go содержит форматирование сумм и чисел
// для вывода в CLI. Основная логика плюрализации — в helpers.go.
package common

import "fmt"

// FormatCoinsAmount создаёт строку вида "+100 монет" или "-5 000 монет".
// Знак «+» или «-» добавляется автоматически.
//
// Примеры:
//
//	FormatCoinsAmount(100)   → "+100 монет"
//	FormatCoinsAmount(-5000) → "-5 000 монет"
//	FormatCoinsAmount(1)     → "+1 монета"
func FormatCoinsAmount(amount int64) string {
	if amount >= 0 {
		return fmt.Sprintf("+%s %s", FormatNumber(amount), PluralizeCoins(amount))
	}
	return fmt.Sprintf("%s %s", FormatNumber(amount), PluralizeCoins(amount))
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(20000) → "20 000"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
