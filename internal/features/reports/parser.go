// Package reports — parser.go распознаёт сообщения-заявки вида "+N".
package reports

import (
	"strconv"
	"strings"
)

// ParsePoints проверяет, является ли текст заявкой "+N", и возвращает N.
// Допускаются пробелы вокруг, текст после числа игнорируется:
// "+50", " +50 ", "+50 за рейд" — всё заявка на 50 баллов.
// Проверка диапазона выполняется выше, в сервисе.
func ParsePoints(text string) (int64, bool) {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "+") {
		return 0, false
	}

	cleaned = strings.TrimPrefix(cleaned, "+")
	// Берём первое «слово» — после числа может идти комментарий
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
