// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с временем.
package common

import (
	"fmt"
	"math"
	"time"
)

// PluralizePoints возвращает правильную форму слова «балл» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "балл" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "балла" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "баллов" (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	PluralizePoints(1)  → "балл"
//	PluralizePoints(3)  → "балла"
//	PluralizePoints(5)  → "баллов"
//	PluralizePoints(11) → "баллов"
//	PluralizePoints(21) → "балл"
func PluralizePoints(n int64) string {
	// Берём абсолютное значение для отрицательных чисел
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	// Единственное число: 1, 21, 31, 101 (но НЕ 11, 111)
	if lastDigit == 1 && lastTwoDigits != 11 {
		return "балл"
	}

	// Малое множественное: 2-4, 22-24, 32-34 (но НЕ 12-14)
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "балла"
	}

	// Большое множественное: 0, 5-20, 25-30, 100, ...
	return "баллов"
}

// FormatPoints форматирует количество баллов в читабельную строку.
// Пример: FormatPoints(150) → "150 баллов"
func FormatPoints(points int64) string {
	return fmt.Sprintf("%d %s", points, PluralizePoints(points))
}

// PluralizeHours возвращает правильную форму слова «час» для числа n.
func PluralizeHours(n int64) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "час"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "часа"
	}
	return "часов"
}

// FormatVoiceTime форматирует войс-время в строку вида "5 ч 23 мин".
// Для времени меньше часа — просто "23 мин".
func FormatVoiceTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours == 0 {
		return fmt.Sprintf("%d мин", minutes)
	}
	return fmt.Sprintf("%d ч %d мин", hours, minutes)
}

// MonthKey возвращает ключ периода вида "2025-08" для момента времени t.
// Используется при архивации итогов месяца.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// PrevMonthKey возвращает ключ предыдущего месяца относительно t.
// Сброс срабатывает 1-го числа в 00:00, поэтому закрывается прошлый месяц.
func PrevMonthKey(t time.Time) string {
	return MonthKey(t.AddDate(0, 0, -1))
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
// Используется для отображения дат в истории начислений.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
