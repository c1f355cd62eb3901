// Package voice — accrual.go содержит чистую арифметику конвертации
// войс-времени в баллы. Правило: баллы даются только за полные часы
// (floor), остаток секунд переносится дальше и не теряется. Сколько
// часов уже оплачено, хранится в HoursAwarded — повторная конвертация
// одного и того же времени невозможна.
package voice

// Accrual — накопленное состояние конвертации для одного счёта.
type Accrual struct {
	// AccumulatedSeconds — суммарное войс-время за текущий цикл (секунды)
	AccumulatedSeconds int64
	// HoursAwarded — сколько полных часов уже сконвертировано в баллы.
	// Растёт монотонно, никогда не уменьшается.
	HoursAwarded int64
}

// Fold добавляет прошедший интервал к накопленному времени и возвращает
// новое состояние плюс количество новых полных часов к оплате.
// Отрицательный интервал (рассинхрон часов) считается нулевым.
//
// Сколько бы раз время ни разбивалось на сессии, сумма выданных часов
// всегда равна floor(сумма секунд / 3600): две сессии по 1800 секунд
// дают один час, как и одна сессия в 3600 секунд.
func (a Accrual) Fold(elapsedSeconds int64) (Accrual, int64) {
	if elapsedSeconds > 0 {
		a.AccumulatedSeconds += elapsedSeconds
	}

	total := a.AccumulatedSeconds / 3600
	delta := total - a.HoursAwarded
	if delta <= 0 {
		// Часы могли быть оплачены вперёд живым начислением по открытой
		// сессии — тогда total догонит HoursAwarded позже. Вниз не двигаем.
		return a, 0
	}

	a.HoursAwarded = total
	return a, delta
}

// AwardLive начисляет часы по ещё открытой сессии, не закрывая её:
// прошедшее время openElapsedSeconds НЕ складывается в AccumulatedSeconds
// (это произойдёт при выходе из войса), но уже завершившиеся полные часы
// оплачиваются сразу. Возвращает новое состояние и часы к оплате.
func (a Accrual) AwardLive(openElapsedSeconds int64) (Accrual, int64) {
	if openElapsedSeconds < 0 {
		openElapsedSeconds = 0
	}

	total := (a.AccumulatedSeconds + openElapsedSeconds) / 3600
	delta := total - a.HoursAwarded
	if delta <= 0 {
		return a, 0
	}

	a.HoursAwarded = total
	return a, delta
}
