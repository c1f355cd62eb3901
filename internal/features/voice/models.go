// Package voice отслеживает присутствие участников в голосовых каналах
// и конвертирует полные часы войс-времени в баллы.
// models.go описывает структуру сессии.
package voice

import "time"

// Session — войс-состояние одного участника на одном сервере.
// На пару (guild_id, user_id) существует максимум одна запись,
// и значит максимум одна открытая сессия.
type Session struct {
	GuildID string `db:"guild_id"` // ID сервера Discord
	UserID  string `db:"user_id"`  // ID пользователя Discord
	// AccumulatedSeconds — войс-время текущего цикла, ещё не «сгоревшее»
	// при сбросе; включает остаток неполного часа
	AccumulatedSeconds int64 `db:"accumulated_seconds"`
	// JoinedAt — момент входа в войс; nil, когда участник не в войсе
	JoinedAt *time.Time `db:"joined_at"`
	// HoursAwarded — полные часы, уже сконвертированные в баллы за цикл
	HoursAwarded int64 `db:"hours_awarded"`
}

// TopEntry — позиция топа по войс-времени.
type TopEntry struct {
	UserID  string
	Seconds int64
}
