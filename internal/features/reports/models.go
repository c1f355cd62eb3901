// Package reports реализует заявки-отчёты на начисление баллов:
// участник пишет "+N" со скриншотом в свой канал отчётов, модератор
// одобряет или отклоняет. models.go описывает структуры заявок.
package reports

import "time"

// Статусы заявки. Из pending заявка переходит ровно один раз.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Submission — заявка на начисление баллов.
type Submission struct {
	ID          int64      `db:"id"`           // ID заявки (автоинкремент)
	GuildID     string     `db:"guild_id"`     // ID сервера
	UserID      string     `db:"user_id"`      // Кто запросил баллы
	ChannelID   string     `db:"channel_id"`   // Канал, из которого пришла заявка
	DeltaPoints int64      `db:"delta_points"` // Сколько баллов запрошено (>0)
	Status      string     `db:"status"`       // pending / approved / rejected
	DecidedBy   *string    `db:"decided_by"`   // Модератор, принявший решение
	CreatedAt   time.Time  `db:"created_at"`
	DecidedAt   *time.Time `db:"decided_at"`
}

// Binding — привязка личного канала отчётов к участнику.
// На пару (guild_id, user_id) существует максимум одна привязка.
type Binding struct {
	GuildID   string    `db:"guild_id"`
	UserID    string    `db:"user_id"`
	ChannelID string    `db:"channel_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Decision — решение модератора по заявке.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)
