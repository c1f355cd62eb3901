// Package points управляет балльным счётом участников.
// models.go описывает структуры для счетов и журнала начислений.
package points

import "time"

// Account представляет балльный счёт участника на конкретном сервере.
// Счёт создаётся лениво — при первом начислении.
type Account struct {
	GuildID   string    `db:"guild_id"`   // ID сервера Discord
	UserID    string    `db:"user_id"`    // ID пользователя Discord
	Points    int64     `db:"points"`     // Текущий баланс (никогда не отрицательный)
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Entry — одна запись журнала начислений/списаний.
// Все движения баллов записываются сюда.
type Entry struct {
	ID          int64     `db:"id"`          // ID записи
	GuildID     string    `db:"guild_id"`    // ID сервера
	UserID      string    `db:"user_id"`     // ID пользователя
	Delta       int64     `db:"delta"`       // Изменение баланса (+начисление, -списание)
	Reason      string    `db:"reason"`      // Тип: 'report_approved', 'voice_hours', 'shop_redeem'
	Description string    `db:"description"` // Описание для отображения
	CreatedAt   time.Time `db:"created_at"`  // Время операции
}

// Reasons — допустимые типы записей журнала
const (
	ReasonReportApproved = "report_approved" // Одобренная заявка-отчёт
	ReasonVoiceHours     = "voice_hours"     // Полные часы в войсе
	ReasonShopRedeem     = "shop_redeem"     // Покупка в магазине
)

// TopEntry — позиция таблицы лидеров.
type TopEntry struct {
	UserID string
	Points int64
}
