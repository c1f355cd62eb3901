// Package reset реализует ежемесячное обнуление баллов и войс-времени.
// repository.go выполняет сброс одного сервера одной транзакцией БД:
// (1) принудительно закрывает открытые войс-сессии и доначисляет полные
// часы, (2) архивирует итоги месяца в таблицы истории, (3) удаляет счета
// и сессии. Серверы не влияют друг на друга.
package reset

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
	"discord-points-bot/internal/features/points"
	"discord-points-bot/internal/features/voice"
)

// Repository выполняет сброс напрямую по таблицам баллов и войса.
type Repository struct {
	db            *pgxpool.Pool
	pointsPerHour int64
}

// NewRepository создаёт репозиторий сброса.
func NewRepository(db *pgxpool.Pool, pointsPerHour int64) *Repository {
	return &Repository{db: db, pointsPerHour: pointsPerHour}
}

// Guilds возвращает все серверы, у которых есть счета или войс-сессии.
func (r *Repository) Guilds(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT guild_id FROM accounts
		UNION
		SELECT guild_id FROM voice_sessions
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки серверов: %w", err)
	}
	defer rows.Close()

	var guilds []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		guilds = append(guilds, g)
	}
	return guilds, nil
}

// ResetGuild сбрасывает один сервер. period — ключ закрываемого месяца
// ("2025-08"). Вся операция — одна транзакция: сбой в середине не
// оставляет счета полуобнулёнными.
//
// Открытые сессии сначала принудительно закрываются с доначислением
// полных часов — накопленное к моменту сброса время не пропадает.
// Участники, оставшиеся в войсе, начнут новый цикл со следующего
// события войс-состояния.
func (r *Repository) ResetGuild(ctx context.Context, guildID, period string, now time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Принудительно закрываем открытые сессии сервера
	rows, err := tx.Query(ctx, `
		SELECT user_id, accumulated_seconds, joined_at, hours_awarded
		FROM voice_sessions
		WHERE guild_id = $1 AND joined_at IS NOT NULL
		FOR UPDATE
	`, guildID)
	if err != nil {
		return fmt.Errorf("ошибка выборки открытых сессий: %w", err)
	}

	type closedSession struct {
		userID string
		acc    voice.Accrual
		hours  int64
	}
	var closed []closedSession

	for rows.Next() {
		var cs closedSession
		var joinedAt time.Time
		if err := rows.Scan(&cs.userID, &cs.acc.AccumulatedSeconds, &joinedAt, &cs.acc.HoursAwarded); err != nil {
			rows.Close()
			return fmt.Errorf("ошибка сканирования сессии: %w", err)
		}
		elapsed := int64(now.Sub(joinedAt).Seconds())
		cs.acc, cs.hours = cs.acc.Fold(elapsed)
		closed = append(closed, cs)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка обхода сессий: %w", err)
	}

	for _, cs := range closed {
		_, err = tx.Exec(ctx, `
			UPDATE voice_sessions
			SET accumulated_seconds = $3, hours_awarded = $4, joined_at = NULL
			WHERE guild_id = $1 AND user_id = $2
		`, guildID, cs.userID, cs.acc.AccumulatedSeconds, cs.acc.HoursAwarded)
		if err != nil {
			return fmt.Errorf("ошибка закрытия сессии: %w", err)
		}

		if cs.hours > 0 {
			amount := cs.hours * r.pointsPerHour
			description := fmt.Sprintf("Войс: +%d %s (закрытие месяца)", cs.hours, common.PluralizeHours(cs.hours))
			if err := points.CreditTx(ctx, tx, guildID, cs.userID, amount, points.ReasonVoiceHours, description); err != nil {
				return err
			}
		}
	}

	// 2. Архивируем итоги месяца
	_, err = tx.Exec(ctx, `
		INSERT INTO points_history (guild_id, user_id, period, points)
		SELECT guild_id, user_id, $2, points
		FROM accounts
		WHERE guild_id = $1 AND points > 0
	`, guildID, period)
	if err != nil {
		return fmt.Errorf("ошибка архивации баллов: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO voice_history (guild_id, user_id, period, seconds)
		SELECT guild_id, user_id, $2, accumulated_seconds
		FROM voice_sessions
		WHERE guild_id = $1 AND accumulated_seconds > 0
	`, guildID, period)
	if err != nil {
		return fmt.Errorf("ошибка архивации войс-времени: %w", err)
	}

	// 3. Чистим счета и сессии. Заявки и привязки каналов остаются —
	// это история и инфраструктура, а не накопления за месяц.
	if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("ошибка удаления счетов: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM voice_sessions WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("ошибка удаления сессий: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"period":   period,
	}).Info("Месяц закрыт, счета обнулены")
	return nil
}
