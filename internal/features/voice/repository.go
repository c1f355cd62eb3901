// Package voice — repository.go выполняет операции с таблицей voice_sessions.
// Закрытие сессии и начисление баллов за полные часы выполняются в одной
// транзакции БД: упавший процесс не может оставить время оплаченным дважды
// или потерянным.
package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
	"discord-points-bot/internal/features/points"
)

// Repository работает с таблицей voice_sessions.
type Repository struct {
	db            *pgxpool.Pool
	pointsPerHour int64
}

// NewRepository создаёт репозиторий войс-сессий.
func NewRepository(db *pgxpool.Pool, pointsPerHour int64) *Repository {
	return &Repository{db: db, pointsPerHour: pointsPerHour}
}

// Join открывает сессию: ставит joined_at, если он ещё не выставлен.
// Повторный вход при уже открытой сессии — no-op: joined_at НЕ
// перезаписывается, уже идущее время не теряется (дубль-события шлюза).
func (r *Repository) Join(ctx context.Context, guildID, userID string, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO voice_sessions (guild_id, user_id, accumulated_seconds, joined_at, hours_awarded)
		VALUES ($1, $2, 0, $3, 0)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET joined_at = COALESCE(voice_sessions.joined_at, EXCLUDED.joined_at)
	`, guildID, userID, now)
	if err != nil {
		return fmt.Errorf("ошибка открытия сессии: %w", err)
	}
	return nil
}

// Leave закрывает сессию: прошедшее время складывается в accumulated_seconds,
// новые полные часы конвертируются в баллы, joined_at очищается.
// Если открытой сессии нет (повторный выход) — no-op, состояние не меняется.
// Вся операция — одна транзакция с блокировкой строки.
//
// Возвращает количество начисленных часов (0, если час ещё не набрался).
func (r *Repository) Leave(ctx context.Context, guildID, userID string, now time.Time) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var acc Accrual
	var joinedAt *time.Time
	err = tx.QueryRow(ctx, `
		SELECT accumulated_seconds, joined_at, hours_awarded
		FROM voice_sessions
		WHERE guild_id = $1 AND user_id = $2
		FOR UPDATE
	`, guildID, userID).Scan(&acc.AccumulatedSeconds, &joinedAt, &acc.HoursAwarded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Сессии никогда не было — выход без входа, игнорируем
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка чтения сессии: %w", err)
	}

	if joinedAt == nil {
		// Сессия уже закрыта — дубль-событие выхода, игнорируем
		return 0, nil
	}

	elapsed := int64(now.Sub(*joinedAt).Seconds())
	acc, deltaHours := acc.Fold(elapsed)

	_, err = tx.Exec(ctx, `
		UPDATE voice_sessions
		SET accumulated_seconds = $3, hours_awarded = $4, joined_at = NULL
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID, acc.AccumulatedSeconds, acc.HoursAwarded)
	if err != nil {
		return 0, fmt.Errorf("ошибка закрытия сессии: %w", err)
	}

	// Новые полные часы конвертируем в баллы в той же транзакции
	if deltaHours > 0 {
		amount := deltaHours * r.pointsPerHour
		description := fmt.Sprintf("Войс: +%d %s", deltaHours, common.PluralizeHours(deltaHours))
		if err := points.CreditTx(ctx, tx, guildID, userID, amount, points.ReasonVoiceHours, description); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return deltaHours, nil
}

// AwardOpen начисляет часы по всем ещё открытым сессиям, не закрывая их
// («живое» начисление: участник сидит в войсе сутками, баллы капают
// каждый час, а не при выходе). Вызывается кроном раз в час.
func (r *Repository) AwardOpen(ctx context.Context, now time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT guild_id, user_id, accumulated_seconds, joined_at, hours_awarded
		FROM voice_sessions
		WHERE joined_at IS NOT NULL
		FOR UPDATE
	`)
	if err != nil {
		return fmt.Errorf("ошибка выборки открытых сессий: %w", err)
	}

	type award struct {
		guildID, userID string
		acc             Accrual
		hours           int64
	}
	var awards []award

	for rows.Next() {
		var a award
		var joinedAt time.Time
		if err := rows.Scan(&a.guildID, &a.userID, &a.acc.AccumulatedSeconds, &joinedAt, &a.acc.HoursAwarded); err != nil {
			rows.Close()
			return fmt.Errorf("ошибка сканирования сессии: %w", err)
		}

		openElapsed := int64(now.Sub(joinedAt).Seconds())
		a.acc, a.hours = a.acc.AwardLive(openElapsed)
		if a.hours > 0 {
			awards = append(awards, a)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ошибка обхода сессий: %w", err)
	}

	for _, a := range awards {
		_, err = tx.Exec(ctx, `
			UPDATE voice_sessions
			SET hours_awarded = $3
			WHERE guild_id = $1 AND user_id = $2
		`, a.guildID, a.userID, a.acc.HoursAwarded)
		if err != nil {
			return fmt.Errorf("ошибка обновления hours_awarded: %w", err)
		}

		amount := a.hours * r.pointsPerHour
		description := fmt.Sprintf("Войс: +%d %s", a.hours, common.PluralizeHours(a.hours))
		if err := points.CreditTx(ctx, tx, a.guildID, a.userID, amount, points.ReasonVoiceHours, description); err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"guild_id": a.guildID,
			"user_id":  a.userID,
			"hours":    a.hours,
		}).Debug("Живое начисление за войс")
	}

	return tx.Commit(ctx)
}

// Get возвращает сессию пользователя (nil, если записи ещё нет).
func (r *Repository) Get(ctx context.Context, guildID, userID string) (*Session, error) {
	var s Session
	err := r.db.QueryRow(ctx, `
		SELECT guild_id, user_id, accumulated_seconds, joined_at, hours_awarded
		FROM voice_sessions
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID).Scan(&s.GuildID, &s.UserID, &s.AccumulatedSeconds, &s.JoinedAt, &s.HoursAwarded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения сессии: %w", err)
	}
	return &s, nil
}

// TotalSeconds возвращает войс-время пользователя за текущий цикл,
// включая ещё идущую открытую сессию.
func (r *Repository) TotalSeconds(ctx context.Context, guildID, userID string, now time.Time) (int64, error) {
	s, err := r.Get(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	if s == nil {
		return 0, nil
	}

	total := s.AccumulatedSeconds
	if s.JoinedAt != nil {
		if open := int64(now.Sub(*s.JoinedAt).Seconds()); open > 0 {
			total += open
		}
	}
	return total, nil
}

// Top возвращает n лучших по накопленному войс-времени на сервере.
// Открытые сессии учитываются по уже зафиксированному времени.
func (r *Repository) Top(ctx context.Context, guildID string, n int) ([]*TopEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, accumulated_seconds
		FROM voice_sessions
		WHERE guild_id = $1
		ORDER BY accumulated_seconds DESC
		LIMIT $2
	`, guildID, n)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения топа войса: %w", err)
	}
	defer rows.Close()

	var top []*TopEntry
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&e.UserID, &e.Seconds); err != nil {
			return nil, fmt.Errorf("ошибка сканирования топа войса: %w", err)
		}
		top = append(top, &e)
	}
	return top, nil
}
