// Package reports — repository.go выполняет операции с таблицами
// submissions и report_channels. Решение по заявке (смена статуса +
// начисление баллов) — одна транзакция БД: двойное одобрение или
// «баллы есть, а заявка всё ещё pending» невозможны.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-points-bot/internal/common"
	"discord-points-bot/internal/features/points"
)

// Repository работает с таблицами submissions и report_channels.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий заявок.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create вставляет новую заявку со статусом pending и возвращает её ID.
func (r *Repository) Create(ctx context.Context, guildID, userID, channelID string, deltaPoints int64) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO submissions (guild_id, user_id, channel_id, delta_points, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, guildID, userID, channelID, deltaPoints, StatusPending).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return id, nil
}

// GetByID возвращает заявку по ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Submission, error) {
	var s Submission
	err := r.db.QueryRow(ctx, `
		SELECT id, guild_id, user_id, channel_id, delta_points, status, decided_by, created_at, decided_at
		FROM submissions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.GuildID, &s.UserID, &s.ChannelID, &s.DeltaPoints, &s.Status, &s.DecidedBy, &s.CreatedAt, &s.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("ошибка чтения заявки: %w", err)
	}
	return &s, nil
}

// Decide переводит заявку из pending в approved/rejected и при одобрении
// начисляет баллы — всё в одной транзакции. Повторное решение возвращает
// common.ErrAlreadyDecided и ничего не меняет: статус проверяется под
// блокировкой строки, начисление происходит ровно один раз.
//
// Возвращает заявку в её итоговом состоянии.
func (r *Repository) Decide(ctx context.Context, id int64, decision Decision, actorID string, now time.Time) (*Submission, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var s Submission
	err = tx.QueryRow(ctx, `
		SELECT id, guild_id, user_id, channel_id, delta_points, status, decided_by, created_at, decided_at
		FROM submissions
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&s.ID, &s.GuildID, &s.UserID, &s.ChannelID, &s.DeltaPoints, &s.Status, &s.DecidedBy, &s.CreatedAt, &s.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("ошибка чтения заявки: %w", err)
	}

	if s.Status != StatusPending {
		return nil, common.ErrAlreadyDecided
	}

	newStatus := StatusRejected
	if decision == DecisionApprove {
		newStatus = StatusApproved
	}

	_, err = tx.Exec(ctx, `
		UPDATE submissions
		SET status = $2, decided_by = $3, decided_at = $4
		WHERE id = $1
	`, id, newStatus, actorID, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса: %w", err)
	}

	// Начисление — только при одобрении, в той же транзакции
	if newStatus == StatusApproved {
		description := fmt.Sprintf("Отчёт #%d одобрен", s.ID)
		if err := points.CreditTx(ctx, tx, s.GuildID, s.UserID, s.DeltaPoints, points.ReasonReportApproved, description); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Status = newStatus
	s.DecidedBy = &actorID
	s.DecidedAt = &now
	return &s, nil
}

// Bind привязывает канал отчётов к участнику.
// Привязка идемпотентна: повторная привязка того же канала — no-op,
// попытка привязать другой канал при живой привязке возвращает
// common.ErrChannelAlreadyBound.
func (r *Repository) Bind(ctx context.Context, guildID, userID, channelID string) error {
	var bound string
	err := r.db.QueryRow(ctx, `
		INSERT INTO report_channels (guild_id, user_id, channel_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET channel_id = report_channels.channel_id
		RETURNING channel_id
	`, guildID, userID, channelID).Scan(&bound)
	if err != nil {
		return fmt.Errorf("ошибка привязки канала: %w", err)
	}

	if bound != channelID {
		return common.ErrChannelAlreadyBound
	}
	return nil
}

// GetBinding возвращает привязку участника (nil, если канала ещё нет).
func (r *Repository) GetBinding(ctx context.Context, guildID, userID string) (*Binding, error) {
	var b Binding
	err := r.db.QueryRow(ctx, `
		SELECT guild_id, user_id, channel_id, created_at
		FROM report_channels
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID).Scan(&b.GuildID, &b.UserID, &b.ChannelID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения привязки: %w", err)
	}
	return &b, nil
}

// IsBoundTo проверяет, что канал является каналом отчётов участника.
func (r *Repository) IsBoundTo(ctx context.Context, guildID, userID, channelID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM report_channels
			WHERE guild_id = $1 AND user_id = $2 AND channel_id = $3
		)
	`, guildID, userID, channelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки привязки: %w", err)
	}
	return exists, nil
}
