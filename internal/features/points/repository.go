// Package points — repository.go выполняет все операции с таблицами accounts и point_log.
// Все денежные операции выполняются в транзакциях БД для целостности данных.
package points

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-points-bot/internal/common"
)

// Repository предоставляет методы для работы со счетами и журналом.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий баллов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Credit начисляет баллы на счёт пользователя.
// Счёт создаётся автоматически при первом начислении.
// Обновление баланса и запись в журнал атомарны (одна транзакция БД).
//
// Параметры:
//   - guildID, userID: кому начислить
//   - amount: сколько (положительное число)
//   - reason: тип записи журнала (report_approved, voice_hours, ...)
//   - description: описание для истории начислений
func (r *Repository) Credit(ctx context.Context, guildID, userID string, amount int64, reason, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := CreditTx(ctx, tx, guildID, userID, amount, reason, description); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CreditTx выполняет начисление внутри уже открытой транзакции.
// Используется также из reports (одобрение заявки), voice (часы в войсе)
// и reset (принудительное закрытие сессий) — их мутации должны попадать
// в ту же транзакцию, что и их собственные изменения.
func CreditTx(ctx context.Context, tx pgx.Tx, guildID, userID string, amount int64, reason, description string) error {
	// Создаём счёт при первом начислении, иначе прибавляем
	_, err := tx.Exec(ctx, `
		INSERT INTO accounts (guild_id, user_id, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET points = accounts.points + EXCLUDED.points, updated_at = NOW()
	`, guildID, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка начисления: %w", err)
	}

	// Записываем операцию в журнал
	_, err = tx.Exec(ctx, `
		INSERT INTO point_log (guild_id, user_id, delta, reason, description)
		VALUES ($1, $2, $3, $4, $5)
	`, guildID, userID, amount, reason, description)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}

	return nil
}

// Debit списывает баллы со счёта пользователя.
// Проверка «хватает ли баллов» и само списание выполняются в одной
// транзакции с блокировкой строки (FOR UPDATE), поэтому два параллельных
// списания с одного счёта не могут пройти оба при нехватке баллов.
// При нехватке возвращает common.ErrInsufficientBalance, ничего не меняя.
func (r *Repository) Debit(ctx context.Context, guildID, userID string, amount int64, reason, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Проверяем баланс перед списанием (с блокировкой строки FOR UPDATE)
	var current int64
	err = tx.QueryRow(ctx, `
		SELECT points FROM accounts WHERE guild_id = $1 AND user_id = $2 FOR UPDATE
	`, guildID, userID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Счёта нет — значит баллов нет
			return common.ErrInsufficientBalance
		}
		return fmt.Errorf("ошибка получения баланса: %w", err)
	}

	if current < amount {
		return common.ErrInsufficientBalance
	}

	// Списываем
	_, err = tx.Exec(ctx, `
		UPDATE accounts
		SET points = points - $3, updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка списания: %w", err)
	}

	// Записываем операцию в журнал (с минусом)
	_, err = tx.Exec(ctx, `
		INSERT INTO point_log (guild_id, user_id, delta, reason, description)
		VALUES ($1, $2, $3, $4, $5)
	`, guildID, userID, -amount, reason, description)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал: %w", err)
	}

	return tx.Commit(ctx)
}

// Balance возвращает текущий баланс пользователя.
// Если счёт ещё не создан — 0 (это не ошибка).
func (r *Repository) Balance(ctx context.Context, guildID, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `
		SELECT points FROM accounts WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// Top возвращает n лучших счетов сервера по убыванию баллов.
// При равенстве баллов выше стоит счёт, созданный раньше.
func (r *Repository) Top(ctx context.Context, guildID string, n int) ([]*TopEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, points
		FROM accounts
		WHERE guild_id = $1
		ORDER BY points DESC, created_at ASC
		LIMIT $2
	`, guildID, n)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения топа: %w", err)
	}
	defer rows.Close()

	var top []*TopEntry
	for rows.Next() {
		var e TopEntry
		if err := rows.Scan(&e.UserID, &e.Points); err != nil {
			return nil, fmt.Errorf("ошибка сканирования топа: %w", err)
		}
		top = append(top, &e)
	}
	return top, nil
}

// History возвращает последние N записей журнала пользователя.
func (r *Repository) History(ctx context.Context, guildID, userID string, limit int) ([]*Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, guild_id, user_id, delta, reason, description, created_at
		FROM point_log
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, guildID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.ID, &e.GuildID, &e.UserID, &e.Delta, &e.Reason, &e.Description, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования журнала: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, nil
}
