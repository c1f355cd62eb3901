// Package postgres — queries.go применяет SQL-миграции.
// Каждая миграция выполняется в своей транзакции и записывается в
// schema_migrations; уже применённые версии пропускаются, поэтому
// повторный запуск бота безопасен.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExecMigrationSQL применяет одну миграцию: проверка версии, выполнение
// SQL и запись версии — одна транзакция. Сбой на любом шаге откатывает
// всё, полуприменённых миграций не бывает.
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, version int, sql string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	applied, err := migrationApplied(ctx, tx, version)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", version,
	); err != nil {
		return fmt.Errorf("ошибка записи версии миграции %d: %w", version, err)
	}

	return tx.Commit(ctx)
}

// migrationApplied проверяет, записана ли версия в schema_migrations.
func migrationApplied(ctx context.Context, tx pgx.Tx, version int) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки миграции %d: %w", version, err)
	}
	return exists, nil
}
