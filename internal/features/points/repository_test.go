package points

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-points-bot/internal/common"
)

func setupTestRepo(t *testing.T) (*Repository, *pgxpool.Pool, func()) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_, err = pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema))
	if err != nil {
		pool.Close()
		t.Fatalf("create schema: %v", err)
	}
	if err := createTestTables(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("create tables: %v", err)
	}
	repo := NewRepository(pool)
	return repo, pool, func() {
		_, _ = pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		pool.Close()
	}
}

func createTestTables(ctx context.Context, pool *pgxpool.Pool) error {
	queries := []string{
		`CREATE TABLE accounts (guild_id text NOT NULL, user_id text NOT NULL, points bigint NOT NULL DEFAULT 0 CHECK (points >= 0), created_at timestamptz NOT NULL DEFAULT now(), updated_at timestamptz NOT NULL DEFAULT now(), PRIMARY KEY (guild_id, user_id))`,
		`CREATE TABLE point_log (id bigserial PRIMARY KEY, guild_id text NOT NULL, user_id text NOT NULL, delta bigint NOT NULL, reason varchar(64) NOT NULL, description text NOT NULL DEFAULT '', created_at timestamptz NOT NULL DEFAULT now())`,
	}
	for _, query := range queries {
		if _, err := pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func TestCreditCreatesAndAccumulates(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	if err := repo.Credit(ctx, "g1", "u1", 50, ReasonReportApproved, "Отчёт #1 одобрен"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := repo.Credit(ctx, "g1", "u1", 30, ReasonVoiceHours, "Войс: +3 часа"); err != nil {
		t.Fatalf("credit: %v", err)
	}

	balance, err := repo.Balance(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 80 {
		t.Fatalf("balance = %d, want 80", balance)
	}

	entries, err := repo.History(ctx, "g1", "u1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history len = %d, want 2", len(entries))
	}
}

func TestBalanceZeroForUnknownUser(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	balance, err := repo.Balance(context.Background(), "g1", "ghost")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestDebitInsufficientBalance(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	// Счёта нет вообще
	err := repo.Debit(ctx, "g1", "u1", 100, ReasonShopRedeem, "Покупка: VIP-роль")
	if !errors.Is(err, common.ErrInsufficientBalance) {
		t.Fatalf("debit from empty account: %v, want ErrInsufficientBalance", err)
	}

	// Счёт есть, но мало
	if err := repo.Credit(ctx, "g1", "u1", 50, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	err = repo.Debit(ctx, "g1", "u1", 100, ReasonShopRedeem, "Покупка: VIP-роль")
	if !errors.Is(err, common.ErrInsufficientBalance) {
		t.Fatalf("debit over balance: %v, want ErrInsufficientBalance", err)
	}

	// Баланс не изменился
	balance, _ := repo.Balance(ctx, "g1", "u1")
	if balance != 50 {
		t.Fatalf("balance = %d, want 50", balance)
	}
}

func TestDebitExactBalance(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	if err := repo.Credit(ctx, "g1", "u1", 300, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := repo.Debit(ctx, "g1", "u1", 300, ReasonShopRedeem, "Покупка: VIP-роль"); err != nil {
		t.Fatalf("debit: %v", err)
	}

	balance, _ := repo.Balance(ctx, "g1", "u1")
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestConcurrentDebitsNeverGoNegative(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	if err := repo.Credit(ctx, "g1", "u1", 500, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// 10 конкурентных списаний по 100: пройти могут максимум 5
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Debit(ctx, "g1", "u1", 100, ReasonShopRedeem, "Покупка: Nitro")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, common.ErrInsufficientBalance) {
			t.Fatalf("unexpected debit error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Fatalf("succeeded = %d, want 5", succeeded)
	}

	balance, _ := repo.Balance(ctx, "g1", "u1")
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestTopOrderAndGuildIsolation(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	if err := repo.Credit(ctx, "g1", "u1", 100, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := repo.Credit(ctx, "g1", "u2", 300, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := repo.Credit(ctx, "g1", "u3", 200, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	// Другой сервер не должен попадать в топ
	if err := repo.Credit(ctx, "g2", "stranger", 9999, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	top, err := repo.Top(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("top len = %d, want 3", len(top))
	}
	want := []string{"u2", "u3", "u1"}
	for i, entry := range top {
		if entry.UserID != want[i] {
			t.Fatalf("top[%d] = %s, want %s", i, entry.UserID, want[i])
		}
	}

	// Лимит соблюдается
	top, err = repo.Top(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top len = %d, want 2", len(top))
	}
}

func TestTopTieBreakByCreation(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	// При равных баллах выше тот, чей счёт создан раньше
	if err := repo.Credit(ctx, "g1", "first", 100, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := repo.Credit(ctx, "g1", "second", 100, ReasonReportApproved, ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	top, err := repo.Top(ctx, "g1", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "first" || top[1].UserID != "second" {
		t.Fatalf("unexpected tie-break order: %+v", top)
	}
}
