package voice

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testPointsPerHour = 10

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
	repo := NewRepository(pool, testPointsPerHour)
	return repo, pool, func() {
		_, _ = pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		pool.Close()
	}
}

func createTestTables(ctx context.Context, pool *pgxpool.Pool) error {
	queries := []string{
		`CREATE TABLE accounts (guild_id text NOT NULL, user_id text NOT NULL, points bigint NOT NULL DEFAULT 0 CHECK (points >= 0), created_at timestamptz NOT NULL DEFAULT now(), updated_at timestamptz NOT NULL DEFAULT now(), PRIMARY KEY (guild_id, user_id))`,
		`CREATE TABLE point_log (id bigserial PRIMARY KEY, guild_id text NOT NULL, user_id text NOT NULL, delta bigint NOT NULL, reason varchar(64) NOT NULL, description text NOT NULL DEFAULT '', created_at timestamptz NOT NULL DEFAULT now())`,
		`CREATE TABLE voice_sessions (guild_id text NOT NULL, user_id text NOT NULL, accumulated_seconds bigint NOT NULL DEFAULT 0, joined_at timestamptz, hours_awarded bigint NOT NULL DEFAULT 0, PRIMARY KEY (guild_id, user_id))`,
	}
	for _, query := range queries {
		if _, err := pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func pointsOf(t *testing.T, pool *pgxpool.Pool, guildID, userID string) int64 {
	t.Helper()
	var balance int64
	err := pool.QueryRow(context.Background(),
		`SELECT COALESCE((SELECT points FROM accounts WHERE guild_id = $1 AND user_id = $2), 0)`,
		guildID, userID).Scan(&balance)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	return balance
}

func TestJoinLeaveAwardsFullHours(t *testing.T) {
	repo, pool, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour)

	if err := repo.Join(ctx, "g1", "u1", base); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Час и минута в войсе: один полный час к оплате
	hours, err := repo.Leave(ctx, "g1", "u1", base.Add(61*time.Minute))
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if hours != 1 {
		t.Fatalf("hours = %d, want 1", hours)
	}
	if got := pointsOf(t, pool, "g1", "u1"); got != testPointsPerHour {
		t.Fatalf("points = %d, want %d", got, testPointsPerHour)
	}

	session, err := repo.Get(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.AccumulatedSeconds != 61*60 {
		t.Fatalf("accumulated = %d, want %d", session.AccumulatedSeconds, 61*60)
	}
	if session.JoinedAt != nil {
		t.Fatalf("session must be closed after leave")
	}
}

func TestResidueCarriesAcrossSessions(t *testing.T) {
	repo, pool, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().Add(-3 * time.Hour)

	// Две сессии по 30 минут: после второй должен набежать час
	if err := repo.Join(ctx, "g1", "u1", base); err != nil {
		t.Fatalf("join: %v", err)
	}
	hours, err := repo.Leave(ctx, "g1", "u1", base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if hours != 0 {
		t.Fatalf("hours after first half = %d, want 0", hours)
	}

	if err := repo.Join(ctx, "g1", "u1", base.Add(time.Hour)); err != nil {
		t.Fatalf("join: %v", err)
	}
	hours, err = repo.Leave(ctx, "g1", "u1", base.Add(time.Hour+30*time.Minute))
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if hours != 1 {
		t.Fatalf("hours after second half = %d, want 1", hours)
	}
	if got := pointsOf(t, pool, "g1", "u1"); got != testPointsPerHour {
		t.Fatalf("points = %d, want %d", got, testPointsPerHour)
	}
}

func TestDuplicateJoinKeepsOriginalStart(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour)

	if err := repo.Join(ctx, "g1", "u1", base); err != nil {
		t.Fatalf("join: %v", err)
	}
	// Дубль-событие входа спустя полчаса не сдвигает начало сессии
	if err := repo.Join(ctx, "g1", "u1", base.Add(30*time.Minute)); err != nil {
		t.Fatalf("duplicate join: %v", err)
	}

	hours, err := repo.Leave(ctx, "g1", "u1", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if hours != 1 {
		t.Fatalf("hours = %d, want 1 (start must not move)", hours)
	}
}

func TestLeaveWithoutJoinIgnored(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	// Выход без входа — молча игнорируется
	hours, err := repo.Leave(ctx, "g1", "ghost", time.Now())
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if hours != 0 {
		t.Fatalf("hours = %d, want 0", hours)
	}

	// Повторный выход после закрытия сессии тоже no-op
	base := time.Now().Add(-time.Hour)
	if err := repo.Join(ctx, "g1", "u1", base); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := repo.Leave(ctx, "g1", "u1", base.Add(10*time.Minute)); err != nil {
		t.Fatalf("leave: %v", err)
	}
	hours, err = repo.Leave(ctx, "g1", "u1", base.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("duplicate leave: %v", err)
	}
	if hours != 0 {
		t.Fatalf("hours on duplicate leave = %d, want 0", hours)
	}

	session, err := repo.Get(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.AccumulatedSeconds != 10*60 {
		t.Fatalf("accumulated = %d, want %d", session.AccumulatedSeconds, 10*60)
	}
}

func TestAwardOpenThenLeaveNoDoublePay(t *testing.T) {
	repo, pool, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().Add(-3 * time.Hour)

	if err := repo.Join(ctx, "g1", "u1", base); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Живое начисление спустя полтора часа: один час оплачен
	if err := repo.AwardOpen(ctx, base.Add(90*time.Minute)); err != nil {
		t.Fatalf("award open: %v", err)
	}
	if got := pointsOf(t, pool, "g1", "u1"); got != testPointsPerHour {
		t.Fatalf("points after live award = %d, want %d", got, testPointsPerHour)
	}

	// Выход спустя два часа: доплачивается только второй час
	hours, err := repo.Leave(ctx, "g1", "u1", base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if hours != 1 {
		t.Fatalf("hours on leave = %d, want 1", hours)
	}
	if got := pointsOf(t, pool, "g1", "u1"); got != 2*testPointsPerHour {
		t.Fatalf("points = %d, want %d", got, 2*testPointsPerHour)
	}
}

func TestAwardOpenSkipsClosedSessions(t *testing.T) {
	repo, pool, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().Add(-3 * time.Hour)

	if err := repo.Join(ctx, "g1", "u1", base); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := repo.Leave(ctx, "g1", "u1", base.Add(30*time.Minute)); err != nil {
		t.Fatalf("leave: %v", err)
	}

	if err := repo.AwardOpen(ctx, base.Add(2*time.Hour)); err != nil {
		t.Fatalf("award open: %v", err)
	}
	if got := pointsOf(t, pool, "g1", "u1"); got != 0 {
		t.Fatalf("points = %d, want 0 (closed session must not accrue)", got)
	}
}

func TestTotalSecondsIncludesOpenSession(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().Add(-2 * time.Hour)

	if err := repo.Join(ctx, "g1", "u1", base); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := repo.Leave(ctx, "g1", "u1", base.Add(30*time.Minute)); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if err := repo.Join(ctx, "g1", "u1", base.Add(time.Hour)); err != nil {
		t.Fatalf("join: %v", err)
	}

	// 30 минут закрытых + 20 минут открытой сессии
	total, err := repo.TotalSeconds(ctx, "g1", "u1", base.Add(80*time.Minute))
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 50*60 {
		t.Fatalf("total = %d, want %d", total, 50*60)
	}
}

func TestVoiceTop(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().Add(-5 * time.Hour)

	sessions := []struct {
		userID  string
		minutes int
	}{
		{"u1", 30},
		{"u2", 90},
		{"u3", 60},
	}
	for _, s := range sessions {
		if err := repo.Join(ctx, "g1", s.userID, base); err != nil {
			t.Fatalf("join: %v", err)
		}
		if _, err := repo.Leave(ctx, "g1", s.userID, base.Add(time.Duration(s.minutes)*time.Minute)); err != nil {
			t.Fatalf("leave: %v", err)
		}
	}

	top, err := repo.Top(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top len = %d, want 2", len(top))
	}
	if top[0].UserID != "u2" || top[1].UserID != "u3" {
		t.Fatalf("unexpected top order: %+v", top)
	}
}
