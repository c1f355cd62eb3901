// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики
// и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/bot"
	"discord-points-bot/internal/config"
	"discord-points-bot/internal/db/postgres"
	"discord-points-bot/internal/features/moderation"
	"discord-points-bot/internal/features/points"
	"discord-points-bot/internal/features/reports"
	"discord-points-bot/internal/features/reset"
	"discord-points-bot/internal/features/shop"
	"discord-points-bot/internal/features/voice"
	"discord-points-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Session   *discordgo.Session
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Discord-сессия ===
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Discord-сессии: %w", err)
	}

	// === 3. Репозитории ===
	pointsRepo := points.NewRepository(pool)
	voiceRepo := voice.NewRepository(pool, cfg.VoicePointsPerHour)
	reportsRepo := reports.NewRepository(pool)
	resetRepo := reset.NewRepository(pool, cfg.VoicePointsPerHour)

	// === 4. Сервисы ===
	authorizer := moderation.NewRoleAuthorizer(cfg.ModeratorRoles)
	pointsService := points.NewService(pointsRepo, cfg)
	voiceService := voice.NewService(voiceRepo)
	reportsService := reports.NewService(reportsRepo, authorizer, cfg)
	catalog := shop.NewCatalog(cfg.ShopItems)
	shopService := shop.NewService(catalog, pointsService)
	resetService := reset.NewService(resetRepo)

	// === 5. Обработчики ===
	pointsHandler := points.NewHandler(pointsService, session)
	voiceHandler := voice.NewHandler(voiceService, session)
	reportsHandler := reports.NewHandler(reportsService, session)
	shopHandler := shop.NewHandler(shopService, session)

	// === 6. Собираем бота ===
	b := bot.New(
		session, cfg,
		pointsHandler,
		voiceHandler,
		reportsHandler,
		shopHandler,
		voiceService,
	)

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(cfg, resetService, voiceService)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		Session:   session,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Accounts},
		{2, migration002PointLog},
		{3, migration003VoiceSessions},
		{4, migration004Submissions},
		{5, migration005ReportChannels},
		{6, migration006History},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Accounts = `
CREATE TABLE IF NOT EXISTS accounts (
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (guild_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_accounts_guild_points ON accounts(guild_id, points DESC);
`

var migration002PointLog = `
CREATE TABLE IF NOT EXISTS point_log (
    id BIGSERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    delta BIGINT NOT NULL,
    reason VARCHAR(64) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_point_log_user ON point_log(guild_id, user_id, created_at DESC);
`

var migration003VoiceSessions = `
CREATE TABLE IF NOT EXISTS voice_sessions (
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    accumulated_seconds BIGINT NOT NULL DEFAULT 0,
    joined_at TIMESTAMPTZ,
    hours_awarded BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (guild_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_voice_sessions_open ON voice_sessions(guild_id) WHERE joined_at IS NOT NULL;
`

var migration004Submissions = `
CREATE TABLE IF NOT EXISTS submissions (
    id BIGSERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    channel_id TEXT NOT NULL,
    delta_points BIGINT NOT NULL CHECK (delta_points > 0),
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    decided_by TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    decided_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(guild_id, status);
`

var migration005ReportChannels = `
CREATE TABLE IF NOT EXISTS report_channels (
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    channel_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (guild_id, user_id)
);
`

var migration006History = `
CREATE TABLE IF NOT EXISTS points_history (
    id BIGSERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    period VARCHAR(7) NOT NULL,
    points BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS voice_history (
    id BIGSERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    period VARCHAR(7) NOT NULL,
    seconds BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_points_history_period ON points_history(guild_id, period);
CREATE INDEX IF NOT EXISTS idx_voice_history_period ON voice_history(guild_id, period);
`
