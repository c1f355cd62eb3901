// Package bot содержит главный модуль бота — подключение к шлюзу Discord,
// регистрацию slash-команд и маршрутизацию событий к обработчикам фич.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/bot/middleware"
	"discord-points-bot/internal/config"
	"discord-points-bot/internal/features/points"
	"discord-points-bot/internal/features/reports"
	"discord-points-bot/internal/features/shop"
	"discord-points-bot/internal/features/voice"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config

	rateLimiter *middleware.RateLimiter

	pointsHandler  *points.Handler
	voiceHandler   *voice.Handler
	reportsHandler *reports.Handler
	shopHandler    *shop.Handler

	voiceService *voice.Service

	// Контекст процесса: события шлюза приходят без контекста,
	// обработчики используют этот (отменяется на shutdown)
	ctx context.Context
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	session *discordgo.Session,
	cfg *config.Config,
	pointsHandler *points.Handler,
	voiceHandler *voice.Handler,
	reportsHandler *reports.Handler,
	shopHandler *shop.Handler,
	voiceService *voice.Service,
) *Bot {
	return &Bot{
		session:        session,
		cfg:            cfg,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		pointsHandler:  pointsHandler,
		voiceHandler:   voiceHandler,
		reportsHandler: reportsHandler,
		shopHandler:    shopHandler,
		voiceService:   voiceService,
	}
}

// Start подключается к шлюзу Discord и начинает принимать события.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	b.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onVoiceStateUpdate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("ошибка подключения к Discord: %w", err)
	}

	log.WithField("bot", b.session.State.User.Username).Info("Бот запущен и ожидает события...")
	return nil
}

// Stop закрывает соединение со шлюзом.
func (b *Bot) Stop() {
	b.rateLimiter.Close()
	if err := b.session.Close(); err != nil {
		log.WithError(err).Warn("Ошибка закрытия соединения с Discord")
	}
	log.Info("Бот остановлен")
}

// onReady регистрирует slash-команды и публикует панель отчётов.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	defer middleware.RecoverFromPanic()

	log.Infof("Авторизован как %s", r.User.Username)

	// Регистрируем команды: на конкретном сервере (мгновенно) или
	// глобально (Discord раскатывает до часа)
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, b.cfg.GuildID, commands()); err != nil {
		log.WithError(err).Error("Ошибка регистрации slash-команд")
	}

	// Публикуем панель «Создать отчёт» в настроенном канале каждого сервера
	for _, guild := range r.Guilds {
		b.publishPanel(guild.ID)
	}
}

// publishPanel находит канал отчётов по имени и публикует панель.
func (b *Bot) publishPanel(guildID string) {
	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		log.WithError(err).WithField("guild_id", guildID).Warn("Не удалось получить каналы сервера")
		return
	}

	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.Name == b.cfg.ReportChannelName {
			if err := b.reportsHandler.PublishPanel(ch.ID); err != nil {
				log.WithError(err).WithField("channel_id", ch.ID).Warn("Не удалось опубликовать панель")
			}
			return
		}
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"channel":  b.cfg.ReportChannelName,
	}).Debug("Канал для панели отчётов не найден")
}

// onMessageCreate обрабатывает новые сообщения: заявки "+N" в каналах отчётов.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer middleware.RecoverFromPanic()

	// Игнорируем ботов (включая себя) и личные сообщения
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	b.reportsHandler.HandleReportMessage(b.ctx, m)
}

// onInteractionCreate маршрутизирует slash-команды и нажатия кнопок.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer middleware.RecoverFromPanic()

	// Команды и кнопки работают только на сервере
	if i.Member == nil || i.Member.User == nil {
		return
	}

	if !b.rateLimiter.Allow(i.Member.User.ID) {
		log.WithField("user_id", i.Member.User.ID).Debug("rate limited")
		return
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.routeCommand(i)

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		switch {
		case customID == reports.CreateReportButtonID:
			b.reportsHandler.HandleCreateReport(b.ctx, i)
		case reports.IsDecisionButton(customID):
			b.reportsHandler.HandleDecisionButton(b.ctx, i, customID)
		}
	}
}

// routeCommand маршрутизирует slash-команду к нужному обработчику.
func (b *Bot) routeCommand(i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	log.WithFields(log.Fields{
		"cmd":     name,
		"user_id": i.Member.User.ID,
	}).Debug("routing command")

	switch name {
	case "my_points":
		b.pointsHandler.HandleMyPoints(b.ctx, i)
	case "leaderboard":
		b.pointsHandler.HandleLeaderboard(b.ctx, i)
	case "history":
		b.pointsHandler.HandleHistory(b.ctx, i)
	case "my_voice":
		b.voiceHandler.HandleMyVoice(b.ctx, i)
	case "voice_top":
		b.voiceHandler.HandleVoiceTop(b.ctx, i)
	case "shop":
		b.shopHandler.HandleShop(b.ctx, i)
	case "redeem":
		b.shopHandler.HandleRedeem(b.ctx, i)
	}
}

// onVoiceStateUpdate превращает изменения войс-состояния в переходы сессии.
// Отслеживаемое состояние: участник в голосовом канале и не заглушил
// себя сам. Решение принимается только по текущему состоянию — BeforeUpdate
// берётся из кэша и может отсутствовать, а пропущенный выход оставил бы
// открытую сессию с ежечасным начислением до конца месяца. Вход и выход
// идемпотентны, лишние вызовы безопасны.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	defer middleware.RecoverFromPanic()

	if v.GuildID == "" || v.UserID == "" {
		return
	}

	var err error
	if trackable(v.VoiceState) {
		err = b.voiceService.HandleJoin(b.ctx, v.GuildID, v.UserID, time.Now())
	} else {
		err = b.voiceService.HandleLeave(b.ctx, v.GuildID, v.UserID, time.Now())
	}
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id": v.GuildID,
			"user_id":  v.UserID,
		}).Error("Ошибка обработки войс-события")
	}
}

// trackable — находится ли участник в отслеживаемом войс-состоянии.
func trackable(vs *discordgo.VoiceState) bool {
	return vs != nil && vs.ChannelID != "" && !vs.SelfMute && !vs.SelfDeaf
}

// commands возвращает список slash-команд бота.
func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "my_points", Description: "Мои баллы"},
		{Name: "leaderboard", Description: "Топ баллов"},
		{Name: "history", Description: "История начислений"},
		{Name: "my_voice", Description: "Мой войс"},
		{Name: "voice_top", Description: "Топ войса"},
		{Name: "shop", Description: "Магазин наград"},
		{
			Name:        "redeem",
			Description: "Купить награду за баллы",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "item",
					Description: "ID товара из /shop",
					Required:    true,
				},
			},
		},
	}
}
