// Package points — handlers.go обрабатывает slash-команды:
// /my_points (баланс), /leaderboard (топ), /history (журнал).
package points

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
)

// Handler обрабатывает команды баллов.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт обработчик команд баллов.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// HandleMyPoints обрабатывает /my_points — показывает баланс (только автору).
func (h *Handler) HandleMyPoints(ctx context.Context, i *discordgo.InteractionCreate) {
	guildID := i.GuildID
	userID := i.Member.User.ID

	balance, err := h.service.Balance(ctx, guildID, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.respondEphemeral(i, "❌ Ошибка получения баланса")
		return
	}

	h.respondEphemeral(i, fmt.Sprintf("💰 Баллы: %s", common.FormatPoints(balance)))
}

// HandleLeaderboard обрабатывает /leaderboard — топ-10 сервера.
//
// Формат ответа:
//
//	🏆 Топ баллов:
//	1. <@id> — 150 баллов
//	2. <@id> — 90 баллов
func (h *Handler) HandleLeaderboard(ctx context.Context, i *discordgo.InteractionCreate) {
	top, err := h.service.Top(ctx, i.GuildID, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка получения топа")
		h.respondEphemeral(i, "❌ Ошибка получения топа")
		return
	}

	if len(top) == 0 {
		h.respond(i, "Пусто — баллов ещё никто не заработал")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 Топ баллов:\n")
	for n, e := range top {
		sb.WriteString(fmt.Sprintf("%d. <@%s> — %s\n", n+1, e.UserID, common.FormatPoints(e.Points)))
	}
	h.respond(i, sb.String())
}

// HandleHistory обрабатывает /history — последние операции (только автору).
func (h *Handler) HandleHistory(ctx context.Context, i *discordgo.InteractionCreate) {
	text, err := h.service.GetHistoryText(ctx, i.GuildID, i.Member.User.ID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения истории")
		h.respondEphemeral(i, "❌ Ошибка получения истории начислений")
		return
	}
	h.respondEphemeral(i, text)
}

// respond отвечает на взаимодействие видимым всем сообщением.
func (h *Handler) respond(i *discordgo.InteractionCreate, text string) {
	err := h.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text},
	})
	if err != nil {
		log.WithError(err).Error("Ошибка отправки ответа")
	}
}

// respondEphemeral отвечает сообщением, видимым только автору команды.
func (h *Handler) respondEphemeral(i *discordgo.InteractionCreate, text string) {
	err := h.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.WithError(err).Error("Ошибка отправки ответа")
	}
}
