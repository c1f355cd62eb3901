// Package voice — handlers.go обрабатывает slash-команды:
// /my_voice (своё войс-время), /voice_top (топ сервера).
package voice

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
)

// Handler обрабатывает команды войс-статистики.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт обработчик войс-команд.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// HandleMyVoice обрабатывает /my_voice — войс-время за текущий месяц.
func (h *Handler) HandleMyVoice(ctx context.Context, i *discordgo.InteractionCreate) {
	seconds, err := h.service.TotalSeconds(ctx, i.GuildID, i.Member.User.ID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения войс-времени")
		h.respondEphemeral(i, "❌ Ошибка получения войс-времени")
		return
	}

	h.respondEphemeral(i, fmt.Sprintf("🎧 Войс: %s", common.FormatVoiceTime(seconds)))
}

// HandleVoiceTop обрабатывает /voice_top — топ-10 по войс-времени.
func (h *Handler) HandleVoiceTop(ctx context.Context, i *discordgo.InteractionCreate) {
	top, err := h.service.Top(ctx, i.GuildID, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка получения топа войса")
		h.respondEphemeral(i, "❌ Ошибка получения топа")
		return
	}

	if len(top) == 0 {
		h.respond(i, "Пусто — в войсе ещё никто не сидел")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎧 Топ войса:\n")
	for n, e := range top {
		sb.WriteString(fmt.Sprintf("%d. <@%s> — %s\n", n+1, e.UserID, common.FormatVoiceTime(e.Seconds)))
	}
	h.respond(i, sb.String())
}

func (h *Handler) respond(i *discordgo.InteractionCreate, text string) {
	err := h.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text},
	})
	if err != nil {
		log.WithError(err).Error("Ошибка отправки ответа")
	}
}

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
