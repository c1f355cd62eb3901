// Package shop — handlers.go обрабатывает slash-команды:
// /shop (каталог), /redeem (покупка).
package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
)

// Handler обрабатывает команды магазина.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт обработчик команд магазина.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// HandleShop обрабатывает /shop — показывает каталог.
//
// Формат ответа:
//
//	🛒 Магазин:
//	nitro — Nitro на месяц — 500 баллов
func (h *Handler) HandleShop(ctx context.Context, i *discordgo.InteractionCreate) {
	var sb strings.Builder
	sb.WriteString("🛒 Магазин (покупка: /redeem <id>):\n")
	for _, item := range h.service.Catalog().Items() {
		sb.WriteString(fmt.Sprintf("`%s` — %s — %s\n", item.ID, item.Label, common.FormatPoints(item.Cost)))
	}
	h.respondEphemeral(i, sb.String())
}

// HandleRedeem обрабатывает /redeem <item> — списывает баллы и сообщает
// о покупке в канал (награду выдаёт модератор вручную).
func (h *Handler) HandleRedeem(ctx context.Context, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		h.respondEphemeral(i, "❌ Укажите товар: /redeem <id>")
		return
	}
	itemID := options[0].StringValue()

	item, err := h.service.Redeem(ctx, i.GuildID, i.Member.User.ID, itemID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUnknownItem):
			h.respondEphemeral(i, "❌ Такого товара нет, смотри /shop")
		case errors.Is(err, common.ErrInsufficientBalance):
			h.respondEphemeral(i, "❌ Недостаточно баллов")
		default:
			log.WithError(err).Error("Ошибка покупки")
			h.respondEphemeral(i, "❌ Ошибка, попробуйте позже")
		}
		return
	}

	// Публичное сообщение — сигнал модераторам выдать награду
	h.respond(i, fmt.Sprintf("🛒 <@%s> купил «%s» за %s. Модераторы, выдайте награду!",
		i.Member.User.ID, item.Label, common.FormatPoints(item.Cost)))
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
