// Package reports — handlers.go обрабатывает кнопку «Создать отчёт»,
// сообщения-заявки "+N" и кнопки решения модератора.
package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
	"discord-points-bot/internal/features/moderation"
)

// Идентификаторы компонентов Discord.
const (
	CreateReportButtonID = "create_report"
	approveButtonPrefix  = "sub_approve:"
	rejectButtonPrefix   = "sub_reject:"
)

// Handler обрабатывает взаимодействия, связанные с заявками.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт обработчик заявок.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// PublishPanel публикует в канале панель с кнопкой «Создать отчёт».
// Вызывается один раз при старте бота.
func (h *Handler) PublishPanel(channelID string) error {
	_, err := h.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "Нажми кнопку, чтобы создать личный канал отчётов",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Создать отчёт",
						Style:    discordgo.PrimaryButton,
						CustomID: CreateReportButtonID,
					},
				},
			},
		},
	})
	return err
}

// HandleCreateReport обрабатывает нажатие кнопки «Создать отчёт»:
// создаёт приватный текстовый канал (виден только автору) и привязывает
// его к участнику. Повторное нажатие — ссылка на уже созданный канал.
func (h *Handler) HandleCreateReport(ctx context.Context, i *discordgo.InteractionCreate) {
	guildID := i.GuildID
	userID := i.Member.User.ID

	// Если канал уже есть — не создаём второй
	binding, err := h.service.GetBinding(ctx, guildID, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения привязки")
		h.respondEphemeral(i, "❌ Ошибка, попробуйте позже")
		return
	}
	if binding != nil {
		h.respondEphemeral(i, fmt.Sprintf("Канал отчётов уже создан: <#%s>", binding.ChannelID))
		return
	}

	// Роли сервера нужны, чтобы открыть канал модераторам
	roles, err := h.guildRoles(guildID)
	if err != nil {
		log.WithError(err).WithField("guild_id", guildID).Warn("Не удалось получить роли сервера")
	}

	// Приватный канал: @everyone не видит; видят автор и модераторы
	channel, err := h.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 fmt.Sprintf("отчёт-%s", i.Member.User.Username),
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: reportChannelOverwrites(guildID, userID, roles, h.service.ModeratorRoleNames()),
	})
	if err != nil {
		log.WithError(err).Error("Ошибка создания канала отчётов")
		h.respondEphemeral(i, "❌ Не удалось создать канал")
		return
	}

	if err := h.service.BindChannel(ctx, guildID, userID, channel.ID); err != nil {
		// Гонка двух нажатий: канал уже привязан другим обработчиком
		if errors.Is(err, common.ErrChannelAlreadyBound) {
			h.respondEphemeral(i, "Канал отчётов уже создан")
			return
		}
		log.WithError(err).Error("Ошибка привязки канала")
		h.respondEphemeral(i, "❌ Ошибка, попробуйте позже")
		return
	}

	if _, err := h.session.ChannelMessageSend(channel.ID, "Прикрепи скрин и напиши `+число`"); err != nil {
		log.WithError(err).Warn("Не удалось отправить приветствие в канал отчётов")
	}

	h.respondEphemeral(i, fmt.Sprintf("Канал создан: <#%s>", channel.ID))
}

// HandleReportMessage обрабатывает сообщение-заявку "+N" в канале отчётов.
// Сообщения без "+N" и сообщения вне привязанного канала отчётов молча
// игнорируются; заявка без скриншота (если он обязателен) и сумма вне
// диапазона получают подсказку в ответ.
func (h *Handler) HandleReportMessage(ctx context.Context, m *discordgo.MessageCreate) {
	deltaPoints, ok := ParsePoints(m.Content)
	if !ok {
		return
	}

	// Сначала проверяем привязку: "+N" в чужом или обычном канале —
	// не заявка, отвечать там нечего
	bound, err := h.service.IsReportChannel(ctx, m.GuildID, m.Author.ID, m.ChannelID)
	if err != nil {
		log.WithError(err).Error("Ошибка проверки канала отчётов")
		return
	}
	if !bound {
		return
	}

	if h.service.RequireAttachment() && len(m.Attachments) == 0 {
		h.replyTo(m, "❌ К заявке нужно прикрепить скриншот")
		return
	}

	id, err := h.service.Create(ctx, m.GuildID, m.Author.ID, m.ChannelID, deltaPoints)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidAmount):
			h.replyTo(m, "❌ Сумма вне допустимого диапазона")
		case errors.Is(err, common.ErrUnboundChannel):
			// Привязка исчезла между проверкой и вставкой — молча игнорируем
		default:
			log.WithError(err).Error("Ошибка создания заявки")
			h.replyTo(m, "❌ Ошибка, попробуйте позже")
		}
		return
	}

	// Сообщение модераторам с кнопками решения
	_, err = h.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("Заявка #%d: <@%s> запрашивает %s",
			id, m.Author.ID, common.FormatPoints(deltaPoints)),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Одобрить",
						Style:    discordgo.SuccessButton,
						CustomID: fmt.Sprintf("%s%d", approveButtonPrefix, id),
					},
					discordgo.Button{
						Label:    "Отклонить",
						Style:    discordgo.DangerButton,
						CustomID: fmt.Sprintf("%s%d", rejectButtonPrefix, id),
					},
				},
			},
		},
	})
	if err != nil {
		log.WithError(err).Error("Ошибка отправки заявки модераторам")
	}
}

// reportChannelOverwrites собирает права приватного канала отчётов:
// @everyone не видит, автор видит, настроенные модераторские роли видят.
// Без доступа модераторов кнопки решения в канале некому было бы нажать
// (право Administrator обходит запреты, но модераторская роль — нет).
func reportChannelOverwrites(guildID, userID string, guildRoles []*discordgo.Role, moderatorRoles []string) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// ID роли @everyone совпадает с ID сервера
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel,
		},
	}

	isModerator := make(map[string]struct{}, len(moderatorRoles))
	for _, name := range moderatorRoles {
		isModerator[name] = struct{}{}
	}
	for _, role := range guildRoles {
		if _, ok := isModerator[role.Name]; !ok {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    role.ID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel,
		})
	}
	return overwrites
}

// IsDecisionButton проверяет, относится ли CustomID к кнопкам решения.
func IsDecisionButton(customID string) bool {
	return strings.HasPrefix(customID, approveButtonPrefix) || strings.HasPrefix(customID, rejectButtonPrefix)
}

// HandleDecisionButton обрабатывает кнопку «Одобрить»/«Отклонить».
func (h *Handler) HandleDecisionButton(ctx context.Context, i *discordgo.InteractionCreate, customID string) {
	decision := DecisionApprove
	rawID, ok := strings.CutPrefix(customID, approveButtonPrefix)
	if !ok {
		decision = DecisionReject
		rawID, ok = strings.CutPrefix(customID, rejectButtonPrefix)
		if !ok {
			return
		}
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		log.WithField("custom_id", customID).Warn("Некорректный ID заявки в кнопке")
		return
	}

	actor := h.resolveActor(i)
	sub, err := h.service.Decide(ctx, id, decision, actor)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrForbidden):
			h.respondEphemeral(i, "❌ Решения по заявкам принимают только модераторы")
		case errors.Is(err, common.ErrAlreadyDecided):
			h.respondEphemeral(i, "Заявка уже рассмотрена")
		case errors.Is(err, common.ErrSubmissionNotFound):
			h.respondEphemeral(i, "❌ Заявка не найдена")
		default:
			log.WithError(err).Error("Ошибка решения по заявке")
			h.respondEphemeral(i, "❌ Ошибка, попробуйте позже")
		}
		return
	}

	if sub.Status == StatusApproved {
		h.respond(i, fmt.Sprintf("✅ Заявка #%d одобрена: <@%s> +%s",
			sub.ID, sub.UserID, common.FormatPoints(sub.DeltaPoints)))
	} else {
		h.respond(i, fmt.Sprintf("❌ Заявка #%d отклонена", sub.ID))
	}
}

// resolveActor собирает данные для проверки прав: имена ролей участника
// и флаг администратора.
func (h *Handler) resolveActor(i *discordgo.InteractionCreate) moderation.Actor {
	actor := moderation.Actor{
		UserID:          i.Member.User.ID,
		IsAdministrator: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
	}

	roles, err := h.guildRoles(i.GuildID)
	if err != nil {
		log.WithError(err).WithField("guild_id", i.GuildID).Warn("Не удалось получить роли сервера")
		return actor
	}

	byID := make(map[string]string, len(roles))
	for _, r := range roles {
		byID[r.ID] = r.Name
	}
	for _, roleID := range i.Member.Roles {
		if name, ok := byID[roleID]; ok {
			actor.RoleNames = append(actor.RoleNames, name)
		}
	}
	return actor
}

// guildRoles возвращает роли сервера: сначала из кэша, потом через API.
func (h *Handler) guildRoles(guildID string) ([]*discordgo.Role, error) {
	if g, err := h.session.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	return h.session.GuildRoles(guildID)
}

// replyTo отвечает на сообщение в том же канале.
func (h *Handler) replyTo(m *discordgo.MessageCreate, text string) {
	if _, err := h.session.ChannelMessageSendReply(m.ChannelID, text, m.Reference()); err != nil {
		log.WithError(err).Error("Ошибка отправки ответа")
	}
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
