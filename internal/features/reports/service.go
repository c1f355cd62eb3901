// Package reports — service.go содержит бизнес-логику заявок:
// валидация суммы и канала при создании, проверка прав и
// однократность решения.
package reports

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
	"discord-points-bot/internal/config"
	"discord-points-bot/internal/features/moderation"
)

// Service управляет заявками-отчётами.
type Service struct {
	repo       *Repository
	authorizer moderation.Authorizer
	cfg        *config.Config
}

// NewService создаёт сервис заявок.
func NewService(repo *Repository, authorizer moderation.Authorizer, cfg *config.Config) *Service {
	return &Service{repo: repo, authorizer: authorizer, cfg: cfg}
}

// RequireAttachment — требуется ли скриншот в сообщении-заявке.
func (s *Service) RequireAttachment() bool {
	return s.cfg.ReportRequireAttachment
}

// ModeratorRoleNames возвращает имена модераторских ролей из конфигурации.
// Нужны адаптеру: канал отчётов приватный, и роли модераторов должны
// получить доступ к нему при создании.
func (s *Service) ModeratorRoleNames() []string {
	return s.cfg.ModeratorRoles
}

// IsReportChannel — привязан ли канал к этому участнику как канал отчётов.
func (s *Service) IsReportChannel(ctx context.Context, guildID, userID, channelID string) (bool, error) {
	return s.repo.IsBoundTo(ctx, guildID, userID, channelID)
}

// Create создаёт заявку на deltaPoints баллов из канала channelID.
// Проверки:
//   - сумма в допустимом диапазоне (ErrInvalidAmount)
//   - канал привязан именно к этому участнику (ErrUnboundChannel)
func (s *Service) Create(ctx context.Context, guildID, userID, channelID string, deltaPoints int64) (int64, error) {
	if deltaPoints < s.cfg.PointsMin || deltaPoints > s.cfg.PointsMax {
		return 0, common.ErrInvalidAmount
	}

	bound, err := s.repo.IsBoundTo(ctx, guildID, userID, channelID)
	if err != nil {
		return 0, err
	}
	if !bound {
		return 0, common.ErrUnboundChannel
	}

	id, err := s.repo.Create(ctx, guildID, userID, channelID, deltaPoints)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"submission_id": id,
		"guild_id":      guildID,
		"user_id":       userID,
		"delta":         deltaPoints,
	}).Info("Создана заявка на баллы")
	return id, nil
}

// Decide применяет решение модератора к заявке.
// Порядок проверок: права (ErrForbidden), затем статус (ErrAlreadyDecided).
// Одобрение начисляет баллы ровно один раз.
func (s *Service) Decide(ctx context.Context, id int64, decision Decision, actor moderation.Actor) (*Submission, error) {
	if !s.authorizer.CanModerate(actor) {
		return nil, common.ErrForbidden
	}

	sub, err := s.repo.Decide(ctx, id, decision, actor.UserID, time.Now())
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"submission_id": sub.ID,
		"status":        sub.Status,
		"actor":         actor.UserID,
	}).Info("Заявка рассмотрена")
	return sub, nil
}

// BindChannel привязывает канал отчётов к участнику (идемпотентно).
func (s *Service) BindChannel(ctx context.Context, guildID, userID, channelID string) error {
	return s.repo.Bind(ctx, guildID, userID, channelID)
}

// GetBinding возвращает привязку участника (nil, если канала ещё нет).
func (s *Service) GetBinding(ctx context.Context, guildID, userID string) (*Binding, error) {
	return s.repo.GetBinding(ctx, guildID, userID)
}
