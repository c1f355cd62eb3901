// Package points — service.go содержит бизнес-логику балльного счёта.
// Валидация сумм, баланс, топ и история начислений.
package points

import (
	"context"
	"fmt"
	"strings"

	"discord-points-bot/internal/common"
	"discord-points-bot/internal/config"
)

// Service управляет балльным счётом.
type Service struct {
	repo *Repository
	cfg  *config.Config
}

// NewService создаёт сервис баллов.
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// Credit начисляет баллы. Сумма должна быть строго положительной;
// проверка диапазона заявки (PointsMin..PointsMax) выполняется раньше,
// в reports — сюда приходят уже проверенные значения.
func (s *Service) Credit(ctx context.Context, guildID, userID string, amount int64, reason, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	return s.repo.Credit(ctx, guildID, userID, amount, reason, description)
}

// Debit списывает баллы. При нехватке возвращает ErrInsufficientBalance,
// баланс при этом не меняется.
func (s *Service) Debit(ctx context.Context, guildID, userID string, amount int64, reason, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	return s.repo.Debit(ctx, guildID, userID, amount, reason, description)
}

// Balance возвращает текущий баланс (0, если счёта ещё нет).
func (s *Service) Balance(ctx context.Context, guildID, userID string) (int64, error) {
	return s.repo.Balance(ctx, guildID, userID)
}

// Top возвращает таблицу лидеров сервера.
func (s *Service) Top(ctx context.Context, guildID string, n int) ([]*TopEntry, error) {
	if n <= 0 {
		n = 10
	}
	return s.repo.Top(ctx, guildID, n)
}

// GetHistoryText возвращает форматированную историю начислений.
// Последние 10 записей журнала.
func (s *Service) GetHistoryText(ctx context.Context, guildID, userID string) (string, error) {
	entries, err := s.repo.History(ctx, guildID, userID, 10)
	if err != nil {
		return "", err
	}

	if len(entries) == 0 {
		return "📋 У вас пока нет начислений", nil
	}

	loc := s.cfg.Location()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d операций:\n", len(entries)))
	for i, e := range entries {
		sign := "+"
		if e.Delta < 0 {
			sign = ""
		}
		sb.WriteString(fmt.Sprintf("%d. %s | %s%d %s | %s\n",
			i+1,
			common.FormatDateTime(e.CreatedAt, loc),
			sign,
			e.Delta,
			common.PluralizePoints(e.Delta),
			e.Description,
		))
	}
	return sb.String(), nil
}
