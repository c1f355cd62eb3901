// Package voice — service.go содержит бизнес-логику войс-учёта.
// Сервис превращает события шлюза (вход/выход из отслеживаемого
// войс-состояния) в переходы сессии и следит, чтобы дубль-события
// ничего не ломали.
package voice

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Service управляет войс-сессиями.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис войс-учёта.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// HandleJoin обрабатывает вход участника в отслеживаемое войс-состояние.
// Повторный вход при открытой сессии — no-op.
func (s *Service) HandleJoin(ctx context.Context, guildID, userID string, now time.Time) error {
	if err := s.repo.Join(ctx, guildID, userID, now); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"guild_id": guildID,
		"user_id":  userID,
	}).Debug("Войс: вход")
	return nil
}

// HandleLeave обрабатывает выход из отслеживаемого войс-состояния.
// Повторный выход без открытой сессии — no-op.
func (s *Service) HandleLeave(ctx context.Context, guildID, userID string, now time.Time) error {
	hours, err := s.repo.Leave(ctx, guildID, userID, now)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"guild_id":      guildID,
		"user_id":       userID,
		"awarded_hours": hours,
	}).Debug("Войс: выход")
	return nil
}

// AwardOpenSessions начисляет баллы по открытым сессиям (вызывается кроном).
func (s *Service) AwardOpenSessions(ctx context.Context) error {
	return s.repo.AwardOpen(ctx, time.Now())
}

// TotalSeconds возвращает войс-время пользователя за текущий цикл.
func (s *Service) TotalSeconds(ctx context.Context, guildID, userID string) (int64, error) {
	return s.repo.TotalSeconds(ctx, guildID, userID, time.Now())
}

// Top возвращает топ сервера по войс-времени.
func (s *Service) Top(ctx context.Context, guildID string, n int) ([]*TopEntry, error) {
	if n <= 0 {
		n = 10
	}
	return s.repo.Top(ctx, guildID, n)
}
