// Package reset — service.go оркеструет ежемесячный сброс по всем серверам.
package reset

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
)

// Service управляет ежемесячным сбросом.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис сброса.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ResetGuild сбрасывает один сервер, закрывая предыдущий месяц.
func (s *Service) ResetGuild(ctx context.Context, guildID string) error {
	now := time.Now()
	return s.repo.ResetGuild(ctx, guildID, common.PrevMonthKey(now), now)
}

// ResetAll сбрасывает все серверы, у которых есть данные.
// Ошибка на одном сервере не останавливает сброс остальных.
func (s *Service) ResetAll(ctx context.Context) error {
	guilds, err := s.repo.Guilds(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	period := common.PrevMonthKey(now)

	for _, guildID := range guilds {
		if err := s.repo.ResetGuild(ctx, guildID, period, now); err != nil {
			log.WithError(err).WithField("guild_id", guildID).Error("Ошибка сброса сервера")
		}
	}

	log.WithFields(log.Fields{
		"guilds": len(guilds),
		"period": period,
	}).Info("Ежемесячный сброс завершён")
	return nil
}
