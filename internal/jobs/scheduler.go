// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежемесячный сброс баллов
// и ежечасное начисление за открытые войс-сессии.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/config"
	"discord-points-bot/internal/features/reset"
	"discord-points-bot/internal/features/voice"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron         *cron.Cron
	cfg          *config.Config
	resetService *reset.Service
	voiceService *voice.Service
}

// NewScheduler создаёт планировщик задач в часовом поясе приложения.
func NewScheduler(cfg *config.Config, resetService *reset.Service, voiceService *voice.Service) *Scheduler {
	c := cron.New(cron.WithLocation(cfg.Location()))

	return &Scheduler{
		cron:         c,
		cfg:          cfg,
		resetService: resetService,
		voiceService: voiceService,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Ежемесячный сброс (по умолчанию 1-го числа в 00:00)
	if _, err := s.cron.AddFunc(s.cfg.ResetCron, func() {
		log.Info("[CRON] Ежемесячный сброс баллов")
		if err := s.resetService.ResetAll(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка сброса")
		}
	}); err != nil {
		log.WithError(err).Error("Некорректное расписание сброса (RESET_CRON)")
	}

	// Начисление за открытые войс-сессии каждый час
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Начисление за открытые войс-сессии")
		if err := s.voiceService.AwardOpenSessions(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка начисления за войс")
		}
	}); err != nil {
		log.WithError(err).Error("Не удалось добавить задачу начисления за войс")
	}

	s.cron.Start()
	log.WithField("tz", s.cfg.AppTimezone).Info("Планировщик задач запущен")
}

// Stop останавливает планировщик, дождавшись выполняющихся задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
