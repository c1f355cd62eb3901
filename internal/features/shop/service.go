// Package shop — service.go содержит логику покупки.
// Покупка только списывает баллы и фиксируется в журнале — саму награду
// выдаёт человек (среди наград есть и реальные призы, автоматикой их
// не доставить), поэтому сервис лишь сообщает модераторам о покупке.
package shop

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"discord-points-bot/internal/common"
	"discord-points-bot/internal/features/points"
)

// Service управляет покупками в магазине.
type Service struct {
	catalog *Catalog
	points  *points.Service
}

// NewService создаёт сервис магазина.
func NewService(catalog *Catalog, pointsService *points.Service) *Service {
	return &Service{catalog: catalog, points: pointsService}
}

// Catalog возвращает каталог для отображения.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Redeem покупает награду itemID за баллы пользователя.
// Ошибки:
//   - ErrUnknownItem — нет такой позиции в каталоге
//   - ErrInsufficientBalance — не хватает баллов (ничего не списано)
//
// Возвращает купленную позицию для уведомления.
func (s *Service) Redeem(ctx context.Context, guildID, userID, itemID string) (Item, error) {
	item, ok := s.catalog.Lookup(itemID)
	if !ok {
		return Item{}, common.ErrUnknownItem
	}

	description := fmt.Sprintf("Покупка: %s", item.Label)
	err := s.points.Debit(ctx, guildID, userID, item.Cost, points.ReasonShopRedeem, description)
	if err != nil {
		return Item{}, err
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"user_id":  userID,
		"item":     item.ID,
		"cost":     item.Cost,
	}).Info("Покупка в магазине")
	return item, nil
}
