// Package shop реализует магазин наград за баллы.
// catalog.go — статический каталог: загружается из конфигурации при
// старте и в рантайме не меняется.
package shop

import (
	"discord-points-bot/internal/config"
)

// Item — позиция каталога.
type Item struct {
	ID    string // Идентификатор для команды /redeem
	Label string // Название для отображения
	Cost  int64  // Цена в баллах (всегда > 0)
}

// Catalog — неизменяемый список наград.
type Catalog struct {
	items []Item
	byID  map[string]Item
}

// NewCatalog собирает каталог из конфигурации.
func NewCatalog(cfgItems []config.ShopItem) *Catalog {
	items := make([]Item, 0, len(cfgItems))
	byID := make(map[string]Item, len(cfgItems))
	for _, ci := range cfgItems {
		item := Item{ID: ci.ID, Label: ci.Label, Cost: ci.Cost}
		items = append(items, item)
		byID[item.ID] = item
	}
	return &Catalog{items: items, byID: byID}
}

// Items возвращает все позиции в порядке конфигурации.
func (c *Catalog) Items() []Item {
	return c.items
}

// Lookup ищет позицию по ID.
func (c *Catalog) Lookup(id string) (Item, bool) {
	item, ok := c.byID[id]
	return item, ok
}
