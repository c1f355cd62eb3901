package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseShopItems(t *testing.T) {
	items, err := ParseShopItems("nitro:Nitro на месяц:500;vip:VIP-роль:300;color:Кастомный цвет ника:150")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, ShopItem{ID: "nitro", Label: "Nitro на месяц", Cost: 500}, items[0])
	require.Equal(t, ShopItem{ID: "vip", Label: "VIP-роль", Cost: 300}, items[1])
	require.Equal(t, ShopItem{ID: "color", Label: "Кастомный цвет ника", Cost: 150}, items[2])
}

func TestParseShopItemsEmpty(t *testing.T) {
	items, err := ParseShopItems("")
	require.NoError(t, err)
	require.Nil(t, items)

	items, err = ParseShopItems("  ;  ; ")
	require.NoError(t, err)
	require.Nil(t, items)
}

func TestParseShopItemsErrors(t *testing.T) {
	_, err := ParseShopItems("vip:VIP-роль")
	require.Error(t, err)

	_, err = ParseShopItems("vip:VIP-роль:дорого")
	require.Error(t, err)

	_, err = ParseShopItems("vip:VIP-роль:0")
	require.Error(t, err)

	_, err = ParseShopItems("vip:VIP-роль:-5")
	require.Error(t, err)
}

func TestParseShopItemsTrimsSpaces(t *testing.T) {
	items, err := ParseShopItems(" vip : VIP-роль : 300 ")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, ShopItem{ID: "vip", Label: "VIP-роль", Cost: 300}, items[0])
}
