package reports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"discord-points-bot/internal/common"
	"discord-points-bot/internal/config"
	"discord-points-bot/internal/features/moderation"
)

func testConfig() *config.Config {
	return &config.Config{
		PointsMin:               1,
		PointsMax:               1000,
		ReportRequireAttachment: true,
	}
}

func TestDecideRequiresModeratorRole(t *testing.T) {
	// Проверка прав идёт до обращения к БД
	auth := moderation.NewRoleAuthorizer([]string{"Модератор"})
	svc := NewService(nil, auth, testConfig())

	_, err := svc.Decide(context.Background(), 1, DecisionApprove, moderation.Actor{
		UserID:    "u1",
		RoleNames: []string{"Участник"},
	})
	require.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.Decide(context.Background(), 1, DecisionReject, moderation.Actor{
		UserID:          "admin",
		IsAdministrator: true,
	})
	require.ErrorIs(t, err, common.ErrForbidden)
}

func TestCreateRejectsOutOfRangeAmounts(t *testing.T) {
	// Диапазон проверяется до поиска привязки канала
	svc := NewService(nil, moderation.NewRoleAuthorizer(nil), testConfig())
	ctx := context.Background()

	_, err := svc.Create(ctx, "g1", "u1", "ch1", 0)
	require.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, "g1", "u1", "ch1", 1001)
	require.ErrorIs(t, err, common.ErrInvalidAmount)
}
