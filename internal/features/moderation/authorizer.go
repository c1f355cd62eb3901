// Package moderation решает, кому разрешено рассматривать заявки.
// Проверка — чистый предикат над набором ролей участника, без побочных
// эффектов и обращений к БД. Схему авторизации можно подменить целиком,
// не трогая логику заявок.
package moderation

// Actor описывает участника, претендующего на модераторское действие.
type Actor struct {
	UserID string
	// RoleNames — имена ролей участника на сервере
	RoleNames []string
	// IsAdministrator — есть ли у участника право Administrator на сервере
	IsAdministrator bool
}

// Authorizer — предикат «может ли участник модерировать».
type Authorizer interface {
	CanModerate(actor Actor) bool
}

// RoleAuthorizer разрешает модерацию участникам, у которых есть хотя бы
// одна из настроенных модераторских ролей. Если список ролей не настроен,
// действует запасной режим: модерировать могут только администраторы.
type RoleAuthorizer struct {
	moderatorRoles map[string]struct{}
}

// NewRoleAuthorizer создаёт авторизатор по списку имён модераторских ролей.
func NewRoleAuthorizer(roleNames []string) *RoleAuthorizer {
	set := make(map[string]struct{}, len(roleNames))
	for _, name := range roleNames {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return &RoleAuthorizer{moderatorRoles: set}
}

// CanModerate возвращает true, если у участника есть модераторская роль,
// либо (при пустой настройке ролей) право администратора.
func (a *RoleAuthorizer) CanModerate(actor Actor) bool {
	if len(a.moderatorRoles) == 0 {
		return actor.IsAdministrator
	}
	for _, name := range actor.RoleNames {
		if _, ok := a.moderatorRoles[name]; ok {
			return true
		}
	}
	return false
}
