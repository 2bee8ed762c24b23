package authorization

import "strings"

type Role string

const (
	RoleCocinero   Role = "cocinero"
	RoleBartender  Role = "bartender"
	RoleMozo       Role = "mozo"
	RoleDelivery   Role = "delivery"
	RoleCliente    Role = "cliente"
	RoleDueno      Role = "dueno"
	RoleSupervisor Role = "supervisor"
)

func Roles() []Role {
	return []Role{RoleCocinero, RoleBartender, RoleMozo, RoleDelivery, RoleCliente, RoleDueno, RoleSupervisor}
}

// ParseRole accepts the role name case-insensitively, including "dueño".
func ParseRole(raw string) (Role, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "ñ", "n")
	for _, role := range Roles() {
		if string(role) == value {
			return role, true
		}
	}
	return "", false
}

func (r Role) subject() string {
	return "role:" + string(r)
}
