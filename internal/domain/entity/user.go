package entity

// Roles válidos para el actor autenticado.
const (
	RoleOwner           = "owner"
	RoleAccessAdmin     = "access_admin"
	RoleSalesRep        = "sales_rep"
	RoleProductionStaff = "production_staff"
	RoleLimitedStaff    = "limited_staff"
)

// Roles lista ordenada de todos los roles conocidos.
var Roles = []string{RoleOwner, RoleAccessAdmin, RoleSalesRep, RoleProductionStaff, RoleLimitedStaff}

// IsValidRole informa si role es uno de los cinco roles del sistema.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Actor identidad entregada por el colaborador externo de autenticación.
// Credential es el bearer opaco que se reenvía al backend; nunca se serializa.
type Actor struct {
	ID         string
	Name       string
	Email      string
	Role       string
	Credential string `json:"-"`
}

// Label devuelve el identificador legible del actor para auditoría (email o, en su defecto, nombre).
func (a Actor) Label() string {
	if a.Email != "" {
		return a.Email
	}
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
